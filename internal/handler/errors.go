package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/internal/model"
	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/pkg/logger"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error        string `json:"error"`
	Code         string `json:"code"`
	Field        string `json:"field,omitempty"`
	TeamID       string `json:"team_id,omitempty"`
	MilestoneID  string `json:"milestone_id,omitempty"`
	CurrentState string `json:"current_state,omitempty"`
	TargetState  string `json:"target_state,omitempty"`
}

// StatusFor maps a domain error to an HTTP status and a stable error code.
func StatusFor(err error) (int, errorBody) {
	var (
		verr *model.ValidationError
		terr *model.InvalidTransitionError
		tnf  *model.TeamNotFoundError
		mnf  *model.MilestoneNotFoundError
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, errorBody{Error: err.Error(), Code: "validation_error", Field: verr.Field}
	case errors.As(err, &mnf):
		return http.StatusNotFound, errorBody{Error: err.Error(), Code: "milestone_not_found", TeamID: mnf.TeamID, MilestoneID: mnf.MilestoneID}
	case errors.As(err, &tnf):
		return http.StatusNotFound, errorBody{Error: err.Error(), Code: "team_not_found", TeamID: tnf.TeamID}
	case errors.As(err, &terr):
		return http.StatusConflict, errorBody{
			Error:        err.Error(),
			Code:         "invalid_transition",
			MilestoneID:  terr.MilestoneID,
			CurrentState: string(terr.From),
			TargetState:  string(terr.To),
		}
	case model.IsConcurrentModification(err):
		return http.StatusConflict, errorBody{Error: "team was modified concurrently, reload and retry", Code: "concurrent_modification"}
	default:
		return http.StatusInternalServerError, errorBody{Error: "internal error", Code: "internal_error"}
	}
}

// writeError logs err at a level matching its kind and writes the mapped response.
func writeError(c *gin.Context, log *zap.Logger, op string, err error) {
	status, body := StatusFor(err)
	log = logger.WithTrace(c.Request.Context(), log).With(zap.String("op", op), zap.Int("status", status))
	if status >= http.StatusInternalServerError {
		log.Error("Request failed", zap.Error(err))
	} else {
		log.Warn("Request rejected", zap.Error(err))
	}
	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{Error: message, Code: "validation_error"})
}
