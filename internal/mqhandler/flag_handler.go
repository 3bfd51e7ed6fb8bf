package mqhandler

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	mqcontracts "github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/contracts/mq"
	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/internal/model"
	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/pkg/logger"
	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/pkg/mq"
	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/pkg/trace"
)

const flagHandlerName = "team_flag_changed"

// FlagSetter changes a team's external label.
type FlagSetter interface {
	SetTeamFlag(ctx context.Context, teamID string, flag model.Flag) (*model.Team, error)
}

// TeamFlagChangedHandler applies labels set by other services. Setting the same flag twice
// is a no-op, so no dedup is needed.
type TeamFlagChangedHandler struct {
	setter FlagSetter
	retry  retryPolicy
	logger *zap.Logger
}

func NewTeamFlagChangedHandler(setter FlagSetter, counter RetryCounter, maxRetries int64, logger *zap.Logger) *TeamFlagChangedHandler {
	return &TeamFlagChangedHandler{
		setter: setter,
		retry:  retryPolicy{counter: counter, maxRetries: maxRetries, logger: logger},
		logger: logger,
	}
}

func (h *TeamFlagChangedHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	var p mqcontracts.TeamFlagChangedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.logger.Error("Failed to unmarshal team flag payload",
			zap.Error(err),
			zap.String("raw_payload", string(raw)),
		)
		return mq.Permanent("json_decode_error", err)
	}

	ctx, _ = trace.EnsureContext(ctx, p.TraceID)
	log := logger.WithTrace(ctx, h.logger).With(
		zap.String("team_id", p.TeamID),
		zap.String("flag", p.Flag),
		zap.String("changed_by", p.ChangedBy),
	)

	retryID := p.TeamID + ":" + p.Flag
	team, err := h.setter.SetTeamFlag(ctx, p.TeamID, model.Flag(p.Flag))
	if err != nil {
		return h.retry.classify(ctx, flagHandlerName, retryID, err)
	}

	h.retry.reset(ctx, flagHandlerName, retryID)
	log.Info("Team flag applied", zap.String("effective_status", team.EffectiveStatus()))
	return nil
}
