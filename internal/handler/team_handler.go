package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/internal/model"
	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/internal/service/review"
	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/pkg/auth"
	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/pkg/rbac"
)

// TeamHandler exposes the milestone lifecycle commands over HTTP.
type TeamHandler struct {
	processor *review.Processor
	logger    *zap.Logger
}

func NewTeamHandler(processor *review.Processor, logger *zap.Logger) *TeamHandler {
	return &TeamHandler{processor: processor, logger: logger}
}

type createMilestonesRequest struct {
	PhaseID string         `json:"phase_id" binding:"required"`
	Drafts  []review.Draft `json:"drafts" binding:"required,min=1"`
}

type reviewProposalsRequest struct {
	Decisions []review.ProposalDecision `json:"decisions" binding:"required,min=1"`
}

type gradeSubmissionsRequest struct {
	Decisions []review.GradeDecision `json:"decisions" binding:"required,min=1"`
}

type setFlagRequest struct {
	Flag string `json:"flag"`
}

// teamID reads :id and enforces that students only touch their own team.
func (h *TeamHandler) teamID(c *gin.Context) (string, bool) {
	teamID := c.Param("id")
	if teamID == "" {
		badRequest(c, "team id required")
		return "", false
	}

	claims, ok := c.Get(auth.ClaimsKey)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Error: "user not authenticated", Code: "unauthenticated"})
		return "", false
	}
	cl := claims.(*auth.Claims)
	if err := rbac.CheckTeamAccess(cl.UserID, cl.Role, cl.TeamID, teamID); err != nil {
		h.logger.Warn("Team access denied",
			zap.String("user_id", cl.UserID),
			zap.String("team_id", teamID),
		)
		c.AbortWithStatusJSON(http.StatusForbidden, errorBody{Error: err.Error(), Code: "forbidden", TeamID: teamID})
		return "", false
	}
	return teamID, true
}

// ProposeMilestones handles POST /teams/:id/proposals
func (h *TeamHandler) ProposeMilestones(c *gin.Context) {
	h.createMilestones(c, "propose", h.processor.ProposeMilestones)
}

// AssignMilestones handles POST /teams/:id/assignments
func (h *TeamHandler) AssignMilestones(c *gin.Context) {
	h.createMilestones(c, "assign", h.processor.AssignMilestonesDirect)
}

type createFunc func(ctx context.Context, teamID, phaseID string, drafts []review.Draft) ([]*model.Milestone, error)

func (h *TeamHandler) createMilestones(c *gin.Context, op string, create createFunc) {
	teamID, ok := h.teamID(c)
	if !ok {
		return
	}

	var req createMilestonesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	created, err := create(c.Request.Context(), teamID, req.PhaseID, req.Drafts)
	if err != nil {
		writeError(c, h.logger, op, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"milestones": created})
}

// ReviewProposals handles POST /teams/:id/proposals/review
func (h *TeamHandler) ReviewProposals(c *gin.Context) {
	teamID, ok := h.teamID(c)
	if !ok {
		return
	}

	var req reviewProposalsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	summary, err := h.processor.ReviewProposals(c.Request.Context(), teamID, req.Decisions)
	if err != nil {
		writeError(c, h.logger, "review_proposals", err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GradeSubmissions handles POST /teams/:id/submissions/grade
func (h *TeamHandler) GradeSubmissions(c *gin.Context) {
	teamID, ok := h.teamID(c)
	if !ok {
		return
	}

	var req gradeSubmissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	summary, err := h.processor.GradeSubmissions(c.Request.Context(), teamID, req.Decisions)
	if err != nil {
		writeError(c, h.logger, "grade_submissions", err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// StartMilestone handles POST /teams/:id/milestones/:milestone_id/start
func (h *TeamHandler) StartMilestone(c *gin.Context) {
	h.studentStep(c, "start", h.processor.StartMilestone)
}

// SubmitForReview handles POST /teams/:id/milestones/:milestone_id/submit
func (h *TeamHandler) SubmitForReview(c *gin.Context) {
	h.studentStep(c, "submit", h.processor.SubmitForReview)
}

// Resubmit handles POST /teams/:id/milestones/:milestone_id/resubmit
func (h *TeamHandler) Resubmit(c *gin.Context) {
	h.studentStep(c, "resubmit", h.processor.Resubmit)
}

func (h *TeamHandler) studentStep(c *gin.Context, op string, step func(ctx context.Context, teamID, milestoneID string) error) {
	teamID, ok := h.teamID(c)
	if !ok {
		return
	}
	milestoneID := c.Param("milestone_id")

	if err := step(c.Request.Context(), teamID, milestoneID); err != nil {
		writeError(c, h.logger, op, err)
		return
	}

	board, err := h.processor.GetBoard(c.Request.Context(), teamID)
	if err != nil {
		writeError(c, h.logger, op, err)
		return
	}
	c.JSON(http.StatusOK, board)
}

// GetBoard handles GET /teams/:id/board
func (h *TeamHandler) GetBoard(c *gin.Context) {
	teamID, ok := h.teamID(c)
	if !ok {
		return
	}

	board, err := h.processor.GetBoard(c.Request.Context(), teamID)
	if err != nil {
		writeError(c, h.logger, "get_board", err)
		return
	}
	c.JSON(http.StatusOK, board)
}

// GetTeam handles GET /teams/:id
func (h *TeamHandler) GetTeam(c *gin.Context) {
	teamID, ok := h.teamID(c)
	if !ok {
		return
	}

	team, err := h.processor.GetTeam(c.Request.Context(), teamID)
	if err != nil {
		writeError(c, h.logger, "get_team", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"team":             team,
		"effective_status": team.EffectiveStatus(),
	})
}

// GetBoards handles GET /boards?team_id=a&team_id=b
func (h *TeamHandler) GetBoards(c *gin.Context) {
	teamIDs := c.QueryArray("team_id")
	if len(teamIDs) == 0 {
		badRequest(c, "at least one team_id is required")
		return
	}

	boards, err := h.processor.GetBoards(c.Request.Context(), teamIDs)
	if err != nil {
		writeError(c, h.logger, "get_boards", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"boards": boards})
}

// SetTeamFlag handles PUT /teams/:id/flag
func (h *TeamHandler) SetTeamFlag(c *gin.Context) {
	teamID, ok := h.teamID(c)
	if !ok {
		return
	}

	var req setFlagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	team, err := h.processor.SetTeamFlag(c.Request.Context(), teamID, model.Flag(req.Flag))
	if err != nil {
		writeError(c, h.logger, "set_team_flag", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"team_id":          team.ID,
		"flag":             team.Flag,
		"status":           team.Status,
		"effective_status": team.EffectiveStatus(),
	})
}
