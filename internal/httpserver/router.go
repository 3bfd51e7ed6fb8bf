package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/internal/handler"
	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/pkg/otel"
	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/pkg/rbac"
)

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

type Options struct {
	JWTSecret string
	// Checks are run by /readyz, keyed by the name reported on failure.
	Checks map[string]ReadinessCheck
}

func NewRouter(
	teamHandler *handler.TeamHandler,
	adminHandler *handler.AdminHandler,
	opts Options,
	logger *zap.Logger,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), TraceMiddleware(), otel.GinMiddleware(), RequestLogger(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		for name, check := range opts.Checks {
			if err := check(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": name + "_not_ready", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/")
	api.Use(AuthMiddleware(opts.JWTSecret))
	{
		teams := api.Group("/teams/:id")
		teams.GET("", RequirePermission(rbac.PermissionReadBoard), teamHandler.GetTeam)
		teams.GET("/board", RequirePermission(rbac.PermissionReadBoard), teamHandler.GetBoard)
		teams.POST("/proposals", RequirePermission(rbac.PermissionProposeMilestones), teamHandler.ProposeMilestones)
		teams.POST("/proposals/review", RequirePermission(rbac.PermissionReviewProposals), teamHandler.ReviewProposals)
		teams.POST("/assignments", RequirePermission(rbac.PermissionAssignMilestones), teamHandler.AssignMilestones)
		teams.POST("/milestones/:milestone_id/start", RequirePermission(rbac.PermissionWorkMilestones), teamHandler.StartMilestone)
		teams.POST("/milestones/:milestone_id/submit", RequirePermission(rbac.PermissionWorkMilestones), teamHandler.SubmitForReview)
		teams.POST("/milestones/:milestone_id/resubmit", RequirePermission(rbac.PermissionWorkMilestones), teamHandler.Resubmit)
		teams.POST("/submissions/grade", RequirePermission(rbac.PermissionGradeSubmissions), teamHandler.GradeSubmissions)
		teams.PUT("/flag", RequirePermission(rbac.PermissionSetTeamFlag), teamHandler.SetTeamFlag)

		api.GET("/boards", RequirePermission(rbac.PermissionReadAllBoards), teamHandler.GetBoards)

		if adminHandler != nil {
			admin := api.Group("/admin", RequirePermission(rbac.PermissionReplayOutbox))
			admin.POST("/outbox/replay", adminHandler.ReplayOutboxEvent)
			admin.POST("/outbox/replay-failed", adminHandler.ReplayFailedEvents)
		}
	}

	return r
}
