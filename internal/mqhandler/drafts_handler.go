package mqhandler

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	mqcontracts "github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/contracts/mq"
	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/internal/model"
	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/internal/service/review"
	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/pkg/logger"
	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/pkg/mq"
	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/pkg/trace"
)

const draftsHandlerName = "drafts_generated"

// Proposer creates proposed milestones for a team.
type Proposer interface {
	ProposeMilestones(ctx context.Context, teamID, phaseID string, drafts []review.Draft) ([]*model.Milestone, error)
}

// DraftsGeneratedHandler turns assistant-generated drafts into proposed milestones.
// Redeliveries of the same request are skipped.
type DraftsGeneratedHandler struct {
	proposer Proposer
	deduper  Deduper
	retry    retryPolicy
	logger   *zap.Logger
}

func NewDraftsGeneratedHandler(proposer Proposer, deduper Deduper, counter RetryCounter, maxRetries int64, logger *zap.Logger) *DraftsGeneratedHandler {
	return &DraftsGeneratedHandler{
		proposer: proposer,
		deduper:  deduper,
		retry:    retryPolicy{counter: counter, maxRetries: maxRetries, logger: logger},
		logger:   logger,
	}
}

func (h *DraftsGeneratedHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	var p mqcontracts.DraftsGeneratedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.logger.Error("Failed to unmarshal drafts payload",
			zap.Error(err),
			zap.String("raw_payload", string(raw)),
		)
		return mq.Permanent("json_decode_error", err)
	}

	ctx, _ = trace.EnsureContext(ctx, p.TraceID)
	log := logger.WithTrace(ctx, h.logger).With(
		zap.String("request_id", p.RequestID),
		zap.String("team_id", p.TeamID),
		zap.Int("draft_count", len(p.Drafts)),
	)

	if p.RequestID == "" {
		log.Warn("Drafts event has no request_id, processing without dedup")
	} else if h.deduper != nil && !h.deduper.AcquireOnce(ctx, draftsHandlerName, p.RequestID) {
		return nil
	}

	drafts := make([]review.Draft, len(p.Drafts))
	for i, d := range p.Drafts {
		drafts[i] = review.Draft{Title: d.Title, Description: d.Description}
	}

	created, err := h.proposer.ProposeMilestones(ctx, p.TeamID, p.PhaseID, drafts)
	if err != nil {
		classified := h.retry.classify(ctx, draftsHandlerName, p.RequestID, err)
		// A redelivery must be able to run again unless the message is going to the DLQ.
		if !mq.IsPermanent(classified) && h.deduper != nil && p.RequestID != "" {
			h.deduper.Release(ctx, draftsHandlerName, p.RequestID)
		}
		return classified
	}

	h.retry.reset(ctx, draftsHandlerName, p.RequestID)
	log.Info("Proposed milestones from drafts", zap.Int("created", len(created)))
	return nil
}
