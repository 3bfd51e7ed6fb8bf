package review

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	mqcontracts "github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/contracts/mq"
	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/internal/lifecycle"
	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/internal/model"
	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/pkg/logger"
	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/pkg/metrics"
	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/pkg/trace"
)

// Draft is the title and description of a milestone to create.
type Draft struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ProposalDecision is a teacher's verdict on a proposed milestone.
type ProposalDecision struct {
	MilestoneID string `json:"milestone_id"`
	Accept      bool   `json:"accept"`
	Comment     string `json:"comment,omitempty"`
}

// GradeDecision is a teacher's verdict on submitted work.
type GradeDecision struct {
	MilestoneID string `json:"milestone_id"`
	Approve     bool   `json:"approve"`
	Comment     string `json:"comment,omitempty"`
}

const (
	batchKindProposal   = "proposal"
	batchKindCompletion = "completion"
)

// ProposeMilestones creates student- or assistant-authored drafts in the proposed state.
func (p *Processor) ProposeMilestones(ctx context.Context, teamID, phaseID string, drafts []Draft) ([]*model.Milestone, error) {
	return p.create(ctx, teamID, phaseID, drafts, model.StateProposed)
}

// AssignMilestonesDirect creates teacher-authored milestones that skip proposal review.
func (p *Processor) AssignMilestonesDirect(ctx context.Context, teamID, phaseID string, items []Draft) ([]*model.Milestone, error) {
	return p.create(ctx, teamID, phaseID, items, model.StatePendingStart)
}

func (p *Processor) create(ctx context.Context, teamID, phaseID string, drafts []Draft, state model.State) (_ []*model.Milestone, err error) {
	ctx, end := startCommandSpan(ctx, "review.create", teamID, len(drafts))
	defer func() { end(err) }()

	log := logger.WithTrace(ctx, p.logger).With(zap.String("team_id", teamID), zap.String("phase_id", phaseID))

	if teamID == "" {
		return nil, &model.ValidationError{Field: "team_id", Message: "must not be empty"}
	}
	if len(drafts) == 0 {
		return nil, &model.ValidationError{Field: "drafts", Message: "must not be empty"}
	}

	// Validate every draft before touching storage so a bad entry creates nothing.
	now := p.now()
	created := make([]*model.Milestone, 0, len(drafts))
	for i, d := range drafts {
		m, err := model.NewMilestone(teamID, phaseID, d.Title, d.Description, state, now)
		if err != nil {
			log.Warn("Rejected milestone drafts", zap.Int("draft_index", i), zap.Error(err))
			return nil, fmt.Errorf("draft %d: %w", i, err)
		}
		created = append(created, m)
	}

	team, err := p.load(ctx, teamID)
	if err != nil {
		return nil, err
	}

	working := team.Clone()
	working.UpdatedAt = now
	ids := make([]string, 0, len(created))
	for _, m := range created {
		working.Append(m)
		ids = append(ids, m.ID)
	}

	working.Record(mqcontracts.RoutingMilestonesProposed, mqcontracts.MilestonesProposedPayload{
		TeamID:       teamID,
		PhaseID:      created[0].PhaseID,
		MilestoneIDs: ids,
		State:        string(state),
		TraceID:      trace.FromContext(ctx),
	})
	p.recompute(ctx, working)

	if err := p.save(ctx, working); err != nil {
		log.Error("Failed to save created milestones", zap.Error(err))
		return nil, err
	}

	metrics.IncrementMilestonesCreated(string(state), len(created))
	log.Info("Milestones created",
		zap.String("state", string(state)),
		zap.Int("count", len(created)),
		zap.Int("progress", working.Progress),
	)

	out := make([]*model.Milestone, len(created))
	for i, m := range created {
		cp := *m
		out[i] = &cp
	}
	return out, nil
}

// ReviewProposals drives proposed milestones to pending_start (accept) or rejected.
func (p *Processor) ReviewProposals(ctx context.Context, teamID string, decisions []ProposalDecision) (Summary, error) {
	changes := make([]Change, len(decisions))
	for i, d := range decisions {
		target := model.StateRejected
		if d.Accept {
			target = model.StatePendingStart
		}
		changes[i] = Change{MilestoneID: d.MilestoneID, From: model.StateProposed, Target: target, Comment: d.Comment}
	}
	return p.teacherBatch(ctx, teamID, batchKindProposal, changes)
}

// GradeSubmissions drives in_review milestones to approved or rejected as one batch.
func (p *Processor) GradeSubmissions(ctx context.Context, teamID string, decisions []GradeDecision) (Summary, error) {
	changes := make([]Change, len(decisions))
	for i, d := range decisions {
		target := model.StateRejected
		if d.Approve {
			target = model.StateApproved
		}
		changes[i] = Change{MilestoneID: d.MilestoneID, From: model.StateInReview, Target: target, Comment: d.Comment}
	}
	return p.teacherBatch(ctx, teamID, batchKindCompletion, changes)
}

func (p *Processor) teacherBatch(ctx context.Context, teamID, kind string, changes []Change) (Summary, error) {
	_, summary, err := p.applyWith(ctx, teamID, changes, func(working *model.Team, s Summary) {
		working.Record(mqcontracts.RoutingMilestonesReviewed, mqcontracts.MilestonesReviewedPayload{
			TeamID:        teamID,
			Kind:          kind,
			ApprovedCount: s.ApprovedCount,
			RejectedCount: s.RejectedCount,
			TraceID:       trace.FromContext(ctx),
		})
	})
	if err != nil {
		metrics.IncrementReviewBatch(kind, "rejected")
		return Summary{}, err
	}
	metrics.IncrementReviewBatch(kind, "applied")
	return summary, nil
}

// StartMilestone moves pending_start to in_progress.
func (p *Processor) StartMilestone(ctx context.Context, teamID, milestoneID string) error {
	_, _, err := p.Apply(ctx, teamID, []Change{{MilestoneID: milestoneID, From: model.StatePendingStart, Target: model.StateInProgress}})
	return err
}

// SubmitForReview moves in_progress to in_review.
func (p *Processor) SubmitForReview(ctx context.Context, teamID, milestoneID string) error {
	_, _, err := p.Apply(ctx, teamID, []Change{{MilestoneID: milestoneID, From: model.StateInProgress, Target: model.StateInReview}})
	return err
}

// Resubmit moves a rejected milestone back to in_progress.
func (p *Processor) Resubmit(ctx context.Context, teamID, milestoneID string) error {
	_, _, err := p.Apply(ctx, teamID, []Change{{MilestoneID: milestoneID, From: model.StateRejected, Target: model.StateInProgress}})
	return err
}

// GetBoard returns the kanban projection of a team. It never writes the team.
func (p *Processor) GetBoard(ctx context.Context, teamID string) (*lifecycle.Board, error) {
	if teamID == "" {
		return nil, &model.ValidationError{Field: "team_id", Message: "must not be empty"}
	}

	fill := false
	var gen int64
	if p.cache != nil {
		board, ok, err := p.cache.GetBoard(ctx, teamID)
		if err != nil {
			p.logger.Warn("Board cache read failed", zap.String("team_id", teamID), zap.Error(err))
		} else if ok {
			return board, nil
		}
		// The generation must be read before the load so a save racing this read is seen.
		if gen, err = p.cache.Generation(ctx, teamID); err != nil {
			p.logger.Warn("Board cache generation read failed", zap.String("team_id", teamID), zap.Error(err))
		} else {
			fill = true
		}
	}

	team, err := p.load(ctx, teamID)
	if err != nil {
		return nil, err
	}
	board := lifecycle.Project(team)

	if fill {
		if err := p.cache.SetBoard(ctx, &board, gen); err != nil {
			p.logger.Warn("Board cache write failed", zap.String("team_id", teamID), zap.Error(err))
		}
	}
	return &board, nil
}

// GetBoards projects several teams for the teacher's global board. Teams are returned in
// request order; a missing team fails the whole call.
func (p *Processor) GetBoards(ctx context.Context, teamIDs []string) ([]*lifecycle.Board, error) {
	if len(teamIDs) == 0 {
		return nil, &model.ValidationError{Field: "team_id", Message: "at least one team is required"}
	}
	boards := make([]*lifecycle.Board, 0, len(teamIDs))
	for _, id := range teamIDs {
		b, err := p.GetBoard(ctx, id)
		if err != nil {
			return nil, err
		}
		boards = append(boards, b)
	}
	return boards, nil
}

// GetTeam returns the stored team record.
func (p *Processor) GetTeam(ctx context.Context, teamID string) (*model.Team, error) {
	if teamID == "" {
		return nil, &model.ValidationError{Field: "team_id", Message: "must not be empty"}
	}
	return p.load(ctx, teamID)
}

// SetTeamFlag changes the externally owned label. Progress and status are not touched, and
// an unchanged flag is not written.
func (p *Processor) SetTeamFlag(ctx context.Context, teamID string, flag model.Flag) (*model.Team, error) {
	log := logger.WithTrace(ctx, p.logger).With(zap.String("team_id", teamID))

	if teamID == "" {
		return nil, &model.ValidationError{Field: "team_id", Message: "must not be empty"}
	}
	flag, err := model.ParseFlag(string(flag))
	if err != nil {
		return nil, err
	}

	team, err := p.load(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if team.Flag == flag {
		log.Debug("Team flag unchanged, skipping write", zap.String("flag", string(flag)))
		return team, nil
	}

	working := team.Clone()
	working.Flag = flag
	working.UpdatedAt = p.now()
	working.Record(mqcontracts.RoutingTeamProgressChanged, progressPayload(ctx, working))

	if err := p.save(ctx, working); err != nil {
		log.Error("Failed to save team flag", zap.Error(err))
		return nil, err
	}

	log.Info("Team flag changed",
		zap.String("from", string(team.Flag)),
		zap.String("to", string(flag)),
		zap.String("effective_status", working.EffectiveStatus()),
	)
	return working, nil
}
