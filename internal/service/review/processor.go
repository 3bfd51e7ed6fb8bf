// Package review applies lifecycle commands to a team's milestones. Every mutating command
// runs the same pipeline: load the team, validate each requested change against a private
// copy, recompute progress once, and hand the copy to the repository as a single write.
package review

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	mqcontracts "github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/contracts/mq"
	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/internal/lifecycle"
	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/internal/model"
	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/pkg/logger"
	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/pkg/metrics"
	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/pkg/otel"
	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/pkg/trace"
)

// TeamRepository is the storage boundary. SaveTeam must persist the milestones, progress,
// status, flag and pending events of one team atomically, and fail with a PersistenceError
// wrapping model.ErrConcurrentModification when the team's Version is stale.
type TeamRepository interface {
	LoadTeam(ctx context.Context, teamID string) (*model.Team, error)
	SaveTeam(ctx context.Context, team *model.Team) error
}

// BoardCache is an optional read-through cache for board projections.
//
// Invalidate bumps a per-team generation. SetBoard only stores a board when the generation
// still equals gen, the value the reader saw before loading the team, and no entry is
// present; a board projected from a team that was saved in between is dropped.
type BoardCache interface {
	GetBoard(ctx context.Context, teamID string) (*lifecycle.Board, bool, error)
	Generation(ctx context.Context, teamID string) (int64, error)
	SetBoard(ctx context.Context, board *lifecycle.Board, gen int64) error
	Invalidate(ctx context.Context, teamID string) error
}

// Change is one requested state change inside a batch. From is the state the command is
// allowed to move the milestone out of; a milestone in any other state is rejected even when
// the graph has an edge to Target from there.
type Change struct {
	MilestoneID string
	From        model.State
	Target      model.State
	Comment     string
}

// Summary counts the accepting and declining decisions of a batch.
type Summary struct {
	ApprovedCount int `json:"approved_count"`
	RejectedCount int `json:"rejected_count"`
}

type Processor struct {
	repo   TeamRepository
	cache  BoardCache
	now    func() time.Time
	logger *zap.Logger
}

func NewProcessor(repo TeamRepository, logger *zap.Logger) *Processor {
	return &Processor{
		repo:   repo,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger,
	}
}

// WithBoardCache enables caching of GetBoard results.
func (p *Processor) WithBoardCache(cache BoardCache) *Processor {
	p.cache = cache
	return p
}

// WithClock overrides the time source.
func (p *Processor) WithClock(now func() time.Time) *Processor {
	p.now = now
	return p
}

// Apply runs a batch of changes against one team. Either every change is valid and the
// team is saved once, or the first failing entry is returned and nothing is written.
func (p *Processor) Apply(ctx context.Context, teamID string, changes []Change) (*model.Team, Summary, error) {
	return p.applyWith(ctx, teamID, changes, nil)
}

// applyWith is Apply with a hook that may record extra events once every change validated.
func (p *Processor) applyWith(ctx context.Context, teamID string, changes []Change, onValid func(*model.Team, Summary)) (_ *model.Team, _ Summary, err error) {
	ctx, end := startCommandSpan(ctx, "review.apply", teamID, len(changes))
	defer func() { end(err) }()

	log := logger.WithTrace(ctx, p.logger).With(zap.String("team_id", teamID))

	if teamID == "" {
		return nil, Summary{}, &model.ValidationError{Field: "team_id", Message: "must not be empty"}
	}
	if len(changes) == 0 {
		return nil, Summary{}, &model.ValidationError{Field: "decisions", Message: "must not be empty"}
	}

	team, err := p.load(ctx, teamID)
	if err != nil {
		return nil, Summary{}, err
	}

	working := team.Clone()
	now := p.now()
	traceID := trace.FromContext(ctx)

	var summary Summary
	type applied struct{ from, to model.State }
	moves := make([]applied, 0, len(changes))

	for _, ch := range changes {
		idx := working.Find(ch.MilestoneID)
		if idx < 0 {
			log.Warn("Batch rejected: milestone not found", zap.String("milestone_id", ch.MilestoneID))
			return nil, Summary{}, &model.MilestoneNotFoundError{TeamID: teamID, MilestoneID: ch.MilestoneID}
		}

		m := working.Milestones[idx]
		if m.State != ch.From {
			log.Warn("Batch rejected: milestone not at this gate",
				zap.String("milestone_id", m.ID),
				zap.String("state", string(m.State)),
				zap.String("expected", string(ch.From)),
				zap.String("to", string(ch.Target)),
			)
			return nil, Summary{}, &model.InvalidTransitionError{MilestoneID: m.ID, From: m.State, To: ch.Target}
		}
		if err := lifecycle.ValidateTransition(m.ID, m.State, ch.Target); err != nil {
			log.Warn("Batch rejected: invalid transition",
				zap.String("milestone_id", m.ID),
				zap.String("from", string(m.State)),
				zap.String("to", string(ch.Target)),
			)
			return nil, Summary{}, err
		}

		from := m.State
		m.State = ch.Target
		m.UpdatedAt = now
		// Every teacher decision replaces the note; student steps keep it visible.
		if tr, _ := lifecycle.Lookup(from, ch.Target); tr.Actor == lifecycle.ActorTeacher {
			m.TeacherComment = ch.Comment
		}
		moves = append(moves, applied{from: from, to: ch.Target})

		switch ch.Target {
		case model.StatePendingStart, model.StateApproved:
			summary.ApprovedCount++
		case model.StateRejected:
			summary.RejectedCount++
		}

		working.Record(mqcontracts.RoutingMilestoneTransitioned, mqcontracts.MilestoneTransitionedPayload{
			TeamID:      teamID,
			MilestoneID: m.ID,
			From:        string(from),
			To:          string(ch.Target),
			Comment:     ch.Comment,
			At:          now,
			TraceID:     traceID,
		})
	}

	if onValid != nil {
		onValid(working, summary)
	}
	working.UpdatedAt = now
	p.recompute(ctx, working)

	if err := p.save(ctx, working); err != nil {
		log.Error("Failed to save team after batch", zap.Int("batch_size", len(changes)), zap.Error(err))
		return nil, Summary{}, err
	}

	for _, mv := range moves {
		metrics.IncrementTransition(string(mv.from), string(mv.to))
	}

	log.Info("Batch applied",
		zap.Int("batch_size", len(changes)),
		zap.Int("approved_count", summary.ApprovedCount),
		zap.Int("rejected_count", summary.RejectedCount),
		zap.Int("progress", working.Progress),
		zap.String("status", string(working.Status)),
	)
	return working, summary, nil
}

// startCommandSpan opens a span for one command. The returned func ends it and records err.
func startCommandSpan(ctx context.Context, name, teamID string, size int) (context.Context, func(error)) {
	ctx, span := otel.StartSpan(ctx, name)
	span.SetAttributes(
		attribute.String("team.id", teamID),
		attribute.Int("command.size", size),
	)
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

// recompute derives progress once for the batch and records a progress event when it moved.
func (p *Processor) recompute(ctx context.Context, team *model.Team) bool {
	if !lifecycle.Recompute(team.Milestones).Apply(team) {
		return false
	}
	team.Record(mqcontracts.RoutingTeamProgressChanged, progressPayload(ctx, team))
	return true
}

func progressPayload(ctx context.Context, team *model.Team) mqcontracts.TeamProgressChangedPayload {
	return mqcontracts.TeamProgressChangedPayload{
		TeamID:          team.ID,
		Progress:        team.Progress,
		Status:          string(team.Status),
		EffectiveStatus: team.EffectiveStatus(),
		TraceID:         trace.FromContext(ctx),
	}
}

func (p *Processor) load(ctx context.Context, teamID string) (*model.Team, error) {
	team, err := p.repo.LoadTeam(ctx, teamID)
	if err != nil {
		if model.IsNotFound(err) || model.IsPersistence(err) {
			return nil, err
		}
		return nil, &model.PersistenceError{Op: "load team", Err: err}
	}
	return team, nil
}

func (p *Processor) save(ctx context.Context, team *model.Team) error {
	err := p.repo.SaveTeam(ctx, team)
	if err != nil {
		if model.IsNotFound(err) || model.IsPersistence(err) {
			return err
		}
		return &model.PersistenceError{Op: "save team", Err: err}
	}

	metrics.SetTeamProgress(team.ID, team.Progress)
	if p.cache != nil {
		if cerr := p.cache.Invalidate(ctx, team.ID); cerr != nil {
			p.logger.Warn("Failed to invalidate board cache",
				zap.String("team_id", team.ID),
				zap.Error(cerr),
			)
		}
	}
	return nil
}
