package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/internal/model"
	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/pkg/otel"
	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/pkg/outbox"
)

const aggregateTeam = "team"

// TeamRepository stores teams and their milestones in PostgreSQL. Pending team events are
// written to the outbox in the same transaction.
type TeamRepository struct {
	db     *pgxpool.Pool
	outbox *outbox.Repository
	logger *zap.Logger
}

func NewTeamRepository(db *pgxpool.Pool, outboxRepo *outbox.Repository, logger *zap.Logger) *TeamRepository {
	return &TeamRepository{db: db, outbox: outboxRepo, logger: logger}
}

func (r *TeamRepository) LoadTeam(ctx context.Context, teamID string) (*model.Team, error) {
	var team model.Team
	var status, flag string
	err := otel.DB(ctx, "select", "teams", func(ctx context.Context) error {
		return r.db.QueryRow(ctx, `
			SELECT id, name, progress, status, flag, version, updated_at
			FROM teams
			WHERE id = $1
		`, teamID).Scan(
			&team.ID,
			&team.Name,
			&team.Progress,
			&status,
			&flag,
			&team.Version,
			&team.UpdatedAt,
		)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &model.TeamNotFoundError{TeamID: teamID}
		}
		return nil, &model.PersistenceError{Op: "load team", Err: err}
	}
	team.Status = model.Status(status)
	team.Flag = model.Flag(flag)

	err = otel.DB(ctx, "select", "milestones", func(ctx context.Context) error {
		rows, err := r.db.Query(ctx, `
			SELECT id, team_id, phase_id, title, description, state, teacher_comment,
			       position, created_at, updated_at
			FROM milestones
			WHERE team_id = $1
			ORDER BY position ASC
		`, teamID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var m model.Milestone
			var state string
			if err := rows.Scan(
				&m.ID,
				&m.TeamID,
				&m.PhaseID,
				&m.Title,
				&m.Description,
				&state,
				&m.TeacherComment,
				&m.Position,
				&m.CreatedAt,
				&m.UpdatedAt,
			); err != nil {
				return err
			}
			if m.State, err = model.ParseState(state); err != nil {
				return fmt.Errorf("milestone %s: %w", m.ID, err)
			}
			team.Milestones = append(team.Milestones, &m)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, &model.PersistenceError{Op: "load milestones", Err: err}
	}

	return &team, nil
}

// SaveTeam writes the team row, upserts every milestone and queues the recorded events in
// one transaction. The write only succeeds if the stored version still equals team.Version;
// on success team.Version is advanced and the events are cleared.
func (r *TeamRepository) SaveTeam(ctx context.Context, team *model.Team) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return &model.PersistenceError{Op: "begin tx", Err: err}
	}
	defer tx.Rollback(ctx)

	err = otel.DB(ctx, "update", "teams", func(ctx context.Context) error {
		tag, err := tx.Exec(ctx, `
			UPDATE teams
			SET progress = $3, status = $4, flag = $5, version = version + 1, updated_at = $6
			WHERE id = $1 AND version = $2
		`, team.ID, team.Version, team.Progress, string(team.Status), string(team.Flag), team.UpdatedAt)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return r.missingOrStale(ctx, tx, team.ID)
		}
		return nil
	})
	if err != nil {
		var nf *model.TeamNotFoundError
		if errors.As(err, &nf) {
			return err
		}
		return &model.PersistenceError{Op: "update team", Err: err}
	}

	err = otel.DB(ctx, "upsert", "milestones", func(ctx context.Context) error {
		batch := &pgx.Batch{}
		for _, m := range team.Milestones {
			batch.Queue(`
				INSERT INTO milestones (id, team_id, phase_id, title, description, state,
				                        teacher_comment, position, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
				ON CONFLICT (id) DO UPDATE
				SET title = EXCLUDED.title,
				    description = EXCLUDED.description,
				    state = EXCLUDED.state,
				    teacher_comment = EXCLUDED.teacher_comment,
				    position = EXCLUDED.position,
				    updated_at = EXCLUDED.updated_at
				WHERE milestones.team_id = EXCLUDED.team_id
			`, m.ID, team.ID, m.PhaseID, m.Title, m.Description, string(m.State),
				m.TeacherComment, m.Position, m.CreatedAt, m.UpdatedAt)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return &model.PersistenceError{Op: "upsert milestones", Err: err}
	}

	events := team.Events()
	if len(events) > 0 {
		msgs := make([]outbox.Message, len(events))
		for i, e := range events {
			msgs[i] = outbox.Message{RoutingKey: e.RoutingKey, Payload: e.Payload}
		}
		err = otel.DB(ctx, "insert", "outbox_events", func(ctx context.Context) error {
			return r.outbox.Enqueue(ctx, tx, aggregateTeam, team.ID, msgs...)
		})
		if err != nil {
			return &model.PersistenceError{Op: "queue events", Err: err}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return &model.PersistenceError{Op: "commit", Err: err}
	}

	team.Version++
	team.PullEvents()

	r.logger.Debug("Team saved",
		zap.String("team_id", team.ID),
		zap.Int64("version", team.Version),
		zap.Int("milestones", len(team.Milestones)),
		zap.Int("events", len(events)),
	)
	return nil
}

// missingOrStale tells a missing team apart from a lost version race.
func (r *TeamRepository) missingOrStale(ctx context.Context, tx pgx.Tx, teamID string) error {
	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM teams WHERE id = $1)`, teamID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return &model.TeamNotFoundError{TeamID: teamID}
	}
	return model.ErrConcurrentModification
}

// Ping backs the /readyz db check.
func (r *TeamRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}
