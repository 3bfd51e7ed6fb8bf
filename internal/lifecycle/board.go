package lifecycle

import "github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/internal/model"

// Column is a board bucket.
type Column string

const (
	ColumnPending   Column = "pending"
	ColumnActive    Column = "active"
	ColumnCompleted Column = "completed"
)

// ColumnOf maps a state to its board column. A rejected milestone is actionable again, so
// it sits with active work.
func ColumnOf(s model.State) Column {
	switch s {
	case model.StateProposed, model.StatePendingStart:
		return ColumnPending
	case model.StateApproved:
		return ColumnCompleted
	default:
		return ColumnActive
	}
}

// Board is the kanban projection shared by the student board and the teacher global board.
type Board struct {
	TeamID    string             `json:"team_id"`
	Version   int64              `json:"version"`
	Progress  int                `json:"progress"`
	Status    string             `json:"status"`
	Pending   []*model.Milestone `json:"pending"`
	Active    []*model.Milestone `json:"active"`
	Completed []*model.Milestone `json:"completed"`
}

// Project buckets the team's milestones in team order. The returned board holds copies, so
// callers cannot reach back into the team through it.
func Project(t *model.Team) Board {
	b := Board{
		TeamID:    t.ID,
		Version:   t.Version,
		Progress:  t.Progress,
		Status:    t.EffectiveStatus(),
		Pending:   []*model.Milestone{},
		Active:    []*model.Milestone{},
		Completed: []*model.Milestone{},
	}

	for _, m := range t.Milestones {
		cp := *m
		switch ColumnOf(m.State) {
		case ColumnPending:
			b.Pending = append(b.Pending, &cp)
		case ColumnCompleted:
			b.Completed = append(b.Completed, &cp)
		default:
			b.Active = append(b.Active, &cp)
		}
	}
	return b
}
