package model

import (
	"strings"
	"time"
)

// Status is the progress label derived from a team's milestones.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Flag is a label owned by actors outside the lifecycle engine.
// The engine never writes it while recomputing progress.
type Flag string

const (
	FlagNone       Flag = ""
	FlagBlocked    Flag = "blocked"
	FlagAlmostDone Flag = "almost_done"
)

func ParseFlag(raw string) (Flag, error) {
	switch f := Flag(strings.TrimSpace(strings.ToLower(raw))); f {
	case FlagNone, FlagBlocked, FlagAlmostDone:
		return f, nil
	default:
		return "", &ValidationError{Field: "flag", Message: "must be one of blocked, almost_done or empty"}
	}
}

// Event is a domain event waiting to be written to the outbox with the team.
type Event struct {
	RoutingKey string
	Payload    interface{}
}

type Team struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Milestones []*Milestone `json:"milestones"`
	Progress   int          `json:"progress"`
	Status     Status       `json:"status"`
	Flag       Flag         `json:"flag,omitempty"`
	// Version is the optimistic concurrency token checked by SaveTeam.
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`

	events []Event
}

// EffectiveStatus is what dashboards display: completion wins, then the external flag.
func (t *Team) EffectiveStatus() string {
	if t.Status == StatusCompleted {
		return string(StatusCompleted)
	}
	if t.Flag != FlagNone {
		return string(t.Flag)
	}
	return string(StatusInProgress)
}

// Find returns the index of the milestone with the given id, or -1.
func (t *Team) Find(milestoneID string) int {
	for i, m := range t.Milestones {
		if m.ID == milestoneID {
			return i
		}
	}
	return -1
}

// Append adds a milestone at the end of the team's ordering.
func (t *Team) Append(m *Milestone) {
	m.TeamID = t.ID
	m.Position = len(t.Milestones)
	t.Milestones = append(t.Milestones, m)
}

// Clone deep-copies the team so a batch can be applied without touching the original.
// Pending events are not carried over.
func (t *Team) Clone() *Team {
	cp := *t
	cp.events = nil
	cp.Milestones = make([]*Milestone, len(t.Milestones))
	for i, m := range t.Milestones {
		mc := *m
		cp.Milestones[i] = &mc
	}
	return &cp
}

func (t *Team) Record(routingKey string, payload interface{}) {
	t.events = append(t.events, Event{RoutingKey: routingKey, Payload: payload})
}

// PullEvents returns and clears the recorded events.
func (t *Team) PullEvents() []Event {
	events := t.events
	t.events = nil
	return events
}

// Events returns the recorded events without clearing them.
func (t *Team) Events() []Event {
	return t.events
}
