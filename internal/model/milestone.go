package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// State is the lifecycle position of a milestone.
type State string

const (
	StateProposed     State = "proposed"
	StatePendingStart State = "pending_start"
	StateInProgress   State = "in_progress"
	StateInReview     State = "in_review"
	StateApproved     State = "approved"
	StateRejected     State = "rejected"
)

// States lists every state in lifecycle order.
var States = []State{
	StateProposed,
	StatePendingStart,
	StateInProgress,
	StateInReview,
	StateApproved,
	StateRejected,
}

func (s State) Valid() bool {
	for _, known := range States {
		if s == known {
			return true
		}
	}
	return false
}

func (s State) String() string { return string(s) }

// ParseState converts a stored or wire value into a State.
func ParseState(raw string) (State, error) {
	s := State(strings.TrimSpace(strings.ToLower(raw)))
	if !s.Valid() {
		return "", &ValidationError{Field: "state", Message: "unknown milestone state " + `"` + raw + `"`}
	}
	return s, nil
}

type Milestone struct {
	ID             string    `json:"id"`
	TeamID         string    `json:"team_id"`
	PhaseID        string    `json:"phase_id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	State          State     `json:"state"`
	TeacherComment string    `json:"teacher_comment,omitempty"`
	Position       int       `json:"position"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewMilestone validates its input and returns a milestone with a fresh id.
// Callers outside this package obtain milestones only through the review processor.
func NewMilestone(teamID, phaseID, title, description string, state State, now time.Time) (*Milestone, error) {
	title = strings.TrimSpace(title)
	phaseID = strings.TrimSpace(phaseID)

	if strings.TrimSpace(teamID) == "" {
		return nil, &ValidationError{Field: "team_id", Message: "must not be empty"}
	}
	if phaseID == "" {
		return nil, &ValidationError{Field: "phase_id", Message: "must not be empty"}
	}
	if title == "" {
		return nil, &ValidationError{Field: "title", Message: "must not be empty"}
	}
	if !state.Valid() {
		return nil, &ValidationError{Field: "state", Message: "unknown milestone state " + `"` + string(state) + `"`}
	}

	return &Milestone{
		ID:          uuid.NewString(),
		TeamID:      teamID,
		PhaseID:     phaseID,
		Title:       title,
		Description: strings.TrimSpace(description),
		State:       state,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}
