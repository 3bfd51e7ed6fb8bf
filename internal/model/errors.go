package model

import (
	"errors"
	"fmt"
)

// ErrConcurrentModification is wrapped in a PersistenceError when a save loses the
// optimistic version race against another writer of the same team.
var ErrConcurrentModification = errors.New("team was modified concurrently")

// ValidationError reports malformed caller input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Message)
}

type TeamNotFoundError struct {
	TeamID string
}

func (e *TeamNotFoundError) Error() string {
	return fmt.Sprintf("team %q not found", e.TeamID)
}

type MilestoneNotFoundError struct {
	TeamID      string
	MilestoneID string
}

func (e *MilestoneNotFoundError) Error() string {
	return fmt.Sprintf("milestone %q not found in team %q", e.MilestoneID, e.TeamID)
}

// InvalidTransitionError carries the milestone's current state so a stale client can reconcile.
type InvalidTransitionError struct {
	MilestoneID string
	From        State
	To          State
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("milestone %q cannot move from %s to %s", e.MilestoneID, e.From, e.To)
}

// PersistenceError wraps any failure coming from the storage boundary.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsNotFound reports whether err names a missing team or milestone.
func IsNotFound(err error) bool {
	var team *TeamNotFoundError
	var milestone *MilestoneNotFoundError
	return errors.As(err, &team) || errors.As(err, &milestone)
}

func IsInvalidTransition(err error) bool {
	var target *InvalidTransitionError
	return errors.As(err, &target)
}

func IsPersistence(err error) bool {
	var target *PersistenceError
	return errors.As(err, &target)
}

func IsConcurrentModification(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}
