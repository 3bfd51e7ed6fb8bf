// Package lifecycle holds the pure rules of the milestone workflow: which state changes are
// legal, how a team's progress is derived, and how milestones are bucketed on a board.
// Nothing here performs I/O or mutates its inputs.
package lifecycle

import "github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/internal/model"

// Actor is the role expected to trigger a transition.
type Actor string

const (
	ActorTeacher Actor = "teacher"
	ActorStudent Actor = "student"
)

// Transition is one edge of the workflow graph.
type Transition struct {
	From    model.State
	To      model.State
	Trigger string
	Actor   Actor
}

// Transitions is the complete legal graph. Proposal review and completion review are
// separate teacher gates.
var Transitions = []Transition{
	{From: model.StateProposed, To: model.StatePendingStart, Trigger: "proposal accepted", Actor: ActorTeacher},
	{From: model.StateProposed, To: model.StateRejected, Trigger: "proposal declined", Actor: ActorTeacher},
	{From: model.StatePendingStart, To: model.StateInProgress, Trigger: "work started", Actor: ActorStudent},
	{From: model.StateInProgress, To: model.StateInReview, Trigger: "work submitted", Actor: ActorStudent},
	{From: model.StateInReview, To: model.StateApproved, Trigger: "submission accepted", Actor: ActorTeacher},
	{From: model.StateInReview, To: model.StateRejected, Trigger: "submission declined", Actor: ActorTeacher},
	{From: model.StateRejected, To: model.StateInProgress, Trigger: "resubmission after correction", Actor: ActorStudent},
}

var graph = func() map[model.State]map[model.State]Transition {
	g := make(map[model.State]map[model.State]Transition)
	for _, t := range Transitions {
		if g[t.From] == nil {
			g[t.From] = make(map[model.State]Transition)
		}
		g[t.From][t.To] = t
	}
	return g
}()

// Lookup returns the edge from -> to, if it exists.
func Lookup(from, to model.State) (Transition, bool) {
	t, ok := graph[from][to]
	return t, ok
}

func CanTransition(from, to model.State) bool {
	_, ok := Lookup(from, to)
	return ok
}

// ValidateTransition accepts only edges of the graph. Identity moves are rejected too, so a
// double-submitted batch surfaces as an error instead of a silent success.
func ValidateTransition(milestoneID string, from, to model.State) error {
	if !CanTransition(from, to) {
		return &model.InvalidTransitionError{MilestoneID: milestoneID, From: from, To: to}
	}
	return nil
}

// IsTerminal reports whether no edge leaves s.
func IsTerminal(s model.State) bool {
	return len(graph[s]) == 0
}
