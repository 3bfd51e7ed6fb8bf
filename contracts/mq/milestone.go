package mq

import "time"

// Routing keys published by the lifecycle service through the outbox.
const (
	RoutingMilestonesProposed    = "milestones.proposed"
	RoutingMilestoneTransitioned = "milestone.transitioned"
	RoutingMilestonesReviewed    = "milestones.reviewed"
	RoutingTeamProgressChanged   = "team.progress.changed"
)

// Routing keys consumed by the worker.
const (
	RoutingDraftsGenerated = "milestone.drafts.generated"
	RoutingTeamFlagChanged = "team.flag.changed"
)

// DraftItem is one assistant-authored milestone draft.
type DraftItem struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// DraftsGeneratedPayload is emitted by the task-generation assistant.
// RequestID makes redelivery idempotent.
type DraftsGeneratedPayload struct {
	RequestID string      `json:"request_id"`
	TeamID    string      `json:"team_id"`
	PhaseID   string      `json:"phase_id"`
	Drafts    []DraftItem `json:"drafts"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// TeamFlagChangedPayload sets or clears the externally owned team label.
type TeamFlagChangedPayload struct {
	TeamID    string `json:"team_id"`
	Flag      string `json:"flag"`
	ChangedBy string `json:"changed_by"`
	TraceID   string `json:"trace_id,omitempty"`
}

type MilestonesProposedPayload struct {
	TeamID       string   `json:"team_id"`
	PhaseID      string   `json:"phase_id"`
	MilestoneIDs []string `json:"milestone_ids"`
	State        string   `json:"state"`
	TraceID      string   `json:"trace_id,omitempty"`
}

type MilestoneTransitionedPayload struct {
	TeamID      string    `json:"team_id"`
	MilestoneID string    `json:"milestone_id"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	Comment     string    `json:"comment,omitempty"`
	At          time.Time `json:"at"`
	TraceID     string    `json:"trace_id,omitempty"`
}

// MilestonesReviewedPayload summarizes a teacher batch for notification consumers.
type MilestonesReviewedPayload struct {
	TeamID        string `json:"team_id"`
	Kind          string `json:"kind"` // proposal / completion
	ApprovedCount int    `json:"approved_count"`
	RejectedCount int    `json:"rejected_count"`
	TraceID       string `json:"trace_id,omitempty"`
}

type TeamProgressChangedPayload struct {
	TeamID          string `json:"team_id"`
	Progress        int    `json:"progress"`
	Status          string `json:"status"`
	EffectiveStatus string `json:"effective_status"`
	TraceID         string `json:"trace_id,omitempty"`
}
