package lifecycle

import "github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/internal/model"

// Result is the derived scalar view of a team.
type Result struct {
	Progress int
	Status   model.Status
}

// Recompute derives progress and status from a milestone set.
// progress = round(100 * approved / total), 0 for an empty set; status is completed iff
// progress reaches 100.
func Recompute(milestones []*model.Milestone) Result {
	total := len(milestones)
	if total == 0 {
		return Result{Progress: 0, Status: model.StatusInProgress}
	}

	approved := 0
	for _, m := range milestones {
		if m.State == model.StateApproved {
			approved++
		}
	}

	// integer round-half-up; approved and total are non-negative
	progress := (200*approved + total) / (2 * total)

	status := model.StatusInProgress
	if progress >= 100 {
		status = model.StatusCompleted
	}
	return Result{Progress: progress, Status: status}
}

// Apply writes r onto the team and reports whether anything changed. The external flag is
// left alone.
func (r Result) Apply(t *model.Team) bool {
	if t.Progress == r.Progress && t.Status == r.Status {
		return false
	}
	t.Progress = r.Progress
	t.Status = r.Status
	return true
}
