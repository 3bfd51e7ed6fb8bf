package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/internal/model"
)

func TestValidateTransition_Closure(t *testing.T) {
	legal := map[[2]model.State]bool{
		{model.StateProposed, model.StatePendingStart}:   true,
		{model.StateProposed, model.StateRejected}:       true,
		{model.StatePendingStart, model.StateInProgress}: true,
		{model.StateInProgress, model.StateInReview}:     true,
		{model.StateInReview, model.StateApproved}:       true,
		{model.StateInReview, model.StateRejected}:       true,
		{model.StateRejected, model.StateInProgress}:     true,
	}

	for _, from := range model.States {
		for _, to := range model.States {
			err := ValidateTransition("m1", from, to)
			if legal[[2]model.State{from, to}] {
				assert.NoError(t, err, "%s -> %s", from, to)
				continue
			}

			var terr *model.InvalidTransitionError
			require.ErrorAs(t, err, &terr, "%s -> %s", from, to)
			assert.Equal(t, "m1", terr.MilestoneID)
			assert.Equal(t, from, terr.From)
			assert.Equal(t, to, terr.To)
		}
	}
	assert.Len(t, Transitions, len(legal))
}

func TestIdentityTransitionsRejected(t *testing.T) {
	for _, s := range model.States {
		assert.False(t, CanTransition(s, s), string(s))
	}
}

func TestApprovedIsOnlyTerminal(t *testing.T) {
	for _, s := range model.States {
		assert.Equal(t, s == model.StateApproved, IsTerminal(s), string(s))
	}
}

func TestLookup_Actor(t *testing.T) {
	tr, ok := Lookup(model.StateInReview, model.StateApproved)
	require.True(t, ok)
	assert.Equal(t, ActorTeacher, tr.Actor)

	tr, ok = Lookup(model.StateRejected, model.StateInProgress)
	require.True(t, ok)
	assert.Equal(t, ActorStudent, tr.Actor)
}

func milestones(states ...model.State) []*model.Milestone {
	out := make([]*model.Milestone, len(states))
	for i, s := range states {
		out[i] = &model.Milestone{ID: string(rune('a' + i)), State: s}
	}
	return out
}

func TestRecompute(t *testing.T) {
	A, R, P, I := model.StateApproved, model.StateInReview, model.StateProposed, model.StateInProgress

	tests := []struct {
		name     string
		states   []model.State
		progress int
		status   model.Status
	}{
		{"empty", nil, 0, model.StatusInProgress},
		{"half approved", []model.State{A, A, R, P}, 50, model.StatusInProgress},
		{"one third", []model.State{A, I, I}, 33, model.StatusInProgress},
		{"two thirds rounds up", []model.State{A, A, I}, 67, model.StatusInProgress},
		{"one eighth rounds half up", []model.State{A, I, I, I, I, I, I, I}, 13, model.StatusInProgress},
		{"none approved", []model.State{P, I}, 0, model.StatusInProgress},
		{"all approved", []model.State{A, A, A}, 100, model.StatusCompleted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Recompute(milestones(tt.states...))
			assert.Equal(t, tt.progress, got.Progress)
			assert.Equal(t, tt.status, got.Status)
		})
	}
}

func TestRecompute_FormulaForAllSmallTeams(t *testing.T) {
	for n := 1; n <= 12; n++ {
		for k := 0; k <= n; k++ {
			states := make([]model.State, n)
			for i := range states {
				states[i] = model.StateInProgress
				if i < k {
					states[i] = model.StateApproved
				}
			}
			want := int(float64(100*k)/float64(n) + 0.5)
			assert.Equal(t, want, Recompute(milestones(states...)).Progress, "k=%d n=%d", k, n)
		}
	}
}

func TestRecompute_Idempotent(t *testing.T) {
	set := milestones(model.StateApproved, model.StateRejected, model.StateInReview)
	first := Recompute(set)
	second := Recompute(set)
	assert.Equal(t, first, second)

	team := &model.Team{Milestones: set}
	assert.True(t, first.Apply(team))
	assert.False(t, second.Apply(team), "applying an unchanged result must not report a change")
}

func TestResultApply_KeepsFlag(t *testing.T) {
	team := &model.Team{Flag: model.FlagBlocked, Milestones: milestones(model.StateApproved)}
	Recompute(team.Milestones).Apply(team)

	assert.Equal(t, model.FlagBlocked, team.Flag)
	assert.Equal(t, model.StatusCompleted, team.Status)
	assert.Equal(t, 100, team.Progress)
}

func TestProject_Buckets(t *testing.T) {
	team := &model.Team{ID: "t1", Milestones: milestones(
		model.StateProposed,
		model.StatePendingStart,
		model.StateInProgress,
		model.StateInReview,
		model.StateRejected,
		model.StateApproved,
	)}

	b := Project(team)

	ids := func(ms []*model.Milestone) []string {
		out := []string{}
		for _, m := range ms {
			out = append(out, m.ID)
		}
		return out
	}
	assert.Equal(t, "t1", b.TeamID)
	assert.Equal(t, []string{"a", "b"}, ids(b.Pending))
	assert.Equal(t, []string{"c", "d", "e"}, ids(b.Active))
	assert.Equal(t, []string{"f"}, ids(b.Completed))
}

func TestProject_EmptyTeam(t *testing.T) {
	b := Project(&model.Team{ID: "t1"})
	assert.NotNil(t, b.Pending)
	assert.Empty(t, b.Pending)
	assert.Empty(t, b.Active)
	assert.Empty(t, b.Completed)
	assert.Equal(t, 0, b.Progress)
}

func TestProject_IsPure(t *testing.T) {
	team := &model.Team{ID: "t1", Milestones: milestones(model.StateInReview, model.StateProposed)}

	for i := 0; i < 3; i++ {
		b := Project(team)
		b.Active[0].State = model.StateApproved
	}

	assert.Equal(t, model.StateInReview, team.Milestones[0].State)
	assert.Equal(t, model.StateProposed, team.Milestones[1].State)
}
