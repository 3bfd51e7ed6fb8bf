package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseState(t *testing.T) {
	for _, s := range States {
		got, err := ParseState(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	got, err := ParseState("  In_Review ")
	require.NoError(t, err)
	assert.Equal(t, StateInReview, got)

	_, err = ParseState("done")
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestNewMilestone(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		teamID  string
		phaseID string
		title   string
		state   State
		field   string
	}{
		{name: "empty title", teamID: "t1", phaseID: "p1", title: "   ", state: StateProposed, field: "title"},
		{name: "empty phase", teamID: "t1", phaseID: "", title: "Survey", state: StateProposed, field: "phase_id"},
		{name: "empty team", teamID: "", phaseID: "p1", title: "Survey", state: StateProposed, field: "team_id"},
		{name: "bad state", teamID: "t1", phaseID: "p1", title: "Survey", state: State("done"), field: "state"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMilestone(tt.teamID, tt.phaseID, tt.title, "", tt.state, now)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	m, err := NewMilestone("t1", " p1 ", " Survey ", " interview users ", StateProposed, now)
	require.NoError(t, err)
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, "p1", m.PhaseID)
	assert.Equal(t, "Survey", m.Title)
	assert.Equal(t, "interview users", m.Description)
	assert.Equal(t, StateProposed, m.State)
	assert.Equal(t, now, m.CreatedAt)
}

func TestTeamClone_IsDeep(t *testing.T) {
	team := &Team{ID: "t1"}
	team.Append(&Milestone{ID: "a", State: StateInReview})
	team.Record("x", nil)

	cp := team.Clone()
	cp.Milestones[0].State = StateApproved
	cp.Progress = 100

	assert.Equal(t, StateInReview, team.Milestones[0].State)
	assert.Equal(t, 0, team.Progress)
	assert.Empty(t, cp.Events())
	assert.Len(t, team.Events(), 1)
}

func TestTeamAppendAndFind(t *testing.T) {
	team := &Team{ID: "t1"}
	team.Append(&Milestone{ID: "a"})
	team.Append(&Milestone{ID: "b"})

	assert.Equal(t, 1, team.Find("b"))
	assert.Equal(t, -1, team.Find("zzz"))
	assert.Equal(t, "t1", team.Milestones[1].TeamID)
	assert.Equal(t, 1, team.Milestones[1].Position)
}

func TestEffectiveStatus(t *testing.T) {
	tests := []struct {
		status Status
		flag   Flag
		want   string
	}{
		{StatusInProgress, FlagNone, "in_progress"},
		{StatusInProgress, FlagBlocked, "blocked"},
		{StatusInProgress, FlagAlmostDone, "almost_done"},
		{StatusCompleted, FlagBlocked, "completed"},
	}
	for _, tt := range tests {
		team := &Team{Status: tt.status, Flag: tt.flag}
		assert.Equal(t, tt.want, team.EffectiveStatus())
	}
}

func TestParseFlag(t *testing.T) {
	f, err := ParseFlag("BLOCKED")
	require.NoError(t, err)
	assert.Equal(t, FlagBlocked, f)

	f, err = ParseFlag("")
	require.NoError(t, err)
	assert.Equal(t, FlagNone, f)

	_, err = ParseFlag("on_fire")
	assert.True(t, IsValidation(err))
}

func TestPullEvents_Clears(t *testing.T) {
	team := &Team{}
	team.Record("a", 1)
	team.Record("b", 2)

	events := team.PullEvents()
	require.Len(t, events, 2)
	assert.Equal(t, "a", events[0].RoutingKey)
	assert.Empty(t, team.PullEvents())
}
