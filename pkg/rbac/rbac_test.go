package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasPermission(t *testing.T) {
	tests := []struct {
		role       string
		permission string
		want       bool
	}{
		{RoleStudent, PermissionProposeMilestones, true},
		{RoleStudent, PermissionWorkMilestones, true},
		{RoleStudent, PermissionGradeSubmissions, false},
		{RoleStudent, PermissionReadAllBoards, false},
		{RoleTeacher, PermissionGradeSubmissions, true},
		{RoleTeacher, PermissionReviewProposals, true},
		{RoleTeacher, PermissionWorkMilestones, false},
		{RoleTeacher, PermissionReplayOutbox, false},
		{RoleAdmin, PermissionReplayOutbox, true},
		{"guest", PermissionReadBoard, false},
	}
	for _, tt := range tests {
		t.Run(tt.role+" "+tt.permission, func(t *testing.T) {
			assert.Equal(t, tt.want, HasPermission(tt.role, tt.permission))
		})
	}
}

func TestCheckPermission_Error(t *testing.T) {
	err := CheckPermission("u1", RoleStudent, PermissionGradeSubmissions)

	var denied *PermissionDeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, "u1", denied.UserID)
	assert.Equal(t, PermissionGradeSubmissions, denied.Permission)

	assert.NoError(t, CheckPermission("u2", RoleTeacher, PermissionGradeSubmissions))
}

func TestCheckTeamAccess(t *testing.T) {
	assert.NoError(t, CheckTeamAccess("s1", RoleStudent, "t1", "t1"))
	assert.Error(t, CheckTeamAccess("s1", RoleStudent, "t1", "t2"))
	assert.Error(t, CheckTeamAccess("s1", RoleStudent, "", "t1"))
	assert.NoError(t, CheckTeamAccess("p1", RoleTeacher, "", "t2"))
}
