package rbac

import "fmt"

const (
	PermissionProposeMilestones = "milestone:propose"
	PermissionAssignMilestones  = "milestone:assign"
	PermissionReviewProposals   = "milestone:review_proposals"
	PermissionWorkMilestones    = "milestone:work"
	PermissionGradeSubmissions  = "milestone:grade"
	PermissionReadBoard         = "board:read"
	PermissionReadAllBoards     = "board:read_all"
	PermissionSetTeamFlag       = "team:set_flag"
	PermissionReplayOutbox      = "outbox:replay"
)

const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

var rolePermissions = map[string][]string{
	RoleStudent: {
		PermissionProposeMilestones,
		PermissionWorkMilestones,
		PermissionReadBoard,
	},
	RoleTeacher: {
		PermissionAssignMilestones,
		PermissionReviewProposals,
		PermissionGradeSubmissions,
		PermissionReadBoard,
		PermissionReadAllBoards,
		PermissionSetTeamFlag,
	},
	RoleAdmin: {
		PermissionProposeMilestones,
		PermissionAssignMilestones,
		PermissionReviewProposals,
		PermissionWorkMilestones,
		PermissionGradeSubmissions,
		PermissionReadBoard,
		PermissionReadAllBoards,
		PermissionSetTeamFlag,
		PermissionReplayOutbox,
	},
}

func IsKnownRole(role string) bool {
	_, ok := rolePermissions[role]
	return ok
}

func HasPermission(role, permission string) bool {
	for _, p := range rolePermissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}

// CheckPermission is HasPermission returning a PermissionDeniedError.
func CheckPermission(userID, role, permission string) error {
	if !HasPermission(role, permission) {
		return &PermissionDeniedError{UserID: userID, Role: role, Permission: permission}
	}
	return nil
}

// CheckTeamAccess restricts students to the team named in their token. Teachers and
// admins may act on any team.
func CheckTeamAccess(userID, role, ownTeamID, teamID string) error {
	if role != RoleStudent {
		return nil
	}
	if ownTeamID == "" || ownTeamID != teamID {
		return &TeamAccessDeniedError{UserID: userID, TeamID: teamID}
	}
	return nil
}

type PermissionDeniedError struct {
	UserID     string
	Role       string
	Permission string
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("role %q lacks permission %s", e.Role, e.Permission)
}

type TeamAccessDeniedError struct {
	UserID string
	TeamID string
}

func (e *TeamAccessDeniedError) Error() string {
	return fmt.Sprintf("user %q is not a member of team %q", e.UserID, e.TeamID)
}
