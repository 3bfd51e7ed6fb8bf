package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/internal/handler"
	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/internal/model"
	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/internal/service/review"
	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/pkg/auth"
	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/pkg/rbac"
	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/pkg/trace"
)

const testSecret = "router-test-secret"

type memRepo struct {
	mu    sync.Mutex
	teams map[string]*model.Team
}

func (r *memRepo) LoadTeam(_ context.Context, teamID string) (*model.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.teams[teamID]
	if !ok {
		return nil, &model.TeamNotFoundError{TeamID: teamID}
	}
	return t.Clone(), nil
}

func (r *memRepo) SaveTeam(_ context.Context, team *model.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	team.Version++
	team.PullEvents()
	r.teams[team.ID] = team.Clone()
	return nil
}

func newTestRouter(t *testing.T, teams ...*model.Team) (*gin.Engine, *memRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := &memRepo{teams: map[string]*model.Team{}}
	for _, tm := range teams {
		repo.teams[tm.ID] = tm
	}
	processor := review.NewProcessor(repo, zap.NewNop())
	teamHandler := handler.NewTeamHandler(processor, zap.NewNop())

	r := NewRouter(teamHandler, nil, Options{
		JWTSecret: testSecret,
		Checks: map[string]ReadinessCheck{
			"db": func(context.Context) error { return nil },
		},
	}, zap.NewNop())
	return r, repo
}

func team(id string, states ...model.State) *model.Team {
	tm := &model.Team{ID: id, Status: model.StatusInProgress}
	for i, s := range states {
		tm.Append(&model.Milestone{ID: id + "-m" + string(rune('1'+i)), Title: "m", State: s})
	}
	return tm
}

func token(t *testing.T, role, teamID string) string {
	t.Helper()
	tok, err := auth.GenerateJWT("user-1", role, teamID, testSecret, time.Hour)
	require.NoError(t, err)
	return tok
}

func do(r http.Handler, method, path, tok string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthAndReadiness(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(r, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(trace.HeaderName))

	w = do(r, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReadiness_FailingCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(handler.NewTeamHandler(nil, zap.NewNop()), nil, Options{
		JWTSecret: testSecret,
		Checks: map[string]ReadinessCheck{
			"mq": func(context.Context) error { return errors.New("not connected") },
		},
	}, zap.NewNop())

	w := do(r, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "mq_not_ready")
}

func TestTraceIDEchoed(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(trace.HeaderName, "trace-abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "trace-abc", w.Header().Get(trace.HeaderName))
}

func TestAuth_MissingAndInvalidToken(t *testing.T) {
	r, _ := newTestRouter(t, team("t1"))

	w := do(r, http.MethodGet, "/teams/t1/board", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodGet, "/teams/t1/board", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRBAC_StudentCannotGrade(t *testing.T) {
	r, _ := newTestRouter(t, team("t1", model.StateInReview))

	w := do(r, http.MethodPost, "/teams/t1/submissions/grade", token(t, rbac.RoleStudent, "t1"), gin.H{
		"decisions": []gin.H{{"milestone_id": "t1-m1", "approve": true}},
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRBAC_StudentLimitedToOwnTeam(t *testing.T) {
	r, _ := newTestRouter(t, team("t1"), team("t2"))

	w := do(r, http.MethodGet, "/teams/t2/board", token(t, rbac.RoleStudent, "t1"), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(r, http.MethodGet, "/teams/t1/board", token(t, rbac.RoleStudent, "t1"), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGradeSubmissions_ReturnsSummary(t *testing.T) {
	r, repo := newTestRouter(t, team("t1", model.StateInReview, model.StateInReview, model.StateApproved, model.StateProposed))

	w := do(r, http.MethodPost, "/teams/t1/submissions/grade", token(t, rbac.RoleTeacher, ""), gin.H{
		"decisions": []gin.H{
			{"milestone_id": "t1-m1", "approve": true},
			{"milestone_id": "t1-m2", "approve": false, "comment": "missing tests"},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var summary review.Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, 1, summary.ApprovedCount)
	assert.Equal(t, 1, summary.RejectedCount)

	saved := repo.teams["t1"]
	assert.Equal(t, 50, saved.Progress)
	assert.Equal(t, "missing tests", saved.Milestones[1].TeacherComment)
}

func TestInvalidTransition_Conflict(t *testing.T) {
	r, _ := newTestRouter(t, team("t1", model.StateProposed))

	w := do(r, http.MethodPost, "/teams/t1/milestones/t1-m1/start", token(t, rbac.RoleStudent, "t1"), nil)
	require.Equal(t, http.StatusConflict, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "invalid_transition", body["code"])
	assert.Equal(t, "proposed", body["current_state"])
	assert.Equal(t, "in_progress", body["target_state"])
}

func TestNotFound(t *testing.T) {
	r, _ := newTestRouter(t, team("t1", model.StatePendingStart))

	w := do(r, http.MethodGet, "/teams/missing", token(t, rbac.RoleTeacher, ""), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodPost, "/teams/t1/milestones/nope/start", token(t, rbac.RoleStudent, "t1"), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "milestone_not_found")
}

func TestStudentLifecycleOverHTTP(t *testing.T) {
	r, _ := newTestRouter(t, team("t1"))
	student := token(t, rbac.RoleStudent, "t1")

	w := do(r, http.MethodPost, "/teams/t1/proposals", student, gin.H{
		"phase_id": "phase-1",
		"drafts":   []gin.H{{"title": "Research", "description": "read papers"}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		Milestones []model.Milestone `json:"milestones"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.Len(t, created.Milestones, 1)
	id := created.Milestones[0].ID
	assert.Equal(t, model.StateProposed, created.Milestones[0].State)

	w = do(r, http.MethodPost, "/teams/t1/proposals/review", token(t, rbac.RoleTeacher, ""), gin.H{
		"decisions": []gin.H{{"milestone_id": id, "accept": true}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(r, http.MethodPost, "/teams/t1/milestones/"+id+"/start", student, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = do(r, http.MethodPost, "/teams/t1/milestones/"+id+"/submit", student, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(r, http.MethodGet, "/teams/t1/board", student, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"state":"in_review"`)
}

func TestSetTeamFlagAndBoards(t *testing.T) {
	r, _ := newTestRouter(t, team("t1", model.StateApproved), team("t2", model.StateInProgress))
	teacher := token(t, rbac.RoleTeacher, "")

	w := do(r, http.MethodPut, "/teams/t2/flag", teacher, gin.H{"flag": "blocked"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"effective_status":"blocked"`)

	w = do(r, http.MethodGet, "/boards?team_id=t1&team_id=t2", teacher, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(r, http.MethodGet, "/boards?team_id=t1", token(t, rbac.RoleStudent, "t1"), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
