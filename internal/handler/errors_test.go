package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/internal/model"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", &model.ValidationError{Field: "title", Message: "must not be empty"}, http.StatusBadRequest, "validation_error"},
		{"wrapped validation", fmt.Errorf("draft 1: %w", &model.ValidationError{Field: "title"}), http.StatusBadRequest, "validation_error"},
		{"team not found", &model.TeamNotFoundError{TeamID: "t1"}, http.StatusNotFound, "team_not_found"},
		{"milestone not found", &model.MilestoneNotFoundError{TeamID: "t1", MilestoneID: "m1"}, http.StatusNotFound, "milestone_not_found"},
		{"invalid transition", &model.InvalidTransitionError{MilestoneID: "m1", From: model.StateProposed, To: model.StateApproved}, http.StatusConflict, "invalid_transition"},
		{"concurrent", &model.PersistenceError{Op: "save team", Err: model.ErrConcurrentModification}, http.StatusConflict, "concurrent_modification"},
		{"persistence", &model.PersistenceError{Op: "load team", Err: errors.New("conn reset")}, http.StatusInternalServerError, "internal_error"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := StatusFor(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, body.Code)
		})
	}
}

func TestStatusFor_InvalidTransitionCarriesStates(t *testing.T) {
	_, body := StatusFor(&model.InvalidTransitionError{MilestoneID: "m1", From: model.StateInProgress, To: model.StateApproved})

	assert.Equal(t, "m1", body.MilestoneID)
	assert.Equal(t, "in_progress", body.CurrentState)
	assert.Equal(t, "approved", body.TargetState)
}

func TestStatusFor_InternalErrorHidesDetails(t *testing.T) {
	_, body := StatusFor(&model.PersistenceError{Op: "load team", Err: errors.New("password authentication failed")})
	assert.NotContains(t, body.Error, "password")
}
