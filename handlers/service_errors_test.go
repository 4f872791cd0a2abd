package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/club-authz/services"
	"github.com/upb/club-authz/utils"
	"go.uber.org/zap"
)

func TestHandleServiceError(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name            string
		err             error
		expectedStatus  int
		expectedError   string
		expectedMessage string
	}{
		{
			name:            "not found error",
			err:             services.ErrAssignmentNotFound,
			expectedStatus:  http.StatusNotFound,
			expectedError:   "not_found",
			expectedMessage: "POR assignment not found",
		},
		{
			name:            "validation error",
			err:             services.ErrInvalidUnitRef,
			expectedStatus:  http.StatusBadRequest,
			expectedError:   "bad_request",
			expectedMessage: "exactly one of club_id and board_id is required",
		},
		{
			name:            "unauthorized error",
			err:             services.ErrUnauthorized,
			expectedStatus:  http.StatusUnauthorized,
			expectedError:   "unauthorized",
			expectedMessage: "unauthorized",
		},
		{
			name:            "forbidden error",
			err:             services.ErrSuperAdminRequired,
			expectedStatus:  http.StatusForbidden,
			expectedError:   "forbidden",
			expectedMessage: "super admin required",
		},
		{
			name:            "conflict error",
			err:             services.ErrPrivilegeTypeInUse,
			expectedStatus:  http.StatusConflict,
			expectedError:   "conflict",
			expectedMessage: "privilege type is referenced by active assignments",
		},
		{
			name:            "unavailable error hides the cause",
			err:             services.WrapUnavailable(services.ErrSnapshotUnavailable.Message, errors.New("connection refused")),
			expectedStatus:  http.StatusServiceUnavailable,
			expectedError:   "unavailable",
			expectedMessage: "identity snapshot unavailable",
		},
		{
			name:            "internal error",
			err:             services.WrapInternal("database error", errors.New("pq: relation missing")),
			expectedStatus:  http.StatusInternalServerError,
			expectedError:   "internal_error",
			expectedMessage: "An internal error occurred",
		},
		{
			name:            "unknown error",
			err:             errors.New("boom"),
			expectedStatus:  http.StatusInternalServerError,
			expectedError:   "internal_error",
			expectedMessage: "An unexpected error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			HandleServiceError(w, tt.err, logger)

			assert.Equal(t, tt.expectedStatus, w.Code)

			var response utils.ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
			assert.Equal(t, tt.expectedError, response.Error)
			assert.Equal(t, tt.expectedMessage, response.Message)
			assert.NotContains(t, response.Message, "connection refused")
		})
	}
}

func TestHandleServiceError_Details(t *testing.T) {
	w := httptest.NewRecorder()
	err := services.NewDomainError(services.ErrorTypeConflict, "privilege type is referenced by active assignments", nil).
		WithDetail("active_assignments", 3)

	HandleServiceError(w, err, zap.NewNop())

	var response utils.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, float64(3), response.Details["active_assignments"])
}

func TestHandleServiceError_Nil(t *testing.T) {
	w := httptest.NewRecorder()

	HandleServiceError(w, nil, zap.NewNop())

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestHandleValidationError(t *testing.T) {
	w := httptest.NewRecorder()
	verr := &utils.ValidationError{Message: "Validation failed", Fields: map[string]string{"capability": "capability is required"}}

	HandleValidationError(w, verr, zap.NewNop())

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var response utils.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "capability is required", response.Details["capability"])
}
