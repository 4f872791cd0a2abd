package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/club-authz/auth"
	"github.com/upb/club-authz/utils"
	"go.uber.org/zap"
)

// MockTokenValidator is a mock implementation of TokenValidator
type MockTokenValidator struct {
	mock.Mock
}

func (m *MockTokenValidator) VerifyToken(ctx context.Context, token string) (*auth.Principal, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Principal), args.Error(1)
}

func TestRequireAuth(t *testing.T) {
	principal := &auth.Principal{UserID: uuid.New(), Email: "secretary@club.edu"}

	tests := []struct {
		name        string
		header      string
		cookie      string
		verifyToken string
		verifyErr   error
		wantStatus  int
		wantMessage string
	}{
		{
			name:        "bearer header",
			header:      "Bearer valid-token",
			verifyToken: "valid-token",
			wantStatus:  http.StatusOK,
		},
		{
			name:        "cookie",
			cookie:      "cookie-token",
			verifyToken: "cookie-token",
			wantStatus:  http.StatusOK,
		},
		{
			name:        "header wins over cookie",
			header:      "bearer header-token",
			cookie:      "cookie-token",
			verifyToken: "header-token",
			wantStatus:  http.StatusOK,
		},
		{
			name:        "non-bearer header falls back to cookie",
			header:      "Basic dXNlcjpwYXNz",
			cookie:      "cookie-token",
			verifyToken: "cookie-token",
			wantStatus:  http.StatusOK,
		},
		{
			name:        "missing credentials",
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "Missing or invalid authorization",
		},
		{
			name:        "basic auth only",
			header:      "Basic dXNlcjpwYXNz",
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "Missing or invalid authorization",
		},
		{
			name:        "empty bearer",
			header:      "Bearer   ",
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "Missing or invalid authorization",
		},
		{
			name:        "expired token",
			header:      "Bearer old-token",
			verifyToken: "old-token",
			verifyErr:   auth.ErrTokenExpired,
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "Token expired",
		},
		{
			name:        "bad signature",
			header:      "Bearer forged",
			verifyToken: "forged",
			verifyErr:   errors.New("signature mismatch"),
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "Invalid token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validator := new(MockTokenValidator)
			if tt.verifyToken != "" {
				if tt.verifyErr != nil {
					validator.On("VerifyToken", mock.Anything, tt.verifyToken).Return(nil, tt.verifyErr)
				} else {
					validator.On("VerifyToken", mock.Anything, tt.verifyToken).Return(principal, nil)
				}
			}

			called := false
			handler := NewAuthMiddleware(validator, zap.NewNop()).RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				assert.Equal(t, principal, GetPrincipalFromContext(r.Context()))
				assert.Equal(t, principal.UserID, GetUserIDFromContext(r.Context()))
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: AuthCookieName, Value: tt.cookie})
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantStatus == http.StatusOK, called)
			if tt.wantMessage != "" {
				var body utils.ErrorResponse
				require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
				assert.Equal(t, "unauthorized", body.Error)
				assert.Equal(t, tt.wantMessage, body.Message)
			}
			if tt.verifyToken == "" {
				validator.AssertNotCalled(t, "VerifyToken", mock.Anything, mock.Anything)
			} else {
				validator.AssertExpectations(t)
			}
		})
	}
}

func TestGetRequestIDFromContext(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetRequestIDFromContext(ctx))

	ctx = WithRequestID(ctx, "req-42")
	assert.Equal(t, "req-42", GetRequestIDFromContext(ctx))
}

func TestGetUserIDFromContext_NoPrincipal(t *testing.T) {
	assert.Equal(t, uuid.Nil, GetUserIDFromContext(context.Background()))
	assert.Nil(t, GetPrincipalFromContext(context.Background()))
}
