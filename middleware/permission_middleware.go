package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/upb/club-authz/internal/authz"
	"github.com/upb/club-authz/models"
	"github.com/upb/club-authz/utils"
	"go.uber.org/zap"
)

// PermissionChecker answers capability checks for stored users
type PermissionChecker interface {
	Check(ctx context.Context, capability models.Capability, userID uuid.UUID, boardID, clubID *uuid.UUID) (authz.Decision, error)
}

// ScopeFunc extracts the target unit of a request. Either id may be nil.
type ScopeFunc func(r *http.Request) (boardID, clubID *uuid.UUID, err error)

// PermissionMiddleware is the server-side enforcement point for capability-gated routes
type PermissionMiddleware struct {
	checker PermissionChecker
	logger  *zap.Logger
}

// NewPermissionMiddleware creates a new PermissionMiddleware
func NewPermissionMiddleware(checker PermissionChecker, logger *zap.Logger) *PermissionMiddleware {
	return &PermissionMiddleware{
		checker: checker,
		logger:  logger,
	}
}

// RequireCapability lets the request through only when the authenticated user
// holds capability in the unit named by scope. Must run after RequireAuth.
func (m *PermissionMiddleware) RequireCapability(capability models.Capability, scope ScopeFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := GetRequestIDFromContext(ctx)

			userID := GetUserIDFromContext(ctx)
			if userID == uuid.Nil {
				m.logger.Error("principal not found in context",
					zap.String("request_id", requestID))
				_ = utils.WriteUnauthorized(w, "Authentication required")
				return
			}

			boardID, clubID, err := scope(r)
			if err != nil {
				_ = utils.WriteBadRequest(w, err.Error(), nil)
				return
			}

			decision, err := m.checker.Check(ctx, capability, userID, boardID, clubID)
			switch {
			case err == nil, errors.Is(err, authz.ErrAmbiguousScope):
			case errors.Is(err, authz.ErrUnknownCapability):
				m.logger.Error("route guarded by unknown capability",
					zap.String("request_id", requestID),
					zap.String("capability", string(capability)))
				_ = utils.WriteInternalServerError(w, "")
				return
			default:
				m.logger.Error("permission check failed",
					zap.String("request_id", requestID),
					zap.String("user_id", userID.String()),
					zap.Error(err))
				_ = utils.WriteServiceUnavailable(w, "Permission check unavailable")
				return
			}

			if !decision.Allowed {
				m.logger.Warn("capability denied",
					zap.String("request_id", requestID),
					zap.String("user_id", userID.String()),
					zap.String("capability", string(capability)),
					zap.String("reason", string(decision.Reason)))
				_ = utils.WriteForbidden(w, "Insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClubFromURLParam scopes a request to the club named by a chi URL parameter
func ClubFromURLParam(param string) ScopeFunc {
	return func(r *http.Request) (*uuid.UUID, *uuid.UUID, error) {
		id, err := uuid.Parse(chi.URLParam(r, param))
		if err != nil {
			return nil, nil, errors.New("invalid club id")
		}
		return nil, &id, nil
	}
}

// BoardFromURLParam scopes a request to the board named by a chi URL parameter
func BoardFromURLParam(param string) ScopeFunc {
	return func(r *http.Request) (*uuid.UUID, *uuid.UUID, error) {
		id, err := uuid.Parse(chi.URLParam(r, param))
		if err != nil {
			return nil, nil, errors.New("invalid board id")
		}
		return &id, nil, nil
	}
}

// ScopeFromQuery reads club_id and board_id from the query string
func ScopeFromQuery(r *http.Request) (*uuid.UUID, *uuid.UUID, error) {
	q := r.URL.Query()
	clubID, err := utils.ParseOptionalUUID(q.Get("club_id"))
	if err != nil {
		return nil, nil, errors.New("invalid club_id")
	}
	boardID, err := utils.ParseOptionalUUID(q.Get("board_id"))
	if err != nil {
		return nil, nil, errors.New("invalid board_id")
	}
	return boardID, clubID, nil
}
