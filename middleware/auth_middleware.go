package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/upb/club-authz/auth"
	"github.com/upb/club-authz/utils"
	"go.uber.org/zap"
)

// TokenValidator turns a bearer token into the principal it names
type TokenValidator interface {
	VerifyToken(ctx context.Context, token string) (*auth.Principal, error)
}

// AuthCookieName is the cookie the portal front end keeps its token in.
// An Authorization header wins over the cookie.
const AuthCookieName = "auth_token"

// AuthMiddleware authenticates portal requests. It establishes who is calling;
// what they may do is decided per capability by PermissionMiddleware.
type AuthMiddleware struct {
	validator TokenValidator
	logger    *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(validator TokenValidator, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		validator: validator,
		logger:    logger,
	}
}

// RequireAuth rejects requests without a verifiable token with 401 and stores
// the principal in the request context otherwise
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		log := m.logger.With(zap.String("request_id", GetRequestIDFromContext(ctx)))

		token, source := tokenFromRequest(r)
		if token == "" {
			log.Debug("request without credentials", zap.String("path", r.URL.Path))
			_ = utils.WriteUnauthorized(w, "Missing or invalid authorization")
			return
		}

		principal, err := m.validator.VerifyToken(ctx, token)
		if err != nil {
			log.Warn("token rejected", zap.String("source", source), zap.Error(err))
			message := "Invalid token"
			if errors.Is(err, auth.ErrTokenExpired) {
				message = "Token expired"
			}
			_ = utils.WriteUnauthorized(w, message)
			return
		}

		log.Debug("request authenticated",
			zap.String("user_id", principal.UserID.String()),
			zap.String("source", source))

		next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, principal)))
	})
}

// tokenFromRequest returns the bearer token and where it came from
func tokenFromRequest(r *http.Request) (token, source string) {
	if scheme, value, ok := strings.Cut(r.Header.Get("Authorization"), " "); ok && strings.EqualFold(scheme, "bearer") {
		if value = strings.TrimSpace(value); value != "" {
			return value, "header"
		}
	}
	if cookie, err := r.Cookie(AuthCookieName); err == nil && cookie.Value != "" {
		return cookie.Value, "cookie"
	}
	return "", ""
}
