package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/upb/club-authz/middleware"
	"github.com/upb/club-authz/services"
	"github.com/upb/club-authz/utils"
	"go.uber.org/zap"
)

// actorFromRequest builds the actor of an administrative write from the
// authenticated principal
func actorFromRequest(r *http.Request) services.Actor {
	ctx := r.Context()
	return services.NewActor(middleware.GetUserIDFromContext(ctx), middleware.GetRequestIDFromContext(ctx))
}

// idParam parses the {id} route parameter
func idParam(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid id format: %q", raw)
	}
	return id, nil
}

// decodeRequest decodes and validates a JSON body, writing the 400 response
// itself. It reports whether the handler may continue.
func decodeRequest(w http.ResponseWriter, r *http.Request, dst interface{}, logger *zap.Logger) bool {
	requestID := middleware.GetRequestIDFromContext(r.Context())

	if err := utils.DecodeJSON(w, r, dst); err != nil {
		logger.Warn("failed to parse request body",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid request body", map[string]interface{}{"reason": err.Error()})
		return false
	}

	if err := utils.ValidateStruct(dst); err != nil {
		logger.Warn("request validation failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleValidationError(w, err, logger)
		return false
	}
	return true
}
