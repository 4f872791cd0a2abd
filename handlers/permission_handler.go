package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/upb/club-authz/internal/authz"
	"github.com/upb/club-authz/middleware"
	"github.com/upb/club-authz/models"
	"github.com/upb/club-authz/services/permission"
	"github.com/upb/club-authz/utils"
	"go.uber.org/zap"
)

// PermissionService defines the permission queries served to the caller about themselves
type PermissionService interface {
	Check(ctx context.Context, capability models.Capability, userID uuid.UUID, boardID, clubID *uuid.UUID) (authz.Decision, error)
	GrantedCapabilities(ctx context.Context, userID, unitID uuid.UUID) (models.CapabilitySet, error)
	Identity(ctx context.Context, userID uuid.UUID) (*permission.IdentityView, error)
}

// PermissionCheckResponse is the answer to a capability check
type PermissionCheckResponse struct {
	authz.Decision
	Warning string `json:"warning,omitempty"`
}

// CapabilitiesResponse lists the capabilities held in one unit
type CapabilitiesResponse struct {
	UnitID       uuid.UUID            `json:"unit_id"`
	Capabilities models.CapabilitySet `json:"capabilities"`
}

// PermissionHandler handles permission queries of the authenticated user
type PermissionHandler struct {
	permissions PermissionService
	logger      *zap.Logger
}

// NewPermissionHandler creates a new PermissionHandler
func NewPermissionHandler(permissions PermissionService, logger *zap.Logger) *PermissionHandler {
	return &PermissionHandler{
		permissions: permissions,
		logger:      logger,
	}
}

// HandleMe handles GET /api/v1/me
func (h *PermissionHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := middleware.GetUserIDFromContext(ctx)
	if userID == uuid.Nil {
		_ = utils.WriteUnauthorized(w, "")
		return
	}

	view, err := h.permissions.Identity(ctx, userID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, view)
}

// HandleCheck handles GET /api/v1/me/permissions?capability=&club_id=&board_id=
func (h *PermissionHandler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	userID := middleware.GetUserIDFromContext(ctx)
	if userID == uuid.Nil {
		_ = utils.WriteUnauthorized(w, "")
		return
	}

	query := r.URL.Query()
	capability, err := models.ParseCapability(query.Get("capability"))
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}
	clubID, err := utils.ParseOptionalUUID(query.Get("club_id"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid club_id format", nil)
		return
	}
	boardID, err := utils.ParseOptionalUUID(query.Get("board_id"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid board_id format", nil)
		return
	}

	decision, err := h.permissions.Check(ctx, capability, userID, boardID, clubID)
	response := PermissionCheckResponse{Decision: decision}
	switch {
	case err == nil:
	case errors.Is(err, authz.ErrAmbiguousScope):
		response.Warning = err.Error()
	case errors.Is(err, authz.ErrUnknownCapability):
		h.logger.Error("capability rejected by evaluator",
			zap.String("request_id", requestID),
			zap.String("capability", string(capability)))
		_ = utils.WriteInternalServerError(w, "")
		return
	default:
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Debug("permission checked",
		zap.String("request_id", requestID),
		zap.String("user_id", userID.String()),
		zap.String("capability", string(capability)),
		zap.Bool("allowed", decision.Allowed),
		zap.String("reason", string(decision.Reason)))

	_ = utils.WriteOK(w, response)
}

// HandleCapabilities handles GET /api/v1/me/capabilities?unit_id=
func (h *PermissionHandler) HandleCapabilities(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := middleware.GetUserIDFromContext(ctx)
	if userID == uuid.Nil {
		_ = utils.WriteUnauthorized(w, "")
		return
	}

	unitID, err := utils.ParseOptionalUUID(r.URL.Query().Get("unit_id"))
	if err != nil || unitID == nil {
		_ = utils.WriteBadRequest(w, "unit_id is required and must be a valid UUID", nil)
		return
	}

	caps, err := h.permissions.GrantedCapabilities(ctx, userID, *unitID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, CapabilitiesResponse{UnitID: *unitID, Capabilities: caps})
}

// HandleAuthorized answers a forward-auth request that passed RequireCapability
func HandleAuthorized(w http.ResponseWriter, r *http.Request) {
	utils.WriteNoContent(w)
}
