package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/upb/club-authz/middleware"
	"github.com/upb/club-authz/models"
	"github.com/upb/club-authz/services"
	"github.com/upb/club-authz/utils"
	"go.uber.org/zap"
)

// PrivilegeTypeRequest creates or replaces a privilege type. Capabilities is
// the list of flags the position carries; an empty list is allowed.
type PrivilegeTypeRequest struct {
	PositionTitle string              `json:"position_title" validate:"required,max=200"`
	Capabilities  []models.Capability `json:"capabilities" validate:"max=7,dive,capability"`
}

// CapabilitySet collapses the requested flags into a set
func (r PrivilegeTypeRequest) CapabilitySet() models.CapabilitySet {
	return models.NewCapabilitySet(r.Capabilities...)
}

// CatalogService defines the privilege type operations used by PrivilegeTypeHandler
type CatalogService interface {
	Create(ctx context.Context, actor services.Actor, title string, caps models.CapabilitySet) (*models.PrivilegeType, error)
	Update(ctx context.Context, actor services.Actor, id uuid.UUID, title string, caps models.CapabilitySet) (*models.PrivilegeType, error)
	Delete(ctx context.Context, actor services.Actor, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*models.PrivilegeType, error)
	List(ctx context.Context) ([]*models.PrivilegeType, error)
}

// PrivilegeTypeHandler handles privilege type HTTP requests
type PrivilegeTypeHandler struct {
	catalog CatalogService
	logger  *zap.Logger
}

// NewPrivilegeTypeHandler creates a new PrivilegeTypeHandler
func NewPrivilegeTypeHandler(catalog CatalogService, logger *zap.Logger) *PrivilegeTypeHandler {
	return &PrivilegeTypeHandler{
		catalog: catalog,
		logger:  logger,
	}
}

// HandleListPrivilegeTypes handles GET /api/v1/privilege-types
func (h *PrivilegeTypeHandler) HandleListPrivilegeTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.catalog.List(r.Context())
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, types)
}

// HandleGetPrivilegeType handles GET /api/v1/privilege-types/{id}
func (h *PrivilegeTypeHandler) HandleGetPrivilegeType(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	pt, err := h.catalog.Get(r.Context(), id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, pt)
}

// HandleCreatePrivilegeType handles POST /api/v1/privilege-types
func (h *PrivilegeTypeHandler) HandleCreatePrivilegeType(w http.ResponseWriter, r *http.Request) {
	var req PrivilegeTypeRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	pt, err := h.catalog.Create(r.Context(), actorFromRequest(r), req.PositionTitle, req.CapabilitySet())
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("privilege type created",
		zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
		zap.String("privilege_type_id", pt.ID.String()))

	_ = utils.WriteCreated(w, pt)
}

// HandleUpdatePrivilegeType handles PUT /api/v1/privilege-types/{id}
func (h *PrivilegeTypeHandler) HandleUpdatePrivilegeType(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	var req PrivilegeTypeRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	pt, err := h.catalog.Update(r.Context(), actorFromRequest(r), id, req.PositionTitle, req.CapabilitySet())
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, pt)
}

// HandleDeletePrivilegeType handles DELETE /api/v1/privilege-types/{id}
func (h *PrivilegeTypeHandler) HandleDeletePrivilegeType(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	if err := h.catalog.Delete(r.Context(), actorFromRequest(r), id); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	utils.WriteNoContent(w)
}
