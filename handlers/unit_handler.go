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

// CreateUnitRequest represents a request to create a club or board
type CreateUnitRequest struct {
	Name string          `json:"name" validate:"required,max=200"`
	Kind models.UnitKind `json:"kind" validate:"required,oneof=club board"`
}

// RenameUnitRequest represents a request to rename a unit. The kind is immutable.
type RenameUnitRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

// UnitService defines the unit registry operations used by UnitHandler
type UnitService interface {
	Create(ctx context.Context, actor services.Actor, name string, kind models.UnitKind) (*models.OrganizationalUnit, error)
	Rename(ctx context.Context, actor services.Actor, id uuid.UUID, name string) (*models.OrganizationalUnit, error)
	Get(ctx context.Context, id uuid.UUID) (*models.OrganizationalUnit, error)
	List(ctx context.Context, kind models.UnitKind) ([]*models.OrganizationalUnit, error)
}

// UnitHandler handles club and board HTTP requests
type UnitHandler struct {
	units  UnitService
	logger *zap.Logger
}

// NewUnitHandler creates a new UnitHandler
func NewUnitHandler(units UnitService, logger *zap.Logger) *UnitHandler {
	return &UnitHandler{
		units:  units,
		logger: logger,
	}
}

// HandleListUnits handles GET /api/v1/units?kind=
func (h *UnitHandler) HandleListUnits(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	kind := models.UnitKind(r.URL.Query().Get("kind"))
	units, err := h.units.List(ctx, kind)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Debug("listed units",
		zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
		zap.String("kind", string(kind)),
		zap.Int("count", len(units)))

	_ = utils.WriteOK(w, units)
}

// HandleGetUnit handles GET /api/v1/units/{id}
func (h *UnitHandler) HandleGetUnit(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	unit, err := h.units.Get(r.Context(), id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, unit)
}

// HandleCreateUnit handles POST /api/v1/units
func (h *UnitHandler) HandleCreateUnit(w http.ResponseWriter, r *http.Request) {
	var req CreateUnitRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	unit, err := h.units.Create(r.Context(), actorFromRequest(r), req.Name, req.Kind)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("unit created",
		zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
		zap.String("unit_id", unit.ID.String()),
		zap.String("kind", string(unit.Kind)))

	_ = utils.WriteCreated(w, unit)
}

// HandleRenameUnit handles PATCH /api/v1/units/{id}
func (h *UnitHandler) HandleRenameUnit(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	var req RenameUnitRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	unit, err := h.units.Rename(r.Context(), actorFromRequest(r), id, req.Name)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, unit)
}
