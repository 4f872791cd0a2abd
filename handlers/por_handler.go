package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/upb/club-authz/middleware"
	"github.com/upb/club-authz/models"
	"github.com/upb/club-authz/services"
	"github.com/upb/club-authz/services/ledger"
	"github.com/upb/club-authz/utils"
	"go.uber.org/zap"
)

// AssignPORRequest represents a request to assign a position of responsibility.
// A missing start_date means now; a missing end_date means indefinite.
type AssignPORRequest struct {
	UserID          uuid.UUID `json:"user_id" validate:"required"`
	PrivilegeTypeID uuid.UUID `json:"privilege_type_id" validate:"required"`
	utils.UnitScope
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

// EditPORRequest replaces the privilege type, unit and dates of an assignment.
// A missing start_date keeps the current one.
type EditPORRequest struct {
	PrivilegeTypeID uuid.UUID `json:"privilege_type_id" validate:"required"`
	utils.UnitScope
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

// LedgerService defines the POR ledger operations used by PORHandler
type LedgerService interface {
	Assign(ctx context.Context, actor services.Actor, in ledger.AssignInput) (*models.PORAssignment, error)
	Edit(ctx context.Context, actor services.Actor, id uuid.UUID, in ledger.EditInput) (*models.PORAssignment, error)
	Revoke(ctx context.Context, actor services.Actor, id uuid.UUID) (*models.PORAssignment, error)
	Delete(ctx context.Context, actor services.Actor, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*models.PORAssignment, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.PORAssignment, error)
	ListForUnit(ctx context.Context, unitID uuid.UUID) ([]*models.PORAssignment, error)
}

// PORHandler handles POR assignment HTTP requests
type PORHandler struct {
	ledger LedgerService
	logger *zap.Logger
}

// NewPORHandler creates a new PORHandler
func NewPORHandler(ledgerSvc LedgerService, logger *zap.Logger) *PORHandler {
	return &PORHandler{
		ledger: ledgerSvc,
		logger: logger,
	}
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

// HandleListPOR handles GET /api/v1/por?user_id= or ?unit_id=
func (h *PORHandler) HandleListPOR(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	userID, err := utils.ParseOptionalUUID(query.Get("user_id"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid user_id format", nil)
		return
	}
	unitID, err := utils.ParseOptionalUUID(query.Get("unit_id"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid unit_id format", nil)
		return
	}
	if (userID == nil) == (unitID == nil) {
		_ = utils.WriteBadRequest(w, "exactly one of user_id and unit_id is required", nil)
		return
	}

	var list []*models.PORAssignment
	if userID != nil {
		list, err = h.ledger.ListForUser(ctx, *userID)
	} else {
		list, err = h.ledger.ListForUnit(ctx, *unitID)
	}
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Debug("listed POR assignments",
		zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
		zap.Int("count", len(list)))

	_ = utils.WriteOK(w, list)
}

// HandleGetPOR handles GET /api/v1/por/{id}
func (h *PORHandler) HandleGetPOR(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	a, err := h.ledger.Get(r.Context(), id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, a)
}

// HandleAssignPOR handles POST /api/v1/por
func (h *PORHandler) HandleAssignPOR(w http.ResponseWriter, r *http.Request) {
	var req AssignPORRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	a, err := h.ledger.Assign(r.Context(), actorFromRequest(r), ledger.AssignInput{
		UserID:          req.UserID,
		PrivilegeTypeID: req.PrivilegeTypeID,
		Unit:            req.Ref(),
		StartDate:       derefTime(req.StartDate),
		EndDate:         req.EndDate,
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("POR assigned",
		zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
		zap.String("assignment_id", a.ID.String()))

	_ = utils.WriteCreated(w, a)
}

// HandleEditPOR handles PUT /api/v1/por/{id}
func (h *PORHandler) HandleEditPOR(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	var req EditPORRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	a, err := h.ledger.Edit(r.Context(), actorFromRequest(r), id, ledger.EditInput{
		PrivilegeTypeID: req.PrivilegeTypeID,
		Unit:            req.Ref(),
		StartDate:       derefTime(req.StartDate),
		EndDate:         req.EndDate,
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, a)
}

// HandleRevokePOR handles POST /api/v1/por/{id}/revoke
func (h *PORHandler) HandleRevokePOR(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	a, err := h.ledger.Revoke(r.Context(), actorFromRequest(r), id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, a)
}

// HandleDeletePOR handles DELETE /api/v1/por/{id}
// Hard delete for data correction; ending a term goes through revoke.
func (h *PORHandler) HandleDeletePOR(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	if err := h.ledger.Delete(r.Context(), actorFromRequest(r), id); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	utils.WriteNoContent(w)
}
