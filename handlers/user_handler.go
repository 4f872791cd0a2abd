package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/upb/club-authz/middleware"
	"github.com/upb/club-authz/models"
	"github.com/upb/club-authz/services"
	"github.com/upb/club-authz/utils"
	"go.uber.org/zap"
)

// AssignRoleRequest represents a request to change a user's global role
type AssignRoleRequest struct {
	Role models.GlobalRole `json:"role" validate:"required,oneof=member club_admin board_admin super_admin"`
}

// UserService defines the user administration operations used by UserHandler
type UserService interface {
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]*models.User, error)
	AssignRole(ctx context.Context, actor services.Actor, userID uuid.UUID, role models.GlobalRole) (*models.User, error)
	RemoveAdmin(ctx context.Context, actor services.Actor, userID uuid.UUID) (*models.User, error)
	Ban(ctx context.Context, actor services.Actor, userID uuid.UUID) (*models.User, error)
	Unban(ctx context.Context, actor services.Actor, userID uuid.UUID) (*models.User, error)
}

// UserHandler handles user administration HTTP requests
type UserHandler struct {
	users  UserService
	logger *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(users UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		users:  users,
		logger: logger,
	}
}

// HandleListUsers handles GET /api/v1/users?limit=&offset=
func (h *UserHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit, err := queryInt(query.Get("limit"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid limit", nil)
		return
	}
	offset, err := queryInt(query.Get("offset"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid offset", nil)
		return
	}

	users, err := h.users.List(r.Context(), limit, offset)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, users)
}

// HandleGetUser handles GET /api/v1/users/{id}
func (h *UserHandler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	user, err := h.users.Get(r.Context(), id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, user)
}

// HandleAssignRole handles PUT /api/v1/users/{id}/role
func (h *UserHandler) HandleAssignRole(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	var req AssignRoleRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	user, err := h.users.AssignRole(r.Context(), actorFromRequest(r), id, req.Role)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("global role changed",
		zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(user.GlobalRole)))

	_ = utils.WriteOK(w, user)
}

// HandleRemoveAdmin handles DELETE /api/v1/users/{id}/role
func (h *UserHandler) HandleRemoveAdmin(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.users.RemoveAdmin)
}

// HandleBan handles POST /api/v1/users/{id}/ban
func (h *UserHandler) HandleBan(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.users.Ban)
}

// HandleUnban handles POST /api/v1/users/{id}/unban
func (h *UserHandler) HandleUnban(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.users.Unban)
}

func (h *UserHandler) mutate(w http.ResponseWriter, r *http.Request, op func(context.Context, services.Actor, uuid.UUID) (*models.User, error)) {
	id, err := idParam(r)
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	user, err := op(r.Context(), actorFromRequest(r), id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, user)
}

func queryInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
