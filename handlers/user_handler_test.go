package handlers

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/upb/club-authz/models"
	"github.com/upb/club-authz/services"
	"go.uber.org/zap"
)

func TestHandleAssignRole(t *testing.T) {
	logger := zap.NewNop()
	adminID := uuid.New()
	user := models.NewUser("ana@example.com", "Ana")

	t.Run("assigns", func(t *testing.T) {
		users := new(MockUserService)
		handler := NewUserHandler(users, logger)
		promoted := *user
		promoted.GlobalRole = models.RoleBoardAdmin
		users.On("AssignRole", mock.Anything, actorMatcher(adminID), user.ID, models.RoleBoardAdmin).Return(&promoted, nil)

		w := serve(t, http.MethodPut, "/users/{id}/role", "/users/"+user.ID.String()+"/role", `{"role":"board_admin"}`, adminID, handler.HandleAssignRole)

		assert.Equal(t, http.StatusOK, w.Code)
		data := decodeBody(t, w)["data"].(map[string]interface{})
		assert.Equal(t, "board_admin", data["global_role"])
	})

	t.Run("unknown role", func(t *testing.T) {
		users := new(MockUserService)
		handler := NewUserHandler(users, logger)

		w := serve(t, http.MethodPut, "/users/{id}/role", "/users/"+user.ID.String()+"/role", `{"role":"root"}`, adminID, handler.HandleAssignRole)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		details := decodeBody(t, w)["details"].(map[string]interface{})
		assert.Contains(t, details, "role")
		users.AssertNotCalled(t, "AssignRole", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestHandleUserMutations(t *testing.T) {
	logger := zap.NewNop()
	adminID := uuid.New()
	user := models.NewUser("ben@example.com", "Ben")

	tests := []struct {
		name       string
		method     string
		pattern    string
		target     string
		mockMethod string
		handler    func(h *UserHandler) http.HandlerFunc
		err        error
		wantStatus int
	}{
		{"ban", http.MethodPost, "/users/{id}/ban", "/users/" + user.ID.String() + "/ban", "Ban",
			func(h *UserHandler) http.HandlerFunc { return h.HandleBan }, nil, http.StatusOK},
		{"ban super admin", http.MethodPost, "/users/{id}/ban", "/users/" + user.ID.String() + "/ban", "Ban",
			func(h *UserHandler) http.HandlerFunc { return h.HandleBan }, services.ErrCannotBanSuperAdmin, http.StatusForbidden},
		{"unban", http.MethodPost, "/users/{id}/unban", "/users/" + user.ID.String() + "/unban", "Unban",
			func(h *UserHandler) http.HandlerFunc { return h.HandleUnban }, nil, http.StatusOK},
		{"remove admin", http.MethodDelete, "/users/{id}/role", "/users/" + user.ID.String() + "/role", "RemoveAdmin",
			func(h *UserHandler) http.HandlerFunc { return h.HandleRemoveAdmin }, nil, http.StatusOK},
		{"missing user", http.MethodPost, "/users/{id}/ban", "/users/" + user.ID.String() + "/ban", "Ban",
			func(h *UserHandler) http.HandlerFunc { return h.HandleBan }, services.ErrUserNotFound, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(MockUserService)
			handler := NewUserHandler(users, logger)
			if tt.err != nil {
				users.On(tt.mockMethod, mock.Anything, actorMatcher(adminID), user.ID).Return(nil, tt.err)
			} else {
				users.On(tt.mockMethod, mock.Anything, actorMatcher(adminID), user.ID).Return(user, nil)
			}

			w := serve(t, tt.method, tt.pattern, tt.target, "", adminID, tt.handler(handler))

			assert.Equal(t, tt.wantStatus, w.Code)
			users.AssertExpectations(t)
		})
	}

	t.Run("malformed id", func(t *testing.T) {
		users := new(MockUserService)
		handler := NewUserHandler(users, logger)

		w := serve(t, http.MethodPost, "/users/{id}/ban", "/users/42/ban", "", adminID, handler.HandleBan)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandleListUsers(t *testing.T) {
	logger := zap.NewNop()
	callerID := uuid.New()

	t.Run("passes paging", func(t *testing.T) {
		users := new(MockUserService)
		handler := NewUserHandler(users, logger)
		users.On("List", mock.Anything, 20, 40).Return([]*models.User{models.NewUser("c@example.com", "C")}, nil)

		w := serve(t, http.MethodGet, "/users", "/users?limit=20&offset=40", "", callerID, handler.HandleListUsers)

		assert.Equal(t, http.StatusOK, w.Code)
		users.AssertExpectations(t)
	})

	t.Run("bad limit", func(t *testing.T) {
		users := new(MockUserService)
		handler := NewUserHandler(users, logger)

		w := serve(t, http.MethodGet, "/users", "/users?limit=ten", "", callerID, handler.HandleListUsers)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("get", func(t *testing.T) {
		users := new(MockUserService)
		handler := NewUserHandler(users, logger)
		u := models.NewUser("d@example.com", "D")
		users.On("Get", mock.Anything, u.ID).Return(u, nil)

		w := serve(t, http.MethodGet, "/users/{id}", "/users/"+u.ID.String(), "", callerID, handler.HandleGetUser)

		assert.Equal(t, http.StatusOK, w.Code)
		data := decodeBody(t, w)["data"].(map[string]interface{})
		assert.Equal(t, "d@example.com", data["email"])
	})
}
