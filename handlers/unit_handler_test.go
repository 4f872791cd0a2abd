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

func TestHandleCreateUnit(t *testing.T) {
	logger := zap.NewNop()
	adminID := uuid.New()

	t.Run("creates a club", func(t *testing.T) {
		units := new(MockUnitService)
		handler := NewUnitHandler(units, logger)

		club := models.NewOrganizationalUnit("Robotics Club", models.UnitKindClub)
		units.On("Create", mock.Anything, actorMatcher(adminID), "Robotics Club", models.UnitKindClub).Return(club, nil)

		w := serve(t, http.MethodPost, "/units", "/units", `{"name":"Robotics Club","kind":"club"}`, adminID, handler.HandleCreateUnit)

		assert.Equal(t, http.StatusCreated, w.Code)
		data := decodeBody(t, w)["data"].(map[string]interface{})
		assert.Equal(t, club.ID.String(), data["id"])
		assert.Equal(t, "club", data["kind"])
		units.AssertExpectations(t)
	})

	t.Run("rejects an unknown kind", func(t *testing.T) {
		units := new(MockUnitService)
		handler := NewUnitHandler(units, logger)

		w := serve(t, http.MethodPost, "/units", "/units", `{"name":"Chess","kind":"society"}`, adminID, handler.HandleCreateUnit)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		details := decodeBody(t, w)["details"].(map[string]interface{})
		assert.Contains(t, details, "kind")
		units.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		units := new(MockUnitService)
		handler := NewUnitHandler(units, logger)

		w := serve(t, http.MethodPost, "/units", "/units", `{"name":"Chess","kind":"club","parent":"x"}`, adminID, handler.HandleCreateUnit)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("non super admin is forbidden", func(t *testing.T) {
		units := new(MockUnitService)
		handler := NewUnitHandler(units, logger)
		units.On("Create", mock.Anything, mock.Anything, "Chess", models.UnitKindBoard).Return(nil, services.ErrSuperAdminRequired)

		w := serve(t, http.MethodPost, "/units", "/units", `{"name":"Chess","kind":"board"}`, adminID, handler.HandleCreateUnit)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "super admin required", decodeBody(t, w)["message"])
	})

	t.Run("duplicate name conflicts", func(t *testing.T) {
		units := new(MockUnitService)
		handler := NewUnitHandler(units, logger)
		units.On("Create", mock.Anything, mock.Anything, "Chess", models.UnitKindClub).Return(nil, services.ErrDuplicateUnitName)

		w := serve(t, http.MethodPost, "/units", "/units", `{"name":"Chess","kind":"club"}`, adminID, handler.HandleCreateUnit)

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestHandleRenameUnit(t *testing.T) {
	logger := zap.NewNop()
	adminID := uuid.New()
	unit := models.NewOrganizationalUnit("Cultural Board", models.UnitKindBoard)

	t.Run("renames", func(t *testing.T) {
		units := new(MockUnitService)
		handler := NewUnitHandler(units, logger)
		renamed := *unit
		renamed.Name = "Cultural Council"
		units.On("Rename", mock.Anything, actorMatcher(adminID), unit.ID, "Cultural Council").Return(&renamed, nil)

		w := serve(t, http.MethodPatch, "/units/{id}", "/units/"+unit.ID.String(), `{"name":"Cultural Council"}`, adminID, handler.HandleRenameUnit)

		assert.Equal(t, http.StatusOK, w.Code)
		data := decodeBody(t, w)["data"].(map[string]interface{})
		assert.Equal(t, "Cultural Council", data["name"])
		assert.Equal(t, "board", data["kind"])
	})

	t.Run("malformed id", func(t *testing.T) {
		units := new(MockUnitService)
		handler := NewUnitHandler(units, logger)

		w := serve(t, http.MethodPatch, "/units/{id}", "/units/not-a-uuid", `{"name":"x"}`, adminID, handler.HandleRenameUnit)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("empty body", func(t *testing.T) {
		units := new(MockUnitService)
		handler := NewUnitHandler(units, logger)

		w := serve(t, http.MethodPatch, "/units/{id}", "/units/"+unit.ID.String(), "", adminID, handler.HandleRenameUnit)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandleListAndGetUnits(t *testing.T) {
	logger := zap.NewNop()
	userID := uuid.New()
	clubs := []*models.OrganizationalUnit{
		models.NewOrganizationalUnit("Robotics Club", models.UnitKindClub),
		models.NewOrganizationalUnit("Chess Club", models.UnitKindClub),
	}

	t.Run("filters by kind", func(t *testing.T) {
		units := new(MockUnitService)
		handler := NewUnitHandler(units, logger)
		units.On("List", mock.Anything, models.UnitKindClub).Return(clubs, nil)

		w := serve(t, http.MethodGet, "/units", "/units?kind=club", "", userID, handler.HandleListUnits)

		assert.Equal(t, http.StatusOK, w.Code)
		data := decodeBody(t, w)["data"].([]interface{})
		assert.Len(t, data, 2)
	})

	t.Run("invalid kind from service", func(t *testing.T) {
		units := new(MockUnitService)
		handler := NewUnitHandler(units, logger)
		units.On("List", mock.Anything, models.UnitKind("society")).Return(nil, services.ErrInvalidUnitKind)

		w := serve(t, http.MethodGet, "/units", "/units?kind=society", "", userID, handler.HandleListUnits)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("get missing unit", func(t *testing.T) {
		units := new(MockUnitService)
		handler := NewUnitHandler(units, logger)
		id := uuid.New()
		units.On("Get", mock.Anything, id).Return(nil, services.ErrUnitNotFound)

		w := serve(t, http.MethodGet, "/units/{id}", "/units/"+id.String(), "", userID, handler.HandleGetUnit)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
