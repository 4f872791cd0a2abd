package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/club-authz/auth"
	"github.com/upb/club-authz/internal/authz"
	"github.com/upb/club-authz/middleware"
	"github.com/upb/club-authz/models"
	"github.com/upb/club-authz/services"
	"github.com/upb/club-authz/services/ledger"
	"github.com/upb/club-authz/services/permission"
)

// MockPermissionService is a mock implementation of PermissionService
type MockPermissionService struct {
	mock.Mock
}

func (m *MockPermissionService) Check(ctx context.Context, capability models.Capability, userID uuid.UUID, boardID, clubID *uuid.UUID) (authz.Decision, error) {
	args := m.Called(ctx, capability, userID, boardID, clubID)
	return args.Get(0).(authz.Decision), args.Error(1)
}

func (m *MockPermissionService) GrantedCapabilities(ctx context.Context, userID, unitID uuid.UUID) (models.CapabilitySet, error) {
	args := m.Called(ctx, userID, unitID)
	return args.Get(0).(models.CapabilitySet), args.Error(1)
}

func (m *MockPermissionService) Identity(ctx context.Context, userID uuid.UUID) (*permission.IdentityView, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*permission.IdentityView), args.Error(1)
}

// MockUnitService is a mock implementation of UnitService
type MockUnitService struct {
	mock.Mock
}

func (m *MockUnitService) Create(ctx context.Context, actor services.Actor, name string, kind models.UnitKind) (*models.OrganizationalUnit, error) {
	args := m.Called(ctx, actor, name, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OrganizationalUnit), args.Error(1)
}

func (m *MockUnitService) Rename(ctx context.Context, actor services.Actor, id uuid.UUID, name string) (*models.OrganizationalUnit, error) {
	args := m.Called(ctx, actor, id, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OrganizationalUnit), args.Error(1)
}

func (m *MockUnitService) Get(ctx context.Context, id uuid.UUID) (*models.OrganizationalUnit, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OrganizationalUnit), args.Error(1)
}

func (m *MockUnitService) List(ctx context.Context, kind models.UnitKind) ([]*models.OrganizationalUnit, error) {
	args := m.Called(ctx, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.OrganizationalUnit), args.Error(1)
}

// MockCatalogService is a mock implementation of CatalogService
type MockCatalogService struct {
	mock.Mock
}

func (m *MockCatalogService) Create(ctx context.Context, actor services.Actor, title string, caps models.CapabilitySet) (*models.PrivilegeType, error) {
	args := m.Called(ctx, actor, title, caps)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PrivilegeType), args.Error(1)
}

func (m *MockCatalogService) Update(ctx context.Context, actor services.Actor, id uuid.UUID, title string, caps models.CapabilitySet) (*models.PrivilegeType, error) {
	args := m.Called(ctx, actor, id, title, caps)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PrivilegeType), args.Error(1)
}

func (m *MockCatalogService) Delete(ctx context.Context, actor services.Actor, id uuid.UUID) error {
	args := m.Called(ctx, actor, id)
	return args.Error(0)
}

func (m *MockCatalogService) Get(ctx context.Context, id uuid.UUID) (*models.PrivilegeType, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PrivilegeType), args.Error(1)
}

func (m *MockCatalogService) List(ctx context.Context) ([]*models.PrivilegeType, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.PrivilegeType), args.Error(1)
}

// MockLedgerService is a mock implementation of LedgerService
type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) Assign(ctx context.Context, actor services.Actor, in ledger.AssignInput) (*models.PORAssignment, error) {
	args := m.Called(ctx, actor, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PORAssignment), args.Error(1)
}

func (m *MockLedgerService) Edit(ctx context.Context, actor services.Actor, id uuid.UUID, in ledger.EditInput) (*models.PORAssignment, error) {
	args := m.Called(ctx, actor, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PORAssignment), args.Error(1)
}

func (m *MockLedgerService) Revoke(ctx context.Context, actor services.Actor, id uuid.UUID) (*models.PORAssignment, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PORAssignment), args.Error(1)
}

func (m *MockLedgerService) Delete(ctx context.Context, actor services.Actor, id uuid.UUID) error {
	args := m.Called(ctx, actor, id)
	return args.Error(0)
}

func (m *MockLedgerService) Get(ctx context.Context, id uuid.UUID) (*models.PORAssignment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PORAssignment), args.Error(1)
}

func (m *MockLedgerService) ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.PORAssignment, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.PORAssignment), args.Error(1)
}

func (m *MockLedgerService) ListForUnit(ctx context.Context, unitID uuid.UUID) ([]*models.PORAssignment, error) {
	args := m.Called(ctx, unitID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.PORAssignment), args.Error(1)
}

// MockUserService is a mock implementation of UserService
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *MockUserService) AssignRole(ctx context.Context, actor services.Actor, userID uuid.UUID, role models.GlobalRole) (*models.User, error) {
	args := m.Called(ctx, actor, userID, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) RemoveAdmin(ctx context.Context, actor services.Actor, userID uuid.UUID) (*models.User, error) {
	return m.userMutation("RemoveAdmin", ctx, actor, userID)
}

func (m *MockUserService) Ban(ctx context.Context, actor services.Actor, userID uuid.UUID) (*models.User, error) {
	return m.userMutation("Ban", ctx, actor, userID)
}

func (m *MockUserService) Unban(ctx context.Context, actor services.Actor, userID uuid.UUID) (*models.User, error) {
	return m.userMutation("Unban", ctx, actor, userID)
}

func (m *MockUserService) userMutation(method string, ctx context.Context, actor services.Actor, userID uuid.UUID) (*models.User, error) {
	args := m.MethodCalled(method, ctx, actor, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// serve routes a single request through a chi router so URL params resolve.
// A non-nil userID is installed as the authenticated principal.
func serve(t *testing.T, method, pattern, target, body string, userID uuid.UUID, h http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()

	r := chi.NewRouter()
	r.MethodFunc(method, pattern, h)

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != uuid.Nil {
		req = req.WithContext(middleware.WithPrincipal(req.Context(), &auth.Principal{UserID: userID}))
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// decodeBody decodes a JSON response body into a generic map
func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func actorMatcher(userID uuid.UUID) interface{} {
	return mock.MatchedBy(func(a services.Actor) bool { return a.UserID == userID })
}
