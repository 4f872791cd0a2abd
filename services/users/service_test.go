package users

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/club-authz/internal/testutil"
	"github.com/upb/club-authz/models"
	"github.com/upb/club-authz/repositories"
	"github.com/upb/club-authz/services"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) (*Service, *testutil.Env) {
	t.Helper()
	env := testutil.NewEnv(t)
	return NewService(env.Repos, env.Mocks.TxManager, env.Perms, env.Audit, zap.NewNop()), env
}

func TestService_AssignRole(t *testing.T) {
	svc, env := newTestService(t)
	target := models.NewUser("member@example.com", "Member")

	env.Mocks.Users.On("GetByID", mock.Anything, target.ID).Return(target, nil)
	env.Mocks.Users.On("Update", mock.Anything, target).Return(nil).Once()

	user, err := svc.AssignRole(context.Background(), env.Actor, target.ID, models.RoleClubAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.RoleClubAdmin, user.GlobalRole)
	assert.True(t, env.Mocks.TxManager.Last().Committed)
	assert.Equal(t, []models.AuditAction{models.AuditActionRoleChanged}, env.AuditActions(t, 1))

	// Assigning the same role writes nothing
	_, err = svc.AssignRole(context.Background(), env.Actor, target.ID, models.RoleClubAdmin)
	require.NoError(t, err)
	env.Mocks.Users.AssertNumberOfCalls(t, "Update", 1)
}

func TestService_AssignRoleValidation(t *testing.T) {
	svc, env := newTestService(t)
	missing := uuid.New()
	env.Mocks.Users.On("GetByID", mock.Anything, missing).Return(nil, repositories.ErrNotFound)

	_, err := svc.AssignRole(context.Background(), env.Actor, missing, models.GlobalRole("root"))
	assert.Same(t, services.ErrInvalidRole, err)

	_, err = svc.AssignRole(context.Background(), env.Actor, missing, models.RoleBoardAdmin)
	assert.Same(t, services.ErrUserNotFound, err)

	_, err = svc.AssignRole(context.Background(), env.Member(), missing, models.RoleSuperAdmin)
	assert.Same(t, services.ErrSuperAdminRequired, err)
}

func TestService_RemoveAdmin(t *testing.T) {
	svc, env := newTestService(t)
	target := models.NewUser("boardadmin@example.com", "Board Admin")
	target.GlobalRole = models.RoleBoardAdmin

	env.Mocks.Users.On("GetByID", mock.Anything, target.ID).Return(target, nil)
	env.Mocks.Users.On("Update", mock.Anything, target).Return(nil)

	user, err := svc.RemoveAdmin(context.Background(), env.Actor, target.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleMember, user.GlobalRole)
}

func TestService_BanTakesEffectImmediately(t *testing.T) {
	svc, env := newTestService(t)
	ctx := context.Background()

	clubID := uuid.New()
	target := models.NewUser("president@example.com", "President")
	stored := *target
	pt := models.NewPrivilegeType("President", models.AllCapabilitySet)
	a := models.NewPORAssignment(target.ID, pt.ID, models.ClubRef(clubID), testutil.FixedNow.Add(-time.Hour))

	env.Mocks.Users.On("GetByID", mock.Anything, target.ID).Return(&stored, nil)
	env.Mocks.Users.On("Update", mock.Anything, &stored).Return(nil)
	env.Mocks.Assignments.On("ListByUser", mock.Anything, target.ID).Return([]*models.PORAssignment{a}, nil)
	env.Mocks.PrivilegeTypes.On("GetByIDs", mock.Anything, []uuid.UUID{pt.ID}).Return([]*models.PrivilegeType{pt}, nil)

	require.True(t, env.Perms.HasPermission(ctx, models.CapabilityEvents, target.ID, nil, &clubID))

	user, err := svc.Ban(ctx, env.Actor, target.ID)
	require.NoError(t, err)
	assert.True(t, user.IsBanned())
	assert.False(t, env.Perms.HasPermission(ctx, models.CapabilityEvents, target.ID, nil, &clubID))

	user, err = svc.Unban(ctx, env.Actor, target.ID)
	require.NoError(t, err)
	assert.False(t, user.IsBanned())
	assert.True(t, env.Perms.HasPermission(ctx, models.CapabilityEvents, target.ID, nil, &clubID))

	assert.ElementsMatch(t,
		[]models.AuditAction{models.AuditActionUserBanned, models.AuditActionUserUnbanned},
		env.AuditActions(t, 2))
}

func TestService_CannotBanSuperAdmin(t *testing.T) {
	svc, env := newTestService(t)
	other := models.NewUser("root2@example.com", "Root Two")
	other.GlobalRole = models.RoleSuperAdmin

	env.Mocks.Users.On("GetByID", mock.Anything, other.ID).Return(other, nil)

	_, err := svc.Ban(context.Background(), env.Actor, other.ID)
	assert.Same(t, services.ErrCannotBanSuperAdmin, err)
	assert.True(t, env.Mocks.TxManager.Last().RolledBack)
	env.Mocks.Users.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	assert.False(t, other.IsBanned())
}

func TestService_BanIsIdempotent(t *testing.T) {
	svc, env := newTestService(t)
	target := models.NewUser("spammer@example.com", "Spammer")
	target.Status = models.StatusBanned

	env.Mocks.Users.On("GetByID", mock.Anything, target.ID).Return(target, nil)

	user, err := svc.Ban(context.Background(), env.Actor, target.ID)
	require.NoError(t, err)
	assert.True(t, user.IsBanned())
	env.Mocks.Users.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestService_List(t *testing.T) {
	svc, env := newTestService(t)
	list := []*models.User{models.NewUser("a@example.com", "A")}

	env.Mocks.Users.On("List", mock.Anything, defaultPageSize, 0).Return(list, nil)
	env.Mocks.Users.On("List", mock.Anything, maxPageSize, 10).Return(list, nil)

	got, err := svc.List(context.Background(), 0, -5)
	require.NoError(t, err)
	assert.Equal(t, list, got)

	_, err = svc.List(context.Background(), 1000, 10)
	require.NoError(t, err)
	env.Mocks.Users.AssertExpectations(t)
}
