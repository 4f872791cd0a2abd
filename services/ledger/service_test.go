package ledger

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

type ledgerFixture struct {
	env       *testutil.Env
	svc       *Service
	holder    *models.User
	secretary *models.PrivilegeType
	club      *models.OrganizationalUnit
	board     *models.OrganizationalUnit
}

func newFixture(t *testing.T) *ledgerFixture {
	t.Helper()
	env := testutil.NewEnv(t)

	f := &ledgerFixture{
		env:       env,
		svc:       NewService(env.Repos, env.Mocks.TxManager, env.Perms, env.Audit, zap.NewNop()),
		holder:    models.NewUser("secretary@example.com", "Secretary"),
		secretary: models.NewPrivilegeType("Secretary", models.NewCapabilitySet(models.CapabilityBlogs)),
		club:      models.NewOrganizationalUnit("Robotics Club", models.UnitKindClub),
		board:     models.NewOrganizationalUnit("Technical Board", models.UnitKindBoard),
	}

	env.Mocks.Users.On("GetByID", mock.Anything, f.holder.ID).Return(f.holder, nil).Maybe()
	env.Mocks.PrivilegeTypes.On("GetByID", mock.Anything, f.secretary.ID).Return(f.secretary, nil).Maybe()
	env.Mocks.PrivilegeTypes.On("GetByIDs", mock.Anything, []uuid.UUID{f.secretary.ID}).
		Return([]*models.PrivilegeType{f.secretary}, nil).Maybe()
	env.Mocks.Units.On("GetByID", mock.Anything, f.club.ID).Return(f.club, nil).Maybe()
	env.Mocks.Units.On("GetByID", mock.Anything, f.board.ID).Return(f.board, nil).Maybe()

	return f
}

func (f *ledgerFixture) assignInput() AssignInput {
	return AssignInput{
		UserID:          f.holder.ID,
		PrivilegeTypeID: f.secretary.ID,
		Unit:            models.ClubRef(f.club.ID),
		StartDate:       testutil.FixedNow.Add(-time.Hour),
	}
}

func TestService_AssignThenRevoke(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mocks := f.env.Mocks

	// row plays the stored record
	var row models.PORAssignment
	mocks.Assignments.On("Create", mock.Anything, mock.AnythingOfType("*models.PORAssignment")).
		Run(func(args mock.Arguments) { row = *args.Get(1).(*models.PORAssignment) }).
		Return(nil)
	mocks.Assignments.On("ListByUser", mock.Anything, f.holder.ID).Return([]*models.PORAssignment{&row}, nil)
	mocks.Assignments.On("GetByID", mock.Anything, mock.Anything).Return(&row, nil)
	mocks.Assignments.On("Update", mock.Anything, mock.AnythingOfType("*models.PORAssignment")).
		Run(func(args mock.Arguments) { row = *args.Get(1).(*models.PORAssignment) }).
		Return(nil)

	a, err := f.svc.Assign(ctx, f.env.Actor, f.assignInput())
	require.NoError(t, err)
	require.NotNil(t, a.CreatedBy)
	assert.Equal(t, f.env.Admin.ID, *a.CreatedBy)
	assert.True(t, mocks.TxManager.Last().Committed)

	clubID := f.club.ID
	otherClub := uuid.New()
	assert.True(t, f.env.Perms.HasPermission(ctx, models.CapabilityBlogs, f.holder.ID, nil, &clubID))
	assert.False(t, f.env.Perms.HasPermission(ctx, models.CapabilityEvents, f.holder.ID, nil, &clubID))
	assert.False(t, f.env.Perms.HasPermission(ctx, models.CapabilityBlogs, f.holder.ID, nil, &otherClub))

	f.env.Clock.Advance(time.Minute)
	revoked, err := f.svc.Revoke(ctx, f.env.Actor, a.ID)
	require.NoError(t, err)
	require.NotNil(t, revoked.EndDate)
	assert.Equal(t, testutil.FixedNow.Add(time.Minute), *revoked.EndDate)
	assert.Equal(t, testutil.FixedNow.Add(-time.Hour), revoked.StartDate)

	// The revoke is visible to the next check
	f.env.Clock.Advance(time.Second)
	assert.False(t, f.env.Perms.HasPermission(ctx, models.CapabilityBlogs, f.holder.ID, nil, &clubID))

	// Revoking twice is a conflict
	_, err = f.svc.Revoke(ctx, f.env.Actor, a.ID)
	assert.Same(t, services.ErrAssignmentAlreadyEnded, err)

	assert.ElementsMatch(t,
		[]models.AuditAction{models.AuditActionPORAssigned, models.AuditActionPORRevoked},
		f.env.AuditActions(t, 2))
}

func TestService_AssignDefaultsStartToNow(t *testing.T) {
	f := newFixture(t)
	f.env.Mocks.Assignments.On("Create", mock.Anything, mock.Anything).Return(nil)

	in := f.assignInput()
	in.StartDate = time.Time{}

	a, err := f.svc.Assign(context.Background(), f.env.Actor, in)
	require.NoError(t, err)
	assert.Equal(t, testutil.FixedNow, a.StartDate)
	assert.Nil(t, a.EndDate)
}

func TestService_AssignValidation(t *testing.T) {
	unknownUser := uuid.New()
	unknownType := uuid.New()
	unknownUnit := uuid.New()

	tests := []struct {
		name    string
		mutate  func(f *ledgerFixture, in *AssignInput)
		wantErr *services.DomainError
		wantTx  bool
	}{
		{
			name: "both club and board",
			mutate: func(f *ledgerFixture, in *AssignInput) {
				clubID, boardID := f.club.ID, f.board.ID
				in.Unit = models.UnitRef{ClubID: &clubID, BoardID: &boardID}
			},
			wantErr: services.ErrInvalidUnitRef,
		},
		{
			name:    "neither club nor board",
			mutate:  func(f *ledgerFixture, in *AssignInput) { in.Unit = models.UnitRef{} },
			wantErr: services.ErrInvalidUnitRef,
		},
		{
			name: "end before start",
			mutate: func(f *ledgerFixture, in *AssignInput) {
				end := in.StartDate.Add(-time.Minute)
				in.EndDate = &end
			},
			wantErr: services.ErrInvalidDateRange,
		},
		{
			name:    "unknown user",
			mutate:  func(f *ledgerFixture, in *AssignInput) { in.UserID = unknownUser },
			wantErr: services.ErrUserNotFound,
			wantTx:  true,
		},
		{
			name:    "unknown privilege type",
			mutate:  func(f *ledgerFixture, in *AssignInput) { in.PrivilegeTypeID = unknownType },
			wantErr: services.ErrPrivilegeTypeNotFound,
			wantTx:  true,
		},
		{
			name:    "unknown unit",
			mutate:  func(f *ledgerFixture, in *AssignInput) { in.Unit = models.ClubRef(unknownUnit) },
			wantErr: services.ErrUnitNotFound,
			wantTx:  true,
		},
		{
			name:    "board given as club",
			mutate:  func(f *ledgerFixture, in *AssignInput) { in.Unit = models.ClubRef(f.board.ID) },
			wantErr: services.ErrUnitKindMismatch,
			wantTx:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			mocks := f.env.Mocks
			mocks.Users.On("GetByID", mock.Anything, unknownUser).Return(nil, repositories.ErrNotFound).Maybe()
			mocks.PrivilegeTypes.On("GetByID", mock.Anything, unknownType).Return(nil, repositories.ErrNotFound).Maybe()
			mocks.Units.On("GetByID", mock.Anything, unknownUnit).Return(nil, repositories.ErrNotFound).Maybe()

			in := f.assignInput()
			tt.mutate(f, &in)

			_, err := f.svc.Assign(context.Background(), f.env.Actor, in)
			assert.Same(t, tt.wantErr, err)
			mocks.Assignments.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)

			if tt.wantTx {
				assert.True(t, mocks.TxManager.Last().RolledBack)
			} else {
				assert.Nil(t, mocks.TxManager.Last())
			}
		})
	}
}

func TestService_AssignRequiresSuperAdmin(t *testing.T) {
	f := newFixture(t)

	clubAdmin := models.NewUser("clubadmin@example.com", "Club Admin")
	clubAdmin.GlobalRole = models.RoleClubAdmin
	f.env.Mocks.StubUser(clubAdmin)

	_, err := f.svc.Assign(context.Background(), services.NewActor(clubAdmin.ID, ""), f.assignInput())
	assert.Same(t, services.ErrSuperAdminRequired, err)

	banned := models.NewUser("banned@example.com", "Banned Root")
	banned.GlobalRole = models.RoleSuperAdmin
	banned.Status = models.StatusBanned
	f.env.Mocks.StubUser(banned)

	_, err = f.svc.Assign(context.Background(), services.NewActor(banned.ID, ""), f.assignInput())
	assert.Same(t, services.ErrSuperAdminRequired, err)

	f.env.Mocks.Assignments.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestService_RevokeFutureAssignment(t *testing.T) {
	f := newFixture(t)

	start := testutil.FixedNow.Add(24 * time.Hour)
	future := models.NewPORAssignment(f.holder.ID, f.secretary.ID, models.ClubRef(f.club.ID), start)
	f.env.Mocks.Assignments.On("GetByID", mock.Anything, future.ID).Return(future, nil)
	f.env.Mocks.Assignments.On("Delete", mock.Anything, future.ID).Return(nil)

	revoked, err := f.svc.Revoke(context.Background(), f.env.Actor, future.ID)
	require.NoError(t, err)
	assert.Equal(t, start, revoked.StartDate)
	assert.Nil(t, revoked.EndDate)

	// The record is gone rather than collapsed onto the revoking instant
	f.env.Mocks.Assignments.AssertCalled(t, "Delete", mock.Anything, future.ID)
	f.env.Mocks.Assignments.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	assert.True(t, f.env.Mocks.TxManager.Last().Committed)
	assert.Equal(t, []models.AuditAction{models.AuditActionPORRevoked}, f.env.AuditActions(t, 1))
}

func TestService_RevokeNotFound(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()
	f.env.Mocks.Assignments.On("GetByID", mock.Anything, id).Return(nil, repositories.ErrNotFound)

	_, err := f.svc.Revoke(context.Background(), f.env.Actor, id)
	assert.Same(t, services.ErrAssignmentNotFound, err)
}

func TestService_Delete(t *testing.T) {
	f := newFixture(t)
	a := models.NewPORAssignment(f.holder.ID, f.secretary.ID, models.ClubRef(f.club.ID), testutil.FixedNow.Add(-time.Hour))

	f.env.Mocks.Assignments.On("GetByID", mock.Anything, a.ID).Return(a, nil)
	f.env.Mocks.Assignments.On("Delete", mock.Anything, a.ID).Return(nil)

	require.NoError(t, f.svc.Delete(context.Background(), f.env.Actor, a.ID))
	f.env.Mocks.Assignments.AssertCalled(t, "Delete", mock.Anything, a.ID)
	assert.True(t, f.env.Mocks.TxManager.Last().Committed)
	assert.Equal(t, []models.AuditAction{models.AuditActionPORDeleted}, f.env.AuditActions(t, 1))

	err := f.svc.Delete(context.Background(), f.env.Member(), a.ID)
	assert.Same(t, services.ErrSuperAdminRequired, err)
}

func TestService_Edit(t *testing.T) {
	f := newFixture(t)
	a := models.NewPORAssignment(f.holder.ID, f.secretary.ID, models.ClubRef(f.club.ID), testutil.FixedNow.Add(-time.Hour))
	original := *a

	f.env.Mocks.Assignments.On("GetByID", mock.Anything, a.ID).Return(a, nil)
	f.env.Mocks.Assignments.On("Update", mock.Anything, a).Return(nil)

	end := testutil.FixedNow.Add(30 * 24 * time.Hour)
	edited, err := f.svc.Edit(context.Background(), f.env.Actor, a.ID, EditInput{
		PrivilegeTypeID: f.secretary.ID,
		Unit:            models.BoardRef(f.board.ID),
		EndDate:         &end,
	})
	require.NoError(t, err)
	assert.Equal(t, f.board.ID, edited.Unit.UnitID())
	assert.Equal(t, models.UnitKindBoard, edited.Unit.Kind())
	assert.Equal(t, original.StartDate, edited.StartDate)
	assert.Equal(t, &end, edited.EndDate)
	assert.Equal(t, original.UserID, edited.UserID)

	assert.Equal(t, []models.AuditAction{models.AuditActionPORUpdated}, f.env.AuditActions(t, 1))
}

func TestService_EditRevalidates(t *testing.T) {
	tests := []struct {
		name    string
		in      func(f *ledgerFixture) EditInput
		wantErr *services.DomainError
	}{
		{
			name: "both refs",
			in: func(f *ledgerFixture) EditInput {
				clubID, boardID := f.club.ID, f.board.ID
				return EditInput{PrivilegeTypeID: f.secretary.ID, Unit: models.UnitRef{ClubID: &clubID, BoardID: &boardID}}
			},
			wantErr: services.ErrInvalidUnitRef,
		},
		{
			name: "dates reversed",
			in: func(f *ledgerFixture) EditInput {
				end := testutil.FixedNow.Add(-48 * time.Hour)
				return EditInput{PrivilegeTypeID: f.secretary.ID, Unit: models.ClubRef(f.club.ID), EndDate: &end}
			},
			wantErr: services.ErrInvalidDateRange,
		},
		{
			name: "club given as board",
			in: func(f *ledgerFixture) EditInput {
				return EditInput{PrivilegeTypeID: f.secretary.ID, Unit: models.BoardRef(f.club.ID)}
			},
			wantErr: services.ErrUnitKindMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			a := models.NewPORAssignment(f.holder.ID, f.secretary.ID, models.ClubRef(f.club.ID), testutil.FixedNow.Add(-time.Hour))
			f.env.Mocks.Assignments.On("GetByID", mock.Anything, a.ID).Return(a, nil)

			_, err := f.svc.Edit(context.Background(), f.env.Actor, a.ID, tt.in(f))
			assert.Same(t, tt.wantErr, err)
			assert.True(t, f.env.Mocks.TxManager.Last().RolledBack)
			f.env.Mocks.Assignments.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
		})
	}
}

func TestService_Reads(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := models.NewPORAssignment(f.holder.ID, f.secretary.ID, models.ClubRef(f.club.ID), testutil.FixedNow)
	missing := uuid.New()

	f.env.Mocks.Assignments.On("GetByID", mock.Anything, a.ID).Return(a, nil)
	f.env.Mocks.Assignments.On("GetByID", mock.Anything, missing).Return(nil, repositories.ErrNotFound)
	f.env.Mocks.Assignments.On("ListByUser", mock.Anything, f.holder.ID).Return([]*models.PORAssignment{a}, nil)
	f.env.Mocks.Assignments.On("ListByUnit", mock.Anything, f.club.ID).Return([]*models.PORAssignment{a}, nil)

	got, err := f.svc.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a, got)

	_, err = f.svc.Get(ctx, missing)
	assert.Same(t, services.ErrAssignmentNotFound, err)

	byUser, err := f.svc.ListForUser(ctx, f.holder.ID)
	require.NoError(t, err)
	assert.Len(t, byUser, 1)

	byUnit, err := f.svc.ListForUnit(ctx, f.club.ID)
	require.NoError(t, err)
	assert.Len(t, byUnit, 1)
}
