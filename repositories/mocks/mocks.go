// Package mocks provides testify mocks of the repository interfaces for service and
// handler tests. WithTx returns the receiver so tests stub one mock per repository.
package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/upb/club-authz/models"
	"github.com/upb/club-authz/repositories"
)

// UserRepository is a mock implementation of repositories.UserRepository
type UserRepository struct {
	mock.Mock
}

func (m *UserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if user := args.Get(0); user != nil {
		return user.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if user := args.Get(0); user != nil {
		return user.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *UserRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	args := m.Called(ctx, limit, offset)
	if users := args.Get(0); users != nil {
		return users.([]*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *UserRepository) Update(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *UserRepository) WithTx(tx repositories.Transaction) repositories.UserRepository {
	return m
}

// UnitRepository is a mock implementation of repositories.UnitRepository
type UnitRepository struct {
	mock.Mock
}

func (m *UnitRepository) Create(ctx context.Context, unit *models.OrganizationalUnit) error {
	args := m.Called(ctx, unit)
	return args.Error(0)
}

func (m *UnitRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.OrganizationalUnit, error) {
	args := m.Called(ctx, id)
	if unit := args.Get(0); unit != nil {
		return unit.(*models.OrganizationalUnit), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *UnitRepository) List(ctx context.Context, kind models.UnitKind) ([]*models.OrganizationalUnit, error) {
	args := m.Called(ctx, kind)
	if units := args.Get(0); units != nil {
		return units.([]*models.OrganizationalUnit), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *UnitRepository) Rename(ctx context.Context, id uuid.UUID, name string, updatedAt time.Time) error {
	args := m.Called(ctx, id, name, updatedAt)
	return args.Error(0)
}

func (m *UnitRepository) WithTx(tx repositories.Transaction) repositories.UnitRepository {
	return m
}

// PrivilegeTypeRepository is a mock implementation of repositories.PrivilegeTypeRepository
type PrivilegeTypeRepository struct {
	mock.Mock
}

func (m *PrivilegeTypeRepository) Create(ctx context.Context, pt *models.PrivilegeType) error {
	args := m.Called(ctx, pt)
	return args.Error(0)
}

func (m *PrivilegeTypeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.PrivilegeType, error) {
	args := m.Called(ctx, id)
	if pt := args.Get(0); pt != nil {
		return pt.(*models.PrivilegeType), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *PrivilegeTypeRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.PrivilegeType, error) {
	args := m.Called(ctx, ids)
	if pts := args.Get(0); pts != nil {
		return pts.([]*models.PrivilegeType), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *PrivilegeTypeRepository) List(ctx context.Context) ([]*models.PrivilegeType, error) {
	args := m.Called(ctx)
	if pts := args.Get(0); pts != nil {
		return pts.([]*models.PrivilegeType), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *PrivilegeTypeRepository) Update(ctx context.Context, pt *models.PrivilegeType) error {
	args := m.Called(ctx, pt)
	return args.Error(0)
}

func (m *PrivilegeTypeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *PrivilegeTypeRepository) WithTx(tx repositories.Transaction) repositories.PrivilegeTypeRepository {
	return m
}

// PORAssignmentRepository is a mock implementation of repositories.PORAssignmentRepository
type PORAssignmentRepository struct {
	mock.Mock
}

func (m *PORAssignmentRepository) Create(ctx context.Context, a *models.PORAssignment) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *PORAssignmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.PORAssignment, error) {
	args := m.Called(ctx, id)
	if a := args.Get(0); a != nil {
		return a.(*models.PORAssignment), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *PORAssignmentRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.PORAssignment, error) {
	args := m.Called(ctx, userID)
	if list := args.Get(0); list != nil {
		return list.([]*models.PORAssignment), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *PORAssignmentRepository) ListByUnit(ctx context.Context, unitID uuid.UUID) ([]*models.PORAssignment, error) {
	args := m.Called(ctx, unitID)
	if list := args.Get(0); list != nil {
		return list.([]*models.PORAssignment), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *PORAssignmentRepository) CountActiveByPrivilegeType(ctx context.Context, privilegeTypeID uuid.UUID, at time.Time) (int, error) {
	args := m.Called(ctx, privilegeTypeID, at)
	return args.Int(0), args.Error(1)
}

func (m *PORAssignmentRepository) ListUserIDsByPrivilegeType(ctx context.Context, privilegeTypeID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, privilegeTypeID)
	if ids := args.Get(0); ids != nil {
		return ids.([]uuid.UUID), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *PORAssignmentRepository) Update(ctx context.Context, a *models.PORAssignment) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *PORAssignmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *PORAssignmentRepository) WithTx(tx repositories.Transaction) repositories.PORAssignmentRepository {
	return m
}

// AuditRepository is a mock implementation of repositories.AuditRepository.
// Inserted logs are recorded for assertions from worker goroutines.
type AuditRepository struct {
	mock.Mock
	mu           sync.Mutex
	insertedLogs []*models.AuditLog
}

func (m *AuditRepository) Insert(ctx context.Context, log *models.AuditLog) error {
	args := m.Called(ctx, log)
	m.mu.Lock()
	m.insertedLogs = append(m.insertedLogs, log)
	m.mu.Unlock()
	return args.Error(0)
}

// Inserted returns a copy of every log passed to Insert
func (m *AuditRepository) Inserted() []*models.AuditLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.AuditLog, len(m.insertedLogs))
	copy(out, m.insertedLogs)
	return out
}

func (m *AuditRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.AuditLog, error) {
	args := m.Called(ctx, id)
	if log := args.Get(0); log != nil {
		return log.(*models.AuditLog), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *AuditRepository) GetByActor(ctx context.Context, actorID uuid.UUID, limit, offset int) ([]*models.AuditLog, error) {
	args := m.Called(ctx, actorID, limit, offset)
	if logs := args.Get(0); logs != nil {
		return logs.([]*models.AuditLog), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *AuditRepository) GetBySubject(ctx context.Context, subjectID uuid.UUID, limit, offset int) ([]*models.AuditLog, error) {
	args := m.Called(ctx, subjectID, limit, offset)
	if logs := args.Get(0); logs != nil {
		return logs.([]*models.AuditLog), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *AuditRepository) GetByUnit(ctx context.Context, unitID uuid.UUID, limit, offset int) ([]*models.AuditLog, error) {
	args := m.Called(ctx, unitID, limit, offset)
	if logs := args.Get(0); logs != nil {
		return logs.([]*models.AuditLog), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *AuditRepository) GetByRequestID(ctx context.Context, requestID string) ([]*models.AuditLog, error) {
	args := m.Called(ctx, requestID)
	if logs := args.Get(0); logs != nil {
		return logs.([]*models.AuditLog), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *AuditRepository) WithTx(tx repositories.Transaction) repositories.AuditRepository {
	return m
}

// TransactionManager runs transactions against an in-memory Transaction.
// BeginErr, when set, is returned by Begin. CommitErr and RollbackErr are
// handed to every transaction it starts.
type TransactionManager struct {
	mu          sync.Mutex
	BeginErr    error
	CommitErr   error
	RollbackErr error
	Started     []*Transaction
}

func (m *TransactionManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	if m.BeginErr != nil {
		return nil, m.BeginErr
	}
	m.mu.Lock()
	tx := &Transaction{ctx: ctx, commitErr: m.CommitErr, rollbackErr: m.RollbackErr}
	m.Started = append(m.Started, tx)
	m.mu.Unlock()
	return tx, nil
}

func (m *TransactionManager) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	tx, err := m.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(tx.Context(), tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Last returns the most recently started transaction, or nil
func (m *TransactionManager) Last() *Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Started) == 0 {
		return nil
	}
	return m.Started[len(m.Started)-1]
}

// Transaction records whether it was committed or rolled back
type Transaction struct {
	ctx         context.Context
	commitErr   error
	rollbackErr error
	Committed   bool
	RolledBack  bool
}

func (t *Transaction) Commit() error {
	if t.commitErr != nil {
		return t.commitErr
	}
	t.Committed = true
	return nil
}

func (t *Transaction) Rollback() error {
	t.RolledBack = true
	return t.rollbackErr
}

func (t *Transaction) Context() context.Context {
	return t.ctx
}

// Repositories returns a repositories.Repositories wired to fresh mocks
func Repositories() (*repositories.Repositories, *Set) {
	set := &Set{
		Users:          new(UserRepository),
		Units:          new(UnitRepository),
		PrivilegeTypes: new(PrivilegeTypeRepository),
		Assignments:    new(PORAssignmentRepository),
		AuditLogs:      new(AuditRepository),
		TxManager:      new(TransactionManager),
	}
	return &repositories.Repositories{
		Users:          set.Users,
		Units:          set.Units,
		PrivilegeTypes: set.PrivilegeTypes,
		Assignments:    set.Assignments,
		AuditLogs:      set.AuditLogs,
	}, set
}

// Set groups the concrete mocks behind a repositories.Repositories
type Set struct {
	Users          *UserRepository
	Units          *UnitRepository
	PrivilegeTypes *PrivilegeTypeRepository
	Assignments    *PORAssignmentRepository
	AuditLogs      *AuditRepository
	TxManager      *TransactionManager
}

// StubUser makes user resolvable with no POR assignments, for any number of calls
func (s *Set) StubUser(user *models.User) {
	s.Users.On("GetByID", mock.Anything, user.ID).Return(user, nil).Maybe()
	s.Assignments.On("ListByUser", mock.Anything, user.ID).Return([]*models.PORAssignment{}, nil).Maybe()
}

// AcceptAudit makes every audit insert succeed
func (s *Set) AcceptAudit() {
	s.AuditLogs.On("Insert", mock.Anything, mock.Anything).Return(nil).Maybe()
}
