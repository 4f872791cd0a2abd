package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/upb/club-authz/models"
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// UserRepository handles user data operations. Users are never deleted.
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	// GetByEmail retrieves a user by email
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// List retrieves users with pagination
	List(ctx context.Context, limit, offset int) ([]*models.User, error)

	// Update updates name, email, global role and status
	Update(ctx context.Context, user *models.User) error

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) UserRepository
}

// UnitRepository handles club and board data operations
type UnitRepository interface {
	// Create creates a new unit
	Create(ctx context.Context, unit *models.OrganizationalUnit) error

	// GetByID retrieves a unit by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.OrganizationalUnit, error)

	// List retrieves units of the given kind, or all units when kind is empty
	List(ctx context.Context, kind models.UnitKind) ([]*models.OrganizationalUnit, error)

	// Rename changes a unit's name. The kind column is never written after insert.
	Rename(ctx context.Context, id uuid.UUID, name string, updatedAt time.Time) error

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) UnitRepository
}

// PrivilegeTypeRepository handles privilege type catalog operations
type PrivilegeTypeRepository interface {
	// Create creates a new privilege type
	Create(ctx context.Context, pt *models.PrivilegeType) error

	// GetByID retrieves a privilege type by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.PrivilegeType, error)

	// GetByIDs retrieves the privilege types with the given IDs; missing ones are omitted
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.PrivilegeType, error)

	// List retrieves the whole catalog ordered by title
	List(ctx context.Context) ([]*models.PrivilegeType, error)

	// Update updates title and capabilities
	Update(ctx context.Context, pt *models.PrivilegeType) error

	// Delete deletes a privilege type
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) PrivilegeTypeRepository
}

// PORAssignmentRepository handles the position of responsibility ledger
type PORAssignmentRepository interface {
	// Create creates a new assignment
	Create(ctx context.Context, a *models.PORAssignment) error

	// GetByID retrieves an assignment by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.PORAssignment, error)

	// ListByUser retrieves every assignment of a user, past and future included
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.PORAssignment, error)

	// ListByUnit retrieves every assignment scoped to a club or board
	ListByUnit(ctx context.Context, unitID uuid.UUID) ([]*models.PORAssignment, error)

	// CountActiveByPrivilegeType counts assignments of a privilege type in force at, or after, at
	CountActiveByPrivilegeType(ctx context.Context, privilegeTypeID uuid.UUID, at time.Time) (int, error)

	// ListUserIDsByPrivilegeType returns the distinct users holding a privilege type
	ListUserIDsByPrivilegeType(ctx context.Context, privilegeTypeID uuid.UUID) ([]uuid.UUID, error)

	// Update updates privilege type, unit and dates
	Update(ctx context.Context, a *models.PORAssignment) error

	// Delete hard deletes an assignment
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) PORAssignmentRepository
}

// AuditRepository handles audit log data operations
type AuditRepository interface {
	// Insert inserts a new audit log entry
	Insert(ctx context.Context, log *models.AuditLog) error

	// GetByID retrieves an audit log by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.AuditLog, error)

	// GetByActor retrieves audit logs written by an actor with pagination
	GetByActor(ctx context.Context, actorID uuid.UUID, limit, offset int) ([]*models.AuditLog, error)

	// GetBySubject retrieves audit logs about a user with pagination
	GetBySubject(ctx context.Context, subjectID uuid.UUID, limit, offset int) ([]*models.AuditLog, error)

	// GetByUnit retrieves audit logs for a club or board with pagination
	GetByUnit(ctx context.Context, unitID uuid.UUID, limit, offset int) ([]*models.AuditLog, error)

	// GetByRequestID retrieves audit logs by request ID
	GetByRequestID(ctx context.Context, requestID string) ([]*models.AuditLog, error)

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) AuditRepository
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Users          UserRepository
	Units          UnitRepository
	PrivilegeTypes PrivilegeTypeRepository
	Assignments    PORAssignmentRepository
	AuditLogs      AuditRepository
}
