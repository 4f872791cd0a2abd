package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/upb/club-authz/models"
	"github.com/upb/club-authz/repositories"
	"github.com/upb/club-authz/services"
	"github.com/upb/club-authz/services/audit"
	"github.com/upb/club-authz/services/permission"
	"github.com/upb/club-authz/services/units"
	"go.uber.org/zap"
)

// AssignInput describes a new POR assignment. A zero StartDate means now.
type AssignInput struct {
	UserID          uuid.UUID
	PrivilegeTypeID uuid.UUID
	Unit            models.UnitRef
	StartDate       time.Time
	EndDate         *time.Time
}

// EditInput replaces the privilege type, unit and dates of an assignment.
// The holder of an assignment never changes.
type EditInput struct {
	PrivilegeTypeID uuid.UUID
	Unit            models.UnitRef
	StartDate       time.Time
	EndDate         *time.Time
}

// Service manages the POR ledger. Every mutation is gated by the super admin
// branch of the evaluator, runs in one transaction and refreshes the holder's
// snapshot before returning.
type Service struct {
	repos  *repositories.Repositories
	txMgr  repositories.TransactionManager
	perms  *permission.Service
	audit  *audit.AuditService
	logger *zap.Logger
}

// NewService creates a new ledger Service
func NewService(repos *repositories.Repositories, txMgr repositories.TransactionManager, perms *permission.Service, auditSvc *audit.AuditService, logger *zap.Logger) *Service {
	return &Service{
		repos:  repos,
		txMgr:  txMgr,
		perms:  perms,
		audit:  auditSvc,
		logger: logger,
	}
}

// Assign creates a POR assignment
func (s *Service) Assign(ctx context.Context, actor services.Actor, in AssignInput) (*models.PORAssignment, error) {
	if err := s.perms.RequireSuperAdmin(ctx, actor.UserID); err != nil {
		return nil, err
	}

	if in.StartDate.IsZero() {
		in.StartDate = s.perms.Evaluator().Now()
	}

	a := models.NewPORAssignment(in.UserID, in.PrivilegeTypeID, in.Unit, in.StartDate)
	a.EndDate = in.EndDate
	a.CreatedBy = &actor.UserID
	if err := validate(a); err != nil {
		return nil, err
	}

	err := services.WithTransaction(ctx, s.txMgr, func(ctx context.Context, tx repositories.Transaction) error {
		if _, err := s.repos.Users.WithTx(tx).GetByID(ctx, a.UserID); err != nil {
			return services.TranslateRepositoryError(err, services.ErrUserNotFound, nil)
		}
		if err := s.checkReferences(ctx, tx, a); err != nil {
			return err
		}
		if err := s.repos.Assignments.WithTx(tx).Create(ctx, a); err != nil {
			return services.TranslateRepositoryError(err, nil, services.ErrInvalidUnitRef)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.perms.RefreshUser(a.UserID)

	s.logger.Info("assigned POR",
		zap.String("assignment_id", a.ID.String()),
		zap.String("user_id", a.UserID.String()),
		zap.String("privilege_type_id", a.PrivilegeTypeID.String()),
		zap.String("unit_id", a.Unit.UnitID().String()),
		zap.String("actor_id", actor.UserID.String()))

	if err := s.audit.LogPORAssigned(actor, a); err != nil {
		s.logger.Warn("failed to queue audit event", zap.Error(err))
	}

	return a, nil
}

// Revoke ends an assignment now and keeps the record. An assignment that has not
// started yet never granted anything, so its record is removed instead and only
// the audit event remains. Checks made after the revoking instant no longer see it.
func (s *Service) Revoke(ctx context.Context, actor services.Actor, id uuid.UUID) (*models.PORAssignment, error) {
	if err := s.perms.RequireSuperAdmin(ctx, actor.UserID); err != nil {
		return nil, err
	}

	now := s.perms.Evaluator().Now()
	a, err := services.WithTransactionResult(ctx, s.txMgr, func(ctx context.Context, tx repositories.Transaction) (*models.PORAssignment, error) {
		repo := s.repos.Assignments.WithTx(tx)

		a, err := repo.GetByID(ctx, id)
		if err != nil {
			return nil, services.TranslateRepositoryError(err, services.ErrAssignmentNotFound, nil)
		}
		if a.EndDate != nil && !a.EndDate.After(now) {
			return nil, services.ErrAssignmentAlreadyEnded
		}

		if a.StartDate.After(now) {
			if err := repo.Delete(ctx, id); err != nil {
				return nil, services.TranslateRepositoryError(err, services.ErrAssignmentNotFound, nil)
			}
			return a, nil
		}

		a.EndDate = &now
		a.UpdatedAt = time.Now()
		if err := repo.Update(ctx, a); err != nil {
			return nil, services.TranslateRepositoryError(err, services.ErrAssignmentNotFound, nil)
		}
		return a, nil
	})
	if err != nil {
		return nil, err
	}

	s.perms.RefreshUser(a.UserID)

	s.logger.Info("revoked POR",
		zap.String("assignment_id", a.ID.String()),
		zap.String("user_id", a.UserID.String()),
		zap.String("actor_id", actor.UserID.String()))

	if err := s.audit.LogPORRevoked(actor, a); err != nil {
		s.logger.Warn("failed to queue audit event", zap.Error(err))
	}

	return a, nil
}

// Delete removes an assignment record. It exists for data correction; Revoke is
// the way to end a position.
func (s *Service) Delete(ctx context.Context, actor services.Actor, id uuid.UUID) error {
	if err := s.perms.RequireSuperAdmin(ctx, actor.UserID); err != nil {
		return err
	}

	a, err := services.WithTransactionResult(ctx, s.txMgr, func(ctx context.Context, tx repositories.Transaction) (*models.PORAssignment, error) {
		repo := s.repos.Assignments.WithTx(tx)

		a, err := repo.GetByID(ctx, id)
		if err != nil {
			return nil, services.TranslateRepositoryError(err, services.ErrAssignmentNotFound, nil)
		}
		if err := repo.Delete(ctx, id); err != nil {
			return nil, services.TranslateRepositoryError(err, services.ErrAssignmentNotFound, nil)
		}
		return a, nil
	})
	if err != nil {
		return err
	}

	s.perms.RefreshUser(a.UserID)

	s.logger.Warn("deleted POR record",
		zap.String("assignment_id", a.ID.String()),
		zap.String("user_id", a.UserID.String()),
		zap.String("actor_id", actor.UserID.String()))

	if err := s.audit.LogPORDeleted(actor, a); err != nil {
		s.logger.Warn("failed to queue audit event", zap.Error(err))
	}

	return nil
}

// Edit replaces the privilege type, unit and dates of an assignment and
// re-validates the result.
func (s *Service) Edit(ctx context.Context, actor services.Actor, id uuid.UUID, in EditInput) (*models.PORAssignment, error) {
	if err := s.perms.RequireSuperAdmin(ctx, actor.UserID); err != nil {
		return nil, err
	}

	var before models.PORAssignment
	a, err := services.WithTransactionResult(ctx, s.txMgr, func(ctx context.Context, tx repositories.Transaction) (*models.PORAssignment, error) {
		repo := s.repos.Assignments.WithTx(tx)

		a, err := repo.GetByID(ctx, id)
		if err != nil {
			return nil, services.TranslateRepositoryError(err, services.ErrAssignmentNotFound, nil)
		}
		before = *a

		a.PrivilegeTypeID = in.PrivilegeTypeID
		a.Unit = in.Unit
		a.StartDate = in.StartDate
		a.EndDate = in.EndDate
		if a.StartDate.IsZero() {
			a.StartDate = before.StartDate
		}
		if err := validate(a); err != nil {
			return nil, err
		}
		if err := s.checkReferences(ctx, tx, a); err != nil {
			return nil, err
		}

		a.UpdatedAt = time.Now()
		if err := repo.Update(ctx, a); err != nil {
			return nil, services.TranslateRepositoryError(err, services.ErrAssignmentNotFound, services.ErrInvalidUnitRef)
		}
		return a, nil
	})
	if err != nil {
		return nil, err
	}

	s.perms.RefreshUser(a.UserID)

	s.logger.Info("edited POR",
		zap.String("assignment_id", a.ID.String()),
		zap.String("user_id", a.UserID.String()),
		zap.String("actor_id", actor.UserID.String()))

	if err := s.audit.LogPORUpdated(actor, &before, a); err != nil {
		s.logger.Warn("failed to queue audit event", zap.Error(err))
	}

	return a, nil
}

// Get retrieves an assignment by ID
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.PORAssignment, error) {
	a, err := s.repos.Assignments.GetByID(ctx, id)
	if err != nil {
		return nil, services.TranslateRepositoryError(err, services.ErrAssignmentNotFound, nil)
	}
	return a, nil
}

// ListForUser retrieves every assignment of a user, ended and future ones included
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.PORAssignment, error) {
	list, err := s.repos.Assignments.ListByUser(ctx, userID)
	if err != nil {
		return nil, services.TranslateRepositoryError(err, nil, nil)
	}
	return list, nil
}

// ListForUnit retrieves every assignment scoped to a club or board
func (s *Service) ListForUnit(ctx context.Context, unitID uuid.UUID) ([]*models.PORAssignment, error) {
	list, err := s.repos.Assignments.ListByUnit(ctx, unitID)
	if err != nil {
		return nil, services.TranslateRepositoryError(err, nil, nil)
	}
	return list, nil
}

// checkReferences verifies the privilege type and unit of a inside tx
func (s *Service) checkReferences(ctx context.Context, tx repositories.Transaction, a *models.PORAssignment) error {
	if _, err := s.repos.PrivilegeTypes.WithTx(tx).GetByID(ctx, a.PrivilegeTypeID); err != nil {
		return services.TranslateRepositoryError(err, services.ErrPrivilegeTypeNotFound, nil)
	}
	if _, err := units.Resolve(ctx, s.repos.Units.WithTx(tx), a.Unit); err != nil {
		return err
	}
	return nil
}

func validate(a *models.PORAssignment) error {
	if !a.Unit.IsValid() {
		return services.ErrInvalidUnitRef
	}
	if !a.DatesOrdered() {
		return services.ErrInvalidDateRange
	}
	if a.UserID == uuid.Nil || a.PrivilegeTypeID == uuid.Nil {
		return services.ErrInvalidInput
	}
	return nil
}
