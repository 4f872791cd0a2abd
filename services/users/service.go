package users

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/upb/club-authz/models"
	"github.com/upb/club-authz/repositories"
	"github.com/upb/club-authz/services"
	"github.com/upb/club-authz/services/audit"
	"github.com/upb/club-authz/services/permission"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// Service administers global roles and bans. Users are never deleted.
type Service struct {
	repos  *repositories.Repositories
	txMgr  repositories.TransactionManager
	perms  *permission.Service
	audit  *audit.AuditService
	logger *zap.Logger
}

// NewService creates a new user administration Service
func NewService(repos *repositories.Repositories, txMgr repositories.TransactionManager, perms *permission.Service, auditSvc *audit.AuditService, logger *zap.Logger) *Service {
	return &Service{
		repos:  repos,
		txMgr:  txMgr,
		perms:  perms,
		audit:  auditSvc,
		logger: logger,
	}
}

// Get retrieves a user by ID
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.repos.Users.GetByID(ctx, id)
	if err != nil {
		return nil, services.TranslateRepositoryError(err, services.ErrUserNotFound, nil)
	}
	return user, nil
}

// List retrieves users with pagination
func (s *Service) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	list, err := s.repos.Users.List(ctx, limit, offset)
	if err != nil {
		return nil, services.TranslateRepositoryError(err, nil, nil)
	}
	return list, nil
}

// AssignRole sets the global role of a user
func (s *Service) AssignRole(ctx context.Context, actor services.Actor, userID uuid.UUID, role models.GlobalRole) (*models.User, error) {
	if !role.IsValid() {
		return nil, services.ErrInvalidRole
	}

	var previous models.GlobalRole
	user, err := s.mutate(ctx, actor, userID, func(u *models.User) (bool, error) {
		previous = u.GlobalRole
		if u.GlobalRole == role {
			return false, nil
		}
		u.GlobalRole = role
		return true, nil
	})
	if err != nil || previous == role {
		return user, err
	}

	s.logger.Info("changed global role",
		zap.String("user_id", userID.String()),
		zap.String("previous_role", string(previous)),
		zap.String("global_role", string(role)),
		zap.String("actor_id", actor.UserID.String()))

	if err := s.audit.LogRoleChanged(actor, user, previous); err != nil {
		s.logger.Warn("failed to queue audit event", zap.Error(err))
	}

	return user, nil
}

// RemoveAdmin returns a user to the member role
func (s *Service) RemoveAdmin(ctx context.Context, actor services.Actor, userID uuid.UUID) (*models.User, error) {
	return s.AssignRole(ctx, actor, userID, models.RoleMember)
}

// Ban stops a user from acting at all. Super admins cannot be banned.
func (s *Service) Ban(ctx context.Context, actor services.Actor, userID uuid.UUID) (*models.User, error) {
	var changed bool
	user, err := s.mutate(ctx, actor, userID, func(u *models.User) (bool, error) {
		if u.IsSuperAdmin() {
			return false, services.ErrCannotBanSuperAdmin
		}
		changed = !u.IsBanned()
		u.Status = models.StatusBanned
		return changed, nil
	})
	if err != nil || !changed {
		return user, err
	}

	s.logger.Info("banned user",
		zap.String("user_id", userID.String()),
		zap.String("actor_id", actor.UserID.String()))

	if err := s.audit.LogUserBanned(actor, user); err != nil {
		s.logger.Warn("failed to queue audit event", zap.Error(err))
	}

	return user, nil
}

// Unban lifts a ban
func (s *Service) Unban(ctx context.Context, actor services.Actor, userID uuid.UUID) (*models.User, error) {
	var changed bool
	user, err := s.mutate(ctx, actor, userID, func(u *models.User) (bool, error) {
		changed = u.IsBanned()
		u.Status = models.StatusActive
		return changed, nil
	})
	if err != nil || !changed {
		return user, err
	}

	s.logger.Info("unbanned user",
		zap.String("user_id", userID.String()),
		zap.String("actor_id", actor.UserID.String()))

	if err := s.audit.LogUserUnbanned(actor, user); err != nil {
		s.logger.Warn("failed to queue audit event", zap.Error(err))
	}

	return user, nil
}

// mutate applies change to the stored user inside a transaction after checking
// the actor. change reports whether anything needs writing.
func (s *Service) mutate(ctx context.Context, actor services.Actor, userID uuid.UUID, change func(*models.User) (bool, error)) (*models.User, error) {
	if err := s.perms.RequireSuperAdmin(ctx, actor.UserID); err != nil {
		return nil, err
	}

	user, err := services.WithTransactionResult(ctx, s.txMgr, func(ctx context.Context, tx repositories.Transaction) (*models.User, error) {
		repo := s.repos.Users.WithTx(tx)

		user, err := repo.GetByID(ctx, userID)
		if err != nil {
			return nil, services.TranslateRepositoryError(err, services.ErrUserNotFound, nil)
		}

		changed, err := change(user)
		if err != nil || !changed {
			return user, err
		}

		user.UpdatedAt = time.Now()
		if err := repo.Update(ctx, user); err != nil {
			return nil, services.TranslateRepositoryError(err, services.ErrUserNotFound, services.ErrDuplicateEmail)
		}
		return user, nil
	})
	if err != nil {
		return nil, err
	}

	s.perms.RefreshUser(userID)
	return user, nil
}
