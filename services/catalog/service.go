package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/upb/club-authz/models"
	"github.com/upb/club-authz/repositories"
	"github.com/upb/club-authz/services"
	"github.com/upb/club-authz/services/audit"
	"github.com/upb/club-authz/services/permission"
	"go.uber.org/zap"
)

const maxTitleLength = 120

// Service manages the privilege type catalog
type Service struct {
	repos  *repositories.Repositories
	txMgr  repositories.TransactionManager
	perms  *permission.Service
	audit  *audit.AuditService
	logger *zap.Logger
}

// NewService creates a new catalog Service
func NewService(repos *repositories.Repositories, txMgr repositories.TransactionManager, perms *permission.Service, auditSvc *audit.AuditService, logger *zap.Logger) *Service {
	return &Service{
		repos:  repos,
		txMgr:  txMgr,
		perms:  perms,
		audit:  auditSvc,
		logger: logger,
	}
}

// Create adds a privilege type. Capability flags are independent of each other.
func (s *Service) Create(ctx context.Context, actor services.Actor, title string, caps models.CapabilitySet) (*models.PrivilegeType, error) {
	if err := s.perms.RequireSuperAdmin(ctx, actor.UserID); err != nil {
		return nil, err
	}

	title, err := normalizeTitle(title)
	if err != nil {
		return nil, err
	}

	pt := models.NewPrivilegeType(title, caps.Intersect(models.AllCapabilitySet))
	if err := s.repos.PrivilegeTypes.Create(ctx, pt); err != nil {
		return nil, services.TranslateRepositoryError(err, nil, services.ErrDuplicateTitle)
	}

	s.logger.Info("created privilege type",
		zap.String("privilege_type_id", pt.ID.String()),
		zap.String("position_title", pt.PositionTitle),
		zap.Strings("capabilities", capabilityNames(pt.Capabilities)))

	if err := s.audit.LogPrivilegeTypeCreated(actor, pt); err != nil {
		s.logger.Warn("failed to queue audit event", zap.Error(err))
	}

	return pt, nil
}

// Update replaces the title and capability flags of a privilege type.
// Holders of the type are refreshed before Update returns.
func (s *Service) Update(ctx context.Context, actor services.Actor, id uuid.UUID, title string, caps models.CapabilitySet) (*models.PrivilegeType, error) {
	if err := s.perms.RequireSuperAdmin(ctx, actor.UserID); err != nil {
		return nil, err
	}

	title, err := normalizeTitle(title)
	if err != nil {
		return nil, err
	}

	var before models.PrivilegeType
	var holders []uuid.UUID
	updated, err := services.WithTransactionResult(ctx, s.txMgr, func(ctx context.Context, tx repositories.Transaction) (*models.PrivilegeType, error) {
		ptRepo := s.repos.PrivilegeTypes.WithTx(tx)

		pt, err := ptRepo.GetByID(ctx, id)
		if err != nil {
			return nil, services.TranslateRepositoryError(err, services.ErrPrivilegeTypeNotFound, nil)
		}
		before = *pt

		pt.PositionTitle = title
		pt.Capabilities = caps.Intersect(models.AllCapabilitySet)
		pt.UpdatedAt = time.Now()
		if err := ptRepo.Update(ctx, pt); err != nil {
			return nil, services.TranslateRepositoryError(err, services.ErrPrivilegeTypeNotFound, services.ErrDuplicateTitle)
		}

		holders, err = s.repos.Assignments.WithTx(tx).ListUserIDsByPrivilegeType(ctx, id)
		if err != nil {
			return nil, services.TranslateRepositoryError(err, nil, nil)
		}
		return pt, nil
	})
	if err != nil {
		return nil, err
	}

	s.perms.RefreshUsers(holders)

	s.logger.Info("updated privilege type",
		zap.String("privilege_type_id", id.String()),
		zap.Int("holders_refreshed", len(holders)))

	if err := s.audit.LogPrivilegeTypeUpdated(actor, &before, updated); err != nil {
		s.logger.Warn("failed to queue audit event", zap.Error(err))
	}

	return updated, nil
}

// Delete removes a privilege type. It is rejected while any assignment of the
// type is in force now or scheduled for later.
func (s *Service) Delete(ctx context.Context, actor services.Actor, id uuid.UUID) error {
	if err := s.perms.RequireSuperAdmin(ctx, actor.UserID); err != nil {
		return err
	}

	var deleted *models.PrivilegeType
	err := services.WithTransaction(ctx, s.txMgr, func(ctx context.Context, tx repositories.Transaction) error {
		ptRepo := s.repos.PrivilegeTypes.WithTx(tx)

		pt, err := ptRepo.GetByID(ctx, id)
		if err != nil {
			return services.TranslateRepositoryError(err, services.ErrPrivilegeTypeNotFound, nil)
		}

		active, err := s.repos.Assignments.WithTx(tx).CountActiveByPrivilegeType(ctx, id, s.perms.Evaluator().Now())
		if err != nil {
			return services.TranslateRepositoryError(err, nil, nil)
		}
		if active > 0 {
			s.logger.Warn("privilege type delete rejected",
				zap.String("privilege_type_id", id.String()),
				zap.Int("active_assignments", active))
			return services.ErrPrivilegeTypeInUse
		}

		if err := ptRepo.Delete(ctx, id); err != nil {
			return services.TranslateRepositoryError(err, services.ErrPrivilegeTypeNotFound, services.ErrPrivilegeTypeInUse)
		}
		deleted = pt
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("deleted privilege type", zap.String("privilege_type_id", id.String()))

	if err := s.audit.LogPrivilegeTypeDeleted(actor, deleted); err != nil {
		s.logger.Warn("failed to queue audit event", zap.Error(err))
	}

	return nil
}

// Get retrieves a privilege type by ID
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.PrivilegeType, error) {
	pt, err := s.repos.PrivilegeTypes.GetByID(ctx, id)
	if err != nil {
		return nil, services.TranslateRepositoryError(err, services.ErrPrivilegeTypeNotFound, nil)
	}
	return pt, nil
}

// List retrieves the whole catalog
func (s *Service) List(ctx context.Context) ([]*models.PrivilegeType, error) {
	pts, err := s.repos.PrivilegeTypes.List(ctx)
	if err != nil {
		return nil, services.TranslateRepositoryError(err, nil, nil)
	}
	return pts, nil
}

func normalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", services.ErrEmptyTitle
	}
	if len(title) > maxTitleLength {
		return "", services.ErrInvalidInput
	}
	return title, nil
}

func capabilityNames(set models.CapabilitySet) []string {
	names := set.Names()
	out := make([]string, len(names))
	for i, c := range names {
		out[i] = string(c)
	}
	return out
}
