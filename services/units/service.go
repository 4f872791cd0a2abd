package units

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

const maxNameLength = 120

// Service is the organizational unit registry
type Service struct {
	unitRepo repositories.UnitRepository
	perms    *permission.Service
	audit    *audit.AuditService
	logger   *zap.Logger
}

// NewService creates a new unit registry Service
func NewService(unitRepo repositories.UnitRepository, perms *permission.Service, auditSvc *audit.AuditService, logger *zap.Logger) *Service {
	return &Service{
		unitRepo: unitRepo,
		perms:    perms,
		audit:    auditSvc,
		logger:   logger,
	}
}

// CreateClub registers a new club
func (s *Service) CreateClub(ctx context.Context, actor services.Actor, name string) (*models.OrganizationalUnit, error) {
	return s.create(ctx, actor, name, models.UnitKindClub)
}

// CreateBoard registers a new board
func (s *Service) CreateBoard(ctx context.Context, actor services.Actor, name string) (*models.OrganizationalUnit, error) {
	return s.create(ctx, actor, name, models.UnitKindBoard)
}

// Create registers a unit of the given kind
func (s *Service) Create(ctx context.Context, actor services.Actor, name string, kind models.UnitKind) (*models.OrganizationalUnit, error) {
	if !kind.IsValid() {
		return nil, services.ErrInvalidUnitKind
	}
	return s.create(ctx, actor, name, kind)
}

func (s *Service) create(ctx context.Context, actor services.Actor, name string, kind models.UnitKind) (*models.OrganizationalUnit, error) {
	if err := s.perms.RequireSuperAdmin(ctx, actor.UserID); err != nil {
		return nil, err
	}

	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}

	unit := models.NewOrganizationalUnit(name, kind)
	if err := s.unitRepo.Create(ctx, unit); err != nil {
		return nil, services.TranslateRepositoryError(err, nil, services.ErrDuplicateUnitName)
	}

	s.logger.Info("created organizational unit",
		zap.String("unit_id", unit.ID.String()),
		zap.String("kind", string(kind)),
		zap.String("actor_id", actor.UserID.String()))

	if err := s.audit.LogUnitCreated(actor, unit); err != nil {
		s.logger.Warn("failed to queue audit event", zap.Error(err))
	}

	return unit, nil
}

// Rename changes the display name of a unit. Its kind is left untouched.
func (s *Service) Rename(ctx context.Context, actor services.Actor, id uuid.UUID, name string) (*models.OrganizationalUnit, error) {
	if err := s.perms.RequireSuperAdmin(ctx, actor.UserID); err != nil {
		return nil, err
	}

	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}

	unit, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if unit.Name == name {
		return unit, nil
	}

	previous := unit.Name
	unit.Name = name
	unit.UpdatedAt = time.Now()
	if err := s.unitRepo.Rename(ctx, id, name, unit.UpdatedAt); err != nil {
		return nil, services.TranslateRepositoryError(err, services.ErrUnitNotFound, services.ErrDuplicateUnitName)
	}

	s.logger.Info("renamed organizational unit",
		zap.String("unit_id", id.String()),
		zap.String("actor_id", actor.UserID.String()))

	if err := s.audit.LogUnitRenamed(actor, unit, previous); err != nil {
		s.logger.Warn("failed to queue audit event", zap.Error(err))
	}

	return unit, nil
}

// Get retrieves a unit by ID
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.OrganizationalUnit, error) {
	unit, err := s.unitRepo.GetByID(ctx, id)
	if err != nil {
		return nil, services.TranslateRepositoryError(err, services.ErrUnitNotFound, nil)
	}
	return unit, nil
}

// List retrieves the units of one kind, or every unit when kind is empty
func (s *Service) List(ctx context.Context, kind models.UnitKind) ([]*models.OrganizationalUnit, error) {
	if kind != "" && !kind.IsValid() {
		return nil, services.ErrInvalidUnitKind
	}
	units, err := s.unitRepo.List(ctx, kind)
	if err != nil {
		return nil, services.TranslateRepositoryError(err, nil, nil)
	}
	return units, nil
}

// Resolve looks up the unit a POR reference points at. The reference must name
// exactly one unit, the unit must exist and its kind must match the field used.
func (s *Service) Resolve(ctx context.Context, ref models.UnitRef) (*models.OrganizationalUnit, error) {
	return Resolve(ctx, s.unitRepo, ref)
}

// Resolve validates ref against repo. It is usable inside a transaction through repo.WithTx.
func Resolve(ctx context.Context, repo repositories.UnitRepository, ref models.UnitRef) (*models.OrganizationalUnit, error) {
	if !ref.IsValid() || ref.UnitID() == uuid.Nil {
		return nil, services.ErrInvalidUnitRef
	}

	unit, err := repo.GetByID(ctx, ref.UnitID())
	if err != nil {
		return nil, services.TranslateRepositoryError(err, services.ErrUnitNotFound, nil)
	}
	if unit.Kind != ref.Kind() {
		return nil, services.ErrUnitKindMismatch
	}

	return unit, nil
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", services.ErrEmptyName
	}
	if len(name) > maxNameLength {
		return "", services.ErrInvalidInput
	}
	return name, nil
}
