package permission

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/upb/club-authz/internal/authz"
	"github.com/upb/club-authz/models"
	"github.com/upb/club-authz/repositories"
	"github.com/upb/club-authz/services"
	"go.uber.org/zap"
)

// Service answers permission questions for stored users. It resolves identity
// snapshots from the repositories, caches them per user, and delegates every
// decision to the evaluator. Lookup failures always resolve to denial.
type Service struct {
	users          repositories.UserRepository
	units          repositories.UnitRepository
	assignments    repositories.PORAssignmentRepository
	privilegeTypes repositories.PrivilegeTypeRepository
	evaluator      *authz.Evaluator
	cache          *SnapshotCache
	logger         *zap.Logger
}

// NewService creates a new permission Service
func NewService(repos *repositories.Repositories, evaluator *authz.Evaluator, cache *SnapshotCache, logger *zap.Logger) *Service {
	return &Service{
		users:          repos.Users,
		units:          repos.Units,
		assignments:    repos.Assignments,
		privilegeTypes: repos.PrivilegeTypes,
		evaluator:      evaluator,
		cache:          cache,
		logger:         logger,
	}
}

// Evaluator returns the evaluator decisions are delegated to
func (s *Service) Evaluator() *authz.Evaluator {
	return s.evaluator
}

// Snapshot returns the identity snapshot of userID, from cache when possible.
// A missing user yields ErrUserNotFound; any other failure yields an unavailable error.
func (s *Service) Snapshot(ctx context.Context, userID uuid.UUID) (*authz.Snapshot, error) {
	if snap := s.cache.Get(userID); snap != nil {
		return snap, nil
	}

	epoch := s.cache.Epoch()
	snap, err := s.resolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.cache.Set(userID, snap, epoch)

	return snap, nil
}

// resolve loads the user, every POR assignment of the user and the referenced
// privilege types.
func (s *Service) resolve(ctx context.Context, userID uuid.UUID) (*authz.Snapshot, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrUserNotFound
		}
		return nil, s.unavailable(userID, "failed to load user", err)
	}

	assignments, err := s.assignments.ListByUser(ctx, userID)
	if err != nil {
		return nil, s.unavailable(userID, "failed to load POR assignments", err)
	}

	grants := make([]authz.Grant, 0, len(assignments))
	if len(assignments) > 0 {
		ids := distinctPrivilegeTypeIDs(assignments)
		types, err := s.privilegeTypes.GetByIDs(ctx, ids)
		if err != nil {
			return nil, s.unavailable(userID, "failed to load privilege types", err)
		}

		byID := make(map[uuid.UUID]*models.PrivilegeType, len(types))
		for _, pt := range types {
			byID[pt.ID] = pt
		}

		for _, a := range assignments {
			pt, ok := byID[a.PrivilegeTypeID]
			if !ok {
				s.logger.Warn("POR assignment references a missing privilege type",
					zap.String("user_id", userID.String()),
					zap.String("assignment_id", a.ID.String()),
					zap.String("privilege_type_id", a.PrivilegeTypeID.String()))
				continue
			}
			grants = append(grants, authz.Grant{Assignment: *a, PrivilegeType: *pt})
		}
	}

	return authz.NewSnapshot(user, grants, s.evaluator.Now()), nil
}

func (s *Service) unavailable(userID uuid.UUID, msg string, err error) error {
	s.logger.Error(msg,
		zap.Error(err),
		zap.String("user_id", userID.String()))
	return services.WrapUnavailable(services.ErrSnapshotUnavailable.Message, err)
}

func distinctPrivilegeTypeIDs(assignments []*models.PORAssignment) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(assignments))
	ids := make([]uuid.UUID, 0, len(assignments))
	for _, a := range assignments {
		if _, ok := seen[a.PrivilegeTypeID]; ok {
			continue
		}
		seen[a.PrivilegeTypeID] = struct{}{}
		ids = append(ids, a.PrivilegeTypeID)
	}
	return ids
}

// HasPermission reports whether userID may exercise capability in the given unit.
// It returns false whenever a decision cannot be made.
func (s *Service) HasPermission(ctx context.Context, capability models.Capability, userID uuid.UUID, boardID, clubID *uuid.UUID) bool {
	decision, _ := s.Check(ctx, capability, userID, boardID, clubID)
	return decision.Allowed
}

// Check evaluates like HasPermission and reports why. A missing user is a plain
// denial; an unresolvable snapshot is a denial accompanied by an unavailable error.
func (s *Service) Check(ctx context.Context, capability models.Capability, userID uuid.UUID, boardID, clubID *uuid.UUID) (authz.Decision, error) {
	if !capability.IsValid() {
		return s.evaluator.Check(capability, nil, boardID, clubID)
	}

	snap, err := s.Snapshot(ctx, userID)
	if err != nil {
		if services.IsNotFoundError(err) {
			return s.evaluator.Check(capability, nil, boardID, clubID)
		}
		return authz.Decision{Capability: capability, Reason: authz.ReasonUnavailable}, err
	}

	return s.evaluator.Check(capability, snap, boardID, clubID)
}

// GrantedCapabilities returns every capability userID holds in unitID right now.
// The unit's kind is read from the registry; an unknown unit yields ErrUnitNotFound.
func (s *Service) GrantedCapabilities(ctx context.Context, userID, unitID uuid.UUID) (models.CapabilitySet, error) {
	snap, err := s.Snapshot(ctx, userID)
	if err != nil {
		if services.IsNotFoundError(err) {
			return 0, nil
		}
		return 0, err
	}

	unit, err := s.units.GetByID(ctx, unitID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return 0, services.ErrUnitNotFound
		}
		return 0, s.unavailable(userID, "failed to load unit", err)
	}

	ref := models.ClubRef(unit.ID)
	if unit.Kind == models.UnitKindBoard {
		ref = models.BoardRef(unit.ID)
	}
	return s.evaluator.ListGrantedCapabilities(snap, ref), nil
}

// UnitCapabilities returns the derived per-unit capability map of userID
func (s *Service) UnitCapabilities(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]models.CapabilitySet, error) {
	snap, err := s.Snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.evaluator.UnitCapabilities(snap), nil
}

// IdentityView is the serializable form of a principal's snapshot
type IdentityView struct {
	UserID     uuid.UUID                          `json:"user_id"`
	GlobalRole models.GlobalRole                  `json:"global_role"`
	Status     models.UserStatus                  `json:"status"`
	SuperAdmin bool                               `json:"super_admin"`
	Units      map[uuid.UUID]models.CapabilitySet `json:"units"`
	ResolvedAt time.Time                          `json:"resolved_at"`
}

// Identity describes userID as the evaluator currently sees it
func (s *Service) Identity(ctx context.Context, userID uuid.UUID) (*IdentityView, error) {
	snap, err := s.Snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &IdentityView{
		UserID:     snap.User.ID,
		GlobalRole: snap.User.GlobalRole,
		Status:     snap.User.Status,
		SuperAdmin: s.evaluator.IsSuperAdmin(&snap.User),
		Units:      s.evaluator.UnitCapabilities(snap),
		ResolvedAt: snap.ResolvedAt,
	}, nil
}

// RequireSuperAdmin returns nil when actorID currently acts as super admin.
// Every administrative write calls it before touching storage.
func (s *Service) RequireSuperAdmin(ctx context.Context, actorID uuid.UUID) error {
	snap, err := s.Snapshot(ctx, actorID)
	if err != nil {
		if services.IsNotFoundError(err) {
			return services.ErrUnauthorized
		}
		return err
	}
	if !s.evaluator.IsSuperAdmin(&snap.User) {
		s.logger.Warn("administrative write rejected",
			zap.String("actor_id", actorID.String()),
			zap.String("global_role", string(snap.User.GlobalRole)),
			zap.String("status", string(snap.User.Status)))
		return services.ErrSuperAdminRequired
	}
	return nil
}

// RefreshUser drops the cached snapshot of userID so the next check reloads it
func (s *Service) RefreshUser(userID uuid.UUID) {
	s.cache.Invalidate(userID)
}

// RefreshUsers drops the cached snapshots of several users
func (s *Service) RefreshUsers(userIDs []uuid.UUID) {
	s.cache.InvalidateUsers(userIDs)
}

// RefreshAll drops every cached snapshot
func (s *Service) RefreshAll() {
	s.cache.Clear()
	s.logger.Info("cleared identity snapshot cache")
}

// Stats returns snapshot cache statistics
func (s *Service) Stats() CacheStats {
	return s.cache.Stats()
}

// StartCleanupWorker evicts expired snapshots every interval until stopCh is closed
func (s *Service) StartCleanupWorker(interval time.Duration, stopCh <-chan struct{}) {
	s.logger.Info("starting snapshot cache cleanup worker", zap.Duration("interval", interval))
	s.cache.StartCleanupWorker(interval, stopCh)
}
