package authz

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/upb/club-authz/models"
	"go.uber.org/zap"
)

var (
	// ErrUnknownCapability is returned by Check when the capability is outside the closed set
	ErrUnknownCapability = errors.New("unknown capability")
	// ErrAmbiguousScope is returned by Check when both a club and a board were named
	ErrAmbiguousScope = errors.New("both club and board given, club takes precedence")
)

// DecisionReason explains which rule produced a decision
type DecisionReason string

const (
	ReasonUnknownCapability DecisionReason = "unknown_capability"
	ReasonNoUser            DecisionReason = "no_user"
	ReasonBanned            DecisionReason = "banned"
	ReasonSuperAdmin        DecisionReason = "super_admin"
	ReasonNoUnit            DecisionReason = "no_unit"
	ReasonPORGrant          DecisionReason = "por_grant"
	ReasonNoGrant           DecisionReason = "no_grant"
	// ReasonUnavailable is set by callers that could not resolve a snapshot
	ReasonUnavailable DecisionReason = "snapshot_unavailable"
)

// Decision is the outcome of a permission check
type Decision struct {
	Allowed    bool              `json:"allowed"`
	Reason     DecisionReason    `json:"reason"`
	Capability models.Capability `json:"capability"`
	UnitID     *uuid.UUID        `json:"unit_id,omitempty"`
	GrantedBy  []uuid.UUID       `json:"granted_by,omitempty"`
}

// Option configures an Evaluator
type Option func(*Evaluator)

// WithClock sets the source of the current instant
func WithClock(now func() time.Time) Option {
	return func(e *Evaluator) {
		if now != nil {
			e.now = now
		}
	}
}

// Evaluator is stateless apart from its clock and logger and is safe for concurrent use
type Evaluator struct {
	now    func() time.Time
	logger *zap.Logger
}

// NewEvaluator creates a new Evaluator
func NewEvaluator(logger *zap.Logger, opts ...Option) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Evaluator{
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Now returns the evaluator's current instant
func (e *Evaluator) Now() time.Time {
	return e.now()
}

// HasPermission reports whether the snapshot's user may exercise capability in the
// given unit. Any doubt resolves to false.
func (e *Evaluator) HasPermission(capability models.Capability, snap *Snapshot, boardID, clubID *uuid.UUID) bool {
	decision, _ := e.Check(capability, snap, boardID, clubID)
	return decision.Allowed
}

// Check evaluates like HasPermission and also reports misconfiguration.
// ErrAmbiguousScope accompanies a valid decision made against the club.
func (e *Evaluator) Check(capability models.Capability, snap *Snapshot, boardID, clubID *uuid.UUID) (Decision, error) {
	decision := Decision{Capability: capability}

	if !capability.IsValid() {
		e.logger.Error("permission check with unknown capability",
			zap.String("capability", string(capability)))
		decision.Reason = ReasonUnknownCapability
		return decision, ErrUnknownCapability
	}

	if snap == nil {
		decision.Reason = ReasonNoUser
		return decision, nil
	}

	if snap.User.IsBanned() {
		decision.Reason = ReasonBanned
		return decision, nil
	}

	if snap.User.IsSuperAdmin() {
		decision.Allowed = true
		decision.Reason = ReasonSuperAdmin
		return decision, nil
	}

	var scopeErr error
	if isSet(clubID) && isSet(boardID) {
		e.logger.Warn("both club and board given for permission check, using club",
			zap.String("user_id", snap.User.ID.String()),
			zap.String("club_id", clubID.String()),
			zap.String("board_id", boardID.String()))
		scopeErr = ErrAmbiguousScope
	}

	kind, unitID, ok := targetUnit(boardID, clubID)
	if !ok {
		decision.Reason = ReasonNoUnit
		return decision, scopeErr
	}
	decision.UnitID = &unitID

	now := e.now()
	for _, g := range snap.ActiveGrants(now) {
		if g.Assignment.Targets(kind, unitID) && g.PrivilegeType.Grants(capability) {
			decision.GrantedBy = append(decision.GrantedBy, g.Assignment.ID)
		}
	}

	if len(decision.GrantedBy) > 0 {
		decision.Allowed = true
		decision.Reason = ReasonPORGrant
	} else {
		decision.Reason = ReasonNoGrant
	}

	e.logger.Debug("permission evaluated",
		zap.String("user_id", snap.User.ID.String()),
		zap.String("capability", string(capability)),
		zap.String("unit_id", unitID.String()),
		zap.Bool("allowed", decision.Allowed))

	return decision, scopeErr
}

// IsSuperAdmin reports whether user acts with the super admin override.
// A banned super admin does not.
func (e *Evaluator) IsSuperAdmin(user *models.User) bool {
	return user != nil && !user.IsBanned() && user.IsSuperAdmin()
}

// ListGrantedCapabilities returns every capability the user holds in unit right now
func (e *Evaluator) ListGrantedCapabilities(snap *Snapshot, unit models.UnitRef) models.CapabilitySet {
	kind, unitID := unit.Kind(), unit.UnitID()
	if snap == nil || snap.User.IsBanned() || kind == "" || unitID == uuid.Nil {
		return 0
	}
	if snap.User.IsSuperAdmin() {
		return models.AllCapabilitySet
	}

	var set models.CapabilitySet
	for _, g := range snap.ActiveGrants(e.now()) {
		if g.Assignment.Targets(kind, unitID) {
			set = set.Union(g.PrivilegeType.Capabilities)
		}
	}
	return set
}

// UnitCapabilities derives the per-unit capability map from the active grants.
// The super admin override is not unit scoped and does not appear here.
func (e *Evaluator) UnitCapabilities(snap *Snapshot) map[uuid.UUID]models.CapabilitySet {
	out := make(map[uuid.UUID]models.CapabilitySet)
	if snap == nil || snap.User.IsBanned() {
		return out
	}
	for _, g := range snap.ActiveGrants(e.now()) {
		unitID := g.Assignment.Unit.UnitID()
		if unitID == uuid.Nil {
			continue
		}
		out[unitID] = out[unitID].Union(g.PrivilegeType.Capabilities)
	}
	return out
}

func isSet(id *uuid.UUID) bool {
	return id != nil && *id != uuid.Nil
}

// targetUnit picks the unit a check is made against. The kind comes from the
// parameter that supplied the id.
func targetUnit(boardID, clubID *uuid.UUID) (models.UnitKind, uuid.UUID, bool) {
	if isSet(clubID) {
		return models.UnitKindClub, *clubID, true
	}
	if isSet(boardID) {
		return models.UnitKindBoard, *boardID, true
	}
	return "", uuid.Nil, false
}
