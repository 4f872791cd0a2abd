package authz

import (
	"time"

	"github.com/google/uuid"
	"github.com/upb/club-authz/models"
)

// Grant pairs a POR assignment with the privilege type it references
type Grant struct {
	Assignment    models.PORAssignment
	PrivilegeType models.PrivilegeType
}

// Snapshot is an immutable view of a principal taken at ResolvedAt.
// Assignments are kept regardless of their dates; the evaluator filters them.
type Snapshot struct {
	User       models.User
	Grants     []Grant
	ResolvedAt time.Time
}

// NewSnapshot copies user and grants so later mutation of the inputs cannot leak in.
// Grants whose privilege type does not match the assignment are dropped.
func NewSnapshot(user *models.User, grants []Grant, resolvedAt time.Time) *Snapshot {
	if user == nil {
		return nil
	}

	kept := make([]Grant, 0, len(grants))
	for _, g := range grants {
		if g.Assignment.UserID != user.ID {
			continue
		}
		if g.Assignment.PrivilegeTypeID != g.PrivilegeType.ID {
			continue
		}
		kept = append(kept, g)
	}

	return &Snapshot{
		User:       *user,
		Grants:     kept,
		ResolvedAt: resolvedAt,
	}
}

// UserID returns the snapshot owner's id
func (s *Snapshot) UserID() uuid.UUID {
	return s.User.ID
}

// ActiveGrants returns the grants in force at t
func (s *Snapshot) ActiveGrants(t time.Time) []Grant {
	if s == nil {
		return nil
	}
	active := make([]Grant, 0, len(s.Grants))
	for _, g := range s.Grants {
		if g.Assignment.ActiveAt(t) {
			active = append(active, g)
		}
	}
	return active
}
