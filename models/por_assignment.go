package models

import (
	"time"

	"github.com/google/uuid"
)

// UnitRef points a POR assignment at exactly one club or exactly one board
type UnitRef struct {
	ClubID  *uuid.UUID `json:"club_id,omitempty" db:"club_id"`
	BoardID *uuid.UUID `json:"board_id,omitempty" db:"board_id"`
}

// ClubRef returns a UnitRef targeting a club
func ClubRef(id uuid.UUID) UnitRef {
	return UnitRef{ClubID: &id}
}

// BoardRef returns a UnitRef targeting a board
func BoardRef(id uuid.UUID) UnitRef {
	return UnitRef{BoardID: &id}
}

// IsValid reports whether exactly one of ClubID and BoardID is set
func (r UnitRef) IsValid() bool {
	return (r.ClubID != nil) != (r.BoardID != nil)
}

// UnitID returns the referenced unit id, or uuid.Nil when the ref is invalid
func (r UnitRef) UnitID() uuid.UUID {
	if !r.IsValid() {
		return uuid.Nil
	}
	if r.ClubID != nil {
		return *r.ClubID
	}
	return *r.BoardID
}

// Kind returns the unit kind implied by which field is set
func (r UnitRef) Kind() UnitKind {
	if r.ClubID != nil && r.BoardID == nil {
		return UnitKindClub
	}
	if r.BoardID != nil && r.ClubID == nil {
		return UnitKindBoard
	}
	return ""
}

// PORAssignment is a time-bounded delegation of a privilege type to a user
// within one organizational unit. A nil EndDate means indefinite.
type PORAssignment struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	UserID          uuid.UUID  `json:"user_id" db:"user_id"`
	PrivilegeTypeID uuid.UUID  `json:"privilege_type_id" db:"privilege_type_id"`
	Unit            UnitRef    `json:"unit"`
	StartDate       time.Time  `json:"start_date" db:"start_date"`
	EndDate         *time.Time `json:"end_date,omitempty" db:"end_date"`
	CreatedBy       *uuid.UUID `json:"created_by,omitempty" db:"created_by"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the PORAssignment model
func (PORAssignment) TableName() string {
	return "por_assignments"
}

// NewPORAssignment creates a new assignment starting at start with no end date
func NewPORAssignment(userID, privilegeTypeID uuid.UUID, unit UnitRef, start time.Time) *PORAssignment {
	now := time.Now()
	return &PORAssignment{
		ID:              uuid.New(),
		UserID:          userID,
		PrivilegeTypeID: privilegeTypeID,
		Unit:            unit,
		StartDate:       start,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// DatesOrdered reports whether StartDate <= EndDate when an end date is present
func (a *PORAssignment) DatesOrdered() bool {
	return a.EndDate == nil || !a.EndDate.Before(a.StartDate)
}

// ActiveAt reports whether the assignment is in force at instant t.
// Both bounds are inclusive.
func (a *PORAssignment) ActiveAt(t time.Time) bool {
	if t.Before(a.StartDate) {
		return false
	}
	return a.EndDate == nil || !a.EndDate.Before(t)
}

// Targets reports whether the assignment is scoped to the unit of the given kind
// and id. A club and a board never match each other, even with equal ids.
func (a *PORAssignment) Targets(kind UnitKind, unitID uuid.UUID) bool {
	return a.Unit.Kind() == kind && a.Unit.UnitID() == unitID
}
