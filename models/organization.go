package models

import (
	"time"

	"github.com/google/uuid"
)

// UnitKind distinguishes clubs from boards
type UnitKind string

const (
	UnitKindClub  UnitKind = "club"
	UnitKindBoard UnitKind = "board"
)

// IsValid reports whether k is a known unit kind
func (k UnitKind) IsValid() bool {
	return k == UnitKindClub || k == UnitKindBoard
}

// OrganizationalUnit is a club or a board, the scope of every capability check.
// Kind never changes after creation.
type OrganizationalUnit struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Kind      UnitKind  `json:"kind" db:"kind"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the OrganizationalUnit model
func (OrganizationalUnit) TableName() string {
	return "organizational_units"
}

// NewOrganizationalUnit creates a new unit of the given kind
func NewOrganizationalUnit(name string, kind UnitKind) *OrganizationalUnit {
	now := time.Now()
	return &OrganizationalUnit{
		ID:        uuid.New(),
		Name:      name,
		Kind:      kind,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
