package models

import (
	"time"

	"github.com/google/uuid"
)

// PrivilegeType is a named bundle of capability flags attached to a position title
// such as "Secretary" or "Treasurer". Flags are independent of each other.
type PrivilegeType struct {
	ID            uuid.UUID     `json:"id" db:"id"`
	PositionTitle string        `json:"position_title" db:"position_title"`
	Capabilities  CapabilitySet `json:"capabilities" db:"capabilities"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the PrivilegeType model
func (PrivilegeType) TableName() string {
	return "privilege_types"
}

// NewPrivilegeType creates a new PrivilegeType instance
func NewPrivilegeType(title string, caps CapabilitySet) *PrivilegeType {
	now := time.Now()
	return &PrivilegeType{
		ID:            uuid.New(),
		PositionTitle: title,
		Capabilities:  caps,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Grants reports whether this privilege type carries capability c
func (p *PrivilegeType) Grants(c Capability) bool {
	return p.Capabilities.Has(c)
}
