package models

import (
	"time"

	"github.com/google/uuid"
)

// GlobalRole represents the portal-wide role of a user
type GlobalRole string

const (
	RoleMember     GlobalRole = "member"
	RoleClubAdmin  GlobalRole = "club_admin"
	RoleBoardAdmin GlobalRole = "board_admin"
	RoleSuperAdmin GlobalRole = "super_admin"
)

// IsValid reports whether r is a known role
func (r GlobalRole) IsValid() bool {
	switch r {
	case RoleMember, RoleClubAdmin, RoleBoardAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// UserStatus represents whether a user may act at all
type UserStatus string

const (
	StatusActive UserStatus = "active"
	StatusBanned UserStatus = "banned"
)

// User represents a portal member. Users are never deleted, only banned.
type User struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	Email      string     `json:"email" db:"email"`
	Name       string     `json:"name" db:"name"`
	GlobalRole GlobalRole `json:"global_role" db:"global_role"`
	Status     UserStatus `json:"status" db:"status"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the User model
func (User) TableName() string {
	return "users"
}

// NewUser creates a new active member
func NewUser(email, name string) *User {
	now := time.Now()
	return &User{
		ID:         uuid.New(),
		Email:      email,
		Name:       name,
		GlobalRole: RoleMember,
		Status:     StatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// IsSuperAdmin returns true if the user holds the super_admin role
func (u *User) IsSuperAdmin() bool {
	return u.GlobalRole == RoleSuperAdmin
}

// IsBanned returns true if the user has been banned
func (u *User) IsBanned() bool {
	return u.Status == StatusBanned
}
