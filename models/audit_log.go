package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of action being audited
type AuditAction string

const (
	AuditActionPORAssigned          AuditAction = "por_assigned"
	AuditActionPORUpdated           AuditAction = "por_updated"
	AuditActionPORRevoked           AuditAction = "por_revoked"
	AuditActionPORDeleted           AuditAction = "por_deleted"
	AuditActionPrivilegeTypeCreated AuditAction = "privilege_type_created"
	AuditActionPrivilegeTypeUpdated AuditAction = "privilege_type_updated"
	AuditActionPrivilegeTypeDeleted AuditAction = "privilege_type_deleted"
	AuditActionUnitCreated          AuditAction = "unit_created"
	AuditActionUnitRenamed          AuditAction = "unit_renamed"
	AuditActionRoleChanged          AuditAction = "role_changed"
	AuditActionUserBanned           AuditAction = "user_banned"
	AuditActionUserUnbanned         AuditAction = "user_unbanned"
)

// AuditLog represents an audit trail entry for an administrative write
type AuditLog struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	ActorID      uuid.UUID       `json:"actor_id" db:"actor_id"`
	Action       AuditAction     `json:"action" db:"action"`
	ResourceType string          `json:"resource_type" db:"resource_type"` // por_assignment, privilege_type, unit, user
	ResourceID   *uuid.UUID      `json:"resource_id,omitempty" db:"resource_id"`
	UnitID       *uuid.UUID      `json:"unit_id,omitempty" db:"unit_id"`
	SubjectID    *uuid.UUID      `json:"subject_id,omitempty" db:"subject_id"` // user affected by the change
	Details      json.RawMessage `json:"details" db:"details"`
	RequestID    string          `json:"request_id" db:"request_id"`
	Timestamp    time.Time       `json:"timestamp" db:"timestamp"`
}

// TableName returns the table name for the AuditLog model
func (AuditLog) TableName() string {
	return "audit_logs"
}

// NewAuditLog creates a new AuditLog instance
func NewAuditLog(actorID uuid.UUID, action AuditAction, resourceType string) *AuditLog {
	return &AuditLog{
		ID:           uuid.New(),
		ActorID:      actorID,
		Action:       action,
		ResourceType: resourceType,
		Timestamp:    time.Now(),
	}
}

// WithResource sets the resource ID
func (a *AuditLog) WithResource(resourceID uuid.UUID) *AuditLog {
	a.ResourceID = &resourceID
	return a
}

// WithUnit sets the organizational unit the change applies to
func (a *AuditLog) WithUnit(unitID uuid.UUID) *AuditLog {
	a.UnitID = &unitID
	return a
}

// WithSubject sets the user affected by the change
func (a *AuditLog) WithSubject(userID uuid.UUID) *AuditLog {
	a.SubjectID = &userID
	return a
}

// WithDetails sets the details
func (a *AuditLog) WithDetails(details interface{}) *AuditLog {
	if data, err := json.Marshal(details); err == nil {
		a.Details = data
	}
	return a
}

// WithRequest sets request metadata
func (a *AuditLog) WithRequest(requestID string) *AuditLog {
	a.RequestID = requestID
	return a
}
