package services

import (
	"errors"
	"fmt"

	"github.com/upb/club-authz/repositories"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	ErrorTypeForbidden    ErrorType = "forbidden"
	ErrorTypeConflict     ErrorType = "conflict"
	ErrorTypeInternal     ErrorType = "internal"
	ErrorTypeUnavailable  ErrorType = "unavailable"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// Domain error variables

var (
	// Not Found Errors
	ErrUserNotFound          = NewDomainError(ErrorTypeNotFound, "user not found", nil)
	ErrUnitNotFound          = NewDomainError(ErrorTypeNotFound, "organizational unit not found", nil)
	ErrPrivilegeTypeNotFound = NewDomainError(ErrorTypeNotFound, "privilege type not found", nil)
	ErrAssignmentNotFound    = NewDomainError(ErrorTypeNotFound, "POR assignment not found", nil)
	ErrAuditLogNotFound      = NewDomainError(ErrorTypeNotFound, "audit log not found", nil)

	// Validation Errors
	ErrInvalidInput      = NewDomainError(ErrorTypeValidation, "invalid input", nil)
	ErrInvalidUnitRef    = NewDomainError(ErrorTypeValidation, "exactly one of club_id and board_id is required", nil)
	ErrInvalidDateRange  = NewDomainError(ErrorTypeValidation, "start date must not be after end date", nil)
	ErrUnitKindMismatch  = NewDomainError(ErrorTypeValidation, "unit kind does not match the reference field", nil)
	ErrInvalidCapability = NewDomainError(ErrorTypeValidation, "unknown capability", nil)
	ErrInvalidRole       = NewDomainError(ErrorTypeValidation, "invalid global role", nil)
	ErrInvalidUnitKind   = NewDomainError(ErrorTypeValidation, "invalid unit kind", nil)
	ErrEmptyTitle        = NewDomainError(ErrorTypeValidation, "position title cannot be empty", nil)
	ErrEmptyName         = NewDomainError(ErrorTypeValidation, "name cannot be empty", nil)

	// Authorization Errors
	ErrUnauthorized = NewDomainError(ErrorTypeUnauthorized, "unauthorized", nil)
	ErrInvalidToken = NewDomainError(ErrorTypeUnauthorized, "invalid authentication token", nil)
	ErrTokenExpired = NewDomainError(ErrorTypeUnauthorized, "authentication token expired", nil)

	// Permission Errors
	ErrForbidden               = NewDomainError(ErrorTypeForbidden, "access forbidden", nil)
	ErrInsufficientPermissions = NewDomainError(ErrorTypeForbidden, "insufficient permissions", nil)
	ErrSuperAdminRequired      = NewDomainError(ErrorTypeForbidden, "super admin required", nil)
	ErrCannotBanSuperAdmin     = NewDomainError(ErrorTypeForbidden, "super admins cannot be banned", nil)

	// Conflict Errors
	ErrDuplicateEmail         = NewDomainError(ErrorTypeConflict, "email already exists", nil)
	ErrDuplicateUnitName      = NewDomainError(ErrorTypeConflict, "unit name already exists", nil)
	ErrDuplicateTitle         = NewDomainError(ErrorTypeConflict, "position title already exists", nil)
	ErrPrivilegeTypeInUse     = NewDomainError(ErrorTypeConflict, "privilege type is referenced by active assignments", nil)
	ErrAssignmentAlreadyEnded = NewDomainError(ErrorTypeConflict, "POR assignment already ended", nil)
	ErrConcurrentUpdate       = NewDomainError(ErrorTypeConflict, "concurrent update detected", nil)

	// Internal Errors
	ErrInternal          = NewDomainError(ErrorTypeInternal, "internal server error", nil)
	ErrDatabaseError     = NewDomainError(ErrorTypeInternal, "database error", nil)
	ErrTransactionFailed = NewDomainError(ErrorTypeInternal, "transaction failed", nil)

	// Unavailable Errors
	ErrSnapshotUnavailable = NewDomainError(ErrorTypeUnavailable, "identity snapshot unavailable", nil)
)

// Error type checking helper functions

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeNotFound
	}
	return false
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeValidation
	}
	return false
}

// IsUnauthorizedError checks if an error is an unauthorized error
func IsUnauthorizedError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeUnauthorized
	}
	return false
}

// IsForbiddenError checks if an error is a forbidden error
func IsForbiddenError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeForbidden
	}
	return false
}

// IsConflictError checks if an error is a conflict error
func IsConflictError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeConflict
	}
	return false
}

// IsInternalError checks if an error is an internal error
func IsInternalError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeInternal
	}
	return false
}

// IsUnavailableError checks if an error means required data could not be loaded
func IsUnavailableError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeUnavailable
	}
	return false
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// WrapError wraps an error with additional context
func WrapError(errType ErrorType, message string, err error) error {
	return NewDomainError(errType, message, err)
}

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) error {
	return NewDomainError(ErrorTypeInternal, message, err)
}

// WrapUnavailable wraps an error as a data unavailability error
func WrapUnavailable(message string, err error) error {
	return NewDomainError(ErrorTypeUnavailable, message, err)
}

// TranslateRepositoryError maps repository sentinels to the given domain errors.
// Domain errors pass through untouched and anything else becomes a database error.
func TranslateRepositoryError(err error, notFound, conflict *DomainError) error {
	if err == nil {
		return nil
	}

	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return err
	}

	switch {
	case notFound != nil && errors.Is(err, repositories.ErrNotFound):
		return notFound
	case conflict != nil && (errors.Is(err, repositories.ErrDuplicate) || errors.Is(err, repositories.ErrReferenced)):
		return conflict
	}

	return WrapInternal(ErrDatabaseError.Message, err)
}
