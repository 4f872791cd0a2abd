package utils

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/upb/club-authz/models"
)

var (
	// validate is the singleton validator instance
	validate *validator.Validate

	// emailRegex is a simple email validation regex
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

func init() {
	validate = validator.New()

	// Report fields by their JSON names so clients can map errors back to the payload
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation("capability", func(fl validator.FieldLevel) bool {
		return models.Capability(fl.Field().String()).IsValid()
	})
	validate.RegisterStructValidation(validateUnitScope, UnitScope{})
}

// UnitScope is embedded by request bodies that point at exactly one club or board
type UnitScope struct {
	ClubID  *uuid.UUID `json:"club_id,omitempty"`
	BoardID *uuid.UUID `json:"board_id,omitempty"`
}

// Ref converts the scope into a unit reference. A nil UUID counts as absent.
func (s UnitScope) Ref() models.UnitRef {
	var ref models.UnitRef
	if s.ClubID != nil && *s.ClubID != uuid.Nil {
		ref.ClubID = s.ClubID
	}
	if s.BoardID != nil && *s.BoardID != uuid.Nil {
		ref.BoardID = s.BoardID
	}
	return ref
}

func validateUnitScope(sl validator.StructLevel) {
	scope := sl.Current().Interface().(UnitScope)
	if !scope.Ref().IsValid() {
		sl.ReportError(scope.ClubID, "club_id", "ClubID", "exactly_one_unit", "")
		sl.ReportError(scope.BoardID, "board_id", "BoardID", "exactly_one_unit", "")
	}
}

// ValidateStruct validates a struct using go-playground/validator
func ValidateStruct(s interface{}) error {
	if err := validate.Struct(s); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return NewValidationError(validationErrors)
		}
		return err
	}
	return nil
}

// ValidationError wraps validation errors with structured details
type ValidationError struct {
	Message string
	Fields  map[string]string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a ValidationError from validator.ValidationErrors
func NewValidationError(errs validator.ValidationErrors) *ValidationError {
	fields := make(map[string]string)
	for _, err := range errs {
		field := err.Field()
		tag := err.Tag()

		switch tag {
		case "required":
			fields[field] = fmt.Sprintf("%s is required", field)
		case "email":
			fields[field] = fmt.Sprintf("%s must be a valid email", field)
		case "uuid":
			fields[field] = fmt.Sprintf("%s must be a valid UUID", field)
		case "min":
			fields[field] = fmt.Sprintf("%s must be at least %s", field, err.Param())
		case "max":
			fields[field] = fmt.Sprintf("%s must be at most %s", field, err.Param())
		case "oneof":
			fields[field] = fmt.Sprintf("%s must be one of: %s", field, err.Param())
		case "capability":
			fields[field] = fmt.Sprintf("%s must be one of: %s", field, capabilityList())
		case "exactly_one_unit":
			fields[field] = "exactly one of club_id and board_id is required"
		default:
			fields[field] = fmt.Sprintf("%s validation failed on '%s' tag", field, tag)
		}
	}

	return &ValidationError{
		Message: "Validation failed",
		Fields:  fields,
	}
}

func capabilityList() string {
	caps := models.AllCapabilities()
	names := make([]string, len(caps))
	for i, c := range caps {
		names[i] = string(c)
	}
	return strings.Join(names, " ")
}

// IsValidationError checks if an error is a ValidationError
func IsValidationError(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

// GetValidationFields extracts field errors from a ValidationError
func GetValidationFields(err error) map[string]string {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Fields
	}
	return nil
}

// ValidateUUID validates that a string is a valid UUID
func ValidateUUID(s string) error {
	if _, err := uuid.Parse(s); err != nil {
		return fmt.Errorf("invalid UUID format: %s", s)
	}
	return nil
}

// ParseOptionalUUID parses s as a UUID, returning nil for the empty string
func ParseOptionalUUID(s string) (*uuid.UUID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("invalid UUID format: %s", s)
	}
	return &id, nil
}

// ValidateEmail validates that a string is a valid email
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format: %s", email)
	}
	return nil
}
