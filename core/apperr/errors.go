package apperr

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ValidationError indicates malformed caller input (bad identity shape,
// platform/username mismatch, wrong attribute types). No mutation has
// been performed when it is returned.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidation creates a ValidationError with a formatted message.
func NewValidation(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError indicates a referenced entity ID does not exist.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

// ConfigError indicates missing or invalid tenant configuration,
// for example an absent attribute platform priority array.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}

// ConflictError is the user-facing translation of a unique constraint
// violation, typically a concurrent identity assignment collision.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s already exists", e.Field)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsConfig reports whether err is a ConfigError.
func IsConfig(err error) bool {
	var target *ConfigError
	return errors.As(err, &target)
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

// HTTPStatus maps an error onto the HTTP status handlers respond with.
func HTTPStatus(err error) int {
	switch {
	case IsValidation(err) || IsConfig(err):
		return 400
	case IsNotFound(err):
		return 404
	case IsConflict(err):
		return 409
	default:
		return 500
	}
}

// TranslateDB converts driver-level errors into the error kinds callers
// are expected to handle. Unique violations become a ConflictError on
// the given field, record-not-found becomes a NotFoundError. Everything
// else passes through unchanged.
func TranslateDB(err error, entity, id, uniqueField string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &NotFoundError{Entity: entity, ID: id}
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return &ConflictError{Field: uniqueField}
	}
	return err
}
