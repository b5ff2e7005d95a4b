/*
errors.go - Centralized error types

PURPOSE:
  All error types shared across packages in one place. Domain packages wrap
  these with context; the API layer maps them to HTTP status codes.

ERROR CATEGORIES:
  1. Validation errors - Bad input, rejected before any work is done
  2. Lookup errors - Referenced record does not exist
  3. Workflow errors - State transition not allowed from the current status

USAGE:
  if errors.Is(err, generic.ErrInvalidTransition) {
      // 409
  }
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned when input fails a business rule
	// (missing field, negative amount, malformed date).
	ErrValidation = errors.New("validation error")

	// ErrInvalidRange is returned when a date range ends before it starts.
	ErrInvalidRange = errors.New("invalid range: end before start")

	// ErrNotFound is returned when a referenced record doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a write collides with existing data.
	ErrConflict = errors.New("conflict")

	// ErrInvalidTransition is returned when a workflow step is not allowed
	// from the current status (e.g. approving a draft timesheet).
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrLocked is returned when writing into an approved week.
	ErrLocked = errors.New("period is locked")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// FieldError describes a single invalid field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *FieldError) Unwrap() error {
	return ErrValidation
}

// Invalid is shorthand for a *FieldError.
func Invalid(field, format string, args ...any) error {
	return &FieldError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError names the missing record.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidRange)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict returns true if the request clashes with current state.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrLocked)
}
