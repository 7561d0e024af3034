// Package errors defines the error taxonomy shared by every jobboard component.
// Callers match with errors.Is against the sentinels below.
package errors

import (
	"fmt"
)

var (
	ErrUnauthenticated = fmt.Errorf("not logged in")
	ErrForbidden       = fmt.Errorf("forbidden")
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrNotFound        = fmt.Errorf("not found")
	ErrConflict        = fmt.Errorf("conflict")
	// ErrTransient marks collaborator timeouts and outages; safe to retry with backoff.
	ErrTransient = fmt.Errorf("temporarily unavailable")
)

// ValidationError reports the offending field so clients can correct the input.
type ValidationError struct {
	Field  string
	Reason string
}

func (v *ValidationError) Error() string {
	return fmt.Sprintf("invalid input: %s: %s", v.Field, v.Reason)
}

// Is makes a ValidationError match ErrInvalidInput.
func (v *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// Validation builds a ValidationError for field.
func Validation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// ConflictError is returned for illegal state transitions. Current holds the
// entity state the losing writer should observe.
type ConflictError struct {
	Reason  string
	Current interface{}
}

func (c *ConflictError) Error() string {
	return fmt.Sprintf("conflict: %s", c.Reason)
}

// Is makes a ConflictError match ErrConflict.
func (c *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// Conflict builds a ConflictError.
func Conflict(reason string, current interface{}) error {
	return &ConflictError{Reason: reason, Current: current}
}
