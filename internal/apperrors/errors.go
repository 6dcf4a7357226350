// Package apperrors provides structured application errors with HTTP status mapping.
package apperrors

import (
	"errors"
)

// Sentinel errors for classification via errors.Is().
var (
	ErrValidation   = errors.New("validation error")
	ErrPrecondition = errors.New("precondition failed")
	ErrUnavailable  = errors.New("service unavailable")
)

// Error provides structured error with context.
type Error struct {
	Sentinel error  // Wrapped sentinel for errors.Is() classification
	Message  string // Human-readable message
	Field    string // For validation errors (e.g., "buildId", "container")
}

// Error returns the human-readable error message.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the sentinel error for errors.Is() classification.
func (e *Error) Unwrap() error {
	return e.Sentinel
}

// Validation creates a validation error for a specific field.
func Validation(field, message string) error {
	return &Error{
		Sentinel: ErrValidation,
		Message:  message,
		Field:    field,
	}
}

// Precondition creates an error for a request that cannot be served in the
// current remote state. The caller may retry later.
func Precondition(message string) error {
	return &Error{
		Sentinel: ErrPrecondition,
		Message:  message,
	}
}
