package core

import (
	"errors"
	"fmt"
)

// Error categories. Callers match them with errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrAuth       = errors.New("invalid username or password")
	ErrTransient  = errors.New("temporarily unavailable")
)

// ValidationError describes a single rejected input. It unwraps to ErrValidation.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

var (
	ErrEmptyCategoryName = &ValidationError{Field: "name", Reason: "category name cannot be empty"}
	ErrInvalidAmount     = &ValidationError{Field: "amount", Reason: "amount is not a number"}
	ErrInvalidDate       = &ValidationError{Field: "date", Reason: "date is not recognised"}
	ErrIncompleteMapping = &ValidationError{Field: "mapping", Reason: "date, description and amount columns are required"}
)

// Conflict wraps a message as a ConflictError.
func Conflict(msg string) error {
	return fmt.Errorf("%w: %s", ErrConflict, msg)
}

// NotFound wraps a message as a NotFoundError.
func NotFound(what string) error {
	return fmt.Errorf("%s: %w", what, ErrNotFound)
}

// Transient marks err as a retryable infrastructure failure of op.
func Transient(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrTransient, err)
}
