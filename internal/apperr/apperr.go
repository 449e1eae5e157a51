// Package apperr holds the error taxonomy shared by all ledger services.
// Services wrap these sentinels with context; callers classify failures
// with errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a referenced budget, expense,
	// reimbursement or user does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation is returned on malformed or out-of-range input.
	ErrValidation = errors.New("validation failed")

	// ErrInvariantViolation is returned when a requested mutation would
	// break a ledger invariant, e.g. a reimbursement amount that does not
	// match the expense's reimbursable remainder.
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrUnauthorized is returned when the acting user lacks the privilege
	// required for an operation.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrConflict is returned when an operation is not permitted in the
	// record's current state, e.g. re-settling an already paid reimbursement.
	ErrConflict = errors.New("conflict")
)

// NotFound wraps ErrNotFound with a formatted message.
func NotFound(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrNotFound}, args...)...)
}

// Validation wraps ErrValidation with a formatted message.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

// Invariant wraps ErrInvariantViolation with a formatted message.
func Invariant(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvariantViolation}, args...)...)
}

// Unauthorized wraps ErrUnauthorized with a formatted message.
func Unauthorized(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrUnauthorized}, args...)...)
}

// Conflict wraps ErrConflict with a formatted message.
func Conflict(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrConflict}, args...)...)
}
