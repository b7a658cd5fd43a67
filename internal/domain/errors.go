// Package domain holds the error taxonomy and the event/summary types shared
// by services, workers, and handlers. Everything here is transport-agnostic;
// the HTTP envelope lives in apierror.
package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ValidationError marks malformed or inconsistent input, e.g. a declared
// cash figure that does not match the recomputed denomination total.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func Validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// InvalidStateError marks an operation attempted from the wrong lifecycle
// state (closing a closed session, reopening an open one, etc.).
type InvalidStateError struct {
	Msg string
}

func (e *InvalidStateError) Error() string { return e.Msg }

// NotFoundError marks an unknown register, session, or denomination.
type NotFoundError struct {
	Entity string
}

func (e *NotFoundError) Error() string { return e.Entity + " not found" }

// DuplicateValueError marks a denomination value collision. Values are
// unique across active and inactive rows so history stays referable.
type DuplicateValueError struct {
	Value decimal.Decimal
}

func (e *DuplicateValueError) Error() string {
	return "a denomination with value " + e.Value.String() + " already exists"
}

// UnauthorizedError marks a rejected supervisor credential. Distinguished
// from InvalidStateError so the UI can present the correct corrective action.
type UnauthorizedError struct {
	Msg string
}

func (e *UnauthorizedError) Error() string { return e.Msg }

// ConflictError marks a lost optimistic race on the register lock. Callers
// should re-query session state rather than retry blindly.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string { return e.Msg }

// BlockedByUnapprovedVoidsError blocks a close while voided sales against
// the session lack manager/owner sign-off. It carries the full summary so
// the caller can present the blocking sales, not a generic failure.
type BlockedByUnapprovedVoidsError struct {
	Summary UnapprovedVoidSummary
}

func (e *BlockedByUnapprovedVoidsError) Error() string {
	return fmt.Sprintf("session has %d unapproved voided sale(s); resolve them before closing", e.Summary.Count)
}
