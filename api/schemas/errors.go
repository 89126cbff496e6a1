package schemas

import (
	"errors"
	"fmt"
)

// ErrorKind is a string type used for structured error reporting across the
// action pipeline. Using a custom type ensures only predefined constants can
// appear where an ErrorKind is expected.
type ErrorKind string

const (
	// -- Parser / Translator --
	ErrMalformedAction ErrorKind = "MALFORMED_ACTION"
	ErrInvalidGeometry ErrorKind = "INVALID_GEOMETRY"

	// -- Recoverable execution faults, reported back to the policy --
	ErrElementNotInteractable ErrorKind = "ELEMENT_NOT_INTERACTABLE"
	ErrNavigationFailed       ErrorKind = "NAVIGATION_FAILED"
	ErrTimeout                ErrorKind = "TIMEOUT"

	// -- Unrecoverable faults, surfaced to the caller --
	ErrDriverError        ErrorKind = "DRIVER_ERROR"
	ErrServiceUnavailable ErrorKind = "SERVICE_UNAVAILABLE"
	ErrBudgetExhausted    ErrorKind = "BUDGET_EXHAUSTED"
)

// Recoverable reports whether a fault of this kind may be fed back to the
// reasoning service as the turn's outcome instead of terminating the loop.
func (k ErrorKind) Recoverable() bool {
	switch k {
	case ErrMalformedAction, ErrInvalidGeometry, ErrElementNotInteractable,
		ErrNavigationFailed, ErrTimeout:
		return true
	default:
		return false
	}
}

// Error is a structured fault carrying its kind and human-readable detail.
type Error struct {
	Kind   ErrorKind `json:"kind"`
	Detail string    `json:"detail"`
	// Err is the underlying cause, not serialized.
	Err error `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// Unwrap exposes the underlying cause to errors.Is and errors.As.
func (e *Error) Unwrap() error { return e.Err }

// NewError builds a structured fault.
func NewError(kind ErrorKind, detail string, err error) *Error {
	return &Error{Kind: kind, Detail: detail, Err: err}
}

// Errorf builds a structured fault with a formatted detail string.
func Errorf(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// KindOf extracts the ErrorKind from err if it is (or wraps) a *Error;
// otherwise it returns the empty kind.
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}
