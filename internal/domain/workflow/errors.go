package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a form id is unknown
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition is returned when an action is not legal from the current status
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrForbidden is returned when the actor lacks the role or scope for a stage
	ErrForbidden = errors.New("forbidden")

	// ErrValidation is returned when the action payload is incomplete or out of range
	ErrValidation = errors.New("validation error")

	// ErrConflict is returned when another reviewer changed the status first
	ErrConflict = errors.New("conflict")
)

// Error carries a failure kind and a reason that can be shown to the user
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the kind so callers can use errors.Is
func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NotFound builds an ErrNotFound failure
func NotFound(format string, args ...interface{}) *Error {
	return newError(ErrNotFound, format, args...)
}

// InvalidTransition builds an ErrInvalidTransition failure
func InvalidTransition(format string, args ...interface{}) *Error {
	return newError(ErrInvalidTransition, format, args...)
}

// Forbidden builds an ErrForbidden failure
func Forbidden(format string, args ...interface{}) *Error {
	return newError(ErrForbidden, format, args...)
}

// Validation builds an ErrValidation failure
func Validation(format string, args ...interface{}) *Error {
	return newError(ErrValidation, format, args...)
}

// Conflict builds an ErrConflict failure
func Conflict(format string, args ...interface{}) *Error {
	return newError(ErrConflict, format, args...)
}

// Reason returns the user-facing message of a workflow failure, or a generic
// text for any other error.
func Reason(err error) string {
	var wfErr *Error
	if errors.As(err, &wfErr) {
		return wfErr.Message
	}
	return "internal error"
}

// KindOf returns the sentinel kind of err, or nil when err is not a workflow failure
func KindOf(err error) error {
	for _, kind := range []error{ErrNotFound, ErrInvalidTransition, ErrForbidden, ErrValidation, ErrConflict} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
