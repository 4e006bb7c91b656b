// Package apperr defines the structured failures returned by the festival
// and performance lifecycle operations. Every failure carries a Kind that the
// HTTP layer maps to a status code, a human readable message, and optionally
// the offending references or fields.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure. Kinds are strings so they serialise naturally.
type Kind string

const (
	// KindValidation marks a missing or malformed field.
	KindValidation Kind = "VALIDATION"
	// KindReference marks user or entity references that do not resolve or lack a role.
	KindReference Kind = "REFERENCE"
	// KindStateGuard marks an operation attempted from the wrong source state.
	KindStateGuard Kind = "STATE_GUARD"
	// KindAuthorization marks a caller lacking the required role or binding.
	KindAuthorization Kind = "AUTHORIZATION"
	// KindUnauthenticated marks missing, expired, or wrong credentials.
	KindUnauthenticated Kind = "UNAUTHENTICATED"
	// KindNotFound marks an identifier that does not resolve.
	KindNotFound Kind = "NOT_FOUND"
	// KindConflict marks a uniqueness violation.
	KindConflict Kind = "CONFLICT"
	// KindInternal marks an unanticipated failure.
	KindInternal Kind = "INTERNAL"
)

// Error is a classified, caller-recoverable failure.
type Error struct {
	Kind    Kind
	Message string
	// Details enumerates offending references or fields, in input order.
	Details []string
	// Required names the state an operation needed, for state guard failures.
	Required string
}

func (e *Error) Error() string {
	if len(e.Details) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.Details, ", "))
}

// Is matches any *Error of the same kind, so errors.Is(err, apperr.NotFound("")) works.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the Kind of err, or KindInternal when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// As extracts the *Error from err.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// Validation reports missing or malformed fields.
func Validation(msg string, fields ...string) *Error {
	return &Error{Kind: KindValidation, Message: msg, Details: fields}
}

// Reference reports every reference that failed to resolve.
func Reference(msg string, refs ...string) *Error {
	return &Error{Kind: KindReference, Message: msg, Details: refs}
}

// StateGuard reports an operation attempted from the wrong state.
func StateGuard(msg, required string) *Error {
	return &Error{Kind: KindStateGuard, Message: msg, Required: required}
}

// Authorization reports a caller that may not perform the operation.
func Authorization(msg string) *Error {
	return &Error{Kind: KindAuthorization, Message: msg}
}

// Unauthenticated reports credentials that could not be verified.
func Unauthenticated(msg string) *Error {
	return &Error{Kind: KindUnauthenticated, Message: msg}
}

// NotFound reports an identifier that does not resolve.
func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// Conflict reports a uniqueness violation.
func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

// Internal wraps an unanticipated failure. The cause is kept for logging only.
func Internal(cause error) error {
	return fmt.Errorf("%w: %w", &Error{Kind: KindInternal, Message: "internal error"}, cause)
}
