package domain

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Taxonomy
// =============================================================================

// ErrorKind classifies a failure for transport mapping.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation" // malformed input or unmet precondition
	KindAuth       ErrorKind = "auth"       // missing/invalid token
	KindForbidden  ErrorKind = "forbidden"  // authenticated but not allowed
	KindNotFound   ErrorKind = "notFound"   // absent or not owned by caller
	KindConflict   ErrorKind = "conflict"   // duplicate id
	KindUpstream   ErrorKind = "upstream"   // identity/storage/email/database failure
)

// Error is the portal's structured error. Handlers map Kind to an HTTP status;
// Message is safe to show to the caller.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// =============================================================================
// Constructors
// =============================================================================

func NewValidationError(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NewAuthError(format string, args ...any) *Error {
	return &Error{Kind: KindAuth, Message: fmt.Sprintf(format, args...)}
}

func NewForbiddenError(format string, args ...any) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

func NewNotFoundError(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func NewConflictError(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// NewUpstreamError wraps a collaborator failure. The caller-visible message
// stays generic; the cause is preserved for logs via Unwrap.
func NewUpstreamError(message string, err error) *Error {
	return &Error{Kind: KindUpstream, Message: message, Err: err}
}

// =============================================================================
// Predicates
// =============================================================================

// KindOf returns the ErrorKind of err, or empty string for unclassified errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsValidation(err error) bool { return KindOf(err) == KindValidation }
func IsNotFound(err error) bool   { return KindOf(err) == KindNotFound }
func IsConflict(err error) bool   { return KindOf(err) == KindConflict }
