// Package domainerrors provides coded errors shared by all modules.
//
// Services attach a stable Code so transport layers can map failures to HTTP
// statuses and API consumers (and tests) can assert on the specific failure
// rather than "some 4xx". Wrapping preserves the underlying cause for logs
// while the code stays authoritative for behavior.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code is a stable, machine-readable failure classification.
type Code string

const (
	// CodeUnauthenticated - no valid identity was presented.
	CodeUnauthenticated Code = "unauthenticated"
	// CodeForbidden - identity is valid but its role does not permit the operation.
	CodeForbidden Code = "forbidden"
	// CodeScopeDenied - role permits the operation but the target resource is
	// outside the identity's tenant/branch scope. The message stays generic so
	// the response never reveals anything about the resource itself.
	CodeScopeDenied Code = "scope_denied"
	// CodeNotFound - the resource does not exist within the caller's scope.
	CodeNotFound Code = "not_found"
	// CodeConflict - the operation conflicts with current state.
	CodeConflict Code = "conflict"
	// CodeInvalidInput - request data failed validation at a trust boundary.
	CodeInvalidInput Code = "invalid_input"
	// CodeBadRequest - the request is malformed.
	CodeBadRequest Code = "bad_request"
	// CodeInvariantViolation - a domain invariant would be broken.
	CodeInvariantViolation Code = "invariant_violation"
	// CodeInternal - unexpected infrastructure failure.
	CodeInternal Code = "internal"
)

// Error is a domain error with a stable code and human-readable message.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded error.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
// Returns nil if err is nil.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for
// unclassified errors so unknown failures never leak as client faults.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf extracts the human-readable message from err, or a generic
// fallback for unclassified errors.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}
