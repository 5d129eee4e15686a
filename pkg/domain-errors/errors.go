// Package domainerrors provides coded errors for the domain layer.
//
// Services return these so transports can translate outcomes into user-facing
// responses without string matching. Infrastructure layers return sentinel
// errors (pkg/platform/sentinel) instead; services wrap those into coded
// errors at the boundary.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error for transport mapping and assertions.
type Code string

const (
	CodeBadRequest  Code = "bad_request"
	CodeValidation  Code = "validation_failed"
	CodeNotFound    Code = "not_found"
	CodeConflict    Code = "conflict"
	CodeForbidden   Code = "forbidden"
	CodeRateLimited Code = "rate_limited"
	CodeUnavailable Code = "unavailable"
	CodeInternal    Code = "internal_error"

	// Onboarding flow outcomes that need distinct user-facing messages.
	CodeDuplicateIdentity  Code = "duplicate_identity"
	CodeInvalidCredentials Code = "invalid_credentials"
	CodeCodeInvalid        Code = "code_invalid"
	CodeCodeExpired        Code = "code_expired"

	// Invariant failures. Unreachable through the step graph; surfaced as
	// typed results rather than panics so a caller bug degrades gracefully.
	CodeMissingIntent    Code = "missing_intent"
	CodeNotAuthenticated Code = "not_authenticated"

	// CodeCommitFailed marks a recoverable commit failure; the submit action
	// is re-enabled so the user can retry manually.
	CodeCommitFailed Code = "commit_failed"
)

// Error is a coded domain error, optionally wrapping a cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a coded error with no cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf builds a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for uncoded
// errors so transports never leak raw internals.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf extracts the user-safe message from err, empty for uncoded errors.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return ""
}
