package errors

import (
	"fmt"
)

// Error is a PostgreSQL-compatible error with a SQLSTATE code. Planning
// failures that a caller can catch and react to (for example by trying a
// different plan shape) are carried this way; planner invariant violations
// are not — those panic and abort the pass.
type Error struct {
	Code    string // SQLSTATE code
	Message string // Primary error message
	Detail  string // Optional detailed error message
	Hint    string // Optional hint message
	Routine string // Source routine name, when known
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (SQLSTATE %s) DETAIL: %s", e.Message, e.Code, e.Detail)
	}
	return fmt.Sprintf("%s (SQLSTATE %s)", e.Message, e.Code)
}

// New creates a new Error with the given code and message.
func New(code string, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a new Error with a formatted message.
func Newf(code string, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithDetail adds detail to the error.
func (e *Error) WithDetail(detail string) *Error {
	e.Detail = detail
	return e
}

// WithDetailf adds formatted detail to the error.
func (e *Error) WithDetailf(format string, args ...interface{}) *Error {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// WithHint adds a hint to the error.
func (e *Error) WithHint(hint string) *Error {
	e.Hint = hint
	return e
}

// AnalysisErrorf creates an analysis failure: the query cannot be planned
// as written. Callers may catch it and retry with a different plan shape.
func AnalysisErrorf(format string, args ...interface{}) *Error {
	return Newf(AnalysisError, format, args...)
}

// InternalErrorf creates an internal error.
func InternalErrorf(format string, args ...interface{}) *Error {
	return Newf(InternalError, format, args...)
}

// FeatureNotSupportedError creates a feature not supported error.
func FeatureNotSupportedError(feature string) *Error {
	return Newf(FeatureNotSupported, "%s is not supported", feature)
}

// IsError checks if an error is an Error with a specific code.
func IsError(err error, code string) bool {
	if err == nil {
		return false
	}
	e, ok := err.(*Error)
	return ok && e.Code == code
}

// IsAnalysisError reports whether err is a catchable planning failure.
func IsAnalysisError(err error) bool {
	return IsError(err, AnalysisError)
}

// GetError attempts to extract an Error from any error, wrapping generic
// errors as internal errors.
func GetError(err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		return e
	}
	return InternalErrorf("%v", err)
}
