// Package errors provides the coded error type shared by the rules, engine
// and server packages.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Code is a machine-readable error code.
type Code string

const (
	// CodeResolution means a card group reference could not be resolved
	// against the live game state.
	CodeResolution Code = "RESOLUTION_ERROR"
	// CodeInvalidSelection means a caller-supplied card selection failed
	// its conditions or had the wrong shape.
	CodeInvalidSelection Code = "INVALID_SELECTION"
	// CodeConfiguration means the rule description is inconsistent.
	CodeConfiguration Code = "CONFIGURATION_ERROR"

	CodeActionUnavailable  Code = "ACTION_UNAVAILABLE"
	CodeUnknownAction      Code = "UNKNOWN_ACTION"
	CodeInvalidPlayerCount Code = "INVALID_PLAYER_COUNT"
)

// Error is a domain error with a code.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target carries the same code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates an error with a code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) Code {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return ""
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	return CodeOf(err) == code
}
