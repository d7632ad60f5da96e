// Package domainerrors carries the error taxonomy surfaced to API clients.
//
// Services return *Error values (directly or wrapped) so transport adapters can
// map them to a stable error code and status without inspecting messages.
// Infrastructure facts (row missing, lock lost) are expressed with the
// sentinel package and translated into a Code at the service boundary.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code is the stable, client-visible error kind.
type Code string

const (
	// CodeValidation rejects malformed input before any state is mutated.
	CodeValidation Code = "validation_error"
	// CodeBadRequest covers undecodable requests (bad JSON, bad path params).
	CodeBadRequest Code = "bad_request"
	// CodeNotFound means a referenced entity does not exist.
	CodeNotFound Code = "not_found"
	// CodeInvalidTransition is a state machine violation.
	CodeInvalidTransition Code = "invalid_transition"
	// CodePrivilegedDocument rejects numbering a withheld document.
	CodePrivilegedDocument Code = "privileged_document"
	// CodePartialBatchFailure marks a batch where some items failed.
	CodePartialBatchFailure Code = "partial_batch_failure"
	// CodeConflict signals a concurrent or overlapping write.
	CodeConflict Code = "conflict"
	// CodeInvariantViolation is raised by model constructors; services
	// convert it to CodeValidation before it reaches a client.
	CodeInvariantViolation Code = "invariant_violation"
	CodeTimeout            Code = "timeout"
	CodeInternal           Code = "internal_error"
)

// Error is a domain error with a code and a human-readable message.
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

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an Error without a cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf builds an Error with a formatted message.
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

// As returns the outermost *Error in the chain.
func As(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// HasCode reports whether the outermost domain error in the chain carries code.
func HasCode(err error, code Code) bool {
	de, ok := As(err)
	return ok && de.Code == code
}

// CodeOf returns the code of err, or CodeInternal when err carries none.
func CodeOf(err error) Code {
	if de, ok := As(err); ok {
		return de.Code
	}
	return CodeInternal
}

// MessageOf returns the client-facing message of err.
func MessageOf(err error) string {
	if de, ok := As(err); ok {
		return de.Message
	}
	return "internal error"
}
