// File: api/errors.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Common error types and error codes for the hioload-async engine.

package api

import "fmt"

// Sentinel errors used across the engine.
var (
	ErrClosed            = fmt.Errorf("resource is closed")
	ErrNotSupported      = fmt.Errorf("operation not supported on this platform")
	ErrInvalidArgument   = fmt.Errorf("invalid argument")
	ErrResourceExhausted = fmt.Errorf("resource exhausted")
	ErrTimeout           = fmt.Errorf("operation timed out")
	ErrShutdown          = fmt.Errorf("runtime is shut down")
)

// ErrorCode represents specific error conditions in the engine.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeInvalidArgument
	ErrCodeNotSupported
	ErrCodeResourceExhausted
	ErrCodeDriverInit
	ErrCodeInternal
)

// Error is a structured error with a code and optional context. It is
// reserved for construction-time failures (driver initialization is
// the only fatal class in the engine, per the propagation policy).
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
	cause   error
}

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Context) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (context: %+v)", e.Message, e.Context)
}

// Unwrap exposes the wrapped cause, if any.
func (e *Error) Unwrap() error { return e.cause }

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// WithCause attaches an underlying error.
func (e *Error) WithCause(err error) *Error {
	e.cause = err
	return e
}
