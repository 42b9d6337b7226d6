// File: api/result.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Generic result, error propagation and cancellation.

package api

// Result wraps any payload or error.
type Result[T any] struct {
	Value T
	Err   error
}

// Ok reports whether the result carries no error.
func (r Result[T]) Ok() bool { return r.Err == nil }

// Cancelable is any operation that may be canceled. JoinHandle
// satisfies this interface.
type Cancelable interface {
	// Cancel requests cooperative cancellation.
	Cancel() error
	// Done signals completion or cancellation.
	Done() <-chan struct{}
	// Err returns the terminal error, nil for normal completion.
	Err() error
}
