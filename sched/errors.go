// File: sched/errors.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Join-error taxonomy. Both variants are recoverable values returned
// from JoinHandle.Wait; neither is ever process-fatal.

package sched

import (
	"errors"
	"fmt"
)

// ErrCancelled reports that a task observed cooperative cancellation
// at a suspension point and unwound.
var ErrCancelled = errors.New("sched: task cancelled")

// PanicError wraps a panic contained inside one task. The panic is
// confined to the task's result slot and never unwinds the core loop.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("sched: task panicked: %v", e.Value)
}
