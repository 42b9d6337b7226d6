// File: sched/future.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The poll protocol. A future is a resumable state machine: Poll
// either produces the value or parks the context's waker and reports
// not-ready. A future reporting not-ready without arranging a wake is
// lost, so every engine primitive arms exactly one wake source per
// suspension.

package sched

import "github.com/momentics/hioload-async/api"

// Future is a pollable unit of pending work.
type Future[T any] interface {
	// Poll advances the state machine. ok is true when the value is
	// final; otherwise the future has parked cx's waker and the task
	// suspends.
	Poll(cx *Context) (v T, ok bool)
}

// FutureFunc adapts a function to the Future interface.
type FutureFunc[T any] func(cx *Context) (T, bool)

func (f FutureFunc[T]) Poll(cx *Context) (T, bool) { return f(cx) }

// Go wraps a plain computation as a future that completes in its
// first poll. It is the spawn form used for run-to-completion work.
func Go[T any](fn func() T) Future[T] {
	return FutureFunc[T](func(*Context) (T, bool) { return fn(), true })
}

// Ready returns a future that is immediately complete with v.
func Ready[T any](v T) Future[T] {
	return FutureFunc[T](func(*Context) (T, bool) { return v, true })
}

// Context is passed to every poll. It identifies the task being
// polled and the core doing the polling, and is only valid for the
// duration of that poll.
type Context struct {
	core *core
	task *task
}

// Waker returns a relocatable wake token for the task being polled.
// It may be cloned freely and invoked from any thread; redundant
// concurrent invocations coalesce into one enqueue.
func (cx *Context) Waker() Waker { return Waker{t: cx.task} }

// Cancelled reports whether cooperative cancellation was requested.
// Long computations may check it voluntarily; the scheduler enforces
// it only at suspension points.
func (cx *Context) Cancelled() bool { return cx.task.cancelled.Load() }

// Now returns nanoseconds on the runtime's monotonic clock.
func (cx *Context) Now() int64 { return cx.core.wheel.Now() }

// Runtime returns the runtime executing this task.
func (cx *Context) Runtime() *Runtime { return cx.core.rt }

// Driver exposes the polling core's readiness driver. It is the raw
// registration surface consumed by network layers; most callers want
// AwaitReady instead.
func (cx *Context) Driver() api.Driver { return cx.core.drv }
