// File: sched/task.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The task is the unit of concurrency: a heap-owned state machine
// shared between the scheduler (via run-queue slots) and the caller's
// JoinHandle. Result slot, cancellation flag and waker registration
// live in that shared allocation.

package sched

import (
	"sync"
	"sync/atomic"

	"github.com/momentics/hioload-async/api"
)

type task struct {
	id   uint64
	home atomic.Pointer[core]

	// step advances the erased future once; true means finished.
	step func(cx *Context) bool

	// inQueue enforces at-most-one run-queue entry per task.
	inQueue   atomic.Bool
	cancelled atomic.Bool
	done      atomic.Bool

	// pinned marks a task holding a registration in its home core's
	// driver. Registration state is owned by that core's thread, so a
	// pinned task must never migrate: work stealing skips it.
	pinned atomic.Bool

	// suspended is touched only by the core polling the task: set
	// after a poll reports not-ready, it marks that the task has a
	// suspension point at which cancellation may be observed.
	suspended bool

	mu         sync.Mutex
	joinWakers []Waker
	result     any
	jerr       error
	doneCh     chan struct{}
}

// finish populates the result slot exactly once and releases joiners.
func (t *task) finish(result any, jerr error) {
	if !t.done.CompareAndSwap(false, true) {
		return
	}
	t.mu.Lock()
	t.result = result
	t.jerr = jerr
	waiters := t.joinWakers
	t.joinWakers = nil
	t.mu.Unlock()
	close(t.doneCh)
	for _, w := range waiters {
		w.Wake()
	}
}

// addJoiner parks a waker to fire on completion. Returns false if the
// task already finished (the caller should read the result instead).
func (t *task) addJoiner(w Waker) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done.Load() {
		return false
	}
	for _, existing := range t.joinWakers {
		if existing.is(w) {
			return true
		}
	}
	t.joinWakers = append(t.joinWakers, w)
	return true
}

// JoinHandle is the caller-side reference to a spawned task. It
// satisfies api.Cancelable.
type JoinHandle[T any] struct {
	t *task
}

// Wait blocks the calling goroutine until the task completes and
// returns its result. The error is nil, ErrCancelled, or *PanicError.
// Inside a task use Join instead; Wait would stall the core.
func (h *JoinHandle[T]) Wait() (T, error) {
	<-h.t.doneCh
	return h.outcome()
}

// Join returns a future resolving to the task's value, for awaiting
// one task from another. A cancelled or panicked task resolves to the
// zero value and the join error is discarded; callers that need to
// distinguish failure use JoinResult (or Err after completion).
func (h *JoinHandle[T]) Join() Future[T] {
	return FutureFunc[T](func(cx *Context) (T, bool) {
		if !h.t.addJoiner(cx.Waker()) {
			v, _ := h.outcome()
			return v, true
		}
		if h.t.done.Load() {
			// Completed between the check and registration close.
			v, _ := h.outcome()
			return v, true
		}
		var zero T
		return zero, false
	})
}

// JoinResult resolves to an api.Result carrying value or join error,
// for callers that must distinguish errors inside select arms.
func (h *JoinHandle[T]) JoinResult() Future[api.Result[T]] {
	inner := h.Join()
	return FutureFunc[api.Result[T]](func(cx *Context) (api.Result[T], bool) {
		if _, ok := inner.Poll(cx); !ok {
			return api.Result[T]{}, false
		}
		v, err := h.outcome()
		return api.Result[T]{Value: v, Err: err}, true
	})
}

// Cancel requests cooperative cancellation. The task observes the
// flag at its next suspension point; a task that never suspends runs
// to its natural completion.
func (h *JoinHandle[T]) Cancel() error {
	h.t.cancelled.Store(true)
	Waker{t: h.t}.Wake()
	return nil
}

// Done signals completion or cancellation.
func (h *JoinHandle[T]) Done() <-chan struct{} { return h.t.doneCh }

// Err returns the terminal error once the task is done: nil for a
// normal completion, ErrCancelled or *PanicError otherwise.
func (h *JoinHandle[T]) Err() error {
	if !h.t.done.Load() {
		return nil
	}
	h.t.mu.Lock()
	defer h.t.mu.Unlock()
	return h.t.jerr
}

func (h *JoinHandle[T]) outcome() (T, error) {
	h.t.mu.Lock()
	defer h.t.mu.Unlock()
	var zero T
	if h.t.jerr != nil {
		return zero, h.t.jerr
	}
	v, _ := h.t.result.(T)
	return v, nil
}
