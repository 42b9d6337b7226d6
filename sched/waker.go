// File: sched/waker.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package sched

// Waker re-enqueues one suspended task on its home core. The zero
// value is inert. Copies all refer to the same task.
//
// Invariants: Wake is idempotent and safe from any thread; concurrent
// redundant wakes coalesce into exactly one queue entry (the task's
// in-queue flag is claimed by compare-and-swap); the task is enqueued
// on its home core and never run inline by the caller.
type Waker struct {
	t *task
}

// Wake schedules the task for its next poll. Waking a completed task
// is a no-op.
func (w Waker) Wake() {
	t := w.t
	if t == nil || t.done.Load() {
		return
	}
	if t.inQueue.CompareAndSwap(false, true) {
		t.home.Load().enqueue(t)
	}
}

// Valid reports whether the waker is bound to a task.
func (w Waker) Valid() bool { return w.t != nil }

// is reports whether the waker targets the same task as other.
// Join-wait lists use it to coalesce duplicate registrations.
func (w Waker) is(other Waker) bool { return w.t == other.t }
