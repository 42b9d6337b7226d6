// File: channel/channel.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Shared channel state. All synchronization is per-channel: one mutex
// guards the buffer, the sender waiter list and the parked receiver
// waker. There is no runtime-global lock anywhere on this path.
//
// FIFO sender fairness works by handoff: the receiver, not the woken
// sender, moves a suspended sender's value into the freed slot. A
// newly arriving sender never barges past a non-empty waiter list, so
// delivery order equals send order even under concurrent senders.

package channel

import (
	"sync"

	"github.com/eapache/queue"

	"github.com/momentics/hioload-async/pool"
	"github.com/momentics/hioload-async/sched"
)

const (
	waiting = iota
	delivered
	aborted
)

type sendWaiter[T any] struct {
	val   T
	w     sched.Waker
	state int
}

// state is the heap-shared half of a channel. capacity == 0 marks the
// unbounded variant (backed by a growable queue); otherwise a ring
// buffer of exactly capacity slots.
type state[T any] struct {
	mu       sync.Mutex
	capacity int
	buf      *pool.Ring[T] // bounded
	q        *queue.Queue  // unbounded
	sendq    []*sendWaiter[T]
	recvW    sched.Waker
	hasRecvW bool
	senders  int
	recvGone bool
}

// Bounded creates a channel whose buffered count never exceeds
// capacity (>= 1); senders beyond that suspend.
func Bounded[T any](capacity int) (*Sender[T], *Receiver[T]) {
	if capacity < 1 {
		panic("channel: bounded capacity must be >= 1")
	}
	s := &state[T]{
		capacity: capacity,
		buf:      pool.NewRing[T](capacity),
		senders:  1,
	}
	return &Sender[T]{s: s}, &Receiver[T]{s: s}
}

// Unbounded creates a channel whose sends never suspend; they fail
// only once the receiver is gone.
func Unbounded[T any]() (*Sender[T], *Receiver[T]) {
	s := &state[T]{
		q:       queue.New(),
		senders: 1,
	}
	return &Sender[T]{s: s}, &Receiver[T]{s: s}
}

func (s *state[T]) unbounded() bool { return s.capacity == 0 }

func (s *state[T]) buffered() int {
	if s.unbounded() {
		return s.q.Length()
	}
	return s.buf.Len()
}

func (s *state[T]) popLocked() (T, bool) {
	if s.unbounded() {
		if s.q.Length() == 0 {
			var zero T
			return zero, false
		}
		return s.q.Remove().(T), true
	}
	return s.buf.Pop()
}

func (s *state[T]) pushLocked(v T) {
	if s.unbounded() {
		s.q.Add(v)
		return
	}
	s.buf.Push(v)
}

// wakeRecvLocked fires the parked receiver waker, if any.
func (s *state[T]) wakeRecvLocked() {
	if s.hasRecvW {
		w := s.recvW
		s.hasRecvW = false
		s.recvW = sched.Waker{}
		w.Wake()
	}
}

// promoteLocked refills freed slots from the waiter list in FIFO
// order, waking each promoted sender.
func (s *state[T]) promoteLocked() {
	for len(s.sendq) > 0 && !s.buf.Full() {
		w := s.sendq[0]
		s.sendq = s.sendq[1:]
		if w.state != waiting {
			continue
		}
		s.buf.Push(w.val)
		w.state = delivered
		w.w.Wake()
	}
}
