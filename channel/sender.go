// File: channel/sender.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package channel

import "github.com/momentics/hioload-async/sched"

// Sender is one producing handle of a channel. Clone it for every
// producing task; the channel closes for the receiver when the last
// handle is closed.
type Sender[T any] struct {
	s      *state[T]
	closed bool
}

// Send returns a future that delivers v. On a bounded channel it
// suspends while the buffer is full (resuming in FIFO order behind
// earlier suspended senders); on an unbounded channel it completes on
// its first poll. Resolves to nil, or ErrClosed if the receiver is
// gone.
func (tx *Sender[T]) Send(v T) sched.Future[error] {
	f := &sendFuture[T]{s: tx.s, val: v}
	return f
}

// TrySend delivers without suspending: ErrFull when a bounded buffer
// is at capacity (or suspended senders are queued ahead), ErrClosed
// when the receiver is gone.
func (tx *Sender[T]) TrySend(v T) error {
	s := tx.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recvGone {
		return ErrClosed
	}
	if !s.unbounded() && (len(s.sendq) > 0 || s.buf.Full()) {
		return ErrFull
	}
	s.pushLocked(v)
	s.wakeRecvLocked()
	return nil
}

// Clone adds a producing handle.
func (tx *Sender[T]) Clone() *Sender[T] {
	s := tx.s
	s.mu.Lock()
	s.senders++
	s.mu.Unlock()
	return &Sender[T]{s: s}
}

// Close drops this handle. When the last handle closes, pending and
// future receives drain the buffer and then fail with ErrClosed.
// Idempotent per handle.
func (tx *Sender[T]) Close() {
	s := tx.s
	s.mu.Lock()
	if tx.closed {
		s.mu.Unlock()
		return
	}
	tx.closed = true
	s.senders--
	if s.senders == 0 {
		s.wakeRecvLocked()
	}
	s.mu.Unlock()
}

type sendFuture[T any] struct {
	s      *state[T]
	val    T
	waiter *sendWaiter[T]
}

func (f *sendFuture[T]) Poll(cx *sched.Context) (error, bool) {
	s := f.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.waiter != nil {
		switch f.waiter.state {
		case delivered:
			return nil, true
		case aborted:
			return ErrClosed, true
		}
		// Still queued; refresh the waker in case the task migrated.
		f.waiter.w = cx.Waker()
		return nil, false
	}
	if s.recvGone {
		return ErrClosed, true
	}
	if s.unbounded() {
		s.pushLocked(f.val)
		s.wakeRecvLocked()
		return nil, true
	}
	// No barging: queue behind existing waiters even if a slot is
	// free, or FIFO resume order would break.
	if len(s.sendq) == 0 && !s.buf.Full() {
		s.buf.Push(f.val)
		s.wakeRecvLocked()
		return nil, true
	}
	f.waiter = &sendWaiter[T]{val: f.val, w: cx.Waker()}
	s.sendq = append(s.sendq, f.waiter)
	return nil, false
}
