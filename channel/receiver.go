// File: channel/receiver.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package channel

import (
	"github.com/momentics/hioload-async/api"
	"github.com/momentics/hioload-async/sched"
)

// Receiver is the single consuming handle of a channel. It is not
// cloneable; the engine supports exactly one logical receiver.
type Receiver[T any] struct {
	s      *state[T]
	closed bool
}

// Recv returns a future resolving to the next item in send order.
// While senders exist it suspends on empty; once the last sender is
// gone it drains the buffer and then resolves with ErrClosed.
func (rx *Receiver[T]) Recv() sched.Future[api.Result[T]] {
	return sched.FutureFunc[api.Result[T]](func(cx *sched.Context) (api.Result[T], bool) {
		s := rx.s
		s.mu.Lock()
		defer s.mu.Unlock()
		if v, ok := s.popLocked(); ok {
			s.promoteLocked()
			return api.Result[T]{Value: v}, true
		}
		// Buffer empty; a queued waiter can only exist transiently
		// here, hand its value over directly.
		for len(s.sendq) > 0 {
			w := s.sendq[0]
			s.sendq = s.sendq[1:]
			if w.state != waiting {
				continue
			}
			w.state = delivered
			w.w.Wake()
			return api.Result[T]{Value: w.val}, true
		}
		if s.senders == 0 {
			return api.Result[T]{Err: ErrClosed}, true
		}
		s.recvW = cx.Waker()
		s.hasRecvW = true
		return api.Result[T]{}, false
	})
}

// TryRecv pops without suspending: ErrEmpty when nothing is buffered,
// ErrClosed once every sender is gone and the buffer is drained.
func (rx *Receiver[T]) TryRecv() (T, error) {
	s := rx.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.popLocked(); ok {
		s.promoteLocked()
		return v, nil
	}
	var zero T
	if s.senders == 0 {
		return zero, ErrClosed
	}
	return zero, ErrEmpty
}

// Len reports the buffered item count.
func (rx *Receiver[T]) Len() int {
	s := rx.s
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffered()
}

// Close drops the receiver. Suspended senders resume with ErrClosed
// and all future sends fail immediately; nothing is silently buffered
// into a void.
func (rx *Receiver[T]) Close() {
	s := rx.s
	s.mu.Lock()
	if rx.closed {
		s.mu.Unlock()
		return
	}
	rx.closed = true
	s.recvGone = true
	s.hasRecvW = false
	s.recvW = sched.Waker{}
	waiters := s.sendq
	s.sendq = nil
	for _, w := range waiters {
		if w.state == waiting {
			w.state = aborted
			w.w.Wake()
		}
	}
	s.mu.Unlock()
}
