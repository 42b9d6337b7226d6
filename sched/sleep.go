// File: sched/sleep.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Timer futures. A sleep inserts its deadline into the polling core's
// wheel on first poll; the wheel callback marks it fired and wakes the
// task. There is no separate timeout primitive: Timeout is a select
// over the operation and a sleep.

package sched

import (
	"time"

	"github.com/momentics/hioload-async/api"
	"github.com/momentics/hioload-async/timer"
)

type sleepFuture struct {
	dur      time.Duration // used when deadline < 0
	deadline int64
	armed    bool
	fired    chan struct{} // closed by the wheel callback
	id       timer.ID
}

func (s *sleepFuture) Poll(cx *Context) (struct{}, bool) {
	select {
	case <-s.fired:
		return struct{}{}, true
	default:
	}
	if !s.armed {
		s.armed = true
		dl := s.deadline
		if dl < 0 {
			if s.dur <= 0 {
				return struct{}{}, true
			}
			dl = cx.Now() + s.dur.Nanoseconds()
		} else if dl <= cx.Now() {
			return struct{}{}, true
		}
		w := cx.Waker()
		fired := s.fired
		s.id = cx.core.wheel.Insert(dl, func() {
			close(fired)
			w.Wake()
		})
	}
	return struct{}{}, false
}

// Sleep suspends the task for at least d. Fires at or after the
// deadline, overshooting by at most one wheel tick.
func Sleep(d time.Duration) Future[struct{}] {
	return &sleepFuture{dur: d, deadline: -1, fired: make(chan struct{})}
}

// SleepUntil suspends until deadlineNs on the runtime's monotonic
// clock (Runtime.Now / Context.Now).
func SleepUntil(deadlineNs int64) Future[struct{}] {
	return &sleepFuture{deadline: deadlineNs, fired: make(chan struct{})}
}

// Timeout races f against a sleep. The result carries f's value, or
// api.ErrTimeout if the deadline won. The losing operation is left
// pending, per select semantics.
func Timeout[T any](f Future[T], d time.Duration) Future[api.Result[T]] {
	sel := SelectTwo(f, Sleep(d))
	return FutureFunc[api.Result[T]](func(cx *Context) (api.Result[T], bool) {
		e, ok := sel.Poll(cx)
		if !ok {
			return api.Result[T]{}, false
		}
		if e.Index == 0 {
			return api.Result[T]{Value: e.A}, true
		}
		return api.Result[T]{Err: api.ErrTimeout}, true
	})
}
