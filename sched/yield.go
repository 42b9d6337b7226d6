// File: sched/yield.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package sched

// Yield suspends the task for exactly one scheduler pass: the first
// poll wakes itself and reports not-ready, sending the task back
// through the run queue behind everything already enqueued.
func Yield() Future[struct{}] {
	yielded := false
	return FutureFunc[struct{}](func(cx *Context) (struct{}, bool) {
		if yielded {
			return struct{}{}, true
		}
		yielded = true
		cx.Waker().Wake()
		return struct{}{}, false
	})
}
