// File: sched/queue.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Per-core run queue. Only the owning core pops, but wakers push from
// any thread, so the queue is a mutex-protected FIFO rather than the
// SPSC ring used elsewhere in the engine. The owner drains the whole
// queue per pass, which also bounds how often a self-rescheduling
// task can run before the core services timers and the driver again.

package sched

import "sync"

type runQueue struct {
	mu    sync.Mutex
	items []*task
}

// push appends t at the newest end.
func (q *runQueue) push(t *task) {
	q.mu.Lock()
	q.items = append(q.items, t)
	q.mu.Unlock()
}

// drain moves the entire queue into batch (reused between passes),
// preserving enqueue order.
func (q *runQueue) drain(batch []*task) []*task {
	q.mu.Lock()
	batch = append(batch[:0], q.items...)
	for i := range q.items {
		q.items[i] = nil
	}
	q.items = q.items[:0]
	q.mu.Unlock()
	return batch
}

// size returns the current queue length.
func (q *runQueue) size() int {
	q.mu.Lock()
	n := len(q.items)
	q.mu.Unlock()
	return n
}

// steal removes up to max tasks from the oldest end for an idle
// sibling, skipping pinned tasks (their driver registrations are
// owned by this queue's core). Returns nil when the queue holds at
// most one task; a lone runnable task is cheaper to leave in place.
func (q *runQueue) steal(max int) []*task {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.items)
	if n <= 1 || max <= 0 {
		return nil
	}
	if max > n/2 {
		max = n / 2
	}
	if max == 0 {
		max = 1
	}
	var stolen []*task
	kept := q.items[:0]
	for _, t := range q.items {
		if len(stolen) < max && !t.pinned.Load() {
			stolen = append(stolen, t)
			continue
		}
		kept = append(kept, t)
	}
	for i := len(kept); i < n; i++ {
		q.items[i] = nil
	}
	q.items = kept
	return stolen
}
