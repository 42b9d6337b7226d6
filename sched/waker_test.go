// File: sched/waker_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// White-box tests of the wake protocol and run queue, using a bare
// core that never runs so queue contents stay observable.

package sched

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func newBareTask() (*task, *core) {
	c := &core{}
	t := &task{doneCh: make(chan struct{})}
	t.home.Store(c)
	return t, c
}

func TestWakeCoalescesConcurrent(t *testing.T) {
	tk, c := newBareTask()
	w := Waker{t: tk}

	var g errgroup.Group
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			for j := 0; j < 1000; j++ {
				w.Wake()
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, 1, c.queue.size(), "redundant wakes must coalesce into one entry")

	// After the core clears the in-queue flag a new wake enqueues again.
	c.batch = c.queue.drain(c.batch)
	tk.inQueue.Store(false)
	w.Wake()
	assert.Equal(t, 1, c.queue.size())
}

func TestWakeCompletedTaskNoop(t *testing.T) {
	tk, c := newBareTask()
	tk.done.Store(true)
	Waker{t: tk}.Wake()
	assert.Zero(t, c.queue.size())
}

func TestZeroWakerInert(t *testing.T) {
	var w Waker
	assert.False(t, w.Valid())
	w.Wake() // must not panic
}

func TestRunQueueDrainPreservesOrder(t *testing.T) {
	var q runQueue
	var tasks []*task
	for i := 0; i < 5; i++ {
		tk := &task{id: uint64(i)}
		tasks = append(tasks, tk)
		q.push(tk)
	}
	batch := q.drain(nil)
	require.Len(t, batch, 5)
	for i, tk := range batch {
		assert.Equal(t, tasks[i], tk)
	}
	assert.Zero(t, q.size())
}

func TestRunQueueStealTakesOldestHalf(t *testing.T) {
	var q runQueue
	for i := 0; i < 8; i++ {
		q.push(&task{id: uint64(i)})
	}

	stolen := q.steal(q.size() / 2)
	require.Len(t, stolen, 4)
	for i, tk := range stolen {
		assert.Equal(t, uint64(i), tk.id, "steal must take from the oldest end")
	}

	rest := q.drain(nil)
	require.Len(t, rest, 4)
	for i, tk := range rest {
		assert.Equal(t, uint64(i+4), tk.id)
	}
}

func TestRunQueueStealSkipsPinned(t *testing.T) {
	var q runQueue
	for i := 0; i < 8; i++ {
		tk := &task{id: uint64(i)}
		if i%2 == 0 {
			tk.pinned.Store(true)
		}
		q.push(tk)
	}

	stolen := q.steal(q.size() / 2)
	require.Len(t, stolen, 4)
	for _, tk := range stolen {
		assert.False(t, tk.pinned.Load(), "pinned task %d migrated", tk.id)
	}

	// Pinned tasks stay behind in their original order.
	rest := q.drain(nil)
	require.Len(t, rest, 4)
	for i, tk := range rest {
		assert.Equal(t, uint64(i*2), tk.id)
		assert.True(t, tk.pinned.Load())
	}
}

func TestRunQueueStealAllPinned(t *testing.T) {
	var q runQueue
	for i := 0; i < 4; i++ {
		tk := &task{id: uint64(i)}
		tk.pinned.Store(true)
		q.push(tk)
	}
	assert.Nil(t, q.steal(2))
	assert.Equal(t, 4, q.size())
}

func TestRunQueueStealLeavesLoneTask(t *testing.T) {
	var q runQueue
	q.push(&task{id: 1})
	assert.Nil(t, q.steal(1))
	assert.Equal(t, 1, q.size())
}
