// File: sched/core.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// One core = one OS thread owning a run queue, a timer wheel and a
// readiness driver. The loop: drain and poll runnables once each,
// advance timers, then either continue (work pending), steal, or park
// in the driver bounded by the nearest timer deadline.

package sched

import (
	"runtime"
	"sync/atomic"

	"github.com/momentics/hioload-async/affinity"
	"github.com/momentics/hioload-async/api"
	"github.com/momentics/hioload-async/timer"
)

// driverPollInterval bounds how many back-to-back busy passes may run
// before the core services the driver non-blockingly, so a stream of
// self-waking tasks cannot starve I/O readiness delivery.
const driverPollInterval = 64

type coreStats struct {
	polled      atomic.Uint64
	woken       atomic.Uint64
	stolen      atomic.Uint64
	timersFired atomic.Uint64
	driverWaits atomic.Uint64
	parks       atomic.Uint64
}

type core struct {
	id    int
	rt    *Runtime
	queue runQueue
	wheel *timer.Wheel
	drv   api.Driver

	// sleeping participates in the wake protocol: the core stores true
	// before its final queue check, wakers read it after their push.
	sleeping atomic.Bool

	batch     []*task
	passes    uint64
	stealSeed uint64
	stats     coreStats
}

// enqueue adds a runnable task. Called from any thread via wakers;
// the in-queue flag was claimed by the caller.
func (c *core) enqueue(t *task) {
	c.queue.push(t)
	c.stats.woken.Add(1)
	if c.sleeping.Load() {
		_ = c.drv.Wakeup()
	}
}

func (c *core) run() {
	defer c.rt.wg.Done()
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	log := c.rt.log.WithField("core", c.id)
	if c.rt.pinning {
		if err := affinity.Pin(c.id % runtime.NumCPU()); err != nil {
			log.WithError(err).Warn("cpu pinning unavailable, core runs unpinned")
		} else {
			defer func() { _ = affinity.Unpin() }()
		}
	}
	log.Debug("core started")
	defer log.Debug("core stopped")

	for !c.rt.stopping.Load() {
		c.runPass()
		fired := c.wheel.AdvanceTo(c.wheel.Now())
		if fired > 0 {
			c.stats.timersFired.Add(uint64(fired))
		}
		if c.queue.size() > 0 {
			c.passes++
			if c.passes%driverPollInterval == 0 {
				c.pollDriver(0)
			}
			continue
		}
		if c.rt.policy == api.WorkStealing && c.stealWork() {
			continue
		}
		c.park()
	}
	_ = c.drv.Close()
}

// runPass polls every currently runnable task exactly once. Tasks
// woken during the pass land in the queue for the next pass.
func (c *core) runPass() {
	c.batch = c.queue.drain(c.batch)
	for i, t := range c.batch {
		c.runTask(t)
		c.batch[i] = nil
	}
}

func (c *core) runTask(t *task) {
	// Clear before polling: a wake during the poll must re-enqueue.
	t.inQueue.Store(false)
	if t.done.Load() {
		return
	}
	if t.cancelled.Load() && t.suspended {
		// Resumption after a suspension point is where cooperative
		// cancellation is observed.
		t.finish(nil, ErrCancelled)
		return
	}
	cx := Context{core: c, task: t}
	done := c.poll(t, &cx)
	c.stats.polled.Add(1)
	if !done {
		t.suspended = true
	}
}

// poll runs one step of the task, containing panics to its result
// slot.
func (c *core) poll(t *task, cx *Context) (done bool) {
	defer func() {
		if r := recover(); r != nil {
			c.rt.log.WithField("core", c.id).WithField("task", t.id).
				WithField("panic", r).Error("task panic contained")
			t.finish(nil, &PanicError{Value: r})
			done = true
		}
	}()
	return t.step(cx)
}

// stealWork scans sibling queues and migrates their oldest tasks
// here. Returns true if anything was stolen.
func (c *core) stealWork() bool {
	siblings := c.rt.cores
	n := len(siblings)
	if n < 2 {
		return false
	}
	c.stealSeed++
	start := int(c.stealSeed) % n
	for i := 0; i < n; i++ {
		victim := siblings[(start+i)%n]
		if victim == c {
			continue
		}
		stolen := victim.queue.steal(victim.queue.size() / 2)
		if len(stolen) == 0 {
			continue
		}
		for _, t := range stolen {
			t.home.Store(c)
			c.queue.push(t)
		}
		c.stats.stolen.Add(uint64(len(stolen)))
		return true
	}
	return false
}

// park blocks in the driver bounded by the nearest timer deadline.
func (c *core) park() {
	timeout := int64(-1)
	if next, ok := c.wheel.NextDeadline(); ok {
		timeout = next - c.wheel.Now()
		if timeout < 0 {
			timeout = 0
		}
	}
	c.sleeping.Store(true)
	// Final check closes the race against a wake that pushed before
	// it could observe the sleeping flag.
	if c.queue.size() > 0 || c.rt.stopping.Load() {
		c.sleeping.Store(false)
		return
	}
	if timeout < 0 {
		c.stats.parks.Add(1)
	} else {
		c.stats.driverWaits.Add(1)
	}
	c.pollDriver(timeout)
	c.sleeping.Store(false)
}

func (c *core) pollDriver(timeoutNs int64) {
	if _, err := c.drv.Wait(timeoutNs); err != nil {
		// Transient interruptions are retried inside the driver; this
		// is unexpected but must not kill the loop.
		c.rt.log.WithField("core", c.id).WithError(err).Error("driver wait failed")
	}
}

func (c *core) snapshot() api.CoreStats {
	return api.CoreStats{
		Core:        c.id,
		Polled:      c.stats.polled.Load(),
		Woken:       c.stats.woken.Load(),
		Stolen:      c.stats.stolen.Load(),
		TimersFired: c.stats.timersFired.Load(),
		DriverWaits: c.stats.driverWaits.Load(),
		Parks:       c.stats.parks.Load(),
	}
}
