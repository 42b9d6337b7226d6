// File: sched/runtime.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Runtime composes one driver+wheel+queue triple per core. Spawn and
// BlockOn are free functions because Go methods cannot introduce type
// parameters.

package sched

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/momentics/hioload-async/api"
	"github.com/momentics/hioload-async/control"
)

// Runtime is a running engine instance. Construct via Builder.Build.
type Runtime struct {
	cores    []*core
	policy   api.Policy
	pinning  bool
	log      *logrus.Logger
	base     time.Time
	stopping atomic.Bool
	wg       sync.WaitGroup
	nextCore atomic.Uint64
	nextTask atomic.Uint64
}

// Spawn schedules f and returns immediately with a handle to its
// outcome. Placement is round-robin; under thread-per-core the task
// then never migrates, under work-stealing idle cores may move it.
func Spawn[T any](rt *Runtime, f Future[T]) *JoinHandle[T] {
	idx := int(rt.nextCore.Add(1)-1) % len(rt.cores)
	return SpawnOn(rt, idx, f)
}

// SpawnOn schedules f onto a specific core's run queue.
func SpawnOn[T any](rt *Runtime, coreID int, f Future[T]) *JoinHandle[T] {
	c := rt.cores[coreID%len(rt.cores)]
	t := &task{
		id:     rt.nextTask.Add(1),
		doneCh: make(chan struct{}),
	}
	t.home.Store(c)
	t.step = func(cx *Context) bool {
		v, ok := f.Poll(cx)
		if !ok {
			return false
		}
		t.finish(v, nil)
		return true
	}
	t.inQueue.Store(true)
	c.enqueue(t)
	return &JoinHandle[T]{t: t}
}

// BlockOn bridges synchronous code into the engine: it spawns f and
// parks the calling OS thread until the task completes. Must not be
// called from inside a task.
func BlockOn[T any](rt *Runtime, f Future[T]) (T, error) {
	return Spawn(rt, f).Wait()
}

// Cores returns the number of cores driving this runtime.
func (rt *Runtime) Cores() int { return len(rt.cores) }

// Policy returns the configured scheduling policy.
func (rt *Runtime) Policy() api.Policy { return rt.policy }

// Now returns nanoseconds on the runtime's monotonic clock, the time
// base of SleepUntil deadlines.
func (rt *Runtime) Now() int64 { return time.Since(rt.base).Nanoseconds() }

// Stats snapshots every core's counters.
func (rt *Runtime) Stats() api.Stats {
	s := api.Stats{Cores: make([]api.CoreStats, len(rt.cores))}
	for i, c := range rt.cores {
		s.Cores[i] = c.snapshot()
	}
	return s
}

// RegisterProbes installs the runtime's standard debug probes: core
// count, scheduling policy and a live stats snapshot. The stats probe
// re-snapshots on every DumpState call.
func (rt *Runtime) RegisterProbes(dp *control.DebugProbes) {
	dp.RegisterProbe("cores", func() any { return len(rt.cores) })
	dp.RegisterProbe("policy", func() any { return rt.policy.String() })
	dp.RegisterProbe("stats", func() any { return rt.Stats() })
}

// Shutdown stops every core and waits for their threads to exit.
// Suspended tasks are abandoned: their handles never resolve. Shut
// down only after the work that matters has been awaited.
func (rt *Runtime) Shutdown() {
	if !rt.stopping.CompareAndSwap(false, true) {
		return
	}
	for _, c := range rt.cores {
		_ = c.drv.Wakeup()
	}
	rt.wg.Wait()
	rt.log.WithField("cores", len(rt.cores)).Info("runtime stopped")
}
