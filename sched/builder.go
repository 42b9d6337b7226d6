// File: sched/builder.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Runtime construction. Driver initialization is the only fatal
// failure class in the engine and surfaces here, before any task
// runs.

package sched

import (
	"io"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/momentics/hioload-async/api"
	"github.com/momentics/hioload-async/control"
	"github.com/momentics/hioload-async/driver"
	"github.com/momentics/hioload-async/timer"
)

// Builder configures a Runtime. Zero value is not usable; start from
// NewBuilder.
type Builder struct {
	cores   int
	policy  api.Policy
	backend api.Backend
	pinning bool
	log     *logrus.Logger
}

// NewBuilder returns a builder with defaults: one core per logical
// CPU, thread-per-core policy, auto-probed backend, no pinning,
// discarded logs.
func NewBuilder() *Builder {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return &Builder{
		cores:   runtime.NumCPU(),
		policy:  api.ThreadPerCore,
		backend: api.BackendAuto,
		log:     log,
	}
}

// Cores sets the number of scheduler cores (OS threads).
func (b *Builder) Cores(n int) *Builder {
	b.cores = n
	return b
}

// Policy selects thread-per-core or work-stealing scheduling.
func (b *Builder) Policy(p api.Policy) *Builder {
	b.policy = p
	return b
}

// Backend overrides driver backend probing.
func (b *Builder) Backend(bk api.Backend) *Builder {
	b.backend = bk
	return b
}

// Pinning binds each core's thread to one logical CPU.
func (b *Builder) Pinning(on bool) *Builder {
	b.pinning = on
	return b
}

// Logger installs a structured logger for runtime lifecycle events.
func (b *Builder) Logger(log *logrus.Logger) *Builder {
	if log != nil {
		b.log = log
	}
	return b
}

// FromConfig applies a loaded configuration on top of the current
// builder state.
func (b *Builder) FromConfig(cfg *control.Config) *Builder {
	if cfg == nil {
		return b
	}
	if cfg.Cores > 0 {
		b.cores = cfg.Cores
	}
	b.policy = cfg.SchedPolicy()
	b.backend = cfg.DriverBackend()
	b.pinning = cfg.Pinning
	return b
}

// Build probes the platform, allocates one driver+wheel+queue per
// core and starts the core threads. On any driver failure every
// already-created driver is closed and the error is returned; no task
// ever ran.
func (b *Builder) Build() (*Runtime, error) {
	if b.cores < 1 {
		return nil, api.ErrInvalidArgument
	}
	rt := &Runtime{
		policy:  b.policy,
		pinning: b.pinning,
		log:     b.log,
		base:    time.Now(),
	}
	rt.cores = make([]*core, b.cores)
	for i := range rt.cores {
		drv, err := driver.New(b.backend, b.log)
		if err != nil {
			for _, c := range rt.cores[:i] {
				_ = c.drv.Close()
			}
			return nil, err
		}
		rt.cores[i] = &core{
			id:    i,
			rt:    rt,
			wheel: timer.NewWheelAt(rt.base),
			drv:   drv,
		}
	}
	rt.wg.Add(len(rt.cores))
	for _, c := range rt.cores {
		go c.run()
	}
	b.log.WithFields(logrus.Fields{
		"cores":   b.cores,
		"policy":  b.policy.String(),
		"backend": b.backend.String(),
		"pinning": b.pinning,
	}).Info("runtime started")
	return rt, nil
}
