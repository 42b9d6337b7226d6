// File: sched/io.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Bridge between futures and the readiness driver. AwaitReady is the
// building block network layers use: it registers the resource on the
// polling core's driver with the task's waker, suspends, and resolves
// to the Ready event. Registrations are one-shot; Reset re-arms the
// same future for the next readiness cycle.

package sched

import (
	"sync/atomic"

	"github.com/momentics/hioload-async/api"
)

// IOFuture awaits readiness of one raw I/O resource.
type IOFuture struct {
	fd       uintptr
	interest api.Interest
	reg      api.Registration
	armed    bool
	res      atomic.Pointer[api.Ready]
}

// AwaitReady creates a future resolving when fd satisfies interest.
// A resource-level failure resolves the future with Ready.Err set; it
// never aborts the driver. The first poll pins the task to the core it
// ran on: driver registrations are single-threaded, so an I/O task is
// excluded from work stealing from then on.
func AwaitReady(fd uintptr, interest api.Interest) *IOFuture {
	return &IOFuture{fd: fd, interest: interest}
}

func (f *IOFuture) Poll(cx *Context) (api.Ready, bool) {
	if r := f.res.Load(); r != nil {
		return *r, true
	}
	if !f.armed {
		// The registration lives in this core's driver and every
		// Rearm/Deregister must come from the same thread; pin the task
		// to its home core for the rest of its life.
		cx.task.pinned.Store(true)
		w := cx.Waker()
		fn := func(r api.Ready) {
			f.res.Store(&r)
			w.Wake()
		}
		var err error
		if f.reg == nil {
			f.reg, err = cx.core.drv.Register(f.fd, f.interest, fn)
		} else {
			err = f.reg.Rearm(f.interest, fn)
		}
		if err != nil {
			return api.Ready{Err: err}, true
		}
		f.armed = true
	}
	return api.Ready{}, false
}

// Reset prepares the future for another readiness cycle on the same
// registration. Call only after the previous cycle resolved.
func (f *IOFuture) Reset(interest api.Interest) {
	f.interest = interest
	f.res.Store(nil)
	f.armed = false
}

// Deregister removes the resource from its driver. The future must
// not be polled afterwards.
func (f *IOFuture) Deregister() error {
	if f.reg == nil {
		return nil
	}
	return f.reg.Deregister()
}
