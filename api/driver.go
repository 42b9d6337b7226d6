// File: api/driver.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Readiness-driver contract shared by the io_uring, epoll and kqueue
// backends. One driver instance belongs to exactly one core.

package api

// Interest is the set of I/O conditions a registration waits for.
type Interest uint8

const (
	// Readable requests notification when the resource can be read
	// without blocking.
	Readable Interest = 1 << iota
	// Writable requests notification when the resource can be written
	// without blocking.
	Writable
)

// Has reports whether i contains all bits of other.
func (i Interest) Has(other Interest) bool { return i&other == other }

func (i Interest) String() string {
	switch {
	case i.Has(Readable | Writable):
		return "readable|writable"
	case i.Has(Readable):
		return "readable"
	case i.Has(Writable):
		return "writable"
	}
	return "none"
}

// Ready describes the outcome of one registration firing. Err is set
// for resource-level failures (peer hangup, closed descriptor); such
// failures are delivered to the owning task as a value and never abort
// the driver loop.
type Ready struct {
	Interest Interest
	Err      error
}

// ReadyFn is invoked by the driver when a registration fires. It must
// be cheap and non-blocking: in practice it is always a task waker.
type ReadyFn func(Ready)

// Registration is a handle to one (resource, interest) entry inside a
// driver. Registrations are one-shot: after the driver reports
// readiness the entry stays registered but disarmed until Rearm.
type Registration interface {
	// Rearm re-arms the registration for interest, replacing any
	// previously installed ReadyFn. At most one ReadyFn is outstanding
	// per interest per resource.
	Rearm(interest Interest, fn ReadyFn) error

	// Deregister removes the resource from the driver. Idempotent.
	Deregister() error
}

// Driver multiplexes readiness notifications for one core.
//
// Register and Wait are owned by the core's thread and are not safe
// for concurrent use; Wakeup is safe from any thread.
type Driver interface {
	// Register adds a raw resource with an initial armed interest.
	Register(fd uintptr, interest Interest, fn ReadyFn) (Registration, error)

	// Wait blocks until at least one registration fires or the timeout
	// elapses, invoking the ReadyFn of every fired registration.
	// timeoutNs < 0 blocks indefinitely; timeoutNs == 0 polls.
	// Transient interruptions (EINTR) are retried internally.
	Wait(timeoutNs int64) (fired int, err error)

	// Wakeup interrupts a concurrent Wait from any thread.
	Wakeup() error

	// Close releases the kernel facility. No registration may be used
	// afterwards.
	Close() error
}
