// File: api/runtime.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Scheduler policy, backend selection and per-core statistics.

package api

// Policy selects how runnable tasks are distributed across cores.
type Policy int

const (
	// ThreadPerCore gives every OS thread exclusive ownership of one
	// run queue; a task never migrates from its spawning core.
	ThreadPerCore Policy = iota
	// WorkStealing lets an idle core pull the oldest tasks from a
	// sibling's queue to rebalance load.
	WorkStealing
)

func (p Policy) String() string {
	switch p {
	case ThreadPerCore:
		return "thread-per-core"
	case WorkStealing:
		return "work-stealing"
	}
	return "unknown"
}

// Backend selects the kernel I/O facility behind the readiness driver.
type Backend int

const (
	// BackendAuto probes the platform at construction: io_uring where
	// available, otherwise epoll (Linux) or kqueue (Darwin/BSD).
	BackendAuto Backend = iota
	// BackendUring forces the completion-queue backend.
	BackendUring
	// BackendEpoll forces the Linux readiness-polling backend.
	BackendEpoll
	// BackendKqueue forces the BSD/Darwin readiness-polling backend.
	BackendKqueue
)

func (b Backend) String() string {
	switch b {
	case BackendAuto:
		return "auto"
	case BackendUring:
		return "io_uring"
	case BackendEpoll:
		return "epoll"
	case BackendKqueue:
		return "kqueue"
	}
	return "unknown"
}

// CoreStats is a snapshot of one core's counters.
type CoreStats struct {
	Core        int
	Polled      uint64 // task polls executed
	Woken       uint64 // wakes that enqueued a task
	Stolen      uint64 // tasks stolen from siblings
	TimersFired uint64
	DriverWaits uint64 // blocking driver waits entered
	Parks       uint64 // idle parks with no deadline
}

// Stats aggregates every core's snapshot.
type Stats struct {
	Cores []CoreStats
}

// TotalPolled sums task polls across cores.
func (s Stats) TotalPolled() uint64 {
	var n uint64
	for _, c := range s.Cores {
		n += c.Polled
	}
	return n
}
