// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package sched is the execution core of hioload-async: cooperative
// tasks polled by per-core schedulers, each core owning its run queue,
// readiness driver and timer wheel on a dedicated OS thread.
//
// A task suspends only at the engine's await points (join, channel
// operations, timers, I/O readiness); when it cannot progress it
// parks a Waker and yields its core. Wakers are safe to invoke from
// any thread and re-enqueue the task on its home core, never running
// it inline. Cancellation is cooperative: it is observed when a
// suspended task is next resumed, never by preemption.
package sched
