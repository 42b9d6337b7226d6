// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package driver provides the per-core readiness drivers behind the
// api.Driver contract: a completion-queue backend (io_uring, Linux), a
// readiness-polling backend on epoll (Linux) and an equivalent one on
// kqueue (Darwin/BSD). The backend is probed once at construction;
// there is no per-operation dispatch after that.
//
// Every backend retries transient interruptions (EINTR) internally and
// delivers resource-level failures to the registration's ReadyFn as a
// value, never by aborting the wait loop. Wakeup is the only method
// safe to call from a foreign thread.
package driver
