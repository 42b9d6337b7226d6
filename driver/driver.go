// File: driver/driver.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Platform-neutral construction and shared helpers. The concrete
// factory lives in probe_*.go guarded by build tags.

package driver

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/momentics/hioload-async/api"
)

// New constructs a readiness driver for one core. BackendAuto probes
// the platform: io_uring first where the kernel supports it, then the
// platform's readiness-polling facility. A nil logger disables probe
// logging.
//
// Failure here is the only fatal error class in the engine; callers
// surface it from runtime construction, before any task runs.
func New(backend api.Backend, log *logrus.Logger) (api.Driver, error) {
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	return newPlatform(backend, log.WithField("component", "driver"))
}

// timeoutMillis converts a nanosecond wait bound to poll-facility
// milliseconds, rounding up so the wait never returns before the
// bound (early timer fires are forbidden; late ones are bounded by
// one wheel tick).
func timeoutMillis(timeoutNs int64) int {
	if timeoutNs < 0 {
		return -1
	}
	return int((timeoutNs + 1e6 - 1) / 1e6)
}

// readyError normalizes a kernel error condition on a registration
// into the Ready value handed to the owning task.
func readyError(interest api.Interest, cause error) api.Ready {
	return api.Ready{Interest: interest, Err: cause}
}
