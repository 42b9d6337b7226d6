//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd

// File: driver/probe_stub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Stub for unsupported platforms: driver construction fails, which is
// fatal to runtime startup by design.

package driver

import (
	"github.com/sirupsen/logrus"

	"github.com/momentics/hioload-async/api"
)

func newPlatform(backend api.Backend, log *logrus.Entry) (api.Driver, error) {
	return nil, api.NewError(api.ErrCodeNotSupported, "no supported I/O backend on this platform").
		WithCause(api.ErrNotSupported)
}
