//go:build darwin || freebsd || netbsd || openbsd

// File: driver/probe_bsd.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Darwin/BSD platform probing: kqueue is the only facility.

package driver

import (
	"github.com/sirupsen/logrus"

	"github.com/momentics/hioload-async/api"
)

func newPlatform(backend api.Backend, log *logrus.Entry) (api.Driver, error) {
	switch backend {
	case api.BackendKqueue, api.BackendAuto:
		return newKqueueDriver(log)
	case api.BackendUring, api.BackendEpoll:
		return nil, api.NewError(api.ErrCodeNotSupported, "backend unavailable on this platform").
			WithCause(api.ErrNotSupported)
	}
	return nil, api.ErrInvalidArgument
}
