//go:build linux

// File: driver/probe_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux platform probing: io_uring preferred, epoll fallback.

package driver

import (
	"github.com/sirupsen/logrus"

	"github.com/momentics/hioload-async/api"
)

func newPlatform(backend api.Backend, log *logrus.Entry) (api.Driver, error) {
	switch backend {
	case api.BackendUring:
		return newUringDriver(log)
	case api.BackendEpoll:
		return newEpollDriver(log)
	case api.BackendKqueue:
		return nil, api.NewError(api.ErrCodeNotSupported, "kqueue backend unavailable on linux").
			WithCause(api.ErrNotSupported)
	case api.BackendAuto:
		d, err := newUringDriver(log)
		if err == nil {
			log.WithField("selected", api.BackendUring.String()).Debug("driver probe")
			return d, nil
		}
		log.WithError(err).Debug("io_uring unavailable, falling back to epoll")
		return newEpollDriver(log)
	}
	return nil, api.ErrInvalidArgument
}
