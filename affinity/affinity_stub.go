//go:build !linux

// File: affinity/affinity_stub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Stub implementation for platforms without thread-affinity support.

package affinity

import "errors"

// ErrNotSupported is returned where the platform offers no affinity
// control; callers degrade to unpinned execution.
var ErrNotSupported = errors.New("affinity: not supported on this platform")

func pinPlatform(cpuID int) error { return ErrNotSupported }

func unpinPlatform() error { return ErrNotSupported }
