// File: affinity/affinity.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Platform-neutral API for CPU affinity. Platform-specific
// implementations live in separate files guarded by build tags.

package affinity

// Pin binds the calling OS thread to a single logical CPU. The caller
// must have locked the goroutine to its thread first
// (runtime.LockOSThread). On unsupported platforms it returns an
// error and execution proceeds unpinned.
func Pin(cpuID int) error {
	return pinPlatform(cpuID)
}

// Unpin restores the thread's affinity to all online CPUs.
func Unpin() error {
	return unpinPlatform()
}
