//go:build linux

// File: driver/driver_linux_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Backend conformance suite. Every linux backend must satisfy the same
// readiness contract, so the suite runs once per constructor.

package driver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-async/api"
)

func linuxBackends(t *testing.T) map[string]api.Driver {
	t.Helper()
	out := make(map[string]api.Driver)

	epoll, err := New(api.BackendEpoll, nil)
	require.NoError(t, err)
	out["epoll"] = epoll

	if uring, err := New(api.BackendUring, nil); err == nil {
		out["uring"] = uring
	} else {
		t.Logf("io_uring unavailable, skipping: %v", err)
	}
	for _, d := range out {
		d := d
		t.Cleanup(func() { _ = d.Close() })
	}
	return out
}

func testPipe(t *testing.T) (r, w int) {
	t.Helper()
	fds := make([]int, 2)
	require.NoError(t, unix.Pipe(fds))
	t.Cleanup(func() {
		unix.Close(fds[0])
		unix.Close(fds[1])
	})
	return fds[0], fds[1]
}

func TestBackendReadiness(t *testing.T) {
	for name, d := range linuxBackends(t) {
		d := d
		t.Run(name, func(t *testing.T) {
			rfd, wfd := testPipe(t)

			var got api.Ready
			fires := 0
			reg, err := d.Register(uintptr(rfd), api.Readable, func(r api.Ready) {
				got = r
				fires++
			})
			require.NoError(t, err)

			// Nothing written yet.
			n, err := d.Wait(0)
			require.NoError(t, err)
			assert.Zero(t, n)
			assert.Zero(t, fires)

			_, werr := unix.Write(wfd, []byte("x"))
			require.NoError(t, werr)

			n, err = d.Wait(time.Second.Nanoseconds())
			require.NoError(t, err)
			assert.Equal(t, 1, n)
			require.Equal(t, 1, fires)
			require.NoError(t, got.Err)
			assert.True(t, got.Interest.Has(api.Readable))

			// One-shot: disarmed until Rearm even though data remains.
			n, err = d.Wait(0)
			require.NoError(t, err)
			assert.Zero(t, n)

			require.NoError(t, reg.Rearm(api.Readable, func(r api.Ready) {
				got = r
				fires++
			}))
			n, err = d.Wait(time.Second.Nanoseconds())
			require.NoError(t, err)
			assert.Equal(t, 1, n)
			assert.Equal(t, 2, fires)

			require.NoError(t, reg.Deregister())
			assert.NoError(t, reg.Deregister(), "deregister must be idempotent")
		})
	}
}

func TestBackendDeregisterSilences(t *testing.T) {
	for name, d := range linuxBackends(t) {
		d := d
		t.Run(name, func(t *testing.T) {
			rfd, wfd := testPipe(t)
			fires := 0
			reg, err := d.Register(uintptr(rfd), api.Readable, func(api.Ready) { fires++ })
			require.NoError(t, err)
			require.NoError(t, reg.Deregister())

			_, werr := unix.Write(wfd, []byte("x"))
			require.NoError(t, werr)
			_, err = d.Wait((20 * time.Millisecond).Nanoseconds())
			require.NoError(t, err)
			assert.Zero(t, fires, "deregistered resource fired")
		})
	}
}

func TestBackendWakeupUnblocksWait(t *testing.T) {
	for name, d := range linuxBackends(t) {
		d := d
		t.Run(name, func(t *testing.T) {
			go func() {
				time.Sleep(20 * time.Millisecond)
				_ = d.Wakeup()
			}()
			start := time.Now()
			n, err := d.Wait(-1)
			require.NoError(t, err)
			assert.Zero(t, n, "wakeup is not a registration event")
			assert.Less(t, time.Since(start), time.Second)
		})
	}
}

func TestBackendWaitDeadline(t *testing.T) {
	for name, d := range linuxBackends(t) {
		d := d
		t.Run(name, func(t *testing.T) {
			start := time.Now()
			n, err := d.Wait((30 * time.Millisecond).Nanoseconds())
			require.NoError(t, err)
			assert.Zero(t, n)
			assert.GreaterOrEqual(t, time.Since(start), 25*time.Millisecond)
		})
	}
}

func TestBackendRegisterValidation(t *testing.T) {
	for name, d := range linuxBackends(t) {
		d := d
		t.Run(name, func(t *testing.T) {
			rfd, _ := testPipe(t)

			_, err := d.Register(uintptr(rfd), 0, func(api.Ready) {})
			assert.ErrorIs(t, err, api.ErrInvalidArgument)
			_, err = d.Register(uintptr(rfd), api.Readable, nil)
			assert.ErrorIs(t, err, api.ErrInvalidArgument)

			reg, err := d.Register(uintptr(rfd), api.Readable, func(api.Ready) {})
			require.NoError(t, err)
			_, err = d.Register(uintptr(rfd), api.Writable, func(api.Ready) {})
			assert.ErrorIs(t, err, api.ErrInvalidArgument, "duplicate registration accepted")
			require.NoError(t, reg.Deregister())
		})
	}
}

func TestProbeAuto(t *testing.T) {
	d, err := New(api.BackendAuto, nil)
	require.NoError(t, err)
	require.NoError(t, d.Close())
}

func TestProbeKqueueUnavailable(t *testing.T) {
	_, err := New(api.BackendKqueue, nil)
	assert.ErrorIs(t, err, api.ErrNotSupported)
}
