//go:build darwin || freebsd || netbsd || openbsd

// File: driver/driver_bsd_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package driver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-async/api"
)

func newKqueue(t *testing.T) api.Driver {
	t.Helper()
	d, err := New(api.BackendKqueue, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestKqueueReadiness(t *testing.T) {
	d := newKqueue(t)
	fds := make([]int, 2)
	require.NoError(t, unix.Pipe(fds))
	t.Cleanup(func() {
		unix.Close(fds[0])
		unix.Close(fds[1])
	})

	var got api.Ready
	fires := 0
	reg, err := d.Register(uintptr(fds[0]), api.Readable, func(r api.Ready) {
		got = r
		fires++
	})
	require.NoError(t, err)

	n, err := d.Wait(0)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, werr := unix.Write(fds[1], []byte("x"))
	require.NoError(t, werr)

	n, err = d.Wait(time.Second.Nanoseconds())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Equal(t, 1, fires)
	require.NoError(t, got.Err)
	assert.True(t, got.Interest.Has(api.Readable))

	// One-shot until Rearm.
	n, err = d.Wait(0)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, reg.Rearm(api.Readable, func(r api.Ready) { fires++ }))
	n, err = d.Wait(time.Second.Nanoseconds())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 2, fires)
	require.NoError(t, reg.Deregister())
}

func TestKqueueWakeup(t *testing.T) {
	d := newKqueue(t)
	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = d.Wakeup()
	}()
	n, err := d.Wait(-1)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestKqueueProbeAuto(t *testing.T) {
	d, err := New(api.BackendAuto, nil)
	require.NoError(t, err)
	require.NoError(t, d.Close())
}
