//go:build linux || darwin || freebsd || netbsd || openbsd

// File: sched/io_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package sched

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-async/api"
)

func newPipe(t *testing.T) (r, w int) {
	t.Helper()
	fds := make([]int, 2)
	require.NoError(t, unix.Pipe(fds))
	t.Cleanup(func() {
		unix.Close(fds[0])
		unix.Close(fds[1])
	})
	return fds[0], fds[1]
}

func TestAwaitReadyPipe(t *testing.T) {
	rt := newTestRuntime(t, 1, api.ThreadPerCore)
	rfd, wfd := newPipe(t)

	go func() {
		time.Sleep(20 * time.Millisecond)
		unix.Write(wfd, []byte("x"))
	}()

	f := AwaitReady(uintptr(rfd), api.Readable)
	ready, err := BlockOn[api.Ready](rt, f)
	require.NoError(t, err)
	require.NoError(t, ready.Err)
	assert.True(t, ready.Interest.Has(api.Readable))

	// Drain and go around again on the same registration.
	buf := make([]byte, 1)
	_, rerr := unix.Read(rfd, buf)
	require.NoError(t, rerr)
	f.Reset(api.Readable)

	go func() {
		time.Sleep(20 * time.Millisecond)
		unix.Write(wfd, []byte("y"))
	}()
	ready, err = BlockOn[api.Ready](rt, f)
	require.NoError(t, err)
	require.NoError(t, ready.Err)
	assert.True(t, ready.Interest.Has(api.Readable))

	assert.NoError(t, f.Deregister())
}

func TestAwaitReadyPinsTask(t *testing.T) {
	rt := newTestRuntime(t, 2, api.WorkStealing)
	rfd, wfd := newPipe(t)

	f := AwaitReady(uintptr(rfd), api.Readable)
	h := SpawnOn(rt, 0, f)

	// Once the registration exists the task must be pinned to core 0;
	// otherwise a steal could rearm the driver from a foreign thread.
	require.Eventually(t, func() bool { return h.t.pinned.Load() },
		time.Second, time.Millisecond)
	assert.Same(t, rt.cores[0], h.t.home.Load())

	_, werr := unix.Write(wfd, []byte("x"))
	require.NoError(t, werr)
	ready, err := h.Wait()
	require.NoError(t, err)
	require.NoError(t, ready.Err)
	assert.Same(t, rt.cores[0], h.t.home.Load(), "pinned task changed home core")
}

func TestAwaitReadyWritable(t *testing.T) {
	rt := newTestRuntime(t, 1, api.ThreadPerCore)
	_, wfd := newPipe(t)

	// An empty pipe's write end is immediately writable.
	ready, err := BlockOn[api.Ready](rt, AwaitReady(uintptr(wfd), api.Writable))
	require.NoError(t, err)
	require.NoError(t, ready.Err)
	assert.True(t, ready.Interest.Has(api.Writable))
}

func TestAwaitReadyPeerClose(t *testing.T) {
	rt := newTestRuntime(t, 1, api.ThreadPerCore)
	fds := make([]int, 2)
	require.NoError(t, unix.Pipe(fds))
	t.Cleanup(func() { unix.Close(fds[0]) })

	go func() {
		time.Sleep(20 * time.Millisecond)
		unix.Close(fds[1])
	}()

	ready, err := BlockOn[api.Ready](rt, AwaitReady(uintptr(fds[0]), api.Readable))
	require.NoError(t, err)
	// Hangup surfaces on the registration, never as an engine failure.
	assert.ErrorIs(t, ready.Err, api.ErrClosed)
}
