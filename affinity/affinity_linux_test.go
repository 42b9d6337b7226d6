//go:build linux

// File: affinity/affinity_linux_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package affinity

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPinUnpin(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	require.NoError(t, Pin(0))
	require.NoError(t, Unpin())
}

func TestPinRejectsOutOfRange(t *testing.T) {
	assert.Error(t, Pin(-1))
	assert.Error(t, Pin(runtime.NumCPU()))
}
