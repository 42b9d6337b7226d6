// File: sched/combinator_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package sched

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-async/api"
)

func TestSleepDuration(t *testing.T) {
	rt := newTestRuntime(t, 1, api.ThreadPerCore)

	start := time.Now()
	_, err := BlockOn(rt, Sleep(30*time.Millisecond))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond,
		"sleep resolved before its deadline")
}

func TestSleepNonPositiveImmediate(t *testing.T) {
	rt := newTestRuntime(t, 1, api.ThreadPerCore)
	_, err := BlockOn(rt, Sleep(0))
	require.NoError(t, err)
	_, err = BlockOn(rt, Sleep(-time.Second))
	require.NoError(t, err)
}

func TestSleepUntil(t *testing.T) {
	rt := newTestRuntime(t, 1, api.ThreadPerCore)

	deadline := rt.Now() + (25 * time.Millisecond).Nanoseconds()
	_, err := BlockOn(rt, SleepUntil(deadline))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, rt.Now(), deadline)

	// A deadline already in the past resolves on the first poll.
	_, err = BlockOn(rt, SleepUntil(rt.Now()-1))
	require.NoError(t, err)
}

func TestSelectTwoLowestIndexWins(t *testing.T) {
	rt := newTestRuntime(t, 1, api.ThreadPerCore)

	e, err := BlockOn(rt, SelectTwo(Ready(1), Ready("two")))
	require.NoError(t, err)
	assert.Equal(t, 0, e.Index)
	assert.Equal(t, 1, e.A)
}

func TestSelectTwoTimerRace(t *testing.T) {
	rt := newTestRuntime(t, 1, api.ThreadPerCore)

	e, err := BlockOn(rt, SelectTwo(Sleep(time.Hour), Sleep(10*time.Millisecond)))
	require.NoError(t, err)
	assert.Equal(t, 1, e.Index)
}

func TestSelectVariadic(t *testing.T) {
	rt := newTestRuntime(t, 1, api.ThreadPerCore)

	c, err := BlockOn(rt, Select(Ready(10), Ready(20), Ready(30)))
	require.NoError(t, err)
	assert.Equal(t, 0, c.Index)
	assert.Equal(t, 10, c.Value)

	pending := FutureFunc[int](func(cx *Context) (int, bool) { return 0, false })
	c, err = BlockOn(rt, Select[int](pending, Ready(20)))
	require.NoError(t, err)
	assert.Equal(t, 1, c.Index)
	assert.Equal(t, 20, c.Value)
}

func TestTimeoutExpires(t *testing.T) {
	rt := newTestRuntime(t, 1, api.ThreadPerCore)

	wrapped := FutureFunc[int](func(cx *Context) (int, bool) { return 0, false })
	res, err := BlockOn(rt, Timeout[int](wrapped, 15*time.Millisecond))
	require.NoError(t, err)
	assert.ErrorIs(t, res.Err, api.ErrTimeout)
}

func TestTimeoutCompletesInTime(t *testing.T) {
	rt := newTestRuntime(t, 1, api.ThreadPerCore)

	res, err := BlockOn(rt, Timeout[int](Ready(99), time.Hour))
	require.NoError(t, err)
	require.NoError(t, res.Err)
	assert.Equal(t, 99, res.Value)
}

func TestYield(t *testing.T) {
	rt := newTestRuntime(t, 1, api.ThreadPerCore)

	polls := 0
	y := Yield()
	_, err := BlockOn(rt, FutureFunc[struct{}](func(cx *Context) (struct{}, bool) {
		polls++
		return y.Poll(cx)
	}))
	require.NoError(t, err)
	assert.Equal(t, 2, polls, "yield must suspend for exactly one pass")
}
