// File: control/metrics_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package control

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-async/api"
)

func TestMetricsRegistry(t *testing.T) {
	mr := NewMetricsRegistry()
	mr.Set("queue_depth", 17)
	mr.Set("queue_depth", 18)
	mr.Set("backend", "epoll")

	snap := mr.GetSnapshot()
	assert.Equal(t, 18, snap["queue_depth"])
	assert.Equal(t, "epoll", snap["backend"])

	// Snapshot is detached from the registry.
	snap["queue_depth"] = 0
	assert.Equal(t, 18, mr.GetSnapshot()["queue_depth"])
}

func TestRuntimeCollector(t *testing.T) {
	stats := func() api.Stats {
		return api.Stats{Cores: []api.CoreStats{
			{Core: 0, Polled: 10, Woken: 5, TimersFired: 2, DriverWaits: 1, Parks: 3},
			{Core: 1, Polled: 7, Stolen: 4},
		}}
	}
	rc := NewRuntimeCollector(stats)

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(rc))

	// Six families, one series per core each.
	assert.Equal(t, 12, testutil.CollectAndCount(rc))

	expected := `
# HELP hioload_tasks_polled_total Task polls executed.
# TYPE hioload_tasks_polled_total counter
hioload_tasks_polled_total{core="0"} 10
hioload_tasks_polled_total{core="1"} 7
# HELP hioload_tasks_stolen_total Tasks stolen from sibling cores.
# TYPE hioload_tasks_stolen_total counter
hioload_tasks_stolen_total{core="0"} 0
hioload_tasks_stolen_total{core="1"} 4
`
	require.NoError(t, testutil.CollectAndCompare(rc, strings.NewReader(expected),
		"hioload_tasks_polled_total", "hioload_tasks_stolen_total"))
}

func TestDebugProbes(t *testing.T) {
	dp := NewDebugProbes()
	dp.RegisterProbe("cores", func() any { return 4 })
	dp.RegisterProbe("policy", func() any { return "work-stealing" })

	state := dp.DumpState()
	assert.Equal(t, 4, state["cores"])
	assert.Equal(t, "work-stealing", state["policy"])
}
