// File: control/metrics.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Engine metrics: a thread-safe registry for ad-hoc values plus a
// Prometheus collector over the runtime's per-core counters.

package control

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/momentics/hioload-async/api"
)

// MetricsRegistry holds mutable named metrics.
type MetricsRegistry struct {
	mu      sync.RWMutex
	metrics map[string]any
	updated time.Time
}

// NewMetricsRegistry creates an empty registry.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{metrics: make(map[string]any)}
}

// Set sets or updates a metric key.
func (mr *MetricsRegistry) Set(key string, value any) {
	mr.mu.Lock()
	mr.metrics[key] = value
	mr.updated = time.Now()
	mr.mu.Unlock()
}

// GetSnapshot returns a copy of the latest metrics.
func (mr *MetricsRegistry) GetSnapshot() map[string]any {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	out := make(map[string]any, len(mr.metrics))
	for k, v := range mr.metrics {
		out[k] = v
	}
	return out
}

// RuntimeCollector exports per-core scheduler counters as Prometheus
// metrics. It snapshots through the stats callback on every scrape,
// so it holds no reference into scheduler internals.
type RuntimeCollector struct {
	stats func() api.Stats

	polled *prometheus.Desc
	woken  *prometheus.Desc
	stolen *prometheus.Desc
	timers *prometheus.Desc
	waits  *prometheus.Desc
	parks  *prometheus.Desc
}

// NewRuntimeCollector wraps a stats snapshot function, typically
// Runtime.Stats.
func NewRuntimeCollector(stats func() api.Stats) *RuntimeCollector {
	label := []string{"core"}
	return &RuntimeCollector{
		stats:  stats,
		polled: prometheus.NewDesc("hioload_tasks_polled_total", "Task polls executed.", label, nil),
		woken:  prometheus.NewDesc("hioload_tasks_woken_total", "Wakes that enqueued a task.", label, nil),
		stolen: prometheus.NewDesc("hioload_tasks_stolen_total", "Tasks stolen from sibling cores.", label, nil),
		timers: prometheus.NewDesc("hioload_timers_fired_total", "Timer-wheel entries fired.", label, nil),
		waits:  prometheus.NewDesc("hioload_driver_waits_total", "Blocking driver waits entered.", label, nil),
		parks:  prometheus.NewDesc("hioload_parks_total", "Idle parks with no deadline.", label, nil),
	}
}

// Describe implements prometheus.Collector.
func (rc *RuntimeCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- rc.polled
	ch <- rc.woken
	ch <- rc.stolen
	ch <- rc.timers
	ch <- rc.waits
	ch <- rc.parks
}

// Collect implements prometheus.Collector.
func (rc *RuntimeCollector) Collect(ch chan<- prometheus.Metric) {
	for _, c := range rc.stats().Cores {
		label := strconv.Itoa(c.Core)
		ch <- prometheus.MustNewConstMetric(rc.polled, prometheus.CounterValue, float64(c.Polled), label)
		ch <- prometheus.MustNewConstMetric(rc.woken, prometheus.CounterValue, float64(c.Woken), label)
		ch <- prometheus.MustNewConstMetric(rc.stolen, prometheus.CounterValue, float64(c.Stolen), label)
		ch <- prometheus.MustNewConstMetric(rc.timers, prometheus.CounterValue, float64(c.TimersFired), label)
		ch <- prometheus.MustNewConstMetric(rc.waits, prometheus.CounterValue, float64(c.DriverWaits), label)
		ch <- prometheus.MustNewConstMetric(rc.parks, prometheus.CounterValue, float64(c.Parks), label)
	}
}
