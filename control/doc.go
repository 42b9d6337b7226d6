// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package control carries the operational surface around the engine:
// TOML-loadable runtime configuration, a metrics registry with a
// Prometheus collector over per-core counters, and a debug-probe
// registry for internal state inspection.
package control
