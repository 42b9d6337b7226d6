// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package api defines the contract surface of the hioload-async engine:
// readiness-driver interfaces, scheduler policy and backend selectors,
// per-core statistics, generic results and cancellation, and the common
// error taxonomy shared by every other package.
//
// The package is intentionally dependency-free. Higher layers (HTTP,
// DI containers, resilience policies) program against these types and
// never against a concrete backend.
package api
