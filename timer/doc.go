// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package timer implements the hierarchical timing wheel backing all
// engine deadlines: four levels of 64 buckets each, direct bucket
// addressing on insert, generation-counter cancellation and an
// explicit cascade step as coarser bucket boundaries are crossed.
//
// A wheel is owned by exactly one core and is not safe for concurrent
// use; Cancel is the only operation tolerant of a stale handle.
// Deadlines are measured on the wheel's monotonic clock (Now) and fire
// at or after their deadline, overshooting by at most one tick.
package timer
