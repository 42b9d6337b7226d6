// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package pool provides small allocation-recycling helpers used on the
// engine's hot paths: a generic sync.Pool wrapper for timer-entry
// reuse and a plain bounded ring buffer for channel payloads.
package pool
