// File: timer/entry.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package timer

import "sync/atomic"

// entry is one scheduled deadline. Entries are recycled through a
// SyncPool; gen increases monotonically across reuse and cancellation,
// which makes a stale ID harmless.
type entry struct {
	gen     atomic.Uint64
	expTick int64
	fn      func()
}

// slot pins an entry to the generation it was inserted with. A bucket
// holds slots, not bare entries, so a cancelled-and-reused entry is
// never fired under its old identity.
type slot struct {
	e   *entry
	gen uint64
}

// live reports whether the slot's entry still carries the inserted
// generation, i.e. has not been cancelled or already fired.
func (s slot) live() bool { return s.e.gen.Load() == s.gen }

// ID is a cancellation handle for one inserted timer.
type ID struct {
	e   *entry
	gen uint64
}

// Valid reports whether the ID refers to an insertion at all.
func (id ID) Valid() bool { return id.e != nil }
