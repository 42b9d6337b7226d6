// File: timer/wheel.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Four-level hierarchical timing wheel. Level l covers 64^(l+1) ticks
// at a granularity of 64^l ticks; entries cascade toward level 0 as
// their deadline approaches and fire from the finest level only.

package timer

import (
	"time"

	"github.com/momentics/hioload-async/pool"
)

const (
	// TickNs is the finest wheel granularity. Firing overshoot is
	// bounded by one tick.
	TickNs = int64(time.Millisecond)

	levelBits = 6
	levelSize = 1 << levelBits // 64 buckets per level
	levels    = 4

	maxSpanTicks = 1 << (levelBits * levels) // ~4.6h at 1ms ticks
)

// Wheel is a single-core hierarchical timer store.
type Wheel struct {
	base     time.Time
	lastTick int64
	count    int
	buckets  [levels][levelSize][]slot
	// levelCount tracks slots per level (cancelled residue included)
	// so an advance can cross empty spans without visiting each tick.
	levelCount [levels]int
	entries    *pool.SyncPool[*entry]
}

// NewWheel creates an empty wheel anchored at the current monotonic
// instant.
func NewWheel() *Wheel {
	return NewWheelAt(time.Now())
}

// NewWheelAt anchors the wheel at base, letting every wheel of one
// runtime share a single deadline clock.
func NewWheelAt(base time.Time) *Wheel {
	return &Wheel{
		base:    base,
		entries: pool.NewSyncPool(func() *entry { return new(entry) }),
	}
}

// Now returns nanoseconds elapsed on the wheel's monotonic clock.
// Wall-clock adjustments do not affect it.
func (w *Wheel) Now() int64 { return time.Since(w.base).Nanoseconds() }

// Len returns the number of entries stored, including entries whose
// cancellation has not yet been reclaimed by a cascade or fire.
func (w *Wheel) Len() int { return w.count }

// Insert schedules fn at deadlineNs on the wheel clock and returns a
// cancellation handle. A deadline at or before the last processed tick
// fires on the next advance. O(1) amortized.
func (w *Wheel) Insert(deadlineNs int64, fn func()) ID {
	expTick := (deadlineNs + TickNs - 1) / TickNs // round up: never early
	if expTick <= w.lastTick {
		expTick = w.lastTick + 1
	}
	e := w.entries.Get()
	e.expTick = expTick
	e.fn = fn
	gen := e.gen.Load()
	w.place(slot{e: e, gen: gen})
	w.count++
	return ID{e: e, gen: gen}
}

// Cancel invalidates the timer in O(1) via its generation counter.
// Returns false if the timer already fired or was cancelled. The
// bucket slot is reclaimed lazily when its range elapses.
func (w *Wheel) Cancel(id ID) bool {
	if !id.Valid() {
		return false
	}
	if !id.e.gen.CompareAndSwap(id.gen, id.gen+1) {
		return false
	}
	w.count--
	return true
}

// NextDeadline returns the wheel-clock nanosecond of the nearest
// non-empty bucket and true, or false when the wheel is empty. The
// returned instant is never later than the earliest live deadline, so
// a driver wait bounded by it cannot oversleep a timer.
func (w *Wheel) NextDeadline() (int64, bool) {
	if w.count == 0 {
		return 0, false
	}
	for t := w.lastTick + 1; t <= w.lastTick+levelSize; t++ {
		if len(w.buckets[0][t&(levelSize-1)]) != 0 {
			return t * TickNs, true
		}
	}
	for l := 1; l < levels; l++ {
		shift := uint(levelBits * l)
		cur := w.lastTick >> shift
		for i := int64(1); i <= levelSize; i++ {
			if len(w.buckets[l][(cur+i)&(levelSize-1)]) != 0 {
				// Bucket start is a lower bound for every entry inside.
				return ((cur + i) << shift) * TickNs, true
			}
		}
	}
	// Only cancelled residue remains; report one tick out so the core
	// sweeps it instead of parking forever.
	return (w.lastTick + 1) * TickNs, true
}

// AdvanceTo processes the ticks up to nowNs, cascading coarse buckets
// whose range elapsed and firing expired entries. Returns the number
// of timers fired. Entries fire at or after their deadline, never
// before. Spans with no finest-level slots are crossed in one step to
// the next boundary where a cascade could deposit work, so a wake
// after a long park does not walk every elapsed tick.
func (w *Wheel) AdvanceTo(nowNs int64) int {
	target := nowNs / TickNs
	fired := 0
	for w.lastTick < target {
		if w.count == 0 {
			w.lastTick = target
			break
		}
		if shift := w.emptySpan(); shift > 0 {
			boundary := ((w.lastTick >> shift) + 1) << shift
			if boundary > target {
				w.lastTick = target
				break
			}
			w.lastTick = boundary
			w.cascade(boundary)
			fired += w.fire(boundary)
			continue
		}
		w.lastTick++
		tick := w.lastTick
		if tick&(levelSize-1) == 0 {
			w.cascade(tick)
		}
		fired += w.fire(tick)
	}
	return fired
}

// emptySpan returns the shift of the coarsest boundary nothing can
// fire before: levelBits per consecutive empty level from the finest
// up. Zero means level 0 holds slots and ticks must be visited one by
// one.
func (w *Wheel) emptySpan() uint {
	var shift uint
	for l := 0; l < levels-1 && w.levelCount[l] == 0; l++ {
		shift += levelBits
	}
	return shift
}

// cascade re-distributes the coarse buckets crossed at tick down to
// finer levels.
func (w *Wheel) cascade(tick int64) {
	for l := 1; l < levels; l++ {
		shift := uint(levelBits * l)
		idx := (tick >> shift) & (levelSize - 1)
		bucket := w.buckets[l][idx]
		// Detach before re-placing: a slot may land back in this bucket.
		w.buckets[l][idx] = nil
		w.levelCount[l] -= len(bucket)
		for _, s := range bucket {
			if !s.live() {
				w.reclaim(s.e)
				continue
			}
			w.place(s)
		}
		// Only continue upward when this level also wrapped.
		if idx != 0 {
			break
		}
	}
}

// fire runs every live entry in the finest bucket matching tick.
func (w *Wheel) fire(tick int64) int {
	idx := tick & (levelSize - 1)
	bucket := w.buckets[0][idx]
	if len(bucket) == 0 {
		return 0
	}
	// Detach: callbacks may insert into this very bucket.
	w.buckets[0][idx] = nil
	w.levelCount[0] -= len(bucket)
	fired := 0
	for _, s := range bucket {
		if !s.live() {
			w.reclaim(s.e)
			continue
		}
		if s.e.expTick > tick {
			// Same finest index, a full rotation away. Re-place.
			w.place(s)
			continue
		}
		if s.e.gen.CompareAndSwap(s.gen, s.gen+1) {
			fn := s.e.fn
			w.count--
			w.reclaim(s.e)
			fn()
			fired++
		} else {
			w.reclaim(s.e)
		}
	}
	return fired
}

// place files the slot into the level matching its remaining delta.
func (w *Wheel) place(s slot) {
	delta := s.e.expTick - w.lastTick
	expTick := s.e.expTick
	if delta >= maxSpanTicks {
		// Beyond the horizon: park in the top level's furthest bucket;
		// cascading re-places it as time advances.
		expTick = w.lastTick + maxSpanTicks - 1
	}
	var l int
	switch {
	case delta < levelSize:
		l = 0
	case delta < levelSize*levelSize:
		l = 1
	case delta < levelSize*levelSize*levelSize:
		l = 2
	default:
		l = 3
	}
	idx := (expTick >> uint(levelBits*l)) & (levelSize - 1)
	w.buckets[l][idx] = append(w.buckets[l][idx], s)
	w.levelCount[l]++
}

// reclaim recycles an entry whose slot left the wheel.
func (w *Wheel) reclaim(e *entry) {
	e.fn = nil
	w.entries.Put(e)
}
