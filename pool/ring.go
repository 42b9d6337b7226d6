// File: pool/ring.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Ring is a plain bounded FIFO ring buffer. Unlike an atomic SPSC
// ring, it carries no synchronization of its own: callers serialize
// access externally (the bounded channel holds it under the channel
// lock, a run queue under the queue lock).

package pool

// Ring is a fixed-capacity FIFO buffer.
type Ring[T any] struct {
	data []T
	head int
	size int
}

// NewRing allocates a ring buffer with the given capacity (>= 1).
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		panic("pool: ring capacity must be >= 1")
	}
	return &Ring[T]{data: make([]T, capacity)}
}

// Push appends item; returns false if full.
func (r *Ring[T]) Push(item T) bool {
	if r.size == len(r.data) {
		return false
	}
	r.data[(r.head+r.size)%len(r.data)] = item
	r.size++
	return true
}

// Pop removes and returns the oldest item; ok is false if empty.
func (r *Ring[T]) Pop() (item T, ok bool) {
	if r.size == 0 {
		return item, false
	}
	var zero T
	item = r.data[r.head]
	r.data[r.head] = zero
	r.head = (r.head + 1) % len(r.data)
	r.size--
	return item, true
}

// Len returns the number of buffered items.
func (r *Ring[T]) Len() int { return r.size }

// Cap returns the fixed capacity.
func (r *Ring[T]) Cap() int { return len(r.data) }

// Full reports whether the buffer is at capacity.
func (r *Ring[T]) Full() bool { return r.size == len(r.data) }
