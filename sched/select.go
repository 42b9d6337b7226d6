// File: sched/select.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// First-ready combinators. Candidates are polled in index order once
// per visit; when several are ready in the same pass the lowest index
// wins, which keeps races deterministic under test. Losers stay
// pending and may be awaited later; nothing cancels them implicitly.

package sched

// Either is the outcome of SelectTwo: Index names the winner and the
// matching field carries its value.
type Either[A, B any] struct {
	Index int
	A     A
	B     B
}

// SelectTwo resolves to whichever of a, b is ready first.
func SelectTwo[A, B any](a Future[A], b Future[B]) Future[Either[A, B]] {
	return FutureFunc[Either[A, B]](func(cx *Context) (Either[A, B], bool) {
		if v, ok := a.Poll(cx); ok {
			return Either[A, B]{Index: 0, A: v}, true
		}
		if v, ok := b.Poll(cx); ok {
			return Either[A, B]{Index: 1, B: v}, true
		}
		return Either[A, B]{}, false
	})
}

// Choice is the outcome of Select.
type Choice[T any] struct {
	Index int
	Value T
}

// Select resolves to the first-ready of the candidates. Every
// candidate parks the task's waker while pending, so any of them
// becoming ready re-polls the set.
func Select[T any](futures ...Future[T]) Future[Choice[T]] {
	return FutureFunc[Choice[T]](func(cx *Context) (Choice[T], bool) {
		for i, f := range futures {
			if v, ok := f.Poll(cx); ok {
				return Choice[T]{Index: i, Value: v}, true
			}
		}
		return Choice[T]{}, false
	})
}
