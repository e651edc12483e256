// Package queue implements a deduplicating FIFO queue with set
// semantics (spec §4.14): master-side scheduling coalesces duplicate
// work items by only enqueuing an item if it isn't already pending.
//
// Grounded on spec §4.14's description; no teacher or pack file
// implements an equivalent structure, so this is built directly from
// the spec in gastrolog's plain small-type idiom.
package queue

import "sync"

// Unique is a thread-safe FIFO queue that refuses to enqueue a value
// already pending: Put(x) is a no-op if x is currently in the queue,
// and items inserted while a duplicate is pending do not refresh
// position (spec §5's ordering guarantee).
type Unique[T comparable] struct {
	mu      sync.Mutex
	order   []T
	pending map[T]struct{}
}

// New returns an empty unique queue.
func New[T comparable]() *Unique[T] {
	return &Unique[T]{pending: map[T]struct{}{}}
}

// Put enqueues x if it is not already pending.
func (q *Unique[T]) Put(x T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.pending[x]; ok {
		return
	}
	q.pending[x] = struct{}{}
	q.order = append(q.order, x)
}

// Get pops the oldest pending item and removes it from the membership
// set. The bool is false if the queue is empty.
func (q *Unique[T]) Get() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var zero T
	if len(q.order) == 0 {
		return zero, false
	}
	x := q.order[0]
	q.order = q.order[1:]
	delete(q.pending, x)
	return x, true
}

// Len returns the number of items currently pending.
func (q *Unique[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.order)
}
