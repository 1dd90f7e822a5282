package streamutil

import (
	"context"
	"sync"
)

// SingleQueue is an unbounded MPSC queue with an async Read (spec §4.4).
// Multiple producers call Push; a single consumer calls Read, blocking
// until an item is available or ctx is done.
type SingleQueue[T any] struct {
	mu      sync.Mutex
	items   []T
	nonEmpty chan struct{}
}

// NewSingleQueue creates an empty queue.
func NewSingleQueue[T any]() *SingleQueue[T] {
	return &SingleQueue[T]{nonEmpty: make(chan struct{}, 1)}
}

// Push appends an item, waking a blocked Read.
func (q *SingleQueue[T]) Push(item T) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()

	select {
	case q.nonEmpty <- struct{}{}:
	default:
	}
}

// Read blocks until an item is available, returning it in FIFO order.
func (q *SingleQueue[T]) Read(ctx context.Context) (item T, err error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			item = q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return item, nil
		}
		q.mu.Unlock()

		select {
		case <-q.nonEmpty:
			continue
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// Drain empties the queue, returning whatever items remained.
func (q *SingleQueue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := q.items
	q.items = nil
	return items
}

// Len reports the current queue depth.
func (q *SingleQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// DoubleQueue pairs two SPSC queues so Read only returns once both sides
// have produced an item for the same logical slot (spec §4.4), used to
// rejoin e.g. a text result with the audio span it was derived from.
type DoubleQueue[A any, B any] struct {
	mu   sync.Mutex
	as   []A
	bs   []B
	wake chan struct{}
}

// NewDoubleQueue creates an empty paired queue.
func NewDoubleQueue[A any, B any]() *DoubleQueue[A, B] {
	return &DoubleQueue[A, B]{wake: make(chan struct{}, 1)}
}

// PushA enqueues an item on the A side.
func (q *DoubleQueue[A, B]) PushA(a A) {
	q.mu.Lock()
	q.as = append(q.as, a)
	q.mu.Unlock()
	q.notify()
}

// PushB enqueues an item on the B side.
func (q *DoubleQueue[A, B]) PushB(b B) {
	q.mu.Lock()
	q.bs = append(q.bs, b)
	q.mu.Unlock()
	q.notify()
}

func (q *DoubleQueue[A, B]) notify() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Read blocks until both sides have at least one item, then returns the
// oldest pair.
func (q *DoubleQueue[A, B]) Read(ctx context.Context) (a A, b B, err error) {
	for {
		q.mu.Lock()
		if len(q.as) > 0 && len(q.bs) > 0 {
			a = q.as[0]
			b = q.bs[0]
			q.as = q.as[1:]
			q.bs = q.bs[1:]
			q.mu.Unlock()
			return a, b, nil
		}
		q.mu.Unlock()

		select {
		case <-q.wake:
			continue
		case <-ctx.Done():
			var za A
			var zb B
			return za, zb, ctx.Err()
		}
	}
}
