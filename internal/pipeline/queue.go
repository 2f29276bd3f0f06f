package pipeline

import (
	"context"
	"sync"
)

// Queue is a bounded FIFO connecting two pipeline stages. Producers never
// block: pushing into a full queue evicts the oldest items instead, keeping
// the freshest work when a downstream stage falls behind.
type Queue[T any] struct {
	mu     sync.Mutex
	items  []T
	cap    int
	closed bool

	// ready is signalled (non-blocking, capacity 1) whenever items become
	// available, waking a single DrainReady waiter.
	ready chan struct{}
}

// NewQueue creates a queue holding at most capacity items. Capacity must be
// at least 1.
func NewQueue[T any](capacity int) *Queue[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue[T]{
		cap:   capacity,
		ready: make(chan struct{}, 1),
	}
}

// Push appends v and returns any items evicted to make room, oldest first.
// Push never blocks. Pushing into a closed queue drops v itself and returns
// it as evicted.
func (q *Queue[T]) Push(v T) (evicted []T) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return []T{v}
	}
	q.items = append(q.items, v)
	if over := len(q.items) - q.cap; over > 0 {
		evicted = append(evicted, q.items[:over]...)
		q.items = q.items[over:]
	}
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
	return evicted
}

// DrainReady blocks until at least one item is queued or ctx is done, then
// returns every queued item in FIFO order. Draining batches lets a consumer
// that fell behind catch up in one pass instead of item by item.
//
// After Close, any buffered items are still returned; once empty it returns
// a nil slice and false.
func (q *Queue[T]) DrainReady(ctx context.Context) ([]T, bool, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			items := q.items
			q.items = nil
			q.mu.Unlock()
			return items, true, nil
		}
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return nil, false, nil
		}

		select {
		case <-q.ready:
		case <-ctx.Done():
			return nil, false, ctx.Err()
		}
	}
}

// Len reports the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close marks the queue closed. Buffered items remain drainable; further
// pushes are rejected.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Flush removes and returns all queued items without waiting.
func (q *Queue[T]) Flush() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}
