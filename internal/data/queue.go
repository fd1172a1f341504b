package data

import (
	"errors"
	"sync"
)

var (
	// ErrQueueFull is returned when a push would exceed the queue's provisioned capacity.
	ErrQueueFull = errors.New("queue: capacity exhausted")
	// ErrQueueClosed is returned when a push is attempted after the queue has been closed.
	ErrQueueClosed = errors.New("queue: closed")
)

// Queue is a concurrency-safe FIFO queue shared between any number of producers and consumers.
// Consumers block on Pop until an item is available or the queue is closed.
//
// Closing the queue acts as a sentinel appended after the last accepted item: no further pushes
// are accepted, and consumers continue to receive every item pushed before the close before Pop
// reports exhaustion.
type Queue[T any] struct {
	items    []T
	capacity int
	closed   bool
	mutex    sync.Mutex
	cond     *sync.Cond
}

// NewQueue creates a new FIFO queue with the specified capacity.
// The capacity may be any non-positive integer to disable the capacity limit.
func NewQueue[T any](capacity int) *Queue[T] {
	q := &Queue[T]{capacity: capacity}
	q.cond = sync.NewCond(&q.mutex)

	if capacity > 0 {
		q.items = make([]T, 0, capacity)
	}

	return q
}

// Push appends a value to the tail of the queue. It never blocks: it is considered an error to add
// an item beyond the queue's provisioned capacity, or to add an item to a closed queue.
func (q *Queue[T]) Push(value T) error {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	// Refuse to add beyond capacity
	if q.capacity > 0 && len(q.items) >= q.capacity {
		return ErrQueueFull
	}

	q.items = append(q.items, value)
	q.cond.Signal()

	return nil
}

// Pop removes the item at the head of the queue, blocking while the queue is empty and open. The
// boolean is false only once the queue is both closed and fully drained.
func (q *Queue[T]) Pop() (T, bool) {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}

	var zero T
	if len(q.items) == 0 {
		return zero, false
	}

	item := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]

	return item, true
}

// Close stops the queue from accepting new items and wakes all blocked consumers. Items already in
// the queue remain available to Pop. Closing an already closed queue is a noop.
func (q *Queue[T]) Close() {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	q.closed = true
	q.cond.Broadcast()
}

// Abandon closes the queue and discards every item still waiting in it, returning the discarded
// items in FIFO order.
func (q *Queue[T]) Abandon() []T {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	abandoned := q.items
	q.items = nil
	q.closed = true
	q.cond.Broadcast()

	return abandoned
}

// Size reads the current size of the queue.
func (q *Queue[T]) Size() int {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	return len(q.items)
}

// Empty returns whether the queue holds no items.
func (q *Queue[T]) Empty() bool {
	return q.Size() == 0
}

// Closed returns whether the queue has stopped accepting items.
func (q *Queue[T]) Closed() bool {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	return q.closed
}
