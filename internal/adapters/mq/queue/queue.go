// Package queue is the bounded inbox between the Event Source and the
// reconciliation loop.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/okian/tradesync/internal/domain/model"
	"github.com/okian/tradesync/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 4096
)

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds an event to the queue without blocking.
	// Returns ErrFull or ErrStopped when the event was not enqueued.
	Enqueue(ctx context.Context, e model.Event) error

	// Dequeue returns a channel that will receive events in arrival order.
	// The channel will be closed when the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan model.Event

	// Len returns the current number of queued events.
	Len() int

	// Close gracefully shuts down the queue.
	// After closing, no new events can be enqueued and the dequeue channel will be closed.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

type entry struct {
	ev model.Event
	at time.Time
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	events   chan entry
	capacity int
	mu       sync.RWMutex
	closed   bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
	}

	// Apply all options
	for _, opt := range opts {
		opt(q)
	}

	q.events = make(chan entry, q.capacity)

	// Initialize metrics
	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0.0)

	return q
}

// Enqueue adds an event to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, e model.Event) error { //nolint:gocritic // hugeParam: Event must be passed by value for channel semantics
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return ErrStopped
	}

	select {
	case q.events <- entry{ev: e, at: time.Now()}:
		metrics.RecordQueueEnqueue()
		q.observeSize()
		return nil
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return ctx.Err()
	default:
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return ErrFull
	}
}

// Dequeue returns a channel that will receive events as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan model.Event {
	// Wrap the channel to track dequeue metrics
	out := make(chan model.Event)
	go func() {
		defer close(out)
		for it := range q.events {
			select {
			case out <- it.ev:
				metrics.RecordQueueDequeue()
				metrics.RecordQueueProcessingLatency(float64(time.Since(it.at).Nanoseconds()) / 1e6)
				q.observeSize()
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func (q *InMemoryQueue) observeSize() {
	size := len(q.events)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
}

// Len returns the current number of queued events.
func (q *InMemoryQueue) Len() int {
	q.observeSize()
	return len(q.events)
}

// Capacity returns the maximum number of queued events.
func (q *InMemoryQueue) Capacity() int { return q.capacity }

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil // already closed
	}

	// Close the events channel to signal consumers to stop
	close(q.events)
	q.closed = true

	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
