// Package queue buffers operator notifications between the pipeline and the
// delivery workers.
//
// Enqueue never blocks the caller: a slow or failing chat backend must not
// stall polling, so a full queue drops the message and counts it.
package queue

import (
	"context"
	"sync"

	"github.com/okian/surrender/internal/domain/model"
	"github.com/okian/surrender/pkg/metrics"
)

const defaultCapacity = 256

// Message is the payload flowing through the queue.
type Message = model.Notification

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds m, returning ErrFull or ErrClosed when it was dropped.
	Enqueue(ctx context.Context, m Message) error

	// Dequeue returns a channel receiving messages until the queue closes.
	Dequeue(ctx context.Context) <-chan Message

	Len() int

	// Close stops intake; buffered messages are still drained.
	Close() error

	IsClosed() bool
}

// InMemoryQueue implements Queue on a buffered channel.
type InMemoryQueue struct {
	messages chan Message
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.messages = make(chan Message, q.capacity)
	metrics.UpdateNotifyQueueSize(0)
	return q
}

// Enqueue adds a message to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, m Message) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordNotificationDropped("closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordNotificationDropped("canceled")
		return err
	}

	select {
	case q.messages <- m:
		metrics.UpdateNotifyQueueSize(len(q.messages))
		return nil
	default:
		metrics.RecordNotificationDropped("queue_full")
		return ErrFull
	}
}

// Dequeue returns a channel that will receive messages as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Message {
	out := make(chan Message)
	go func() {
		defer close(out)
		for m := range q.messages {
			select {
			case out <- m:
				metrics.UpdateNotifyQueueSize(len(q.messages))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of buffered messages.
func (q *InMemoryQueue) Len() int {
	return len(q.messages)
}

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.messages)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
