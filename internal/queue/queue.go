// ABOUTME: Bounded FIFO queue of inbound events, backed by a buffered channel.
// ABOUTME: Put blocks while the queue is full, exerting backpressure on the
// ABOUTME: caller; Get blocks until an item arrives, the context is canceled,
// ABOUTME: or the queue is closed and drained.

package queue

import (
	"context"
	"errors"
	"sync"

	"github.com/csgw/gateway/internal/model"
)

// ErrClosed is returned by Put once the queue has been closed.
var ErrClosed = errors.New("queue: closed")

// Queue is a bounded, closable FIFO of model.Event items.
type Queue struct {
	items chan *model.Event

	closeOnce sync.Once
	closed    chan struct{}
}

// New constructs a Queue with the given maximum size.
func New(maxSize int) *Queue {
	return &Queue{
		items:  make(chan *model.Event, maxSize),
		closed: make(chan struct{}),
	}
}

// Put enqueues an event, blocking while the queue is at capacity so the
// producer feels the same backpressure the original applies by awaiting
// asyncio.Queue.put. It returns ErrClosed if the queue is or becomes closed
// before room opens up, or ctx.Err() if ctx is canceled first.
func (q *Queue) Put(ctx context.Context, event *model.Event) error {
	select {
	case <-q.closed:
		return ErrClosed
	default:
	}

	select {
	case q.items <- event:
		return nil
	case <-q.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Get blocks until an event is available, ctx is canceled, or the queue is
// closed with nothing left to drain. A nil, nil return means the queue is
// closed and empty. The underlying channel is never closed (Put may still be
// blocked sending on it when Close runs), so draining relies on this
// explicit check rather than a closed-channel receive.
func (q *Queue) Get(ctx context.Context) (*model.Event, error) {
	select {
	case event := <-q.items:
		return event, nil
	default:
	}

	select {
	case event := <-q.items:
		return event, nil
	case <-q.closed:
		select {
		case event := <-q.items:
			return event, nil
		default:
			return nil, nil
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops accepting new items and unblocks any pending Put. Items
// already enqueued remain available to Get until drained. Safe to call more
// than once.
func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		close(q.closed)
	})
}

// Len returns the number of items currently enqueued.
func (q *Queue) Len() int {
	return len(q.items)
}

// Cap returns the queue's maximum size.
func (q *Queue) Cap() int {
	return cap(q.items)
}

// IsFull reports whether the queue is at capacity.
func (q *Queue) IsFull() bool {
	return len(q.items) >= cap(q.items)
}
