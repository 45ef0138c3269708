// ABOUTME: Per-user serialized event dispatcher: one goroutine and bounded
// ABOUTME: inbox per user_key, so a single user's events are handled in
// ABOUTME: order while different users proceed concurrently. Idles out and
// ABOUTME: exits after a configurable period with no traffic.

package dispatcher

import (
	"context"
	"log/slog"
	"time"

	"github.com/csgw/gateway/internal/handler"
	"github.com/csgw/gateway/internal/model"
)

const inboxSize = 32

type job struct {
	event *model.Event
	meta  handler.Meta
	done  chan struct{}
}

// Dispatcher serializes handling of every event for one user_key through a
// single goroutine, translating UserSequentialProcessor's asyncio.Queue +
// wait_for(timeout) loop into Go's channel-select-with-timer idiom.
type Dispatcher struct {
	userKey     string
	chain       handler.Chain
	idleTimeout time.Duration
	logger      *slog.Logger

	inbox chan job
	done  chan struct{}
}

// New constructs a Dispatcher and starts its processing goroutine. The
// goroutine exits on its own once idleTimeout passes with no new events, or
// immediately when ctx is canceled.
func New(ctx context.Context, userKey string, chain handler.Chain, idleTimeout time.Duration, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		userKey:     userKey,
		chain:       chain,
		idleTimeout: idleTimeout,
		logger:      logger.With("component", "dispatcher", "user_key", userKey),
		inbox:       make(chan job, inboxSize),
		done:        make(chan struct{}),
	}
	go d.run(ctx)
	return d
}

// Submit enqueues an event for this user and returns a channel that closes
// once that event's handler chain invocation has completed, so a caller
// bounding cross-user concurrency (consumer.Consumer's semaphore) can hold
// its permit for the invocation's full lifetime rather than just the
// enqueue step. Returns ok=false if the dispatcher has already exited
// (idled out or context canceled); the caller should create a fresh
// Dispatcher and retry.
func (d *Dispatcher) Submit(event *model.Event, meta handler.Meta) (done chan struct{}, ok bool) {
	select {
	case <-d.done:
		return nil, false
	default:
	}

	j := job{event: event, meta: meta, done: make(chan struct{})}
	select {
	case d.inbox <- j:
		return j.done, true
	case <-d.done:
		return nil, false
	}
}

// Done returns a channel closed once the dispatcher's goroutine has exited.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

func (d *Dispatcher) run(ctx context.Context) {
	defer close(d.done)

	timer := time.NewTimer(d.idleTimeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			d.logger.Debug("dispatcher idled out")
			return
		case j := <-d.inbox:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			d.handle(ctx, j)
			timer.Reset(d.idleTimeout)
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, j job) {
	defer close(j.done)

	if err := d.chain.Handle(ctx, j.event, j.meta); err != nil {
		if err == handler.ErrNoHandler {
			d.logger.Warn("no handler accepted event", "msg_id", j.event.MsgID, "kind", j.event.Kind)
			return
		}
		d.logger.Error("handler failed", "msg_id", j.event.MsgID, "kind", j.event.Kind, "error", err)
	}
}
