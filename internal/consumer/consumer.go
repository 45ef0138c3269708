// ABOUTME: Consumes one account's event queue, applying the routing policy:
// ABOUTME: immediate events are handled inline, queued events are handed to
// ABOUTME: a per-user dispatcher, and unknown events are dropped. Maintains
// ABOUTME: the dispatcher registry and reaps idle dispatchers periodically.

package consumer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/csgw/gateway/internal/dispatcher"
	"github.com/csgw/gateway/internal/handler"
	"github.com/csgw/gateway/internal/model"
	"github.com/csgw/gateway/internal/queue"
)

const reapInterval = 60 * time.Second

// Config bounds the consumer's behavior: how many users may be actively
// dispatched to concurrently, and how long a per-user dispatcher idles
// before its goroutine exits.
type Config struct {
	MaxConcurrent int
	IdleTimeout   time.Duration
}

// Consumer drains an account's queue and fans events out to per-user
// dispatchers (queued kinds) or handles them inline (immediate kinds),
// grounded on MessageConsumer's asyncio.Semaphore + user-processor-map
// design, rendered with a buffered-channel semaphore and explicit reaper.
type Consumer struct {
	account *model.Account
	queue   *queue.Queue
	chain   handler.Chain
	sender  handler.Sender
	cfg     Config
	logger  *slog.Logger

	semaphore chan struct{}

	mu          sync.Mutex
	dispatchers map[string]*dispatcher.Dispatcher

	stopOnce sync.Once
	stopped  chan struct{}
}

// New constructs a Consumer for one account's queue. sender delivers the
// fixed acknowledgements handleImmediate sends for Withdraw/Transfer
// events; it may be nil if the account never produces those (e.g. in
// tests that only exercise queued routing).
func New(account *model.Account, q *queue.Queue, chain handler.Chain, sender handler.Sender, cfg Config, logger *slog.Logger) *Consumer {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 10
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{
		account:     account,
		queue:       q,
		chain:       chain,
		sender:      sender,
		cfg:         cfg,
		logger:      logger.With("component", "consumer", "account", account.Key()),
		semaphore:   make(chan struct{}, cfg.MaxConcurrent),
		dispatchers: make(map[string]*dispatcher.Dispatcher),
		stopped:     make(chan struct{}),
	}
}

// Run drains the queue until ctx is canceled or the queue is closed and
// drained. It starts its own reaper goroutine and blocks until both exit.
func (c *Consumer) Run(ctx context.Context) {
	reapCtx, cancelReap := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.reapLoop(reapCtx)
	}()

	c.drain(ctx)

	cancelReap()
	wg.Wait()
	close(c.stopped)
}

// Stopped returns a channel closed once Run has returned.
func (c *Consumer) Stopped() <-chan struct{} {
	return c.stopped
}

func (c *Consumer) drain(ctx context.Context) {
	for {
		event, err := c.queue.Get(ctx)
		if err != nil {
			return
		}
		if event == nil {
			return
		}
		c.route(ctx, event)
	}
}

func (c *Consumer) route(ctx context.Context, event *model.Event) {
	switch model.RoutingFor(event.Kind) {
	case model.RoutingDropped:
		c.logger.Debug("dropped unrouted event", "kind", event.Kind, "msg_id", event.MsgID)
	case model.RoutingImmediate:
		c.handleImmediate(ctx, event)
	case model.RoutingQueued:
		c.handleQueued(ctx, event)
	}
}

// withdrawAck is the fixed acknowledgement the original sends back for
// both a withdrawn message and a transfer control frame (pdd_chnnel.py's
// _handle_immediate_message sends the same "[玫瑰]" token for both).
const withdrawAck = "[玫瑰]"

// handleImmediate performs the small, bounded action each immediate event
// kind calls for, inline and outside any per-user dispatcher, grounded on
// pdd_chnnel.py's _handle_immediate_message. It never runs the queued
// handler chain: that chain's handlers (business hours, transfer
// keywords, AI reply) only make sense for end-user conversational
// content.
func (c *Consumer) handleImmediate(ctx context.Context, event *model.Event) {
	switch event.Kind {
	case model.KindAuth:
		c.handleAuth(event)
	case model.KindWithdraw:
		c.logger.Info("received withdraw message", "msg_id", event.MsgID, "from_uid", event.FromUID)
		c.sendAck(ctx, event)
	case model.KindSystemStatus:
		c.logger.Debug("system status message", "msg_id", event.MsgID, "kind", event.Kind)
	case model.KindSystemHint:
		c.logger.Info("system hint message", "msg_id", event.MsgID, "kind", event.Kind)
	case model.KindMallCs:
		c.logger.Debug("mall cs message", "msg_id", event.MsgID, "from_uid", event.FromUID)
	case model.KindSystemBiz:
		c.logger.Info("system biz message", "msg_id", event.MsgID, "kind", event.Kind)
	case model.KindMallSystemMsg:
		c.logger.Info("mall system message", "msg_id", event.MsgID, "kind", event.Kind)
	case model.KindTransfer:
		c.logger.Info("transfer control frame", "msg_id", event.MsgID, "from_uid", event.FromUID)
		c.sendAck(ctx, event)
	}
}

func (c *Consumer) handleAuth(event *model.Event) {
	auth, ok := event.Content.(model.AuthContent)
	if !ok {
		return
	}
	if auth.Result == "ok" {
		c.logger.Info("account authenticated", "account", c.account.Key())
	} else {
		c.logger.Warn("account authentication failed", "account", c.account.Key(), "result", auth.Result)
	}
}

func (c *Consumer) sendAck(ctx context.Context, event *model.Event) {
	if c.sender == nil {
		return
	}
	if err := c.sender.SendMessage(ctx, c.account, event.FromUID, withdrawAck); err != nil {
		c.logger.Error("failed to send immediate ack", "msg_id", event.MsgID, "to_uid", event.FromUID, "error", err)
	}
}

// handleQueued hands event to the per-user dispatcher for its from_uid,
// holding one of MAX_CONCURRENT semaphore permits for the full lifetime of
// that event's handler-chain invocation (not merely until it lands on the
// dispatcher's inbox), so the number of chain invocations running at once
// across every user_key never exceeds cfg.MaxConcurrent.
func (c *Consumer) handleQueued(ctx context.Context, event *model.Event) {
	select {
	case c.semaphore <- struct{}{}:
	case <-ctx.Done():
		return
	}

	meta := handler.Meta{Account: c.account}
	userKey := model.UserKey(c.account.Channel, event.FromUID)
	d := c.dispatcherFor(ctx, userKey)
	done, ok := d.Submit(event, meta)
	if !ok {
		// Dispatcher idled out between lookup and submit; replace and retry once.
		d = c.dispatcherFor(ctx, userKey)
		done, ok = d.Submit(event, meta)
	}
	if !ok {
		<-c.semaphore
		return
	}

	go func() {
		select {
		case <-done:
		case <-ctx.Done():
		}
		<-c.semaphore
	}()
}

func (c *Consumer) dispatcherFor(ctx context.Context, userKey string) *dispatcher.Dispatcher {
	c.mu.Lock()
	defer c.mu.Unlock()

	if d, ok := c.dispatchers[userKey]; ok {
		select {
		case <-d.Done():
		default:
			return d
		}
	}

	d := dispatcher.New(ctx, userKey, c.chain, c.cfg.IdleTimeout, c.logger)
	c.dispatchers[userKey] = d
	return d
}

// reapLoop periodically drops references to dispatchers that have already
// idled out, so the registry doesn't grow unbounded.
func (c *Consumer) reapLoop(ctx context.Context) {
	ticker := time.NewTicker(reapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.reapOnce()
		}
	}
}

func (c *Consumer) reapOnce() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, d := range c.dispatchers {
		select {
		case <-d.Done():
			delete(c.dispatchers, key)
		default:
		}
	}
}

// ActiveDispatchers returns the number of dispatchers currently tracked,
// for tests and observability.
func (c *Consumer) ActiveDispatchers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.dispatchers)
}
