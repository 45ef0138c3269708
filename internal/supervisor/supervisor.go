// ABOUTME: Owns the lifecycle of every account's transport+queue+consumer
// ABOUTME: pipeline: start, stop, and bulk start/stop across eligible
// ABOUTME: accounts, grounded on the teacher's orchestration style and
// ABOUTME: pdd_chnnel.py's start_account/stop_account.

package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/csgw/gateway/internal/consumer"
	"github.com/csgw/gateway/internal/decoder"
	"github.com/csgw/gateway/internal/handler"
	"github.com/csgw/gateway/internal/model"
	"github.com/csgw/gateway/internal/queue"
	"github.com/csgw/gateway/internal/store"
	"github.com/csgw/gateway/internal/transport"
)

// Transport is the narrow interface supervisor needs from a connected
// session; satisfied by *transport.Session.
type Transport interface {
	Connect(ctx context.Context) error
	Frames() <-chan []byte
	Close() error
}

// TransportFactory builds a fresh, unconnected Transport for an account's
// WebSocket endpoint. It takes ctx and may fail because building the
// connection URL can require a network call (fetching a fresh chat token).
type TransportFactory func(ctx context.Context, acct *model.Account) (Transport, error)

// Session is one running account's pipeline: its transport, queue, and
// consumer, plus the cancel func that tears it all down.
type Session struct {
	account *model.Account
	cancel  context.CancelFunc
	conn    Transport
	queue   *queue.Queue
	done    chan struct{}
}

// Config bounds the consumer created for each started account.
type Config struct {
	QueueMaxSize     int
	ConsumerConfig   consumer.Config
	TransportFactory TransportFactory
	// Sender delivers the fixed acknowledgements immediate events require
	// (Withdraw, Transfer control frames); forwarded to every consumer.
	Sender handler.Sender
}

// Supervisor starts and stops account pipelines, one per account key.
type Supervisor struct {
	store  store.Store
	chain  handler.Chain
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// New constructs a Supervisor.
func New(st store.Store, chain handler.Chain, cfg Config, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{
		store:    st,
		chain:    chain,
		cfg:      cfg,
		logger:   logger.With("component", "supervisor"),
		sessions: make(map[string]*Session),
	}
}

// Start brings up the pipeline for one account: dials its transport,
// starts its queue and consumer, and begins decoding inbound frames. A
// no-op (returns nil) if the account is already running.
func (s *Supervisor) Start(ctx context.Context, acct *model.Account) error {
	s.mu.Lock()
	if _, running := s.sessions[acct.Key()]; running {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	conn, err := s.cfg.TransportFactory(ctx, acct)
	if err != nil {
		return fmt.Errorf("building transport for account %s: %w", acct.Key(), err)
	}
	if err := conn.Connect(ctx); err != nil {
		return fmt.Errorf("connecting account %s: %w", acct.Key(), err)
	}

	q := queue.New(s.cfg.QueueMaxSize)
	cons := consumer.New(acct, q, s.chain, s.cfg.Sender, s.cfg.ConsumerConfig, s.logger)

	sessCtx, cancel := context.WithCancel(ctx)
	sess := &Session{account: acct, cancel: cancel, conn: conn, queue: q, done: make(chan struct{})}

	go s.decodeLoop(sessCtx, acct, conn, q)
	go func() {
		cons.Run(sessCtx)
		close(sess.done)
	}()

	s.mu.Lock()
	s.sessions[acct.Key()] = sess
	s.mu.Unlock()

	s.logger.Info("started account", "account", acct.Key())
	return nil
}

func (s *Supervisor) decodeLoop(ctx context.Context, acct *model.Account, conn Transport, q *queue.Queue) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-conn.Frames():
			if !ok {
				q.Close()
				return
			}
			event, err := decoder.Decode(frame)
			if err != nil {
				s.logger.Warn("failed to decode frame", "account", acct.Key(), "error", err)
				continue
			}
			event.ShopID = acct.ShopID
			event.AccountUserID = acct.AccountUserID
			if err := q.Put(ctx, event); err != nil && ctx.Err() == nil {
				s.logger.Warn("failed to enqueue event", "account", acct.Key(), "error", err)
			}
		}
	}
}

// Stop tears down one account's pipeline: it cancels the pipeline's context
// and closes the transport, then waits up to 5 seconds for the consumer to
// exit, logging a warning if it does not.
func (s *Supervisor) Stop(acct *model.Account) error {
	s.mu.Lock()
	sess, ok := s.sessions[acct.Key()]
	if ok {
		delete(s.sessions, acct.Key())
	}
	s.mu.Unlock()
	if !ok {
		return nil
	}

	sess.cancel()
	_ = sess.conn.Close()

	select {
	case <-sess.done:
	case <-time.After(5 * time.Second):
		s.logger.Warn("account pipeline did not stop within timeout", "account", acct.Key())
	}

	s.logger.Info("stopped account", "account", acct.Key())
	return nil
}

// StartAllEligible starts every account the store reports as Online,
// skipping any that are already running.
func (s *Supervisor) StartAllEligible(ctx context.Context, channel string) error {
	accounts, err := s.store.ListAccounts(ctx, channel)
	if err != nil {
		return fmt.Errorf("listing accounts: %w", err)
	}
	for _, acct := range accounts {
		if acct.Presence != model.PresenceOnline {
			continue
		}
		if err := s.Start(ctx, acct); err != nil {
			s.logger.Error("failed to start account", "account", acct.Key(), "error", err)
		}
	}
	return nil
}

// StopAll stops every currently running account's pipeline.
func (s *Supervisor) StopAll() {
	s.mu.Lock()
	accounts := make([]*model.Account, 0, len(s.sessions))
	for _, sess := range s.sessions {
		accounts = append(accounts, sess.account)
	}
	s.mu.Unlock()

	for _, acct := range accounts {
		if err := s.Stop(acct); err != nil {
			s.logger.Error("failed to stop account", "account", acct.Key(), "error", err)
		}
	}
}

// ListRunning returns the account keys of every currently running session.
func (s *Supervisor) ListRunning() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.sessions))
	for key := range s.sessions {
		keys = append(keys, key)
	}
	return keys
}

// NewWebSocketTransportFactory builds a TransportFactory that dials the
// platform's real WebSocket endpoint for each account. urlFor typically
// calls platform.Client.FetchChatToken to mint the access_token query
// parameter the endpoint requires per connection.
func NewWebSocketTransportFactory(urlFor func(ctx context.Context, acct *model.Account) (string, error), pingInterval, pongTimeout time.Duration, logger *slog.Logger) TransportFactory {
	return func(ctx context.Context, acct *model.Account) (Transport, error) {
		url, err := urlFor(ctx, acct)
		if err != nil {
			return nil, err
		}
		return transport.New(url, pingInterval, pongTimeout, logger), nil
	}
}
