// ABOUTME: WebSocket transport session to the platform's chat gateway, with
// ABOUTME: ping/pong keepalive and an explicit connection lifecycle state machine.

package transport

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/csgw/gateway/internal/errs"
)

// State is the lifecycle state of a transport Session.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session manages one account's persistent WebSocket connection: dial,
// ping/pong keepalive, inbound frame delivery, and graceful close.
type Session struct {
	url          string
	pingInterval time.Duration
	pongTimeout  time.Duration
	logger       *slog.Logger

	mu    sync.Mutex
	state State
	conn  *websocket.Conn

	frames chan []byte
}

// New constructs a Session for url with the given keepalive intervals.
func New(url string, pingInterval, pongTimeout time.Duration, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		url:          url,
		pingInterval: pingInterval,
		pongTimeout:  pongTimeout,
		logger:       logger.With("component", "transport"),
		state:        StateIdle,
		frames:       make(chan []byte, 64),
	}
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(next State) {
	s.mu.Lock()
	s.state = next
	s.mu.Unlock()
}

// Frames returns the channel of raw inbound frames. Closed when the read
// loop exits (connection closed or context canceled).
func (s *Session) Frames() <-chan []byte {
	return s.frames
}

// Connect dials the platform WebSocket endpoint and starts the read loop
// and ping keepalive in background goroutines. It blocks until the
// connection is established or fails.
func (s *Session) Connect(ctx context.Context) error {
	s.setState(StateConnecting)

	conn, _, err := websocket.Dial(ctx, s.url, nil)
	if err != nil {
		s.setState(StateClosed)
		return &errs.TransportError{Cause: fmt.Errorf("dialing %s: %w", s.url, err)}
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	s.setState(StateOpen)

	go s.readLoop(ctx)
	go s.keepaliveLoop(ctx)

	return nil
}

// Send writes a text frame to the connection.
func (s *Session) Send(ctx context.Context, data []byte) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil || s.State() != StateOpen {
		return &errs.TransportError{Cause: fmt.Errorf("session not open")}
	}
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		return &errs.TransportError{Cause: err}
	}
	return nil
}

// Close gracefully closes the connection, marking the session Closing then
// Closed. Safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	if s.State() == StateClosed {
		return nil
	}
	s.setState(StateClosing)
	defer s.setState(StateClosed)

	if conn == nil {
		return nil
	}
	if err := conn.Close(websocket.StatusNormalClosure, "session closed"); err != nil {
		return &errs.TransportError{Cause: err}
	}
	return nil
}

func (s *Session) readLoop(ctx context.Context) {
	defer close(s.frames)
	for {
		s.mu.Lock()
		conn := s.conn
		s.mu.Unlock()
		if conn == nil {
			return
		}

		_, data, err := conn.Read(ctx)
		if err != nil {
			if s.State() != StateClosing && s.State() != StateClosed {
				s.logger.Warn("transport read failed", "error", err)
			}
			s.setState(StateClosed)
			return
		}

		select {
		case s.frames <- data:
		case <-ctx.Done():
			return
		}
	}
}

func (s *Session) keepaliveLoop(ctx context.Context) {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.State() != StateOpen {
				return
			}
			pingCtx, cancel := context.WithTimeout(ctx, s.pongTimeout)
			err := s.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				s.logger.Warn("ping failed, closing session", "error", err)
				_ = s.Close()
				return
			}
		}
	}
}
