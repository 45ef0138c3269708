// ABOUTME: Tests for the consumer's routing policy, per-user fan-out, and
// ABOUTME: inline handling of immediate-kind events.

package consumer

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csgw/gateway/internal/handler"
	"github.com/csgw/gateway/internal/model"
	"github.com/csgw/gateway/internal/queue"
)

type recordingHandler struct {
	mu   sync.Mutex
	seen []model.EventKind
}

func (h *recordingHandler) Accepts(event *model.Event) bool { return true }

func (h *recordingHandler) Handle(ctx context.Context, event *model.Event, meta handler.Meta) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen = append(h.seen, event.Kind)
	return nil
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.seen)
}

func testAccount() *model.Account {
	return &model.Account{Channel: "pdd", ShopID: "s1", AccountUserID: "a1"}
}

type fakeSender struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeSender) SendMessage(ctx context.Context, acct *model.Account, toUID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, text)
	return nil
}

func (f *fakeSender) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func TestConsumer_ImmediateEventsNeverReachTheHandlerChain(t *testing.T) {
	rec := &recordingHandler{}
	q := queue.New(10)
	c := New(testAccount(), q, handler.Chain{rec}, nil, Config{IdleTimeout: time.Second}, nil)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan struct{})
	go func() { c.Run(ctx); close(done) }()

	require.NoError(t, q.Put(t.Context(), &model.Event{Kind: model.KindAuth, FromUID: "u1", Content: model.AuthContent{UID: "u1", Result: "ok"}}))
	require.NoError(t, q.Put(t.Context(), &model.Event{Kind: model.KindText, FromUID: "u1", Content: model.TextContent{Text: "hi"}}))

	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, rec.count(), "only the queued text event should reach the chain")

	cancel()
	<-done
}

func TestConsumer_WithdrawEventSendsFixedAck(t *testing.T) {
	sender := &fakeSender{}
	q := queue.New(10)
	c := New(testAccount(), q, handler.Chain{}, sender, Config{IdleTimeout: time.Second}, nil)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan struct{})
	go func() { c.Run(ctx); close(done) }()

	require.NoError(t, q.Put(t.Context(), &model.Event{Kind: model.KindWithdraw, FromUID: "u1", Content: model.WithdrawContent{Hint: "withdrawn"}}))

	require.Eventually(t, func() bool { return len(sender.snapshot()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, []string{"[玫瑰]"}, sender.snapshot())

	cancel()
	<-done
}

func TestConsumer_TransferControlFrameSendsFixedAck(t *testing.T) {
	sender := &fakeSender{}
	q := queue.New(10)
	c := New(testAccount(), q, handler.Chain{}, sender, Config{IdleTimeout: time.Second}, nil)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan struct{})
	go func() { c.Run(ctx); close(done) }()

	require.NoError(t, q.Put(t.Context(), &model.Event{Kind: model.KindTransfer, FromUID: "u1", Content: model.TransferContent{FromUID: "u1", ToUID: "cs1"}}))

	require.Eventually(t, func() bool { return len(sender.snapshot()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, []string{"[玫瑰]"}, sender.snapshot())

	cancel()
	<-done
}

func TestConsumer_RoutesQueuedEventsToDispatcher(t *testing.T) {
	rec := &recordingHandler{}
	q := queue.New(10)
	c := New(testAccount(), q, handler.Chain{rec}, nil, Config{IdleTimeout: time.Second}, nil)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan struct{})
	go func() { c.Run(ctx); close(done) }()

	require.NoError(t, q.Put(t.Context(), &model.Event{Kind: model.KindText, FromUID: "u1", Content: model.TextContent{Text: "hi"}}))

	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, 1, c.ActiveDispatchers())

	cancel()
	<-done
}

func TestConsumer_DropsUnknownEvents(t *testing.T) {
	rec := &recordingHandler{}
	q := queue.New(10)
	c := New(testAccount(), q, handler.Chain{rec}, nil, Config{IdleTimeout: time.Second}, nil)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan struct{})
	go func() { c.Run(ctx); close(done) }()

	require.NoError(t, q.Put(t.Context(), &model.Event{Kind: model.KindUnknown, FromUID: "u1"}))
	q.Close()

	<-done
	cancel()
	assert.Equal(t, 0, rec.count())
}

type blockingHandler struct {
	mu      sync.Mutex
	active  int
	maxSeen int
	release chan struct{}
}

func (h *blockingHandler) Accepts(event *model.Event) bool { return true }

func (h *blockingHandler) Handle(ctx context.Context, event *model.Event, meta handler.Meta) error {
	h.mu.Lock()
	h.active++
	if h.active > h.maxSeen {
		h.maxSeen = h.active
	}
	h.mu.Unlock()

	<-h.release

	h.mu.Lock()
	h.active--
	h.mu.Unlock()
	return nil
}

// TestConsumer_BoundsConcurrentHandlerInvocationsAcrossUsers exercises
// testable property 3: the number of in-flight handler-chain invocations,
// across every user_key, never exceeds cfg.MaxConcurrent. It submits more
// distinct users than permits and holds each invocation open until released,
// so if the semaphore were released at enqueue time instead of completion
// time, active would be observed climbing past MaxConcurrent.
func TestConsumer_BoundsConcurrentHandlerInvocationsAcrossUsers(t *testing.T) {
	h := &blockingHandler{release: make(chan struct{})}
	q := queue.New(10)
	c := New(testAccount(), q, handler.Chain{h}, nil, Config{MaxConcurrent: 2, IdleTimeout: time.Second}, nil)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan struct{})
	go func() { c.Run(ctx); close(done) }()

	for i := 0; i < 5; i++ {
		uid := fmt.Sprintf("u%d", i)
		require.NoError(t, q.Put(t.Context(), &model.Event{Kind: model.KindText, FromUID: uid, Content: model.TextContent{Text: "hi"}}))
	}

	require.Eventually(t, func() bool {
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.active == 2
	}, time.Second, time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	h.mu.Lock()
	assert.LessOrEqual(t, h.maxSeen, 2)
	h.mu.Unlock()

	close(h.release)

	require.Eventually(t, func() bool {
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.active == 0
	}, time.Second, time.Millisecond)

	cancel()
	<-done
}

func TestConsumer_SameUserEventsGoToSameDispatcher(t *testing.T) {
	rec := &recordingHandler{}
	q := queue.New(10)
	c := New(testAccount(), q, handler.Chain{rec}, nil, Config{IdleTimeout: time.Second}, nil)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan struct{})
	go func() { c.Run(ctx); close(done) }()

	for i := 0; i < 3; i++ {
		require.NoError(t, q.Put(t.Context(), &model.Event{Kind: model.KindText, FromUID: "u1", Content: model.TextContent{Text: "hi"}}))
	}

	require.Eventually(t, func() bool { return rec.count() == 3 }, time.Second, time.Millisecond)
	assert.Equal(t, 1, c.ActiveDispatchers())

	cancel()
	<-done
}
