// ABOUTME: Tests for account lifecycle management: start, stop, idempotence,
// ABOUTME: and bulk start/stop over eligible accounts.

package supervisor

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csgw/gateway/internal/consumer"
	"github.com/csgw/gateway/internal/handler"
	"github.com/csgw/gateway/internal/model"
	"github.com/csgw/gateway/internal/store"
)

type fakeTransport struct {
	mu       sync.Mutex
	closed   bool
	frames   chan []byte
	connects int32
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{frames: make(chan []byte)}
}

func (f *fakeTransport) Connect(ctx context.Context) error {
	atomic.AddInt32(&f.connects, 1)
	return nil
}

func (f *fakeTransport) Frames() <-chan []byte { return f.frames }

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.frames)
	}
	return nil
}

func testAccount() *model.Account {
	return &model.Account{Channel: "pdd", ShopID: "s1", AccountUserID: "a1", Presence: model.PresenceOnline}
}

func TestSupervisor_StartAddsRunningSession(t *testing.T) {
	st := store.NewMockStore()
	conn := newFakeTransport()
	sv := New(st, handler.Chain{}, Config{
		QueueMaxSize:     10,
		ConsumerConfig:   consumerConfig(),
		TransportFactory: func(context.Context, *model.Account) (Transport, error) { return conn, nil },
	}, nil)

	require.NoError(t, sv.Start(t.Context(), testAccount()))
	assert.Equal(t, []string{"pdd:s1:a1"}, sv.ListRunning())
}

func TestSupervisor_StartIsIdempotent(t *testing.T) {
	st := store.NewMockStore()
	conn := newFakeTransport()
	sv := New(st, handler.Chain{}, Config{
		QueueMaxSize:     10,
		ConsumerConfig:   consumerConfig(),
		TransportFactory: func(context.Context, *model.Account) (Transport, error) { return conn, nil },
	}, nil)

	require.NoError(t, sv.Start(t.Context(), testAccount()))
	require.NoError(t, sv.Start(t.Context(), testAccount()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&conn.connects))
}

func TestSupervisor_StopRemovesSessionAndClosesTransport(t *testing.T) {
	st := store.NewMockStore()
	conn := newFakeTransport()
	sv := New(st, handler.Chain{}, Config{
		QueueMaxSize:     10,
		ConsumerConfig:   consumerConfig(),
		TransportFactory: func(context.Context, *model.Account) (Transport, error) { return conn, nil },
	}, nil)

	require.NoError(t, sv.Start(t.Context(), testAccount()))
	require.NoError(t, sv.Stop(testAccount()))

	assert.Empty(t, sv.ListRunning())
	conn.mu.Lock()
	assert.True(t, conn.closed)
	conn.mu.Unlock()
}

func TestSupervisor_StartAllEligibleSkipsOfflineAccounts(t *testing.T) {
	st := store.NewMockStore()
	online := testAccount()
	offline := &model.Account{Channel: "pdd", ShopID: "s1", AccountUserID: "a2", Presence: model.PresenceOffline}
	require.NoError(t, st.AddAccount(t.Context(), online))
	require.NoError(t, st.AddAccount(t.Context(), offline))

	sv := New(st, handler.Chain{}, Config{
		QueueMaxSize:     10,
		ConsumerConfig:   consumerConfig(),
		TransportFactory: func(context.Context, *model.Account) (Transport, error) { return newFakeTransport(), nil },
	}, nil)

	require.NoError(t, sv.StartAllEligible(t.Context(), "pdd"))
	assert.Equal(t, []string{"pdd:s1:a1"}, sv.ListRunning())
}

func TestSupervisor_StopAllStopsEverything(t *testing.T) {
	st := store.NewMockStore()
	sv := New(st, handler.Chain{}, Config{
		QueueMaxSize:     10,
		ConsumerConfig:   consumerConfig(),
		TransportFactory: func(context.Context, *model.Account) (Transport, error) { return newFakeTransport(), nil },
	}, nil)

	require.NoError(t, sv.Start(t.Context(), testAccount()))
	sv.StopAll()
	assert.Empty(t, sv.ListRunning())
}

func consumerConfig() consumer.Config {
	return consumer.Config{MaxConcurrent: 2, IdleTimeout: time.Second}
}
