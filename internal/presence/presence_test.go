// ABOUTME: Tests for presence update ordering and degraded-success handling
// ABOUTME: of storage failures.

package presence

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csgw/gateway/internal/model"
	"github.com/csgw/gateway/internal/store"
)

type fakePlatform struct {
	calls int
	err   error
}

func (f *fakePlatform) SetPresence(ctx context.Context, acct *model.Account, presence model.Presence) error {
	f.calls++
	return f.err
}

func testAccount() *model.Account {
	return &model.Account{Channel: "pdd", ShopID: "s1", AccountUserID: "a1"}
}

func TestController_UpdatesPlatformThenStore(t *testing.T) {
	platform := &fakePlatform{}
	st := store.NewMockStore()
	require.NoError(t, st.AddAccount(t.Context(), testAccount()))

	c := New(platform, st, nil)
	require.NoError(t, c.SetPresence(t.Context(), testAccount(), model.PresenceOnline))

	got, err := st.GetAccount(t.Context(), "pdd", "s1", "a1")
	require.NoError(t, err)
	assert.Equal(t, model.PresenceOnline, got.Presence)
}

func TestController_PlatformFailureStopsBeforeStore(t *testing.T) {
	platform := &fakePlatform{err: errors.New("platform down")}
	st := store.NewMockStore()
	require.NoError(t, st.AddAccount(t.Context(), testAccount()))

	c := New(platform, st, nil)
	err := c.SetPresence(t.Context(), testAccount(), model.PresenceOnline)
	require.Error(t, err)

	got, err := st.GetAccount(t.Context(), "pdd", "s1", "a1")
	require.NoError(t, err)
	assert.Equal(t, model.PresenceUnverified, got.Presence)
}

func TestController_StorageFailureAfterPlatformSuccessIsDegraded(t *testing.T) {
	platform := &fakePlatform{}
	st := store.NewMockStore()
	// Account not added to the store, so UpdatePresence returns ErrNotFound.
	c := New(platform, st, nil)

	err := c.SetPresence(t.Context(), testAccount(), model.PresenceOnline)
	require.NoError(t, err)
	assert.Equal(t, 1, platform.calls)
}
