// ABOUTME: Thin controller that updates an account's presence on the
// ABOUTME: platform and then persists it, treating a storage failure after
// ABOUTME: a successful platform update as degraded success rather than a
// ABOUTME: hard error.

package presence

import (
	"context"
	"log/slog"

	"github.com/csgw/gateway/internal/model"
	"github.com/csgw/gateway/internal/store"
)

// PlatformSetter is the narrow collaborator for updating presence on the
// platform side. Satisfied by *platform.Client.
type PlatformSetter interface {
	SetPresence(ctx context.Context, acct *model.Account, presence model.Presence) error
}

// Controller sets an account's presence on the platform, then persists it
// to the store.
type Controller struct {
	platform PlatformSetter
	store    store.Store
	logger   *slog.Logger
}

// New constructs a Controller.
func New(platform PlatformSetter, st store.Store, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{platform: platform, store: st, logger: logger.With("component", "presence")}
}

// SetPresence updates presence on the platform first; only on success does
// it persist to the store. A storage failure after a successful platform
// update is logged and swallowed — the platform state is authoritative and
// correct, and the stale store row will be corrected on the next update.
func (c *Controller) SetPresence(ctx context.Context, acct *model.Account, presence model.Presence) error {
	if err := c.platform.SetPresence(ctx, acct, presence); err != nil {
		return err
	}

	if err := c.store.UpdatePresence(ctx, acct.Channel, acct.ShopID, acct.AccountUserID, presence); err != nil {
		c.logger.Warn("presence updated on platform but failed to persist",
			"account", acct.Key(), "presence", presence, "error", err)
		return nil
	}

	acct.Presence = presence
	return nil
}
