// ABOUTME: Store is the persistence interface for accounts, shops, conversations, and keywords.
// ABOUTME: Implementations must be safe for concurrent use by multiple goroutines.

package store

import (
	"context"
	"errors"

	"github.com/csgw/gateway/internal/model"
)

// Sentinel errors returned by Store implementations.
var (
	ErrNotFound      = errors.New("not found")
	ErrDuplicate     = errors.New("already exists")
)

// Store persists the gateway's account, shop, conversation, and keyword state.
type Store interface {
	// AddAccount inserts a new account. Returns ErrDuplicate if one with the
	// same Key() already exists.
	AddAccount(ctx context.Context, acct *model.Account) error

	// GetAccount retrieves an account by channel, shop id, and account user id.
	// Returns ErrNotFound if no such account exists.
	GetAccount(ctx context.Context, channel, shopID, accountUserID string) (*model.Account, error)

	// ListAccounts returns every account, optionally filtered to one channel
	// when channel is non-empty.
	ListAccounts(ctx context.Context, channel string) ([]*model.Account, error)

	// UpdateCredentials overwrites the stored credential bundle for an account.
	// Returns ErrNotFound if the account doesn't exist.
	UpdateCredentials(ctx context.Context, channel, shopID, accountUserID, credentials string) error

	// UpdatePresence overwrites the stored presence state for an account.
	// Returns ErrNotFound if the account doesn't exist.
	UpdatePresence(ctx context.Context, channel, shopID, accountUserID string, presence model.Presence) error

	// UpdateProfile overwrites the username/password/profile_dir fields used
	// to drive the login provider. Returns ErrNotFound if the account doesn't exist.
	UpdateProfile(ctx context.Context, channel, shopID, accountUserID, username, password, profileDir string) error

	// DeleteAccount removes an account. Returns ErrNotFound if it doesn't exist.
	DeleteAccount(ctx context.Context, channel, shopID, accountUserID string) error

	// AddShop inserts a new shop. Returns ErrDuplicate if channel+shop_id
	// already exists.
	AddShop(ctx context.Context, shop *model.Shop) error

	// GetShop retrieves a shop by channel and shop id. Returns ErrNotFound
	// if no such shop exists.
	GetShop(ctx context.Context, channel, shopID string) (*model.Shop, error)

	// ListShops returns every known shop.
	ListShops(ctx context.Context) ([]*model.Shop, error)

	// GetConversation retrieves the persisted conversation id for a user_key.
	// Returns ErrNotFound if no conversation has been started yet.
	GetConversation(ctx context.Context, userKey string) (*model.Conversation, error)

	// SaveConversation creates or overwrites the conversation id for a user_key.
	SaveConversation(ctx context.Context, conv *model.Conversation) error

	// ListKeywords returns the keyword trigger list for a shop.
	ListKeywords(ctx context.Context, channel, shopID string) ([]model.Keyword, error)

	// AddKeyword appends a keyword trigger for a shop.
	AddKeyword(ctx context.Context, channel, shopID, keyword string) error

	// DeleteKeyword removes a keyword trigger by id. Returns ErrNotFound if
	// it doesn't exist.
	DeleteKeyword(ctx context.Context, id int64) error

	// Close releases any underlying resources.
	Close() error
}
