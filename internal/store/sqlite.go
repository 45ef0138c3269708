// ABOUTME: SQLite implementation of Store using modernc.org/sqlite (pure Go, no cgo).
// ABOUTME: Schema is created on open; WAL mode and foreign keys are enabled up front.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/csgw/gateway/internal/model"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS shops (
	channel TEXT NOT NULL,
	shop_id TEXT NOT NULL,
	name TEXT NOT NULL,
	logo TEXT,
	description TEXT,
	PRIMARY KEY (channel, shop_id)
);
CREATE TABLE IF NOT EXISTS accounts (
	channel TEXT NOT NULL,
	shop_id TEXT NOT NULL,
	account_user_id TEXT NOT NULL,
	username TEXT,
	password TEXT,
	profile_dir TEXT,
	credentials TEXT NOT NULL DEFAULT '',
	presence INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (channel, shop_id, account_user_id),
	FOREIGN KEY (channel, shop_id) REFERENCES shops(channel, shop_id)
);
CREATE TABLE IF NOT EXISTS conversations (
	user_key TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS keywords (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	channel TEXT NOT NULL,
	shop_id TEXT NOT NULL,
	keyword TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_keywords_shop ON keywords(channel, shop_id);
`

// NewSQLiteStore opens (creating if needed) a SQLite database at path and
// ensures the schema exists.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db, logger: logger}
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("sqlite store initialized", "path", path)
	return s, nil
}

func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "UNIQUE constraint failed")
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing sqlite store")
	return s.db.Close()
}

func (s *SQLiteStore) AddAccount(ctx context.Context, acct *model.Account) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (channel, shop_id, account_user_id, username, password, profile_dir, credentials, presence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, acct.Channel, acct.ShopID, acct.AccountUserID, acct.Username, acct.Password, acct.ProfileDir, acct.Credentials, int(acct.Presence))
	if err != nil {
		if isConstraintViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("inserting account: %w", err)
	}
	s.logger.Debug("added account", "key", acct.Key())
	return nil
}

func (s *SQLiteStore) GetAccount(ctx context.Context, channel, shopID, accountUserID string) (*model.Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT channel, shop_id, account_user_id, username, password, profile_dir, credentials, presence
		FROM accounts WHERE channel = ? AND shop_id = ? AND account_user_id = ?
	`, channel, shopID, accountUserID)
	return scanAccount(row)
}

func scanAccount(row *sql.Row) (*model.Account, error) {
	var a model.Account
	var presence int
	err := row.Scan(&a.Channel, &a.ShopID, &a.AccountUserID, &a.Username, &a.Password, &a.ProfileDir, &a.Credentials, &presence)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying account: %w", err)
	}
	a.Presence = model.Presence(presence)
	return &a, nil
}

func (s *SQLiteStore) ListAccounts(ctx context.Context, channel string) ([]*model.Account, error) {
	var rows *sql.Rows
	var err error
	if channel == "" {
		rows, err = s.db.QueryContext(ctx, `
			SELECT channel, shop_id, account_user_id, username, password, profile_dir, credentials, presence
			FROM accounts ORDER BY channel, shop_id, account_user_id
		`)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT channel, shop_id, account_user_id, username, password, profile_dir, credentials, presence
			FROM accounts WHERE channel = ? ORDER BY shop_id, account_user_id
		`, channel)
	}
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var accts []*model.Account
	for rows.Next() {
		var a model.Account
		var presence int
		if err := rows.Scan(&a.Channel, &a.ShopID, &a.AccountUserID, &a.Username, &a.Password, &a.ProfileDir, &a.Credentials, &presence); err != nil {
			return nil, fmt.Errorf("scanning account row: %w", err)
		}
		a.Presence = model.Presence(presence)
		accts = append(accts, &a)
	}
	return accts, rows.Err()
}

func (s *SQLiteStore) UpdateCredentials(ctx context.Context, channel, shopID, accountUserID, credentials string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE accounts SET credentials = ? WHERE channel = ? AND shop_id = ? AND account_user_id = ?
	`, credentials, channel, shopID, accountUserID)
	if err != nil {
		return fmt.Errorf("updating credentials: %w", err)
	}
	return requireRowsAffected(result)
}

func (s *SQLiteStore) UpdatePresence(ctx context.Context, channel, shopID, accountUserID string, presence model.Presence) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE accounts SET presence = ? WHERE channel = ? AND shop_id = ? AND account_user_id = ?
	`, int(presence), channel, shopID, accountUserID)
	if err != nil {
		return fmt.Errorf("updating presence: %w", err)
	}
	return requireRowsAffected(result)
}

func (s *SQLiteStore) UpdateProfile(ctx context.Context, channel, shopID, accountUserID, username, password, profileDir string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE accounts SET username = ?, password = ?, profile_dir = ?
		WHERE channel = ? AND shop_id = ? AND account_user_id = ?
	`, username, password, profileDir, channel, shopID, accountUserID)
	if err != nil {
		return fmt.Errorf("updating profile: %w", err)
	}
	return requireRowsAffected(result)
}

func (s *SQLiteStore) DeleteAccount(ctx context.Context, channel, shopID, accountUserID string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM accounts WHERE channel = ? AND shop_id = ? AND account_user_id = ?
	`, channel, shopID, accountUserID)
	if err != nil {
		return fmt.Errorf("deleting account: %w", err)
	}
	return requireRowsAffected(result)
}

func requireRowsAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) AddShop(ctx context.Context, shop *model.Shop) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO shops (channel, shop_id, name, logo, description) VALUES (?, ?, ?, ?, ?)
	`, shop.Channel, shop.ShopID, shop.Name, shop.Logo, shop.Description)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("inserting shop: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetShop(ctx context.Context, channel, shopID string) (*model.Shop, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT channel, shop_id, name, logo, description FROM shops WHERE channel = ? AND shop_id = ?
	`, channel, shopID)
	var sh model.Shop
	err := row.Scan(&sh.Channel, &sh.ShopID, &sh.Name, &sh.Logo, &sh.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying shop: %w", err)
	}
	return &sh, nil
}

func (s *SQLiteStore) ListShops(ctx context.Context) ([]*model.Shop, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT channel, shop_id, name, logo, description FROM shops ORDER BY channel, shop_id`)
	if err != nil {
		return nil, fmt.Errorf("listing shops: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var shops []*model.Shop
	for rows.Next() {
		var sh model.Shop
		if err := rows.Scan(&sh.Channel, &sh.ShopID, &sh.Name, &sh.Logo, &sh.Description); err != nil {
			return nil, fmt.Errorf("scanning shop row: %w", err)
		}
		shops = append(shops, &sh)
	}
	return shops, rows.Err()
}

func (s *SQLiteStore) GetConversation(ctx context.Context, userKey string) (*model.Conversation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_key, conversation_id, created_at FROM conversations WHERE user_key = ?
	`, userKey)
	var c model.Conversation
	var createdAt string
	err := row.Scan(&c.UserKey, &c.ConversationID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying conversation: %w", err)
	}
	c.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return &c, nil
}

func (s *SQLiteStore) SaveConversation(ctx context.Context, conv *model.Conversation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (user_key, conversation_id, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_key) DO UPDATE SET conversation_id = excluded.conversation_id
	`, conv.UserKey, conv.ConversationID, conv.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("saving conversation: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListKeywords(ctx context.Context, channel, shopID string) ([]model.Keyword, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, keyword FROM keywords WHERE channel = ? AND shop_id = ? ORDER BY id
	`, channel, shopID)
	if err != nil {
		return nil, fmt.Errorf("listing keywords: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var keywords []model.Keyword
	for rows.Next() {
		var k model.Keyword
		if err := rows.Scan(&k.ID, &k.Keyword); err != nil {
			return nil, fmt.Errorf("scanning keyword row: %w", err)
		}
		keywords = append(keywords, k)
	}
	return keywords, rows.Err()
}

func (s *SQLiteStore) AddKeyword(ctx context.Context, channel, shopID, keyword string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO keywords (channel, shop_id, keyword) VALUES (?, ?, ?)
	`, channel, shopID, keyword)
	if err != nil {
		return fmt.Errorf("inserting keyword: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteKeyword(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM keywords WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting keyword: %w", err)
	}
	return requireRowsAffected(result)
}

var _ Store = (*SQLiteStore)(nil)
