// Package store persists the gateway's account, shop, conversation, and
// keyword state behind the Store interface.
//
// SQLiteStore is the production implementation, backed by modernc.org/sqlite
// (pure Go, no cgo) with WAL mode and foreign keys enabled. MockStore is an
// in-memory implementation for unit tests of components that depend on Store.
package store
