// Package platform implements the HTTP client for the e-commerce platform's
// chat API: sending replies, setting presence, and transparently recovering
// from session expiry.
//
// Retry/backoff is delegated to internal/retry. Credential refresh on
// session expiry is coalesced per account with golang.org/x/sync/singleflight
// so concurrent callers for the same account share one refresh attempt.
package platform
