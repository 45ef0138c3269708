// Package presence updates an account's presence on the platform and then
// persists it, degrading a post-update storage failure to a logged warning.
package presence
