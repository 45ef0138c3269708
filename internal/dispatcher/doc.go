// Package dispatcher serializes per-user event handling: one goroutine and
// bounded inbox per user_key, idling out after a configurable quiet period.
package dispatcher
