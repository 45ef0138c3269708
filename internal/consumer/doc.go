// Package consumer drains one account's event queue, applying the routing
// policy (immediate/queued/dropped) and fanning queued events out to
// per-user dispatchers, bounded by a concurrency semaphore and reaped
// periodically once idle.
package consumer
