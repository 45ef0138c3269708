// ABOUTME: Handler interface and chain: each event is offered to handlers in
// ABOUTME: order, and the first one that accepts it handles it exclusively.

package handler

import (
	"context"
	"errors"

	"github.com/csgw/gateway/internal/model"
)

// ErrNoHandler is returned by Chain.Handle when no handler in the chain
// accepts the event.
var ErrNoHandler = errors.New("handler: no handler accepted event")

// Meta carries per-dispatch context a handler needs beyond the event itself.
type Meta struct {
	Account *model.Account
}

// Handler processes events it accepts. Accepts must be cheap and
// side-effect free; Handle performs the actual work.
type Handler interface {
	Accepts(event *model.Event) bool
	Handle(ctx context.Context, event *model.Event, meta Meta) error
}

// Chain is an ordered list of handlers. Handle offers the event to each in
// turn and stops at the first one that accepts it.
type Chain []Handler

// Handle dispatches event to the first accepting handler. Returns
// ErrNoHandler if none accept.
func (c Chain) Handle(ctx context.Context, event *model.Event, meta Meta) error {
	for _, h := range c {
		if h.Accepts(event) {
			return h.Handle(ctx, event, meta)
		}
	}
	return ErrNoHandler
}
