// ABOUTME: Handler that triggers a fixed acknowledgement reply when the
// ABOUTME: customer's text contains one of a shop's configured keywords.

package handler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/csgw/gateway/internal/model"
)

// KeywordTriggerHandler accepts text messages that contain any of Keywords
// and replies acknowledging the match. csgw-server loads Keywords from
// store.Store.ListKeywords for every shop into one flat list, so a keyword
// stored for any shop matches events of every account; the generic keyword->action
// rule the original implements (message_handler.py's KeywordTriggerHandler)
// is reduced here to a single fixed-reply action, since per-keyword
// callback functions have no Go-side registry in this gateway.
type KeywordTriggerHandler struct {
	Keywords []string
	Sender   Sender
	Logger   *slog.Logger
}

func (h *KeywordTriggerHandler) Accepts(event *model.Event) bool {
	if event.Kind != model.KindText || len(h.Keywords) == 0 {
		return false
	}
	text, ok := event.Content.(model.TextContent)
	if !ok {
		return false
	}
	_, matched := h.match(text.Text)
	return matched
}

func (h *KeywordTriggerHandler) match(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, kw := range h.Keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return kw, true
		}
	}
	return "", false
}

func (h *KeywordTriggerHandler) Handle(ctx context.Context, event *model.Event, meta Meta) error {
	text, _ := event.Content.(model.TextContent)
	kw, _ := h.match(text.Text)

	reply := fmt.Sprintf("Thanks for mentioning %q. We'll look into it right away.", kw)
	if err := h.Sender.SendMessage(ctx, meta.Account, event.FromUID, reply); err != nil {
		return err
	}
	if h.Logger != nil {
		h.Logger.Info("keyword trigger matched", "keyword", kw, "account", meta.Account.Key())
	}
	return nil
}

var _ Handler = (*KeywordTriggerHandler)(nil)
