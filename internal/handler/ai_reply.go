// ABOUTME: Catch-all handler that forwards conversational content to the AI
// ABOUTME: agent adapter and sends back whatever reply it produces.

package handler

import (
	"context"
	"log/slog"

	"github.com/csgw/gateway/internal/model"
)

// defaultSupportedKinds mirrors AIAutoReplyHandler's auto_reply_types.
var defaultSupportedKinds = map[model.EventKind]bool{
	model.KindText:         true,
	model.KindGoodsInquiry: true,
	model.KindGoodsSpec:    true,
	model.KindOrderInfo:    true,
	model.KindImage:        true,
	model.KindVideo:        true,
	model.KindEmotion:      true,
}

// AIReplyHandler is the last resort in the chain: it accepts any queued
// conversational kind and asks the agent adapter for a reply.
type AIReplyHandler struct {
	Agent          Replier
	Sender         Sender
	SupportedKinds map[model.EventKind]bool
	Logger         *slog.Logger
}

func (h *AIReplyHandler) supported() map[model.EventKind]bool {
	if h.SupportedKinds != nil {
		return h.SupportedKinds
	}
	return defaultSupportedKinds
}

func (h *AIReplyHandler) Accepts(event *model.Event) bool {
	return h.supported()[event.Kind]
}

func (h *AIReplyHandler) Handle(ctx context.Context, event *model.Event, meta Meta) error {
	reply, err := h.Agent.Reply(ctx, meta.Account, event)
	if err != nil {
		return err
	}
	if err := h.Sender.SendMessage(ctx, meta.Account, event.FromUID, reply); err != nil {
		return err
	}
	if h.Logger != nil {
		h.Logger.Info("sent AI reply", "account", meta.Account.Key(), "to_uid", event.FromUID, "kind", event.Kind)
	}
	return nil
}

var _ Handler = (*AIReplyHandler)(nil)
