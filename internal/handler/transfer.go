// ABOUTME: Handler that routes a conversation to a human agent when the
// ABOUTME: customer's text contains an escalation keyword.

package handler

import (
	"context"
	"log/slog"
	"strings"

	"github.com/csgw/gateway/internal/model"
)

// DefaultTransferKeywords mirrors the original's escalation trigger list.
var DefaultTransferKeywords = []string{
	"转人工", "人工客服", "投诉",
}

// noAgentAvailableText is sent when AssignCsList returns no seat besides
// the current one.
const noAgentAvailableText = "暂无可用客服，请稍后再试。"

// TransferToHumanHandler accepts text messages containing an escalation
// keyword and hands the conversation off to a human seat: it fetches the
// assignable CS roster, excludes the current seat, and moves the
// conversation to the first remaining candidate, grounded on the
// original's CustomerServiceTransferHandler.
type TransferToHumanHandler struct {
	Keywords    []string
	Transferrer Transferrer
	Sender      Sender
	Logger      *slog.Logger
}

func (h *TransferToHumanHandler) keywords() []string {
	if len(h.Keywords) > 0 {
		return h.Keywords
	}
	return DefaultTransferKeywords
}

func (h *TransferToHumanHandler) Accepts(event *model.Event) bool {
	if event.Kind != model.KindText {
		return false
	}
	text, ok := event.Content.(model.TextContent)
	if !ok {
		return false
	}
	lower := strings.ToLower(text.Text)
	for _, kw := range h.keywords() {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func (h *TransferToHumanHandler) Handle(ctx context.Context, event *model.Event, meta Meta) error {
	seats, err := h.Transferrer.AssignCsList(ctx, meta.Account)
	if err != nil {
		return err
	}

	var target string
	for _, seat := range seats {
		if seat != meta.Account.AccountUserID {
			target = seat
			break
		}
	}

	if target == "" {
		if h.Logger != nil {
			h.Logger.Warn("no assignable cs seat for transfer", "account", meta.Account.Key(), "to_uid", event.FromUID)
		}
		return h.Sender.SendMessage(ctx, meta.Account, event.FromUID, noAgentAvailableText)
	}

	if err := h.Transferrer.TransferConversation(ctx, meta.Account, event.FromUID, target); err != nil {
		return err
	}
	if h.Logger != nil {
		h.Logger.Info("transferred conversation to human", "account", meta.Account.Key(), "to_uid", event.FromUID, "cs_uid", target)
	}
	return nil
}

var _ Handler = (*TransferToHumanHandler)(nil)
