// ABOUTME: Adapter between decoded events and the external conversational AI
// ABOUTME: agent: normalizes event content into a prompt, keeps one
// ABOUTME: persisted conversation per user, and sends/polls for a reply.

package agentbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/csgw/gateway/internal/errs"
	"github.com/csgw/gateway/internal/model"
	"github.com/csgw/gateway/internal/store"
)

// Client is the external agent's wire contract: create a conversation, then
// send a message and poll for its answer. Satisfied by a real HTTP client
// against the agent platform's API (e.g. Coze's conversations/chat API).
type Client interface {
	CreateConversation(ctx context.Context, userKey string) (conversationID string, err error)
	SendAndPoll(ctx context.Context, conversationID, userID, prompt string) (reply string, err error)
}

// Adapter maps *model.Event to a normalized prompt, maintains a persisted
// conversation id per user, and asks Client for a reply. Unlike the
// original's in-process session cache (user_session.py's
// UserSessionManager), the conversation id is persisted through
// store.Store, since spec.md's Conversation lifecycle is defined as
// persisted rather than process-lifetime.
type Adapter struct {
	client Client
	store  store.Store
	logger *slog.Logger
}

// New constructs an Adapter.
func New(client Client, st store.Store, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{client: client, store: st, logger: logger.With("component", "agentbot")}
}

// processingFailedReply is the sentinel text Reply returns when the agent
// service is unreachable or fails, so the handler chain still produces a
// visible reply to the customer instead of silently dropping the message.
const processingFailedReply = "processing failed"

// Reply produces the agent's response to event, creating and persisting a
// conversation for the user on first contact. Agent-side failures
// (conversation_create_failed, agent_unreachable, agent_timeout) are logged
// and swallowed: Reply substitutes processingFailedReply rather than
// propagating the error, per spec.md §4.9.
func (a *Adapter) Reply(ctx context.Context, acct *model.Account, event *model.Event) (string, error) {
	userKey := model.ConversationKey(acct.ShopID, event.FromUID)

	conversationID, err := a.conversationFor(ctx, userKey)
	if err != nil {
		a.logger.Error("agent conversation unavailable", "user_key", userKey, "error", err)
		return processingFailedReply, nil
	}

	prompt := normalizePrompt(event)
	reply, err := a.client.SendAndPoll(ctx, conversationID, event.FromUID, prompt)
	if err != nil {
		a.logger.Error("agent send_and_poll failed", "user_key", userKey, "error", err)
		return processingFailedReply, nil
	}
	return reply, nil
}

func (a *Adapter) conversationFor(ctx context.Context, userKey string) (string, error) {
	conv, err := a.store.GetConversation(ctx, userKey)
	if err == nil {
		return conv.ConversationID, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return "", &errs.StorageError{Cause: err}
	}

	conversationID, err := a.client.CreateConversation(ctx, userKey)
	if err != nil {
		return "", &errs.AgentError{Reason: "create_conversation", Cause: err}
	}

	if err := a.store.SaveConversation(ctx, &model.Conversation{
		UserKey:        userKey,
		ConversationID: conversationID,
		CreatedAt:      time.Now(),
	}); err != nil {
		return "", &errs.StorageError{Cause: err}
	}

	a.logger.Info("created agent conversation", "user_key", userKey, "conversation_id", conversationID)
	return conversationID, nil
}

// normalizePrompt renders event content into a single text prompt the agent
// can consume, mirroring AIAutoReplyHandler's _preprocess_message per-kind
// cases and spec.md's normalized-prompt table.
func normalizePrompt(event *model.Event) string {
	switch c := event.Content.(type) {
	case model.TextContent:
		return c.Text
	case model.EmotionContent:
		return "表情: " + c.Description
	case model.ImageContent:
		return "图片: " + c.URL
	case model.VideoContent:
		return "视频: " + c.URL
	case model.GoodsInquiryContent:
		return fmt.Sprintf("商品：%s,商品价格：%s,商品规格：", c.Name, c.Price)
	case model.GoodsSpecContent:
		return fmt.Sprintf("商品：%s,商品价格：%s,商品规格：%s", c.Name, c.Price, c.Spec)
	case model.OrderInfoContent:
		return fmt.Sprintf("订单：%s，商品：%s", c.OrderID, c.Name)
	default:
		return fmt.Sprintf("unrecognized content for kind %s", event.Kind)
	}
}
