// ABOUTME: Tests for the agent adapter's conversation persistence and
// ABOUTME: per-kind prompt normalization.

package agentbot

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csgw/gateway/internal/model"
	"github.com/csgw/gateway/internal/store"
)

type fakeClient struct {
	createCalls int
	createID    string
	createErr   error
	replyErr    error
	lastPrompt  string
}

func (f *fakeClient) CreateConversation(ctx context.Context, userKey string) (string, error) {
	f.createCalls++
	if f.createErr != nil {
		return "", f.createErr
	}
	return f.createID, nil
}

func (f *fakeClient) SendAndPoll(ctx context.Context, conversationID, userID, prompt string) (string, error) {
	f.lastPrompt = prompt
	if f.replyErr != nil {
		return "", f.replyErr
	}
	return "reply to: " + prompt, nil
}

func testAccount() *model.Account {
	return &model.Account{Channel: "pdd", ShopID: "s1", AccountUserID: "a1"}
}

func TestAdapter_CreatesConversationOnFirstContact(t *testing.T) {
	client := &fakeClient{createID: "conv-1"}
	st := store.NewMockStore()
	a := New(client, st, nil)

	event := &model.Event{Kind: model.KindText, FromUID: "u1", Content: model.TextContent{Text: "hi"}}
	reply, err := a.Reply(t.Context(), testAccount(), event)
	require.NoError(t, err)
	assert.Equal(t, "reply to: hi", reply)
	assert.Equal(t, 1, client.createCalls)

	conv, err := st.GetConversation(t.Context(), model.ConversationKey("s1", "u1"))
	require.NoError(t, err)
	assert.Equal(t, "conv-1", conv.ConversationID)
}

func TestAdapter_ReusesPersistedConversation(t *testing.T) {
	client := &fakeClient{createID: "conv-1"}
	st := store.NewMockStore()
	a := New(client, st, nil)

	event := &model.Event{Kind: model.KindText, FromUID: "u1", Content: model.TextContent{Text: "hi"}}
	_, err := a.Reply(t.Context(), testAccount(), event)
	require.NoError(t, err)
	_, err = a.Reply(t.Context(), testAccount(), event)
	require.NoError(t, err)

	assert.Equal(t, 1, client.createCalls)
}

func TestAdapter_CreateConversationFailureYieldsSentinelReply(t *testing.T) {
	client := &fakeClient{createErr: errors.New("agent unavailable")}
	st := store.NewMockStore()
	a := New(client, st, nil)

	reply, err := a.Reply(t.Context(), testAccount(), &model.Event{Kind: model.KindText, FromUID: "u1", Content: model.TextContent{Text: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, processingFailedReply, reply)
}

func TestAdapter_SendAndPollFailureYieldsSentinelReply(t *testing.T) {
	client := &fakeClient{createID: "conv-1", replyErr: errors.New("agent timeout")}
	st := store.NewMockStore()
	a := New(client, st, nil)

	reply, err := a.Reply(t.Context(), testAccount(), &model.Event{Kind: model.KindText, FromUID: "u1", Content: model.TextContent{Text: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, processingFailedReply, reply)
}

func TestNormalizePrompt_PerKind(t *testing.T) {
	cases := []struct {
		name  string
		event *model.Event
		want  string
	}{
		{"text", &model.Event{Kind: model.KindText, Content: model.TextContent{Text: "hello"}}, "hello"},
		{"emotion", &model.Event{Kind: model.KindEmotion, Content: model.EmotionContent{Description: "微笑"}}, "表情: 微笑"},
		{"image", &model.Event{Kind: model.KindImage, Content: model.ImageContent{URL: "https://example.com/a.png"}}, "图片: https://example.com/a.png"},
		{"video", &model.Event{Kind: model.KindVideo, Content: model.VideoContent{URL: "https://example.com/a.mp4"}}, "视频: https://example.com/a.mp4"},
		{"goods_inquiry", &model.Event{Kind: model.KindGoodsInquiry, Content: model.GoodsInquiryContent{Name: "Widget", Price: "9.99"}}, "商品：Widget,商品价格：9.99,商品规格："},
		{"goods_spec", &model.Event{Kind: model.KindGoodsSpec, Content: model.GoodsSpecContent{Name: "Widget", Price: "9.99", Spec: "红色"}}, "商品：Widget,商品价格：9.99,商品规格：红色"},
		{"order_info", &model.Event{Kind: model.KindOrderInfo, Content: model.OrderInfoContent{OrderID: "o1", Name: "Widget"}}, "订单：o1，商品：Widget"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, normalizePrompt(tc.event))
		})
	}
}
