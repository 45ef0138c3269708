// ABOUTME: HTTP JSON implementation of Client against a conversational
// ABOUTME: agent's "create conversation, then send+poll" contract.

package agentbot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPClient talks to the external agent platform's HTTP API: a
// conversation-creation endpoint and a send-and-poll endpoint, mirroring
// CozeBot.reply's conversations.messages.create + chat.create_and_poll
// calls but generalized to any HTTP JSON backend via Endpoint/Token/BotID.
type HTTPClient struct {
	httpClient *http.Client
	endpoint   string
	token      string
	botID      string
}

// NewHTTPClient constructs an HTTPClient for the agent at endpoint,
// authenticating with token and addressing bot botID.
func NewHTTPClient(endpoint, token, botID string) *HTTPClient {
	return &HTTPClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		endpoint:   endpoint,
		token:      token,
		botID:      botID,
	}
}

type createConversationRequest struct {
	BotID  string `json:"bot_id"`
	UserID string `json:"user_id"`
}

type createConversationResponse struct {
	ConversationID string `json:"conversation_id"`
}

// CreateConversation starts a new conversation for userKey with the
// configured bot.
func (c *HTTPClient) CreateConversation(ctx context.Context, userKey string) (string, error) {
	var resp createConversationResponse
	if err := c.post(ctx, "/v1/conversations", createConversationRequest{BotID: c.botID, UserID: userKey}, &resp); err != nil {
		return "", err
	}
	return resp.ConversationID, nil
}

// contentPart is the agent's content-part wire format: a normalized prompt
// is always sent as a single-element array of these.
type contentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type chatRequest struct {
	ConversationID  string        `json:"conversation_id"`
	BotID           string        `json:"bot_id"`
	UserID          string        `json:"user_id"`
	Content         []contentPart `json:"content"`
	AutoSaveHistory bool          `json:"auto_save_history"`
}

type chatMessage struct {
	Type        string `json:"type"`
	ContentType string `json:"content_type"`
	Content     string `json:"content"`
}

type chatResponse struct {
	Messages []chatMessage `json:"messages"`
}

// noReplyText is returned when the agent's message list contains no
// type==answer, content_type==text entry.
const noReplyText = "(no reply)"

// SendAndPoll posts prompt as a user message, wrapped as the content-part
// array the agent expects, and synchronously polls for completion. It
// scans the returned message list for the first answer/text message and
// returns its content; if none is present it returns noReplyText rather
// than an empty string.
func (c *HTTPClient) SendAndPoll(ctx context.Context, conversationID, userID, prompt string) (string, error) {
	var resp chatResponse
	req := chatRequest{
		ConversationID:  conversationID,
		BotID:           c.botID,
		UserID:          userID,
		Content:         []contentPart{{Type: "text", Text: prompt}},
		AutoSaveHistory: true,
	}
	if err := c.post(ctx, "/v1/chat", req, &resp); err != nil {
		return "", err
	}
	for _, msg := range resp.Messages {
		if msg.Type == "answer" && msg.ContentType == "text" {
			return msg.Content, nil
		}
	}
	return noReplyText, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, body, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding agent request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("building agent request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling agent: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("agent returned status %d: %s", resp.StatusCode, string(data))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding agent response: %w", err)
	}
	return nil
}

var _ Client = (*HTTPClient)(nil)
