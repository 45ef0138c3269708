// ABOUTME: HTTP client for the e-commerce platform's chat API, with retry/backoff
// ABOUTME: and singleflight-coalesced credential refresh on session expiry.

package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/csgw/gateway/internal/errs"
	"github.com/csgw/gateway/internal/model"
	"github.com/csgw/gateway/internal/retry"
	"github.com/csgw/gateway/internal/store"
)

// sessionExpiredCode is the platform's error_code for an expired session,
// grounded on base_request.py's _is_session_expired check (error_code=43001).
const sessionExpiredCode = 43001

// Credentials is the opaque cookie/session bundle issued by the login
// provider and stored verbatim in the credential store.
type Credentials string

// LoginProvider is the external collaborator that knows how to authenticate
// against the platform (browser automation or similar) and refresh an
// existing session. It is out of scope per spec.md's non-goals; production
// deployments supply a real implementation.
type LoginProvider interface {
	Login(ctx context.Context, username, password string) (Credentials, error)
	Refresh(ctx context.Context, profileDir string) (Credentials, error)
}

// Client wraps net/http.Client with the platform's retry/backoff policy and
// coalesced credential refresh.
type Client struct {
	httpClient *http.Client
	baseURL    string
	store      store.Store
	login      LoginProvider
	retryCfg   retry.Policy
	logger     *slog.Logger

	refreshGroup singleflight.Group
}

// New constructs a Client. baseURL is the platform's chat API root.
func New(baseURL string, st store.Store, login LoginProvider, retryPolicy retry.Policy) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    baseURL,
		store:      st,
		login:      login,
		retryCfg:   retryPolicy,
		logger:     slog.Default().With("component", "platform"),
	}
}

type apiEnvelope struct {
	ErrorCode int             `json:"error_code"`
	ErrorMsg  string          `json:"error_msg"`
	Data      json.RawMessage `json:"data"`
}

// SendMessage posts a text reply to from_uid on behalf of the given account.
func (c *Client) SendMessage(ctx context.Context, acct *model.Account, toUID, text string) error {
	return c.sendChatMessage(ctx, acct, toUID, text, 0)
}

// SetPresence updates the account's platform-visible presence state.
func (c *Client) SetPresence(ctx context.Context, acct *model.Account, presence model.Presence) error {
	body := map[string]int{"status": presence.PlatformCode()}
	_, err := c.doWithRefresh(ctx, acct, "POST", "/api/account/status", body)
	return err
}

// fetchChatTokenResponse is the decoded data payload of /chats/getToken.
type fetchChatTokenResponse struct {
	Token string `json:"token"`
}

// FetchChatToken exchanges the account's cookie-jar session for the
// short-lived access_token the WebSocket transport's query string expects,
// grounded on §6.2's `POST /chats/getToken`.
func (c *Client) FetchChatToken(ctx context.Context, acct *model.Account) (string, error) {
	data, err := c.doWithRefresh(ctx, acct, "POST", "/chats/getToken", map[string]string{"version": "3"})
	if err != nil {
		return "", err
	}
	var resp fetchChatTokenResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", &errs.DecodeError{Cause: err}
	}
	return resp.Token, nil
}

type chatParty struct {
	Role string `json:"role"`
	UID  string `json:"uid,omitempty"`
}

type chatMessage struct {
	To          chatParty `json:"to"`
	From        chatParty `json:"from"`
	Content     string    `json:"content"`
	Type        int       `json:"type"`
	MsgID       *string   `json:"msg_id"`
	IsAut       int       `json:"is_aut"`
	ManualReply int       `json:"manual_reply"`
}

type sendMessageBody struct {
	Data   sendMessageData `json:"data"`
	Client string          `json:"client"`
}

type sendMessageData struct {
	Cmd       string      `json:"cmd"`
	RequestID int64       `json:"request_id"`
	Message   chatMessage `json:"message"`
}

// sendChatMessage posts one outbound message of msgType (0=text, 1=image)
// to toUID via /plateau/chat/send_message, per §6.2.
func (c *Client) sendChatMessage(ctx context.Context, acct *model.Account, toUID, content string, msgType int) error {
	body := sendMessageBody{
		Data: sendMessageData{
			Cmd:       "send_message",
			RequestID: time.Now().UnixMilli(),
			Message: chatMessage{
				To:          chatParty{Role: "user", UID: toUID},
				From:        chatParty{Role: "mall_cs"},
				Content:     content,
				Type:        msgType,
				IsAut:       0,
				ManualReply: 1,
			},
		},
		Client: "WEB",
	}
	_, err := c.doWithRefresh(ctx, acct, "POST", "/plateau/chat/send_message", body)
	return err
}

// SendImage posts an image message to to_uid, grounded on §6.2's
// `POST /plateau/chat/send_message` with type=1.
func (c *Client) SendImage(ctx context.Context, acct *model.Account, toUID, url string) error {
	return c.sendChatMessage(ctx, acct, toUID, url, 1)
}

// SendGoodsCard posts a goods-card message to to_uid, grounded on §6.2's
// `POST /plateau/message/send/mallGoodsCard`.
func (c *Client) SendGoodsCard(ctx context.Context, acct *model.Account, toUID, goodsID string) error {
	body := map[string]any{"uid": toUID, "goods_id": goodsID, "biz_type": 3}
	_, err := c.doWithRefresh(ctx, acct, "POST", "/plateau/message/send/mallGoodsCard", body)
	return err
}

type csListResponse struct {
	List []struct {
		UID string `json:"uid"`
	} `json:"list"`
}

// AssignCsList returns the uids of customer-service seats assignable to
// receive a handed-off conversation, grounded on §6.2's
// `POST /latitude/assign/getAssignCsList`.
func (c *Client) AssignCsList(ctx context.Context, acct *model.Account) ([]string, error) {
	data, err := c.doWithRefresh(ctx, acct, "POST", "/latitude/assign/getAssignCsList", map[string]bool{"wechatCheck": true})
	if err != nil {
		return nil, err
	}
	var resp csListResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, &errs.DecodeError{Cause: err}
	}
	uids := make([]string, 0, len(resp.List))
	for _, seat := range resp.List {
		uids = append(uids, seat.UID)
	}
	return uids, nil
}

type moveConversationBody struct {
	Data   moveConversationData `json:"data"`
	Client string               `json:"client"`
}

type moveConversationData struct {
	Cmd          string               `json:"cmd"`
	RequestID    int64                `json:"request_id"`
	Conversation moveConversationSeat `json:"conversation"`
}

type moveConversationSeat struct {
	CsID   string `json:"csid"`
	UID    string `json:"uid"`
	NeedWx bool   `json:"need_wx"`
	Remark string `json:"remark"`
}

// TransferConversation hands the conversation with toUID off to csUID,
// grounded on §6.2's `POST /plateau/chat/move_conversation`.
func (c *Client) TransferConversation(ctx context.Context, acct *model.Account, toUID, csUID string) error {
	body := moveConversationBody{
		Data: moveConversationData{
			Cmd:       "move_conversation",
			RequestID: time.Now().UnixMilli(),
			Conversation: moveConversationSeat{
				CsID:   csUID,
				UID:    toUID,
				NeedWx: false,
			},
		},
		Client: "WEB",
	}
	_, err := c.doWithRefresh(ctx, acct, "POST", "/plateau/chat/move_conversation", body)
	return err
}

// UserInfo is the decoded result of FetchUserInfo.
type UserInfo struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	MallID   string `json:"mall_id"`
}

// FetchUserInfo looks up the operator identity behind acct's credentials,
// grounded on §6.2's `POST /janus/api/new/userinfo`.
func (c *Client) FetchUserInfo(ctx context.Context, acct *model.Account) (*UserInfo, error) {
	data, err := c.doWithRefresh(ctx, acct, "POST", "/janus/api/new/userinfo", nil)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Result UserInfo `json:"result"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, &errs.DecodeError{Cause: err}
	}
	return &resp.Result, nil
}

// ShopInfo is the decoded result of FetchShopInfo.
type ShopInfo struct {
	MallID   string `json:"mallId"`
	MallName string `json:"mallName"`
	MallLogo string `json:"mallLogo"`
}

// FetchShopInfo looks up the merchant identity behind acct's credentials,
// grounded on §6.2's `POST /earth/api/merchant/queryMerchantInfoByMallId`.
func (c *Client) FetchShopInfo(ctx context.Context, acct *model.Account) (*ShopInfo, error) {
	data, err := c.doWithRefresh(ctx, acct, "POST", "/earth/api/merchant/queryMerchantInfoByMallId", map[string]any{})
	if err != nil {
		return nil, err
	}
	var resp struct {
		Result ShopInfo `json:"result"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, &errs.DecodeError{Cause: err}
	}
	return &resp.Result, nil
}

// doWithRefresh performs the request, retrying per policy, and on a
// SessionExpiredError triggers a singleflight-coalesced credential refresh
// before retrying once more with the new credentials.
func (c *Client) doWithRefresh(ctx context.Context, acct *model.Account, method, path string, body any) (json.RawMessage, error) {
	data, err := c.attempt(ctx, acct, method, path, body)
	if !isSessionExpired(err) {
		return data, err
	}

	if refreshErr := c.refreshCredentials(ctx, acct); refreshErr != nil {
		return nil, &errs.SessionExpiredError{Cause: refreshErr}
	}

	return c.attempt(ctx, acct, method, path, body)
}

func isSessionExpired(err error) bool {
	_, ok := err.(*errs.SessionExpiredError)
	return ok
}

// refreshCredentials coalesces concurrent refresh attempts for the same
// account into a single in-flight call, the Go-idiomatic replacement for
// the original's ad-hoc asyncio-bridging-into-sync dance.
func (c *Client) refreshCredentials(ctx context.Context, acct *model.Account) error {
	_, err, _ := c.refreshGroup.Do(acct.Key(), func() (any, error) {
		if c.login == nil {
			return nil, fmt.Errorf("no login provider configured")
		}
		creds, err := c.login.Refresh(ctx, acct.ProfileDir)
		if err != nil {
			return nil, fmt.Errorf("refreshing credentials: %w", err)
		}
		if err := c.store.UpdateCredentials(ctx, acct.Channel, acct.ShopID, acct.AccountUserID, string(creds)); err != nil {
			return nil, fmt.Errorf("persisting refreshed credentials: %w", err)
		}
		acct.Credentials = string(creds)
		c.logger.Info("refreshed session credentials", "account", acct.Key())
		return nil, nil
	})
	return err
}

// attempt performs the HTTP call with retry/backoff per c.retryCfg,
// classifying transport and 5xx/rate-limit errors as retryable.
func (c *Client) attempt(ctx context.Context, acct *model.Account, method, path string, body any) (json.RawMessage, error) {
	var result json.RawMessage
	err := retry.Do(ctx, c.retryCfg, classifyRetryable, func(attemptN int) error {
		data, callErr := c.call(ctx, acct, method, path, body)
		if callErr != nil {
			return callErr
		}
		result = data
		return nil
	})
	return result, err
}

func classifyRetryable(err error) bool {
	switch err.(type) {
	case *errs.TransportError, *errs.RateLimitedError:
		return true
	default:
		return false
	}
}

func (c *Client) call(ctx context.Context, acct *model.Account, method, path string, body any) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko)")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cookie", acct.Credentials)

	requestID := uuid.NewString()
	req.Header.Set("X-Request-Id", requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &errs.TransportError{Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug("platform request", "account", acct.Key(), "method", method, "path", path, "request_id", requestID, "status", resp.StatusCode)

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &errs.RateLimitedError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	}
	if resp.StatusCode >= 500 {
		return nil, &errs.TransportError{Cause: fmt.Errorf("platform returned status %d", resp.StatusCode)}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &errs.TransportError{Cause: err}
	}

	var env apiEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &errs.DecodeError{Cause: err}
	}

	if env.ErrorCode == sessionExpiredCode {
		return nil, &errs.SessionExpiredError{}
	}
	if env.ErrorCode != 0 {
		return nil, &errs.RemoteError{Code: env.ErrorCode, Msg: env.ErrorMsg}
	}

	return env.Data, nil
}

func parseRetryAfter(header string) int {
	if header == "" {
		return 0
	}
	var seconds int
	_, _ = fmt.Sscanf(header, "%d", &seconds)
	return seconds
}
