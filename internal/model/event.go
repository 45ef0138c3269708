// ABOUTME: Decoded inbound chat event types shared across the pipeline.
// ABOUTME: Event is the single typed variant produced by the decoder and consumed downstream.

package model

import "encoding/json"

// EventKind tags the variant carried in an Event's Content.
type EventKind string

const (
	KindText          EventKind = "text"
	KindImage         EventKind = "image"
	KindVideo         EventKind = "video"
	KindEmotion       EventKind = "emotion"
	KindGoodsInquiry  EventKind = "goods_inquiry"
	KindGoodsSpec     EventKind = "goods_spec"
	KindOrderInfo     EventKind = "order_info"
	KindGoodsCard     EventKind = "goods_card"
	KindWithdraw      EventKind = "withdraw"
	KindMallCs        EventKind = "mall_cs"
	KindMallSystemMsg EventKind = "mall_system_msg"
	KindSystemStatus  EventKind = "system_status"
	KindSystemHint    EventKind = "system_hint"
	KindSystemBiz     EventKind = "system_biz"
	KindAuth          EventKind = "auth"
	KindTransfer      EventKind = "transfer"
	KindUnknown       EventKind = "unknown"
)

// FromRole identifies who authored an inbound message.
type FromRole string

const (
	RoleUser   FromRole = "user"
	RoleMallCS FromRole = "mall_cs"
	RoleSystem FromRole = "system"
)

// Routing classifies how the consumer should treat an event kind.
type Routing int

const (
	RoutingImmediate Routing = iota
	RoutingQueued
	RoutingDropped
)

// routingTable implements the policy fixed by the specification: most
// system/control events are handled inline, conversational content is
// serialized per user, and unrecognized frames are dropped.
var routingTable = map[EventKind]Routing{
	KindAuth:          RoutingImmediate,
	KindWithdraw:      RoutingImmediate,
	KindSystemStatus:  RoutingImmediate,
	KindSystemHint:    RoutingImmediate,
	KindMallCs:        RoutingImmediate,
	KindSystemBiz:     RoutingImmediate,
	KindMallSystemMsg: RoutingImmediate,
	KindTransfer:      RoutingImmediate,

	KindText:         RoutingQueued,
	KindImage:        RoutingQueued,
	KindVideo:        RoutingQueued,
	KindEmotion:      RoutingQueued,
	KindGoodsInquiry: RoutingQueued,
	KindOrderInfo:    RoutingQueued,
	KindGoodsCard:    RoutingQueued,
	KindGoodsSpec:    RoutingQueued,

	KindUnknown: RoutingDropped,
}

// RoutingFor returns the routing policy for a given event kind, defaulting
// to dropped for anything not present in the table (defensive for future kinds).
func RoutingFor(k EventKind) Routing {
	if r, ok := routingTable[k]; ok {
		return r
	}
	return RoutingDropped
}

// TextContent is the payload for KindText.
type TextContent struct {
	Text string `json:"text"`
}

// ImageContent is the payload for KindImage.
type ImageContent struct {
	URL string `json:"url"`
}

// VideoContent is the payload for KindVideo.
type VideoContent struct {
	URL string `json:"url"`
}

// EmotionContent is the payload for KindEmotion.
type EmotionContent struct {
	Description string `json:"description"`
}

// GoodsInquiryContent is the payload for KindGoodsInquiry.
type GoodsInquiryContent struct {
	GoodsID   string `json:"goods_id"`
	Name      string `json:"name"`
	Price     string `json:"price"`
	ThumbURL  string `json:"thumb_url"`
	LinkURL   string `json:"link_url"`
}

// GoodsSpecContent is the payload for KindGoodsSpec.
type GoodsSpecContent struct {
	GoodsID string `json:"goods_id"`
	Name    string `json:"name"`
	Price   string `json:"price"`
	Spec    string `json:"spec"`
}

// OrderInfoContent is the payload for KindOrderInfo.
type OrderInfoContent struct {
	OrderID          string `json:"order_id"`
	GoodsID          string `json:"goods_id"`
	Name             string `json:"name"`
	AfterSalesStatus string `json:"after_sales_status"`
	AfterSalesType   string `json:"after_sales_type"`
	Spec             string `json:"spec"`
}

// GoodsCardContent is the payload for KindGoodsCard.
type GoodsCardContent struct {
	GoodsID string `json:"goods_id"`
}

// WithdrawContent is the payload for KindWithdraw.
type WithdrawContent struct {
	Hint string `json:"hint"`
}

// MallCsContent is the payload for KindMallCs.
type MallCsContent struct {
	Text string `json:"text"`
}

// MallSystemMsgContent is the payload for KindMallSystemMsg.
type MallSystemMsgContent struct {
	UserID string `json:"user_id"`
}

// SystemTextContent is shared by KindSystemStatus/KindSystemHint/KindSystemBiz.
type SystemTextContent struct {
	Text string `json:"text"`
}

// AuthContent is the payload for KindAuth.
type AuthContent struct {
	UID    string `json:"uid"`
	Result string `json:"result"`
	Status string `json:"status"`
}

// TransferContent is the payload for KindTransfer.
type TransferContent struct {
	FromUID string `json:"from_uid"`
	ToUID   string `json:"to_uid"`
}

// UnknownContent preserves the raw frame for diagnostics.
type UnknownContent struct {
	Raw json.RawMessage `json:"raw"`
}

// Event is the single decoded representation of an inbound chat frame.
type Event struct {
	Kind    EventKind `json:"kind"`
	Content any       `json:"content"`

	MsgID    string   `json:"msg_id"`
	FromRole FromRole `json:"from_role"`
	FromUID  string   `json:"from_uid"`
	ToUID    string   `json:"to_uid"`
	Nickname string   `json:"nickname"`

	// Timestamp is the monotonic epoch-millis value reported by the server.
	Timestamp int64 `json:"timestamp"`

	// ShopID and AccountUserID are injected by the caller of the decoder
	// (the transport session knows which account received the frame).
	ShopID        string `json:"shop_id"`
	AccountUserID string `json:"account_user_id"`

	// Raw preserves the original frame bytes for logging/debugging.
	Raw json.RawMessage `json:"raw"`
}

// UserKey is the unit of per-end-user serialization: channel + ":" + from_uid.
func UserKey(channel, fromUID string) string {
	return channel + ":" + fromUID
}

// ConversationKey mirrors the §3 Conversation user_key: shop_id + ":" + from_uid.
func ConversationKey(shopID, fromUID string) string {
	return shopID + ":" + fromUID
}
