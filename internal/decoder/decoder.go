// ABOUTME: Pure decoder turning raw platform WebSocket frames into typed Events.
// ABOUTME: Table-driven over response/type/sub_type, mirroring the platform's push envelope.

package decoder

import (
	"encoding/json"
	"fmt"

	"github.com/csgw/gateway/internal/model"
)

// wireFrame mirrors the recognized top-level shapes from the wire contract.
type wireFrame struct {
	Response string          `json:"response"`
	UID      string          `json:"uid"`
	Status   string          `json:"status"`
	Auth     *wireAuth       `json:"auth"`
	Message  *wireMessage    `json:"message"`
}

type wireAuth struct {
	Result string `json:"result"`
}

type wireMessage struct {
	Type    *int        `json:"type"`
	SubType *int        `json:"sub_type"`
	From    wireParty   `json:"from"`
	To      wireParty   `json:"to"`
	MsgID   string      `json:"msg_id"`
	Nickname string     `json:"nickname"`
	Time    int64       `json:"time"`
	Content json.RawMessage `json:"content"`
	Info    *wireInfo   `json:"info"`
	Data    *wireData   `json:"data"`
}

type wireParty struct {
	Role string `json:"role"`
	UID  string `json:"uid"`
}

type wireInfo struct {
	Description    string        `json:"description"`
	WithdrawHint   string        `json:"withdraw_hint"`
	GoodsID        string        `json:"goodsID"`
	GoodsName      string        `json:"goodsName"`
	GoodsPrice     string        `json:"goodsPrice"`
	GoodsThumbURL  string        `json:"goodsThumbUrl"`
	LinkURL        string        `json:"linkUrl"`
	OrderSeqNo     string        `json:"orderSequenceNo"`
	AfterSalesStat string        `json:"afterSalesStatus"`
	AfterSalesType string        `json:"afterSalesType"`
	Spec           string        `json:"spec"`
	Data           *wireInfoData `json:"data"`
}

type wireInfoData struct {
	GoodsID    string `json:"goodsID"`
	GoodsName  string `json:"goodsName"`
	GoodsPrice string `json:"goodsPrice"`
	Spec       string `json:"spec"`
}

type wireData struct {
	UserID string `json:"user_id"`
}

// Decode parses one WebSocket text frame into a typed Event. Malformed JSON
// is reported as an error for the caller to log and drop; all other shapes
// decode to a concrete kind, falling back to SystemStatus for anything the
// wire contract doesn't recognize.
func Decode(frame []byte) (*model.Event, error) {
	var w wireFrame
	if err := json.Unmarshal(frame, &w); err != nil {
		return nil, fmt.Errorf("decoding frame: %w", err)
	}

	ev := &model.Event{Raw: json.RawMessage(frame)}

	// The "another seat replied" short-circuit takes priority over type
	// codes: it is another customer-service agent's outbound message, not
	// a user-authored one, regardless of what type/sub_type it carries.
	if w.Message != nil && w.Message.From.Role == string(model.RoleMallCS) {
		ev.Kind = model.KindMallCs
		var text string
		_ = json.Unmarshal(w.Message.Content, &text)
		ev.Content = model.MallCsContent{Text: text}
		fillBasicInfo(ev, w.Message)
		return ev, nil
	}

	switch w.Response {
	case "push":
		decodePush(ev, w.Message)
	case "auth":
		decodeAuth(ev, &w)
	case "mall_system_msg":
		decodeMallSystemMsg(ev, w.Message)
	default:
		ev.Kind = model.KindSystemStatus
		ev.Content = model.SystemTextContent{Text: fmt.Sprintf("unsupported: %s", w.Response)}
	}

	if w.Message != nil {
		fillBasicInfo(ev, w.Message)
	}
	return ev, nil
}

func fillBasicInfo(ev *model.Event, m *wireMessage) {
	ev.MsgID = m.MsgID
	ev.Nickname = m.Nickname
	ev.FromRole = model.FromRole(m.From.Role)
	ev.FromUID = m.From.UID
	ev.ToUID = m.To.UID
	ev.Timestamp = m.Time
}

func decodePush(ev *model.Event, m *wireMessage) {
	if m == nil || m.Type == nil {
		ev.Kind = model.KindSystemStatus
		ev.Content = model.SystemTextContent{Text: "unsupported: push with no type"}
		return
	}

	switch *m.Type {
	case 0:
		decodeType0(ev, m)
	case 1:
		var url string
		_ = json.Unmarshal(m.Content, &url)
		ev.Kind = model.KindImage
		ev.Content = model.ImageContent{URL: url}
	case 14:
		var url string
		_ = json.Unmarshal(m.Content, &url)
		ev.Kind = model.KindVideo
		ev.Content = model.VideoContent{URL: url}
	case 1002:
		hint := ""
		if m.Info != nil {
			hint = m.Info.WithdrawHint
		}
		ev.Kind = model.KindWithdraw
		ev.Content = model.WithdrawContent{Hint: hint}
	case 5:
		desc := ""
		if m.Info != nil {
			desc = m.Info.Description
		}
		ev.Kind = model.KindEmotion
		ev.Content = model.EmotionContent{Description: desc}
	case 64:
		ev.Kind = model.KindGoodsSpec
		ev.Content = goodsSpecFromInfo(m.Info)
	case 24:
		ev.Kind = model.KindTransfer
		ev.Content = model.TransferContent{FromUID: m.From.UID, ToUID: m.To.UID}
	default:
		ev.Kind = model.KindSystemStatus
		ev.Content = model.SystemTextContent{Text: fmt.Sprintf("unsupported type=%d", *m.Type)}
	}
}

func decodeType0(ev *model.Event, m *wireMessage) {
	if m.SubType != nil {
		switch *m.SubType {
		case 1:
			ev.Kind = model.KindOrderInfo
			ev.Content = orderInfoFromInfo(m.Info)
			return
		case 0:
			ev.Kind = model.KindGoodsInquiry
			ev.Content = goodsInquiryFromInfo(m.Info)
			return
		}
	}
	var text string
	_ = json.Unmarshal(m.Content, &text)
	ev.Kind = model.KindText
	ev.Content = model.TextContent{Text: text}
}

func goodsInquiryFromInfo(info *wireInfo) model.GoodsInquiryContent {
	if info == nil {
		return model.GoodsInquiryContent{}
	}
	return model.GoodsInquiryContent{
		GoodsID:  info.GoodsID,
		Name:     info.GoodsName,
		Price:    info.GoodsPrice,
		ThumbURL: info.GoodsThumbURL,
		LinkURL:  info.LinkURL,
	}
}

func goodsSpecFromInfo(info *wireInfo) model.GoodsSpecContent {
	if info == nil || info.Data == nil {
		return model.GoodsSpecContent{}
	}
	return model.GoodsSpecContent{
		GoodsID: info.Data.GoodsID,
		Name:    info.Data.GoodsName,
		Price:   info.Data.GoodsPrice,
		Spec:    info.Data.Spec,
	}
}

func orderInfoFromInfo(info *wireInfo) model.OrderInfoContent {
	if info == nil {
		return model.OrderInfoContent{}
	}
	return model.OrderInfoContent{
		OrderID:          info.OrderSeqNo,
		GoodsID:          info.GoodsID,
		Name:             info.GoodsName,
		AfterSalesStatus: info.AfterSalesStat,
		AfterSalesType:   info.AfterSalesType,
		Spec:             info.Spec,
	}
}

func decodeAuth(ev *model.Event, w *wireFrame) {
	ev.Kind = model.KindAuth
	result := ""
	if w.Auth != nil {
		result = w.Auth.Result
	}
	ev.Content = model.AuthContent{UID: w.UID, Result: result, Status: w.Status}
}

func decodeMallSystemMsg(ev *model.Event, m *wireMessage) {
	userID := ""
	if m != nil && m.Data != nil {
		userID = m.Data.UserID
	}
	ev.Kind = model.KindMallSystemMsg
	ev.Content = model.MallSystemMsgContent{UserID: userID}
}
