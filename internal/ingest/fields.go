package ingest

import (
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// FirstOf 依優先順序檢查 gjson 路徑，回傳第一個非空的字串或數字值.
// 物件、陣列、布林與空字串都會被略過.
func FirstOf(src gjson.Result, paths ...string) (gjson.Result, bool) {
	for _, p := range paths {
		v := src.Get(p)
		if isScalar(v) {
			return v, true
		}
	}
	return gjson.Result{}, false
}

// FirstString 同 FirstOf，回傳去除空白的字串.
func FirstString(src gjson.Result, paths ...string) string {
	if v, ok := FirstOf(src, paths...); ok {
		return strings.TrimSpace(v.String())
	}
	return ""
}

// FirstInt 回傳第一個可解析為整數的值.
func FirstInt(src gjson.Result, paths ...string) (int64, bool) {
	for _, p := range paths {
		v := src.Get(p)
		if n, ok := asInt(v); ok {
			return n, true
		}
	}
	return 0, false
}

// FirstBool 回傳第一個布林值（接受 true/false 與其字串形式）.
func FirstBool(src gjson.Result, paths ...string) (bool, bool) {
	for _, p := range paths {
		v := src.Get(p)
		switch v.Type {
		case gjson.True:
			return true, true
		case gjson.False:
			return false, true
		case gjson.String:
			if b, err := strconv.ParseBool(strings.TrimSpace(v.Str)); err == nil {
				return b, true
			}
		}
	}
	return false, false
}

// FirstObject 回傳第一個 JSON 物件.
func FirstObject(src gjson.Result, paths ...string) (gjson.Result, bool) {
	for _, p := range paths {
		if v := src.Get(p); v.IsObject() {
			return v, true
		}
	}
	return gjson.Result{}, false
}

func isScalar(v gjson.Result) bool {
	switch v.Type {
	case gjson.Number:
		return true
	case gjson.String:
		return strings.TrimSpace(v.Str) != ""
	}
	return false
}

func asInt(v gjson.Result) (int64, bool) {
	switch v.Type {
	case gjson.Number:
		return v.Int(), true
	case gjson.String:
		s := strings.TrimSpace(v.Str)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int64(f), true
		}
	case gjson.JSON:
		// protobuf Long：{"low": n, "high": 0}
		if v.IsObject() && v.Get("low").Exists() {
			return v.Get("high").Int()<<32 | (v.Get("low").Int() & 0xffffffff), true
		}
	}
	return 0, false
}

// 欄位來源的優先順序表.
var (
	messageIDPaths = []string{
		"key.id", "id", "messageId", "message_id", "msgId", "wamid",
		"id.id", "id._serialized", "_data.id.id", "data.id",
	}
	routingIDPaths = []string{
		"key.remoteJid", "remoteJid", "remote_jid", "chatId", "chat_id", "jid",
		"id.remote", "_data.id.remote", "chat.id",
	}
	// 沒有明確 routing id 時依方向取 from/to.
	inboundPeerPaths  = []string{"from", "sender", "author", "recipient_id", "to"}
	outboundPeerPaths = []string{"to", "recipient_id", "recipient", "from"}

	conversationIDPaths = []string{"conversationId", "conversation_id", "ticketId", "ticket_id"}
	fromMePaths         = []string{"key.fromMe", "fromMe", "from_me", "isFromMe", "id.fromMe", "_data.id.fromMe"}
	directionPaths      = []string{"direction", "flow"}
	timestampPaths      = []string{
		"messageTimestamp", "timestamp", "t", "_data.t", "created_at", "createdAt", "date", "time",
	}
	typePaths = []string{"type", "messageType", "message_type", "mediaType", "kind", "_data.type"}
	bodyPaths = []string{
		"body", "text", "content", "text.body",
		"message.conversation", "message.extendedTextMessage.text",
		"_data.body", "msg", "message.text",
	}
	captionPaths = []string{
		"caption",
		"message.imageMessage.caption", "message.videoMessage.caption",
		"message.documentMessage.caption",
		"message.documentWithCaptionMessage.message.documentMessage.caption",
		"image.caption", "video.caption", "document.caption", "media.caption",
	}
	statusPaths  = []string{"update.status", "status", "ack", "ackName", "_data.ack", "state"}
	replyToPaths = []string{
		"message.extendedTextMessage.contextInfo.stanzaId",
		"contextInfo.stanzaId", "quotedMsgId", "quotedMessageId", "quotedStanzaID",
		"_data.quotedStanzaID", "context.id", "replyTo", "reply_to",
	}
	companyIDPaths  = []string{"companyId", "company_id", "tenantId", "tenant_id", "metadata.companyId"}
	instanceIDPaths = []string{"instanceId", "instance_id", "instance", "session", "sessionId", "channelId", "owner"}
	eventPaths      = []string{"event", "eventType", "event_type", "action", "type"}
)
