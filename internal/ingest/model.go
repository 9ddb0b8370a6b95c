// Package ingest 將供應商 webhook 事件正規化並冪等地寫入對話歷史.
//
// 管線依序為：Extract（從任意形狀的 payload 取出候選記錄）→ Normalize
// （每個候選轉成 NormalizedMessage）→ 身分解析 → Contact / Conversation /
// Message / MediaAttachment 依自然鍵 upsert → 媒體任務盡力入列 → 彙整結果.
package ingest

import "time"

// Direction 訊息方向.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// ContentType 訊息內容分類.
type ContentType string

const (
	ContentText     ContentType = "text"
	ContentImage    ContentType = "image"
	ContentVideo    ContentType = "video"
	ContentAudio    ContentType = "audio"
	ContentDocument ContentType = "document"
	ContentSticker  ContentType = "sticker"
	ContentLocation ContentType = "location"
	ContentContact  ContentType = "contact"
	ContentReaction ContentType = "reaction"
	ContentTemplate ContentType = "template"
	ContentUnknown  ContentType = "unknown"
)

// Category 候選記錄的事件類別.
type Category string

const (
	CategoryMessage    Category = "message"
	CategoryStatus     Category = "status"
	CategoryDeletion   Category = "deletion"
	CategoryConnection Category = "connection"
)

// ContactInfo 從多個巢狀位置合併出的聯絡人資料.
type ContactInfo struct {
	DisplayName string
	ProfileName string
	IsBusiness  *bool
	Extras      map[string]string
}

// MediaDescriptor 單一媒體附件描述.
type MediaDescriptor struct {
	// Key 是去重與 upsert 用的鍵：供應商媒體 ID，否則為合成的穩定 ID.
	Key             string
	ProviderMediaID string
	Type            ContentType
	URL             string
	MimeType        string
	FileName        string
	Size            int64
	Checksum        string
	Metadata        map[string]interface{}
}

// NormalizedMessage 正規化後的訊息.
type NormalizedMessage struct {
	Category          Category
	CompanyID         string
	InstanceID        string
	ProviderMessageID string
	// GeneratedID 為 true 表示供應商沒有提供 ID，ProviderMessageID 由內容推導.
	GeneratedID            bool
	RoutingID              string
	Phone                  string
	ConversationExternalID string
	Direction              Direction
	Type                   ContentType
	Status                 Status
	Body                   string
	Caption                string
	Timestamp              time.Time
	ReplyToProviderID      string
	Contact                ContactInfo
	Media                  []MediaDescriptor
	Raw                    map[string]interface{}
}

// WriteKeys 此記錄會寫入的聯絡人鍵與對話鍵；共用任一鍵的寫入必須序列化.
func (m *NormalizedMessage) WriteKeys() []string {
	keys := make([]string, 0, 2)
	if m.RoutingID != "" {
		keys = append(keys, m.CompanyID+"|jid|"+m.RoutingID)
	}
	if m.ConversationExternalID != "" {
		keys = append(keys, m.CompanyID+"|conv|"+m.ConversationExternalID)
	}
	return keys
}
