package database

import "time"

// Contact 聯絡人，(company_id, external_id) 唯一.
type Contact struct {
	ID          string            `bson:"id" json:"id"`
	CompanyID   string            `bson:"company_id" json:"company_id"`
	ExternalID  string            `bson:"external_id" json:"external_id"`
	Phone       string            `bson:"phone,omitempty" json:"phone,omitempty"`
	DisplayName string            `bson:"display_name,omitempty" json:"display_name,omitempty"`
	ProfileName string            `bson:"profile_name,omitempty" json:"profile_name,omitempty"`
	IsBusiness  *bool             `bson:"is_business,omitempty" json:"is_business,omitempty"`
	Extras      map[string]string `bson:"extras,omitempty" json:"extras,omitempty"`
	CreatedAt   time.Time         `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time         `bson:"updated_at" json:"updated_at"`
}

// 對話狀態.
const (
	ConversationOpen     = "open"
	ConversationPending  = "pending"
	ConversationClosed   = "closed"
	ConversationArchived = "archived"
)

// Conversation 對話，(company_id, group_key) 唯一.
type Conversation struct {
	ID        string `bson:"id" json:"id"`
	CompanyID string `bson:"company_id" json:"company_id"`
	// GroupKey 為 "ext:<external_id>" 或 "contact:<contact_id>"，依供應商是否提供對話 ID.
	GroupKey      string    `bson:"group_key" json:"group_key"`
	ExternalID    string    `bson:"external_id,omitempty" json:"external_id,omitempty"`
	ContactID     string    `bson:"contact_id" json:"contact_id"`
	RoutingID     string    `bson:"routing_id" json:"routing_id"`
	InstanceID    string    `bson:"instance_id,omitempty" json:"instance_id,omitempty"`
	Status        string    `bson:"status" json:"status"`
	LastMessageAt time.Time `bson:"last_message_at" json:"last_message_at"`
	CreatedAt     time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at" json:"updated_at"`
}

// Message 訊息，(company_id, provider_message_id) 唯一.
type Message struct {
	ID                string                 `bson:"id" json:"id"`
	CompanyID         string                 `bson:"company_id" json:"company_id"`
	ProviderMessageID string                 `bson:"provider_message_id" json:"provider_message_id"`
	GeneratedID       bool                   `bson:"generated_id,omitempty" json:"generated_id,omitempty"`
	ConversationID    string                 `bson:"conversation_id,omitempty" json:"conversation_id,omitempty"`
	ContactID         string                 `bson:"contact_id,omitempty" json:"contact_id,omitempty"`
	Direction         string                 `bson:"direction,omitempty" json:"direction,omitempty"`
	Type              string                 `bson:"type,omitempty" json:"type,omitempty"`
	Status            string                 `bson:"status" json:"status"`
	StatusRank        int                    `bson:"status_rank" json:"status_rank"`
	Body              string                 `bson:"body,omitempty" json:"body,omitempty"`
	Caption           string                 `bson:"caption,omitempty" json:"caption,omitempty"`
	Timestamp         time.Time              `bson:"timestamp" json:"timestamp"`
	ReplyToProviderID string                 `bson:"reply_to_provider_id,omitempty" json:"reply_to_provider_id,omitempty"`
	Raw               map[string]interface{} `bson:"raw,omitempty" json:"raw,omitempty"`
	Deleted           bool                   `bson:"deleted,omitempty" json:"deleted,omitempty"`
	DeletedAt         *time.Time             `bson:"deleted_at,omitempty" json:"deleted_at,omitempty"`
	CreatedAt         time.Time              `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time              `bson:"updated_at" json:"updated_at"`
}

// MediaAttachment 媒體附件，(message_id, media_key) 唯一；建立後不再變更.
type MediaAttachment struct {
	ID              string                 `bson:"id" json:"id"`
	MessageID       string                 `bson:"message_id" json:"message_id"`
	CompanyID       string                 `bson:"company_id" json:"company_id"`
	MediaKey        string                 `bson:"media_key" json:"media_key"`
	ProviderMediaID string                 `bson:"provider_media_id,omitempty" json:"provider_media_id,omitempty"`
	Type            string                 `bson:"type" json:"type"`
	URL             string                 `bson:"url,omitempty" json:"url,omitempty"`
	MimeType        string                 `bson:"mime_type,omitempty" json:"mime_type,omitempty"`
	FileName        string                 `bson:"file_name,omitempty" json:"file_name,omitempty"`
	Size            int64                  `bson:"size,omitempty" json:"size,omitempty"`
	Checksum        string                 `bson:"checksum,omitempty" json:"checksum,omitempty"`
	Metadata        map[string]interface{} `bson:"metadata,omitempty" json:"metadata,omitempty"`
	CreatedAt       time.Time              `bson:"created_at" json:"created_at"`
}

// StatusUpdate 狀態事件；訊息尚不存在時會建立只含狀態的佔位記錄.
type StatusUpdate struct {
	CompanyID         string
	ProviderMessageID string
	Status            string
	StatusRank        int
	At                time.Time
}
