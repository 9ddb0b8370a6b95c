package database

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound 找不到目標記錄.
var ErrNotFound = errors.New("record not found")

// Store 管線依賴的持久化契約：皆以自然鍵 upsert 並回傳寫入後的記錄.
type Store interface {
	UpsertContact(ctx context.Context, c *Contact) (*Contact, error)
	// UpsertConversation reopen 為 true 時強制將狀態設為 open.
	UpsertConversation(ctx context.Context, c *Conversation, reopen bool) (*Conversation, error)
	// UpsertMessage 覆寫可變欄位；狀態只會依等級前進.
	UpsertMessage(ctx context.Context, m *Message) (*Message, error)
	UpsertMediaAttachment(ctx context.Context, a *MediaAttachment) (*MediaAttachment, error)
	UpdateMessageStatus(ctx context.Context, u *StatusUpdate) (*Message, error)
	// MarkMessageDeleted 訊息不存在時回傳 ErrNotFound.
	MarkMessageDeleted(ctx context.Context, companyID, providerMessageID string, at time.Time) (*Message, error)
}

// ConversationGroupKey 對話分組鍵：有外部對話 ID 時以它為準，否則依聯絡人.
func ConversationGroupKey(externalID, contactID string) string {
	if externalID != "" {
		return "ext:" + externalID
	}
	return "contact:" + contactID
}
