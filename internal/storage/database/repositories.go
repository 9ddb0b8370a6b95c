package database

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
)

// Repositories 倉儲集合，實作 Store.
type Repositories struct {
	Contacts      *ContactStore
	Conversations *ConversationStore
	Messages      *MessageStore
	Media         *MediaStore
}

var _ Store = (*Repositories)(nil)

// NewRepositories 創建倉儲集合.
func NewRepositories(db *mongo.Database) *Repositories {
	return &Repositories{
		Contacts:      NewContactStore(db),
		Conversations: NewConversationStore(db),
		Messages:      NewMessageStore(db),
		Media:         NewMediaStore(db),
	}
}

// UpsertContact 見 ContactStore.Upsert.
func (r *Repositories) UpsertContact(ctx context.Context, c *Contact) (*Contact, error) {
	return r.Contacts.Upsert(ctx, c)
}

// UpsertConversation 見 ConversationStore.Upsert.
func (r *Repositories) UpsertConversation(ctx context.Context, c *Conversation, reopen bool) (*Conversation, error) {
	return r.Conversations.Upsert(ctx, c, reopen)
}

// UpsertMessage 見 MessageStore.Upsert.
func (r *Repositories) UpsertMessage(ctx context.Context, m *Message) (*Message, error) {
	return r.Messages.Upsert(ctx, m)
}

// UpsertMediaAttachment 見 MediaStore.Upsert.
func (r *Repositories) UpsertMediaAttachment(ctx context.Context, a *MediaAttachment) (*MediaAttachment, error) {
	return r.Media.Upsert(ctx, a)
}

// UpdateMessageStatus 見 MessageStore.UpdateStatus.
func (r *Repositories) UpdateMessageStatus(ctx context.Context, u *StatusUpdate) (*Message, error) {
	return r.Messages.UpdateStatus(ctx, u)
}

// MarkMessageDeleted 見 MessageStore.MarkDeleted.
func (r *Repositories) MarkMessageDeleted(ctx context.Context, companyID, providerMessageID string, at time.Time) (*Message, error) {
	return r.Messages.MarkDeleted(ctx, companyID, providerMessageID, at)
}
