package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// MessageStore 訊息存儲.
type MessageStore struct {
	collection *mongo.Collection
}

// NewMessageStore 創建訊息存儲.
func NewMessageStore(db *mongo.Database) *MessageStore {
	return &MessageStore{collection: db.Collection("messages")}
}

// Upsert 以 (company_id, provider_message_id) upsert；可變欄位整批覆寫，狀態只依等級前進.
func (s *MessageStore) Upsert(ctx context.Context, m *Message) (*Message, error) {
	var out Message
	pipeline := messagePipeline(m, uuid.NewString(), time.Now().UTC())
	if err := upsertOne(ctx, s.collection, messageFilter(m.CompanyID, m.ProviderMessageID), pipeline, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateStatus 套用狀態事件；訊息尚未出現時建立只含狀態的佔位記錄，之後的完整訊息會補上其餘欄位.
func (s *MessageStore) UpdateStatus(ctx context.Context, u *StatusUpdate) (*Message, error) {
	var out Message
	pipeline := statusPipeline(u, uuid.NewString(), time.Now().UTC())
	if err := upsertOne(ctx, s.collection, messageFilter(u.CompanyID, u.ProviderMessageID), pipeline, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MarkDeleted 軟刪除；訊息不存在時回傳 ErrNotFound.
func (s *MessageStore) MarkDeleted(ctx context.Context, companyID, providerMessageID string, at time.Time) (*Message, error) {
	var out Message
	if err := updateExisting(ctx, s.collection, messageFilter(companyID, providerMessageID), deletedUpdate(at, time.Now().UTC()), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func messageFilter(companyID, providerMessageID string) bson.M {
	return bson.M{"company_id": companyID, "provider_message_id": providerMessageID}
}

func messagePipeline(m *Message, newID string, now time.Time) mongo.Pipeline {
	set := bson.M{
		"id":                   ifNull("$id", newID),
		"generated_id":         literal(m.GeneratedID),
		"conversation_id":      literal(m.ConversationID),
		"contact_id":           literal(m.ContactID),
		"direction":            literal(m.Direction),
		"type":                 literal(m.Type),
		"body":                 literal(m.Body),
		"caption":              literal(m.Caption),
		"timestamp":            literal(m.Timestamp),
		"reply_to_provider_id": literal(m.ReplyToProviderID),
		"raw":                  literal(SanitizeDocument(m.Raw)),
		"created_at":           ifNull("$created_at", now),
		"updated_at":           now,
	}
	for k, v := range rankedStatus(m.Status, m.StatusRank) {
		set[k] = v
	}
	return mongo.Pipeline{{{Key: "$set", Value: set}}}
}

func statusPipeline(u *StatusUpdate, newID string, now time.Time) mongo.Pipeline {
	at := u.At
	if at.IsZero() {
		at = now
	}
	set := bson.M{
		"id":                ifNull("$id", newID),
		"timestamp":         ifNull("$timestamp", at),
		"status_updated_at": at,
		"created_at":        ifNull("$created_at", now),
		"updated_at":        now,
	}
	for k, v := range rankedStatus(u.Status, u.StatusRank) {
		set[k] = v
	}
	return mongo.Pipeline{{{Key: "$set", Value: set}}}
}

func deletedUpdate(at, now time.Time) bson.M {
	if at.IsZero() {
		at = now
	}
	return bson.M{"$set": bson.M{
		"deleted":    true,
		"deleted_at": at,
		"updated_at": now,
	}}
}
