package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// ConversationStore 對話存儲.
type ConversationStore struct {
	collection *mongo.Collection
}

// NewConversationStore 創建對話存儲.
func NewConversationStore(db *mongo.Database) *ConversationStore {
	return &ConversationStore{collection: db.Collection("conversations")}
}

// Upsert 以 (company_id, group_key) upsert.
// last_message_at 取最大值；reopen 為 true（收到新訊息）時強制狀態為 open.
func (s *ConversationStore) Upsert(ctx context.Context, c *Conversation, reopen bool) (*Conversation, error) {
	if c.GroupKey == "" {
		c.GroupKey = ConversationGroupKey(c.ExternalID, c.ContactID)
	}
	var out Conversation
	update := conversationUpdate(c, reopen, uuid.NewString(), time.Now().UTC())
	if err := upsertOne(ctx, s.collection, conversationFilter(c), update, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func conversationFilter(c *Conversation) bson.M {
	return bson.M{"company_id": c.CompanyID, "group_key": c.GroupKey}
}

func conversationUpdate(c *Conversation, reopen bool, newID string, now time.Time) bson.M {
	set := bson.M{
		"contact_id": c.ContactID,
		"updated_at": now,
	}
	if c.RoutingID != "" {
		set["routing_id"] = c.RoutingID
	}
	if c.InstanceID != "" {
		set["instance_id"] = c.InstanceID
	}
	onInsert := bson.M{
		"id":         newID,
		"created_at": now,
	}
	if c.ExternalID != "" {
		onInsert["external_id"] = c.ExternalID
	}
	if reopen {
		set["status"] = ConversationOpen
	} else {
		onInsert["status"] = ConversationOpen
	}

	update := bson.M{"$set": set, "$setOnInsert": onInsert}
	if !c.LastMessageAt.IsZero() {
		update["$max"] = bson.M{"last_message_at": c.LastMessageAt}
	}
	return update
}
