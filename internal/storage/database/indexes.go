package database

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// collectionIndexes 每個集合的自然鍵唯一索引與查詢索引.
func collectionIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		"contacts": {
			{
				Keys:    bson.D{{Key: "company_id", Value: 1}, {Key: "external_id", Value: 1}},
				Options: options.Index().SetName("company_external_uniq").SetUnique(true),
			},
			{
				Keys:    bson.D{{Key: "company_id", Value: 1}, {Key: "phone", Value: 1}},
				Options: options.Index().SetName("company_phone_idx"),
			},
		},
		"conversations": {
			{
				Keys:    bson.D{{Key: "company_id", Value: 1}, {Key: "group_key", Value: 1}},
				Options: options.Index().SetName("company_group_uniq").SetUnique(true),
			},
			{
				Keys:    bson.D{{Key: "company_id", Value: 1}, {Key: "status", Value: 1}, {Key: "last_message_at", Value: -1}},
				Options: options.Index().SetName("company_status_last_message_idx"),
			},
		},
		"messages": {
			{
				Keys:    bson.D{{Key: "company_id", Value: 1}, {Key: "provider_message_id", Value: 1}},
				Options: options.Index().SetName("company_provider_message_uniq").SetUnique(true),
			},
			{
				Keys:    bson.D{{Key: "conversation_id", Value: 1}, {Key: "timestamp", Value: -1}},
				Options: options.Index().SetName("conversation_time_idx"),
			},
		},
		"media_attachments": {
			{
				Keys:    bson.D{{Key: "message_id", Value: 1}, {Key: "media_key", Value: 1}},
				Options: options.Index().SetName("message_media_uniq").SetUnique(true),
			},
		},
	}
}

// CreateIndexes 創建唯一索引；upsert 的冪等性依賴這些索引.
func CreateIndexes(ctx context.Context, db *mongo.Database) error {
	for name, models := range collectionIndexes() {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create %s indexes: %w", name, err)
		}
	}
	return nil
}
