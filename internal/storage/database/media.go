package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// MediaStore 媒體附件存儲.
type MediaStore struct {
	collection *mongo.Collection
}

// NewMediaStore 創建媒體附件存儲.
func NewMediaStore(db *mongo.Database) *MediaStore {
	return &MediaStore{collection: db.Collection("media_attachments")}
}

// Upsert 以 (message_id, media_key) upsert；附件建立後不可變，重送只回傳既有記錄.
func (s *MediaStore) Upsert(ctx context.Context, a *MediaAttachment) (*MediaAttachment, error) {
	var out MediaAttachment
	if err := upsertOne(ctx, s.collection, mediaFilter(a), mediaUpdate(a, uuid.NewString(), time.Now().UTC()), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func mediaFilter(a *MediaAttachment) bson.M {
	return bson.M{"message_id": a.MessageID, "media_key": a.MediaKey}
}

func mediaUpdate(a *MediaAttachment, newID string, now time.Time) bson.M {
	onInsert := bson.M{
		"id":         newID,
		"company_id": a.CompanyID,
		"type":       a.Type,
		"created_at": now,
	}
	optional := map[string]string{
		"provider_media_id": a.ProviderMediaID,
		"url":               a.URL,
		"mime_type":         a.MimeType,
		"file_name":         a.FileName,
		"checksum":          a.Checksum,
	}
	for k, v := range optional {
		if v != "" {
			onInsert[k] = v
		}
	}
	if a.Size > 0 {
		onInsert["size"] = a.Size
	}
	if len(a.Metadata) > 0 {
		onInsert["metadata"] = SanitizeDocument(a.Metadata)
	}
	return bson.M{"$setOnInsert": onInsert}
}
