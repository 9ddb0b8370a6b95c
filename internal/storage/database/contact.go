package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// ContactStore 聯絡人存儲.
type ContactStore struct {
	collection *mongo.Collection
}

// NewContactStore 創建聯絡人存儲.
func NewContactStore(db *mongo.Database) *ContactStore {
	return &ContactStore{collection: db.Collection("contacts")}
}

// Upsert 以 (company_id, external_id) upsert；只寫入非空欄位，既有資料不會被空值覆蓋.
func (s *ContactStore) Upsert(ctx context.Context, c *Contact) (*Contact, error) {
	var out Contact
	if err := upsertOne(ctx, s.collection, contactFilter(c), contactUpdate(c, uuid.NewString(), time.Now().UTC()), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func contactFilter(c *Contact) bson.M {
	return bson.M{"company_id": c.CompanyID, "external_id": c.ExternalID}
}

func contactUpdate(c *Contact, newID string, now time.Time) bson.M {
	set := bson.M{"updated_at": now}
	if c.Phone != "" {
		set["phone"] = c.Phone
	}
	if c.DisplayName != "" {
		set["display_name"] = c.DisplayName
	}
	if c.ProfileName != "" {
		set["profile_name"] = c.ProfileName
	}
	if c.IsBusiness != nil {
		set["is_business"] = *c.IsBusiness
	}
	for k, v := range sanitizeExtras(c.Extras) {
		set["extras."+k] = v
	}
	return bson.M{
		"$set": set,
		"$setOnInsert": bson.M{
			"id":         newID,
			"created_at": now,
		},
	}
}
