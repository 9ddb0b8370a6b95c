package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

var fixedNow = time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC)

func TestContactUpdateSkipsEmptyFields(t *testing.T) {
	biz := true
	update := contactUpdate(&Contact{
		CompanyID:   "42",
		ExternalID:  "551199999999@s.whatsapp.net",
		Phone:       "551199999999",
		ProfileName: "Ana",
		IsBusiness:  &biz,
		Extras:      map[string]string{"profilePicUrl": "https://pic", "bad.$key": "x", "empty": ""},
	}, "new-id", fixedNow)

	set := update["$set"].(bson.M)
	assert.Equal(t, "551199999999", set["phone"])
	assert.Equal(t, "Ana", set["profile_name"])
	assert.Equal(t, true, set["is_business"])
	assert.Equal(t, "https://pic", set["extras.profilePicUrl"])
	assert.Equal(t, "x", set["extras.badkey"])
	assert.NotContains(t, set, "display_name")
	assert.NotContains(t, set, "extras.empty")

	onInsert := update["$setOnInsert"].(bson.M)
	assert.Equal(t, "new-id", onInsert["id"])
	assert.Equal(t, fixedNow, onInsert["created_at"])
	for k := range onInsert {
		assert.NotContains(t, set, k, "欄位 %s 不能同時出現在 $set 與 $setOnInsert", k)
	}
}

func TestConversationUpdate(t *testing.T) {
	last := fixedNow.Add(-time.Minute)

	tests := []struct {
		name       string
		conv       Conversation
		reopen     bool
		wantFilter bson.M
	}{
		{
			name:       "依聯絡人分組並重新開啟",
			conv:       Conversation{CompanyID: "42", ContactID: "c1", RoutingID: "r@s", LastMessageAt: last},
			reopen:     true,
			wantFilter: bson.M{"company_id": "42", "group_key": "contact:c1"},
		},
		{
			name:       "依外部對話 ID 分組",
			conv:       Conversation{CompanyID: "42", ContactID: "c1", ExternalID: "t-9", LastMessageAt: last},
			reopen:     false,
			wantFilter: bson.M{"company_id": "42", "group_key": "ext:t-9"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := tt.conv
			c.GroupKey = ConversationGroupKey(c.ExternalID, c.ContactID)
			assert.Equal(t, tt.wantFilter, conversationFilter(&c))

			update := conversationUpdate(&c, tt.reopen, "conv-id", fixedNow)
			set := update["$set"].(bson.M)
			onInsert := update["$setOnInsert"].(bson.M)
			if tt.reopen {
				assert.Equal(t, ConversationOpen, set["status"])
				assert.NotContains(t, onInsert, "status")
			} else {
				assert.NotContains(t, set, "status")
				assert.Equal(t, ConversationOpen, onInsert["status"])
			}
			assert.Equal(t, bson.M{"last_message_at": last}, update["$max"])
			if c.ExternalID != "" {
				assert.Equal(t, c.ExternalID, onInsert["external_id"])
			}
		})
	}
}

func TestMessagePipelineKeepsStatusMonotonic(t *testing.T) {
	pipeline := messagePipeline(&Message{
		CompanyID:         "42",
		ProviderMessageID: "abc",
		Status:            "delivered",
		StatusRank:        2,
		Body:              "$where",
		Raw:               map[string]interface{}{"$bad": 1, "a.b": "c"},
	}, "msg-id", fixedNow)

	require.Len(t, pipeline, 1)
	stage := pipeline[0]
	require.Equal(t, "$set", stage[0].Key)
	set := stage[0].Value.(bson.M)

	assert.Equal(t, bson.M{"$ifNull": bson.A{"$id", "msg-id"}}, set["id"])
	assert.Equal(t, bson.M{"$literal": "$where"}, set["body"], "使用者字串必須以 $literal 包裝")
	assert.Equal(t, bson.M{"$literal": map[string]interface{}{"bad": 1, "ab": "c"}}, set["raw"])

	current := bson.M{"$ifNull": bson.A{"$status_rank", -1}}
	assert.Equal(t, bson.M{"$max": bson.A{current, 2}}, set["status_rank"])
	assert.Equal(t, bson.M{"$cond": bson.A{
		bson.M{"$gt": bson.A{2, current}},
		bson.M{"$literal": "delivered"},
		"$status",
	}}, set["status"])
}

func TestStatusPipelineDefaultsTimestamp(t *testing.T) {
	pipeline := statusPipeline(&StatusUpdate{CompanyID: "42", ProviderMessageID: "abc", Status: "read", StatusRank: 3}, "stub-id", fixedNow)
	set := pipeline[0][0].Value.(bson.M)

	assert.Equal(t, fixedNow, set["status_updated_at"])
	assert.Equal(t, bson.M{"$ifNull": bson.A{"$timestamp", fixedNow}}, set["timestamp"])
	assert.Contains(t, set, "status_rank")
	assert.NotContains(t, set, "body", "狀態事件不能覆寫內容欄位")
}

func TestMediaUpdateIsInsertOnly(t *testing.T) {
	a := &MediaAttachment{
		MessageID: "m1",
		CompanyID: "42",
		MediaKey:  "media-1",
		Type:      "image",
		URL:       "https://cdn/x.jpg",
		Size:      1024,
	}
	assert.Equal(t, bson.M{"message_id": "m1", "media_key": "media-1"}, mediaFilter(a))

	update := mediaUpdate(a, "att-id", fixedNow)
	require.Len(t, update, 1)
	onInsert := update["$setOnInsert"].(bson.M)
	assert.Equal(t, "https://cdn/x.jpg", onInsert["url"])
	assert.Equal(t, int64(1024), onInsert["size"])
	assert.NotContains(t, onInsert, "file_name")
}

func TestDeletedUpdate(t *testing.T) {
	at := fixedNow.Add(-time.Hour)
	set := deletedUpdate(at, fixedNow)["$set"].(bson.M)
	assert.Equal(t, true, set["deleted"])
	assert.Equal(t, at, set["deleted_at"])

	set = deletedUpdate(time.Time{}, fixedNow)["$set"].(bson.M)
	assert.Equal(t, fixedNow, set["deleted_at"])
}

func TestSanitizeDocument(t *testing.T) {
	doc := SanitizeDocument(map[string]interface{}{
		"$set":  "x",
		"a.b":   []interface{}{map[string]interface{}{"$gt": "y\x00"}},
		"$":     "dropped",
		"plain": 1,
	})
	assert.Equal(t, map[string]interface{}{
		"set":   "x",
		"ab":    []interface{}{map[string]interface{}{"gt": "y"}},
		"plain": 1,
	}, doc)
	assert.Nil(t, SanitizeDocument(nil))
}
