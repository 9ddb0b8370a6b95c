package database

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// upsertOne 以自然鍵 upsert 並解碼寫入後的文件.
// 兩個併發 upsert 同時插入時其中一個會撞唯一索引，重試一次即會走更新路徑.
func upsertOne(ctx context.Context, coll *mongo.Collection, filter bson.M, update interface{}, out interface{}) error {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var err error
	for attempt := 0; attempt < 2; attempt++ {
		err = coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(out)
		if err == nil {
			return nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			break
		}
	}
	return fmt.Errorf("%s upsert: %w", coll.Name(), err)
}

// updateExisting 只更新既有文件，不存在時回傳 ErrNotFound.
func updateExisting(ctx context.Context, coll *mongo.Collection, filter bson.M, update interface{}, out interface{}) error {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("%s update: %w", coll.Name(), err)
	}
	return nil
}

// literal 包裝使用者提供的值，避免在 pipeline 中被解讀為欄位路徑或運算子.
func literal(v interface{}) bson.M {
	return bson.M{"$literal": v}
}

func ifNull(field string, fallback interface{}) bson.M {
	return bson.M{"$ifNull": bson.A{field, fallback}}
}

// rankedStatus 只有新等級高於目前等級時才採用新狀態；與 status_rank 的 $max 放在同一個 $set 階段，
// 兩者都讀取更新前的文件.
func rankedStatus(status string, rank int) bson.M {
	current := ifNull("$status_rank", -1)
	return bson.M{
		"status": bson.M{"$cond": bson.A{
			bson.M{"$gt": bson.A{rank, current}},
			literal(status),
			"$status",
		}},
		"status_rank": bson.M{"$max": bson.A{current, rank}},
	}
}
