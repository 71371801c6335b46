package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"cityhelper/backend/internal/models"
)

// RedisStore persists drafts as JSON values under "draft:<chat_id>". No TTL:
// a draft lives until it is submitted or overwritten.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore wraps an already-connected Redis client.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func draftKey(chatID int64) string {
	return fmt.Sprintf("draft:%d", chatID)
}

func (r *RedisStore) Get(ctx context.Context, chatID int64) (*models.Draft, error) {
	raw, err := r.rdb.Get(ctx, draftKey(chatID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var draft models.Draft
	if err := json.Unmarshal([]byte(raw), &draft); err != nil {
		// Garbage from an older build must not wedge the citizen: treat it as
		// "no draft" so starting over always works.
		log.Printf("WARN: dropping unreadable draft for chat %d: %v", chatID, err)
		return nil, nil
	}
	return &draft, nil
}

func (r *RedisStore) Put(ctx context.Context, chatID int64, draft *models.Draft) error {
	raw, err := json.Marshal(draft)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, draftKey(chatID), raw, 0).Err()
}

func (r *RedisStore) Clear(ctx context.Context, chatID int64) error {
	return r.rdb.Del(ctx, draftKey(chatID)).Err()
}
