package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const deliveredKeyPrefix = "wa:delivered:"

// RedisDeliveredCache remembers provider message ids that were already answered,
// so replayed webhooks can be dropped before touching the database.
type RedisDeliveredCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisDeliveredCache(rdb *redis.Client, ttl time.Duration) *RedisDeliveredCache {
	return &RedisDeliveredCache{rdb: rdb, ttl: ttl}
}

func deliveredKey(waMessageID string) string {
	return deliveredKeyPrefix + waMessageID
}

func (c *RedisDeliveredCache) MarkDelivered(ctx context.Context, waMessageID string, messageID int64) error {
	return c.rdb.Set(ctx, deliveredKey(waMessageID), messageID, c.ttl).Err()
}

func (c *RedisDeliveredCache) IsDelivered(ctx context.Context, waMessageID string) (bool, error) {
	_, err := c.rdb.Get(ctx, deliveredKey(waMessageID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get %s: %w", waMessageID, err)
	}
	return true, nil
}

// Forget drops the entry, used when a user's sessions get archived.
func (c *RedisDeliveredCache) Forget(ctx context.Context, waMessageIDs ...string) error {
	if len(waMessageIDs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(waMessageIDs))
	for _, id := range waMessageIDs {
		keys = append(keys, deliveredKey(id))
	}
	return c.rdb.Del(ctx, keys...).Err()
}

func (c *RedisDeliveredCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
