package tracker

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

// RedisStore is the default Store implementation: a KV client is the
// natural fit for "overwrite a document at a path" semantics (spec §4.6).
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an already-connected go-redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Put overwrites the status document at key.
func (s *RedisStore) Put(ctx context.Context, key string, status Status) error {
	raw, err := json.Marshal(status)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, raw, 0).Err()
}
