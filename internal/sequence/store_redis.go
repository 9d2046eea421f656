package sequence

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore backs the generator with Redis INCR, which is atomic server-side.
// Suitable when counters may be rebuilt or the deployment already runs Redis
// for caching; the Postgres store remains the durable default.
type RedisStore struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func redisKey(key Key) string {
	return fmt.Sprintf("seq:%s:%s:%s", key.TenantID, key.Type, key.Period)
}

func (s *RedisStore) Increment(ctx context.Context, key Key) (int64, error) {
	value, err := s.client.Incr(ctx, redisKey(key)).Result()
	if err != nil {
		return 0, fmt.Errorf("increment sequence %s: %w", key, err)
	}
	return value, nil
}

func (s *RedisStore) Current(ctx context.Context, key Key) (int64, error) {
	value, err := s.client.Get(ctx, redisKey(key)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read sequence %s: %w", key, err)
	}
	return value, nil
}

func (s *RedisStore) Reset(ctx context.Context, key Key, value int64) error {
	if err := s.client.Set(ctx, redisKey(key), value, 0).Err(); err != nil {
		return fmt.Errorf("reset sequence %s: %w", key, err)
	}
	return nil
}

var _ Store = (*RedisStore)(nil)
