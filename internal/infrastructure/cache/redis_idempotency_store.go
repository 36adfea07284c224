package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cashledger/backend/internal/domain/shared"
	"github.com/redis/go-redis/v9"
)

const defaultIdempotencyPrefix = "cashledger:idempotency:"

// RedisIdempotencyStore implements shared.IdempotencyStore on Redis so that
// every instance sees the same keys
type RedisIdempotencyStore struct {
	client     redis.UniversalClient
	keyPrefix  string
	ownsClient bool
}

// NewRedisIdempotencyStore creates a store on a shared client. The caller keeps
// ownership of the client.
func NewRedisIdempotencyStore(client redis.UniversalClient, keyPrefix string) *RedisIdempotencyStore {
	if keyPrefix == "" {
		keyPrefix = defaultIdempotencyPrefix
	}
	return &RedisIdempotencyStore{client: client, keyPrefix: keyPrefix}
}

func (s *RedisIdempotencyStore) markKey(key string) string   { return s.keyPrefix + "mark:" + key }
func (s *RedisIdempotencyStore) resultKey(key string) string { return s.keyPrefix + "result:" + key }

// MarkProcessed uses SETNX so that exactly one caller marks the key
func (s *RedisIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.markKey(key), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark %s as processed: %w", key, err)
	}
	return ok, nil
}

// IsProcessed checks if key has been marked
func (s *RedisIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, s.markKey(key)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check %s: %w", key, err)
	}
	return n > 0, nil
}

// SaveResult stores result for key
func (s *RedisIdempotencyStore) SaveResult(ctx context.Context, key string, result []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.resultKey(key), result, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save result for %s: %w", key, err)
	}
	return nil
}

// LoadResult returns the result stored for key
func (s *RedisIdempotencyStore) LoadResult(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, s.resultKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load result for %s: %w", key, err)
	}
	return data, true, nil
}

// Release forgets key
func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.markKey(key), s.resultKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to release %s: %w", key, err)
	}
	return nil
}

// Close closes the client when the store owns it
func (s *RedisIdempotencyStore) Close() error {
	if s.ownsClient {
		return s.client.Close()
	}
	return nil
}

// Ensure RedisIdempotencyStore implements IdempotencyStore
var _ shared.IdempotencyStore = (*RedisIdempotencyStore)(nil)
