package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

// AccessKey identifies one unit access decision
type AccessKey struct {
	TenantID uuid.UUID
	UserID   uuid.UUID
	UnitID   uuid.UUID
}

func (k AccessKey) String() string {
	return k.TenantID.String() + ":" + k.UserID.String() + ":" + k.UnitID.String()
}

// AccessCache stores unit access decisions
type AccessCache interface {
	// Get returns the cached decision. found is false on a miss.
	Get(ctx context.Context, key AccessKey) (allowed, found bool, err error)
	Set(ctx context.Context, key AccessKey, allowed bool) error
	Delete(ctx context.Context, key AccessKey) error
}

// InMemoryAccessCache is a bounded LRU with per-entry expiry
type InMemoryAccessCache struct {
	lru *expirable.LRU[AccessKey, bool]
}

// NewInMemoryAccessCache creates a cache holding at most size decisions for ttl
func NewInMemoryAccessCache(size int, ttl time.Duration) *InMemoryAccessCache {
	if size <= 0 {
		size = 10000
	}
	return &InMemoryAccessCache{lru: expirable.NewLRU[AccessKey, bool](size, nil, ttl)}
}

func (c *InMemoryAccessCache) Get(_ context.Context, key AccessKey) (bool, bool, error) {
	allowed, ok := c.lru.Get(key)
	return allowed, ok, nil
}

func (c *InMemoryAccessCache) Set(_ context.Context, key AccessKey, allowed bool) error {
	c.lru.Add(key, allowed)
	return nil
}

func (c *InMemoryAccessCache) Delete(_ context.Context, key AccessKey) error {
	c.lru.Remove(key)
	return nil
}

// Len returns the number of cached decisions
func (c *InMemoryAccessCache) Len() int {
	return c.lru.Len()
}

const defaultAccessPrefix = "cashledger:unit_access:"

// RedisAccessCache shares decisions between instances so that a revoke on
// one instance is seen by all
type RedisAccessCache struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
}

// NewRedisAccessCache creates a Redis backed access cache
func NewRedisAccessCache(client redis.UniversalClient, ttl time.Duration) *RedisAccessCache {
	return &RedisAccessCache{client: client, keyPrefix: defaultAccessPrefix, ttl: ttl}
}

func (c *RedisAccessCache) key(k AccessKey) string {
	return c.keyPrefix + k.String()
}

func (c *RedisAccessCache) Get(ctx context.Context, key AccessKey) (bool, bool, error) {
	val, err := c.client.Get(ctx, c.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("failed to read access decision: %w", err)
	}
	return val == "1", true, nil
}

func (c *RedisAccessCache) Set(ctx context.Context, key AccessKey, allowed bool) error {
	val := "0"
	if allowed {
		val = "1"
	}
	if err := c.client.Set(ctx, c.key(key), val, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store access decision: %w", err)
	}
	return nil
}

func (c *RedisAccessCache) Delete(ctx context.Context, key AccessKey) error {
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete access decision: %w", err)
	}
	return nil
}

var (
	_ AccessCache = (*InMemoryAccessCache)(nil)
	_ AccessCache = (*RedisAccessCache)(nil)
)
