package cache

import (
	"context"
	"errors"
	"time"

	"github.com/cashledger/backend/internal/domain/shared"
	"github.com/cashledger/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Backends bundles the cache-backed services used by the server
type Backends struct {
	Idempotency shared.IdempotencyStore
	AccessCache AccessCache
	Locker      Locker
	// Redis is nil when the in-memory backends are in use
	Redis *redis.Client
}

// Close releases the idempotency store and the Redis client
func (b *Backends) Close() error {
	var errs []error
	if b.Idempotency != nil {
		errs = append(errs, b.Idempotency.Close())
	}
	if b.Redis != nil {
		errs = append(errs, b.Redis.Close())
	}
	return errors.Join(errs...)
}

// Factory builds Backends from configuration
type Factory struct {
	redisConfig           config.RedisConfig
	cacheConfig           config.CacheConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to in-memory backends
// when Redis is unreachable. Default is true.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowInMemoryFallback = allow
	}
}

// NewFactory creates a new factory
func NewFactory(redisCfg config.RedisConfig, cacheCfg config.CacheConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		redisConfig:           redisCfg,
		cacheConfig:           cacheCfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// InMemory builds process-local backends. State is not shared between
// instances, so run a single replica with these.
func (f *Factory) InMemory() *Backends {
	return &Backends{
		Idempotency: NewInMemoryIdempotencyStore(5 * time.Minute),
		AccessCache: NewInMemoryAccessCache(f.cacheConfig.UnitAccessSize, f.cacheConfig.UnitAccessTTL),
		Locker:      NewInMemoryLocker(),
	}
}

// FromClient builds Redis backends on an existing client
func (f *Factory) FromClient(client *redis.Client) *Backends {
	return &Backends{
		Idempotency: NewRedisIdempotencyStore(client, ""),
		AccessCache: NewRedisAccessCache(client, f.cacheConfig.UnitAccessTTL),
		Locker:      NewRedisLocker(client),
		Redis:       client,
	}
}

// Create uses Redis when enabled and reachable, otherwise in-memory backends
func (f *Factory) Create(ctx context.Context) (*Backends, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("Redis disabled, using in-memory cache backends")
		return f.InMemory(), nil
	}

	client, err := NewRedisClient(ctx, f.redisConfig)
	if err != nil {
		if !f.allowInMemoryFallback {
			return nil, err
		}
		f.logger.Warn("Redis unavailable, falling back to in-memory cache backends",
			zap.String("addr", f.redisConfig.Addr()),
			zap.Error(err),
		)
		return f.InMemory(), nil
	}

	f.logger.Info("Using Redis cache backends", zap.String("addr", f.redisConfig.Addr()))
	return f.FromClient(client), nil
}
