package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers processed keys (event ids, Idempotency-Key headers)
// and optionally the result produced for them.
type IdempotencyStore interface {
	// MarkProcessed returns true if the key was newly marked, false if it was already present
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// IsProcessed checks if a key has already been marked
	IsProcessed(ctx context.Context, key string) (bool, error)
	// SaveResult stores the result produced for key
	SaveResult(ctx context.Context, key string, result []byte, ttl time.Duration) error
	// LoadResult returns the stored result, if any
	LoadResult(ctx context.Context, key string) ([]byte, bool, error)
	// Release forgets a key so a failed attempt can be retried
	Release(ctx context.Context, key string) error
	Close() error
}

// IdempotencyConfig holds configuration for idempotency handling
type IdempotencyConfig struct {
	TTL     time.Duration
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
