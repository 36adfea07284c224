package cache

import (
	"context"

	"github.com/cashledger/backend/internal/domain/ledger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CachedUnitAccess caches Authorize decisions in front of the assignment
// repository. Assign and Revoke drop the cached decision for the pair.
type CachedUnitAccess struct {
	repo   ledger.UnitAssignmentRepository
	cache  AccessCache
	logger *zap.Logger
}

// NewCachedUnitAccess wraps repo with cache
func NewCachedUnitAccess(repo ledger.UnitAssignmentRepository, cache AccessCache, logger *zap.Logger) *CachedUnitAccess {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedUnitAccess{repo: repo, cache: cache, logger: logger}
}

// Authorize answers from the cache when possible. Cache failures fall through
// to the repository.
func (c *CachedUnitAccess) Authorize(ctx context.Context, userID, unitID, tenantID uuid.UUID) (bool, error) {
	key := AccessKey{TenantID: tenantID, UserID: userID, UnitID: unitID}

	allowed, found, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn("Unit access cache read failed", zap.Error(err))
	} else if found {
		return allowed, nil
	}

	allowed, err = c.repo.Authorize(ctx, userID, unitID, tenantID)
	if err != nil {
		return false, err
	}
	if err := c.cache.Set(ctx, key, allowed); err != nil {
		c.logger.Warn("Unit access cache write failed", zap.Error(err))
	}
	return allowed, nil
}

func (c *CachedUnitAccess) Assign(ctx context.Context, assignment ledger.UnitAssignment) error {
	if err := c.repo.Assign(ctx, assignment); err != nil {
		return err
	}
	c.invalidate(ctx, AccessKey{TenantID: assignment.TenantID, UserID: assignment.UserID, UnitID: assignment.UnitID})
	return nil
}

func (c *CachedUnitAccess) Revoke(ctx context.Context, tenantID, userID, unitID uuid.UUID) error {
	if err := c.repo.Revoke(ctx, tenantID, userID, unitID); err != nil {
		return err
	}
	c.invalidate(ctx, AccessKey{TenantID: tenantID, UserID: userID, UnitID: unitID})
	return nil
}

func (c *CachedUnitAccess) ListByUser(ctx context.Context, tenantID, userID uuid.UUID) ([]ledger.UnitAssignment, error) {
	return c.repo.ListByUser(ctx, tenantID, userID)
}

func (c *CachedUnitAccess) invalidate(ctx context.Context, key AccessKey) {
	if err := c.cache.Delete(ctx, key); err != nil {
		c.logger.Error("Unit access cache invalidation failed",
			zap.String("user_id", key.UserID.String()),
			zap.String("unit_id", key.UnitID.String()),
			zap.Error(err),
		)
	}
}

var _ ledger.UnitAssignmentRepository = (*CachedUnitAccess)(nil)
