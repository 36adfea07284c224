package persistence

import (
	"context"

	"github.com/cashledger/backend/internal/domain/ledger"
	"github.com/cashledger/backend/internal/domain/shared"
	"github.com/cashledger/backend/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TenantTables are the tables narrowed by the tenant callbacks
var TenantTables = []string{"daily_ledgers", "revenue_entries", "adjustment_requests"}

// GormLedgerStore implements ledger.Store on a tenant-guarded database
type GormLedgerStore struct {
	db *tenant.TenantDB
}

// NewGormLedgerStore creates a new GormLedgerStore
func NewGormLedgerStore(db *tenant.TenantDB) *GormLedgerStore {
	return &GormLedgerStore{db: db}
}

// Repositories returns repositories bound to scope outside any transaction
func (s *GormLedgerStore) Repositories(scope shared.Scope) ledger.Repositories {
	return &gormRepositories{db: s.db.DB(), scope: scope}
}

// Transaction runs fn in one database transaction. Errors returned by fn
// roll the transaction back and come out translated to domain errors.
func (s *GormLedgerStore) Transaction(ctx context.Context, scope shared.Scope, fn func(repos ledger.Repositories) error) error {
	err := s.db.Transaction(ctx, scope, func(tx *gorm.DB) error {
		return fn(&gormRepositories{db: tx, scope: scope})
	})
	if err != nil {
		return translateError(err, "transaction", nil)
	}
	return nil
}

type gormRepositories struct {
	db    *gorm.DB
	scope shared.Scope
}

func (r *gormRepositories) Ledgers() ledger.LedgerRepository {
	return NewGormLedgerRepository(r.db, r.scope)
}

func (r *gormRepositories) Entries() ledger.EntryRepository {
	return NewGormEntryRepository(r.db, r.scope)
}

func (r *gormRepositories) Adjustments() ledger.AdjustmentRepository {
	return NewGormAdjustmentRepository(r.db, r.scope)
}

// scoped binds a statement chain to ctx and the caller's scope
func scoped(ctx context.Context, db *gorm.DB, scope shared.Scope) *gorm.DB {
	return db.WithContext(tenant.WithScope(ctx, scope))
}

// saveWithVersion applies updates where the stored version equals version and
// bumps it. No matching row means the row is gone or someone saved first.
func saveWithVersion(db *gorm.DB, model any, resource string, id uuid.UUID, version int, updates map[string]any, onSaved func()) error {
	updates["version"] = gorm.Expr("version + 1")
	result := db.Model(model).Where("id = ? AND version = ?", id, version).Updates(updates)
	if result.Error != nil {
		return translateError(result.Error, resource, nil)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := db.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
			return translateError(err, resource, nil)
		}
		if count == 0 {
			return shared.ErrNotFound.With("resource", resource)
		}
		return shared.ErrConcurrencyConflict.With("resource", resource)
	}
	onSaved()
	return nil
}

// Ensure GormLedgerStore implements ledger.Store
var _ ledger.Store = (*GormLedgerStore)(nil)
