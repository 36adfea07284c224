// Package tenant provides multi-tenant database scoping for GORM.
//
// The request scope travels in the context. Callbacks registered on the
// *gorm.DB read it back and narrow every statement against a tenant table:
//
//	ctx = tenant.WithScope(ctx, scope)
//	db.WithContext(ctx).Find(&ledgers) // WHERE "daily_ledgers"."tenant_id" = '...'
//
// A system scope bypasses narrowing; a context without a tenant matches nothing.
package tenant

import (
	"context"

	"github.com/cashledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type scopeKey struct{}

// WithScope returns a context carrying the request scope
func WithScope(ctx context.Context, scope shared.Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, scope)
}

// ScopeFromContext returns the scope stored by WithScope
func ScopeFromContext(ctx context.Context) (shared.Scope, bool) {
	if ctx == nil {
		return shared.Scope{}, false
	}
	scope, ok := ctx.Value(scopeKey{}).(shared.Scope)
	return scope, ok
}

// TenantScope applies an explicit tenant filter, for tables the callbacks do not guard
func TenantScope(tenantID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tenant_id = ?", tenantID)
	}
}

// TenantDB wraps a GORM DB whose tenant callbacks are registered
type TenantDB struct {
	db *gorm.DB
}

// NewTenantDB registers the tenant callbacks for tables and wraps db
func NewTenantDB(db *gorm.DB, tables ...string) (*TenantDB, error) {
	if err := NewTenantCallback("tenant_id", tables...).RegisterCallbacks(db); err != nil {
		return nil, err
	}
	return &TenantDB{db: db}, nil
}

// DB returns the underlying GORM DB. Statements still pass through the callbacks.
func (t *TenantDB) DB() *gorm.DB {
	return t.db
}

// WithScope returns a session bound to ctx and scope
func (t *TenantDB) WithScope(ctx context.Context, scope shared.Scope) *gorm.DB {
	return t.db.WithContext(WithScope(ctx, scope))
}

// Transaction executes fn within a database transaction bound to scope
func (t *TenantDB) Transaction(ctx context.Context, scope shared.Scope, fn func(tx *gorm.DB) error) error {
	return t.WithScope(ctx, scope).Transaction(fn)
}
