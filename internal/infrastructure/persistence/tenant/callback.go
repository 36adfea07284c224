package tenant

import (
	"slices"

	"github.com/cashledger/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TenantCallback provides GORM callback hooks for automatic tenant filtering
// and stamping on a fixed set of tables.
type TenantCallback struct {
	tenantColumn string
	tables       []string
}

// NewTenantCallback creates a new tenant callback handler
func NewTenantCallback(tenantColumn string, tables ...string) *TenantCallback {
	if tenantColumn == "" {
		tenantColumn = "tenant_id"
	}
	return &TenantCallback{
		tenantColumn: tenantColumn,
		tables:       tables,
	}
}

// RegisterCallbacks registers tenant callbacks with GORM
func (tc *TenantCallback) RegisterCallbacks(db *gorm.DB) error {
	cb := db.Callback()
	if err := cb.Query().Before("gorm:query").Register("tenant:before_query", tc.beforeRead); err != nil {
		return err
	}
	if err := cb.Row().Before("gorm:row").Register("tenant:before_row", tc.beforeRead); err != nil {
		return err
	}
	if err := cb.Update().Before("gorm:update").Register("tenant:before_update", tc.beforeWrite); err != nil {
		return err
	}
	if err := cb.Delete().Before("gorm:delete").Register("tenant:before_delete", tc.beforeWrite); err != nil {
		return err
	}
	return cb.Create().Before("gorm:create").Register("tenant:before_create", tc.beforeCreate)
}

// beforeRead narrows SELECTs. The system caller sees every tenant.
func (tc *TenantCallback) beforeRead(db *gorm.DB) {
	if !tc.guards(db) {
		return
	}
	scope, ok := ScopeFromContext(db.Statement.Context)
	switch {
	case ok && scope.IsSystem():
		return
	case ok && scope.HasTenant():
		tc.addTenantFilter(db, scope)
	default:
		failClosed(db)
	}
}

// beforeWrite narrows UPDATE and DELETE. The system caller never writes tenant data.
func (tc *TenantCallback) beforeWrite(db *gorm.DB) {
	if !tc.guards(db) {
		return
	}
	scope, ok := ScopeFromContext(db.Statement.Context)
	if ok && scope.HasTenant() {
		tc.addTenantFilter(db, scope)
		return
	}
	if ok && scope.IsSystem() {
		_ = db.AddError(shared.ErrForbidden.WithMessage("System callers cannot modify tenant data"))
		return
	}
	failClosed(db)
}

// beforeCreate stamps the caller's tenant, overriding whatever the row carried
func (tc *TenantCallback) beforeCreate(db *gorm.DB) {
	if !tc.guards(db) {
		return
	}
	scope, ok := ScopeFromContext(db.Statement.Context)
	if !ok || !scope.HasTenant() {
		_ = db.AddError(shared.ErrTenantRequired)
		return
	}
	db.Statement.SetColumn(tc.tenantColumn, scope.TenantID, true)
}

// guards reports whether the statement targets a tenant table
func (tc *TenantCallback) guards(db *gorm.DB) bool {
	if db.Statement.Unscoped {
		return false
	}
	table := db.Statement.Table
	if table == "" && db.Statement.Schema != nil {
		table = db.Statement.Schema.Table
	}
	return slices.Contains(tc.tables, table)
}

func (tc *TenantCallback) addTenantFilter(db *gorm.DB, scope shared.Scope) {
	db.Statement.AddClause(clause.Where{
		Exprs: []clause.Expression{
			clause.Eq{
				Column: clause.Column{Table: clause.CurrentTable, Name: tc.tenantColumn},
				Value:  scope.TenantID,
			},
		},
	})
}

// failClosed makes the statement match nothing, so a caller without a tenant
// sees "not found" rather than another tenant's rows
func failClosed(db *gorm.DB) {
	db.Statement.AddClause(clause.Where{
		Exprs: []clause.Expression{clause.Expr{SQL: "1 = 0"}},
	})
}
