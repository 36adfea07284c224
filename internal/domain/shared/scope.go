package shared

import (
	"slices"

	"github.com/google/uuid"
)

// Scope is the explicit request context passed into every ledger operation.
// A scope with System set and no tenant is the back-office caller; it may read
// across tenants but never writes tenant data.
type Scope struct {
	TenantID    uuid.UUID
	UserID      uuid.UUID
	UnitID      uuid.UUID
	Permissions []string
	System      bool
}

// Permissions used to gate ledger operations
const (
	PermLedgerRead        = "ledger:read"
	PermLedgerSubmit      = "ledger:submit"
	PermLedgerReview      = "ledger:review"
	PermLedgerClose       = "ledger:close"
	PermLedgerReconcile   = "ledger:reconcile"
	PermLedgerDispatch    = "ledger:dispatch"
	PermEntryWrite        = "entry:write"
	PermAdjustmentRequest = "adjustment:request"
	PermAdjustmentDecide  = "adjustment:decide"
)

// ErrTenantRequired is returned when a non-system caller has no tenant. It is
// a not-found so that callers cannot probe for other tenants' data.
var ErrTenantRequired = ErrNotFound.With("reason", "tenant_missing")

// NewTenantScope creates a tenant-facing scope
func NewTenantScope(tenantID, userID uuid.UUID, permissions ...string) Scope {
	return Scope{
		TenantID:    tenantID,
		UserID:      userID,
		Permissions: permissions,
	}
}

// SystemScope returns the privileged back-office scope
func SystemScope(userID uuid.UUID) Scope {
	return Scope{UserID: userID, System: true}
}

// HasTenant reports whether the scope is bound to a tenant
func (s Scope) HasTenant() bool {
	return s.TenantID != uuid.Nil
}

// IsSystem reports whether the scope bypasses tenant narrowing
func (s Scope) IsSystem() bool {
	return s.System && !s.HasTenant()
}

// WithUnit returns a copy of the scope bound to a unit
func (s Scope) WithUnit(unitID uuid.UUID) Scope {
	s.UnitID = unitID
	return s
}

// Can reports whether the scope carries the permission. "*" grants everything.
func (s Scope) Can(permission string) bool {
	return slices.Contains(s.Permissions, permission) || slices.Contains(s.Permissions, "*")
}

// RequireTenant fails closed when the caller has no tenant
func (s Scope) RequireTenant() error {
	if !s.HasTenant() {
		return ErrTenantRequired
	}
	return nil
}

// RequireReader allows tenant callers and the system caller
func (s Scope) RequireReader() error {
	if s.IsSystem() {
		return nil
	}
	if err := s.RequireTenant(); err != nil {
		return err
	}
	if !s.Can(PermLedgerRead) {
		return ErrForbidden.With("permission", PermLedgerRead)
	}
	return nil
}

// Require checks the tenant and a permission for a mutating operation
func (s Scope) Require(permission string) error {
	if err := s.RequireTenant(); err != nil {
		return err
	}
	if s.UserID == uuid.Nil {
		return ErrForbidden.WithMessage("Caller identity is required")
	}
	if !s.Can(permission) {
		return ErrForbidden.With("permission", permission)
	}
	return nil
}
