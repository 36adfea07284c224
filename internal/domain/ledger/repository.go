package ledger

import (
	"context"
	"time"

	"github.com/cashledger/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// LedgerRepository persists daily ledgers. Implementations are bound to a
// shared.Scope and narrow every query to its tenant.
type LedgerRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*DailyLedger, error)
	// FindByIDForUpdate reads the ledger and holds a row lock until the transaction ends
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*DailyLedger, error)
	FindByUnitAndDate(ctx context.Context, unitID uuid.UUID, businessDate time.Time) (*DailyLedger, error)
	// FindByUnitInRange returns ledgers of a unit with from <= business_date <= to
	FindByUnitInRange(ctx context.Context, unitID uuid.UUID, from, to time.Time) ([]DailyLedger, error)
	FindByStatus(ctx context.Context, status LedgerStatus, filter shared.Filter) ([]DailyLedger, int64, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]DailyLedger, int64, error)
	// Create inserts atomically; a duplicate (tenant, unit, date) returns ErrLedgerExists
	Create(ctx context.Context, ledger *DailyLedger) error
	// SaveWithLock updates with an optimistic version check
	SaveWithLock(ctx context.Context, ledger *DailyLedger) error
}

// EntryRepository persists revenue entries
type EntryRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*RevenueEntry, error)
	FindByLedger(ctx context.Context, ledgerID uuid.UUID, includeInactive bool) ([]RevenueEntry, error)
	// FindOverlapping returns active entries of the ledger whose [start, end)
	// intersects interval, excluding excludeID
	FindOverlapping(ctx context.Context, ledgerID uuid.UUID, interval Interval, excludeID uuid.UUID) ([]RevenueEntry, error)
	Create(ctx context.Context, entry *RevenueEntry) error
	SaveWithLock(ctx context.Context, entry *RevenueEntry) error
}

// AdjustmentRepository persists adjustment requests
type AdjustmentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*AdjustmentRequest, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*AdjustmentRequest, error)
	FindPendingByEntry(ctx context.Context, entryID uuid.UUID) (*AdjustmentRequest, error)
	FindByEntry(ctx context.Context, entryID uuid.UUID) ([]AdjustmentRequest, error)
	FindByStatus(ctx context.Context, status AdjustmentStatus, filter shared.Filter) ([]AdjustmentRequest, int64, error)
	// Create inserts atomically; a second pending request for the entry returns ErrPendingRequestExists
	Create(ctx context.Context, request *AdjustmentRequest) error
	SaveWithLock(ctx context.Context, request *AdjustmentRequest) error
}

// Repositories groups the repositories sharing one scope and, inside
// Store.Transaction, one transaction.
type Repositories interface {
	Ledgers() LedgerRepository
	Entries() EntryRepository
	Adjustments() AdjustmentRepository
}

// Store hands out scope-bound repositories
type Store interface {
	Repositories(scope shared.Scope) Repositories
	// Transaction runs fn atomically; nothing fn writes is visible unless it returns nil
	Transaction(ctx context.Context, scope shared.Scope, fn func(repos Repositories) error) error
}

// UnitAccessGuard decides whether a user may act on an operating unit
type UnitAccessGuard interface {
	Authorize(ctx context.Context, userID, unitID, tenantID uuid.UUID) (bool, error)
}

// UnitAssignment grants a user the right to operate a unit
type UnitAssignment struct {
	TenantID  uuid.UUID `json:"tenant_id"`
	UserID    uuid.UUID `json:"user_id"`
	UnitID    uuid.UUID `json:"unit_id"`
	GrantedBy uuid.UUID `json:"granted_by"`
	CreatedAt time.Time `json:"created_at"`
}

// UnitAssignmentRepository manages the user to unit assignment table
type UnitAssignmentRepository interface {
	UnitAccessGuard
	Assign(ctx context.Context, assignment UnitAssignment) error
	Revoke(ctx context.Context, tenantID, userID, unitID uuid.UUID) error
	ListByUser(ctx context.Context, tenantID, userID uuid.UUID) ([]UnitAssignment, error)
}
