package ledger

import (
	"context"

	"github.com/cashledger/backend/internal/domain/ledger"
	"github.com/cashledger/backend/internal/domain/shared"
	"github.com/cashledger/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EntryService maintains the revenue entries of ledgers that are still Pending.
// Once a ledger leaves Pending, entries change only through AdjustmentService.
type EntryService struct {
	core
}

// NewEntryService creates a new EntryService
func NewEntryService(cfg Config) *EntryService {
	return &EntryService{core: newCore(cfg)}
}

// Create adds an entry to a pending ledger
func (s *EntryService) Create(ctx context.Context, scope shared.Scope, ledgerID uuid.UUID, req EntryRequest) (_ *EntryResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "entry", "create", telemetry.UUIDAttr(telemetry.SpanAttrLedgerID, ledgerID))
	defer func() { telemetry.EndSpan(span, err) }()

	fields := []zap.Field{zap.String("ledger_id", ledgerID.String())}
	if err := scope.Require(shared.PermEntryWrite); err != nil {
		return nil, s.fail("create_entry", scope, err, fields...)
	}
	l, err := s.store.Repositories(scope).Ledgers().FindByID(ctx, ledgerID)
	if err != nil {
		return nil, s.fail("create_entry", scope, err, fields...)
	}
	now := s.clock.Now()
	input := req.fields()
	if err := input.Validate(now); err != nil {
		return nil, s.fail("create_entry", scope, err, fields...)
	}
	if err := ledger.AuthorizeUnit(ctx, s.guard, scope, l.UnitID); err != nil {
		return nil, s.fail("create_entry", scope, err, fields...)
	}

	var created *ledger.RevenueEntry
	err = s.store.Transaction(ctx, scope, func(repos ledger.Repositories) error {
		locked, err := repos.Ledgers().FindByIDForUpdate(ctx, ledgerID)
		if err != nil {
			return err
		}
		if err := locked.GuardDirectEdit(); err != nil {
			return err
		}
		entry, err := ledger.NewRevenueEntry(scope.TenantID, locked.ID, scope.UserID, input, now)
		if err != nil {
			return err
		}
		if err := checkNoOverlap(ctx, repos, entry); err != nil {
			return err
		}
		created = entry
		return repos.Entries().Create(ctx, entry)
	})
	if err != nil {
		return nil, s.fail("create_entry", scope, err, fields...)
	}

	s.logger.Info("Revenue entry created",
		zap.String("entry_id", created.ID.String()),
		zap.String("ledger_id", created.LedgerID.String()),
		zap.String("tenant_id", created.TenantID.String()),
		zap.String("amount", created.Amount.StringFixed(2)))
	return toEntryResponse(created), nil
}

// Update replaces the fields of an active entry of a pending ledger
func (s *EntryService) Update(ctx context.Context, scope shared.Scope, entryID uuid.UUID, req EntryRequest) (*EntryResponse, error) {
	fields := []zap.Field{zap.String("entry_id", entryID.String())}
	if err := scope.Require(shared.PermEntryWrite); err != nil {
		return nil, s.fail("update_entry", scope, err, fields...)
	}
	entry, err := s.store.Repositories(scope).Entries().FindByID(ctx, entryID)
	if err != nil {
		return nil, s.fail("update_entry", scope, err, fields...)
	}
	now := s.clock.Now()
	input := req.fields()
	if err := input.Validate(now); err != nil {
		return nil, s.fail("update_entry", scope, err, fields...)
	}
	if _, err := s.authorizedLedger(ctx, scope, entry.LedgerID); err != nil {
		return nil, s.fail("update_entry", scope, err, fields...)
	}

	var updated *ledger.RevenueEntry
	err = s.store.Transaction(ctx, scope, func(repos ledger.Repositories) error {
		current, err := s.lockForDirectEdit(ctx, repos, entryID)
		if err != nil {
			return err
		}
		if err := current.Update(input, now); err != nil {
			return err
		}
		if err := checkNoOverlap(ctx, repos, current); err != nil {
			return err
		}
		updated = current
		return repos.Entries().SaveWithLock(ctx, current)
	})
	if err != nil {
		return nil, s.fail("update_entry", scope, err, fields...)
	}

	s.logger.Info("Revenue entry updated",
		zap.String("entry_id", updated.ID.String()),
		zap.String("ledger_id", updated.LedgerID.String()),
		zap.String("tenant_id", updated.TenantID.String()))
	return toEntryResponse(updated), nil
}

// Delete deactivates an entry of a pending ledger
func (s *EntryService) Delete(ctx context.Context, scope shared.Scope, entryID uuid.UUID) error {
	fields := []zap.Field{zap.String("entry_id", entryID.String())}
	if err := scope.Require(shared.PermEntryWrite); err != nil {
		return s.fail("delete_entry", scope, err, fields...)
	}
	entry, err := s.store.Repositories(scope).Entries().FindByID(ctx, entryID)
	if err != nil {
		return s.fail("delete_entry", scope, err, fields...)
	}
	if _, err := s.authorizedLedger(ctx, scope, entry.LedgerID); err != nil {
		return s.fail("delete_entry", scope, err, fields...)
	}

	now := s.clock.Now()
	err = s.store.Transaction(ctx, scope, func(repos ledger.Repositories) error {
		current, err := s.lockForDirectEdit(ctx, repos, entryID)
		if err != nil {
			return err
		}
		if err := current.Deactivate(now); err != nil {
			return err
		}
		return repos.Entries().SaveWithLock(ctx, current)
	})
	if err != nil {
		return s.fail("delete_entry", scope, err, fields...)
	}

	s.logger.Info("Revenue entry deactivated",
		zap.String("entry_id", entryID.String()),
		zap.String("ledger_id", entry.LedgerID.String()),
		zap.String("tenant_id", entry.TenantID.String()))
	return nil
}

// lockForDirectEdit takes the owning ledger's row lock, checks the direct edit
// gate and returns the entry as currently stored. Holding the ledger lock keeps
// a concurrent close from committing between the gate and the write.
func (s *EntryService) lockForDirectEdit(ctx context.Context, repos ledger.Repositories, entryID uuid.UUID) (*ledger.RevenueEntry, error) {
	entry, err := repos.Entries().FindByID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	l, err := repos.Ledgers().FindByIDForUpdate(ctx, entry.LedgerID)
	if err != nil {
		return nil, err
	}
	if err := l.GuardDirectEdit(); err != nil {
		return nil, err
	}
	// Re-read under the lock
	return repos.Entries().FindByID(ctx, entryID)
}

// GetByID returns an entry visible to the caller
func (s *EntryService) GetByID(ctx context.Context, scope shared.Scope, entryID uuid.UUID) (*EntryResponse, error) {
	if err := scope.RequireReader(); err != nil {
		return nil, s.fail("get_entry", scope, err)
	}
	entry, err := s.store.Repositories(scope).Entries().FindByID(ctx, entryID)
	if err != nil {
		return nil, s.fail("get_entry", scope, err, zap.String("entry_id", entryID.String()))
	}
	return toEntryResponse(entry), nil
}

// ListByLedger returns the entries of a ledger ordered by start time
func (s *EntryService) ListByLedger(ctx context.Context, scope shared.Scope, ledgerID uuid.UUID, includeInactive bool) ([]EntryResponse, error) {
	if err := scope.RequireReader(); err != nil {
		return nil, s.fail("list_entries", scope, err)
	}
	repos := s.store.Repositories(scope)
	if _, err := repos.Ledgers().FindByID(ctx, ledgerID); err != nil {
		return nil, s.fail("list_entries", scope, err, zap.String("ledger_id", ledgerID.String()))
	}
	entries, err := repos.Entries().FindByLedger(ctx, ledgerID, includeInactive)
	if err != nil {
		return nil, s.fail("list_entries", scope, err, zap.String("ledger_id", ledgerID.String()))
	}
	return toEntryResponses(entries), nil
}

// FindOverlaps returns the active entries of a ledger whose range intersects
// interval, ignoring excludeID. Callers use it to preview a write.
func (s *EntryService) FindOverlaps(ctx context.Context, scope shared.Scope, ledgerID uuid.UUID, interval ledger.Interval, excludeID uuid.UUID) ([]EntryResponse, error) {
	if err := scope.RequireReader(); err != nil {
		return nil, s.fail("find_overlaps", scope, err)
	}
	if !interval.Valid() {
		return nil, s.fail("find_overlaps", scope, ledger.ErrInvalidTimeRange)
	}
	entries, err := s.store.Repositories(scope).Entries().FindOverlapping(ctx, ledgerID, interval, excludeID)
	if err != nil {
		return nil, s.fail("find_overlaps", scope, err, zap.String("ledger_id", ledgerID.String()))
	}
	return toEntryResponses(entries), nil
}
