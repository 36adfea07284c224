// Package ledger implements the daily ledger workflow: submission, supervisor
// review, closing, reconciliation, revenue entry maintenance and governed
// adjustments. Every operation takes an explicit shared.Scope.
package ledger

import (
	"context"

	"github.com/cashledger/backend/internal/domain/ledger"
	"github.com/cashledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Config holds the collaborators shared by the ledger services
type Config struct {
	Store          ledger.Store
	Guard          ledger.UnitAccessGuard
	Sealer         ledger.Sealer
	Clock          shared.Clock
	EventPublisher shared.EventPublisher
	Logger         *zap.Logger
}

type core struct {
	store     ledger.Store
	guard     ledger.UnitAccessGuard
	sealer    ledger.Sealer
	clock     shared.Clock
	publisher shared.EventPublisher
	logger    *zap.Logger
}

func newCore(cfg Config) core {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = shared.SystemClock{}
	}
	return core{
		store:     cfg.Store,
		guard:     cfg.Guard,
		sealer:    cfg.Sealer,
		clock:     clock,
		publisher: cfg.EventPublisher,
		logger:    logger,
	}
}

// publish dispatches and clears the pending events of committed aggregates
func (c core) publish(ctx context.Context, aggregates ...shared.AggregateRoot) {
	var events []shared.DomainEvent
	for _, agg := range aggregates {
		if agg == nil {
			continue
		}
		events = append(events, agg.GetDomainEvents()...)
		agg.ClearDomainEvents()
	}
	if c.publisher == nil || len(events) == 0 {
		return
	}
	if err := c.publisher.Publish(ctx, events...); err != nil {
		c.logger.Warn("Failed to publish ledger events", zap.Int("count", len(events)), zap.Error(err))
	}
}

// fail logs err with the weight its kind deserves and returns it unchanged
func (c core) fail(op string, scope shared.Scope, err error, fields ...zap.Field) error {
	de := shared.AsDomainError(err)
	fields = append(fields,
		zap.String("operation", op),
		zap.String("tenant_id", scope.TenantID.String()),
		zap.String("user_id", scope.UserID.String()),
		zap.String("error_kind", string(de.Kind)),
		zap.String("error_code", de.Code),
		zap.Any("error_context", de.Context),
		zap.Error(err),
	)
	switch de.Kind {
	case shared.KindIntegrity, shared.KindInfrastructure:
		c.logger.Error("Ledger operation failed", fields...)
	case shared.KindAuthorization, shared.KindConflict:
		c.logger.Warn("Ledger operation rejected", fields...)
	default:
		c.logger.Debug("Ledger operation rejected", fields...)
	}
	return de
}

// authorizedLedger loads a ledger outside of any transaction and checks that the
// caller may act on its unit. The unit of a ledger never changes, so the check
// stays valid for the transaction that follows.
func (c core) authorizedLedger(ctx context.Context, scope shared.Scope, ledgerID uuid.UUID) (*ledger.DailyLedger, error) {
	l, err := c.store.Repositories(scope).Ledgers().FindByID(ctx, ledgerID)
	if err != nil {
		return nil, err
	}
	if err := ledger.AuthorizeUnit(ctx, c.guard, scope, l.UnitID); err != nil {
		return nil, err
	}
	return l, nil
}

// checkNoOverlap enforces the half-open interval invariant for entry inside the transaction
func checkNoOverlap(ctx context.Context, repos ledger.Repositories, entry *ledger.RevenueEntry) error {
	if !entry.Active {
		return nil
	}
	others, err := repos.Entries().FindOverlapping(ctx, entry.LedgerID, entry.Interval(), entry.ID)
	if err != nil {
		return err
	}
	return ledger.CheckOverlap(entry.Interval(), others, entry.ID)
}

// liveTotal sums the active entries of a ledger
func liveTotal(ctx context.Context, repos ledger.Repositories, ledgerID uuid.UUID) (decimal.Decimal, error) {
	entries, err := repos.Entries().FindByLedger(ctx, ledgerID, false)
	if err != nil {
		return decimal.Zero, err
	}
	return ledger.SumActive(entries), nil
}
