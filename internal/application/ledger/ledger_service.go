package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/cashledger/backend/internal/domain/ledger"
	"github.com/cashledger/backend/internal/domain/shared"
	"github.com/cashledger/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LedgerService drives the daily ledger state machine
type LedgerService struct {
	core
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(cfg Config) *LedgerService {
	return &LedgerService{core: newCore(cfg)}
}

// Submit creates the ledger for (unit, date), or reopens it when the previous
// submission was rejected. Any other existing ledger fails with ErrLedgerExists.
func (s *LedgerService) Submit(ctx context.Context, scope shared.Scope, req SubmitLedgerRequest) (_ *LedgerResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "submit", telemetry.UUIDAttr(telemetry.SpanAttrUnitID, req.UnitID))
	defer func() { telemetry.EndSpan(span, err) }()

	if err := scope.Require(shared.PermLedgerSubmit); err != nil {
		return nil, s.fail("submit", scope, err)
	}
	if req.UnitID == uuid.Nil {
		return nil, s.fail("submit", scope, ledger.ErrInvalidUnit)
	}
	if err := ledger.AuthorizeUnit(ctx, s.guard, scope, req.UnitID); err != nil {
		return nil, s.fail("submit", scope, err, zap.String("unit_id", req.UnitID.String()))
	}

	now := s.clock.Now()
	var submitted *ledger.DailyLedger
	err = s.store.Transaction(ctx, scope, func(repos ledger.Repositories) error {
		existing, err := repos.Ledgers().FindByUnitAndDate(ctx, req.UnitID, ledger.BusinessDay(req.BusinessDate))
		switch {
		case err == nil:
			if err := existing.Resubmit(req.OpeningFloat, req.Notes, scope.UserID, now); err != nil {
				return err
			}
			submitted = existing
			return repos.Ledgers().SaveWithLock(ctx, existing)
		case errors.Is(err, shared.ErrNotFound):
			l, err := ledger.NewDailyLedger(scope.TenantID, req.UnitID, req.BusinessDate, req.OpeningFloat, req.Notes, scope.UserID, now)
			if err != nil {
				return err
			}
			submitted = l
			return repos.Ledgers().Create(ctx, l)
		default:
			return err
		}
	})
	if err != nil {
		return nil, s.fail("submit", scope, err,
			zap.String("unit_id", req.UnitID.String()),
			zap.String("business_date", req.BusinessDate.Format(time.DateOnly)))
	}

	s.publish(ctx, submitted)
	s.logger.Info("Ledger submitted",
		zap.String("ledger_id", submitted.ID.String()),
		zap.String("tenant_id", submitted.TenantID.String()),
		zap.String("unit_id", submitted.UnitID.String()),
		zap.String("business_date", submitted.BusinessDate.Format(time.DateOnly)))
	return toLedgerResponse(submitted), nil
}

// Review records the supervisor decision on a pending ledger
func (s *LedgerService) Review(ctx context.Context, scope shared.Scope, ledgerID uuid.UUID, req ReviewLedgerRequest) (*LedgerResponse, error) {
	l, err := s.transition(ctx, scope, "review", shared.PermLedgerReview, ledgerID,
		func(_ ledger.Repositories, l *ledger.DailyLedger, now time.Time) error {
			return l.Review(ledger.ReviewInput{
				Decision:     req.Decision,
				OpeningFloat: req.OpeningFloat,
				Notes:        req.Notes,
				ATMTotal:     req.ATMTotal,
				InvoiceTotal: req.InvoiceTotal,
				Comment:      req.Comment,
			}, scope.UserID, now)
		})
	if err != nil {
		return nil, err
	}
	return toLedgerResponse(l), nil
}

// Close counts the day against the live sum of active entries and seals the ledger
func (s *LedgerService) Close(ctx context.Context, scope shared.Scope, ledgerID uuid.UUID, countedTotal decimal.Decimal) (*LedgerResponse, error) {
	l, err := s.transition(ctx, scope, "close", shared.PermLedgerClose, ledgerID,
		func(repos ledger.Repositories, l *ledger.DailyLedger, now time.Time) error {
			total, err := liveTotal(ctx, repos, l.ID)
			if err != nil {
				return err
			}
			return l.Close(total, countedTotal, scope.UserID, now, s.sealer)
		})
	if err != nil {
		return nil, err
	}
	return toLedgerResponse(l), nil
}

// Reconcile verifies the seal and records the reviewer's verdict. A seal
// mismatch fails with ErrIntegrityViolation and leaves the ledger Closed.
func (s *LedgerService) Reconcile(ctx context.Context, scope shared.Scope, ledgerID uuid.UUID, req ReconcileLedgerRequest) (*LedgerResponse, error) {
	var (
		violated *ledger.DailyLedger
		observed decimal.Decimal
	)
	l, err := s.transition(ctx, scope, "reconcile", shared.PermLedgerReconcile, ledgerID,
		func(repos ledger.Repositories, l *ledger.DailyLedger, now time.Time) error {
			total, err := liveTotal(ctx, repos, l.ID)
			if err != nil {
				return err
			}
			err = l.Reconcile(total, req.Accepted, req.Observations, scope.UserID, now, s.sealer)
			if errors.Is(err, ledger.ErrIntegrityViolation) {
				violated, observed = l, total
			}
			return err
		})
	if err != nil {
		if violated != nil {
			violated.AddDomainEvent(ledger.NewLedgerIntegrityViolatedEvent(violated, scope.UserID, observed))
			s.publish(ctx, violated)
		}
		return nil, err
	}
	return toLedgerResponse(l), nil
}

// Dispatch marks the cash of a reconciled ledger as sent
func (s *LedgerService) Dispatch(ctx context.Context, scope shared.Scope, ledgerID uuid.UUID) (*LedgerResponse, error) {
	l, err := s.transition(ctx, scope, "dispatch", shared.PermLedgerDispatch, ledgerID,
		func(_ ledger.Repositories, l *ledger.DailyLedger, now time.Time) error {
			return l.Dispatch(scope.UserID, now)
		})
	if err != nil {
		return nil, err
	}
	return toLedgerResponse(l), nil
}

// transition runs one state machine step under the ledger's row lock and a
// version-checked save, then publishes the raised events.
func (s *LedgerService) transition(
	ctx context.Context,
	scope shared.Scope,
	op, permission string,
	ledgerID uuid.UUID,
	apply func(repos ledger.Repositories, l *ledger.DailyLedger, now time.Time) error,
) (_ *ledger.DailyLedger, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", op, telemetry.UUIDAttr(telemetry.SpanAttrLedgerID, ledgerID))
	defer func() { telemetry.EndSpan(span, err) }()

	fields := []zap.Field{zap.String("ledger_id", ledgerID.String())}
	if err := scope.Require(permission); err != nil {
		return nil, s.fail(op, scope, err, fields...)
	}
	if _, err := s.authorizedLedger(ctx, scope, ledgerID); err != nil {
		return nil, s.fail(op, scope, err, fields...)
	}

	now := s.clock.Now()
	var updated *ledger.DailyLedger
	err = s.store.Transaction(ctx, scope, func(repos ledger.Repositories) error {
		l, err := repos.Ledgers().FindByIDForUpdate(ctx, ledgerID)
		if err != nil {
			return err
		}
		if err := apply(repos, l, now); err != nil {
			return err
		}
		updated = l
		return repos.Ledgers().SaveWithLock(ctx, l)
	})
	if err != nil {
		return nil, s.fail(op, scope, err, fields...)
	}

	s.publish(ctx, updated)
	s.logger.Info("Ledger transition applied",
		zap.String("operation", op),
		zap.String("ledger_id", updated.ID.String()),
		zap.String("tenant_id", updated.TenantID.String()),
		zap.String("status", updated.Status.String()),
		zap.String("cash_box_status", updated.CashBoxStatus.String()))
	return updated, nil
}

// GetByID returns a ledger visible to the caller
func (s *LedgerService) GetByID(ctx context.Context, scope shared.Scope, ledgerID uuid.UUID) (*LedgerResponse, error) {
	if err := scope.RequireReader(); err != nil {
		return nil, s.fail("get_ledger", scope, err)
	}
	l, err := s.store.Repositories(scope).Ledgers().FindByID(ctx, ledgerID)
	if err != nil {
		return nil, s.fail("get_ledger", scope, err, zap.String("ledger_id", ledgerID.String()))
	}
	return toLedgerResponse(l), nil
}

// ListByUnit returns the ledgers of a unit between two business dates, inclusive
func (s *LedgerService) ListByUnit(ctx context.Context, scope shared.Scope, unitID uuid.UUID, from, to time.Time) ([]LedgerResponse, error) {
	if err := scope.RequireReader(); err != nil {
		return nil, s.fail("list_ledgers", scope, err)
	}
	if from.After(to) {
		return nil, s.fail("list_ledgers", scope, ledger.ErrInvalidBusinessDate.WithMessage("from must not be after to"))
	}
	ledgers, err := s.store.Repositories(scope).Ledgers().FindByUnitInRange(ctx, unitID, ledger.BusinessDay(from), ledger.BusinessDay(to))
	if err != nil {
		return nil, s.fail("list_ledgers", scope, err, zap.String("unit_id", unitID.String()))
	}
	return toLedgerResponses(ledgers), nil
}

// ListByStatus returns one page of the caller's ledgers in a workflow status
func (s *LedgerService) ListByStatus(ctx context.Context, scope shared.Scope, status ledger.LedgerStatus, filter shared.Filter) (shared.Paginated[LedgerResponse], error) {
	if err := scope.RequireReader(); err != nil {
		return shared.Paginated[LedgerResponse]{}, s.fail("list_ledgers", scope, err)
	}
	if !status.IsValid() {
		return shared.Paginated[LedgerResponse]{}, s.fail("list_ledgers", scope,
			shared.NewValidationError("INVALID_STATUS", "status", "Unknown ledger status"))
	}
	filter = filter.Normalize()
	ledgers, total, err := s.store.Repositories(scope).Ledgers().FindByStatus(ctx, status, filter)
	if err != nil {
		return shared.Paginated[LedgerResponse]{}, s.fail("list_ledgers", scope, err)
	}
	return shared.NewPaginated(toLedgerResponses(ledgers), total, filter.Page, filter.PageSize), nil
}

// ListAll returns ledgers across every tenant. Only system callers may use it.
func (s *LedgerService) ListAll(ctx context.Context, scope shared.Scope, filter shared.Filter) (shared.Paginated[LedgerResponse], error) {
	if !scope.IsSystem() {
		return shared.Paginated[LedgerResponse]{}, s.fail("list_all_ledgers", scope, shared.ErrForbidden.With("reason", "system_only"))
	}
	filter = filter.Normalize()
	ledgers, total, err := s.store.Repositories(scope).Ledgers().FindAll(ctx, filter)
	if err != nil {
		return shared.Paginated[LedgerResponse]{}, s.fail("list_all_ledgers", scope, err)
	}
	return shared.NewPaginated(toLedgerResponses(ledgers), total, filter.Page, filter.PageSize), nil
}
