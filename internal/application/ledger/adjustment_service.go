package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/cashledger/backend/internal/domain/ledger"
	"github.com/cashledger/backend/internal/domain/shared"
	"github.com/cashledger/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AdjustmentService governs changes to entries of ledgers that left Pending.
// A request snapshots the entry; approval re-reads it, refuses stale requests
// and applies the change with the same validation as a direct edit.
type AdjustmentService struct {
	core
}

// NewAdjustmentService creates a new AdjustmentService
func NewAdjustmentService(cfg Config) *AdjustmentService {
	return &AdjustmentService{core: newCore(cfg)}
}

// Request files a pending adjustment for an entry of a ledger that no longer
// takes direct edits. Only one request per entry may be pending at a time.
func (s *AdjustmentService) Request(ctx context.Context, scope shared.Scope, entryID uuid.UUID, req AdjustmentRequestInput) (_ *AdjustmentResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "adjustment", "request", telemetry.UUIDAttr(telemetry.SpanAttrEntryID, entryID))
	defer func() { telemetry.EndSpan(span, err) }()

	fields := []zap.Field{zap.String("entry_id", entryID.String())}
	if err := scope.Require(shared.PermAdjustmentRequest); err != nil {
		return nil, s.fail("request_adjustment", scope, err, fields...)
	}
	entry, err := s.store.Repositories(scope).Entries().FindByID(ctx, entryID)
	if err != nil {
		return nil, s.fail("request_adjustment", scope, err, fields...)
	}
	if _, err := s.authorizedLedger(ctx, scope, entry.LedgerID); err != nil {
		return nil, s.fail("request_adjustment", scope, err, fields...)
	}

	now := s.clock.Now()
	var created *ledger.AdjustmentRequest
	err = s.store.Transaction(ctx, scope, func(repos ledger.Repositories) error {
		// The ledger row lock orders this insert against review, close and reconcile
		l, err := repos.Ledgers().FindByIDForUpdate(ctx, entry.LedgerID)
		if err != nil {
			return err
		}
		if err := l.GuardAdjustment(); err != nil {
			return err
		}
		current, err := repos.Entries().FindByID(ctx, entryID)
		if err != nil {
			return err
		}
		r, err := ledger.NewAdjustmentRequest(current, req.Kind, req.Justification, req.Proposed, scope.UserID, now)
		if err != nil {
			return err
		}
		if r.Kind == ledger.AdjustmentModify {
			if err := r.After.Fields().Validate(now); err != nil {
				return err
			}
		}
		pending, err := repos.Adjustments().FindPendingByEntry(ctx, entryID)
		switch {
		case err == nil:
			return ledger.ErrPendingRequestExists.With("request_id", pending.ID.String())
		case !errors.Is(err, shared.ErrNotFound):
			return err
		}
		created = r
		return repos.Adjustments().Create(ctx, r)
	})
	if err != nil {
		return nil, s.fail("request_adjustment", scope, err, fields...)
	}

	s.publish(ctx, created)
	s.logger.Info("Adjustment requested",
		zap.String("request_id", created.ID.String()),
		zap.String("entry_id", created.EntryID.String()),
		zap.String("tenant_id", created.TenantID.String()),
		zap.String("kind", string(created.Kind)))
	return toAdjustmentResponse(created), nil
}

// Decide approves or rejects a pending request. Approval re-reads the entry
// inside the transaction; any failure rolls back and the request stays Pending.
func (s *AdjustmentService) Decide(ctx context.Context, scope shared.Scope, requestID uuid.UUID, req DecideAdjustmentRequest) (_ *AdjustmentResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "adjustment", "decide", telemetry.UUIDAttr(telemetry.SpanAttrAdjustmentID, requestID))
	defer func() { telemetry.EndSpan(span, err) }()

	fields := []zap.Field{zap.String("request_id", requestID.String()), zap.String("action", string(req.Action))}
	if err := scope.Require(shared.PermAdjustmentDecide); err != nil {
		return nil, s.fail("decide_adjustment", scope, err, fields...)
	}
	if !req.Action.IsValid() {
		return nil, s.fail("decide_adjustment", scope, ledger.ErrInvalidAction, fields...)
	}
	repos := s.store.Repositories(scope)
	r, err := repos.Adjustments().FindByID(ctx, requestID)
	if err != nil {
		return nil, s.fail("decide_adjustment", scope, err, fields...)
	}
	entry, err := repos.Entries().FindByID(ctx, r.EntryID)
	if err != nil {
		return nil, s.fail("decide_adjustment", scope, err, fields...)
	}
	if _, err := s.authorizedLedger(ctx, scope, entry.LedgerID); err != nil {
		return nil, s.fail("decide_adjustment", scope, err, fields...)
	}

	now := s.clock.Now()
	var (
		decided  *ledger.AdjustmentRequest
		resealed *ledger.DailyLedger
	)
	err = s.store.Transaction(ctx, scope, func(repos ledger.Repositories) error {
		r, err := repos.Adjustments().FindByIDForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if r.Status != ledger.AdjustmentPending {
			return ledger.ErrNotPending.With("status", r.Status.String())
		}
		if err := r.CheckDecider(scope.UserID); err != nil {
			return err
		}

		if req.Action == ledger.ActionReject {
			if err := r.Reject(scope.UserID, req.Notes, now); err != nil {
				return err
			}
			decided = r
			return repos.Adjustments().SaveWithLock(ctx, r)
		}

		l, err := s.applyApproved(ctx, repos, r, now)
		if err != nil {
			return err
		}
		if err := r.Approve(scope.UserID, req.Notes, now); err != nil {
			return err
		}
		decided, resealed = r, l
		return repos.Adjustments().SaveWithLock(ctx, r)
	})
	if err != nil {
		return nil, s.fail("decide_adjustment", scope, err, fields...)
	}

	s.publish(ctx, decided)
	logFields := []zap.Field{
		zap.String("request_id", decided.ID.String()),
		zap.String("entry_id", decided.EntryID.String()),
		zap.String("tenant_id", decided.TenantID.String()),
		zap.String("status", decided.Status.String()),
	}
	if resealed != nil {
		logFields = append(logFields, zap.String("resealed_ledger_id", resealed.ID.String()))
	}
	s.logger.Info("Adjustment decided", logFields...)
	return toAdjustmentResponse(decided), nil
}

// applyApproved writes the approved change to the entry. It returns the owning
// ledger when it was Closed and had to be resealed.
func (s *AdjustmentService) applyApproved(ctx context.Context, repos ledger.Repositories, r *ledger.AdjustmentRequest, now time.Time) (*ledger.DailyLedger, error) {
	entry, err := repos.Entries().FindByID(ctx, r.EntryID)
	if err != nil {
		return nil, err
	}
	l, err := repos.Ledgers().FindByIDForUpdate(ctx, entry.LedgerID)
	if err != nil {
		return nil, err
	}
	if l.Status.IsFinal() {
		return nil, ledger.ErrLedgerFinalized.With("ledger_id", l.ID.String())
	}
	// Re-read under the ledger lock
	entry, err = repos.Entries().FindByID(ctx, r.EntryID)
	if err != nil {
		return nil, err
	}
	if err := r.CheckFresh(entry); err != nil {
		return nil, err
	}
	if err := r.ApplyTo(entry, now); err != nil {
		return nil, err
	}
	if err := checkNoOverlap(ctx, repos, entry); err != nil {
		return nil, err
	}
	if err := repos.Entries().SaveWithLock(ctx, entry); err != nil {
		return nil, err
	}

	if l.Status != ledger.LedgerStatusClosed {
		return nil, nil
	}
	total, err := liveTotal(ctx, repos, l.ID)
	if err != nil {
		return nil, err
	}
	if err := l.Reseal(total, now, s.sealer); err != nil {
		return nil, err
	}
	if err := repos.Ledgers().SaveWithLock(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

// Withdraw lets the requester abandon their own pending request
func (s *AdjustmentService) Withdraw(ctx context.Context, scope shared.Scope, requestID uuid.UUID) (*AdjustmentResponse, error) {
	fields := []zap.Field{zap.String("request_id", requestID.String())}
	if err := scope.Require(shared.PermAdjustmentRequest); err != nil {
		return nil, s.fail("withdraw_adjustment", scope, err, fields...)
	}

	now := s.clock.Now()
	var withdrawn *ledger.AdjustmentRequest
	err := s.store.Transaction(ctx, scope, func(repos ledger.Repositories) error {
		r, err := repos.Adjustments().FindByIDForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if err := r.Withdraw(scope.UserID, now); err != nil {
			return err
		}
		withdrawn = r
		return repos.Adjustments().SaveWithLock(ctx, r)
	})
	if err != nil {
		return nil, s.fail("withdraw_adjustment", scope, err, fields...)
	}

	s.publish(ctx, withdrawn)
	s.logger.Info("Adjustment withdrawn",
		zap.String("request_id", withdrawn.ID.String()),
		zap.String("entry_id", withdrawn.EntryID.String()),
		zap.String("tenant_id", withdrawn.TenantID.String()))
	return toAdjustmentResponse(withdrawn), nil
}

// GetByID returns an adjustment request visible to the caller
func (s *AdjustmentService) GetByID(ctx context.Context, scope shared.Scope, requestID uuid.UUID) (*AdjustmentResponse, error) {
	if err := scope.RequireReader(); err != nil {
		return nil, s.fail("get_adjustment", scope, err)
	}
	r, err := s.store.Repositories(scope).Adjustments().FindByID(ctx, requestID)
	if err != nil {
		return nil, s.fail("get_adjustment", scope, err, zap.String("request_id", requestID.String()))
	}
	return toAdjustmentResponse(r), nil
}

// ListByEntry returns the request history of an entry, newest first
func (s *AdjustmentService) ListByEntry(ctx context.Context, scope shared.Scope, entryID uuid.UUID) ([]AdjustmentResponse, error) {
	if err := scope.RequireReader(); err != nil {
		return nil, s.fail("list_adjustments", scope, err)
	}
	requests, err := s.store.Repositories(scope).Adjustments().FindByEntry(ctx, entryID)
	if err != nil {
		return nil, s.fail("list_adjustments", scope, err, zap.String("entry_id", entryID.String()))
	}
	return toAdjustmentResponses(requests), nil
}

// ListByStatus returns one page of requests in a status, typically the pending queue
func (s *AdjustmentService) ListByStatus(ctx context.Context, scope shared.Scope, status ledger.AdjustmentStatus, filter shared.Filter) (shared.Paginated[AdjustmentResponse], error) {
	if err := scope.RequireReader(); err != nil {
		return shared.Paginated[AdjustmentResponse]{}, s.fail("list_adjustments", scope, err)
	}
	if !status.IsValid() {
		return shared.Paginated[AdjustmentResponse]{}, s.fail("list_adjustments", scope,
			shared.NewValidationError("INVALID_STATUS", "status", "Unknown adjustment status"))
	}
	filter = filter.Normalize()
	requests, total, err := s.store.Repositories(scope).Adjustments().FindByStatus(ctx, status, filter)
	if err != nil {
		return shared.Paginated[AdjustmentResponse]{}, s.fail("list_adjustments", scope, err)
	}
	return shared.NewPaginated(toAdjustmentResponses(requests), total, filter.Page, filter.PageSize), nil
}
