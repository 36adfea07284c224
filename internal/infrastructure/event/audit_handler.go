package event

import (
	"context"

	"github.com/cashledger/backend/internal/domain/ledger"
	"github.com/cashledger/backend/internal/domain/shared"
	"github.com/cashledger/backend/internal/infrastructure/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LedgerMetrics records ledger business metrics
type LedgerMetrics interface {
	RecordTransition(ctx context.Context, transition, result string)
	RecordVariance(ctx context.Context, variance decimal.Decimal)
	RecordAdjustmentDecision(ctx context.Context, action string)
	RecordIntegrityViolation(ctx context.Context)
}

// Transition names used in metrics
const (
	TransitionSubmit    = "submit"
	TransitionReview    = "review"
	TransitionClose     = "close"
	TransitionReconcile = "reconcile"
	TransitionDispatch  = "dispatch"

	ResultSuccess = "success"
	ResultFailure = "failure"
)

// AuditHandler writes one audit log line per ledger event and feeds the
// business metrics
type AuditHandler struct {
	logger  *zap.Logger
	metrics LedgerMetrics
}

// NewAuditHandler creates an audit handler. metrics may be nil.
func NewAuditHandler(log *zap.Logger, metrics LedgerMetrics) *AuditHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuditHandler{logger: log.Named("audit"), metrics: metrics}
}

// EventTypes returns the ledger event types
func (h *AuditHandler) EventTypes() []string {
	return []string{
		ledger.EventTypeLedgerSubmitted,
		ledger.EventTypeLedgerReviewed,
		ledger.EventTypeLedgerClosed,
		ledger.EventTypeLedgerReconciled,
		ledger.EventTypeLedgerIntegrityViolated,
		ledger.EventTypeCashDispatched,
		ledger.EventTypeAdjustmentRequested,
		ledger.EventTypeAdjustmentDecided,
	}
}

func (h *AuditHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_id", event.EventID().String()),
		zap.String("event_type", event.EventType()),
		zap.String("aggregate_type", event.AggregateType()),
		zap.String("aggregate_id", event.AggregateID().String()),
		zap.String("tenant_id", event.TenantID().String()),
		zap.String("actor_id", event.ActorID().String()),
		zap.Time("occurred_at", event.OccurredAt()),
	}

	switch e := event.(type) {
	case *ledger.LedgerSubmittedEvent:
		fields = append(fields,
			zap.String("unit_id", e.UnitID.String()),
			zap.Bool("resubmitted", e.Resubmitted),
		)
		h.transition(ctx, TransitionSubmit)
	case *ledger.LedgerReviewedEvent:
		fields = append(fields, zap.String("decision", string(e.Decision)))
		h.transition(ctx, TransitionReview)
	case *ledger.LedgerClosedEvent:
		fields = append(fields,
			zap.String("calculated_total", e.CalculatedTotal.StringFixed(2)),
			zap.String("counted_total", e.CountedTotal.StringFixed(2)),
			zap.String("variance", e.Variance.StringFixed(2)),
		)
		h.transition(ctx, TransitionClose)
		if h.metrics != nil {
			h.metrics.RecordVariance(ctx, e.Variance)
		}
	case *ledger.LedgerReconciledEvent:
		fields = append(fields,
			zap.Bool("accepted", e.Accepted),
			zap.String("variance", e.Variance.StringFixed(2)),
		)
		h.transition(ctx, TransitionReconcile)
	case *ledger.CashDispatchedEvent:
		h.transition(ctx, TransitionDispatch)
	case *ledger.LedgerIntegrityViolatedEvent:
		logger.Enrich(ctx, h.logger).Error("Ledger integrity violation", append(fields,
			zap.String("live_total", e.LiveTotal.StringFixed(2)),
		)...)
		if h.metrics != nil {
			h.metrics.RecordIntegrityViolation(ctx)
		}
		return nil
	case *ledger.AdjustmentRequestedEvent:
		fields = append(fields,
			zap.String("entry_id", e.EntryID.String()),
			zap.String("kind", string(e.Kind)),
		)
	case *ledger.AdjustmentDecidedEvent:
		fields = append(fields,
			zap.String("entry_id", e.EntryID.String()),
			zap.String("status", string(e.Status)),
		)
		if h.metrics != nil {
			h.metrics.RecordAdjustmentDecision(ctx, string(e.Status))
		}
	}

	logger.Enrich(ctx, h.logger).Info("Ledger event", fields...)
	return nil
}

func (h *AuditHandler) transition(ctx context.Context, name string) {
	if h.metrics != nil {
		h.metrics.RecordTransition(ctx, name, ResultSuccess)
	}
}

var _ shared.EventHandler = (*AuditHandler)(nil)
