package telemetry

import (
	"context"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
)

// LedgerMetrics holds the ledger business instruments
type LedgerMetrics struct {
	transitions         *Counter
	variance            *Histogram
	adjustmentDecisions *Counter
	integrityViolations *Counter
}

// NewLedgerMetrics creates the instruments on meter
func NewLedgerMetrics(meter metric.Meter) (*LedgerMetrics, error) {
	transitions, err := NewCounter(meter, "ledger_transitions_total", "Ledger workflow transitions", "{transition}")
	if err != nil {
		return nil, err
	}
	variance, err := NewHistogram(meter, HistogramOpts{
		Name:        "ledger_variance_abs",
		Description: "Absolute difference between calculated and counted cash at close",
		Unit:        "{currency}",
		Boundaries:  VarianceBuckets,
	})
	if err != nil {
		return nil, err
	}
	decisions, err := NewCounter(meter, "adjustment_decisions_total", "Adjustment request decisions", "{decision}")
	if err != nil {
		return nil, err
	}
	violations, err := NewCounter(meter, "integrity_violations_total", "Closed ledgers whose seal did not verify", "{violation}")
	if err != nil {
		return nil, err
	}
	return &LedgerMetrics{
		transitions:         transitions,
		variance:            variance,
		adjustmentDecisions: decisions,
		integrityViolations: violations,
	}, nil
}

func (m *LedgerMetrics) RecordTransition(ctx context.Context, transition, result string) {
	m.transitions.Inc(ctx, AttrTransition.String(transition), AttrResult.String(result))
}

func (m *LedgerMetrics) RecordVariance(ctx context.Context, variance decimal.Decimal) {
	m.variance.Record(ctx, variance.Abs().InexactFloat64())
}

func (m *LedgerMetrics) RecordAdjustmentDecision(ctx context.Context, action string) {
	m.adjustmentDecisions.Inc(ctx, AttrAction.String(action))
}

func (m *LedgerMetrics) RecordIntegrityViolation(ctx context.Context) {
	m.integrityViolations.Inc(ctx)
}
