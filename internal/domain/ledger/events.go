package ledger

import (
	"github.com/cashledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type names
const (
	AggregateTypeLedger     = "DailyLedger"
	AggregateTypeAdjustment = "AdjustmentRequest"
)

// Event types
const (
	EventTypeLedgerSubmitted         = "LedgerSubmitted"
	EventTypeLedgerReviewed          = "LedgerReviewed"
	EventTypeLedgerClosed            = "LedgerClosed"
	EventTypeLedgerReconciled        = "LedgerReconciled"
	EventTypeLedgerIntegrityViolated = "LedgerIntegrityViolated"
	EventTypeCashDispatched          = "CashDispatched"
	EventTypeAdjustmentRequested     = "AdjustmentRequested"
	EventTypeAdjustmentDecided       = "AdjustmentDecided"
)

func ledgerSource(l *DailyLedger, actor uuid.UUID) shared.EventSource {
	return shared.EventSource{AggregateType: AggregateTypeLedger, AggregateID: l.ID, TenantID: l.TenantID, ActorID: actor}
}

func adjustmentSource(r *AdjustmentRequest, actor uuid.UUID) shared.EventSource {
	return shared.EventSource{AggregateType: AggregateTypeAdjustment, AggregateID: r.ID, TenantID: r.TenantID, ActorID: actor}
}

// LedgerSubmittedEvent is raised when an operator submits or resubmits a ledger
type LedgerSubmittedEvent struct {
	shared.BaseDomainEvent
	UnitID      uuid.UUID `json:"unit_id"`
	Resubmitted bool      `json:"resubmitted"`
}

// NewLedgerSubmittedEvent creates a LedgerSubmittedEvent
func NewLedgerSubmittedEvent(l *DailyLedger, resubmitted bool) *LedgerSubmittedEvent {
	return &LedgerSubmittedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLedgerSubmitted, ledgerSource(l, l.SubmittedBy), l.SubmittedAt),
		UnitID:          l.UnitID,
		Resubmitted:     resubmitted,
	}
}

// LedgerReviewedEvent is raised on a supervisor decision
type LedgerReviewedEvent struct {
	shared.BaseDomainEvent
	Decision ReviewDecision `json:"decision"`
}

// NewLedgerReviewedEvent creates a LedgerReviewedEvent
func NewLedgerReviewedEvent(l *DailyLedger, decision ReviewDecision) *LedgerReviewedEvent {
	return &LedgerReviewedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLedgerReviewed, ledgerSource(l, *l.ReviewedBy), *l.ReviewedAt),
		Decision:        decision,
	}
}

// LedgerClosedEvent is raised when the day is counted and sealed
type LedgerClosedEvent struct {
	shared.BaseDomainEvent
	CalculatedTotal decimal.Decimal `json:"calculated_total"`
	CountedTotal    decimal.Decimal `json:"counted_total"`
	Variance        decimal.Decimal `json:"variance"`
}

// NewLedgerClosedEvent creates a LedgerClosedEvent
func NewLedgerClosedEvent(l *DailyLedger) *LedgerClosedEvent {
	return &LedgerClosedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLedgerClosed, ledgerSource(l, *l.ClosedBy), *l.ClosedAt),
		CalculatedTotal: *l.CalculatedTotal,
		CountedTotal:    *l.CountedTotal,
		Variance:        *l.Variance,
	}
}

// LedgerReconciledEvent is raised after a successful reconciliation
type LedgerReconciledEvent struct {
	shared.BaseDomainEvent
	Accepted bool            `json:"accepted"`
	Variance decimal.Decimal `json:"variance"`
}

// NewLedgerReconciledEvent creates a LedgerReconciledEvent
func NewLedgerReconciledEvent(l *DailyLedger) *LedgerReconciledEvent {
	return &LedgerReconciledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLedgerReconciled, ledgerSource(l, *l.ReconciledBy), *l.ReconciledAt),
		Accepted:        *l.ReconciliationAccepted,
		Variance:        *l.Variance,
	}
}

// LedgerIntegrityViolatedEvent is raised when reconciliation detects a seal mismatch
type LedgerIntegrityViolatedEvent struct {
	shared.BaseDomainEvent
	LiveTotal decimal.Decimal `json:"live_total"`
}

// NewLedgerIntegrityViolatedEvent creates a LedgerIntegrityViolatedEvent
func NewLedgerIntegrityViolatedEvent(l *DailyLedger, detectedBy uuid.UUID, liveTotal decimal.Decimal) *LedgerIntegrityViolatedEvent {
	return &LedgerIntegrityViolatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLedgerIntegrityViolated, ledgerSource(l, detectedBy), l.UpdatedAt),
		LiveTotal:       liveTotal,
	}
}

// CashDispatchedEvent is raised when reconciled cash leaves the unit
type CashDispatchedEvent struct {
	shared.BaseDomainEvent
}

// NewCashDispatchedEvent creates a CashDispatchedEvent
func NewCashDispatchedEvent(l *DailyLedger) *CashDispatchedEvent {
	return &CashDispatchedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCashDispatched, ledgerSource(l, *l.CashSentBy), *l.CashSentAt),
	}
}

// AdjustmentRequestedEvent is raised when a correction is proposed
type AdjustmentRequestedEvent struct {
	shared.BaseDomainEvent
	EntryID uuid.UUID      `json:"entry_id"`
	Kind    AdjustmentKind `json:"kind"`
}

// NewAdjustmentRequestedEvent creates an AdjustmentRequestedEvent
func NewAdjustmentRequestedEvent(r *AdjustmentRequest) *AdjustmentRequestedEvent {
	return &AdjustmentRequestedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAdjustmentRequested, adjustmentSource(r, r.RequesterID), r.RequestedAt),
		EntryID:         r.EntryID,
		Kind:            r.Kind,
	}
}

// AdjustmentDecidedEvent is raised when a request is approved or rejected
type AdjustmentDecidedEvent struct {
	shared.BaseDomainEvent
	EntryID uuid.UUID        `json:"entry_id"`
	Status  AdjustmentStatus `json:"status"`
}

// NewAdjustmentDecidedEvent creates an AdjustmentDecidedEvent
func NewAdjustmentDecidedEvent(r *AdjustmentRequest) *AdjustmentDecidedEvent {
	return &AdjustmentDecidedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAdjustmentDecided, adjustmentSource(r, *r.ApproverID), *r.DecidedAt),
		EntryID:         r.EntryID,
		Status:          r.Status,
	}
}
