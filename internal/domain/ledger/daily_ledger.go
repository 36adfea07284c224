package ledger

import (
	"fmt"
	"time"

	"github.com/cashledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DailyLedger is the per-unit, per-date cash aggregate and its
// approval / closing / reconciliation state machine.
type DailyLedger struct {
	shared.TenantAggregateRoot
	UnitID        uuid.UUID       `json:"unit_id"`
	BusinessDate  time.Time       `json:"business_date"`
	Status        LedgerStatus    `json:"status"`
	CashBoxStatus CashBoxStatus   `json:"cash_box_status"`
	OpeningFloat  decimal.Decimal `json:"opening_float"`
	Notes         string          `json:"notes"`
	SubmittedBy   uuid.UUID       `json:"submitted_by"`
	SubmittedAt   time.Time       `json:"submitted_at"`

	// Supervisor-only fields
	ATMTotal     *decimal.Decimal `json:"atm_total"`
	InvoiceTotal *decimal.Decimal `json:"invoice_total"`
	ReviewedBy   *uuid.UUID       `json:"reviewed_by"`
	ReviewedAt   *time.Time       `json:"reviewed_at"`
	ReviewNotes  string           `json:"review_notes"`

	// Closing
	CalculatedTotal    *decimal.Decimal `json:"calculated_total"`
	CountedTotal       *decimal.Decimal `json:"counted_total"`
	Variance           *decimal.Decimal `json:"variance"`
	IntegritySignature string           `json:"integrity_signature"`
	ClosedBy           *uuid.UUID       `json:"closed_by"`
	ClosedAt           *time.Time       `json:"closed_at"`

	// Reconciliation
	ReconciledBy               *uuid.UUID `json:"reconciled_by"`
	ReconciledAt               *time.Time `json:"reconciled_at"`
	ReconciliationAccepted     *bool      `json:"reconciliation_accepted"`
	ReconciliationObservations string     `json:"reconciliation_observations"`

	CashSentBy *uuid.UUID `json:"cash_sent_by"`
	CashSentAt *time.Time `json:"cash_sent_at"`
}

// BusinessDay truncates t to its calendar date in UTC
func BusinessDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NewDailyLedger submits a new ledger for a unit and date
func NewDailyLedger(
	tenantID, unitID uuid.UUID,
	businessDate time.Time,
	openingFloat decimal.Decimal,
	notes string,
	submittedBy uuid.UUID,
	now time.Time,
) (*DailyLedger, error) {
	if unitID == uuid.Nil {
		return nil, ErrInvalidUnit
	}
	if businessDate.IsZero() {
		return nil, ErrInvalidBusinessDate
	}
	if openingFloat.IsNegative() {
		return nil, ErrInvalidFloat
	}

	l := &DailyLedger{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID, submittedBy, now),
		UnitID:              unitID,
		BusinessDate:        BusinessDay(businessDate),
		Status:              LedgerStatusPending,
		CashBoxStatus:       CashBoxOpen,
		OpeningFloat:        openingFloat,
		Notes:               NormalizeText(notes),
		SubmittedBy:         submittedBy,
		SubmittedAt:         stamp(now),
	}
	l.AddDomainEvent(NewLedgerSubmittedEvent(l, false))
	return l, nil
}

// Resubmit returns a rejected ledger to Pending with the operator's new figures.
// Review fields are kept so the rejection remains visible.
func (l *DailyLedger) Resubmit(openingFloat decimal.Decimal, notes string, by uuid.UUID, now time.Time) error {
	if !l.Status.CanResubmit() {
		return ErrLedgerExists.With("status", l.Status.String())
	}
	if openingFloat.IsNegative() {
		return ErrInvalidFloat
	}
	l.Status = LedgerStatusPending
	l.OpeningFloat = openingFloat
	l.Notes = NormalizeText(notes)
	l.SubmittedBy = by
	l.SubmittedAt = stamp(now)
	l.Touch(now)
	l.AddDomainEvent(NewLedgerSubmittedEvent(l, true))
	return nil
}

// ReviewInput carries the supervisor's decision and corrections
type ReviewInput struct {
	Decision     ReviewDecision
	OpeningFloat *decimal.Decimal
	Notes        *string
	ATMTotal     *decimal.Decimal
	InvoiceTotal *decimal.Decimal
	Comment      string
}

func (in ReviewInput) validate() error {
	if !in.Decision.IsValid() {
		return ErrInvalidDecision
	}
	if in.OpeningFloat != nil && in.OpeningFloat.IsNegative() {
		return ErrInvalidFloat
	}
	if in.ATMTotal != nil && in.ATMTotal.IsNegative() {
		return ErrInvalidSupervisorSum
	}
	if in.InvoiceTotal != nil && in.InvoiceTotal.IsNegative() {
		return ErrInvalidSupervisorSum.With("field", "invoice_total")
	}
	return nil
}

// Review applies a supervisor decision. Corrections and supervisor totals are
// only applied on approval.
func (l *DailyLedger) Review(in ReviewInput, reviewer uuid.UUID, now time.Time) error {
	if !l.Status.CanReview() {
		return invalidState("review", l.Status)
	}
	if err := in.validate(); err != nil {
		return err
	}

	at := stamp(now)
	l.ReviewedBy = &reviewer
	l.ReviewedAt = &at
	l.ReviewNotes = NormalizeText(in.Comment)

	if in.Decision == ReviewReject {
		l.Status = LedgerStatusRejected
	} else {
		if in.OpeningFloat != nil {
			l.OpeningFloat = *in.OpeningFloat
		}
		if in.Notes != nil {
			l.Notes = NormalizeText(*in.Notes)
		}
		if in.ATMTotal != nil {
			l.ATMTotal = in.ATMTotal
		}
		if in.InvoiceTotal != nil {
			l.InvoiceTotal = in.InvoiceTotal
		}
		l.Status = LedgerStatusApproved
	}
	l.Touch(now)
	l.AddDomainEvent(NewLedgerReviewedEvent(l, in.Decision))
	return nil
}

// Close records the end-of-day count against the live sum of active entries
// and seals the result.
func (l *DailyLedger) Close(liveTotal, countedTotal decimal.Decimal, closedBy uuid.UUID, now time.Time, sealer Sealer) error {
	if !l.Status.CanClose() {
		return invalidState("close", l.Status)
	}
	if countedTotal.IsNegative() {
		return ErrInvalidCountedTotal
	}

	at := stamp(now)
	payload := SealPayload{
		LedgerID:        l.ID,
		BusinessDate:    l.BusinessDate,
		CalculatedTotal: liveTotal,
		CountedTotal:    countedTotal,
		Variance:        liveTotal.Sub(countedTotal),
		ClosedBy:        closedBy,
		ClosedAt:        at,
	}
	signature, err := sealer.Seal(l.TenantID, payload)
	if err != nil {
		return err
	}

	l.CalculatedTotal = &payload.CalculatedTotal
	l.CountedTotal = &payload.CountedTotal
	l.Variance = &payload.Variance
	l.IntegritySignature = signature
	l.ClosedBy = &closedBy
	l.ClosedAt = &at
	l.Status = LedgerStatusClosed
	l.CashBoxStatus = CashBoxClosed
	l.Touch(now)
	l.AddDomainEvent(NewLedgerClosedEvent(l))
	return nil
}

// sealPayload rebuilds the signed tuple from the stored closing fields and a live total
func (l *DailyLedger) sealPayload(liveTotal decimal.Decimal) SealPayload {
	return SealPayload{
		LedgerID:        l.ID,
		BusinessDate:    l.BusinessDate,
		CalculatedTotal: liveTotal,
		CountedTotal:    *l.CountedTotal,
		Variance:        liveTotal.Sub(*l.CountedTotal),
		ClosedBy:        *l.ClosedBy,
		ClosedAt:        *l.ClosedAt,
	}
}

// VerifySeal recomputes the signature input from liveTotal and checks it
// against the stored signature. The stored calculated total and variance
// must also equal the figures the signature covers.
func (l *DailyLedger) VerifySeal(liveTotal decimal.Decimal, sealer Sealer) error {
	if l.CountedTotal == nil || l.ClosedBy == nil || l.ClosedAt == nil || l.IntegritySignature == "" {
		return ErrIntegrityViolation.With("ledger_id", l.ID.String()).With("reason", "missing_seal")
	}
	if l.CalculatedTotal == nil || l.Variance == nil {
		return ErrIntegrityViolation.With("ledger_id", l.ID.String()).With("reason", "missing_totals")
	}
	if !l.CalculatedTotal.Equal(liveTotal) || !l.Variance.Equal(liveTotal.Sub(*l.CountedTotal)) {
		return ErrIntegrityViolation.
			With("ledger_id", l.ID.String()).
			With("reason", "stored_totals_mismatch").
			With("live_total", liveTotal.StringFixed(2)).
			With("stored_total", l.CalculatedTotal.StringFixed(2)).
			With("stored_variance", l.Variance.StringFixed(2))
	}
	ok, err := sealer.Verify(l.TenantID, l.sealPayload(liveTotal), l.IntegritySignature)
	if err != nil {
		return err
	}
	if !ok {
		violation := ErrIntegrityViolation.
			With("ledger_id", l.ID.String()).
			With("live_total", liveTotal.StringFixed(2))
		if l.CalculatedTotal != nil {
			violation = violation.With("stored_total", l.CalculatedTotal.StringFixed(2))
		}
		return violation
	}
	return nil
}

// Reconcile verifies the seal and records the reviewer's verdict on the variance.
// On a seal mismatch the ledger is left untouched.
func (l *DailyLedger) Reconcile(liveTotal decimal.Decimal, accepted bool, observations string, reviewer uuid.UUID, now time.Time, sealer Sealer) error {
	if !l.Status.CanReconcile() {
		return invalidState("reconcile", l.Status)
	}
	if err := l.VerifySeal(liveTotal, sealer); err != nil {
		return err
	}

	at := stamp(now)
	l.ReconciledBy = &reviewer
	l.ReconciledAt = &at
	l.ReconciliationAccepted = &accepted
	l.ReconciliationObservations = NormalizeText(observations)
	l.Status = LedgerStatusReconciled
	l.CashBoxStatus = CashBoxReconciled
	l.Touch(now)
	l.AddDomainEvent(NewLedgerReconciledEvent(l))
	return nil
}

// Reseal recomputes the closing figures after a governed correction. The
// closing actor and timestamp stay as they were.
func (l *DailyLedger) Reseal(liveTotal decimal.Decimal, now time.Time, sealer Sealer) error {
	if l.Status != LedgerStatusClosed {
		return invalidState("reseal", l.Status)
	}
	payload := l.sealPayload(liveTotal)
	signature, err := sealer.Seal(l.TenantID, payload)
	if err != nil {
		return err
	}
	l.CalculatedTotal = &payload.CalculatedTotal
	l.Variance = &payload.Variance
	l.IntegritySignature = signature
	l.Touch(now)
	return nil
}

// Dispatch marks the reconciled cash as sent
func (l *DailyLedger) Dispatch(by uuid.UUID, now time.Time) error {
	if !l.CashBoxStatus.CanDispatch() {
		return shared.ErrInvalidState.
			WithMessage(fmt.Sprintf("Cannot dispatch cash box in %s status", l.CashBoxStatus)).
			With("cash_box_status", l.CashBoxStatus.String())
	}
	at := stamp(now)
	l.CashSentBy = &by
	l.CashSentAt = &at
	l.CashBoxStatus = CashBoxSent
	l.Touch(now)
	l.AddDomainEvent(NewCashDispatchedEvent(l))
	return nil
}

// AllowsDirectEdit reports whether entries may be edited without governance.
// A missing ledger allows it.
func (l *DailyLedger) AllowsDirectEdit() bool {
	return l == nil || l.Status.AllowsDirectEdit()
}

// GuardAdjustment fails unless entries of the ledger must change through an
// adjustment request: Pending ledgers take direct edits and Reconciled ones
// are final.
func (l *DailyLedger) GuardAdjustment() error {
	switch {
	case l.Status.AllowsDirectEdit():
		return ErrDirectEditAllowed.With("ledger_id", l.ID.String()).With("status", l.Status.String())
	case l.Status.IsFinal():
		return ErrLedgerFinalized.With("ledger_id", l.ID.String())
	}
	return nil
}

// GuardDirectEdit fails with ErrRequiresAdjustment once the ledger left Pending
func (l *DailyLedger) GuardDirectEdit() error {
	if l.AllowsDirectEdit() {
		return nil
	}
	return ErrRequiresAdjustment.With("ledger_id", l.ID.String()).With("status", l.Status.String())
}

func invalidState(op string, status LedgerStatus) error {
	return shared.ErrInvalidState.
		WithMessage(fmt.Sprintf("Cannot %s ledger in %s status", op, status)).
		With("status", status.String())
}

func stamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
