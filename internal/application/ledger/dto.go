package ledger

import (
	"time"

	"github.com/cashledger/backend/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SubmitLedgerRequest opens (or reopens after rejection) the ledger of a unit and date
type SubmitLedgerRequest struct {
	UnitID       uuid.UUID
	BusinessDate time.Time
	OpeningFloat decimal.Decimal
	Notes        string
}

// ReviewLedgerRequest is a supervisor decision with optional corrections
type ReviewLedgerRequest struct {
	Decision     ledger.ReviewDecision
	OpeningFloat *decimal.Decimal
	Notes        *string
	ATMTotal     *decimal.Decimal
	InvoiceTotal *decimal.Decimal
	Comment      string
}

// ReconcileLedgerRequest records the reviewer's verdict on the variance
type ReconcileLedgerRequest struct {
	Accepted     bool
	Observations string
}

// EntryRequest carries the fields of a revenue entry write
type EntryRequest struct {
	Amount        decimal.Decimal
	StartedAt     time.Time
	EndedAt       time.Time
	PaymentMethod ledger.PaymentMethod
	Origin        string
}

func (r EntryRequest) fields() ledger.EntryFields {
	return ledger.EntryFields{
		Amount:        r.Amount,
		StartedAt:     r.StartedAt,
		EndedAt:       r.EndedAt,
		PaymentMethod: r.PaymentMethod,
		Origin:        r.Origin,
	}.Normalize()
}

// AdjustmentRequestInput proposes a governed change to an entry
type AdjustmentRequestInput struct {
	Kind          ledger.AdjustmentKind
	Justification string
	Proposed      ledger.EntryPatch
}

// DecideAdjustmentRequest is the approver's verdict
type DecideAdjustmentRequest struct {
	Action ledger.AdjustmentAction
	Notes  string
}

// LedgerResponse represents a daily ledger in API responses
type LedgerResponse struct {
	ID                         uuid.UUID        `json:"id"`
	TenantID                   uuid.UUID        `json:"tenant_id"`
	UnitID                     uuid.UUID        `json:"unit_id"`
	BusinessDate               string           `json:"business_date"`
	Status                     string           `json:"status"`
	CashBoxStatus              string           `json:"cash_box_status"`
	OpeningFloat               decimal.Decimal  `json:"opening_float"`
	Notes                      string           `json:"notes,omitempty"`
	SubmittedBy                uuid.UUID        `json:"submitted_by"`
	SubmittedAt                time.Time        `json:"submitted_at"`
	ATMTotal                   *decimal.Decimal `json:"atm_total,omitempty"`
	InvoiceTotal               *decimal.Decimal `json:"invoice_total,omitempty"`
	ReviewedBy                 *uuid.UUID       `json:"reviewed_by,omitempty"`
	ReviewedAt                 *time.Time       `json:"reviewed_at,omitempty"`
	ReviewNotes                string           `json:"review_notes,omitempty"`
	CalculatedTotal            *decimal.Decimal `json:"calculated_total,omitempty"`
	CountedTotal               *decimal.Decimal `json:"counted_total,omitempty"`
	Variance                   *decimal.Decimal `json:"variance,omitempty"`
	IntegritySignature         string           `json:"integrity_signature,omitempty"`
	ClosedBy                   *uuid.UUID       `json:"closed_by,omitempty"`
	ClosedAt                   *time.Time       `json:"closed_at,omitempty"`
	ReconciledBy               *uuid.UUID       `json:"reconciled_by,omitempty"`
	ReconciledAt               *time.Time       `json:"reconciled_at,omitempty"`
	ReconciliationAccepted     *bool            `json:"reconciliation_accepted,omitempty"`
	ReconciliationObservations string           `json:"reconciliation_observations,omitempty"`
	CashSentBy                 *uuid.UUID       `json:"cash_sent_by,omitempty"`
	CashSentAt                 *time.Time       `json:"cash_sent_at,omitempty"`
	CreatedAt                  time.Time        `json:"created_at"`
	UpdatedAt                  time.Time        `json:"updated_at"`
	Version                    int              `json:"version"`
}

// EntryResponse represents a revenue entry in API responses
type EntryResponse struct {
	ID            uuid.UUID       `json:"id"`
	TenantID      uuid.UUID       `json:"tenant_id"`
	LedgerID      uuid.UUID       `json:"ledger_id"`
	Amount        decimal.Decimal `json:"amount"`
	StartedAt     time.Time       `json:"started_at"`
	EndedAt       time.Time       `json:"ended_at"`
	PaymentMethod string          `json:"payment_method"`
	Origin        string          `json:"origin,omitempty"`
	Active        bool            `json:"active"`
	CreatedBy     uuid.UUID       `json:"created_by"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Version       int             `json:"version"`
}

// AdjustmentResponse represents an adjustment request in API responses
type AdjustmentResponse struct {
	ID            uuid.UUID            `json:"id"`
	TenantID      uuid.UUID            `json:"tenant_id"`
	EntryID       uuid.UUID            `json:"entry_id"`
	RequesterID   uuid.UUID            `json:"requester_id"`
	Kind          string               `json:"kind"`
	Justification string               `json:"justification"`
	Before        ledger.EntrySnapshot `json:"before"`
	After         ledger.EntrySnapshot `json:"after"`
	Status        string               `json:"status"`
	ApproverID    *uuid.UUID           `json:"approver_id,omitempty"`
	DecisionNotes string               `json:"decision_notes,omitempty"`
	RequestedAt   time.Time            `json:"requested_at"`
	DecidedAt     *time.Time           `json:"decided_at,omitempty"`
	Version       int                  `json:"version"`
}

func toLedgerResponse(l *ledger.DailyLedger) *LedgerResponse {
	return &LedgerResponse{
		ID:                         l.ID,
		TenantID:                   l.TenantID,
		UnitID:                     l.UnitID,
		BusinessDate:               l.BusinessDate.Format(time.DateOnly),
		Status:                     l.Status.String(),
		CashBoxStatus:              l.CashBoxStatus.String(),
		OpeningFloat:               l.OpeningFloat,
		Notes:                      l.Notes,
		SubmittedBy:                l.SubmittedBy,
		SubmittedAt:                l.SubmittedAt,
		ATMTotal:                   l.ATMTotal,
		InvoiceTotal:               l.InvoiceTotal,
		ReviewedBy:                 l.ReviewedBy,
		ReviewedAt:                 l.ReviewedAt,
		ReviewNotes:                l.ReviewNotes,
		CalculatedTotal:            l.CalculatedTotal,
		CountedTotal:               l.CountedTotal,
		Variance:                   l.Variance,
		IntegritySignature:         l.IntegritySignature,
		ClosedBy:                   l.ClosedBy,
		ClosedAt:                   l.ClosedAt,
		ReconciledBy:               l.ReconciledBy,
		ReconciledAt:               l.ReconciledAt,
		ReconciliationAccepted:     l.ReconciliationAccepted,
		ReconciliationObservations: l.ReconciliationObservations,
		CashSentBy:                 l.CashSentBy,
		CashSentAt:                 l.CashSentAt,
		CreatedAt:                  l.CreatedAt,
		UpdatedAt:                  l.UpdatedAt,
		Version:                    l.Version,
	}
}

func toLedgerResponses(ledgers []ledger.DailyLedger) []LedgerResponse {
	out := make([]LedgerResponse, len(ledgers))
	for i := range ledgers {
		out[i] = *toLedgerResponse(&ledgers[i])
	}
	return out
}

func toEntryResponse(e *ledger.RevenueEntry) *EntryResponse {
	return &EntryResponse{
		ID:            e.ID,
		TenantID:      e.TenantID,
		LedgerID:      e.LedgerID,
		Amount:        e.Amount,
		StartedAt:     e.StartedAt,
		EndedAt:       e.EndedAt,
		PaymentMethod: e.PaymentMethod.String(),
		Origin:        e.Origin,
		Active:        e.Active,
		CreatedBy:     e.CreatedBy,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
		Version:       e.Version,
	}
}

func toEntryResponses(entries []ledger.RevenueEntry) []EntryResponse {
	out := make([]EntryResponse, len(entries))
	for i := range entries {
		out[i] = *toEntryResponse(&entries[i])
	}
	return out
}

func toAdjustmentResponse(r *ledger.AdjustmentRequest) *AdjustmentResponse {
	return &AdjustmentResponse{
		ID:            r.ID,
		TenantID:      r.TenantID,
		EntryID:       r.EntryID,
		RequesterID:   r.RequesterID,
		Kind:          string(r.Kind),
		Justification: r.Justification,
		Before:        r.Before,
		After:         r.After,
		Status:        r.Status.String(),
		ApproverID:    r.ApproverID,
		DecisionNotes: r.DecisionNotes,
		RequestedAt:   r.RequestedAt,
		DecidedAt:     r.DecidedAt,
		Version:       r.Version,
	}
}

func toAdjustmentResponses(requests []ledger.AdjustmentRequest) []AdjustmentResponse {
	out := make([]AdjustmentResponse, len(requests))
	for i := range requests {
		out[i] = *toAdjustmentResponse(&requests[i])
	}
	return out
}
