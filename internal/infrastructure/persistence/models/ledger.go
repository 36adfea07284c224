package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cashledger/backend/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Constraint names referenced by error translation
const (
	ConstraintLedgerUnitDate      = "uq_daily_ledgers_tenant_unit_date"
	ConstraintEntryNoOverlap      = "ex_revenue_entries_no_overlap"
	ConstraintPendingRequestEntry = "uq_adjustment_requests_pending_entry"
)

// DailyLedgerModel is the persistence model for the DailyLedger aggregate root.
type DailyLedgerModel struct {
	TenantAggregateModel
	UnitID        uuid.UUID            `gorm:"type:uuid;not null;index"`
	BusinessDate  time.Time            `gorm:"type:date;not null"`
	Status        ledger.LedgerStatus  `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	CashBoxStatus ledger.CashBoxStatus `gorm:"type:varchar(20);not null;default:'OPEN'"`
	OpeningFloat  decimal.Decimal      `gorm:"type:numeric(18,2);not null"`
	Notes         string               `gorm:"type:text"`
	SubmittedBy   uuid.UUID            `gorm:"type:uuid;not null"`
	SubmittedAt   time.Time            `gorm:"not null"`

	ATMTotal     *decimal.Decimal `gorm:"column:atm_total;type:numeric(18,2)"`
	InvoiceTotal *decimal.Decimal `gorm:"type:numeric(18,2)"`
	ReviewedBy   *uuid.UUID       `gorm:"type:uuid"`
	ReviewedAt   *time.Time
	ReviewNotes  string `gorm:"type:text"`

	CalculatedTotal    *decimal.Decimal `gorm:"type:numeric(18,2)"`
	CountedTotal       *decimal.Decimal `gorm:"type:numeric(18,2)"`
	Variance           *decimal.Decimal `gorm:"type:numeric(18,2)"`
	IntegritySignature string           `gorm:"type:varchar(160)"`
	ClosedBy           *uuid.UUID       `gorm:"type:uuid"`
	ClosedAt           *time.Time

	ReconciledBy               *uuid.UUID `gorm:"type:uuid"`
	ReconciledAt               *time.Time
	ReconciliationAccepted     *bool
	ReconciliationObservations string `gorm:"type:text"`

	CashSentBy *uuid.UUID `gorm:"type:uuid"`
	CashSentAt *time.Time
}

// TableName returns the table name for GORM
func (DailyLedgerModel) TableName() string {
	return "daily_ledgers"
}

// ToDomain converts the persistence model to a domain DailyLedger.
func (m *DailyLedgerModel) ToDomain() *ledger.DailyLedger {
	return &ledger.DailyLedger{
		TenantAggregateRoot:        m.TenantAggregateRoot(),
		UnitID:                     m.UnitID,
		BusinessDate:               ledger.BusinessDay(m.BusinessDate),
		Status:                     m.Status,
		CashBoxStatus:              m.CashBoxStatus,
		OpeningFloat:               m.OpeningFloat,
		Notes:                      m.Notes,
		SubmittedBy:                m.SubmittedBy,
		SubmittedAt:                m.SubmittedAt.UTC(),
		ATMTotal:                   m.ATMTotal,
		InvoiceTotal:               m.InvoiceTotal,
		ReviewedBy:                 m.ReviewedBy,
		ReviewedAt:                 utcPtr(m.ReviewedAt),
		ReviewNotes:                m.ReviewNotes,
		CalculatedTotal:            m.CalculatedTotal,
		CountedTotal:               m.CountedTotal,
		Variance:                   m.Variance,
		IntegritySignature:         m.IntegritySignature,
		ClosedBy:                   m.ClosedBy,
		ClosedAt:                   utcPtr(m.ClosedAt),
		ReconciledBy:               m.ReconciledBy,
		ReconciledAt:               utcPtr(m.ReconciledAt),
		ReconciliationAccepted:     m.ReconciliationAccepted,
		ReconciliationObservations: m.ReconciliationObservations,
		CashSentBy:                 m.CashSentBy,
		CashSentAt:                 utcPtr(m.CashSentAt),
	}
}

// FromDomain populates the persistence model from a domain DailyLedger.
func (m *DailyLedgerModel) FromDomain(l *ledger.DailyLedger) {
	m.FromDomainTenantAggregateRoot(l.TenantAggregateRoot)
	m.UnitID = l.UnitID
	m.BusinessDate = l.BusinessDate
	m.Status = l.Status
	m.CashBoxStatus = l.CashBoxStatus
	m.OpeningFloat = l.OpeningFloat
	m.Notes = l.Notes
	m.SubmittedBy = l.SubmittedBy
	m.SubmittedAt = l.SubmittedAt
	m.ATMTotal = l.ATMTotal
	m.InvoiceTotal = l.InvoiceTotal
	m.ReviewedBy = l.ReviewedBy
	m.ReviewedAt = l.ReviewedAt
	m.ReviewNotes = l.ReviewNotes
	m.CalculatedTotal = l.CalculatedTotal
	m.CountedTotal = l.CountedTotal
	m.Variance = l.Variance
	m.IntegritySignature = l.IntegritySignature
	m.ClosedBy = l.ClosedBy
	m.ClosedAt = l.ClosedAt
	m.ReconciledBy = l.ReconciledBy
	m.ReconciledAt = l.ReconciledAt
	m.ReconciliationAccepted = l.ReconciliationAccepted
	m.ReconciliationObservations = l.ReconciliationObservations
	m.CashSentBy = l.CashSentBy
	m.CashSentAt = l.CashSentAt
}

// DailyLedgerModelFromDomain creates a new persistence model from a domain DailyLedger.
func DailyLedgerModelFromDomain(l *ledger.DailyLedger) *DailyLedgerModel {
	m := &DailyLedgerModel{}
	m.FromDomain(l)
	return m
}

// RevenueEntryModel is the persistence model for the RevenueEntry aggregate.
type RevenueEntryModel struct {
	TenantAggregateModel
	LedgerID      uuid.UUID            `gorm:"type:uuid;not null;index"`
	Amount        decimal.Decimal      `gorm:"type:numeric(18,2);not null"`
	StartedAt     time.Time            `gorm:"not null"`
	EndedAt       time.Time            `gorm:"not null"`
	PaymentMethod ledger.PaymentMethod `gorm:"type:varchar(20);not null"`
	Origin        string               `gorm:"type:varchar(480)"`
	Active        bool                 `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (RevenueEntryModel) TableName() string {
	return "revenue_entries"
}

// ToDomain converts the persistence model to a domain RevenueEntry.
func (m *RevenueEntryModel) ToDomain() *ledger.RevenueEntry {
	return &ledger.RevenueEntry{
		TenantAggregateRoot: m.TenantAggregateRoot(),
		LedgerID:            m.LedgerID,
		Amount:              m.Amount,
		StartedAt:           m.StartedAt.UTC(),
		EndedAt:             m.EndedAt.UTC(),
		PaymentMethod:       m.PaymentMethod,
		Origin:              m.Origin,
		Active:              m.Active,
	}
}

// FromDomain populates the persistence model from a domain RevenueEntry.
func (m *RevenueEntryModel) FromDomain(e *ledger.RevenueEntry) {
	m.FromDomainTenantAggregateRoot(e.TenantAggregateRoot)
	m.LedgerID = e.LedgerID
	m.Amount = e.Amount
	m.StartedAt = e.StartedAt
	m.EndedAt = e.EndedAt
	m.PaymentMethod = e.PaymentMethod
	m.Origin = e.Origin
	m.Active = e.Active
}

// RevenueEntryModelFromDomain creates a new persistence model from a domain RevenueEntry.
func RevenueEntryModelFromDomain(e *ledger.RevenueEntry) *RevenueEntryModel {
	m := &RevenueEntryModel{}
	m.FromDomain(e)
	return m
}

// AdjustmentRequestModel is the persistence model for the AdjustmentRequest aggregate.
// Snapshots are stored as JSON documents.
type AdjustmentRequestModel struct {
	TenantAggregateModel
	EntryID        uuid.UUID               `gorm:"type:uuid;not null;index"`
	RequesterID    uuid.UUID               `gorm:"type:uuid;not null"`
	Kind           ledger.AdjustmentKind   `gorm:"type:varchar(20);not null"`
	Justification  string                  `gorm:"type:text;not null"`
	BeforeSnapshot string                  `gorm:"column:before_snapshot;type:jsonb;not null"`
	AfterSnapshot  string                  `gorm:"column:after_snapshot;type:jsonb;not null"`
	Status         ledger.AdjustmentStatus `gorm:"type:varchar(20);not null;default:'pending';index"`
	ApproverID     *uuid.UUID              `gorm:"type:uuid"`
	DecisionNotes  string                  `gorm:"type:text"`
	RequestedAt    time.Time               `gorm:"not null"`
	DecidedAt      *time.Time
}

// TableName returns the table name for GORM
func (AdjustmentRequestModel) TableName() string {
	return "adjustment_requests"
}

// ToDomain converts the persistence model to a domain AdjustmentRequest.
func (m *AdjustmentRequestModel) ToDomain() (*ledger.AdjustmentRequest, error) {
	var before, after ledger.EntrySnapshot
	if err := json.Unmarshal([]byte(m.BeforeSnapshot), &before); err != nil {
		return nil, fmt.Errorf("decode before snapshot of %s: %w", m.ID, err)
	}
	if err := json.Unmarshal([]byte(m.AfterSnapshot), &after); err != nil {
		return nil, fmt.Errorf("decode after snapshot of %s: %w", m.ID, err)
	}
	return &ledger.AdjustmentRequest{
		TenantAggregateRoot: m.TenantAggregateRoot(),
		EntryID:             m.EntryID,
		RequesterID:         m.RequesterID,
		Kind:                m.Kind,
		Justification:       m.Justification,
		Before:              before.UTC(),
		After:               after.UTC(),
		Status:              m.Status,
		ApproverID:          m.ApproverID,
		DecisionNotes:       m.DecisionNotes,
		RequestedAt:         m.RequestedAt.UTC(),
		DecidedAt:           utcPtr(m.DecidedAt),
	}, nil
}

// FromDomain populates the persistence model from a domain AdjustmentRequest.
func (m *AdjustmentRequestModel) FromDomain(r *ledger.AdjustmentRequest) error {
	before, err := json.Marshal(r.Before)
	if err != nil {
		return fmt.Errorf("encode before snapshot: %w", err)
	}
	after, err := json.Marshal(r.After)
	if err != nil {
		return fmt.Errorf("encode after snapshot: %w", err)
	}
	m.FromDomainTenantAggregateRoot(r.TenantAggregateRoot)
	m.EntryID = r.EntryID
	m.RequesterID = r.RequesterID
	m.Kind = r.Kind
	m.Justification = r.Justification
	m.BeforeSnapshot = string(before)
	m.AfterSnapshot = string(after)
	m.Status = r.Status
	m.ApproverID = r.ApproverID
	m.DecisionNotes = r.DecisionNotes
	m.RequestedAt = r.RequestedAt
	m.DecidedAt = r.DecidedAt
	return nil
}

// UnitAssignmentModel grants a user the right to operate a unit
type UnitAssignmentModel struct {
	TenantID  uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	UnitID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	GrantedBy uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (UnitAssignmentModel) TableName() string {
	return "unit_assignments"
}

// ToDomain converts the persistence model to a domain UnitAssignment.
func (m *UnitAssignmentModel) ToDomain() ledger.UnitAssignment {
	return ledger.UnitAssignment{
		TenantID:  m.TenantID,
		UserID:    m.UserID,
		UnitID:    m.UnitID,
		GrantedBy: m.GrantedBy,
		CreatedAt: m.CreatedAt.UTC(),
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
