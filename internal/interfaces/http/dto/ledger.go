package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// SubmitLedgerRequest opens the ledger of a unit for a business date
type SubmitLedgerRequest struct {
	UnitID       string           `json:"unit_id" binding:"required,uuid"`
	BusinessDate string           `json:"business_date" binding:"required,datetime=2006-01-02"`
	OpeningFloat *decimal.Decimal `json:"opening_float" binding:"required"`
	Notes        string           `json:"notes" binding:"max=2000"`
}

// ReviewLedgerRequest carries the supervisor decision and optional corrections
type ReviewLedgerRequest struct {
	Decision     string           `json:"decision" binding:"required,oneof=APPROVE REJECT"`
	OpeningFloat *decimal.Decimal `json:"opening_float"`
	Notes        *string          `json:"notes" binding:"omitempty,max=2000"`
	ATMTotal     *decimal.Decimal `json:"atm_total"`
	InvoiceTotal *decimal.Decimal `json:"invoice_total"`
	Comment      string           `json:"comment" binding:"max=2000"`
}

// CloseLedgerRequest carries the physically counted cash
type CloseLedgerRequest struct {
	CountedTotal *decimal.Decimal `json:"counted_total" binding:"required"`
}

// ReconcileLedgerRequest carries the reviewer's verdict on the variance
type ReconcileLedgerRequest struct {
	Accepted     *bool  `json:"accepted" binding:"required"`
	Observations string `json:"observations" binding:"max=2000"`
}

// LedgerListQuery selects ledgers by unit and date range, or by status
type LedgerListQuery struct {
	PageQuery
	UnitID string `form:"unit_id" binding:"omitempty,uuid"`
	From   string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To     string `form:"to" binding:"omitempty,datetime=2006-01-02"`
	Status string `form:"status" binding:"omitempty,oneof=PENDING APPROVED REJECTED CLOSED RECONCILED"`
}

// EntryRequest creates or replaces a revenue entry
type EntryRequest struct {
	Amount        *decimal.Decimal `json:"amount" binding:"required"`
	StartedAt     *time.Time       `json:"started_at" binding:"required"`
	EndedAt       *time.Time       `json:"ended_at" binding:"required"`
	PaymentMethod string           `json:"payment_method" binding:"required,oneof=cash pix credit debit other"`
	Origin        string           `json:"origin" binding:"max=480"`
}

// EntryListQuery toggles deactivated entries in a ledger listing
type EntryListQuery struct {
	IncludeInactive bool `form:"include_inactive"`
}

// EntryPatch proposes new values for an entry. Omitted fields keep their value.
type EntryPatch struct {
	Amount        *decimal.Decimal `json:"amount"`
	StartedAt     *time.Time       `json:"started_at"`
	EndedAt       *time.Time       `json:"ended_at"`
	PaymentMethod *string          `json:"payment_method" binding:"omitempty,oneof=cash pix credit debit other"`
	Origin        *string          `json:"origin" binding:"omitempty,max=480"`
}

// AdjustmentRequest files a governed correction for an entry
type AdjustmentRequest struct {
	Kind          string      `json:"kind" binding:"required,oneof=modify remove"`
	Justification string      `json:"justification" binding:"required,max=4000"`
	Proposed      *EntryPatch `json:"proposed"`
}

// AdjustmentListQuery filters adjustment requests by status
type AdjustmentListQuery struct {
	PageQuery
	Status string `form:"status" binding:"omitempty,oneof=pending approved rejected"`
}

// DecisionRequest is the approver's verdict on an adjustment
type DecisionRequest struct {
	Action string `json:"action" binding:"required,oneof=APPROVE REJECT"`
	Notes  string `json:"notes" binding:"max=2000"`
}

// UnitAssignmentRequest grants or revokes a user's access to a unit
type UnitAssignmentRequest struct {
	TenantID string `json:"tenant_id" binding:"required,uuid"`
	UserID   string `json:"user_id" binding:"required,uuid"`
	UnitID   string `json:"unit_id" binding:"required,uuid"`
}

// AssignmentListQuery names the user whose unit grants are listed
type AssignmentListQuery struct {
	TenantID string `form:"tenant_id" binding:"required,uuid"`
	UserID   string `form:"user_id" binding:"required,uuid"`
}
