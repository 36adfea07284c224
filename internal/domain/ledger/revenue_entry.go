package ledger

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cashledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

const maxOriginLength = 120

// EntryFields are the caller-controlled attributes of a revenue entry
type EntryFields struct {
	Amount        decimal.Decimal
	StartedAt     time.Time
	EndedAt       time.Time
	PaymentMethod PaymentMethod
	Origin        string
}

// Interval returns the entry's half-open time range
func (f EntryFields) Interval() Interval {
	return Interval{Start: f.StartedAt, End: f.EndedAt}
}

// Normalize canonicalizes free text and timestamps
func (f EntryFields) Normalize() EntryFields {
	f.Origin = NormalizeText(f.Origin)
	f.StartedAt = f.StartedAt.UTC().Truncate(time.Microsecond)
	f.EndedAt = f.EndedAt.UTC().Truncate(time.Microsecond)
	return f
}

// Validate checks the fields in order: amount, time range, future end, payment method.
func (f EntryFields) Validate(now time.Time) error {
	if !f.Amount.IsPositive() || !f.Amount.Equal(f.Amount.Round(2)) {
		return ErrInvalidAmount
	}
	if !f.EndedAt.After(f.StartedAt) {
		return ErrInvalidTimeRange
	}
	if f.EndedAt.After(now) {
		return ErrFutureTimestamp
	}
	if !f.PaymentMethod.IsValid() {
		return ErrInvalidPaymentMethod.With("value", string(f.PaymentMethod))
	}
	if utf8.RuneCountInString(f.Origin) > maxOriginLength {
		return ErrOriginTooLong
	}
	return nil
}

// NormalizeText trims and NFC-normalizes user supplied text
func NormalizeText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// RevenueEntry is one time-stamped cash-in event of a daily ledger.
// Entries are never deleted; removal clears Active.
type RevenueEntry struct {
	shared.TenantAggregateRoot
	LedgerID      uuid.UUID       `json:"ledger_id"`
	Amount        decimal.Decimal `json:"amount"`
	StartedAt     time.Time       `json:"started_at"`
	EndedAt       time.Time       `json:"ended_at"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Origin        string          `json:"origin"`
	Active        bool            `json:"active"`
}

// NewRevenueEntry creates a validated active entry
func NewRevenueEntry(tenantID, ledgerID, createdBy uuid.UUID, fields EntryFields, now time.Time) (*RevenueEntry, error) {
	fields = fields.Normalize()
	if err := fields.Validate(now); err != nil {
		return nil, err
	}
	entry := &RevenueEntry{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID, createdBy, now),
		LedgerID:            ledgerID,
		Active:              true,
	}
	entry.assign(fields)
	return entry, nil
}

// Fields returns the caller-controlled attributes
func (e *RevenueEntry) Fields() EntryFields {
	return EntryFields{
		Amount:        e.Amount,
		StartedAt:     e.StartedAt,
		EndedAt:       e.EndedAt,
		PaymentMethod: e.PaymentMethod,
		Origin:        e.Origin,
	}
}

// Interval returns the entry's half-open time range
func (e *RevenueEntry) Interval() Interval {
	return Interval{Start: e.StartedAt, End: e.EndedAt}
}

// Update replaces the entry fields after validation
func (e *RevenueEntry) Update(fields EntryFields, now time.Time) error {
	if !e.Active {
		return ErrEntryInactive
	}
	fields = fields.Normalize()
	if err := fields.Validate(now); err != nil {
		return err
	}
	e.assign(fields)
	e.Touch(now)
	return nil
}

// Deactivate soft-deletes the entry
func (e *RevenueEntry) Deactivate(now time.Time) error {
	if !e.Active {
		return ErrEntryInactive
	}
	e.Active = false
	e.Touch(now)
	return nil
}

// Snapshot captures the entry's current state for adjustment governance
func (e *RevenueEntry) Snapshot() EntrySnapshot {
	return EntrySnapshot{
		Amount:        e.Amount,
		StartedAt:     e.StartedAt,
		EndedAt:       e.EndedAt,
		PaymentMethod: e.PaymentMethod,
		Origin:        e.Origin,
		Active:        e.Active,
	}
}

func (e *RevenueEntry) assign(f EntryFields) {
	e.Amount = f.Amount
	e.StartedAt = f.StartedAt
	e.EndedAt = f.EndedAt
	e.PaymentMethod = f.PaymentMethod
	e.Origin = f.Origin
}

// SumActive adds up the amounts of active entries
func SumActive(entries []RevenueEntry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		if e.Active {
			total = total.Add(e.Amount)
		}
	}
	return total
}
