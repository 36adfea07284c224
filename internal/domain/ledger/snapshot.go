package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntrySnapshot is the serialized state of a revenue entry held by an adjustment request
type EntrySnapshot struct {
	Amount        decimal.Decimal `json:"amount"`
	StartedAt     time.Time       `json:"started_at"`
	EndedAt       time.Time       `json:"ended_at"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Origin        string          `json:"origin"`
	Active        bool            `json:"active"`
}

// Equal compares snapshots by value
func (s EntrySnapshot) Equal(other EntrySnapshot) bool {
	return s.Amount.Equal(other.Amount) &&
		s.StartedAt.Equal(other.StartedAt) &&
		s.EndedAt.Equal(other.EndedAt) &&
		s.PaymentMethod == other.PaymentMethod &&
		s.Origin == other.Origin &&
		s.Active == other.Active
}

// UTC returns the snapshot with its timestamps in UTC
func (s EntrySnapshot) UTC() EntrySnapshot {
	s.StartedAt = s.StartedAt.UTC()
	s.EndedAt = s.EndedAt.UTC()
	return s
}

// Fields returns the snapshot as entry fields
func (s EntrySnapshot) Fields() EntryFields {
	return EntryFields{
		Amount:        s.Amount,
		StartedAt:     s.StartedAt,
		EndedAt:       s.EndedAt,
		PaymentMethod: s.PaymentMethod,
		Origin:        s.Origin,
	}
}

// EntryPatch carries the fields a modify request proposes to change. Nil keeps the current value.
type EntryPatch struct {
	Amount        *decimal.Decimal
	StartedAt     *time.Time
	EndedAt       *time.Time
	PaymentMethod *PaymentMethod
	Origin        *string
}

// IsEmpty reports whether the patch changes nothing
func (p EntryPatch) IsEmpty() bool {
	return p.Amount == nil && p.StartedAt == nil && p.EndedAt == nil &&
		p.PaymentMethod == nil && p.Origin == nil
}

// ApplyTo returns base with the patch applied
func (p EntryPatch) ApplyTo(base EntrySnapshot) EntrySnapshot {
	if p.Amount != nil {
		base.Amount = *p.Amount
	}
	if p.StartedAt != nil {
		base.StartedAt = p.StartedAt.UTC().Truncate(time.Microsecond)
	}
	if p.EndedAt != nil {
		base.EndedAt = p.EndedAt.UTC().Truncate(time.Microsecond)
	}
	if p.PaymentMethod != nil {
		base.PaymentMethod = *p.PaymentMethod
	}
	if p.Origin != nil {
		base.Origin = NormalizeText(*p.Origin)
	}
	return base
}
