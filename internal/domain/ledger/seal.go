package ledger

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SealPayload is the tuple of closing fields covered by the integrity signature
type SealPayload struct {
	LedgerID        uuid.UUID
	BusinessDate    time.Time
	CalculatedTotal decimal.Decimal
	CountedTotal    decimal.Decimal
	Variance        decimal.Decimal
	ClosedBy        uuid.UUID
	ClosedAt        time.Time
}

// Canonical renders the payload in a stable byte form. Money is fixed at two
// decimals and time is UTC so that values read back from storage reproduce
// the same bytes.
func (p SealPayload) Canonical() []byte {
	parts := []string{
		"ledger-seal/v1",
		p.LedgerID.String(),
		p.BusinessDate.Format(time.DateOnly),
		p.CalculatedTotal.StringFixed(2),
		p.CountedTotal.StringFixed(2),
		p.Variance.StringFixed(2),
		p.ClosedBy.String(),
		p.ClosedAt.UTC().Format(time.RFC3339Nano),
	}
	return []byte(strings.Join(parts, "|"))
}

// Sealer signs and verifies closing payloads with tenant-bound keys
type Sealer interface {
	Seal(tenantID uuid.UUID, payload SealPayload) (string, error)
	Verify(tenantID uuid.UUID, payload SealPayload, signature string) (bool, error)
}
