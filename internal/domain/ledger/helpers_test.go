package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var (
	testDay = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	testNow = testDay.Add(20 * time.Hour)
)

// hashSealer is a deterministic Sealer for tests
type hashSealer struct{}

func (hashSealer) Seal(tenantID uuid.UUID, p SealPayload) (string, error) {
	sum := sha256.Sum256(append(tenantID[:], p.Canonical()...))
	return hex.EncodeToString(sum[:]), nil
}

func (s hashSealer) Verify(tenantID uuid.UUID, p SealPayload, signature string) (bool, error) {
	want, _ := s.Seal(tenantID, p)
	return want == signature, nil
}

func at(hour, minute int) time.Time {
	return testDay.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestLedger(t *testing.T) *DailyLedger {
	t.Helper()
	l, err := NewDailyLedger(uuid.New(), uuid.New(), testDay, money("100.00"), "morning shift", uuid.New(), testNow)
	require.NoError(t, err)
	return l
}

func approvedTestLedger(t *testing.T) *DailyLedger {
	t.Helper()
	l := newTestLedger(t)
	zero := decimal.Zero
	require.NoError(t, l.Review(ReviewInput{Decision: ReviewApprove, ATMTotal: &zero}, uuid.New(), testNow))
	return l
}

func newTestEntry(t *testing.T, ledgerID uuid.UUID, amount string, start, end time.Time) *RevenueEntry {
	t.Helper()
	e, err := NewRevenueEntry(uuid.New(), ledgerID, uuid.New(), EntryFields{
		Amount:        money(amount),
		StartedAt:     start,
		EndedAt:       end,
		PaymentMethod: PaymentMethodCash,
	}, testNow)
	require.NoError(t, err)
	return e
}
