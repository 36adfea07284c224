package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/cashledger/backend/internal/domain/ledger"
	"github.com/cashledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// =============================================================================
// In-memory transactional store
// =============================================================================

type memState struct {
	ledgers     map[uuid.UUID]ledger.DailyLedger
	entries     map[uuid.UUID]ledger.RevenueEntry
	adjustments map[uuid.UUID]ledger.AdjustmentRequest
}

func (s *memState) clone() *memState {
	return &memState{
		ledgers:     maps.Clone(s.ledgers),
		entries:     maps.Clone(s.entries),
		adjustments: maps.Clone(s.adjustments),
	}
}

// memStore serializes transactions and publishes the working copy only on success
type memStore struct {
	mu    sync.Mutex
	state *memState
	// failNext makes the next transaction fail with an infrastructure error
	failNext error
	// beforeTx runs once ahead of the next transaction, outside the lock
	beforeTx func()
}

func newMemStore() *memStore {
	return &memStore{state: &memState{
		ledgers:     map[uuid.UUID]ledger.DailyLedger{},
		entries:     map[uuid.UUID]ledger.RevenueEntry{},
		adjustments: map[uuid.UUID]ledger.AdjustmentRequest{},
	}}
}

func (s *memStore) Repositories(scope shared.Scope) ledger.Repositories {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &memRepos{state: s.state.clone(), scope: scope}
}

func (s *memStore) Transaction(_ context.Context, scope shared.Scope, fn func(repos ledger.Repositories) error) error {
	s.mu.Lock()
	hook := s.beforeTx
	s.beforeTx = nil
	s.mu.Unlock()
	if hook != nil {
		hook()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext != nil {
		err := s.failNext
		s.failNext = nil
		return shared.NewInfrastructureError(err)
	}
	work := s.state.clone()
	if err := fn(&memRepos{state: work, scope: scope}); err != nil {
		return err
	}
	s.state = work
	return nil
}

// tamperEntry writes an entry directly, bypassing every service check
func (s *memStore) tamperEntry(id uuid.UUID, mutate func(e *ledger.RevenueEntry)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.state.entries[id]
	mutate(&e)
	s.state.entries[id] = e
}

// tamperLedger writes a ledger directly, bypassing every service check
func (s *memStore) tamperLedger(id uuid.UUID, mutate func(l *ledger.DailyLedger)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.state.ledgers[id]
	mutate(&l)
	s.state.ledgers[id] = l
}

func (s *memStore) setBeforeTx(hook func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beforeTx = hook
}

func (s *memStore) entry(id uuid.UUID) ledger.RevenueEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.entries[id]
}

func (s *memStore) ledgerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.ledgers)
}

type memRepos struct {
	state *memState
	scope shared.Scope
}

func (r *memRepos) Ledgers() ledger.LedgerRepository         { return memLedgers{r} }
func (r *memRepos) Entries() ledger.EntryRepository          { return memEntries{r} }
func (r *memRepos) Adjustments() ledger.AdjustmentRepository { return memAdjustments{r} }

// visible mirrors the tenant callbacks: system sees all, tenant sees its own,
// anything else sees nothing
func (r *memRepos) visible(tenantID uuid.UUID) bool {
	if r.scope.IsSystem() {
		return true
	}
	return r.scope.HasTenant() && tenantID == r.scope.TenantID
}

func (r *memRepos) stamp(tenantID *uuid.UUID) error {
	if !r.scope.HasTenant() {
		return shared.ErrTenantRequired
	}
	*tenantID = r.scope.TenantID
	return nil
}

func notFound(resource string) error {
	return shared.ErrNotFound.With("resource", resource)
}

func paginate[T any](items []T, filter shared.Filter) []T {
	filter = filter.Normalize()
	start := min(filter.Offset(), len(items))
	end := min(start+filter.PageSize, len(items))
	return items[start:end]
}

// ---- ledgers ----

type memLedgers struct{ *memRepos }

func (r memLedgers) FindByID(_ context.Context, id uuid.UUID) (*ledger.DailyLedger, error) {
	l, ok := r.state.ledgers[id]
	if !ok || !r.visible(l.TenantID) {
		return nil, notFound("daily_ledger")
	}
	return &l, nil
}

func (r memLedgers) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*ledger.DailyLedger, error) {
	return r.FindByID(ctx, id)
}

func (r memLedgers) FindByUnitAndDate(_ context.Context, unitID uuid.UUID, businessDate time.Time) (*ledger.DailyLedger, error) {
	for _, l := range r.state.ledgers {
		if r.visible(l.TenantID) && l.UnitID == unitID && l.BusinessDate.Equal(businessDate) {
			return &l, nil
		}
	}
	return nil, notFound("daily_ledger")
}

func (r memLedgers) FindByUnitInRange(_ context.Context, unitID uuid.UUID, from, to time.Time) ([]ledger.DailyLedger, error) {
	var out []ledger.DailyLedger
	for _, l := range r.state.ledgers {
		if r.visible(l.TenantID) && l.UnitID == unitID && !l.BusinessDate.Before(from) && !l.BusinessDate.After(to) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BusinessDate.Before(out[j].BusinessDate) })
	return out, nil
}

func (r memLedgers) FindByStatus(_ context.Context, status ledger.LedgerStatus, filter shared.Filter) ([]ledger.DailyLedger, int64, error) {
	var out []ledger.DailyLedger
	for _, l := range r.state.ledgers {
		if r.visible(l.TenantID) && l.Status == status {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BusinessDate.After(out[j].BusinessDate) })
	return paginate(out, filter), int64(len(out)), nil
}

func (r memLedgers) FindAll(_ context.Context, filter shared.Filter) ([]ledger.DailyLedger, int64, error) {
	var out []ledger.DailyLedger
	for _, l := range r.state.ledgers {
		if r.visible(l.TenantID) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BusinessDate.After(out[j].BusinessDate) })
	return paginate(out, filter), int64(len(out)), nil
}

func (r memLedgers) Create(_ context.Context, l *ledger.DailyLedger) error {
	if err := r.stamp(&l.TenantID); err != nil {
		return err
	}
	for _, other := range r.state.ledgers {
		if other.TenantID == l.TenantID && other.UnitID == l.UnitID && other.BusinessDate.Equal(l.BusinessDate) {
			return ledger.ErrLedgerExists
		}
	}
	stored := *l
	stored.ClearDomainEvents()
	r.state.ledgers[l.ID] = stored
	return nil
}

func (r memLedgers) SaveWithLock(_ context.Context, l *ledger.DailyLedger) error {
	current, ok := r.state.ledgers[l.ID]
	if !ok || !r.visible(current.TenantID) {
		return notFound("daily_ledger")
	}
	if current.Version != l.Version {
		return shared.ErrConcurrencyConflict
	}
	l.IncrementVersion()
	stored := *l
	stored.ClearDomainEvents()
	r.state.ledgers[l.ID] = stored
	return nil
}

// ---- entries ----

type memEntries struct{ *memRepos }

func (r memEntries) FindByID(_ context.Context, id uuid.UUID) (*ledger.RevenueEntry, error) {
	e, ok := r.state.entries[id]
	if !ok || !r.visible(e.TenantID) {
		return nil, notFound("revenue_entry")
	}
	return &e, nil
}

func (r memEntries) FindByLedger(_ context.Context, ledgerID uuid.UUID, includeInactive bool) ([]ledger.RevenueEntry, error) {
	var out []ledger.RevenueEntry
	for _, e := range r.state.entries {
		if r.visible(e.TenantID) && e.LedgerID == ledgerID && (includeInactive || e.Active) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}

func (r memEntries) FindOverlapping(_ context.Context, ledgerID uuid.UUID, interval ledger.Interval, excludeID uuid.UUID) ([]ledger.RevenueEntry, error) {
	var out []ledger.RevenueEntry
	for _, e := range r.state.entries {
		if r.visible(e.TenantID) && e.LedgerID == ledgerID && e.Active && e.ID != excludeID && e.Interval().Overlaps(interval) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r memEntries) Create(_ context.Context, e *ledger.RevenueEntry) error {
	if err := r.stamp(&e.TenantID); err != nil {
		return err
	}
	r.state.entries[e.ID] = *e
	return nil
}

func (r memEntries) SaveWithLock(_ context.Context, e *ledger.RevenueEntry) error {
	current, ok := r.state.entries[e.ID]
	if !ok || !r.visible(current.TenantID) {
		return notFound("revenue_entry")
	}
	if current.Version != e.Version {
		return shared.ErrConcurrencyConflict
	}
	e.IncrementVersion()
	r.state.entries[e.ID] = *e
	return nil
}

// ---- adjustments ----

type memAdjustments struct{ *memRepos }

func (r memAdjustments) FindByID(_ context.Context, id uuid.UUID) (*ledger.AdjustmentRequest, error) {
	a, ok := r.state.adjustments[id]
	if !ok || !r.visible(a.TenantID) {
		return nil, notFound("adjustment_request")
	}
	return &a, nil
}

func (r memAdjustments) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*ledger.AdjustmentRequest, error) {
	return r.FindByID(ctx, id)
}

func (r memAdjustments) FindPendingByEntry(_ context.Context, entryID uuid.UUID) (*ledger.AdjustmentRequest, error) {
	for _, a := range r.state.adjustments {
		if r.visible(a.TenantID) && a.EntryID == entryID && a.Status == ledger.AdjustmentPending {
			return &a, nil
		}
	}
	return nil, notFound("adjustment_request")
}

func (r memAdjustments) FindByEntry(_ context.Context, entryID uuid.UUID) ([]ledger.AdjustmentRequest, error) {
	var out []ledger.AdjustmentRequest
	for _, a := range r.state.adjustments {
		if r.visible(a.TenantID) && a.EntryID == entryID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.After(out[j].RequestedAt) })
	return out, nil
}

func (r memAdjustments) FindByStatus(_ context.Context, status ledger.AdjustmentStatus, filter shared.Filter) ([]ledger.AdjustmentRequest, int64, error) {
	var out []ledger.AdjustmentRequest
	for _, a := range r.state.adjustments {
		if r.visible(a.TenantID) && a.Status == status {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.After(out[j].RequestedAt) })
	return paginate(out, filter), int64(len(out)), nil
}

func (r memAdjustments) Create(_ context.Context, a *ledger.AdjustmentRequest) error {
	if err := r.stamp(&a.TenantID); err != nil {
		return err
	}
	for _, other := range r.state.adjustments {
		if other.EntryID == a.EntryID && other.Status == ledger.AdjustmentPending {
			return ledger.ErrPendingRequestExists
		}
	}
	stored := *a
	stored.ClearDomainEvents()
	r.state.adjustments[a.ID] = stored
	return nil
}

func (r memAdjustments) SaveWithLock(_ context.Context, a *ledger.AdjustmentRequest) error {
	current, ok := r.state.adjustments[a.ID]
	if !ok || !r.visible(current.TenantID) {
		return notFound("adjustment_request")
	}
	if current.Version != a.Version {
		return shared.ErrConcurrencyConflict
	}
	a.IncrementVersion()
	stored := *a
	stored.ClearDomainEvents()
	r.state.adjustments[a.ID] = stored
	return nil
}

// =============================================================================
// Collaborator mocks
// =============================================================================

type MockUnitAccessGuard struct {
	mock.Mock
}

func (m *MockUnitAccessGuard) Authorize(ctx context.Context, userID, unitID, tenantID uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID, unitID, tenantID)
	return args.Bool(0), args.Error(1)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

// recordingPublisher keeps every published event type
type recordingPublisher struct {
	mu    sync.Mutex
	types []string
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range events {
		p.types = append(p.types, e.EventType())
	}
	return nil
}

func (p *recordingPublisher) has(eventType string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Contains(p.types, eventType)
}

// digestSealer signs the canonical payload with a tenant-bound SHA-256 digest
type digestSealer struct{}

func (digestSealer) Seal(tenantID uuid.UUID, payload ledger.SealPayload) (string, error) {
	sum := sha256.Sum256(append(tenantID[:], payload.Canonical()...))
	return "test." + hex.EncodeToString(sum[:]), nil
}

func (s digestSealer) Verify(tenantID uuid.UUID, payload ledger.SealPayload, signature string) (bool, error) {
	expected, _ := s.Seal(tenantID, payload)
	return expected == signature, nil
}
