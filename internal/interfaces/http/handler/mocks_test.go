package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	ledgerapp "github.com/cashledger/backend/internal/application/ledger"
	"github.com/cashledger/backend/internal/domain/ledger"
	"github.com/cashledger/backend/internal/domain/shared"
	"github.com/cashledger/backend/internal/interfaces/http/dto"
	"github.com/cashledger/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var (
	testTenantID = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	testUserID   = uuid.MustParse("22222222-2222-2222-2222-222222222222")
	testUnitID   = uuid.MustParse("33333333-3333-3333-3333-333333333333")
)

func operatorScope() shared.Scope {
	return shared.NewTenantScope(testTenantID, testUserID,
		shared.PermLedgerRead, shared.PermLedgerSubmit, shared.PermEntryWrite, shared.PermAdjustmentRequest)
}

// newTestRouter returns an engine that authenticates every request as scope
func newTestRouter(scope *shared.Scope) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.RequestIDKey, "test-request-id")
		if scope != nil {
			c.Set(middleware.ScopeKey, *scope)
		}
		c.Next()
	})
	return r
}

func scopeRef(s shared.Scope) *shared.Scope { return &s }

func performRequest(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = bytes.NewBufferString(b)
		default:
			raw, _ := json.Marshal(b)
			reader = bytes.NewBuffer(raw)
		}
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func sampleLedger(status ledger.LedgerStatus) *ledgerapp.LedgerResponse {
	now := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)
	return &ledgerapp.LedgerResponse{
		ID:           uuid.New(),
		TenantID:     testTenantID,
		UnitID:       testUnitID,
		BusinessDate: "2026-03-10",
		Status:       string(status),
		OpeningFloat: decimal.RequireFromString("150.00"),
		SubmittedBy:  testUserID,
		SubmittedAt:  now,
		CreatedAt:    now,
		UpdatedAt:    now,
		Version:      1,
	}
}

// MockLedgerService implements LedgerService for testing
type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) ledger(args mock.Arguments) (*ledgerapp.LedgerResponse, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledgerapp.LedgerResponse), args.Error(1)
}

func (m *MockLedgerService) Submit(ctx context.Context, scope shared.Scope, req ledgerapp.SubmitLedgerRequest) (*ledgerapp.LedgerResponse, error) {
	return m.ledger(m.Called(ctx, scope, req))
}

func (m *MockLedgerService) Review(ctx context.Context, scope shared.Scope, id uuid.UUID, req ledgerapp.ReviewLedgerRequest) (*ledgerapp.LedgerResponse, error) {
	return m.ledger(m.Called(ctx, scope, id, req))
}

func (m *MockLedgerService) Close(ctx context.Context, scope shared.Scope, id uuid.UUID, counted decimal.Decimal) (*ledgerapp.LedgerResponse, error) {
	return m.ledger(m.Called(ctx, scope, id, counted))
}

func (m *MockLedgerService) Reconcile(ctx context.Context, scope shared.Scope, id uuid.UUID, req ledgerapp.ReconcileLedgerRequest) (*ledgerapp.LedgerResponse, error) {
	return m.ledger(m.Called(ctx, scope, id, req))
}

func (m *MockLedgerService) Dispatch(ctx context.Context, scope shared.Scope, id uuid.UUID) (*ledgerapp.LedgerResponse, error) {
	return m.ledger(m.Called(ctx, scope, id))
}

func (m *MockLedgerService) GetByID(ctx context.Context, scope shared.Scope, id uuid.UUID) (*ledgerapp.LedgerResponse, error) {
	return m.ledger(m.Called(ctx, scope, id))
}

func (m *MockLedgerService) ListByUnit(ctx context.Context, scope shared.Scope, unitID uuid.UUID, from, to time.Time) ([]ledgerapp.LedgerResponse, error) {
	args := m.Called(ctx, scope, unitID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledgerapp.LedgerResponse), args.Error(1)
}

func (m *MockLedgerService) ListByStatus(ctx context.Context, scope shared.Scope, status ledger.LedgerStatus, filter shared.Filter) (shared.Paginated[ledgerapp.LedgerResponse], error) {
	args := m.Called(ctx, scope, status, filter)
	return args.Get(0).(shared.Paginated[ledgerapp.LedgerResponse]), args.Error(1)
}

func (m *MockLedgerService) ListAll(ctx context.Context, scope shared.Scope, filter shared.Filter) (shared.Paginated[ledgerapp.LedgerResponse], error) {
	args := m.Called(ctx, scope, filter)
	return args.Get(0).(shared.Paginated[ledgerapp.LedgerResponse]), args.Error(1)
}

// MockEntryService implements EntryService for testing
type MockEntryService struct {
	mock.Mock
}

func (m *MockEntryService) entry(args mock.Arguments) (*ledgerapp.EntryResponse, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledgerapp.EntryResponse), args.Error(1)
}

func (m *MockEntryService) entries(args mock.Arguments) ([]ledgerapp.EntryResponse, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledgerapp.EntryResponse), args.Error(1)
}

func (m *MockEntryService) Create(ctx context.Context, scope shared.Scope, ledgerID uuid.UUID, req ledgerapp.EntryRequest) (*ledgerapp.EntryResponse, error) {
	return m.entry(m.Called(ctx, scope, ledgerID, req))
}

func (m *MockEntryService) Update(ctx context.Context, scope shared.Scope, entryID uuid.UUID, req ledgerapp.EntryRequest) (*ledgerapp.EntryResponse, error) {
	return m.entry(m.Called(ctx, scope, entryID, req))
}

func (m *MockEntryService) Delete(ctx context.Context, scope shared.Scope, entryID uuid.UUID) error {
	return m.Called(ctx, scope, entryID).Error(0)
}

func (m *MockEntryService) GetByID(ctx context.Context, scope shared.Scope, entryID uuid.UUID) (*ledgerapp.EntryResponse, error) {
	return m.entry(m.Called(ctx, scope, entryID))
}

func (m *MockEntryService) ListByLedger(ctx context.Context, scope shared.Scope, ledgerID uuid.UUID, includeInactive bool) ([]ledgerapp.EntryResponse, error) {
	return m.entries(m.Called(ctx, scope, ledgerID, includeInactive))
}

func (m *MockEntryService) FindOverlaps(ctx context.Context, scope shared.Scope, ledgerID uuid.UUID, interval ledger.Interval, excludeID uuid.UUID) ([]ledgerapp.EntryResponse, error) {
	return m.entries(m.Called(ctx, scope, ledgerID, interval, excludeID))
}

// MockAdjustmentService implements AdjustmentService for testing
type MockAdjustmentService struct {
	mock.Mock
}

func (m *MockAdjustmentService) request(args mock.Arguments) (*ledgerapp.AdjustmentResponse, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledgerapp.AdjustmentResponse), args.Error(1)
}

func (m *MockAdjustmentService) Request(ctx context.Context, scope shared.Scope, entryID uuid.UUID, req ledgerapp.AdjustmentRequestInput) (*ledgerapp.AdjustmentResponse, error) {
	return m.request(m.Called(ctx, scope, entryID, req))
}

func (m *MockAdjustmentService) Decide(ctx context.Context, scope shared.Scope, id uuid.UUID, req ledgerapp.DecideAdjustmentRequest) (*ledgerapp.AdjustmentResponse, error) {
	return m.request(m.Called(ctx, scope, id, req))
}

func (m *MockAdjustmentService) Withdraw(ctx context.Context, scope shared.Scope, id uuid.UUID) (*ledgerapp.AdjustmentResponse, error) {
	return m.request(m.Called(ctx, scope, id))
}

func (m *MockAdjustmentService) GetByID(ctx context.Context, scope shared.Scope, id uuid.UUID) (*ledgerapp.AdjustmentResponse, error) {
	return m.request(m.Called(ctx, scope, id))
}

func (m *MockAdjustmentService) ListByEntry(ctx context.Context, scope shared.Scope, entryID uuid.UUID) ([]ledgerapp.AdjustmentResponse, error) {
	args := m.Called(ctx, scope, entryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledgerapp.AdjustmentResponse), args.Error(1)
}

func (m *MockAdjustmentService) ListByStatus(ctx context.Context, scope shared.Scope, status ledger.AdjustmentStatus, filter shared.Filter) (shared.Paginated[ledgerapp.AdjustmentResponse], error) {
	args := m.Called(ctx, scope, status, filter)
	return args.Get(0).(shared.Paginated[ledgerapp.AdjustmentResponse]), args.Error(1)
}

// MockAssignmentService implements AssignmentService for testing
type MockAssignmentService struct {
	mock.Mock
}

func (m *MockAssignmentService) Assign(ctx context.Context, scope shared.Scope, req ledgerapp.UnitAssignmentRequest) (*ledger.UnitAssignment, error) {
	args := m.Called(ctx, scope, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.UnitAssignment), args.Error(1)
}

func (m *MockAssignmentService) Revoke(ctx context.Context, scope shared.Scope, req ledgerapp.UnitAssignmentRequest) error {
	return m.Called(ctx, scope, req).Error(0)
}

func (m *MockAssignmentService) ListByUser(ctx context.Context, scope shared.Scope, tenantID, userID uuid.UUID) ([]ledger.UnitAssignment, error) {
	args := m.Called(ctx, scope, tenantID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledger.UnitAssignment), args.Error(1)
}

// MockLedgerMetrics implements event.LedgerMetrics for testing
type MockLedgerMetrics struct {
	mock.Mock
}

func (m *MockLedgerMetrics) RecordTransition(ctx context.Context, transition, result string) {
	m.Called(transition, result)
}

func (m *MockLedgerMetrics) RecordVariance(ctx context.Context, variance decimal.Decimal) {
	m.Called(variance)
}

func (m *MockLedgerMetrics) RecordAdjustmentDecision(ctx context.Context, action string) {
	m.Called(action)
}

func (m *MockLedgerMetrics) RecordIntegrityViolation(ctx context.Context) {
	m.Called()
}
