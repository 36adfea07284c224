package handler

import (
	"net/http"
	"testing"
	"time"

	ledgerapp "github.com/cashledger/backend/internal/application/ledger"
	"github.com/cashledger/backend/internal/domain/ledger"
	"github.com/cashledger/backend/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newAdjustmentRouter(svc *MockAdjustmentService, scope *shared.Scope) *gin.Engine {
	h := NewAdjustmentHandler(svc)
	r := newTestRouter(scope)
	r.POST("/entries/:id/adjustments", h.Request)
	r.GET("/entries/:id/adjustments", h.ListByEntry)
	r.GET("/adjustments", h.List)
	r.GET("/adjustments/:id", h.Get)
	r.POST("/adjustments/:id/decision", h.Decide)
	r.POST("/adjustments/:id/withdraw", h.Withdraw)
	return r
}

func sampleAdjustment(status ledger.AdjustmentStatus) *ledgerapp.AdjustmentResponse {
	return &ledgerapp.AdjustmentResponse{
		ID:            uuid.New(),
		TenantID:      testTenantID,
		EntryID:       uuid.New(),
		RequesterID:   testUserID,
		Kind:          string(ledger.AdjustmentModify),
		Justification: "typo in amount",
		Status:        string(status),
		RequestedAt:   time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC),
		Version:       1,
	}
}

func TestAdjustmentHandler_Request(t *testing.T) {
	scope := operatorScope()
	entryID := uuid.New()

	t.Run("modify with partial patch", func(t *testing.T) {
		svc := new(MockAdjustmentService)
		svc.On("Request", mock.Anything, scope, entryID, mock.MatchedBy(func(in ledgerapp.AdjustmentRequestInput) bool {
			p := in.Proposed
			return in.Kind == ledger.AdjustmentModify &&
				in.Justification == "typo in amount" &&
				p.Amount != nil && p.Amount.Equal(decimal.RequireFromString("24.90")) &&
				p.PaymentMethod != nil && *p.PaymentMethod == ledger.PaymentMethodCash &&
				p.StartedAt == nil && p.EndedAt == nil && p.Origin == nil
		})).Return(sampleAdjustment(ledger.AdjustmentPending), nil)

		w := performRequest(newAdjustmentRouter(svc, &scope), http.MethodPost, "/entries/"+entryID.String()+"/adjustments", map[string]any{
			"kind":          "modify",
			"justification": "typo in amount",
			"proposed": map[string]any{
				"amount":         "24.90",
				"payment_method": "cash",
			},
		})
		assert.Equal(t, http.StatusCreated, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("remove without proposal", func(t *testing.T) {
		svc := new(MockAdjustmentService)
		svc.On("Request", mock.Anything, scope, entryID, ledgerapp.AdjustmentRequestInput{
			Kind:          ledger.AdjustmentRemove,
			Justification: "duplicate",
		}).Return(sampleAdjustment(ledger.AdjustmentPending), nil)

		w := performRequest(newAdjustmentRouter(svc, &scope), http.MethodPost, "/entries/"+entryID.String()+"/adjustments", map[string]any{
			"kind":          "remove",
			"justification": "duplicate",
		})
		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("justification required", func(t *testing.T) {
		svc := new(MockAdjustmentService)
		w := performRequest(newAdjustmentRouter(svc, &scope), http.MethodPost, "/entries/"+entryID.String()+"/adjustments", map[string]any{
			"kind": "remove",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("already pending", func(t *testing.T) {
		svc := new(MockAdjustmentService)
		svc.On("Request", mock.Anything, scope, entryID, mock.Anything).Return(nil, ledger.ErrPendingRequestExists)

		w := performRequest(newAdjustmentRouter(svc, &scope), http.MethodPost, "/entries/"+entryID.String()+"/adjustments", map[string]any{
			"kind":          "remove",
			"justification": "duplicate",
		})
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "ERR_PENDING_REQUEST_EXISTS", decodeResponse(t, w).Error.Code)
	})
}

func TestAdjustmentHandler_List(t *testing.T) {
	scope := operatorScope()

	t.Run("defaults to pending", func(t *testing.T) {
		svc := new(MockAdjustmentService)
		svc.On("ListByStatus", mock.Anything, scope, ledger.AdjustmentPending, mock.Anything).
			Return(shared.NewPaginated([]ledgerapp.AdjustmentResponse{*sampleAdjustment(ledger.AdjustmentPending)}, 1, 1, 20), nil)

		w := performRequest(newAdjustmentRouter(svc, &scope), http.MethodGet, "/adjustments", nil)
		require.Equal(t, http.StatusOK, w.Code)
		resp := decodeResponse(t, w)
		assert.Len(t, resp.Data, 1)
		require.NotNil(t, resp.Meta)
		assert.Equal(t, int64(1), resp.Meta.Total)
		svc.AssertExpectations(t)
	})

	t.Run("empty page is an empty array", func(t *testing.T) {
		svc := new(MockAdjustmentService)
		svc.On("ListByStatus", mock.Anything, scope, ledger.AdjustmentRejected, mock.Anything).
			Return(shared.NewPaginated[ledgerapp.AdjustmentResponse](nil, 0, 1, 20), nil)

		w := performRequest(newAdjustmentRouter(svc, &scope), http.MethodGet, "/adjustments?status=rejected", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"data":[]`)
	})

	t.Run("by entry", func(t *testing.T) {
		svc := new(MockAdjustmentService)
		entryID := uuid.New()
		svc.On("ListByEntry", mock.Anything, scope, entryID).Return([]ledgerapp.AdjustmentResponse{}, nil)

		w := performRequest(newAdjustmentRouter(svc, &scope), http.MethodGet, "/entries/"+entryID.String()+"/adjustments", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("bad status", func(t *testing.T) {
		svc := new(MockAdjustmentService)
		w := performRequest(newAdjustmentRouter(svc, &scope), http.MethodGet, "/adjustments?status=open", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAdjustmentHandler_Decide(t *testing.T) {
	approver := shared.NewTenantScope(testTenantID, uuid.New(), shared.PermAdjustmentDecide)
	id := uuid.New()

	t.Run("approve", func(t *testing.T) {
		svc := new(MockAdjustmentService)
		svc.On("Decide", mock.Anything, approver, id, ledgerapp.DecideAdjustmentRequest{
			Action: ledger.ActionApprove,
			Notes:  "ok",
		}).Return(sampleAdjustment(ledger.AdjustmentApproved), nil)

		w := performRequest(newAdjustmentRouter(svc, &approver), http.MethodPost, "/adjustments/"+id.String()+"/decision", map[string]any{
			"action": "APPROVE",
			"notes":  "ok",
		})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("self approval", func(t *testing.T) {
		svc := new(MockAdjustmentService)
		svc.On("Decide", mock.Anything, approver, id, mock.Anything).Return(nil, ledger.ErrSelfApproval)

		w := performRequest(newAdjustmentRouter(svc, &approver), http.MethodPost, "/adjustments/"+id.String()+"/decision", map[string]any{
			"action": "APPROVE",
		})
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "ERR_SELF_APPROVAL", decodeResponse(t, w).Error.Code)
	})

	t.Run("stale request", func(t *testing.T) {
		svc := new(MockAdjustmentService)
		svc.On("Decide", mock.Anything, approver, id, mock.Anything).Return(nil, ledger.ErrStaleRequest)

		w := performRequest(newAdjustmentRouter(svc, &approver), http.MethodPost, "/adjustments/"+id.String()+"/decision", map[string]any{
			"action": "APPROVE",
		})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("unknown action", func(t *testing.T) {
		svc := new(MockAdjustmentService)
		w := performRequest(newAdjustmentRouter(svc, &approver), http.MethodPost, "/adjustments/"+id.String()+"/decision", map[string]any{
			"action": "ESCALATE",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAdjustmentHandler_GetAndWithdraw(t *testing.T) {
	scope := operatorScope()
	id := uuid.New()

	svc := new(MockAdjustmentService)
	svc.On("GetByID", mock.Anything, scope, id).Return(sampleAdjustment(ledger.AdjustmentPending), nil)
	svc.On("Withdraw", mock.Anything, scope, id).Return(nil, ledger.ErrNotPending)
	r := newAdjustmentRouter(svc, &scope)

	w := performRequest(r, http.MethodGet, "/adjustments/"+id.String(), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = performRequest(r, http.MethodPost, "/adjustments/"+id.String()+"/withdraw", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "ERR_NOT_PENDING", decodeResponse(t, w).Error.Code)
}
