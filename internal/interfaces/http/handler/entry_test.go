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
)

func newEntryRouter(svc *MockEntryService, scope *shared.Scope) *gin.Engine {
	h := NewEntryHandler(svc)
	r := newTestRouter(scope)
	r.GET("/ledgers/:id/entries", h.List)
	r.POST("/ledgers/:id/entries", h.Create)
	r.GET("/ledgers/:id/overlaps", h.Overlaps)
	r.GET("/entries/:id", h.Get)
	r.PUT("/entries/:id", h.Update)
	r.DELETE("/entries/:id", h.Delete)
	return r
}

func sampleEntry(ledgerID uuid.UUID) *ledgerapp.EntryResponse {
	return &ledgerapp.EntryResponse{
		ID:            uuid.New(),
		TenantID:      testTenantID,
		LedgerID:      ledgerID,
		Amount:        decimal.RequireFromString("42.90"),
		StartedAt:     time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC),
		EndedAt:       time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		PaymentMethod: string(ledger.PaymentMethodPix),
		Active:        true,
		CreatedBy:     testUserID,
		Version:       1,
	}
}

func entryBody() map[string]any {
	return map[string]any{
		"amount":         "42.90",
		"started_at":     "2026-03-10T08:00:00Z",
		"ended_at":       "2026-03-10T09:00:00Z",
		"payment_method": "pix",
		"origin":         "counter 2",
	}
}

func TestEntryHandler_Create(t *testing.T) {
	scope := operatorScope()
	ledgerID := uuid.New()

	t.Run("created", func(t *testing.T) {
		svc := new(MockEntryService)
		svc.On("Create", mock.Anything, scope, ledgerID, mock.MatchedBy(func(req ledgerapp.EntryRequest) bool {
			return req.Amount.Equal(decimal.RequireFromString("42.9")) &&
				req.PaymentMethod == ledger.PaymentMethodPix &&
				req.Origin == "counter 2" &&
				req.EndedAt.Sub(req.StartedAt) == time.Hour
		})).Return(sampleEntry(ledgerID), nil)

		w := performRequest(newEntryRouter(svc, &scope), http.MethodPost, "/ledgers/"+ledgerID.String()+"/entries", entryBody())
		assert.Equal(t, http.StatusCreated, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("unknown payment method", func(t *testing.T) {
		svc := new(MockEntryService)
		body := entryBody()
		body["payment_method"] = "voucher"
		w := performRequest(newEntryRouter(svc, &scope), http.MethodPost, "/ledgers/"+ledgerID.String()+"/entries", body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("overlap", func(t *testing.T) {
		svc := new(MockEntryService)
		svc.On("Create", mock.Anything, scope, ledgerID, mock.Anything).Return(nil, ledger.ErrEntryOverlap)

		w := performRequest(newEntryRouter(svc, &scope), http.MethodPost, "/ledgers/"+ledgerID.String()+"/entries", entryBody())
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "ERR_ENTRY_OVERLAP", decodeResponse(t, w).Error.Code)
	})

	t.Run("ledger past pending", func(t *testing.T) {
		svc := new(MockEntryService)
		svc.On("Create", mock.Anything, scope, ledgerID, mock.Anything).Return(nil, ledger.ErrRequiresAdjustment)

		w := performRequest(newEntryRouter(svc, &scope), http.MethodPost, "/ledgers/"+ledgerID.String()+"/entries", entryBody())
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "ERR_REQUIRES_ADJUSTMENT_REQUEST", decodeResponse(t, w).Error.Code)
	})

	t.Run("malformed json", func(t *testing.T) {
		svc := new(MockEntryService)
		w := performRequest(newEntryRouter(svc, &scope), http.MethodPost, "/ledgers/"+ledgerID.String()+"/entries", `{"amount":`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestEntryHandler_List(t *testing.T) {
	scope := operatorScope()
	ledgerID := uuid.New()

	for _, tc := range []struct {
		name     string
		query    string
		inactive bool
	}{
		{"active only", "", false},
		{"including removed", "?include_inactive=true", true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			svc := new(MockEntryService)
			svc.On("ListByLedger", mock.Anything, scope, ledgerID, tc.inactive).
				Return([]ledgerapp.EntryResponse{*sampleEntry(ledgerID)}, nil)

			w := performRequest(newEntryRouter(svc, &scope), http.MethodGet, "/ledgers/"+ledgerID.String()+"/entries"+tc.query, nil)
			assert.Equal(t, http.StatusOK, w.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestEntryHandler_UpdateAndDelete(t *testing.T) {
	scope := operatorScope()
	entryID := uuid.New()

	t.Run("update", func(t *testing.T) {
		svc := new(MockEntryService)
		svc.On("Update", mock.Anything, scope, entryID, mock.Anything).Return(sampleEntry(uuid.New()), nil)
		w := performRequest(newEntryRouter(svc, &scope), http.MethodPut, "/entries/"+entryID.String(), entryBody())
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("delete", func(t *testing.T) {
		svc := new(MockEntryService)
		svc.On("Delete", mock.Anything, scope, entryID).Return(nil)
		w := performRequest(newEntryRouter(svc, &scope), http.MethodDelete, "/entries/"+entryID.String(), nil)
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Body.String())
	})

	t.Run("delete after review", func(t *testing.T) {
		svc := new(MockEntryService)
		svc.On("Delete", mock.Anything, scope, entryID).Return(ledger.ErrRequiresAdjustment)
		w := performRequest(newEntryRouter(svc, &scope), http.MethodDelete, "/entries/"+entryID.String(), nil)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("get", func(t *testing.T) {
		svc := new(MockEntryService)
		svc.On("GetByID", mock.Anything, scope, entryID).Return(sampleEntry(uuid.New()), nil)
		w := performRequest(newEntryRouter(svc, &scope), http.MethodGet, "/entries/"+entryID.String(), nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestEntryHandler_Overlaps(t *testing.T) {
	scope := operatorScope()
	ledgerID := uuid.New()
	exclude := uuid.New()

	svc := new(MockEntryService)
	svc.On("FindOverlaps", mock.Anything, scope, ledgerID, mock.MatchedBy(func(i ledger.Interval) bool {
		return i.Start.Equal(time.Date(2026, 3, 10, 8, 30, 0, 0, time.UTC)) &&
			i.End.Equal(time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC))
	}), exclude).Return([]ledgerapp.EntryResponse{*sampleEntry(ledgerID)}, nil)

	r := newEntryRouter(svc, &scope)
	w := performRequest(r, http.MethodGet, "/ledgers/"+ledgerID.String()+
		"/overlaps?started_at=2026-03-10T08:30:00Z&ended_at=2026-03-10T10:00:00Z&exclude_id="+exclude.String(), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)

	w = performRequest(r, http.MethodGet, "/ledgers/"+ledgerID.String()+"/overlaps?started_at=2026-03-10T08:30:00Z", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
