package handler

import (
	"context"
	"net/http"
	"time"

	ledgerapp "github.com/cashledger/backend/internal/application/ledger"
	"github.com/cashledger/backend/internal/domain/ledger"
	"github.com/cashledger/backend/internal/domain/shared"
	"github.com/cashledger/backend/internal/infrastructure/event"
	"github.com/cashledger/backend/internal/interfaces/http/dto"
	"github.com/cashledger/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// defaultLedgerRange is the window listed when a unit query has no dates
const defaultLedgerRange = 31 * 24 * time.Hour

// LedgerService is the ledger workflow used by LedgerHandler
type LedgerService interface {
	Submit(ctx context.Context, scope shared.Scope, req ledgerapp.SubmitLedgerRequest) (*ledgerapp.LedgerResponse, error)
	Review(ctx context.Context, scope shared.Scope, ledgerID uuid.UUID, req ledgerapp.ReviewLedgerRequest) (*ledgerapp.LedgerResponse, error)
	Close(ctx context.Context, scope shared.Scope, ledgerID uuid.UUID, countedTotal decimal.Decimal) (*ledgerapp.LedgerResponse, error)
	Reconcile(ctx context.Context, scope shared.Scope, ledgerID uuid.UUID, req ledgerapp.ReconcileLedgerRequest) (*ledgerapp.LedgerResponse, error)
	Dispatch(ctx context.Context, scope shared.Scope, ledgerID uuid.UUID) (*ledgerapp.LedgerResponse, error)
	GetByID(ctx context.Context, scope shared.Scope, ledgerID uuid.UUID) (*ledgerapp.LedgerResponse, error)
	ListByUnit(ctx context.Context, scope shared.Scope, unitID uuid.UUID, from, to time.Time) ([]ledgerapp.LedgerResponse, error)
	ListByStatus(ctx context.Context, scope shared.Scope, status ledger.LedgerStatus, filter shared.Filter) (shared.Paginated[ledgerapp.LedgerResponse], error)
	ListAll(ctx context.Context, scope shared.Scope, filter shared.Filter) (shared.Paginated[ledgerapp.LedgerResponse], error)
}

// LedgerHandler handles daily ledger endpoints
type LedgerHandler struct {
	BaseHandler
	service LedgerService
	metrics event.LedgerMetrics
	now     func() time.Time
}

// NewLedgerHandler creates a new LedgerHandler. metrics may be nil.
func NewLedgerHandler(service LedgerService, metrics event.LedgerMetrics) *LedgerHandler {
	return &LedgerHandler{service: service, metrics: metrics, now: time.Now}
}

// transitionFailed counts a rejected state machine step. Successful steps are
// counted by the audit handler from the committed events.
func (h *LedgerHandler) transitionFailed(c *gin.Context, transition string, err error) {
	if h.metrics != nil {
		h.metrics.RecordTransition(c.Request.Context(), transition, event.ResultFailure)
	}
	h.HandleError(c, err)
}

// Submit godoc
// @ID           submitLedger
// @Summary      Submit a daily ledger
// @Description  Opens the ledger of a unit for a business date, or reopens a rejected one
// @Tags         ledgers
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key header string false "Idempotency key"
// @Param        request body dto.SubmitLedgerRequest true "Ledger submission"
// @Success      201 {object} APIResponse[ledgerapp.LedgerResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /ledgers [post]
func (h *LedgerHandler) Submit(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	var req dto.SubmitLedgerRequest
	if !middleware.BindJSON(c, &req) {
		return
	}
	unitID, ok := h.parseUUIDField(c, "unit_id", req.UnitID)
	if !ok {
		return
	}
	date, ok := h.parseDate(c, "business_date", req.BusinessDate)
	if !ok {
		return
	}

	resp, err := h.service.Submit(c.Request.Context(), scope, ledgerapp.SubmitLedgerRequest{
		UnitID:       unitID,
		BusinessDate: date,
		OpeningFloat: *req.OpeningFloat,
		Notes:        req.Notes,
	})
	if err != nil {
		h.transitionFailed(c, event.TransitionSubmit, err)
		return
	}
	h.Created(c, resp)
}

// List godoc
// @ID           listLedgers
// @Summary      List ledgers
// @Description  Lists the ledgers of a unit in a date range, or one page of ledgers in a status
// @Tags         ledgers
// @Produce      json
// @Param        unit_id   query string false "Unit ID"
// @Param        from      query string false "First business date (YYYY-MM-DD)"
// @Param        to        query string false "Last business date (YYYY-MM-DD)"
// @Param        status    query string false "Workflow status" Enums(PENDING, APPROVED, REJECTED, CLOSED, RECONCILED)
// @Param        page      query int    false "Page number"
// @Param        page_size query int    false "Page size"
// @Success      200 {object} PageResponse[ledgerapp.LedgerResponse] "meta is set only when filtering by status"
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /ledgers [get]
func (h *LedgerHandler) List(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	var q dto.LedgerListQuery
	if !middleware.BindQuery(c, &q) {
		return
	}

	switch {
	case q.UnitID != "":
		h.listByUnit(c, scope, q)
	case q.Status != "":
		page, err := h.service.ListByStatus(c.Request.Context(), scope, ledger.LedgerStatus(q.Status), q.Filter())
		if err != nil {
			h.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.NewPaginatedResponse(page))
	default:
		h.ValidationError(c, "unit_id", "Either unit_id or status is required")
	}
}

func (h *LedgerHandler) listByUnit(c *gin.Context, scope shared.Scope, q dto.LedgerListQuery) {
	unitID, ok := h.parseUUIDField(c, "unit_id", q.UnitID)
	if !ok {
		return
	}
	to := ledger.BusinessDay(h.now())
	if q.To != "" {
		if to, ok = h.parseDate(c, "to", q.To); !ok {
			return
		}
	}
	from := to.Add(-defaultLedgerRange)
	if q.From != "" {
		if from, ok = h.parseDate(c, "from", q.From); !ok {
			return
		}
	}

	ledgers, err := h.service.ListByUnit(c.Request.Context(), scope, unitID, from, to)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ledgers)
}

// Get godoc
// @ID           getLedger
// @Summary      Get a ledger
// @Tags         ledgers
// @Produce      json
// @Param        id path string true "Ledger ID"
// @Success      200 {object} APIResponse[ledgerapp.LedgerResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /ledgers/{id} [get]
func (h *LedgerHandler) Get(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.service.GetByID(c.Request.Context(), scope, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Review godoc
// @ID           reviewLedger
// @Summary      Review a pending ledger
// @Description  Approves or rejects a pending ledger, optionally correcting float, notes and external totals
// @Tags         ledgers
// @Accept       json
// @Produce      json
// @Param        id      path string                  true "Ledger ID"
// @Param        request body dto.ReviewLedgerRequest true "Review decision"
// @Success      200 {object} APIResponse[ledgerapp.LedgerResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /ledgers/{id}/review [post]
func (h *LedgerHandler) Review(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.ReviewLedgerRequest
	if !middleware.BindJSON(c, &req) {
		return
	}

	resp, err := h.service.Review(c.Request.Context(), scope, id, ledgerapp.ReviewLedgerRequest{
		Decision:     ledger.ReviewDecision(req.Decision),
		OpeningFloat: req.OpeningFloat,
		Notes:        req.Notes,
		ATMTotal:     req.ATMTotal,
		InvoiceTotal: req.InvoiceTotal,
		Comment:      req.Comment,
	})
	if err != nil {
		h.transitionFailed(c, event.TransitionReview, err)
		return
	}
	h.Success(c, resp)
}

// Close godoc
// @ID           closeLedger
// @Summary      Close an approved ledger
// @Description  Records the counted cash, computes the variance and seals the ledger
// @Tags         ledgers
// @Accept       json
// @Produce      json
// @Param        id      path string                 true "Ledger ID"
// @Param        request body dto.CloseLedgerRequest true "Counted total"
// @Success      200 {object} APIResponse[ledgerapp.LedgerResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /ledgers/{id}/close [post]
func (h *LedgerHandler) Close(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.CloseLedgerRequest
	if !middleware.BindJSON(c, &req) {
		return
	}

	resp, err := h.service.Close(c.Request.Context(), scope, id, *req.CountedTotal)
	if err != nil {
		h.transitionFailed(c, event.TransitionClose, err)
		return
	}
	h.Success(c, resp)
}

// Reconcile godoc
// @ID           reconcileLedger
// @Summary      Reconcile a closed ledger
// @Description  Verifies the integrity signature and records the verdict on the variance
// @Tags         ledgers
// @Accept       json
// @Produce      json
// @Param        id      path string                     true "Ledger ID"
// @Param        request body dto.ReconcileLedgerRequest true "Reconciliation verdict"
// @Success      200 {object} APIResponse[ledgerapp.LedgerResponse]
// @Failure      409 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse "Integrity check failed"
// @Security     BearerAuth
// @Router       /ledgers/{id}/reconcile [post]
func (h *LedgerHandler) Reconcile(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.ReconcileLedgerRequest
	if !middleware.BindJSON(c, &req) {
		return
	}

	resp, err := h.service.Reconcile(c.Request.Context(), scope, id, ledgerapp.ReconcileLedgerRequest{
		Accepted:     *req.Accepted,
		Observations: req.Observations,
	})
	if err != nil {
		h.transitionFailed(c, event.TransitionReconcile, err)
		return
	}
	h.Success(c, resp)
}

// Dispatch godoc
// @ID           dispatchLedgerCash
// @Summary      Mark the cash of a reconciled ledger as sent
// @Tags         ledgers
// @Produce      json
// @Param        id path string true "Ledger ID"
// @Success      200 {object} APIResponse[ledgerapp.LedgerResponse]
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /ledgers/{id}/dispatch [post]
func (h *LedgerHandler) Dispatch(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	resp, err := h.service.Dispatch(c.Request.Context(), scope, id)
	if err != nil {
		h.transitionFailed(c, event.TransitionDispatch, err)
		return
	}
	h.Success(c, resp)
}
