package handler

import (
	"context"
	"net/http"

	ledgerapp "github.com/cashledger/backend/internal/application/ledger"
	"github.com/cashledger/backend/internal/domain/ledger"
	"github.com/cashledger/backend/internal/domain/shared"
	"github.com/cashledger/backend/internal/interfaces/http/dto"
	"github.com/cashledger/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AdjustmentService governs corrections to entries of reviewed ledgers
type AdjustmentService interface {
	Request(ctx context.Context, scope shared.Scope, entryID uuid.UUID, req ledgerapp.AdjustmentRequestInput) (*ledgerapp.AdjustmentResponse, error)
	Decide(ctx context.Context, scope shared.Scope, requestID uuid.UUID, req ledgerapp.DecideAdjustmentRequest) (*ledgerapp.AdjustmentResponse, error)
	Withdraw(ctx context.Context, scope shared.Scope, requestID uuid.UUID) (*ledgerapp.AdjustmentResponse, error)
	GetByID(ctx context.Context, scope shared.Scope, requestID uuid.UUID) (*ledgerapp.AdjustmentResponse, error)
	ListByEntry(ctx context.Context, scope shared.Scope, entryID uuid.UUID) ([]ledgerapp.AdjustmentResponse, error)
	ListByStatus(ctx context.Context, scope shared.Scope, status ledger.AdjustmentStatus, filter shared.Filter) (shared.Paginated[ledgerapp.AdjustmentResponse], error)
}

// AdjustmentHandler handles adjustment request endpoints
type AdjustmentHandler struct {
	BaseHandler
	service AdjustmentService
}

// NewAdjustmentHandler creates a new AdjustmentHandler
func NewAdjustmentHandler(service AdjustmentService) *AdjustmentHandler {
	return &AdjustmentHandler{service: service}
}

func toEntryPatch(p *dto.EntryPatch) ledger.EntryPatch {
	if p == nil {
		return ledger.EntryPatch{}
	}
	patch := ledger.EntryPatch{
		Amount:    p.Amount,
		StartedAt: p.StartedAt,
		EndedAt:   p.EndedAt,
		Origin:    p.Origin,
	}
	if p.PaymentMethod != nil {
		m := ledger.PaymentMethod(*p.PaymentMethod)
		patch.PaymentMethod = &m
	}
	return patch
}

// Request godoc
// @ID           requestAdjustment
// @Summary      Request an entry adjustment
// @Description  Files a modify or remove request for an entry of a ledger that no longer takes direct edits (409 DIRECT_EDIT_ALLOWED while pending). One request per entry may be pending.
// @Tags         adjustments
// @Accept       json
// @Produce      json
// @Param        id      path string                true "Entry ID"
// @Param        request body dto.AdjustmentRequest true "Adjustment"
// @Success      201 {object} APIResponse[ledgerapp.AdjustmentResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /entries/{id}/adjustments [post]
func (h *AdjustmentHandler) Request(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	entryID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.AdjustmentRequest
	if !middleware.BindJSON(c, &req) {
		return
	}

	resp, err := h.service.Request(c.Request.Context(), scope, entryID, ledgerapp.AdjustmentRequestInput{
		Kind:          ledger.AdjustmentKind(req.Kind),
		Justification: req.Justification,
		Proposed:      toEntryPatch(req.Proposed),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// ListByEntry godoc
// @ID           listEntryAdjustments
// @Summary      List the adjustment history of an entry
// @Tags         adjustments
// @Produce      json
// @Param        id path string true "Entry ID"
// @Success      200 {object} APIResponse[[]ledgerapp.AdjustmentResponse]
// @Security     BearerAuth
// @Router       /entries/{id}/adjustments [get]
func (h *AdjustmentHandler) ListByEntry(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	entryID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	requests, err := h.service.ListByEntry(c.Request.Context(), scope, entryID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, requests)
}

// List godoc
// @ID           listAdjustments
// @Summary      List adjustment requests by status
// @Description  Defaults to the pending queue
// @Tags         adjustments
// @Produce      json
// @Param        status    query string false "pending, approved or rejected"
// @Param        page      query int    false "Page number"
// @Param        page_size query int    false "Page size"
// @Success      200 {object} PageResponse[ledgerapp.AdjustmentResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /adjustments [get]
func (h *AdjustmentHandler) List(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	var q dto.AdjustmentListQuery
	if !middleware.BindQuery(c, &q) {
		return
	}
	status := ledger.AdjustmentPending
	if q.Status != "" {
		status = ledger.AdjustmentStatus(q.Status)
	}

	page, err := h.service.ListByStatus(c.Request.Context(), scope, status, q.Filter())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPaginatedResponse(page))
}

// Get godoc
// @ID           getAdjustment
// @Summary      Get an adjustment request
// @Tags         adjustments
// @Produce      json
// @Param        id path string true "Adjustment request ID"
// @Success      200 {object} APIResponse[ledgerapp.AdjustmentResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /adjustments/{id} [get]
func (h *AdjustmentHandler) Get(c *gin.Context) {
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

// Decide godoc
// @ID           decideAdjustment
// @Summary      Approve or reject an adjustment request
// @Description  Approval applies the proposed change to the entry in the same transaction. Requesters cannot decide their own requests.
// @Tags         adjustments
// @Accept       json
// @Produce      json
// @Param        id      path string              true "Adjustment request ID"
// @Param        request body dto.DecisionRequest true "Decision"
// @Success      200 {object} APIResponse[ledgerapp.AdjustmentResponse]
// @Failure      403 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /adjustments/{id}/decision [post]
func (h *AdjustmentHandler) Decide(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.DecisionRequest
	if !middleware.BindJSON(c, &req) {
		return
	}

	resp, err := h.service.Decide(c.Request.Context(), scope, id, ledgerapp.DecideAdjustmentRequest{
		Action: ledger.AdjustmentAction(req.Action),
		Notes:  req.Notes,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Withdraw godoc
// @ID           withdrawAdjustment
// @Summary      Withdraw a pending adjustment request
// @Tags         adjustments
// @Produce      json
// @Param        id path string true "Adjustment request ID"
// @Success      200 {object} APIResponse[ledgerapp.AdjustmentResponse]
// @Failure      403 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /adjustments/{id}/withdraw [post]
func (h *AdjustmentHandler) Withdraw(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.service.Withdraw(c.Request.Context(), scope, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
