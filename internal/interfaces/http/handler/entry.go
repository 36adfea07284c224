package handler

import (
	"context"
	"time"

	ledgerapp "github.com/cashledger/backend/internal/application/ledger"
	"github.com/cashledger/backend/internal/domain/ledger"
	"github.com/cashledger/backend/internal/domain/shared"
	"github.com/cashledger/backend/internal/interfaces/http/dto"
	"github.com/cashledger/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// EntryService maintains the revenue entries of a ledger
type EntryService interface {
	Create(ctx context.Context, scope shared.Scope, ledgerID uuid.UUID, req ledgerapp.EntryRequest) (*ledgerapp.EntryResponse, error)
	Update(ctx context.Context, scope shared.Scope, entryID uuid.UUID, req ledgerapp.EntryRequest) (*ledgerapp.EntryResponse, error)
	Delete(ctx context.Context, scope shared.Scope, entryID uuid.UUID) error
	GetByID(ctx context.Context, scope shared.Scope, entryID uuid.UUID) (*ledgerapp.EntryResponse, error)
	ListByLedger(ctx context.Context, scope shared.Scope, ledgerID uuid.UUID, includeInactive bool) ([]ledgerapp.EntryResponse, error)
	FindOverlaps(ctx context.Context, scope shared.Scope, ledgerID uuid.UUID, interval ledger.Interval, excludeID uuid.UUID) ([]ledgerapp.EntryResponse, error)
}

// EntryHandler handles revenue entry endpoints
type EntryHandler struct {
	BaseHandler
	service EntryService
}

// NewEntryHandler creates a new EntryHandler
func NewEntryHandler(service EntryService) *EntryHandler {
	return &EntryHandler{service: service}
}

// OverlapQuery probes a time range against the active entries of a ledger
type OverlapQuery struct {
	StartedAt time.Time `form:"started_at" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
	EndedAt   time.Time `form:"ended_at" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
	ExcludeID string    `form:"exclude_id" binding:"omitempty,uuid"`
}

func toEntryRequest(req dto.EntryRequest) ledgerapp.EntryRequest {
	return ledgerapp.EntryRequest{
		Amount:        *req.Amount,
		StartedAt:     *req.StartedAt,
		EndedAt:       *req.EndedAt,
		PaymentMethod: ledger.PaymentMethod(req.PaymentMethod),
		Origin:        req.Origin,
	}
}

// List godoc
// @ID           listLedgerEntries
// @Summary      List the revenue entries of a ledger
// @Tags         entries
// @Produce      json
// @Param        id               path  string true  "Ledger ID"
// @Param        include_inactive query bool   false "Include deactivated entries"
// @Success      200 {object} APIResponse[[]ledgerapp.EntryResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /ledgers/{id}/entries [get]
func (h *EntryHandler) List(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	ledgerID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var q dto.EntryListQuery
	if !middleware.BindQuery(c, &q) {
		return
	}

	entries, err := h.service.ListByLedger(c.Request.Context(), scope, ledgerID, q.IncludeInactive)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entries)
}

// Create godoc
// @ID           createLedgerEntry
// @Summary      Record a revenue entry
// @Description  Adds an entry to a pending ledger. The time range must not overlap another active entry.
// @Tags         entries
// @Accept       json
// @Produce      json
// @Param        id      path string           true "Ledger ID"
// @Param        request body dto.EntryRequest true "Entry"
// @Success      201 {object} APIResponse[ledgerapp.EntryResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /ledgers/{id}/entries [post]
func (h *EntryHandler) Create(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	ledgerID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.EntryRequest
	if !middleware.BindJSON(c, &req) {
		return
	}

	resp, err := h.service.Create(c.Request.Context(), scope, ledgerID, toEntryRequest(req))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Get godoc
// @ID           getEntry
// @Summary      Get a revenue entry
// @Tags         entries
// @Produce      json
// @Param        id path string true "Entry ID"
// @Success      200 {object} APIResponse[ledgerapp.EntryResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /entries/{id} [get]
func (h *EntryHandler) Get(c *gin.Context) {
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

// Update godoc
// @ID           updateEntry
// @Summary      Replace a revenue entry
// @Description  Direct edits are allowed only while the ledger is pending; afterwards use an adjustment request
// @Tags         entries
// @Accept       json
// @Produce      json
// @Param        id      path string           true "Entry ID"
// @Param        request body dto.EntryRequest true "Entry"
// @Success      200 {object} APIResponse[ledgerapp.EntryResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /entries/{id} [put]
func (h *EntryHandler) Update(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.EntryRequest
	if !middleware.BindJSON(c, &req) {
		return
	}

	resp, err := h.service.Update(c.Request.Context(), scope, id, toEntryRequest(req))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Delete godoc
// @ID           deleteEntry
// @Summary      Deactivate a revenue entry
// @Tags         entries
// @Param        id path string true "Entry ID"
// @Success      204
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /entries/{id} [delete]
func (h *EntryHandler) Delete(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), scope, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Overlaps godoc
// @ID           findEntryOverlaps
// @Summary      Find entries overlapping a time range
// @Tags         entries
// @Produce      json
// @Param        id         path  string true  "Ledger ID"
// @Param        started_at query string true  "Range start (RFC 3339)"
// @Param        ended_at   query string true  "Range end (RFC 3339)"
// @Param        exclude_id query string false "Entry to ignore"
// @Success      200 {object} APIResponse[[]ledgerapp.EntryResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /ledgers/{id}/overlaps [get]
func (h *EntryHandler) Overlaps(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	ledgerID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var q OverlapQuery
	if !middleware.BindQuery(c, &q) {
		return
	}
	exclude := uuid.Nil
	if q.ExcludeID != "" {
		if exclude, ok = h.parseUUIDField(c, "exclude_id", q.ExcludeID); !ok {
			return
		}
	}

	entries, err := h.service.FindOverlaps(c.Request.Context(), scope, ledgerID,
		ledger.Interval{Start: q.StartedAt, End: q.EndedAt}, exclude)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entries)
}
