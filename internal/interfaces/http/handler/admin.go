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

// AssignmentService grants users access to units
type AssignmentService interface {
	Assign(ctx context.Context, scope shared.Scope, req ledgerapp.UnitAssignmentRequest) (*ledger.UnitAssignment, error)
	Revoke(ctx context.Context, scope shared.Scope, req ledgerapp.UnitAssignmentRequest) error
	ListByUser(ctx context.Context, scope shared.Scope, tenantID, userID uuid.UUID) ([]ledger.UnitAssignment, error)
}

// CrossTenantLister lists ledgers regardless of tenant
type CrossTenantLister interface {
	ListAll(ctx context.Context, scope shared.Scope, filter shared.Filter) (shared.Paginated[ledgerapp.LedgerResponse], error)
}

// AdminHandler serves the back-office endpoints. The router restricts it to
// system callers.
type AdminHandler struct {
	BaseHandler
	ledgers     CrossTenantLister
	assignments AssignmentService
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(ledgers CrossTenantLister, assignments AssignmentService) *AdminHandler {
	return &AdminHandler{ledgers: ledgers, assignments: assignments}
}

// ListLedgers godoc
// @ID           adminListLedgers
// @Summary      List ledgers across all tenants
// @Tags         admin
// @Produce      json
// @Param        page      query int false "Page number"
// @Param        page_size query int false "Page size"
// @Success      200 {object} PageResponse[ledgerapp.LedgerResponse]
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/ledgers [get]
func (h *AdminHandler) ListLedgers(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	var q dto.PageQuery
	if !middleware.BindQuery(c, &q) {
		return
	}
	page, err := h.ledgers.ListAll(c.Request.Context(), scope, q.Filter())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPaginatedResponse(page))
}

func (h *AdminHandler) bindAssignment(c *gin.Context) (ledgerapp.UnitAssignmentRequest, bool) {
	var req dto.UnitAssignmentRequest
	if !middleware.BindJSON(c, &req) {
		return ledgerapp.UnitAssignmentRequest{}, false
	}
	var out ledgerapp.UnitAssignmentRequest
	var ok bool
	if out.TenantID, ok = h.parseUUIDField(c, "tenant_id", req.TenantID); !ok {
		return out, false
	}
	if out.UserID, ok = h.parseUUIDField(c, "user_id", req.UserID); !ok {
		return out, false
	}
	if out.UnitID, ok = h.parseUUIDField(c, "unit_id", req.UnitID); !ok {
		return out, false
	}
	return out, true
}

// Assign godoc
// @ID           adminAssignUnit
// @Summary      Grant a user access to a unit
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        request body dto.UnitAssignmentRequest true "Assignment"
// @Success      201 {object} APIResponse[ledger.UnitAssignment]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/unit-assignments [post]
func (h *AdminHandler) Assign(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	req, ok := h.bindAssignment(c)
	if !ok {
		return
	}
	a, err := h.assignments.Assign(c.Request.Context(), scope, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, a)
}

// Revoke godoc
// @ID           adminRevokeUnit
// @Summary      Revoke a user's access to a unit
// @Tags         admin
// @Accept       json
// @Param        request body dto.UnitAssignmentRequest true "Assignment"
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/unit-assignments [delete]
func (h *AdminHandler) Revoke(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	req, ok := h.bindAssignment(c)
	if !ok {
		return
	}
	if err := h.assignments.Revoke(c.Request.Context(), scope, req); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// ListAssignments godoc
// @ID           adminListUnitAssignments
// @Summary      List the units assigned to a user
// @Tags         admin
// @Produce      json
// @Param        tenant_id query string true "Tenant ID"
// @Param        user_id   query string true "User ID"
// @Success      200 {object} APIResponse[[]ledger.UnitAssignment]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/unit-assignments [get]
func (h *AdminHandler) ListAssignments(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	var q dto.AssignmentListQuery
	if !middleware.BindQuery(c, &q) {
		return
	}
	tenantID, ok := h.parseUUIDField(c, "tenant_id", q.TenantID)
	if !ok {
		return
	}
	userID, ok := h.parseUUIDField(c, "user_id", q.UserID)
	if !ok {
		return
	}
	assignments, err := h.assignments.ListByUser(c.Request.Context(), scope, tenantID, userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, assignments)
}
