package ledger

import (
	"context"

	"github.com/cashledger/backend/internal/domain/ledger"
	"github.com/cashledger/backend/internal/domain/shared"
	"github.com/cashledger/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UnitAssignmentRequest names one (tenant, user, unit) grant
type UnitAssignmentRequest struct {
	TenantID uuid.UUID
	UserID   uuid.UUID
	UnitID   uuid.UUID
}

func (r UnitAssignmentRequest) validate() error {
	switch {
	case r.TenantID == uuid.Nil:
		return shared.NewValidationError("INVALID_TENANT", "tenant_id", "Tenant is required")
	case r.UserID == uuid.Nil:
		return shared.NewValidationError("INVALID_USER", "user_id", "User is required")
	case r.UnitID == uuid.Nil:
		return ledger.ErrInvalidUnit
	}
	return nil
}

// AssignmentService manages which users may operate which units. Writes are
// reserved to the back-office caller.
type AssignmentService struct {
	core
	assignments ledger.UnitAssignmentRepository
}

// NewAssignmentService creates a new AssignmentService
func NewAssignmentService(cfg Config, assignments ledger.UnitAssignmentRepository) *AssignmentService {
	return &AssignmentService{core: newCore(cfg), assignments: assignments}
}

// Assign grants a user access to a unit. Granting twice is a no-op.
func (s *AssignmentService) Assign(ctx context.Context, scope shared.Scope, req UnitAssignmentRequest) (*ledger.UnitAssignment, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "unit_assignment", "assign",
		telemetry.UUIDAttr(telemetry.SpanAttrTenantID, req.TenantID),
		telemetry.UUIDAttr(telemetry.SpanAttrUnitID, req.UnitID),
	)
	var err error
	defer func() { telemetry.EndSpan(span, err) }()

	if !scope.IsSystem() {
		err = s.fail("assign_unit", scope, shared.ErrForbidden.With("reason", "system_only"))
		return nil, err
	}
	if err = req.validate(); err != nil {
		err = s.fail("assign_unit", scope, err)
		return nil, err
	}

	a := ledger.UnitAssignment{
		TenantID:  req.TenantID,
		UserID:    req.UserID,
		UnitID:    req.UnitID,
		GrantedBy: scope.UserID,
		CreatedAt: s.clock.Now(),
	}
	if err = s.assignments.Assign(ctx, a); err != nil {
		err = s.fail("assign_unit", scope, err, zap.String("unit_id", req.UnitID.String()))
		return nil, err
	}
	s.logger.Info("Unit assigned",
		zap.String("tenant_id", a.TenantID.String()),
		zap.String("user_id", a.UserID.String()),
		zap.String("unit_id", a.UnitID.String()),
		zap.String("granted_by", a.GrantedBy.String()),
	)
	return &a, nil
}

// Revoke removes a user's access to a unit
func (s *AssignmentService) Revoke(ctx context.Context, scope shared.Scope, req UnitAssignmentRequest) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "unit_assignment", "revoke",
		telemetry.UUIDAttr(telemetry.SpanAttrTenantID, req.TenantID),
		telemetry.UUIDAttr(telemetry.SpanAttrUnitID, req.UnitID),
	)
	var err error
	defer func() { telemetry.EndSpan(span, err) }()

	if !scope.IsSystem() {
		err = s.fail("revoke_unit", scope, shared.ErrForbidden.With("reason", "system_only"))
		return err
	}
	if err = req.validate(); err != nil {
		err = s.fail("revoke_unit", scope, err)
		return err
	}
	if err = s.assignments.Revoke(ctx, req.TenantID, req.UserID, req.UnitID); err != nil {
		err = s.fail("revoke_unit", scope, err, zap.String("unit_id", req.UnitID.String()))
		return err
	}
	s.logger.Info("Unit revoked",
		zap.String("tenant_id", req.TenantID.String()),
		zap.String("user_id", req.UserID.String()),
		zap.String("unit_id", req.UnitID.String()),
	)
	return nil
}

// ListByUser lists a user's units. Tenant callers only see their own tenant.
func (s *AssignmentService) ListByUser(ctx context.Context, scope shared.Scope, tenantID, userID uuid.UUID) ([]ledger.UnitAssignment, error) {
	if err := scope.RequireReader(); err != nil {
		return nil, s.fail("list_units", scope, err)
	}
	if !scope.IsSystem() && tenantID != scope.TenantID {
		return nil, s.fail("list_units", scope, shared.ErrTenantRequired)
	}
	out, err := s.assignments.ListByUser(ctx, tenantID, userID)
	if err != nil {
		return nil, s.fail("list_units", scope, err)
	}
	return out, nil
}
