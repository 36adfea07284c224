package ledger

import (
	"context"

	"github.com/cashledger/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// AuthorizeUnit checks the scope's user against the unit assignment table.
// Guard failures are reported as infrastructure errors, never as a grant.
func AuthorizeUnit(ctx context.Context, guard UnitAccessGuard, scope shared.Scope, unitID uuid.UUID) error {
	allowed, err := guard.Authorize(ctx, scope.UserID, unitID, scope.TenantID)
	if err != nil {
		return shared.AsDomainError(err)
	}
	if !allowed {
		return ErrUnitAccessDenied.With("unit_id", unitID.String())
	}
	return nil
}
