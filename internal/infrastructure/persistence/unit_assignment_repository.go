package persistence

import (
	"context"
	"time"

	"github.com/cashledger/backend/internal/domain/ledger"
	"github.com/cashledger/backend/internal/domain/shared"
	"github.com/cashledger/backend/internal/infrastructure/persistence/models"
	"github.com/cashledger/backend/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormUnitAssignmentRepository implements ledger.UnitAssignmentRepository.
// The table is not guarded by the tenant callbacks; every statement filters
// the tenant explicitly.
type GormUnitAssignmentRepository struct {
	db *gorm.DB
}

// NewGormUnitAssignmentRepository creates a new GormUnitAssignmentRepository
func NewGormUnitAssignmentRepository(db *gorm.DB) *GormUnitAssignmentRepository {
	return &GormUnitAssignmentRepository{db: db}
}

// Authorize reports whether userID is assigned to unitID within tenantID
func (r *GormUnitAssignmentRepository) Authorize(ctx context.Context, userID, unitID, tenantID uuid.UUID) (bool, error) {
	if tenantID == uuid.Nil || userID == uuid.Nil || unitID == uuid.Nil {
		return false, nil
	}
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.UnitAssignmentModel{}).
		Scopes(tenant.TenantScope(tenantID)).
		Where("user_id = ? AND unit_id = ?", userID, unitID).
		Count(&count).Error
	if err != nil {
		return false, shared.NewInfrastructureError(err)
	}
	return count > 0, nil
}

// Assign grants an assignment. Granting an existing assignment is a no-op.
func (r *GormUnitAssignmentRepository) Assign(ctx context.Context, a ledger.UnitAssignment) error {
	if a.TenantID == uuid.Nil {
		return shared.ErrTenantRequired
	}
	if a.UserID == uuid.Nil || a.UnitID == uuid.Nil {
		return shared.ErrInvalidInput.WithMessage("User and unit are required")
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	m := &models.UnitAssignmentModel{
		TenantID:  a.TenantID,
		UserID:    a.UserID,
		UnitID:    a.UnitID,
		GrantedBy: a.GrantedBy,
		CreatedAt: a.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(m).Error; err != nil {
		return translateError(err, "unit_assignment", nil)
	}
	return nil
}

// Revoke removes an assignment
func (r *GormUnitAssignmentRepository) Revoke(ctx context.Context, tenantID, userID, unitID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Scopes(tenant.TenantScope(tenantID)).
		Where("user_id = ? AND unit_id = ?", userID, unitID).
		Delete(&models.UnitAssignmentModel{})
	if result.Error != nil {
		return translateError(result.Error, "unit_assignment", nil)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound.With("resource", "unit_assignment")
	}
	return nil
}

// ListByUser lists the units a user is assigned to
func (r *GormUnitAssignmentRepository) ListByUser(ctx context.Context, tenantID, userID uuid.UUID) ([]ledger.UnitAssignment, error) {
	var rows []models.UnitAssignmentModel
	err := r.db.WithContext(ctx).
		Scopes(tenant.TenantScope(tenantID)).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, translateError(err, "unit_assignment", nil)
	}
	out := make([]ledger.UnitAssignment, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// Ensure GormUnitAssignmentRepository implements ledger.UnitAssignmentRepository
var _ ledger.UnitAssignmentRepository = (*GormUnitAssignmentRepository)(nil)
