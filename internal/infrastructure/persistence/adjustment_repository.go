package persistence

import (
	"context"

	"github.com/cashledger/backend/internal/domain/ledger"
	"github.com/cashledger/backend/internal/domain/shared"
	"github.com/cashledger/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const resourceAdjustment = "adjustment_request"

// GormAdjustmentRepository implements ledger.AdjustmentRepository using GORM
type GormAdjustmentRepository struct {
	db    *gorm.DB
	scope shared.Scope
}

// NewGormAdjustmentRepository creates a new GormAdjustmentRepository
func NewGormAdjustmentRepository(db *gorm.DB, scope shared.Scope) *GormAdjustmentRepository {
	return &GormAdjustmentRepository{db: db, scope: scope}
}

func (r *GormAdjustmentRepository) session(ctx context.Context) *gorm.DB {
	return scoped(ctx, r.db, r.scope)
}

// FindByID finds a request by its ID
func (r *GormAdjustmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.AdjustmentRequest, error) {
	return r.first(r.session(ctx), "id = ?", id)
}

// FindByIDForUpdate finds a request and locks its row
func (r *GormAdjustmentRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*ledger.AdjustmentRequest, error) {
	return r.first(r.session(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), "id = ?", id)
}

// FindPendingByEntry finds the pending request of an entry, if any
func (r *GormAdjustmentRepository) FindPendingByEntry(ctx context.Context, entryID uuid.UUID) (*ledger.AdjustmentRequest, error) {
	return r.first(r.session(ctx), "entry_id = ? AND status = ?", entryID, ledger.AdjustmentPending)
}

func (r *GormAdjustmentRepository) first(db *gorm.DB, query string, args ...any) (*ledger.AdjustmentRequest, error) {
	var m models.AdjustmentRequestModel
	if err := db.Where(query, args...).First(&m).Error; err != nil {
		return nil, translateError(err, resourceAdjustment, nil)
	}
	req, err := m.ToDomain()
	if err != nil {
		return nil, shared.NewInfrastructureError(err)
	}
	return req, nil
}

// FindByEntry finds every request made against an entry, oldest first
func (r *GormAdjustmentRepository) FindByEntry(ctx context.Context, entryID uuid.UUID) ([]ledger.AdjustmentRequest, error) {
	var rows []models.AdjustmentRequestModel
	err := r.session(ctx).
		Where("entry_id = ?", entryID).
		Order("requested_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, translateError(err, resourceAdjustment, nil)
	}
	return requestsToDomain(rows)
}

// FindByStatus finds one page of requests in a status
func (r *GormAdjustmentRepository) FindByStatus(ctx context.Context, status ledger.AdjustmentStatus, filter shared.Filter) ([]ledger.AdjustmentRequest, int64, error) {
	filter = filter.Normalize()
	query := r.session(ctx).Where("status = ?", status).Session(&gorm.Session{})

	var total int64
	if err := query.Model(&models.AdjustmentRequestModel{}).Count(&total).Error; err != nil {
		return nil, 0, translateError(err, resourceAdjustment, nil)
	}
	var rows []models.AdjustmentRequestModel
	err := query.
		Order(clause.OrderByColumn{Column: clause.Column{Name: "requested_at"}, Desc: filter.OrderDir == "desc"}).
		Order("id ASC").
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&rows).Error
	if err != nil {
		return nil, 0, translateError(err, resourceAdjustment, nil)
	}
	out, err := requestsToDomain(rows)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Create inserts a new request. The partial unique index on pending requests
// turns a concurrent second request into ErrPendingRequestExists.
func (r *GormAdjustmentRepository) Create(ctx context.Context, req *ledger.AdjustmentRequest) error {
	m := &models.AdjustmentRequestModel{}
	if err := m.FromDomain(req); err != nil {
		return shared.ErrInvalidInput.Wrap(err)
	}
	if err := r.session(ctx).Create(m).Error; err != nil {
		return translateError(err, resourceAdjustment, ledger.ErrPendingRequestExists)
	}
	return nil
}

// SaveWithLock updates a request if its stored version still matches. Only
// decision fields change after creation.
func (r *GormAdjustmentRepository) SaveWithLock(ctx context.Context, req *ledger.AdjustmentRequest) error {
	return saveWithVersion(r.session(ctx), &models.AdjustmentRequestModel{}, resourceAdjustment, req.ID, req.Version, map[string]any{
		"status":         req.Status,
		"approver_id":    req.ApproverID,
		"decision_notes": req.DecisionNotes,
		"decided_at":     req.DecidedAt,
		"updated_at":     req.UpdatedAt,
	}, req.IncrementVersion)
}

func requestsToDomain(rows []models.AdjustmentRequestModel) ([]ledger.AdjustmentRequest, error) {
	out := make([]ledger.AdjustmentRequest, 0, len(rows))
	for i := range rows {
		req, err := rows[i].ToDomain()
		if err != nil {
			return nil, shared.NewInfrastructureError(err)
		}
		out = append(out, *req)
	}
	return out, nil
}

// Ensure GormAdjustmentRepository implements ledger.AdjustmentRepository
var _ ledger.AdjustmentRepository = (*GormAdjustmentRepository)(nil)
