package persistence

import (
	"context"

	"github.com/cashledger/backend/internal/domain/ledger"
	"github.com/cashledger/backend/internal/domain/shared"
	"github.com/cashledger/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const resourceEntry = "revenue_entry"

// GormEntryRepository implements ledger.EntryRepository using GORM
type GormEntryRepository struct {
	db    *gorm.DB
	scope shared.Scope
}

// NewGormEntryRepository creates a new GormEntryRepository
func NewGormEntryRepository(db *gorm.DB, scope shared.Scope) *GormEntryRepository {
	return &GormEntryRepository{db: db, scope: scope}
}

func (r *GormEntryRepository) session(ctx context.Context) *gorm.DB {
	return scoped(ctx, r.db, r.scope)
}

// FindByID finds an entry by its ID, active or not
func (r *GormEntryRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.RevenueEntry, error) {
	var m models.RevenueEntryModel
	if err := r.session(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, translateError(err, resourceEntry, nil)
	}
	return m.ToDomain(), nil
}

// FindByLedger finds the entries of a ledger ordered by start time
func (r *GormEntryRepository) FindByLedger(ctx context.Context, ledgerID uuid.UUID, includeInactive bool) ([]ledger.RevenueEntry, error) {
	query := r.session(ctx).Where("ledger_id = ?", ledgerID)
	if !includeInactive {
		query = query.Where("active = ?", true)
	}
	var rows []models.RevenueEntryModel
	if err := query.Order("started_at ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, translateError(err, resourceEntry, nil)
	}
	return entriesToDomain(rows), nil
}

// FindOverlapping finds active entries whose half-open range intersects interval
func (r *GormEntryRepository) FindOverlapping(ctx context.Context, ledgerID uuid.UUID, interval ledger.Interval, excludeID uuid.UUID) ([]ledger.RevenueEntry, error) {
	var rows []models.RevenueEntryModel
	err := r.session(ctx).
		Where("ledger_id = ? AND active = ? AND id <> ?", ledgerID, true, excludeID).
		Where("started_at < ? AND ended_at > ?", interval.End.UTC(), interval.Start.UTC()).
		Order("started_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, translateError(err, resourceEntry, nil)
	}
	return entriesToDomain(rows), nil
}

// Create inserts a new entry. On PostgreSQL the exclusion constraint rejects
// an overlapping range that slipped past the application check.
func (r *GormEntryRepository) Create(ctx context.Context, e *ledger.RevenueEntry) error {
	m := models.RevenueEntryModelFromDomain(e)
	m.StartedAt, m.EndedAt = m.StartedAt.UTC(), m.EndedAt.UTC()
	if err := r.session(ctx).Create(m).Error; err != nil {
		return translateError(err, resourceEntry, nil)
	}
	return nil
}

// SaveWithLock updates an entry if its stored version still matches
func (r *GormEntryRepository) SaveWithLock(ctx context.Context, e *ledger.RevenueEntry) error {
	return saveWithVersion(r.session(ctx), &models.RevenueEntryModel{}, resourceEntry, e.ID, e.Version, map[string]any{
		"amount":         e.Amount,
		"started_at":     e.StartedAt.UTC(),
		"ended_at":       e.EndedAt.UTC(),
		"payment_method": e.PaymentMethod,
		"origin":         e.Origin,
		"active":         e.Active,
		"updated_at":     e.UpdatedAt,
	}, e.IncrementVersion)
}

func entriesToDomain(rows []models.RevenueEntryModel) []ledger.RevenueEntry {
	out := make([]ledger.RevenueEntry, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out
}

// Ensure GormEntryRepository implements ledger.EntryRepository
var _ ledger.EntryRepository = (*GormEntryRepository)(nil)
