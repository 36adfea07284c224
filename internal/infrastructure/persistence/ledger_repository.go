package persistence

import (
	"context"
	"time"

	"github.com/cashledger/backend/internal/domain/ledger"
	"github.com/cashledger/backend/internal/domain/shared"
	"github.com/cashledger/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const resourceLedger = "daily_ledger"

// GormLedgerRepository implements ledger.LedgerRepository using GORM.
// Tenant narrowing is applied by the callbacks from the bound scope.
type GormLedgerRepository struct {
	db    *gorm.DB
	scope shared.Scope
}

// NewGormLedgerRepository creates a new GormLedgerRepository
func NewGormLedgerRepository(db *gorm.DB, scope shared.Scope) *GormLedgerRepository {
	return &GormLedgerRepository{db: db, scope: scope}
}

func (r *GormLedgerRepository) session(ctx context.Context) *gorm.DB {
	return scoped(ctx, r.db, r.scope)
}

// FindByID finds a ledger by its ID
func (r *GormLedgerRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.DailyLedger, error) {
	return r.first(r.session(ctx), "id = ?", id)
}

// FindByIDForUpdate finds a ledger and locks its row until the transaction ends
func (r *GormLedgerRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*ledger.DailyLedger, error) {
	return r.first(r.session(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), "id = ?", id)
}

// FindByUnitAndDate finds the ledger of a unit for a business date
func (r *GormLedgerRepository) FindByUnitAndDate(ctx context.Context, unitID uuid.UUID, businessDate time.Time) (*ledger.DailyLedger, error) {
	return r.first(r.session(ctx), "unit_id = ? AND business_date = ?", unitID, ledger.BusinessDay(businessDate))
}

func (r *GormLedgerRepository) first(db *gorm.DB, query string, args ...any) (*ledger.DailyLedger, error) {
	var m models.DailyLedgerModel
	if err := db.Where(query, args...).First(&m).Error; err != nil {
		return nil, translateError(err, resourceLedger, nil)
	}
	return m.ToDomain(), nil
}

// FindByUnitInRange finds the ledgers of a unit with from <= business_date <= to
func (r *GormLedgerRepository) FindByUnitInRange(ctx context.Context, unitID uuid.UUID, from, to time.Time) ([]ledger.DailyLedger, error) {
	var rows []models.DailyLedgerModel
	err := r.session(ctx).
		Where("unit_id = ? AND business_date >= ? AND business_date <= ?", unitID, ledger.BusinessDay(from), ledger.BusinessDay(to)).
		Order("business_date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, translateError(err, resourceLedger, nil)
	}
	return ledgersToDomain(rows), nil
}

// FindByStatus finds one page of ledgers in a workflow status
func (r *GormLedgerRepository) FindByStatus(ctx context.Context, status ledger.LedgerStatus, filter shared.Filter) ([]ledger.DailyLedger, int64, error) {
	return r.page(r.session(ctx).Where("status = ?", status), filter)
}

// FindAll finds one page of every ledger the scope may read
func (r *GormLedgerRepository) FindAll(ctx context.Context, filter shared.Filter) ([]ledger.DailyLedger, int64, error) {
	return r.page(r.session(ctx), filter)
}

func (r *GormLedgerRepository) page(query *gorm.DB, filter shared.Filter) ([]ledger.DailyLedger, int64, error) {
	filter = filter.Normalize()
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Model(&models.DailyLedgerModel{}).Count(&total).Error; err != nil {
		return nil, 0, translateError(err, resourceLedger, nil)
	}
	var rows []models.DailyLedgerModel
	err := query.
		Order(clause.OrderByColumn{Column: clause.Column{Name: "business_date"}, Desc: filter.OrderDir == "desc"}).
		Order("id ASC").
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&rows).Error
	if err != nil {
		return nil, 0, translateError(err, resourceLedger, nil)
	}
	return ledgersToDomain(rows), total, nil
}

// Create inserts a new ledger. The unique (tenant, unit, date) constraint
// turns a concurrent duplicate into ErrLedgerExists.
func (r *GormLedgerRepository) Create(ctx context.Context, l *ledger.DailyLedger) error {
	m := models.DailyLedgerModelFromDomain(l)
	if err := r.session(ctx).Create(m).Error; err != nil {
		return translateError(err, resourceLedger, ledger.ErrLedgerExists)
	}
	l.TenantID = m.TenantID
	return nil
}

// SaveWithLock updates a ledger if its stored version still matches
func (r *GormLedgerRepository) SaveWithLock(ctx context.Context, l *ledger.DailyLedger) error {
	m := models.DailyLedgerModelFromDomain(l)
	return saveWithVersion(r.session(ctx), &models.DailyLedgerModel{}, resourceLedger, l.ID, l.Version, map[string]any{
		"status":                      m.Status,
		"cash_box_status":             m.CashBoxStatus,
		"opening_float":               m.OpeningFloat,
		"notes":                       m.Notes,
		"submitted_by":                m.SubmittedBy,
		"submitted_at":                m.SubmittedAt,
		"atm_total":                   m.ATMTotal,
		"invoice_total":               m.InvoiceTotal,
		"reviewed_by":                 m.ReviewedBy,
		"reviewed_at":                 m.ReviewedAt,
		"review_notes":                m.ReviewNotes,
		"calculated_total":            m.CalculatedTotal,
		"counted_total":               m.CountedTotal,
		"variance":                    m.Variance,
		"integrity_signature":         m.IntegritySignature,
		"closed_by":                   m.ClosedBy,
		"closed_at":                   m.ClosedAt,
		"reconciled_by":               m.ReconciledBy,
		"reconciled_at":               m.ReconciledAt,
		"reconciliation_accepted":     m.ReconciliationAccepted,
		"reconciliation_observations": m.ReconciliationObservations,
		"cash_sent_by":                m.CashSentBy,
		"cash_sent_at":                m.CashSentAt,
		"updated_at":                  m.UpdatedAt,
	}, l.IncrementVersion)
}

func ledgersToDomain(rows []models.DailyLedgerModel) []ledger.DailyLedger {
	out := make([]ledger.DailyLedger, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out
}

// Ensure GormLedgerRepository implements ledger.LedgerRepository
var _ ledger.LedgerRepository = (*GormLedgerRepository)(nil)
