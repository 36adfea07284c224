package persistence

import (
	"errors"

	"github.com/cashledger/backend/internal/domain/ledger"
	"github.com/cashledger/backend/internal/domain/shared"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// PostgreSQL SQLSTATE codes
const (
	pgUniqueViolation    = "23505"
	pgExclusionViolation = "23P01"
)

// translateError maps driver and GORM errors onto domain error kinds. A unique
// violation becomes duplicate when one is given.
func translateError(err error, resource string, duplicate *shared.DomainError) error {
	if err == nil {
		return nil
	}
	var de *shared.DomainError
	if errors.As(err, &de) {
		return de
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound.With("resource", resource)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgExclusionViolation:
			return ledger.ErrEntryOverlap.With("constraint", pgErr.ConstraintName)
		case pgUniqueViolation:
			if duplicate != nil {
				return duplicate.With("constraint", pgErr.ConstraintName)
			}
		}
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) && duplicate != nil {
		return duplicate
	}
	if errors.Is(err, gorm.ErrCheckConstraintViolated) {
		return shared.ErrInvalidInput.With("resource", resource).Wrap(err)
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return shared.ErrNotFound.With("resource", resource).Wrap(err)
	}
	return shared.NewInfrastructureError(err).With("resource", resource)
}
