package tenant

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cashledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// TestModel is a simple model for testing tenant scoping
type TestModel struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID uuid.UUID `gorm:"type:uuid;not null;index"`
	Name     string    `gorm:"size:100"`
}

func (TestModel) TableName() string {
	return "test_models"
}

// OtherModel lives in a table the callbacks do not guard
type OtherModel struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name string
}

func (OtherModel) TableName() string {
	return "other_models"
}

func setupCallbackMockDB(t *testing.T) (*TenantDB, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	tdb, err := NewTenantDB(gormDB, "test_models")
	require.NoError(t, err)
	return tdb, mock, mockDB
}

func TestNewTenantCallback_DefaultColumn(t *testing.T) {
	tc := NewTenantCallback("", "test_models")
	assert.Equal(t, "tenant_id", tc.tenantColumn)
	assert.Equal(t, []string{"test_models"}, tc.tables)
}

func TestScopeFromContext(t *testing.T) {
	_, ok := ScopeFromContext(context.Background())
	assert.False(t, ok)

	scope := shared.NewTenantScope(uuid.New(), uuid.New())
	got, ok := ScopeFromContext(WithScope(context.Background(), scope))
	require.True(t, ok)
	assert.Equal(t, scope.TenantID, got.TenantID)
}

func TestTenantCallback_Query(t *testing.T) {
	tenantID := uuid.New()

	t.Run("narrows reads to the caller's tenant", func(t *testing.T) {
		db, mock, mockDB := setupCallbackMockDB(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "test_models" WHERE "test_models"."tenant_id" = \$1`).
			WithArgs(tenantID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "name"}).
				AddRow(uuid.New(), tenantID, "mine"))

		var results []TestModel
		err := db.WithScope(context.Background(), shared.NewTenantScope(tenantID, uuid.New())).Find(&results).Error
		require.NoError(t, err)
		assert.Len(t, results, 1)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("fails closed without a tenant", func(t *testing.T) {
		db, mock, mockDB := setupCallbackMockDB(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "test_models" WHERE 1 = 0`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "name"}))

		var results []TestModel
		err := db.WithScope(context.Background(), shared.Scope{UserID: uuid.New()}).Find(&results).Error
		require.NoError(t, err)
		assert.Empty(t, results)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("fails closed when no scope is in the context", func(t *testing.T) {
		db, mock, mockDB := setupCallbackMockDB(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "test_models" WHERE 1 = 0`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "name"}))

		var results []TestModel
		require.NoError(t, db.DB().WithContext(context.Background()).Find(&results).Error)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("system caller sees every tenant", func(t *testing.T) {
		db, mock, mockDB := setupCallbackMockDB(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "test_models"$`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "name"}).
				AddRow(uuid.New(), uuid.New(), "a").
				AddRow(uuid.New(), uuid.New(), "b"))

		var results []TestModel
		require.NoError(t, db.WithScope(context.Background(), shared.SystemScope(uuid.New())).Find(&results).Error)
		assert.Len(t, results, 2)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("leaves unguarded tables alone", func(t *testing.T) {
		db, mock, mockDB := setupCallbackMockDB(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "other_models"$`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))

		var results []OtherModel
		require.NoError(t, db.WithScope(context.Background(), shared.Scope{}).Find(&results).Error)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTenantCallback_Create(t *testing.T) {
	t.Run("stamps the caller's tenant over the supplied one", func(t *testing.T) {
		db, mock, mockDB := setupCallbackMockDB(t)
		defer mockDB.Close()

		callerTenant := uuid.New()
		row := TestModel{ID: uuid.New(), TenantID: uuid.New(), Name: "spoofed"}

		mock.ExpectExec(`INSERT INTO "test_models"`).
			WithArgs(row.ID, callerTenant, "spoofed").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := db.WithScope(context.Background(), shared.NewTenantScope(callerTenant, uuid.New())).Create(&row).Error
		require.NoError(t, err)
		assert.Equal(t, callerTenant, row.TenantID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("refuses to create without a tenant", func(t *testing.T) {
		db, mock, mockDB := setupCallbackMockDB(t)
		defer mockDB.Close()

		row := TestModel{ID: uuid.New(), TenantID: uuid.New()}
		err := db.WithScope(context.Background(), shared.SystemScope(uuid.New())).Create(&row).Error
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTenantCallback_UpdateAndDelete(t *testing.T) {
	tenantID := uuid.New()
	id := uuid.New()

	t.Run("update is narrowed to the tenant", func(t *testing.T) {
		db, mock, mockDB := setupCallbackMockDB(t)
		defer mockDB.Close()

		mock.ExpectExec(`UPDATE "test_models" SET "name"=\$1 WHERE id = \$2 AND "test_models"."tenant_id" = \$3`).
			WithArgs("renamed", id, tenantID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		res := db.WithScope(context.Background(), shared.NewTenantScope(tenantID, uuid.New())).
			Model(&TestModel{}).Where("id = ?", id).Update("name", "renamed")
		require.NoError(t, res.Error)
		assert.Equal(t, int64(1), res.RowsAffected)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("system caller cannot update", func(t *testing.T) {
		db, mock, mockDB := setupCallbackMockDB(t)
		defer mockDB.Close()

		err := db.WithScope(context.Background(), shared.SystemScope(uuid.New())).
			Model(&TestModel{}).Where("id = ?", id).Update("name", "renamed").Error
		assert.ErrorIs(t, err, shared.ErrForbidden)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("delete without tenant matches nothing", func(t *testing.T) {
		db, mock, mockDB := setupCallbackMockDB(t)
		defer mockDB.Close()

		mock.ExpectExec(`DELETE FROM "test_models" WHERE id = \$1 AND 1 = 0`).
			WithArgs(id).
			WillReturnResult(sqlmock.NewResult(0, 0))

		res := db.WithScope(context.Background(), shared.Scope{}).Where("id = ?", id).Delete(&TestModel{})
		require.NoError(t, res.Error)
		assert.Zero(t, res.RowsAffected)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
