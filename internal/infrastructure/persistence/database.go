package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/cashledger/backend/internal/infrastructure/config"
	"github.com/cashledger/backend/internal/infrastructure/logger"
	"github.com/cashledger/backend/internal/infrastructure/persistence/tenant"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Database holds the database connection and its tenant-guarded view
type Database struct {
	DB     *gorm.DB
	Tenant *tenant.TenantDB
}

// Options configure Open
type Options struct {
	Logger        *zap.Logger
	LogLevel      gormlogger.LogLevel
	SlowThreshold time.Duration
	PrepareStmt   bool
	// Plugins are registered after the tenant callbacks, e.g. tracing
	Plugins []gorm.Plugin
}

// NewDatabase connects to PostgreSQL with the given configuration
func NewDatabase(cfg *config.DatabaseConfig, log *zap.Logger, plugins ...gorm.Plugin) (*Database, error) {
	db, err := Open(postgres.Open(cfg.DSN()), Options{
		Logger:        log,
		LogLevel:      logger.MapGormLogLevel(cfg.LogLevel),
		SlowThreshold: cfg.SlowThreshold,
		PrepareStmt:   true,
		Plugins:       plugins,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// Open opens a database on any GORM dialector and registers the tenant callbacks
func Open(dialector gorm.Dialector, opts Options) (*Database, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 logger.NewGormLogger(log, opts.LogLevel, opts.SlowThreshold),
		SkipDefaultTransaction: true,
		PrepareStmt:            opts.PrepareStmt,
		TranslateError:         true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	tdb, err := tenant.NewTenantDB(db, TenantTables...)
	if err != nil {
		return nil, fmt.Errorf("failed to register tenant callbacks: %w", err)
	}
	for _, p := range opts.Plugins {
		if err := db.Use(p); err != nil {
			return nil, fmt.Errorf("failed to register plugin %s: %w", p.Name(), err)
		}
	}
	return &Database{DB: db, Tenant: tdb}, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Ping checks if the database connection is alive
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Stats returns database connection pool statistics
func (d *Database) Stats() (ConnectionStats, error) {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return ConnectionStats{}, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	stats := sqlDB.Stats()
	return ConnectionStats{
		MaxOpenConnections: stats.MaxOpenConnections,
		OpenConnections:    stats.OpenConnections,
		InUse:              stats.InUse,
		Idle:               stats.Idle,
		WaitCount:          stats.WaitCount,
		WaitDuration:       stats.WaitDuration,
	}, nil
}

// ConnectionStats holds database connection pool statistics
type ConnectionStats struct {
	MaxOpenConnections int
	OpenConnections    int
	InUse              int
	Idle               int
	WaitCount          int64
	WaitDuration       time.Duration
}

// LedgerStore returns the ledger.Store backed by this database
func (d *Database) LedgerStore() *GormLedgerStore {
	return NewGormLedgerStore(d.Tenant)
}

// UnitAssignments returns the unit assignment repository
func (d *Database) UnitAssignments() *GormUnitAssignmentRepository {
	return NewGormUnitAssignmentRepository(d.DB)
}
