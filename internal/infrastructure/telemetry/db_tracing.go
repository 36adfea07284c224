package telemetry

import (
	"time"

	"github.com/cashledger/backend/internal/infrastructure/config"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const queryStartKey = "telemetry:query_start"

// DBTracingPlugin is a gorm.Plugin that installs otelgorm and flags slow
// statements on their span
type DBTracingPlugin struct {
	enabled    bool
	fullSQL    bool
	slowThresh time.Duration
	dbSystem   string
	logger     *zap.Logger
}

// NewDBTracingPlugin creates the plugin. Pass it to persistence.NewDatabase.
func NewDBTracingPlugin(cfg config.TelemetryConfig, logger *zap.Logger) *DBTracingPlugin {
	slow := cfg.DBSlowQueryThresh
	if slow <= 0 {
		slow = 200 * time.Millisecond
	}
	return &DBTracingPlugin{
		enabled:    cfg.Enabled && cfg.DBTraceEnabled,
		fullSQL:    cfg.DBLogFullSQL,
		slowThresh: slow,
		dbSystem:   "postgresql",
		logger:     logger,
	}
}

func (p *DBTracingPlugin) Name() string {
	return "cashledger:db_tracing"
}

// Initialize registers otelgorm and the slow-statement callbacks
func (p *DBTracingPlugin) Initialize(db *gorm.DB) error {
	if !p.enabled {
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(p.dbSystem)}
	if !p.fullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	cb := db.Callback()
	if err := cb.Create().Before("gorm:create").Register("telemetry:before_create", p.before); err != nil {
		return err
	}
	if err := cb.Create().After("gorm:create").Before("otel:after_create").Register("telemetry:after_create", p.after); err != nil {
		return err
	}
	if err := cb.Query().Before("gorm:query").Register("telemetry:before_query", p.before); err != nil {
		return err
	}
	if err := cb.Query().After("gorm:query").Before("otel:after_query").Register("telemetry:after_query", p.after); err != nil {
		return err
	}
	if err := cb.Update().Before("gorm:update").Register("telemetry:before_update", p.before); err != nil {
		return err
	}
	if err := cb.Update().After("gorm:update").Before("otel:after_update").Register("telemetry:after_update", p.after); err != nil {
		return err
	}
	if err := cb.Row().Before("gorm:row").Register("telemetry:before_row", p.before); err != nil {
		return err
	}
	if err := cb.Row().After("gorm:row").Before("otel:after_row").Register("telemetry:after_row", p.after); err != nil {
		return err
	}

	p.logger.Info("Database tracing enabled",
		zap.Bool("full_sql", p.fullSQL),
		zap.Duration("slow_threshold", p.slowThresh),
	)
	return nil
}

func (p *DBTracingPlugin) before(db *gorm.DB) {
	db.InstanceSet(queryStartKey, time.Now())
}

func (p *DBTracingPlugin) after(db *gorm.DB) {
	v, ok := db.InstanceGet(queryStartKey)
	if !ok {
		return
	}
	start, ok := v.(time.Time)
	if !ok {
		return
	}
	elapsed := time.Since(start)
	if elapsed < p.slowThresh || db.Statement.Context == nil {
		return
	}
	span := trace.SpanFromContext(db.Statement.Context)
	span.SetAttributes(
		attribute.Bool("db.slow_query", true),
		attribute.Int64("db.duration_ms", elapsed.Milliseconds()),
		attribute.String("db.table", db.Statement.Table),
	)
}

var _ gorm.Plugin = (*DBTracingPlugin)(nil)
