package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ledgerapp "github.com/cashledger/backend/internal/application/ledger"
	"github.com/cashledger/backend/internal/domain/shared"
	"github.com/cashledger/backend/internal/infrastructure/auth"
	"github.com/cashledger/backend/internal/infrastructure/cache"
	"github.com/cashledger/backend/internal/infrastructure/config"
	"github.com/cashledger/backend/internal/infrastructure/event"
	"github.com/cashledger/backend/internal/infrastructure/integrity"
	"github.com/cashledger/backend/internal/infrastructure/logger"
	"github.com/cashledger/backend/internal/infrastructure/persistence"
	"github.com/cashledger/backend/internal/infrastructure/telemetry"
	"github.com/cashledger/backend/internal/interfaces/http/handler"
	"github.com/cashledger/backend/internal/interfaces/http/middleware"
	"github.com/cashledger/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

//	@title			Cash Ledger API
//	@version		1.0
//	@description	Daily cash ledgers for sales units: submission, review, closing, reconciliation and entry adjustments.

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}
	ctx := context.Background()

	// The OTel log bridge must exist before the logger so every entry is exported
	loggerProvider, err := telemetry.NewLoggerProvider(ctx, cfg.Telemetry)
	if err != nil {
		panic("Failed to initialize log exporter: " + err.Error())
	}
	var extraCores []zapcore.Core
	if loggerProvider.IsEnabled() {
		extraCores = append(extraCores, loggerProvider.ZapCore(cfg.Telemetry.ServiceName, logger.ParseLevel(cfg.Log.Level)))
	}

	log, err := logger.New(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}, extraCores...)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting Cash Ledger",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	if cfg.Profiling.Enabled {
		tracerProvider.EnableSpanProfiles()
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	profiler, err := telemetry.NewProfiler(cfg.Profiling, cfg.Telemetry.ServiceName, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}

	db, err := persistence.NewDatabase(&cfg.Database, log, telemetry.NewDBTracingPlugin(cfg.Telemetry, log))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connected successfully")

	backends, err := cache.NewFactory(cfg.Redis, cfg.Cache, cache.WithLogger(log)).Create(ctx)
	if err != nil {
		log.Fatal("Failed to initialize cache backends", zap.Error(err))
	}

	sealer, err := integrity.NewHMACSealerFromConfig(cfg.Integrity)
	if err != nil {
		log.Fatal("Failed to initialize ledger sealer", zap.Error(err))
	}

	metrics, err := telemetry.NewLedgerMetrics(meterProvider.Meter("cashledger"))
	if err != nil {
		log.Fatal("Failed to register ledger metrics", zap.Error(err))
	}
	sqlDB, err := db.DB.DB()
	if err != nil {
		log.Fatal("Failed to get underlying SQL DB", zap.Error(err))
	}
	poolMetrics, err := telemetry.RegisterPoolMetrics(meterProvider.Meter("cashledger/db"), sqlDB.Stats)
	if err != nil {
		log.Fatal("Failed to register pool metrics", zap.Error(err))
	}

	bus := event.NewInMemoryEventBus(log)
	bus.Subscribe(event.NewIdempotentHandler(event.NewAuditHandler(log, metrics), backends.Idempotency, log))
	if err := bus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	unitAccess := cache.NewCachedUnitAccess(db.UnitAssignments(), backends.AccessCache, log)
	appCfg := ledgerapp.Config{
		Store:          db.LedgerStore(),
		Guard:          unitAccess,
		Sealer:         sealer,
		Clock:          shared.SystemClock{},
		EventPublisher: bus,
		Logger:         log,
	}
	ledgerService := ledgerapp.NewLedgerService(appCfg)
	entryService := ledgerapp.NewEntryService(appCfg)
	adjustmentService := ledgerapp.NewAdjustmentService(appCfg)
	assignmentService := ledgerapp.NewAssignmentService(appCfg, unitAccess)

	checks := map[string]handler.HealthChecker{
		"database": db,
	}
	if backends.Redis != nil {
		checks["redis"] = handler.HealthCheckFunc(func(ctx context.Context) error {
			return backends.Redis.Ping(ctx).Err()
		})
	}

	var blacklist auth.TokenBlacklist = auth.NewInMemoryTokenBlacklist()
	if backends.Redis != nil {
		blacklist = auth.NewRedisTokenBlacklist(backends.Redis)
	}

	engine := router.New(router.Config{
		App:     cfg.App,
		HTTP:    cfg.HTTP,
		Swagger: cfg.Swagger,
		Tracing: middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     tracerProvider.IsEnabled(),
		},
		Profiling: middleware.ProfilingConfig{Enabled: profiler.IsEnabled()},
		Auth: middleware.JWTMiddlewareConfig{
			Validator: auth.NewJWTService(cfg.JWT),
			Blacklist: blacklist,
		},
		Idempotency: middleware.IdempotencyConfig{
			Header:  cfg.HTTP.IdempotencyHeader,
			Store:   backends.Idempotency,
			Locker:  backends.Locker,
			TTL:     cfg.Idempotency.TTL,
			LockTTL: cfg.Idempotency.LockTTL,
		},
		Meter:  meterProvider,
		Logger: log,
	}, router.Handlers{
		Ledger:     handler.NewLedgerHandler(ledgerService, metrics),
		Entry:      handler.NewEntryHandler(entryService),
		Adjustment: handler.NewAdjustmentHandler(adjustmentService),
		Admin:      handler.NewAdminHandler(ledgerService, assignmentService),
		System:     handler.NewSystemHandler(cfg.App.Name, version, checks),
	})

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	// Drain audit deliveries before the exporters flush
	if err := bus.Stop(shutdownCtx); err != nil {
		log.Error("Event bus did not drain", zap.Error(err))
	}
	shutdown(shutdownCtx, log, map[string]func(context.Context) error{
		"tracer provider": tracerProvider.Shutdown,
		"meter provider":  meterProvider.Shutdown,
		"logger provider": loggerProvider.Shutdown,
	})
	if err := profiler.Stop(); err != nil {
		log.Error("Error stopping profiler", zap.Error(err))
	}
	if err := backends.Close(); err != nil {
		log.Error("Error closing cache backends", zap.Error(err))
	}
	if err := poolMetrics.Unregister(); err != nil {
		log.Error("Error unregistering pool metrics", zap.Error(err))
	}
	if err := db.Close(); err != nil {
		log.Error("Error closing database", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

func shutdown(ctx context.Context, log *zap.Logger, steps map[string]func(context.Context) error) {
	for name, step := range steps {
		if err := step(ctx); err != nil {
			log.Error("Error during shutdown", zap.String("component", name), zap.Error(err))
		}
	}
}
