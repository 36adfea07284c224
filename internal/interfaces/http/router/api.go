package router

import (
	_ "github.com/cashledger/backend/docs"
	"github.com/cashledger/backend/internal/infrastructure/config"
	"github.com/cashledger/backend/internal/infrastructure/logger"
	"github.com/cashledger/backend/internal/infrastructure/telemetry"
	"github.com/cashledger/backend/internal/interfaces/http/handler"
	"github.com/cashledger/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// Handlers are the HTTP handlers mounted by New
type Handlers struct {
	Ledger     *handler.LedgerHandler
	Entry      *handler.EntryHandler
	Adjustment *handler.AdjustmentHandler
	Admin      *handler.AdminHandler
	System     *handler.SystemHandler
}

// Config carries everything New needs besides the handlers
type Config struct {
	App         config.AppConfig
	HTTP        config.HTTPConfig
	Swagger     config.SwaggerConfig
	Tracing     middleware.TracingConfig
	Profiling   middleware.ProfilingConfig
	Auth        middleware.JWTMiddlewareConfig
	Idempotency middleware.IdempotencyConfig
	Meter       *telemetry.MeterProvider
	Logger      *zap.Logger
}

// operational paths are neither traced nor profiled
var operationalPaths = []string{"/health", "/system/info"}

// New builds the engine. Global middleware order matters: the request id
// must exist before the access log, and tracing must wrap the metrics so the
// request span covers the whole handler chain.
func New(cfg Config, h Handlers) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Ignoring invalid trusted proxies", zap.Error(err))
		}
	}

	cfg.Tracing.SkipPaths = append(cfg.Tracing.SkipPaths, operationalPaths...)
	cfg.Profiling.SkipPaths = append(cfg.Profiling.SkipPaths, operationalPaths...)

	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.Secure(),
		middleware.CORS(cfg.HTTP, cfg.App.IsProduction()),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
		middleware.Timeout(cfg.HTTP.RequestTimeout),
		middleware.Tracing(cfg.Tracing),
		middleware.HTTPMetrics(cfg.Meter),
	)
	if cfg.HTTP.RateLimitEnabled {
		engine.Use(middleware.RateLimit(middleware.NewRateLimiter(cfg.HTTP.RateLimitRPS, cfg.HTTP.RateLimitBurst)))
	}
	engine.NoRoute(middleware.NoRoute())

	engine.GET("/health", h.System.Health)
	engine.GET("/system/info", h.System.GetSystemInfo)
	if !cfg.App.IsProduction() {
		engine.GET("/swagger/*any", middleware.SwaggerGuard(cfg.Swagger), ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	if cfg.Auth.Logger == nil {
		cfg.Auth.Logger = log
	}
	if cfg.Idempotency.Logger == nil {
		cfg.Idempotency.Logger = log
	}
	api := []gin.HandlerFunc{
		middleware.JWTAuth(cfg.Auth),
		middleware.SpanEnricher(),
		middleware.Profiling(cfg.Profiling),
	}
	if cfg.HTTP.RateLimitEnabled {
		callers := middleware.NewRateLimiter(cfg.HTTP.RateLimitRPS, cfg.HTTP.RateLimitBurst)
		api = append(api, middleware.RateLimitByKey(callers, middleware.CallerKey))
	}
	if cfg.Idempotency.Store != nil {
		api = append(api, middleware.Idempotency(cfg.Idempotency))
	}

	mountAPI(engine, api, apiResources(h)...)
	return engine
}

func apiResources(h Handlers) []*Resource {
	return []*Resource{ledgerRoutes(h), entryRoutes(h), adjustmentRoutes(h), adminRoutes(h)}
}

func ledgerRoutes(h Handlers) *Resource {
	return newResource("/ledgers", middleware.RequireTenantCaller()).
		POST("", h.Ledger.Submit).
		GET("", h.Ledger.List).
		GET("/:id", h.Ledger.Get).
		POST("/:id/review", h.Ledger.Review).
		POST("/:id/close", h.Ledger.Close).
		POST("/:id/reconcile", h.Ledger.Reconcile).
		POST("/:id/dispatch", h.Ledger.Dispatch).
		GET("/:id/entries", h.Entry.List).
		POST("/:id/entries", h.Entry.Create).
		GET("/:id/overlaps", h.Entry.Overlaps)
}

func entryRoutes(h Handlers) *Resource {
	return newResource("/entries", middleware.RequireTenantCaller()).
		GET("/:id", h.Entry.Get).
		PUT("/:id", h.Entry.Update).
		DELETE("/:id", h.Entry.Delete).
		POST("/:id/adjustments", h.Adjustment.Request).
		GET("/:id/adjustments", h.Adjustment.ListByEntry)
}

func adjustmentRoutes(h Handlers) *Resource {
	return newResource("/adjustments", middleware.RequireTenantCaller()).
		GET("", h.Adjustment.List).
		GET("/:id", h.Adjustment.Get).
		POST("/:id/decision", h.Adjustment.Decide).
		POST("/:id/withdraw", h.Adjustment.Withdraw)
}

func adminRoutes(h Handlers) *Resource {
	admin := newResource("/admin", middleware.RequireSystemCaller()).
		GET("/ledgers", h.Admin.ListLedgers)
	admin.Nest("/unit-assignments").
		GET("", h.Admin.ListAssignments).
		POST("", h.Admin.Assign).
		DELETE("", h.Admin.Revoke)
	return admin
}
