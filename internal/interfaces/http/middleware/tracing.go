package middleware

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	ServiceName string
	Enabled     bool
	// SkipPaths are not traced (health probes)
	SkipPaths []string
}

// Tracing starts the server span for each request, named after the route pattern
func Tracing(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}

	return otelgin.Middleware(cfg.ServiceName,
		otelgin.WithFilter(func(r *http.Request) bool {
			return !slices.Contains(cfg.SkipPaths, r.URL.Path)
		}),
	)
}

// SpanEnricher must run after JWTAuth: it tags the server span with the caller
// and marks 4xx outcomes that matter for the ledger workflow.
func SpanEnricher() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			span.SetAttributes(attribute.String("request_id", requestIDOf(c)))
			if scope, ok := GetScope(c); ok {
				span.SetAttributes(
					attribute.String("tenant_id", scope.TenantID.String()),
					attribute.String("user_id", scope.UserID.String()),
					attribute.Bool("system_caller", scope.IsSystem()),
				)
			}
		}

		c.Next()

		if !span.IsRecording() {
			return
		}
		switch status := c.Writer.Status(); status {
		case http.StatusConflict, http.StatusForbidden, http.StatusServiceUnavailable:
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}
