package logger

import (
	"context"

	"github.com/cashledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type (
	loggerKey struct{}
	fieldsKey struct{}
)

// RequestFields are the request-scoped values attached to every log entry
type RequestFields struct {
	RequestID string
	TenantID  string
	UserID    string
	UnitID    string
}

// WithContext returns a context carrying logger
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// WithRequestID records the request id in ctx
func WithRequestID(ctx context.Context, requestID string) context.Context {
	f := FieldsFromContext(ctx)
	f.RequestID = requestID
	return context.WithValue(ctx, fieldsKey{}, f)
}

// WithScope records the caller identity of scope in ctx
func WithScope(ctx context.Context, scope shared.Scope) context.Context {
	f := FieldsFromContext(ctx)
	f.TenantID = idString(scope.TenantID)
	f.UserID = idString(scope.UserID)
	f.UnitID = idString(scope.UnitID)
	return context.WithValue(ctx, fieldsKey{}, f)
}

// FieldsFromContext returns the request fields stored in ctx
func FieldsFromContext(ctx context.Context) RequestFields {
	if ctx == nil {
		return RequestFields{}
	}
	f, _ := ctx.Value(fieldsKey{}).(RequestFields)
	return f
}

// GetRequestID retrieves the request id from ctx
func GetRequestID(ctx context.Context) string {
	return FieldsFromContext(ctx).RequestID
}

// FromContext returns the logger stored in ctx enriched with the request
// fields and the active trace. Without a stored logger it returns a no-op.
func FromContext(ctx context.Context) *zap.Logger {
	base, ok := ctx.Value(loggerKey{}).(*zap.Logger)
	if !ok {
		return zap.NewNop()
	}
	return Enrich(ctx, base)
}

// Enrich adds the request fields and trace ids found in ctx to logger
func Enrich(ctx context.Context, logger *zap.Logger) *zap.Logger {
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(fields...)
}

// ContextFields returns the zap fields describing ctx
func ContextFields(ctx context.Context) []zap.Field {
	var fields []zap.Field
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	f := FieldsFromContext(ctx)
	for _, kv := range [...]struct{ key, value string }{
		{"request_id", f.RequestID},
		{"tenant_id", f.TenantID},
		{"user_id", f.UserID},
		{"unit_id", f.UnitID},
	} {
		if kv.value != "" {
			fields = append(fields, zap.String(kv.key, kv.value))
		}
	}
	return fields
}

func idString(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}
