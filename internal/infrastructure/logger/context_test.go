package logger

import (
	"context"
	"testing"

	"github.com/cashledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromContext_NoLogger(t *testing.T) {
	log := FromContext(context.Background())
	assert.NotNil(t, log)
	log.Info("discarded")
}

func TestFromContext_AddsRequestAndScopeFields(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	tenantID, userID := uuid.New(), uuid.New()

	ctx := WithContext(context.Background(), zap.New(core))
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithScope(ctx, shared.NewTenantScope(tenantID, userID))

	FromContext(ctx).Info("submitted")

	entry := recorded.All()[0]
	fields := entry.ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, tenantID.String(), fields["tenant_id"])
	assert.Equal(t, userID.String(), fields["user_id"])
	assert.NotContains(t, fields, "unit_id")
}

func TestWithScope_KeepsRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-2")
	ctx = WithScope(ctx, shared.SystemScope(uuid.New()))

	f := FieldsFromContext(ctx)
	assert.Equal(t, "req-2", f.RequestID)
	assert.Empty(t, f.TenantID)
	assert.NotEmpty(t, f.UserID)
}

func TestContextFields_TraceIDs(t *testing.T) {
	traceID, _ := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	spanID, _ := trace.SpanIDFromHex("0102030405060708")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	core, recorded := observer.New(zapcore.InfoLevel)
	Enrich(ctx, zap.New(core)).Info("traced")

	fields := recorded.All()[0].ContextMap()
	assert.Equal(t, traceID.String(), fields["trace_id"])
	assert.Equal(t, spanID.String(), fields["span_id"])
}
