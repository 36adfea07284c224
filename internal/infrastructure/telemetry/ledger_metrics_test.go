package telemetry

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumFor(t *testing.T, m metricdata.Metrics, attrs ...attribute.KeyValue) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)
	want := attribute.NewSet(attrs...)
	for _, dp := range sum.DataPoints {
		if dp.Attributes.Equals(&want) {
			return dp.Value
		}
	}
	return 0
}

func TestLedgerMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := NewMeterProviderWithReader(reader)
	m, err := NewLedgerMetrics(mp.Meter("ledger"))
	require.NoError(t, err)
	ctx := context.Background()

	m.RecordTransition(ctx, "close", "success")
	m.RecordTransition(ctx, "close", "success")
	m.RecordTransition(ctx, "close", "failure")
	m.RecordVariance(ctx, decimal.RequireFromString("-7.25"))
	m.RecordAdjustmentDecision(ctx, "approved")
	m.RecordIntegrityViolation(ctx)

	got := collect(t, reader)

	assert.Equal(t, int64(2), sumFor(t, got["ledger_transitions_total"], AttrTransition.String("close"), AttrResult.String("success")))
	assert.Equal(t, int64(1), sumFor(t, got["ledger_transitions_total"], AttrTransition.String("close"), AttrResult.String("failure")))
	assert.Equal(t, int64(1), sumFor(t, got["adjustment_decisions_total"], AttrAction.String("approved")))
	assert.Equal(t, int64(1), sumFor(t, got["integrity_violations_total"]))

	hist, ok := got["ledger_variance_abs"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
	assert.InDelta(t, 7.25, hist.DataPoints[0].Sum, 1e-9)
}

func TestMeterProvider_Disabled(t *testing.T) {
	mp := &MeterProvider{}
	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("x"))
	assert.NoError(t, mp.Shutdown(context.Background()))
}
