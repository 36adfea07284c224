package telemetry

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func gaugeFor(t *testing.T, m metricdata.Metrics, attrs ...attribute.KeyValue) int64 {
	t.Helper()
	g, ok := m.Data.(metricdata.Gauge[int64])
	require.True(t, ok, "metric %s is not an int64 gauge", m.Name)
	want := attribute.NewSet(attrs...)
	for _, dp := range g.DataPoints {
		if dp.Attributes.Equals(&want) {
			return dp.Value
		}
	}
	t.Fatalf("no data point for %v in %s", attrs, m.Name)
	return 0
}

func TestRegisterPoolMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := NewMeterProviderWithReader(reader)

	stats := sql.DBStats{MaxOpenConnections: 25, InUse: 3, Idle: 5, WaitCount: 7}
	reg, err := RegisterPoolMetrics(mp.Meter("db"), func() sql.DBStats { return stats })
	require.NoError(t, err)

	got := collect(t, reader)
	assert.Equal(t, int64(3), gaugeFor(t, got["db_pool_connections"], AttrPoolState.String("in_use")))
	assert.Equal(t, int64(5), gaugeFor(t, got["db_pool_connections"], AttrPoolState.String("idle")))
	assert.Equal(t, int64(25), gaugeFor(t, got["db_pool_connections_max"]))
	assert.Equal(t, int64(7), sumFor(t, got["db_pool_wait_total"]))

	stats.InUse = 9
	got = collect(t, reader)
	assert.Equal(t, int64(9), gaugeFor(t, got["db_pool_connections"], AttrPoolState.String("in_use")))

	assert.NoError(t, reg.Unregister())
}
