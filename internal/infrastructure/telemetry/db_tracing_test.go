package telemetry

import (
	"testing"

	"github.com/cashledger/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type probe struct {
	ID   int
	Name string
}

func openSQLite(t *testing.T, plugin gorm.Plugin) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Use(plugin))
	require.NoError(t, db.AutoMigrate(&probe{}))
	return db
}

func TestDBTracingPlugin_Disabled(t *testing.T) {
	recorder := installRecorder(t)
	plugin := NewDBTracingPlugin(config.TelemetryConfig{Enabled: true, DBTraceEnabled: false}, zap.NewNop())
	db := openSQLite(t, plugin)

	require.NoError(t, db.Create(&probe{Name: "a"}).Error)
	assert.Empty(t, recorder.Ended())
	assert.Equal(t, "cashledger:db_tracing", plugin.Name())
}

func TestDBTracingPlugin_EmitsSpans(t *testing.T) {
	recorder := installRecorder(t)
	plugin := NewDBTracingPlugin(config.TelemetryConfig{Enabled: true, DBTraceEnabled: true}, zap.NewNop())
	// every statement counts as slow
	plugin.slowThresh = 0
	db := openSQLite(t, plugin)

	require.NoError(t, db.Create(&probe{Name: "a"}).Error)
	var got []probe
	require.NoError(t, db.Find(&got).Error)

	spans := recorder.Ended()
	require.NotEmpty(t, spans)

	var slow bool
	for _, s := range spans {
		for _, a := range s.Attributes() {
			if a.Key == "db.slow_query" && a.Value.AsBool() {
				slow = true
			}
		}
	}
	assert.True(t, slow, "slow statements are flagged on their span")
}
