package model_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/ecotrack-console/internal/model"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := model.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	def := model.DefaultConfig()
	assert.Equal(t, def.API, cfg.API)
	assert.Equal(t, def.Sync.ReportIntervalSec, cfg.Sync.ReportIntervalSec)
	assert.Equal(t, model.DefaultStreams(), cfg.Sync.Streams)
}

func TestLoadConfigOverridesAndRepairsIntervals(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api:
  base_url: https://api.ecotrack.example
sync:
  report_interval_sec: 0
  retry_attempts: 5
log:
  level: debug
`), 0o600))

	cfg, err := model.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "https://api.ecotrack.example", cfg.API.BaseURL)
	assert.Equal(t, 30, cfg.API.TimeoutSec)
	assert.Equal(t, 60, cfg.Sync.ReportIntervalSec)
	assert.Equal(t, 5, cfg.Sync.RetryAttempts)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfigRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api: [unclosed"), 0o600))

	_, err := model.LoadConfig(path)
	assert.Error(t, err)
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := model.DefaultConfig()
	cfg.API.BaseURL = "https://saved.example"
	cfg.Sync.NotificationIntervalSec = 15

	require.NoError(t, model.SaveConfig(path, cfg))

	got, err := model.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "https://saved.example", got.API.BaseURL)
	assert.Equal(t, 15, got.Sync.NotificationIntervalSec)
}
