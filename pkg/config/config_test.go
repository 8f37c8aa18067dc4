package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestConfig writes content to a temporary appconfig/default.yaml and
// points WORKDIR at it.
func setupTestConfig(t *testing.T, content string) {
	t.Helper()
	tempDir := t.TempDir()

	configDir := filepath.Join(tempDir, "appconfig")
	require.NoError(t, os.MkdirAll(configDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "default.yaml"), []byte(content), 0644))

	t.Setenv("WORKDIR", tempDir)
}

func TestLoadConfig(t *testing.T) {
	setupTestConfig(t, `app:
  name: "classroster-test"
  version: "0.0.1"
  environment: "test"
cache:
  driver: "memory"
  inmemory:
    defaultExpiration: -1
    cleanupInterval: -1
    quotaBytes: 5242880
durable:
  debounce: "150ms"
repository:
  cacheTTL: "1m"
  refreshBeforeWrite: true
integrity:
  defaultClassName: "Unassigned"
  sweepInterval: "0s"
`)

	cfg, err := LoadConfig("default")
	require.NoError(t, err)

	assert.Equal(t, "classroster-test", cfg.App.Name)
	assert.Equal(t, "memory", cfg.Cache.Driver)
	require.NotNil(t, cfg.Cache.InMemory)
	assert.Equal(t, int32(-1), cfg.Cache.InMemory.DefaultExpiration)
	assert.Equal(t, 5242880, cfg.Cache.InMemory.QuotaBytes)
	assert.Equal(t, 150*time.Millisecond, cfg.Durable.Debounce)
	assert.Equal(t, time.Minute, cfg.Repository.CacheTTL)
	assert.True(t, cfg.Repository.RefreshBeforeWrite)
	assert.Equal(t, "Unassigned", cfg.Integrity.DefaultClassName)
	assert.Equal(t, time.Duration(0), cfg.Integrity.SweepInterval)

	assert.Same(t, cfg, GetConfig())
}

func TestLoadConfig_Defaults(t *testing.T) {
	setupTestConfig(t, ``)

	cfg, err := LoadConfig("default")
	require.NoError(t, err)

	assert.Equal(t, "classroster", cfg.App.Name)
	assert.Equal(t, "memory", cfg.Cache.Driver)
	assert.Equal(t, 300*time.Millisecond, cfg.Durable.Debounce)
	assert.True(t, cfg.Durable.CrossContextSync)
	assert.Equal(t, 5*time.Minute, cfg.Repository.CacheTTL)
	assert.True(t, cfg.Integrity.AutoCleanup)
	assert.Equal(t, 10*time.Minute, cfg.Integrity.SweepInterval)
	assert.Equal(t, 8080, cfg.API.Port)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	setupTestConfig(t, `api:
  port: 9000
`)
	t.Setenv("CLASSROSTER_API_PORT", "9100")

	cfg, err := LoadConfig("default")
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.API.Port)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	t.Setenv("WORKDIR", t.TempDir())

	_, err := LoadConfig("production")
	assert.Error(t, err)
}
