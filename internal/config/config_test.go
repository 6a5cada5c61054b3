package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("TEST_MESA_KEY", "secret-key")
	path := writeConfig(t, `
timezone: "UTC"
database:
  path: "`+filepath.Join(t.TempDir(), "mesa.db")+`"
api:
  port: 8080
  key: "${TEST_MESA_KEY}"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "secret-key", cfg.API.Key)
	assert.Equal(t, 8080, cfg.API.Port)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  path: "`+filepath.Join(t.TempDir(), "mesa.db")+`"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 30*time.Minute, cfg.SlotGranularity())
	assert.Equal(t, "17:00", cfg.EveningStart())
	assert.Equal(t, 14, cfg.DayCount())
	assert.Equal(t, 90, cfg.MaxDayCount())
	assert.Equal(t, 5*time.Minute, cfg.SweepInterval())
	assert.Zero(t, cfg.CacheTTL())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
