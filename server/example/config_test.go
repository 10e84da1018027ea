package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cyp0633/libnebula/recurrence"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "nebula.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Errorf("first run config mismatch (-want +got):\n%s", diff)
	}

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := Load(path)
	require.NoError(t, err)
	if diff := cmp.Diff(cfg, again); diff != "" {
		t.Errorf("reloaded config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_Partial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nebula.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen: ":9000"
request_timeout: 3s
storage:
  driver: sqlite
snowflake:
  cluster: 2
  worker: 7
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Listen)
	assert.Equal(t, "/api/", cfg.Prefix)
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "nebula.db", cfg.Storage.Path)
	assert.Equal(t, uint8(2), cfg.Snowflake.Cluster)
	assert.Equal(t, uint8(7), cfg.Snowflake.Worker)
	assert.Empty(t, cfg.Users)
	assert.Empty(t, cfg.SeedRealm)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: [unclosed"), 0o600))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"storage driver", func(c *Config) { c.Storage.Driver = "postgres" }},
		{"engine preset", func(c *Config) { c.Engine = "turbo" }},
		{"cluster id", func(c *Config) { c.Snowflake.Cluster = 32 }},
		{"worker id", func(c *Config) { c.Snowflake.Worker = 200 }},
		{"username", func(c *Config) { c.Users = append(c.Users, UserConfig{Password: "x"}) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			require.NoError(t, cfg.Validate())
			tt.modify(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestEngineConfig(t *testing.T) {
	presets := map[string]recurrence.EngineConfig{
		engineDefault:         recurrence.DefaultEngineConfig,
		engineHighPerformance: recurrence.HighPerformanceConfig,
		engineLowMemory:       recurrence.LowMemoryConfig,
		engineNoCache:         recurrence.DisabledCacheConfig,
	}
	for name, want := range presets {
		cfg := DefaultConfig()
		cfg.Engine = name
		got, err := cfg.EngineConfig()
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
}

func TestFlagsOverride(t *testing.T) {
	cfg := DefaultConfig()
	flagConfig{listen: ":7000", driver: driverSQLite, seed: "work"}.apply(cfg)

	assert.Equal(t, ":7000", cfg.Listen)
	assert.Equal(t, driverSQLite, cfg.Storage.Driver)
	assert.Equal(t, "nebula.db", cfg.Storage.Path, "normalized after override")
	assert.Equal(t, "work", cfg.SeedRealm)
	assert.Equal(t, "info", cfg.LogLevel)
}
