package main

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/cyp0633/libnebula/internal/snowflake"
	"github.com/cyp0633/libnebula/recurrence"
	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"
)

// Storage drivers
const (
	driverMemory = "memory"
	driverSQLite = "sqlite"
)

// Engine presets
const (
	engineDefault         = "default"
	engineHighPerformance = "high-performance"
	engineLowMemory       = "low-memory"
	engineNoCache         = "no-cache"
)

// StorageConfig selects and configures the event store.
type StorageConfig struct {
	// Driver is "memory" or "sqlite".
	Driver string `yaml:"driver"`
	// Path is the SQLite database file.
	Path        string        `yaml:"path,omitempty"`
	BusyTimeout time.Duration `yaml:"busy_timeout,omitempty"`
}

// SnowflakeConfig identifies this node in generated IDs.
type SnowflakeConfig struct {
	Cluster uint8 `yaml:"cluster"`
	Worker  uint8 `yaml:"worker"`
}

// UserConfig is an API user and the realms they may access.
type UserConfig struct {
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	Realms   []string `yaml:"realms"`
}

// Config is the example server's configuration file.
type Config struct {
	Listen string `yaml:"listen"`
	Prefix string `yaml:"prefix"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel       string          `yaml:"log_level"`
	RequestTimeout time.Duration   `yaml:"request_timeout"`
	Engine         string          `yaml:"engine"`
	Storage        StorageConfig   `yaml:"storage"`
	Snowflake      SnowflakeConfig `yaml:"snowflake"`
	// Users, when non-empty, enables HTTP Basic authentication.
	Users []UserConfig `yaml:"users"`
	// SeedRealm, if set, is filled with sample events and tasks on start.
	SeedRealm string `yaml:"seed_realm,omitempty"`
}

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() *Config {
	return &Config{
		Listen:         "127.0.0.1:8080",
		Prefix:         "/api/",
		LogLevel:       "info",
		RequestTimeout: 10 * time.Second,
		Engine:         engineDefault,
		Storage:        StorageConfig{Driver: driverMemory},
		Users: []UserConfig{
			{Username: "alice", Password: "password", Realms: []string{"home"}},
		},
		SeedRealm: "home",
	}
}

// Normalize fills in missing values so that partially written files still
// work.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.Prefix == "" {
		c.Prefix = "/api/"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 10 * time.Second
	}
	if c.Engine == "" {
		c.Engine = engineDefault
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = driverMemory
	}
	if c.Storage.Driver == driverSQLite && c.Storage.Path == "" {
		c.Storage.Path = "nebula.db"
	}
	if c.Users == nil {
		c.Users = []UserConfig{}
	}
}

// Validate reports settings Normalize cannot repair.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case driverMemory, driverSQLite:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if _, err := c.EngineConfig(); err != nil {
		return err
	}
	if c.Snowflake.Cluster > snowflake.MaxCluster || c.Snowflake.Worker > snowflake.MaxWorker {
		return fmt.Errorf("snowflake cluster must be at most %d and worker at most %d",
			snowflake.MaxCluster, snowflake.MaxWorker)
	}
	for _, u := range c.Users {
		if u.Username == "" {
			return errors.New("user without username")
		}
	}
	return nil
}

// EngineConfig maps the engine preset name onto a recurrence configuration.
func (c *Config) EngineConfig() (recurrence.EngineConfig, error) {
	switch c.Engine {
	case engineDefault:
		return recurrence.DefaultEngineConfig, nil
	case engineHighPerformance:
		return recurrence.HighPerformanceConfig, nil
	case engineLowMemory:
		return recurrence.LowMemoryConfig, nil
	case engineNoCache:
		return recurrence.DisabledCacheConfig, nil
	}
	return recurrence.EngineConfig{}, fmt.Errorf("unknown engine preset %q", c.Engine)
}

// Load reads the YAML configuration at path. A missing file is created with
// the default configuration, which is then returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path atomically with 0600 permissions, since the file
// holds passwords.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return err
	}
	return os.Chmod(path, 0o600)
}
