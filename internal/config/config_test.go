package config_test

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyang/lead-router/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STORE_DRIVER", "memory")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "lenient", cfg.CapacityReadPolicy)
	assert.Equal(t, 25, cfg.DefaultMaxCapacity)
	assert.Equal(t, 500, cfg.BulkMaxItems)
	assert.Equal(t, "*", cfg.CORSAllowed)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/leads")
	t.Setenv("CAPACITY_READ_POLICY", "strict")
	t.Setenv("DEFAULT_MAX_CAPACITY", "10")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "strict", cfg.CapacityReadPolicy)
	assert.Equal(t, 10, cfg.DefaultMaxCapacity)
}

func TestValidate(t *testing.T) {
	base := config.Config{
		StoreDriver:        config.DriverMemory,
		LogLevel:           "info",
		CapacityReadPolicy: "lenient",
		DefaultMaxCapacity: 25,
		BulkMaxItems:       500,
	}

	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{"valid", func(*config.Config) {}, ""},
		{"postgres without url", func(c *config.Config) { c.StoreDriver = config.DriverPostgres }, "DATABASE_URL"},
		{"unknown driver", func(c *config.Config) { c.StoreDriver = "sqlite" }, "STORE_DRIVER"},
		{"unknown policy", func(c *config.Config) { c.CapacityReadPolicy = "loose" }, "CAPACITY_READ_POLICY"},
		{"negative default", func(c *config.Config) { c.DefaultMaxCapacity = -1 }, "DEFAULT_MAX_CAPACITY"},
		{"zero default", func(c *config.Config) { c.DefaultMaxCapacity = 0 }, "DEFAULT_MAX_CAPACITY"},
		{"zero bulk limit", func(c *config.Config) { c.BulkMaxItems = 0 }, "BULK_MAX_ITEMS"},
		{"bad log level", func(c *config.Config) { c.LogLevel = "loud" }, "LOG_LEVEL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseLevel(t *testing.T) {
	lvl, err := config.ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)

	lvl, err = config.ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, lvl)
}
