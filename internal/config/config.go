package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Env                string        `mapstructure:"ENV"`
	Port               string        `mapstructure:"PORT"`
	DatabaseURL        string        `mapstructure:"DATABASE_URL"`
	StoreDriver        string        `mapstructure:"STORE_DRIVER"`
	LogLevel           string        `mapstructure:"LOG_LEVEL"`
	CapacityReadPolicy string        `mapstructure:"CAPACITY_READ_POLICY"`
	DefaultMaxCapacity int           `mapstructure:"DEFAULT_MAX_CAPACITY"`
	BulkMaxItems       int           `mapstructure:"BULK_MAX_ITEMS"`
	CORSAllowed        string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	RequestTimeout     time.Duration `mapstructure:"REQUEST_TIMEOUT"`
}

// Load reads .env (when present) and the environment. Environment wins.
func Load() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("STORE_DRIVER", DriverPostgres)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CAPACITY_READ_POLICY", "lenient")
	v.SetDefault("DEFAULT_MAX_CAPACITY", 25)
	v.SetDefault("BULK_MAX_ITEMS", 500)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("REQUEST_TIMEOUT", "30s")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.StoreDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL not set")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("STORE_DRIVER: unknown driver %q", c.StoreDriver)
	}
	switch c.CapacityReadPolicy {
	case "strict", "lenient":
	default:
		return fmt.Errorf("CAPACITY_READ_POLICY: must be strict or lenient, got %q", c.CapacityReadPolicy)
	}
	if c.DefaultMaxCapacity <= 0 {
		return fmt.Errorf("DEFAULT_MAX_CAPACITY: must be positive")
	}
	if c.BulkMaxItems <= 0 {
		return fmt.Errorf("BULK_MAX_ITEMS: must be positive")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps LOG_LEVEL onto a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("LOG_LEVEL: unknown level %q", s)
}
