// Package config loads and validates sailbench configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the defaults that CLI flags override.
type Config struct {
	// Storage settings.
	Store      string // "memory" or "sqlite"
	DBPath     string
	ReportsDir string

	// Evaluation settings.
	Workers       int
	ActionTimeout time.Duration // 0 disables the per-action bound.
	MaxHorizon    int

	// Logging settings.
	LogLevel  string
	LogFormat string // "text" or "json"

	// OTEL settings.
	OTELEndpoint string
	ServiceName  string
	OTELInsecure bool
}

// Load reads configuration from environment variables with defaults. The
// storeDefault argument is the backend compiled into this binary.
func Load(storeDefault string) (Config, error) {
	var errs []error
	cfg := Config{
		Store:        envStr("SAILBENCH_STORE", storeDefault),
		DBPath:       envStr("SAILBENCH_DB_PATH", "sailbench.db"),
		ReportsDir:   envStr("SAILBENCH_REPORTS_DIR", "reports"),
		LogLevel:     envStr("SAILBENCH_LOG_LEVEL", "info"),
		LogFormat:    envStr("SAILBENCH_LOG_FORMAT", "text"),
		OTELEndpoint: envStr("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ServiceName:  envStr("OTEL_SERVICE_NAME", "sailbench"),
	}

	var err error
	if cfg.Workers, err = envInt("SAILBENCH_WORKERS", 1); err != nil {
		errs = append(errs, err)
	}
	if cfg.MaxHorizon, err = envInt("SAILBENCH_MAX_HORIZON", 200); err != nil {
		errs = append(errs, err)
	}
	if cfg.ActionTimeout, err = envDuration("SAILBENCH_ACTION_TIMEOUT", 0); err != nil {
		errs = append(errs, err)
	}
	if cfg.OTELInsecure, err = envBool("SAILBENCH_OTEL_INSECURE", false); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return Config{}, fmt.Errorf("config: %w", errors.Join(errs...))
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	switch c.Store {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("config: SAILBENCH_STORE must be memory or sqlite, got %q", c.Store)
	}
	if c.Store == "sqlite" && c.DBPath == "" {
		return fmt.Errorf("config: SAILBENCH_DB_PATH is required for the sqlite store")
	}
	if c.ReportsDir == "" {
		return fmt.Errorf("config: SAILBENCH_REPORTS_DIR is required")
	}
	if c.Workers < 1 {
		return fmt.Errorf("config: SAILBENCH_WORKERS must be positive")
	}
	if c.MaxHorizon < 1 {
		return fmt.Errorf("config: SAILBENCH_MAX_HORIZON must be positive")
	}
	if c.ActionTimeout < 0 {
		return fmt.Errorf("config: SAILBENCH_ACTION_TIMEOUT must not be negative")
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("config: SAILBENCH_LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: SAILBENCH_LOG_LEVEL: %w", err)
	}
	return nil
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid integer", key, v)
	}
	return n, nil
}

func envDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid duration", key, v)
	}
	return d, nil
}

func envBool(key string, defaultVal bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s=%q is not a valid boolean", key, v)
	}
	return b, nil
}
