package config

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestEnvIntInvalid(t *testing.T) {
	t.Setenv("TEST_INT_BAD", "abc")
	_, err := envInt("TEST_INT_BAD", 0)
	if err == nil {
		t.Fatal("expected error for non-integer value, got nil")
	}
	if got := err.Error(); got != `TEST_INT_BAD="abc" is not a valid integer` {
		t.Fatalf("unexpected error message: %s", got)
	}
}

func TestEnvHelpersFallback(t *testing.T) {
	v, err := envInt("TEST_INT_MISSING", 99)
	if err != nil || v != 99 {
		t.Fatalf("expected fallback 99, got %d err=%v", v, err)
	}
	d, err := envDuration("TEST_DURATION_MISSING", time.Second)
	if err != nil || d != time.Second {
		t.Fatalf("expected fallback 1s, got %s err=%v", d, err)
	}
	b, err := envBool("TEST_BOOL_MISSING", true)
	if err != nil || !b {
		t.Fatalf("expected fallback true, got %t err=%v", b, err)
	}
}

func TestEnvDurationAndBoolInvalid(t *testing.T) {
	t.Setenv("TEST_DURATION_BAD", "soon")
	if _, err := envDuration("TEST_DURATION_BAD", 0); err == nil || err.Error() != `TEST_DURATION_BAD="soon" is not a valid duration` {
		t.Fatalf("unexpected duration error: %v", err)
	}
	t.Setenv("TEST_BOOL_BAD", "maybe")
	if _, err := envBool("TEST_BOOL_BAD", false); err == nil || err.Error() != `TEST_BOOL_BAD="maybe" is not a valid boolean` {
		t.Fatalf("unexpected bool error: %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("memory")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store != "memory" || cfg.Workers != 1 || cfg.MaxHorizon != 200 || cfg.ActionTimeout != 0 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.ServiceName != "sailbench" || cfg.ReportsDir != "reports" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SAILBENCH_STORE", "sqlite")
	t.Setenv("SAILBENCH_DB_PATH", "/tmp/runs.db")
	t.Setenv("SAILBENCH_WORKERS", "4")
	t.Setenv("SAILBENCH_ACTION_TIMEOUT", "250ms")
	t.Setenv("SAILBENCH_MAX_HORIZON", "500")
	t.Setenv("SAILBENCH_OTEL_INSECURE", "true")
	cfg, err := Load("memory")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store != "sqlite" || cfg.DBPath != "/tmp/runs.db" || cfg.Workers != 4 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.ActionTimeout != 250*time.Millisecond || cfg.MaxHorizon != 500 || !cfg.OTELInsecure {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadReportsEveryBadVariable(t *testing.T) {
	t.Setenv("SAILBENCH_WORKERS", "many")
	t.Setenv("SAILBENCH_ACTION_TIMEOUT", "soon")
	_, err := Load("memory")
	if err == nil {
		t.Fatal("expected error")
	}
	for _, key := range []string{"SAILBENCH_WORKERS", "SAILBENCH_ACTION_TIMEOUT"} {
		if !strings.Contains(err.Error(), key) {
			t.Fatalf("error %q does not name %s", err, key)
		}
	}
}

func TestValidateRanges(t *testing.T) {
	base, err := Load("memory")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cases := map[string]func(*Config){
		"store":   func(c *Config) { c.Store = "postgres" },
		"workers": func(c *Config) { c.Workers = 0 },
		"horizon": func(c *Config) { c.MaxHorizon = 0 },
		"timeout": func(c *Config) { c.ActionTimeout = -time.Second },
		"format":  func(c *Config) { c.LogFormat = "xml" },
		"level":   func(c *Config) { c.LogLevel = "loud" },
		"db path": func(c *Config) { c.Store = "sqlite"; c.DBPath = "" },
		"reports": func(c *Config) { c.ReportsDir = "" },
	}
	for name, mutate := range cases {
		cfg := base
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := Config{LogLevel: "warn", LogFormat: "json"}
	logger := cfg.NewLogger(&buf, false)
	if logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("info should be disabled at warn level")
	}
	logger.Warn("wind shift", "scenario", "training_1")
	if !strings.HasPrefix(buf.String(), "{") || !strings.Contains(buf.String(), `"scenario":"training_1"`) {
		t.Fatalf("expected json log line, got %q", buf.String())
	}

	verbose := Config{LogLevel: "error"}.NewLogger(&buf, true)
	if !verbose.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("verbose logger should enable debug")
	}
}
