package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func lookupFrom(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(nil, lookupFrom(nil))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Port != defaultPort {
		t.Fatalf("expected default port %s, got %s", defaultPort, cfg.Port)
	}
	if cfg.ShutdownGracePeriod != 10*time.Second {
		t.Fatalf("unexpected shutdown grace period: %s", cfg.ShutdownGracePeriod)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("unexpected log level: %s", cfg.LogLevel)
	}
	if cfg.ProbeTimeout != defaultProbeTimeout {
		t.Fatalf("unexpected probe timeout: %s", cfg.ProbeTimeout)
	}
	if !cfg.EnableRequestLogging {
		t.Fatalf("expected request logging enabled by default")
	}
}

func TestLoadNilLookupReadsProcessEnvironment(t *testing.T) {
	t.Setenv("PORT", "7070")

	cfg, err := Load(nil, nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Port != "7070" {
		t.Fatalf("expected port from process environment, got %s", cfg.Port)
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	cfg, err := Load(nil, lookupFrom(map[string]string{
		"PORT":             " 9000 ",
		"RATE_LIMIT_RPS":   "5",
		"RATE_LIMIT_BURST": "7",
		"LOG_LEVEL":        "debug",
		"PROBE_TIMEOUT":    "3s",
	}))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Port != "9000" {
		t.Fatalf("expected overridden port, got %s", cfg.Port)
	}
	if cfg.RateLimitRPS != 5 || cfg.RateLimitBurst != 7 {
		t.Fatalf("unexpected rate limit: %v/%d", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("unexpected log level: %s", cfg.LogLevel)
	}
	if cfg.ProbeTimeout != 3*time.Second {
		t.Fatalf("unexpected probe timeout: %s", cfg.ProbeTimeout)
	}
}

func TestLoadIgnoresUnparseableEnvironment(t *testing.T) {
	cfg, err := Load(nil, lookupFrom(map[string]string{
		"RATE_LIMIT_RPS":   "fast",
		"RATE_LIMIT_BURST": "-3",
		"PROBE_TIMEOUT":    "soon",
	}))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.RateLimitRPS != defaultRateLimitRPS || cfg.RateLimitBurst != defaultRateLimitBurst {
		t.Fatalf("expected defaults, got %v/%d", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
	if cfg.ProbeTimeout != defaultProbeTimeout {
		t.Fatalf("expected default probe timeout, got %s", cfg.ProbeTimeout)
	}
}

func TestLoadPrecedence(t *testing.T) {
	path := writeYAML(t, `
port: "8181"
log_level: warn
probe_timeout: 2s
write_timeout: 1m
enable_request_logging: false
rate_limit:
  rps: 0
  burst: 3
`)

	port := "9191"
	cfg, err := Load(&CLIOverrides{ConfigFile: path, Port: &port}, lookupFrom(map[string]string{
		"PORT":      "7171",
		"LOG_LEVEL": "debug",
	}))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Port != "9191" {
		t.Fatalf("expected CLI port to win, got %s", cfg.Port)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("expected YAML log level to beat environment, got %s", cfg.LogLevel)
	}
	if cfg.ProbeTimeout != 2*time.Second || cfg.WriteTimeout != time.Minute {
		t.Fatalf("unexpected durations: probe=%s write=%s", cfg.ProbeTimeout, cfg.WriteTimeout)
	}
	if cfg.EnableRequestLogging {
		t.Fatalf("expected request logging disabled by YAML")
	}
	if cfg.RateLimitRPS != 0 || cfg.RateLimitBurst != 3 {
		t.Fatalf("unexpected rate limit: %v/%d", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
	if cfg.IdleTimeout != 60*time.Second {
		t.Fatalf("expected unspecified idle timeout to keep default, got %s", cfg.IdleTimeout)
	}
}

func TestLoadYAMLErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(&CLIOverrides{ConfigFile: filepath.Join(t.TempDir(), "nope.yaml")}, lookupFrom(nil))
		if err == nil {
			t.Fatalf("expected error for missing file")
		}
	})

	t.Run("bad duration", func(t *testing.T) {
		path := writeYAML(t, "idle_timeout: forever\n")
		if _, err := Load(&CLIOverrides{ConfigFile: path}, lookupFrom(nil)); err == nil {
			t.Fatalf("expected error for bad duration")
		}
	})

	t.Run("negative rate limit", func(t *testing.T) {
		path := writeYAML(t, "rate_limit:\n  rps: -1\n")
		if _, err := Load(&CLIOverrides{ConfigFile: path}, lookupFrom(nil)); err == nil {
			t.Fatalf("expected validation error")
		}
	})
}

func TestLoadRejectsUnknownLogLevel(t *testing.T) {
	level := "chatty"
	if _, err := Load(&CLIOverrides{LogLevel: &level}, lookupFrom(nil)); err == nil {
		t.Fatalf("expected error for unknown log level")
	}
}

func TestCLIOverridesIgnoreUnsetValues(t *testing.T) {
	rps := -1.0
	burst := -1
	timeout := time.Duration(0)
	cfg, err := Load(&CLIOverrides{RateLimitRPS: &rps, RateLimitBurst: &burst, ProbeTimeout: &timeout}, lookupFrom(nil))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.RateLimitRPS != defaultRateLimitRPS || cfg.RateLimitBurst != defaultRateLimitBurst {
		t.Fatalf("expected defaults, got %v/%d", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
	if cfg.ProbeTimeout != defaultProbeTimeout {
		t.Fatalf("expected default probe timeout, got %s", cfg.ProbeTimeout)
	}
}

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "deployconf.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
