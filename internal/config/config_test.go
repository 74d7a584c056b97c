package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type mapEnv map[string]string

func (m mapEnv) Getenv(key string) string { return m[key] }

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadConfigFromEnv(mapEnv{"MASTER_SECRET": "x"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Port != 3000 {
		t.Fatalf("expected default port 3000, got %d", cfg.Port)
	}
	if cfg.GinMode != "release" {
		t.Fatalf("expected default gin mode release, got %q", cfg.GinMode)
	}
	if cfg.TokenExpiry != 7*24*time.Hour {
		t.Fatalf("expected 7 day token expiry, got %s", cfg.TokenExpiry)
	}
	if cfg.AuthLatencyMin != 800*time.Millisecond || cfg.AuthLatencyMax != 1200*time.Millisecond {
		t.Fatalf("unexpected auth latency %s-%s", cfg.AuthLatencyMin, cfg.AuthLatencyMax)
	}
	if cfg.ScanLatency != 2*time.Second {
		t.Fatalf("expected 2s scan latency, got %s", cfg.ScanLatency)
	}
	if cfg.DatabasePath != "" {
		t.Fatalf("expected in-memory default, got %q", cfg.DatabasePath)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "text" {
		t.Fatalf("unexpected log defaults %q/%q", cfg.LogLevel, cfg.LogFormat)
	}
}

func TestLoadConfigFromEnv_MissingSecret(t *testing.T) {
	_, err := LoadConfigFromEnv(mapEnv{})
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestLoadConfigFromEnv_PortOverride(t *testing.T) {
	cfg, err := LoadConfigFromEnv(mapEnv{"MASTER_SECRET": "x", "PORT": "1234"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Port != 1234 {
		t.Fatalf("expected port 1234, got %d", cfg.Port)
	}
}

func TestLoadConfigFromEnv_ZeroLatency(t *testing.T) {
	cfg, err := LoadConfigFromEnv(mapEnv{
		"MASTER_SECRET":       "x",
		"AUTH_LATENCY_MIN_MS": "0",
		"AUTH_LATENCY_MAX_MS": "0",
		"SCAN_LATENCY_MS":     "0",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.AuthLatencyMax != 0 || cfg.ScanLatency != 0 {
		t.Fatalf("expected zero latency, got %s / %s", cfg.AuthLatencyMax, cfg.ScanLatency)
	}
}

func TestLoadConfigFromEnv_Invalid(t *testing.T) {
	cases := map[string]string{
		"PORT":                 "99999",
		"TOKEN_EXPIRY_SECONDS": "-1",
		"AUTH_LATENCY_MIN_MS":  "5000",
		"SCAN_LATENCY_MS":      "soon",
		"BCRYPT_COST":          "2",
		"LOG_LEVEL":            "loud",
		"LOG_FORMAT":           "xml",
	}
	for key, value := range cases {
		_, err := LoadConfigFromEnv(mapEnv{"MASTER_SECRET": "x", key: value})
		if err == nil {
			t.Fatalf("%s=%s: expected error", key, value)
		}
	}
}

func TestLoadConfigFromEnv_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
port: 8080
master_secret: from-file
database_path: /var/lib/deepfake-guard/data.db
scan_latency_ms: 0
log_format: json
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := LoadConfigFromEnv(mapEnv{"CONFIG_FILE": path, "PORT": "9090"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Port != 9090 {
		t.Fatalf("expected env to override file port, got %d", cfg.Port)
	}
	if cfg.MasterSecret != "from-file" {
		t.Fatalf("expected secret from file, got %q", cfg.MasterSecret)
	}
	if cfg.DatabasePath != "/var/lib/deepfake-guard/data.db" {
		t.Fatalf("unexpected database path %q", cfg.DatabasePath)
	}
	if cfg.ScanLatency != 0 {
		t.Fatalf("expected explicit zero scan latency, got %s", cfg.ScanLatency)
	}
	if cfg.AuthLatencyMin != 800*time.Millisecond {
		t.Fatalf("expected default auth latency, got %s", cfg.AuthLatencyMin)
	}
	if cfg.LogFormat != "json" {
		t.Fatalf("expected json log format, got %q", cfg.LogFormat)
	}
}

func TestLoadConfigFromEnv_BadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("port: [not, a, port"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadConfigFromEnv(mapEnv{"CONFIG_FILE": path, "MASTER_SECRET": "x"}); err == nil {
		t.Fatalf("expected parse error")
	}
	if _, err := LoadConfigFromEnv(mapEnv{"CONFIG_FILE": path + ".missing", "MASTER_SECRET": "x"}); err == nil {
		t.Fatalf("expected read error")
	}
}
