package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port         int
	MasterSecret string
	GinMode      string
	TLSCertFile  string
	TLSKeyFile   string
	TokenExpiry  time.Duration

	// DatabasePath selects the SQLite backend; empty keeps everything in memory.
	DatabasePath string
	// FederatedSecret verifies federated identity assertions. Empty accepts
	// them unverified.
	FederatedSecret string

	AuthLatencyMin time.Duration
	AuthLatencyMax time.Duration
	ScanLatency    time.Duration
	BcryptCost     int

	LogLevel  string
	LogFormat string
}

type Env interface {
	Getenv(key string) string
}

type osEnv struct{}

func (osEnv) Getenv(key string) string { return os.Getenv(key) }

func LoadConfig() (Config, error) {
	return LoadConfigFromEnv(osEnv{})
}

// LoadConfigFromEnv reads configuration from env. When CONFIG_FILE names a
// YAML file its values are used for any variable env leaves empty.
func LoadConfigFromEnv(env Env) (Config, error) {
	if path := env.Getenv("CONFIG_FILE"); path != "" {
		file, err := loadFile(path)
		if err != nil {
			return Config{}, err
		}
		env = layeredEnv{env: env, file: file}
	}

	cfg := Config{
		Port:           3000,
		GinMode:        "release",
		TokenExpiry:    7 * 24 * time.Hour,
		AuthLatencyMin: 800 * time.Millisecond,
		AuthLatencyMax: 1200 * time.Millisecond,
		ScanLatency:    2 * time.Second,
		LogLevel:       "info",
		LogFormat:      "text",
	}

	if raw := env.Getenv("PORT"); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil || port <= 0 || port > 65535 {
			return Config{}, fmt.Errorf("invalid PORT")
		}
		cfg.Port = port
	}

	cfg.MasterSecret = env.Getenv("MASTER_SECRET")
	if cfg.MasterSecret == "" {
		return Config{}, fmt.Errorf("MASTER_SECRET is required")
	}

	if raw := env.Getenv("GIN_MODE"); raw != "" {
		cfg.GinMode = raw
	}

	cfg.TLSCertFile = env.Getenv("TLS_CERT_FILE")
	cfg.TLSKeyFile = env.Getenv("TLS_KEY_FILE")

	if raw := env.Getenv("TOKEN_EXPIRY_SECONDS"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds <= 0 {
			return Config{}, fmt.Errorf("invalid TOKEN_EXPIRY_SECONDS")
		}
		cfg.TokenExpiry = time.Duration(seconds) * time.Second
	}

	cfg.DatabasePath = env.Getenv("DATABASE_PATH")
	cfg.FederatedSecret = env.Getenv("FEDERATED_SECRET")

	var err error
	if cfg.AuthLatencyMin, err = millis(env, "AUTH_LATENCY_MIN_MS", cfg.AuthLatencyMin); err != nil {
		return Config{}, err
	}
	if cfg.AuthLatencyMax, err = millis(env, "AUTH_LATENCY_MAX_MS", cfg.AuthLatencyMax); err != nil {
		return Config{}, err
	}
	if cfg.AuthLatencyMax < cfg.AuthLatencyMin {
		return Config{}, fmt.Errorf("AUTH_LATENCY_MAX_MS must not be below AUTH_LATENCY_MIN_MS")
	}
	if cfg.ScanLatency, err = millis(env, "SCAN_LATENCY_MS", cfg.ScanLatency); err != nil {
		return Config{}, err
	}

	if raw := env.Getenv("BCRYPT_COST"); raw != "" {
		cost, err := strconv.Atoi(raw)
		if err != nil || cost < 4 || cost > 31 {
			return Config{}, fmt.Errorf("invalid BCRYPT_COST")
		}
		cfg.BcryptCost = cost
	}

	if raw := env.Getenv("LOG_LEVEL"); raw != "" {
		switch level := strings.ToLower(raw); level {
		case "debug", "info", "warn", "error":
			cfg.LogLevel = level
		default:
			return Config{}, fmt.Errorf("invalid LOG_LEVEL")
		}
	}
	if raw := env.Getenv("LOG_FORMAT"); raw != "" {
		switch format := strings.ToLower(raw); format {
		case "text", "json":
			cfg.LogFormat = format
		default:
			return Config{}, fmt.Errorf("invalid LOG_FORMAT")
		}
	}

	return cfg, nil
}

func millis(env Env, key string, def time.Duration) (time.Duration, error) {
	raw := env.Getenv(key)
	if raw == "" {
		return def, nil
	}
	ms, err := strconv.Atoi(raw)
	if err != nil || ms < 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return time.Duration(ms) * time.Millisecond, nil
}
