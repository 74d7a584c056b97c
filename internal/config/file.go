package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML shape of CONFIG_FILE. Keys are the lower-cased
// environment variable names.
type fileConfig struct {
	Port               int    `yaml:"port"`
	MasterSecret       string `yaml:"master_secret"`
	GinMode            string `yaml:"gin_mode"`
	TLSCertFile        string `yaml:"tls_cert_file"`
	TLSKeyFile         string `yaml:"tls_key_file"`
	TokenExpirySeconds int    `yaml:"token_expiry_seconds"`
	DatabasePath       string `yaml:"database_path"`
	FederatedSecret    string `yaml:"federated_secret"`
	AuthLatencyMinMS   *int   `yaml:"auth_latency_min_ms"`
	AuthLatencyMaxMS   *int   `yaml:"auth_latency_max_ms"`
	ScanLatencyMS      *int   `yaml:"scan_latency_ms"`
	BcryptCost         int    `yaml:"bcrypt_cost"`
	LogLevel           string `yaml:"log_level"`
	LogFormat          string `yaml:"log_format"`
}

func loadFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return fc.values(), nil
}

// values flattens the file into environment variable form. Unset fields are
// left out.
func (fc fileConfig) values() map[string]string {
	out := make(map[string]string)
	setString := func(key, v string) {
		if v != "" {
			out[key] = v
		}
	}
	setInt := func(key string, v int) {
		if v != 0 {
			out[key] = strconv.Itoa(v)
		}
	}
	setOptional := func(key string, v *int) {
		if v != nil {
			out[key] = strconv.Itoa(*v)
		}
	}

	setInt("PORT", fc.Port)
	setString("MASTER_SECRET", fc.MasterSecret)
	setString("GIN_MODE", fc.GinMode)
	setString("TLS_CERT_FILE", fc.TLSCertFile)
	setString("TLS_KEY_FILE", fc.TLSKeyFile)
	setInt("TOKEN_EXPIRY_SECONDS", fc.TokenExpirySeconds)
	setString("DATABASE_PATH", fc.DatabasePath)
	setString("FEDERATED_SECRET", fc.FederatedSecret)
	setOptional("AUTH_LATENCY_MIN_MS", fc.AuthLatencyMinMS)
	setOptional("AUTH_LATENCY_MAX_MS", fc.AuthLatencyMaxMS)
	setOptional("SCAN_LATENCY_MS", fc.ScanLatencyMS)
	setInt("BCRYPT_COST", fc.BcryptCost)
	setString("LOG_LEVEL", fc.LogLevel)
	setString("LOG_FORMAT", fc.LogFormat)
	return out
}

type layeredEnv struct {
	env  Env
	file map[string]string
}

func (l layeredEnv) Getenv(key string) string {
	if v := l.env.Getenv(key); v != "" {
		return v
	}
	return l.file[key]
}
