// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{} // Mechanical tracking of consumed keys
}

// NewLoader creates a new configuration loader
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

// Wrapper methods for mechanical connection tracking

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[EnvPrefix+key] = struct{}{}
	return ParseString(EnvPrefix+key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[EnvPrefix+key] = struct{}{}
	return ParseBool(EnvPrefix+key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[EnvPrefix+key] = struct{}{}
	return ParseInt(EnvPrefix+key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[EnvPrefix+key] = struct{}{}
	return ParseDuration(EnvPrefix+key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[EnvPrefix+key] = struct{}{}
	return ParseFloat(EnvPrefix+key, defaultVal)
}

func (l *Loader) envList(key string, defaultVal []string) []string {
	l.ConsumedEnvKeys[EnvPrefix+key] = struct{}{}
	return ParseList(EnvPrefix+key, defaultVal)
}

// Load loads configuration with precedence: ENV > File > Defaults.
// The merged result is validated before it is returned.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	l.mergeEnvConfig(&cfg)
	cfg.Version = l.version

	if cfg.Store.Driver == StoreDriverSQLite && cfg.Store.SQLitePath != "" {
		if abs, err := filepath.Abs(cfg.Store.SQLitePath); err == nil {
			cfg.Store.SQLitePath = abs
		}
	}

	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// loadFile decodes a YAML file on top of dst. Unknown keys are rejected.
func (l *Loader) loadFile(path string, dst *AppConfig) error {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return nil
}

func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	cfg.Server.ListenAddr = l.envString("LISTEN", cfg.Server.ListenAddr)
	cfg.Server.ReadTimeout = l.envDuration("READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = l.envDuration("WRITE_TIMEOUT", cfg.Server.WriteTimeout)
	cfg.Server.IdleTimeout = l.envDuration("IDLE_TIMEOUT", cfg.Server.IdleTimeout)
	cfg.Server.ShutdownTimeout = l.envDuration("SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout)

	cfg.Metrics.Enabled = l.envBool("METRICS_ENABLED", cfg.Metrics.Enabled)
	cfg.Metrics.ListenAddr = l.envString("METRICS_LISTEN", cfg.Metrics.ListenAddr)

	cfg.Log.Level = l.envString("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Service = l.envString("LOG_SERVICE", cfg.Log.Service)
	cfg.Log.File = l.envString("LOG_FILE", cfg.Log.File)

	cfg.Store.Driver = strings.ToLower(l.envString("STORE_DRIVER", cfg.Store.Driver))
	cfg.Store.DSN = l.envString("STORE_DSN", cfg.Store.DSN)
	cfg.Store.SQLitePath = l.envString("SQLITE_PATH", cfg.Store.SQLitePath)
	cfg.Store.BusyTimeout = l.envDuration("SQLITE_BUSY_TIMEOUT", cfg.Store.BusyTimeout)
	cfg.Store.MaxOpenConns = l.envInt("STORE_MAX_OPEN_CONNS", cfg.Store.MaxOpenConns)
	cfg.Store.AutoMigrate = l.envBool("STORE_AUTO_MIGRATE", cfg.Store.AutoMigrate)

	cfg.Storage.Backend = strings.ToLower(l.envString("STORAGE_BACKEND", cfg.Storage.Backend))
	cfg.Storage.BaseURL = l.envString("STORAGE_URL", cfg.Storage.BaseURL)
	cfg.Storage.ServiceKey = l.envString("STORAGE_SERVICE_KEY", cfg.Storage.ServiceKey)
	cfg.Storage.DefaultBucket = l.envString("STORAGE_BUCKET", cfg.Storage.DefaultBucket)
	cfg.Storage.S3Region = l.envString("S3_REGION", cfg.Storage.S3Region)
	cfg.Storage.S3Endpoint = l.envString("S3_ENDPOINT", cfg.Storage.S3Endpoint)
	cfg.Storage.S3PathStyle = l.envBool("S3_PATH_STYLE", cfg.Storage.S3PathStyle)

	cfg.Signing.StreamTTL = l.envDuration("SIGN_STREAM_TTL", cfg.Signing.StreamTTL)
	cfg.Signing.IssueTTL = l.envDuration("SIGN_ISSUE_TTL", cfg.Signing.IssueTTL)
	cfg.Signing.Attempts = l.envInt("SIGN_ATTEMPTS", cfg.Signing.Attempts)
	cfg.Signing.Timeout = l.envDuration("SIGN_TIMEOUT", cfg.Signing.Timeout)
	cfg.Signing.BreakerThreshold = l.envInt("SIGN_BREAKER_THRESHOLD", cfg.Signing.BreakerThreshold)
	cfg.Signing.BreakerReset = l.envDuration("SIGN_BREAKER_RESET", cfg.Signing.BreakerReset)

	cfg.Proxy.DialTimeout = l.envDuration("PROXY_DIAL_TIMEOUT", cfg.Proxy.DialTimeout)
	cfg.Proxy.ResponseHeaderTimeout = l.envDuration("PROXY_RESPONSE_HEADER_TIMEOUT", cfg.Proxy.ResponseHeaderTimeout)
	cfg.Proxy.ChunkSize = l.envInt("PROXY_CHUNK_SIZE", cfg.Proxy.ChunkSize)
	cfg.Proxy.MaxIdleConnsPerHost = l.envInt("PROXY_MAX_IDLE_CONNS_PER_HOST", cfg.Proxy.MaxIdleConnsPerHost)

	cfg.Auth.APIToken = l.envString("API_TOKEN", cfg.Auth.APIToken)
	cfg.Auth.JWTSecret = l.envString("JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Auth.AllowQuery = l.envBool("AUTH_ALLOW_QUERY", cfg.Auth.AllowQuery)

	cfg.RateLimit.Enabled = l.envBool("RATELIMIT_ENABLED", cfg.RateLimit.Enabled)
	cfg.RateLimit.RequestsPerMinute = l.envInt("RATELIMIT_RPM", cfg.RateLimit.RequestsPerMinute)
	cfg.RateLimit.Whitelist = l.envList("RATELIMIT_WHITELIST", cfg.RateLimit.Whitelist)

	cfg.Tracing.Enabled = l.envBool("TRACING_ENABLED", cfg.Tracing.Enabled)
	cfg.Tracing.Exporter = l.envString("TRACING_EXPORTER", cfg.Tracing.Exporter)
	cfg.Tracing.Endpoint = l.envString("OTLP_ENDPOINT", cfg.Tracing.Endpoint)
	cfg.Tracing.SamplingRate = l.envFloat("TRACING_SAMPLING_RATE", cfg.Tracing.SamplingRate)
	cfg.Tracing.Environment = l.envString("ENVIRONMENT", cfg.Tracing.Environment)
}
