// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "time"

// AppConfig is the fully merged runtime configuration.
type AppConfig struct {
	Version string `yaml:"-"`

	Server    ServerConfig    `yaml:"server"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Log       LogConfig       `yaml:"log"`
	Store     StoreConfig     `yaml:"store"`
	Storage   StorageConfig   `yaml:"storage"`
	Signing   SigningConfig   `yaml:"signing"`
	Proxy     ProxyConfig     `yaml:"proxy"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
	Tracing   TracingConfig   `yaml:"tracing"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	// ListenAddr is the address to listen on (e.g., ":8080")
	ListenAddr string `yaml:"listenAddr"`

	// ReadTimeout is the maximum duration for reading the entire request
	ReadTimeout time.Duration `yaml:"readTimeout"`

	// WriteTimeout bounds response writes. Zero disables it, which video
	// streaming needs; a non-zero value cuts long playback sessions.
	WriteTimeout time.Duration `yaml:"writeTimeout"`

	// IdleTimeout is the maximum amount of time to wait for the next request
	IdleTimeout time.Duration `yaml:"idleTimeout"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`

	// MaxHeaderBytes limits the size of request headers
	MaxHeaderBytes int `yaml:"maxHeaderBytes"`
}

type MetricsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listenAddr"`
}

type LogConfig struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
	File    string `yaml:"file"`
}

// Store drivers.
const (
	StoreDriverSQLite   = "sqlite"
	StoreDriverPostgres = "postgres"
)

// StoreConfig selects the reference store backing topics, courses and media records.
type StoreConfig struct {
	Driver       string        `yaml:"driver"`
	DSN          string        `yaml:"dsn"`
	SQLitePath   string        `yaml:"sqlitePath"`
	BusyTimeout  time.Duration `yaml:"busyTimeout"`
	MaxOpenConns int           `yaml:"maxOpenConns"`
	AutoMigrate  bool          `yaml:"autoMigrate"`
}

// Storage backends.
const (
	StorageBackendSupabase = "supabase"
	StorageBackendS3       = "s3"
)

// StorageConfig configures the object storage service that signs URLs.
type StorageConfig struct {
	Backend       string `yaml:"backend"`
	BaseURL       string `yaml:"baseURL"`
	ServiceKey    string `yaml:"serviceKey"`
	DefaultBucket string `yaml:"defaultBucket"`

	S3Region    string `yaml:"s3Region"`
	S3Endpoint  string `yaml:"s3Endpoint"`
	S3PathStyle bool   `yaml:"s3PathStyle"`
}

// SigningConfig configures signed URL issuance.
type SigningConfig struct {
	// StreamTTL is used for URLs consumed immediately by the proxy.
	StreamTTL time.Duration `yaml:"streamTTL"`
	// IssueTTL is used for URLs handed to clients.
	IssueTTL time.Duration `yaml:"issueTTL"`
	// Attempts is the number of signing attempts per request (1 = no retry).
	Attempts int `yaml:"attempts"`
	// Timeout bounds a single signing call.
	Timeout          time.Duration `yaml:"timeout"`
	BreakerThreshold int           `yaml:"breakerThreshold"`
	BreakerReset     time.Duration `yaml:"breakerReset"`
}

// ProxyConfig configures the upstream fetch of the range proxy.
type ProxyConfig struct {
	DialTimeout           time.Duration `yaml:"dialTimeout"`
	ResponseHeaderTimeout time.Duration `yaml:"responseHeaderTimeout"`
	ChunkSize             int           `yaml:"chunkSize"`
	MaxIdleConnsPerHost   int           `yaml:"maxIdleConnsPerHost"`
}

type AuthConfig struct {
	APIToken   string `yaml:"apiToken"`
	JWTSecret  string `yaml:"jwtSecret"`
	AllowQuery bool   `yaml:"allowQuery"`
}

type RateLimitConfig struct {
	Enabled           bool     `yaml:"enabled"`
	RequestsPerMinute int      `yaml:"requestsPerMinute"`
	Whitelist         []string `yaml:"whitelist"`
}

type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"samplingRate"`
	Environment  string  `yaml:"environment"`
}

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		Server: ServerConfig{
			ListenAddr:      ":8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    0,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			MaxHeaderBytes:  1 << 20,
		},
		Metrics: MetricsConfig{
			Enabled:    true,
			ListenAddr: ":9090",
		},
		Log: LogConfig{
			Level:   "info",
			Service: "lessonstream",
		},
		Store: StoreConfig{
			Driver:       StoreDriverSQLite,
			SQLitePath:   "lessonstream.db",
			BusyTimeout:  5 * time.Second,
			MaxOpenConns: 25,
			AutoMigrate:  true,
		},
		Storage: StorageConfig{
			Backend:       StorageBackendSupabase,
			DefaultBucket: "videos",
		},
		Signing: SigningConfig{
			StreamTTL:        60 * time.Second,
			IssueTTL:         3600 * time.Second,
			Attempts:         1,
			Timeout:          10 * time.Second,
			BreakerThreshold: 5,
			BreakerReset:     30 * time.Second,
		},
		Proxy: ProxyConfig{
			DialTimeout:           5 * time.Second,
			ResponseHeaderTimeout: 15 * time.Second,
			ChunkSize:             64 * 1024,
			MaxIdleConnsPerHost:   16,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 600,
		},
		Tracing: TracingConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
			Environment:  "production",
		},
	}
}
