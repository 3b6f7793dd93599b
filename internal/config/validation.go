// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate checks the merged configuration and reports every problem at once.
func Validate(cfg AppConfig) error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if strings.TrimSpace(cfg.Server.ListenAddr) == "" {
		add("server.listenAddr: must not be empty")
	}
	if cfg.Metrics.Enabled && strings.TrimSpace(cfg.Metrics.ListenAddr) == "" {
		add("metrics.listenAddr: required when metrics are enabled")
	}

	switch cfg.Store.Driver {
	case StoreDriverSQLite:
		if cfg.Store.SQLitePath == "" {
			add("store.sqlitePath: required for the sqlite driver")
		}
	case StoreDriverPostgres:
		if cfg.Store.DSN == "" {
			add("store.dsn: required for the postgres driver")
		}
	default:
		add("store.driver: unsupported value %q (supported: sqlite, postgres)", cfg.Store.Driver)
	}

	switch cfg.Storage.Backend {
	case StorageBackendSupabase:
		if cfg.Storage.BaseURL == "" {
			add("storage.baseURL: required for the supabase backend")
		} else if u, err := url.Parse(cfg.Storage.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			add("storage.baseURL: invalid URL %q", cfg.Storage.BaseURL)
		}
		if cfg.Storage.ServiceKey == "" {
			add("storage.serviceKey: required for the supabase backend")
		}
	case StorageBackendS3:
		if cfg.Storage.S3Region == "" {
			add("storage.s3Region: required for the s3 backend")
		}
	default:
		add("storage.backend: unsupported value %q (supported: supabase, s3)", cfg.Storage.Backend)
	}
	if cfg.Storage.DefaultBucket == "" {
		add("storage.defaultBucket: must not be empty")
	}

	if cfg.Signing.StreamTTL < 1e9 {
		add("signing.streamTTL: must be at least 1s")
	}
	if cfg.Signing.IssueTTL < 1e9 {
		add("signing.issueTTL: must be at least 1s")
	}
	if cfg.Signing.Attempts < 1 || cfg.Signing.Attempts > 2 {
		add("signing.attempts: must be 1 or 2 (at most one caller-level retry)")
	}

	if cfg.Proxy.ChunkSize < 1024 {
		add("proxy.chunkSize: must be at least 1024 bytes")
	}

	if cfg.RateLimit.Enabled && cfg.RateLimit.RequestsPerMinute <= 0 {
		add("rateLimit.requestsPerMinute: must be positive when rate limiting is enabled")
	}

	if cfg.Tracing.Enabled {
		switch cfg.Tracing.Exporter {
		case "grpc", "http":
		default:
			add("tracing.exporter: unsupported value %q (supported: grpc, http)", cfg.Tracing.Exporter)
		}
	}

	return errors.Join(errs...)
}
