// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ManuGH/lessonstream/internal/api"
	"github.com/ManuGH/lessonstream/internal/api/middleware"
	"github.com/ManuGH/lessonstream/internal/auth"
	"github.com/ManuGH/lessonstream/internal/authoring"
	"github.com/ManuGH/lessonstream/internal/catalog"
	"github.com/ManuGH/lessonstream/internal/config"
	"github.com/ManuGH/lessonstream/internal/health"
	"github.com/ManuGH/lessonstream/internal/log"
	"github.com/ManuGH/lessonstream/internal/persistence/migrations"
	"github.com/ManuGH/lessonstream/internal/persistence/postgres"
	"github.com/ManuGH/lessonstream/internal/persistence/sqlite"
	"github.com/ManuGH/lessonstream/internal/platform/httpx"
	"github.com/ManuGH/lessonstream/internal/proxy"
	"github.com/ManuGH/lessonstream/internal/resolver"
	"github.com/ManuGH/lessonstream/internal/signing"
	"github.com/ManuGH/lessonstream/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const serviceName = "lessonstream"

// OpenDB opens the configured reference store without migrating it.
func OpenDB(cfg config.StoreConfig) (*sql.DB, error) {
	switch cfg.Driver {
	case config.StoreDriverSQLite:
		return sqlite.Open(cfg.SQLitePath, sqlite.Config{
			BusyTimeout:  cfg.BusyTimeout,
			MaxOpenConns: cfg.MaxOpenConns,
		})
	case config.StoreDriverPostgres:
		return postgres.Open(cfg.DSN, postgres.Config{MaxOpenConns: cfg.MaxOpenConns})
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
}

// OpenStore opens the reference store and, when configured, brings its
// schema up to date.
func OpenStore(ctx context.Context, cfg config.StoreConfig) (*catalog.Store, error) {
	db, err := OpenDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if cfg.AutoMigrate {
		if _, err := migrations.Up(ctx, db, cfg.Driver); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return catalog.NewStore(db, catalog.DialectFor(cfg.Driver)), nil
}

// NewSigner builds the signer for the configured storage backend.
func NewSigner(ctx context.Context, cfg config.StorageConfig, signTimeout time.Duration) (signing.Signer, error) {
	switch cfg.Backend {
	case config.StorageBackendSupabase:
		return signing.NewSupabaseSigner(cfg.BaseURL, cfg.ServiceKey, httpx.NewClient(signTimeout))
	case config.StorageBackendS3:
		return signing.NewS3Signer(ctx, signing.S3Options{
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			PathStyle: cfg.S3PathStyle,
			Timeout:   signTimeout,
		})
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Backend)
	}
}

// NewIssuer builds the signer and wraps it with the configured retry and breaker.
func NewIssuer(ctx context.Context, cfg config.AppConfig) (*signing.Issuer, error) {
	signer, err := NewSigner(ctx, cfg.Storage, cfg.Signing.Timeout)
	if err != nil {
		return nil, err
	}
	return signing.NewIssuer(signer, signing.IssuerOptions{
		Attempts:         cfg.Signing.Attempts,
		Timeout:          cfg.Signing.Timeout,
		BreakerThreshold: cfg.Signing.BreakerThreshold,
		BreakerReset:     cfg.Signing.BreakerReset,
	}), nil
}

// App is the composed service.
type App struct {
	Config   config.AppConfig
	Store    *catalog.Store
	Resolver *resolver.Resolver
	Issuer   *signing.Issuer
	Manager  *Manager

	tracing *telemetry.Provider
}

// Bootstrap composes every component from cfg. The caller owns the returned
// App and must Run it, or Close it if it never runs.
func Bootstrap(ctx context.Context, cfg config.AppConfig) (app *App, err error) {
	logger := log.WithComponent("daemon")

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Tracing.Enabled,
		ServiceName:    serviceName,
		ServiceVersion: cfg.Version,
		Environment:    cfg.Tracing.Environment,
		ExporterType:   cfg.Tracing.Exporter,
		Endpoint:       cfg.Tracing.Endpoint,
		SamplingRate:   cfg.Tracing.SamplingRate,
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	store, err := OpenStore(ctx, cfg.Store)
	if err != nil {
		return nil, errors.Join(err, tp.Shutdown(ctx))
	}
	defer func() {
		if err != nil {
			_ = store.Close()
			_ = tp.Shutdown(ctx)
		}
	}()

	issuer, err := NewIssuer(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("signing: %w", err)
	}

	rangeProxy, err := proxy.New(httpx.NewUpstreamClient(httpx.UpstreamOptions{
		DialTimeout:           cfg.Proxy.DialTimeout,
		ResponseHeaderTimeout: cfg.Proxy.ResponseHeaderTimeout,
		MaxIdleConnsPerHost:   cfg.Proxy.MaxIdleConnsPerHost,
	}), cfg.Proxy.ChunkSize)
	if err != nil {
		return nil, err
	}

	res := resolver.New(store, cfg.Storage.DefaultBucket)

	probes := health.NewManager(cfg.Version)
	probes.RegisterChecker(health.NewStoreChecker(store))
	probes.RegisterChecker(health.NewBreakerChecker("signing", issuer.BreakerState))

	if cfg.Auth.APIToken == "" && cfg.Auth.JWTSecret == "" {
		logger.Warn().Msg("no API token or JWT secret configured; authenticated endpoints will reject every request")
	}

	opts := api.Options{
		StreamTTL: cfg.Signing.StreamTTL,
		IssueTTL:  cfg.Signing.IssueTTL,
		Stack: middleware.StackConfig{
			EnableMetrics: cfg.Metrics.Enabled,
			EnableLogging: true,
		},
	}
	if cfg.Tracing.Enabled {
		opts.Stack.TracingService = serviceName
	}
	if cfg.RateLimit.Enabled {
		opts.RateLimit = &middleware.RateLimitConfig{
			RequestLimit: cfg.RateLimit.RequestsPerMinute,
			WindowSize:   time.Minute,
			Whitelist:    cfg.RateLimit.Whitelist,
		}
	}

	srv, err := api.New(api.Deps{
		Resolver:  res,
		Issuer:    issuer,
		Proxy:     rangeProxy,
		Authoring: authoring.NewService(store, cfg.Storage.DefaultBucket),
		Auth:      auth.NewAuthenticator(cfg.Auth.APIToken, cfg.Auth.JWTSecret, cfg.Auth.AllowQuery),
		Health:    probes,
	}, opts)
	if err != nil {
		return nil, err
	}

	deps := Deps{
		Logger:     log.WithComponent("daemon"),
		APIHandler: srv.Handler(),
	}
	if cfg.Metrics.Enabled {
		deps.MetricsHandler = metricsMux()
		deps.MetricsAddr = cfg.Metrics.ListenAddr
	}
	mgr, err := NewManager(cfg.Server, deps)
	if err != nil {
		return nil, err
	}
	mgr.RegisterShutdownHook("store", func(context.Context) error { return store.Close() })
	mgr.RegisterShutdownHook("telemetry", tp.Shutdown)

	logger.Info().
		Str("store", cfg.Store.Driver).
		Str("storage", issuer.Backend()).
		Str("default_bucket", res.DefaultBucket()).
		Bool("tracing", cfg.Tracing.Enabled).
		Msg("service composed")

	return &App{Config: cfg, Store: store, Resolver: res, Issuer: issuer, Manager: mgr, tracing: tp}, nil
}

func metricsMux() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// Run serves until ctx is cancelled. The store and tracer are released on return.
func (a *App) Run(ctx context.Context) error {
	return a.Manager.Start(ctx)
}

// Close releases an App that was never run.
func (a *App) Close(ctx context.Context) error {
	return errors.Join(a.Store.Close(), a.tracing.Shutdown(ctx))
}
