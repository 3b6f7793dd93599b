// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/ManuGH/lessonstream/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard).Level(zerolog.InfoLevel)
}

func testServerConfig() config.ServerConfig {
	return config.ServerConfig{
		ReadTimeout:     5 * time.Second,
		IdleTimeout:     5 * time.Second,
		ShutdownTimeout: 2 * time.Second,
	}
}

func localListener(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	return ln
}

func TestNewManager_ValidatesDeps(t *testing.T) {
	_, err := NewManager(testServerConfig(), Deps{Logger: testLogger()})
	assert.ErrorIs(t, err, ErrMissingAPIHandler)

	_, err = NewManager(testServerConfig(), Deps{APIHandler: http.NotFoundHandler(), Logger: zerolog.Nop()})
	assert.ErrorIs(t, err, ErrMissingLogger)
}

func TestManager_ShutdownBeforeStart(t *testing.T) {
	m, err := NewManager(testServerConfig(), Deps{Logger: testLogger(), APIHandler: http.NotFoundHandler()})
	require.NoError(t, err)
	assert.ErrorIs(t, m.Shutdown(context.Background()), ErrManagerNotStarted)
}

func TestManager_ServesUntilCancelled(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	apiLn := localListener(t)
	metricsLn := localListener(t)

	var (
		mu    sync.Mutex
		order []string
	)
	hook := func(name string) ShutdownHook {
		return func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return nil
		}
	}

	m, err := NewManager(testServerConfig(), Deps{
		Logger: testLogger(),
		APIHandler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("api"))
		}),
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("metrics"))
		}),
		APIListener:     apiLn,
		MetricsListener: metricsLn,
	})
	require.NoError(t, err)
	m.RegisterShutdownHook("first", hook("first"))
	m.RegisterShutdownHook("second", hook("second"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Start(ctx) }()

	client := &http.Client{Timeout: 2 * time.Second, Transport: &http.Transport{DisableKeepAlives: true}}
	for addr, want := range map[string]string{apiLn.Addr().String(): "api", metricsLn.Addr().String(): "metrics"} {
		resp, err := client.Get("http://" + addr + "/")
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		assert.Equal(t, want, string(body))
	}

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("manager did not stop")
	}

	assert.Equal(t, []string{"second", "first"}, order)
	assert.ErrorIs(t, m.Start(context.Background()), ErrManagerStarted)
}

func TestManager_HookFailureIsReported(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	m, err := NewManager(testServerConfig(), Deps{
		Logger:      testLogger(),
		APIHandler:  http.NotFoundHandler(),
		APIListener: localListener(t),
	})
	require.NoError(t, err)
	m.RegisterShutdownHook("store", func(context.Context) error { return errors.New("close failed") })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = m.Start(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hook store: close failed")
}

func TestManager_ListenFailure(t *testing.T) {
	taken := localListener(t)
	defer taken.Close()

	cfg := testServerConfig()
	cfg.ListenAddr = taken.Addr().String()
	m, err := NewManager(cfg, Deps{Logger: testLogger(), APIHandler: http.NotFoundHandler()})
	require.NoError(t, err)

	err = m.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API listener")
}
