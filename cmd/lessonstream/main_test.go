// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ManuGH/lessonstream/internal/auth"
	"github.com/ManuGH/lessonstream/internal/catalog"
	"github.com/ManuGH/lessonstream/internal/config"
	"github.com/ManuGH/lessonstream/internal/daemon"
	"github.com/ManuGH/lessonstream/internal/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "lessons.db")
	t.Setenv("LESSONSTREAM_SQLITE_PATH", dbPath)
	t.Setenv("LESSONSTREAM_STORAGE_URL", "https://project.supabase.co")
	t.Setenv("LESSONSTREAM_STORAGE_SERVICE_KEY", "service-key")
	t.Setenv("LESSONSTREAM_JWT_SECRET", "dev-secret")
	t.Setenv("LESSONSTREAM_LOG_LEVEL", "error")
	return dbPath
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, version.String()+"\n", out)

	out, err = run(t, "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, version.Version+"\n", out)
}

func TestTokenCommand(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "token", "--role", "instructor", "--labid", "lab_9")
	require.NoError(t, err)

	p, err := auth.NewVerifier("dev-secret").Verify(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "test_instructor", p.Username)
	assert.Equal(t, "instructor", p.Role)
	assert.Equal(t, "lab_9", p.LabID)
}

func TestMigrateCommand(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "migrate", "--verify")
	require.NoError(t, err)
	assert.Contains(t, out, "schema version 2 (sqlite)")
	assert.Contains(t, out, "integrity check ok")

	out, err = run(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "schema version 2")
}

func TestSignCommand_ExternalURLPassesThrough(t *testing.T) {
	setupEnv(t)
	ctx := context.Background()

	store, err := daemon.OpenStore(ctx, mustConfig(t).Store)
	require.NoError(t, err)
	_, err = store.CreateCourse(ctx, catalog.Course{ID: "C1", Title: "Go"})
	require.NoError(t, err)
	topic, err := store.InsertTopic(ctx, catalog.NewTopic{CourseID: "C1", Title: "Intro", VideoURL: "https://cdn.example.com/intro.mp4", OrderIndex: 1})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	out, err := run(t, "sign", "--topic", topic.ID)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "https://cdn.example.com/intro.mp4", got["url"])
	assert.Equal(t, "legacyField", got["origin"])
	assert.Nil(t, got["expiresIn"])
}

func TestSignCommand_RequiresTopic(t *testing.T) {
	_, err := run(t, "sign")
	assert.EqualError(t, err, "--topic is required")
}

func TestLoadConfig_InvalidStorage(t *testing.T) {
	setupEnv(t)
	t.Setenv("LESSONSTREAM_STORAGE_BACKEND", "ftp")

	_, err := run(t, "migrate")
	assert.ErrorContains(t, err, "load config")
}

func mustConfig(t *testing.T) config.AppConfig {
	t.Helper()
	cfg, err := config.NewLoader("", version.Version).Load()
	require.NoError(t, err)
	return cfg
}
