// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package catalog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ManuGH/lessonstream/internal/persistence/migrations"
	"github.com/ManuGH/lessonstream/internal/persistence/sqlite"
	"github.com/ManuGH/lessonstream/internal/video"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "catalog.db"), sqlite.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = migrations.Up(context.Background(), db, "sqlite")
	require.NoError(t, err)
	return NewStore(db, DialectSQLite)
}

func TestStore_TopicAndCourse(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	course, err := s.CreateCourse(ctx, Course{ID: "C1", Title: "Go", IsPublished: true, LabID: "lab-1"})
	require.NoError(t, err)

	topic, err := s.InsertTopic(ctx, NewTopic{CourseID: course.ID, Title: "Intro", VideoURL: "https://x/y.mp4", OrderIndex: 1})
	require.NoError(t, err)
	assert.NotEmpty(t, topic.ID)

	got, err := s.Topic(ctx, topic.ID)
	require.NoError(t, err)
	assert.Equal(t, "C1", got.CourseID)
	assert.Equal(t, "https://x/y.mp4", got.VideoURL)
	assert.Equal(t, 1, got.OrderIndex)

	gotCourse, err := s.Course(ctx, "C1")
	require.NoError(t, err)
	assert.True(t, gotCourse.IsPublished)
	assert.Equal(t, "lab-1", gotCourse.LabID)
}

func TestStore_NotFound(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Topic(ctx, "missing")
	assert.ErrorIs(t, err, video.ErrTopicNotFound)

	_, err = s.Course(ctx, "missing")
	assert.ErrorIs(t, err, video.ErrCourseNotFound)

	_, found, err := s.MediaRecordForTopic(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStore_MediaRecordForTopic_NewestNonEmpty(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.CreateCourse(ctx, Course{ID: "C1", Title: "Go"})
	require.NoError(t, err)
	topic, err := s.InsertTopic(ctx, NewTopic{CourseID: "C1", Title: "T"})
	require.NoError(t, err)

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	_, err = s.InsertMediaRecord(ctx, NewMediaRecord{TopicID: topic.ID, Title: "old", Path: "old.mp4", Bucket: "videos"})
	require.NoError(t, err)
	_, err = s.InsertMediaRecord(ctx, NewMediaRecord{TopicID: topic.ID, Title: "new", Path: "lesson-videos/a.mp4", Bucket: "videos"})
	require.NoError(t, err)
	_, err = s.InsertMediaRecord(ctx, NewMediaRecord{TopicID: topic.ID, Title: "blank", Path: ""})
	require.NoError(t, err)

	rec, found, err := s.MediaRecordForTopic(ctx, topic.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "lesson-videos/a.mp4", rec.Path)
	assert.Equal(t, "videos", rec.Bucket)
}

func TestStore_CountTopics(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.CreateCourse(ctx, Course{ID: "C1", Title: "Go"})
	require.NoError(t, err)

	n, err := s.CountTopics(ctx, "C1")
	require.NoError(t, err)
	assert.Zero(t, n)

	for i := 1; i <= 2; i++ {
		_, err := s.InsertTopic(ctx, NewTopic{CourseID: "C1", Title: "T", OrderIndex: i})
		require.NoError(t, err)
	}
	n, err = s.CountTopics(ctx, "C1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestStore_InsertTopicRequiresCourse(t *testing.T) {
	s := newTestStore(t)
	_, err := s.InsertTopic(context.Background(), NewTopic{CourseID: "nope", Title: "T"})
	require.Error(t, err, "foreign keys are enforced")
}

func TestRebind(t *testing.T) {
	pg := &Store{dialect: DialectPostgres}
	assert.Equal(t, "SELECT a FROM t WHERE x = $1 AND y = $2", pg.rebind("SELECT a FROM t WHERE x = ? AND y = ?"))

	lite := &Store{dialect: DialectSQLite}
	assert.Equal(t, "x = ?", lite.rebind("x = ?"))

	assert.Equal(t, DialectPostgres, DialectFor("Postgres"))
	assert.Equal(t, DialectSQLite, DialectFor("sqlite"))
}
