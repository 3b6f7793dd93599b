// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Dialect selects the placeholder style of the underlying driver.
type Dialect int

const (
	DialectSQLite Dialect = iota
	DialectPostgres
)

// DialectFor maps a store driver name to its dialect.
func DialectFor(driver string) Dialect {
	if strings.EqualFold(driver, "postgres") || strings.EqualFold(driver, "postgresql") {
		return DialectPostgres
	}
	return DialectSQLite
}

// Store provides SQL persistence for the catalog. Queries are written with
// "?" placeholders and rebound for postgres.
type Store struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
	newID   func() string
}

// NewStore wraps an open, migrated database.
func NewStore(db *sql.DB, dialect Dialect) *Store {
	return &Store{
		db:      db,
		dialect: dialect,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
	}
}

// DB exposes the pool for health checks and maintenance commands.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the store is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateCourse inserts a course. An empty ID gets a generated one.
func (s *Store) CreateCourse(ctx context.Context, c Course) (Course, error) {
	if c.ID == "" {
		c.ID = s.newID()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}
	query := `INSERT INTO courses (id, title, is_published, lab_id, created_at) VALUES (?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, s.rebind(query),
		c.ID, c.Title, c.IsPublished, nullString(c.LabID), c.CreatedAt)
	if err != nil {
		return Course{}, fmt.Errorf("insert course: %w", err)
	}
	return c, nil
}

// InsertTopic inserts a topic and returns the stored row.
func (s *Store) InsertTopic(ctx context.Context, in NewTopic) (Topic, error) {
	t := Topic{
		ID:         s.newID(),
		CourseID:   in.CourseID,
		Title:      in.Title,
		VideoURL:   in.VideoURL,
		OrderIndex: in.OrderIndex,
		CreatedAt:  s.now(),
	}
	query := `INSERT INTO topics (id, course_id, title, video_url, order_index, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, s.rebind(query),
		t.ID, t.CourseID, t.Title, nullString(t.VideoURL), t.OrderIndex, t.CreatedAt)
	if err != nil {
		return Topic{}, fmt.Errorf("insert topic: %w", err)
	}
	return t, nil
}

// InsertMediaRecord inserts a media record for an existing topic.
func (s *Store) InsertMediaRecord(ctx context.Context, in NewMediaRecord) (MediaRecord, error) {
	m := MediaRecord{
		ID:        s.newID(),
		TopicID:   in.TopicID,
		Title:     in.Title,
		Path:      in.Path,
		Bucket:    in.Bucket,
		CreatedAt: s.now(),
	}
	query := `INSERT INTO videos (id, topic_id, title, video_path, video_bucket, duration_seconds, created_at) VALUES (?, ?, ?, ?, ?, 0, ?)`
	_, err := s.db.ExecContext(ctx, s.rebind(query),
		m.ID, m.TopicID, m.Title, m.Path, m.Bucket, m.CreatedAt)
	if err != nil {
		return MediaRecord{}, fmt.Errorf("insert media record: %w", err)
	}
	return m, nil
}

// rebind rewrites "?" placeholders to "$n" for postgres.
func (s *Store) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
