// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ManuGH/lessonstream/internal/video"
)

// Topic returns the topic with id, or an error wrapping video.ErrTopicNotFound.
func (s *Store) Topic(ctx context.Context, id string) (Topic, error) {
	query := `
	SELECT id, course_id, title, video_url, order_index, created_at
	FROM topics
	WHERE id = ?
	`
	var t Topic
	var videoURL sql.NullString
	err := s.db.QueryRowContext(ctx, s.rebind(query), id).Scan(
		&t.ID,
		&t.CourseID,
		&t.Title,
		&videoURL,
		&t.OrderIndex,
		&t.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Topic{}, fmt.Errorf("topic %q: %w", id, video.ErrTopicNotFound)
	}
	if err != nil {
		return Topic{}, fmt.Errorf("query topic: %w", err)
	}
	t.VideoURL = videoURL.String
	return t, nil
}

// Course returns the course with id, or an error wrapping video.ErrCourseNotFound.
func (s *Store) Course(ctx context.Context, id string) (Course, error) {
	query := `
	SELECT id, title, is_published, lab_id, created_at
	FROM courses
	WHERE id = ?
	`
	var c Course
	var labID sql.NullString
	err := s.db.QueryRowContext(ctx, s.rebind(query), id).Scan(
		&c.ID,
		&c.Title,
		&c.IsPublished,
		&labID,
		&c.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Course{}, fmt.Errorf("course %q: %w", id, video.ErrCourseNotFound)
	}
	if err != nil {
		return Course{}, fmt.Errorf("query course: %w", err)
	}
	c.LabID = labID.String
	return c, nil
}

// MediaRecordForTopic returns the newest media record with a non-empty path.
// found is false when the topic has none.
func (s *Store) MediaRecordForTopic(ctx context.Context, topicID string) (rec MediaRecord, found bool, err error) {
	query := `
	SELECT id, topic_id, title, video_path, video_bucket, duration_seconds, created_at
	FROM videos
	WHERE topic_id = ? AND video_path <> ''
	ORDER BY created_at DESC
	LIMIT 1
	`
	err = s.db.QueryRowContext(ctx, s.rebind(query), topicID).Scan(
		&rec.ID,
		&rec.TopicID,
		&rec.Title,
		&rec.Path,
		&rec.Bucket,
		&rec.DurationSeconds,
		&rec.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return MediaRecord{}, false, nil
	}
	if err != nil {
		return MediaRecord{}, false, fmt.Errorf("query media record: %w", err)
	}
	return rec, true, nil
}

// CountTopics returns the number of topics in a course.
func (s *Store) CountTopics(ctx context.Context, courseID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT COUNT(*) FROM topics WHERE course_id = ?`), courseID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count topics: %w", err)
	}
	return n, nil
}
