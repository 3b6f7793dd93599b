// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package authoring appends lesson topics with their video reference.
package authoring

import (
	"context"
	"errors"

	"github.com/ManuGH/lessonstream/internal/catalog"
	"github.com/ManuGH/lessonstream/internal/locator"
	"github.com/ManuGH/lessonstream/internal/log"
	"github.com/ManuGH/lessonstream/internal/video"
)

// ErrTopicInsert marks a failed topic insert, the only storage failure
// surfaced to the caller.
var ErrTopicInsert = errors.New("failed to create topic record")

// Store is the write side of the catalog used by authoring.
type Store interface {
	CountTopics(ctx context.Context, courseID string) (int, error)
	InsertTopic(ctx context.Context, in catalog.NewTopic) (catalog.Topic, error)
	InsertMediaRecord(ctx context.Context, in catalog.NewMediaRecord) (catalog.MediaRecord, error)
}

// Service creates topics.
type Service struct {
	store         Store
	defaultBucket string
}

func NewService(store Store, defaultBucket string) *Service {
	if defaultBucket == "" {
		defaultBucket = locator.DefaultBucket
	}
	return &Service{store: store, defaultBucket: defaultBucket}
}

// CreateVideo appends a topic to the course and records its media reference.
//
// The topic keeps the literal URL. The media record gets the decomposed
// (bucket, path) when the URL points into object storage, the literal value
// otherwise. If only the media record insert fails the topic is still
// returned: it stays resolvable through its own URL.
func (s *Service) CreateVideo(ctx context.Context, req CreateVideoRequest) (catalog.Topic, error) {
	logger := log.WithComponentFromContext(ctx, "authoring")

	count, err := s.store.CountTopics(ctx, req.CourseID)
	if err != nil {
		return catalog.Topic{}, video.E("authoring.count", video.KindInternal, errors.Join(ErrTopicInsert, err))
	}

	// order_index continues 1-based.
	topic, err := s.store.InsertTopic(ctx, catalog.NewTopic{
		CourseID:   req.CourseID,
		Title:      req.Title,
		VideoURL:   req.URL,
		OrderIndex: count + 1,
	})
	if err != nil {
		return catalog.Topic{}, video.E("authoring.topic", video.KindInternal, errors.Join(ErrTopicInsert, err))
	}

	rec := s.mediaRecordFor(topic, req)
	if _, err := s.store.InsertMediaRecord(ctx, rec); err != nil {
		logger.Warn().
			Err(err).
			Str(log.FieldTopicID, topic.ID).
			Str(log.FieldCourseID, topic.CourseID).
			Msg("media record insert failed; topic stays resolvable through its url")
	}

	logger.Info().
		Str(log.FieldEvent, "topic.created").
		Str(log.FieldTopicID, topic.ID).
		Str(log.FieldCourseID, topic.CourseID).
		Int("order_index", topic.OrderIndex).
		Msg("topic created")
	return topic, nil
}

func (s *Service) mediaRecordFor(topic catalog.Topic, req CreateVideoRequest) catalog.NewMediaRecord {
	rec := catalog.NewMediaRecord{TopicID: topic.ID, Title: req.Title, Path: req.URL}

	loc, err := locator.Classify(req.URL, s.defaultBucket)
	if err != nil {
		return rec
	}
	if bucket, path, ok := loc.StorageObject(); ok {
		rec.Bucket = bucket
		rec.Path = path
	}
	return rec
}
