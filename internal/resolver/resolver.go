// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package resolver turns a topic id into a media locator.
package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/ManuGH/lessonstream/internal/catalog"
	"github.com/ManuGH/lessonstream/internal/locator"
	"github.com/ManuGH/lessonstream/internal/log"
	"github.com/ManuGH/lessonstream/internal/metrics"
	"github.com/ManuGH/lessonstream/internal/video"
)

// Origin tells which reference a resolution came from.
type Origin string

const (
	OriginVideoRecord Origin = "videoRecord"
	OriginLegacyField Origin = "legacyField"
)

// Store is the read side of the catalog the resolver needs.
type Store interface {
	MediaRecordForTopic(ctx context.Context, topicID string) (catalog.MediaRecord, bool, error)
	Topic(ctx context.Context, id string) (catalog.Topic, error)
	Course(ctx context.Context, id string) (catalog.Course, error)
}

// ResolvedSource is the per-request result of a resolution. It is never persisted.
type ResolvedSource struct {
	TopicID string
	Locator locator.Locator
	Origin  Origin
}

// Resolver applies the reference precedence: media record path first, then
// the topic's inline URL.
type Resolver struct {
	store         Store
	defaultBucket string
}

// New creates a Resolver. Bare paths resolve into defaultBucket.
func New(store Store, defaultBucket string) *Resolver {
	if defaultBucket == "" {
		defaultBucket = locator.DefaultBucket
	}
	return &Resolver{store: store, defaultBucket: defaultBucket}
}

// DefaultBucket returns the bucket used for bare paths.
func (r *Resolver) DefaultBucket() string {
	return r.defaultBucket
}

// Resolve returns the locator for topicID. A topic without a usable
// reference, including an unknown topic, yields a KindNotFound error
// wrapping video.ErrVideoNotFound. Resolve has no side effects.
func (r *Resolver) Resolve(ctx context.Context, topicID string) (ResolvedSource, error) {
	const op = "resolve"
	logger := log.WithComponentFromContext(ctx, "resolver")

	rec, found, err := r.store.MediaRecordForTopic(ctx, topicID)
	if err != nil {
		return ResolvedSource{}, video.E(op, video.KindInternal, err)
	}
	if found {
		bucket := rec.Bucket
		if bucket == "" {
			bucket = r.defaultBucket
		}
		loc, err := locator.Classify(rec.Path, bucket)
		if err == nil {
			metrics.IncResolve(string(OriginVideoRecord))
			return ResolvedSource{TopicID: topicID, Locator: loc, Origin: OriginVideoRecord}, nil
		}
		// A broken media record must not hide a usable legacy URL.
		logger.Warn().
			Err(err).
			Str(log.FieldTopicID, topicID).
			Msg("media record path is not a valid reference, falling back to topic url")
	}

	topic, err := r.store.Topic(ctx, topicID)
	if err != nil {
		if errors.Is(err, video.ErrTopicNotFound) {
			metrics.IncResolve("not_found")
			return ResolvedSource{}, video.E(op, video.KindNotFound, fmt.Errorf("%w: %w", video.ErrVideoNotFound, err))
		}
		return ResolvedSource{}, video.E(op, video.KindInternal, err)
	}

	if topic.VideoURL != "" {
		loc, err := locator.Classify(topic.VideoURL, r.defaultBucket)
		if err == nil {
			metrics.IncResolve(string(OriginLegacyField))
			return ResolvedSource{TopicID: topicID, Locator: loc, Origin: OriginLegacyField}, nil
		}
		logger.Warn().
			Err(err).
			Str(log.FieldTopicID, topicID).
			Msg("topic url is not a valid reference")
	}

	metrics.IncResolve("not_found")
	return ResolvedSource{}, video.E(op, video.KindNotFound, video.ErrVideoNotFound)
}

// TopicContext confirms the topic and its owning course exist. Policy on top
// of these facts is left to the caller.
func (r *Resolver) TopicContext(ctx context.Context, topicID string) (catalog.Topic, catalog.Course, error) {
	const op = "topic.context"

	topic, err := r.store.Topic(ctx, topicID)
	if err != nil {
		if errors.Is(err, video.ErrTopicNotFound) {
			return catalog.Topic{}, catalog.Course{}, video.E(op, video.KindNotFound, err)
		}
		return catalog.Topic{}, catalog.Course{}, video.E(op, video.KindInternal, err)
	}

	course, err := r.store.Course(ctx, topic.CourseID)
	if err != nil {
		if errors.Is(err, video.ErrCourseNotFound) {
			return topic, catalog.Course{}, video.E(op, video.KindNotFound, err)
		}
		return topic, catalog.Course{}, video.E(op, video.KindInternal, err)
	}
	return topic, course, nil
}
