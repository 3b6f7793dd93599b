// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package catalog is the reference store for courses, topics and their media
// records. Lesson video delivery only reads from it, except for the authoring
// path which appends topics.
package catalog

import "time"

// Course is the owner of topics. Only existence matters to video delivery.
type Course struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	IsPublished bool      `json:"is_published"`
	LabID       string    `json:"lab_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Topic is the leaf content unit. VideoURL is the legacy inline reference.
type Topic struct {
	ID         string    `json:"id"`
	CourseID   string    `json:"course_id"`
	Title      string    `json:"title"`
	VideoURL   string    `json:"video_url"`
	OrderIndex int       `json:"order_index"`
	CreatedAt  time.Time `json:"created_at"`
}

// MediaRecord is the dedicated per-topic video row. Bucket is empty when the
// path is relative to the default bucket.
type MediaRecord struct {
	ID              string
	TopicID         string
	Title           string
	Path            string
	Bucket          string
	DurationSeconds int
	CreatedAt       time.Time
}

// NewTopic carries the fields supplied when authoring a topic.
type NewTopic struct {
	CourseID   string
	Title      string
	VideoURL   string
	OrderIndex int
}

// NewMediaRecord carries the fields of a media record insert.
type NewMediaRecord struct {
	TopicID string
	Title   string
	Path    string
	Bucket  string
}
