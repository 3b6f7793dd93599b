// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys used on video delivery spans.
const (
	TopicIDKey        = "video.topic_id"
	OriginKey         = "video.origin"
	LocatorKindKey    = "video.locator_kind"
	BucketKey         = "video.bucket"
	SignBackendKey    = "video.sign_backend"
	UpstreamStatusKey = "video.upstream_status"
	BytesKey          = "video.bytes"
	EndReasonKey      = "video.end_reason"

	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// ResolveAttributes describes where a topic's video reference came from.
// Object paths are left out; they may be user supplied.
func ResolveAttributes(topicID, origin, locatorKind, bucket string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(TopicIDKey, topicID),
		attribute.String(LocatorKindKey, locatorKind),
	}
	if origin != "" {
		attrs = append(attrs, attribute.String(OriginKey, origin))
	}
	if bucket != "" {
		attrs = append(attrs, attribute.String(BucketKey, bucket))
	}
	return attrs
}

// StreamAttributes summarizes a finished proxied stream.
func StreamAttributes(upstreamStatus int, bytes int64, endReason string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(UpstreamStatusKey, upstreamStatus),
		attribute.Int64(BytesKey, bytes),
		attribute.String(EndReasonKey, endReason),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
