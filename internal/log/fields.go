// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID     = "request_id"
	FieldCorrelationID = "correlation_id"
	FieldTopicID       = "topic_id"
	FieldCourseID      = "course_id"
	FieldPrincipal     = "principal"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Media reference fields
	FieldLocator     = "locator"
	FieldOriginKind  = "origin_kind"
	FieldBucket      = "bucket"
	FieldObjectPath  = "object_path"
	FieldSignBackend = "sign_backend"

	// Upstream / streaming fields
	FieldUpstreamStatus = "upstream_status"
	FieldRange          = "range"
	FieldBytes          = "bytes"
	FieldEndReason      = "end_reason"
)
