// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ManuGH/lessonstream/internal/log"
	"github.com/ManuGH/lessonstream/internal/telemetry"
	"github.com/ManuGH/lessonstream/internal/video"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Client-facing messages. Internal URLs, credentials and upstream bodies are
// never part of a response.
const (
	msgMissingTopicID      = "Missing topicId parameter"
	msgMissingTopicIDShort = "Missing topic ID"
	msgInvalidReference    = "Invalid video path or URL"
	msgVideoNotFound       = "Video not found"
	msgVideoNotAvailable   = "Video not available"
	msgTopicNotFound       = "Topic not found"
	msgCourseNotFound      = "Course not found"
	msgSigningFailed       = "Failed to generate video URL"
	msgFetchFailed         = "Failed to fetch video"
	msgMissingFields       = "Missing required fields: title, url, courseId"
	msgTopicInsertFailed   = "Failed to create topic record"
	msgInternal            = "Internal server error"
)

// failureMessages holds the endpoint-specific wording for a failure kind.
type failureMessages struct {
	BadRequest string
	NotFound   string
	Internal   string
}

var (
	streamMessages    = failureMessages{BadRequest: msgInvalidReference, NotFound: msgVideoNotFound, Internal: msgInternal}
	signedURLMessages = failureMessages{BadRequest: msgMissingTopicIDShort, NotFound: msgVideoNotAvailable, Internal: msgInternal}
	createMessages    = failureMessages{BadRequest: msgMissingFields, NotFound: msgVideoNotFound, Internal: msgTopicInsertFailed}
)

// classify maps a failure to its HTTP status and client message.
func classify(err error, msgs failureMessages) (int, string) {
	switch video.KindOf(err) {
	case video.KindBadRequest:
		return http.StatusBadRequest, msgs.BadRequest
	case video.KindNotFound:
		switch {
		case errors.Is(err, video.ErrVideoNotFound):
			return http.StatusNotFound, msgs.NotFound
		case errors.Is(err, video.ErrCourseNotFound):
			return http.StatusNotFound, msgCourseNotFound
		case errors.Is(err, video.ErrTopicNotFound):
			return http.StatusNotFound, msgTopicNotFound
		}
		return http.StatusNotFound, msgs.NotFound
	case video.KindSigningFailure:
		return http.StatusInternalServerError, msgSigningFailed
	case video.KindUpstreamFailure:
		return http.StatusInternalServerError, msgFetchFailed
	default:
		return http.StatusInternalServerError, msgs.Internal
	}
}

// writeFailure logs err and renders it, unless the response already started:
// then the client connection simply ends with whatever was sent.
func writeFailure(g *responseGuard, r *http.Request, topicID string, err error, msgs failureMessages) {
	status, msg := classify(err, msgs)
	kind := video.KindOf(err)

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(telemetry.ErrorAttributes(string(kind))...)
	if status >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, msg)
	}

	logger := log.WithComponentFromContext(r.Context(), "api")
	var ev *zerolog.Event
	switch {
	case status >= http.StatusInternalServerError:
		ev = logger.Error()
	case status == http.StatusNotFound:
		ev = logger.Info()
	default:
		ev = logger.Warn()
	}
	ev = ev.Err(err).
		Str(log.FieldEvent, "video.failure").
		Str("kind", string(kind)).
		Int("status", status).
		Bool("headers_sent", g.HeadersSent())
	if topicID != "" {
		ev = ev.Str(log.FieldTopicID, topicID)
	}
	if us := video.UpstreamStatusOf(err); us != 0 {
		ev = ev.Int(log.FieldUpstreamStatus, us)
	}
	ev.Msg("request failed")

	if g.HeadersSent() {
		return
	}
	writeError(g, status, msg)
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
