// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/ManuGH/lessonstream/internal/auth"
	"github.com/ManuGH/lessonstream/internal/authoring"
	"github.com/ManuGH/lessonstream/internal/locator"
	"github.com/ManuGH/lessonstream/internal/log"
	"github.com/ManuGH/lessonstream/internal/proxy"
	"github.com/ManuGH/lessonstream/internal/telemetry"
	"github.com/ManuGH/lessonstream/internal/video"
	"go.opentelemetry.io/otel/trace"
)

// originQueryParam marks a reference supplied by the client in ?url=.
const originQueryParam = "queryParam"

// handleStreamVideo serves GET /video?topicId=&url=.
func (s *Server) handleStreamVideo(w http.ResponseWriter, r *http.Request) {
	g := newResponseGuard(w)
	ctx := r.Context()
	q := r.URL.Query()

	topicID := strings.TrimSpace(q.Get("topicId"))
	if topicID == "" {
		writeError(g, http.StatusBadRequest, msgMissingTopicID)
		return
	}

	loc, err := s.locate(ctx, topicID, q.Get("url"))
	if err != nil {
		writeFailure(g, r, topicID, err, streamMessages)
		return
	}

	if _, _, err := s.deps.Resolver.TopicContext(ctx, topicID); err != nil {
		writeFailure(g, r, topicID, err, streamMessages)
		return
	}

	target, err := s.playableURL(ctx, loc)
	if err != nil {
		writeFailure(g, r, topicID, err, streamMessages)
		return
	}

	res, err := s.deps.Proxy.Stream(ctx, g, proxy.Request{
		URL:       target,
		Range:     r.Header.Get("Range"),
		UserAgent: r.Header.Get("User-Agent"),
	})
	trace.SpanFromContext(ctx).SetAttributes(telemetry.StreamAttributes(res.Status, res.Bytes, res.EndReason)...)
	if err != nil {
		writeFailure(g, r, topicID, err, streamMessages)
	}
}

// playableURL returns the address the proxy fetches. Public storage URLs are
// fetched as given; everything else goes through the issuer.
func (s *Server) playableURL(ctx context.Context, loc locator.Locator) (string, error) {
	if loc.Kind() == locator.KindAbsoluteURL && loc.Access() == locator.AccessPublic {
		return loc.URL(), nil
	}
	signed, err := s.deps.Issuer.Issue(ctx, loc, s.opts.StreamTTL)
	if err != nil {
		return "", err
	}
	return signed.URL, nil
}

// locate prefers a client supplied reference over the stored one.
func (s *Server) locate(ctx context.Context, topicID, raw string) (locator.Locator, error) {
	span := trace.SpanFromContext(ctx)

	if raw = strings.TrimSpace(raw); raw != "" {
		loc, err := locator.Classify(raw, s.deps.Resolver.DefaultBucket())
		if err != nil {
			return locator.Locator{}, video.E("video.locate", video.KindBadRequest, err)
		}
		bucket, _, _ := loc.StorageObject()
		span.SetAttributes(telemetry.ResolveAttributes(topicID, originQueryParam, loc.Kind().String(), bucket)...)
		return loc, nil
	}

	src, err := s.deps.Resolver.Resolve(ctx, topicID)
	if err != nil {
		return locator.Locator{}, err
	}
	bucket, _, _ := src.Locator.StorageObject()
	span.SetAttributes(telemetry.ResolveAttributes(topicID, string(src.Origin), src.Locator.Kind().String(), bucket)...)
	return src.Locator, nil
}

// handleSignedURL serves GET /video/signed-url?topicId=.
func (s *Server) handleSignedURL(w http.ResponseWriter, r *http.Request) {
	g := newResponseGuard(w)
	ctx := r.Context()

	topicID := strings.TrimSpace(r.URL.Query().Get("topicId"))
	if topicID == "" {
		writeError(g, http.StatusBadRequest, msgMissingTopicIDShort)
		return
	}

	src, err := s.deps.Resolver.Resolve(ctx, topicID)
	if err != nil {
		writeFailure(g, r, topicID, err, signedURLMessages)
		return
	}

	signed, err := s.deps.Issuer.Issue(ctx, src.Locator, s.opts.IssueTTL)
	if err != nil {
		writeFailure(g, r, topicID, err, signedURLMessages)
		return
	}

	logger := log.WithComponentFromContext(ctx, "api")
	ev := logger.Debug().
		Str(log.FieldEvent, "video.signed_url").
		Str(log.FieldTopicID, topicID).
		Str(log.FieldOriginKind, string(src.Origin)).
		Str(log.FieldLocator, src.Locator.String())
	if p := auth.PrincipalFromContext(ctx); p != nil {
		ev = ev.Str(log.FieldPrincipal, p.ID)
	}
	ev.Msg("signed url issued")

	writeJSON(g, http.StatusOK, signed)
}

// createVideoResponse is the body of a successful POST /video.
type createVideoResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// handleCreateVideo serves POST /video.
func (s *Server) handleCreateVideo(w http.ResponseWriter, r *http.Request) {
	g := newResponseGuard(w)
	ctx := r.Context()

	raw, err := io.ReadAll(http.MaxBytesReader(g, r.Body, s.opts.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(g, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		writeFailure(g, r, "", video.E("video.create", video.KindBadRequest, err), createMessages)
		return
	}

	req, err := authoring.ParseCreateVideoRequest(raw)
	if err != nil {
		writeFailure(g, r, "", err, createMessages)
		return
	}

	topic, err := s.deps.Authoring.CreateVideo(ctx, req)
	if err != nil {
		writeFailure(g, r, "", err, createMessages)
		return
	}

	if p := auth.PrincipalFromContext(ctx); p != nil {
		logger := log.WithComponentFromContext(ctx, "api")
		logger.Info().
			Str(log.FieldEvent, "video.created").
			Str(log.FieldTopicID, topic.ID).
			Str(log.FieldCourseID, topic.CourseID).
			Str(log.FieldPrincipal, p.ID).
			Msg("video created")
	}

	writeJSON(g, http.StatusCreated, createVideoResponse{Message: "Video created successfully", Data: topic})
}
