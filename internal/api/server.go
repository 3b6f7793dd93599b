// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api exposes the lesson video endpoints over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ManuGH/lessonstream/internal/api/middleware"
	"github.com/ManuGH/lessonstream/internal/authoring"
	"github.com/ManuGH/lessonstream/internal/catalog"
	"github.com/ManuGH/lessonstream/internal/locator"
	"github.com/ManuGH/lessonstream/internal/proxy"
	"github.com/ManuGH/lessonstream/internal/resolver"
	"github.com/ManuGH/lessonstream/internal/signing"
	"github.com/go-chi/chi/v5"
)

// VideoResolver finds the reference behind a topic.
type VideoResolver interface {
	Resolve(ctx context.Context, topicID string) (resolver.ResolvedSource, error)
	TopicContext(ctx context.Context, topicID string) (catalog.Topic, catalog.Course, error)
	DefaultBucket() string
}

// URLIssuer turns a locator into a fetchable URL.
type URLIssuer interface {
	Backend() string
	Issue(ctx context.Context, loc locator.Locator, ttl time.Duration) (signing.SignedAccessURL, error)
}

// Streamer copies an upstream object to the client.
type Streamer interface {
	Stream(ctx context.Context, w http.ResponseWriter, req proxy.Request) (proxy.Result, error)
}

// TopicCreator appends topics to a course.
type TopicCreator interface {
	CreateVideo(ctx context.Context, req authoring.CreateVideoRequest) (catalog.Topic, error)
}

// Authenticator guards the endpoints that hand out URLs or change data.
type Authenticator interface {
	Require(next http.Handler) http.Handler
}

// HealthHandler serves the probe endpoints.
type HealthHandler interface {
	ServeHealth(w http.ResponseWriter, r *http.Request)
	ServeReady(w http.ResponseWriter, r *http.Request)
}

// Deps are the collaborators of the server.
type Deps struct {
	Resolver  VideoResolver
	Issuer    URLIssuer
	Proxy     Streamer
	Authoring TopicCreator
	Auth      Authenticator
	Health    HealthHandler
}

// Options tune the server.
type Options struct {
	// StreamTTL is the validity of URLs signed for the proxy's own fetch.
	StreamTTL time.Duration
	// IssueTTL is the validity of URLs handed to clients.
	IssueTTL time.Duration
	// MaxBodyBytes bounds request bodies of POST /video.
	MaxBodyBytes int64

	Stack     middleware.StackConfig
	RateLimit *middleware.RateLimitConfig // nil disables limiting
}

// Server routes the video endpoints.
type Server struct {
	deps   Deps
	opts   Options
	router chi.Router
}

// New validates deps and builds the router.
func New(deps Deps, opts Options) (*Server, error) {
	switch {
	case deps.Resolver == nil:
		return nil, errors.New("api: resolver is required")
	case deps.Issuer == nil:
		return nil, errors.New("api: issuer is required")
	case deps.Proxy == nil:
		return nil, errors.New("api: proxy is required")
	case deps.Authoring == nil:
		return nil, errors.New("api: authoring service is required")
	case deps.Auth == nil:
		return nil, errors.New("api: authenticator is required")
	}
	if opts.StreamTTL <= 0 {
		opts.StreamTTL = signing.DefaultStreamTTL
	}
	if opts.IssueTTL <= 0 {
		opts.IssueTTL = signing.DefaultIssueTTL
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 64 << 10
	}

	s := &Server{deps: deps, opts: opts}
	s.router = s.routes()
	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := middleware.NewRouter(s.opts.Stack)

	if s.deps.Health != nil {
		r.Get("/healthz", s.deps.Health.ServeHealth)
		r.Get("/readyz", s.deps.Health.ServeReady)
	}

	r.Group(func(r chi.Router) {
		if s.opts.RateLimit != nil {
			r.Use(middleware.RateLimit(*s.opts.RateLimit))
		}

		r.Get("/video", s.handleStreamVideo)
		r.With(s.deps.Auth.Require).Get("/video/signed-url", s.handleSignedURL)
		r.With(s.deps.Auth.Require).Post("/video", s.handleCreateVideo)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	return r
}
