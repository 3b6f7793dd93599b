// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package video holds the error taxonomy shared by the video delivery path.
package video

import (
	"errors"
	"fmt"
)

// Kind classifies a failure into one of the outcomes the HTTP layer knows how to render.
type Kind string

const (
	KindBadRequest      Kind = "bad_request"
	KindNotFound        Kind = "not_found"
	KindSigningFailure  Kind = "signing_failure"
	KindUpstreamFailure Kind = "upstream_failure"
	KindInternal        Kind = "internal"
)

// Sentinel errors for errors.Is checks across package boundaries.
var (
	ErrTopicNotFound  = errors.New("topic not found")
	ErrCourseNotFound = errors.New("course not found")
	ErrVideoNotFound  = errors.New("video not found")
)

// Error is a classified failure. Op names the operation that failed ("resolve",
// "sign", "proxy.fetch"); Err carries the underlying cause and is never shown to clients.
type Error struct {
	Op   string
	Kind Kind
	// UpstreamStatus is set for upstream failures that got an HTTP response.
	UpstreamStatus int
	Err            error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// E builds a classified error.
func E(op string, kind Kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// Upstream builds an upstream failure carrying the origin status (0 for transport errors).
func Upstream(op string, status int, err error) *Error {
	return &Error{Op: op, Kind: KindUpstreamFailure, UpstreamStatus: status, Err: err}
}

// KindOf returns the kind of the first classified error in err's chain.
// Unclassified errors are internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// UpstreamStatusOf returns the upstream HTTP status recorded in err, if any.
func UpstreamStatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.UpstreamStatus
	}
	return 0
}
