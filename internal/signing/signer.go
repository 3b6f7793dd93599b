// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package signing issues short-lived access URLs for stored video objects.
package signing

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Signer asks a storage service for a time-limited URL to one object.
// Implementations must be safe for concurrent use and must not cache grants.
type Signer interface {
	Name() string
	Sign(ctx context.Context, bucket, path string, ttl time.Duration) (string, error)
}

// StatusError is a signing request the storage service answered with an error status.
type StatusError struct {
	Backend string
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: signing rejected with status %d", e.Backend, e.Status)
	}
	return fmt.Sprintf("%s: signing rejected with status %d: %s", e.Backend, e.Status, e.Message)
}

// Transient reports whether err says something about the health of the
// storage service rather than about the requested object. Only transient
// errors are retried and counted by the circuit breaker.
func Transient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status == http.StatusTooManyRequests || se.Status >= 500
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
