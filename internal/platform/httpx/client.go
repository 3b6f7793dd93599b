// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package httpx builds the outbound HTTP clients. Nothing in the service
// uses http.DefaultClient.
package httpx

import (
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultClientTimeout         = 10 * time.Second
	defaultDialTimeout           = 5 * time.Second
	defaultResponseHeaderTimeout = 15 * time.Second
	defaultIdleConnTimeout       = 90 * time.Second
	defaultExpectContinueTimeout = 1 * time.Second
	defaultMaxIdleConns          = 64
	defaultMaxIdleConnsPerHost   = 16
)

// NewClient returns a hardened client for short API calls such as signing.
// timeout bounds the whole exchange.
func NewClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultClientTimeout
	}

	dialTimeout := min(timeout, defaultDialTimeout)
	headerTimeout := min(timeout, defaultResponseHeaderTimeout)

	return &http.Client{
		Timeout:   timeout,
		Transport: instrument(newTransport(dialTimeout, headerTimeout, defaultMaxIdleConnsPerHost)),
	}
}

// UpstreamOptions tunes the client used to fetch media from the origin.
type UpstreamOptions struct {
	DialTimeout           time.Duration
	ResponseHeaderTimeout time.Duration
	MaxIdleConnsPerHost   int
}

// NewUpstreamClient returns a client for long lived media fetches. It has no
// total timeout: connect and header waits are bounded, the body is bounded
// by the request context. Redirects are followed, as signed URLs may redirect
// to a CDN.
func NewUpstreamClient(opts UpstreamOptions) *http.Client {
	dial := opts.DialTimeout
	if dial <= 0 {
		dial = defaultDialTimeout
	}
	header := opts.ResponseHeaderTimeout
	if header <= 0 {
		header = defaultResponseHeaderTimeout
	}
	perHost := opts.MaxIdleConnsPerHost
	if perHost <= 0 {
		perHost = defaultMaxIdleConnsPerHost
	}

	return &http.Client{
		Transport: instrument(newTransport(dial, header, perHost)),
	}
}

func newTransport(dial, header time.Duration, perHost int) *http.Transport {
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: dial, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          defaultMaxIdleConns,
		MaxIdleConnsPerHost:   perHost,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   dial,
		ResponseHeaderTimeout: header,
		ExpectContinueTimeout: defaultExpectContinueTimeout,
		// Media is already compressed; ask for identity so Content-Length
		// and Content-Range stay meaningful.
		DisableCompression: true,
	}
}

func instrument(base *http.Transport) http.RoundTripper {
	return otelhttp.NewTransport(base)
}
