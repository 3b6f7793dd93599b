// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package proxy streams one upstream media object to one client, passing
// range semantics through untouched.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ManuGH/lessonstream/internal/locator"
	"github.com/ManuGH/lessonstream/internal/log"
	"github.com/ManuGH/lessonstream/internal/metrics"
	"github.com/ManuGH/lessonstream/internal/video"
)

const (
	defaultChunkSize   = 64 << 10
	defaultContentType = "video/mp4"
)

// fixedHeaders are set on every proxied response regardless of the upstream.
var fixedHeaders = [][2]string{
	{"Cache-Control", "no-cache, no-store, must-revalidate"},
	{"Pragma", "no-cache"},
	{"Expires", "0"},
	{"X-Content-Type-Options", "nosniff"},
	{"Content-Disposition", "inline"},
	{"Accept-Ranges", "bytes"},
}

// Request describes one proxied fetch.
type Request struct {
	// URL is a directly fetchable upstream address.
	URL string
	// Range is the client's Range header, forwarded verbatim when set.
	Range string
	// UserAgent is the client's User-Agent; empty sends none.
	UserAgent string
}

// Result summarizes a finished stream.
type Result struct {
	Status    int
	Bytes     int64
	EndReason string
	Duration  time.Duration
}

// RangeProxy fetches upstream media and copies it to the client chunk by
// chunk. It holds no per-request state and is safe for concurrent use.
type RangeProxy struct {
	client    *http.Client
	chunkSize int
}

// New creates a RangeProxy. The client should have connect and header
// timeouts but no total timeout.
func New(client *http.Client, chunkSize int) (*RangeProxy, error) {
	if client == nil {
		return nil, errors.New("proxy: http client is required")
	}
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	return &RangeProxy{client: client, chunkSize: chunkSize}, nil
}

// Stream fetches req.URL and streams it to w.
//
// An error is returned only when nothing has been written to w: the upstream
// could not be reached or answered with anything but 200 or 206. Once the
// status line is out, a failing upstream read or a vanished client ends the
// stream quietly and is reported through Result.EndReason.
//
// ctx must be the inbound request context so a client abort cancels the
// upstream fetch.
func (p *RangeProxy) Stream(ctx context.Context, w http.ResponseWriter, req Request) (Result, error) {
	const op = "proxy.fetch"
	start := time.Now()
	logger := log.WithComponentFromContext(ctx, "proxy")

	upstreamReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return Result{}, video.E(op, video.KindInternal, fmt.Errorf("build upstream request: %w", err))
	}
	if req.Range != "" {
		upstreamReq.Header.Set("Range", req.Range)
	}
	// An explicit empty value suppresses the Go default agent.
	upstreamReq.Header.Set("User-Agent", req.UserAgent)

	resp, err := p.client.Do(upstreamReq)
	if err != nil {
		metrics.RecordUpstreamResponse(0, time.Since(start))
		return Result{}, video.Upstream(op, 0, fmt.Errorf("fetch %s: %w", locator.Redact(req.URL), err))
	}
	defer resp.Body.Close()

	metrics.RecordUpstreamResponse(resp.StatusCode, time.Since(start))
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return Result{}, video.Upstream(op, resp.StatusCode,
			fmt.Errorf("fetch %s: unexpected upstream status %d", locator.Redact(req.URL), resp.StatusCode))
	}

	copyHeaders(w.Header(), resp)
	w.WriteHeader(resp.StatusCode)

	end := metrics.StreamStarted()
	res := p.pump(ctx, w, resp)
	res.Status = resp.StatusCode
	res.Duration = time.Since(start)
	end(res.EndReason)

	logger.Debug().
		Int("status", res.Status).
		Int64(log.FieldBytes, res.Bytes).
		Str(log.FieldRange, req.Range).
		Str(log.FieldEndReason, res.EndReason).
		Dur("duration", res.Duration).
		Msg("stream finished")
	return res, nil
}

// copyHeaders mirrors the range-describing upstream headers and adds the
// fixed response contract.
func copyHeaders(dst http.Header, resp *http.Response) {
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = defaultContentType
	}
	dst.Set("Content-Type", contentType)

	if resp.ContentLength >= 0 {
		dst.Set("Content-Length", strconv.FormatInt(resp.ContentLength, 10))
	}
	if cr := resp.Header.Get("Content-Range"); cr != "" {
		dst.Set("Content-Range", cr)
	}

	for _, h := range fixedHeaders {
		dst.Set(h[0], h[1])
	}
}

// pump copies the body in order. Each write blocks until the client has
// taken the chunk, so the upstream is never read more than one chunk ahead
// of the client.
func (p *RangeProxy) pump(ctx context.Context, w http.ResponseWriter, resp *http.Response) Result {
	var res Result
	rc := http.NewResponseController(w)

	for chunk, err := range chunks(resp.Body, p.chunkSize) {
		if err != nil {
			res.EndReason = endReasonForReadError(ctx, err)
			return res
		}
		n, werr := w.Write(chunk)
		res.Bytes += int64(n)
		metrics.AddProxyBytes(n)
		if werr != nil {
			res.EndReason = metrics.EndReasonClientGone
			return res
		}
		if ferr := rc.Flush(); ferr != nil && !errors.Is(ferr, http.ErrNotSupported) {
			res.EndReason = metrics.EndReasonClientGone
			return res
		}
	}
	res.EndReason = metrics.EndReasonComplete
	return res
}
