// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Stream end reasons.
const (
	EndReasonComplete        = "complete"
	EndReasonClientGone      = "client_gone"
	EndReasonUpstreamError   = "upstream_error"
)

var (
	proxyActiveStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lessonstream_proxy_active_streams",
		Help: "Number of video streams currently being proxied",
	})

	proxyBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lessonstream_proxy_bytes_total",
		Help: "Total number of media bytes written to clients",
	})

	proxyUpstreamResponses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lessonstream_proxy_upstream_responses_total",
		Help: "Upstream responses by HTTP status (0 for transport errors)",
	}, []string{"status"})

	proxyStreamEnd = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lessonstream_proxy_stream_end_total",
		Help: "Finished streams by end reason",
	}, []string{"reason"})

	// Time from request start to upstream response headers.
	proxyTimeToHeaders = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lessonstream_proxy_upstream_header_latency_seconds",
		Help:    "Time until upstream response headers were received",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
	})
)

// StreamStarted marks a stream as active and returns a func that ends it.
func StreamStarted() func(reason string) {
	proxyActiveStreams.Inc()
	return func(reason string) {
		proxyActiveStreams.Dec()
		proxyStreamEnd.WithLabelValues(reason).Inc()
	}
}

// AddProxyBytes adds n written bytes.
func AddProxyBytes(n int) {
	if n > 0 {
		proxyBytesTotal.Add(float64(n))
	}
}

// RecordUpstreamResponse counts an upstream status and its header latency.
func RecordUpstreamResponse(status int, latency time.Duration) {
	proxyUpstreamResponses.WithLabelValues(strconv.Itoa(status)).Inc()
	if status > 0 {
		proxyTimeToHeaders.Observe(latency.Seconds())
	}
}
