// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	signingTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lessonstream_signing_total",
		Help: "Signed URL issuance attempts by backend and result",
	}, []string{"backend", "result"})

	signingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lessonstream_signing_duration_seconds",
		Help:    "Latency of storage signing calls",
		Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"backend"})

	resolveTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lessonstream_resolve_total",
		Help: "Video reference resolutions by origin (video_record, legacy_field, not_found)",
	}, []string{"origin"})
)

// ObserveSigning records one signing call. result is "success", "failure",
// "passthrough" or "rejected".
func ObserveSigning(backend, result string, d time.Duration) {
	signingTotal.WithLabelValues(backend, result).Inc()
	if result == "success" || result == "failure" {
		signingDuration.WithLabelValues(backend).Observe(d.Seconds())
	}
}

// IncResolve counts a resolution outcome.
func IncResolve(origin string) {
	resolveTotal.WithLabelValues(origin).Inc()
}
