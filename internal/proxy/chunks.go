// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package proxy

import (
	"context"
	"errors"
	"io"
	"iter"

	"github.com/ManuGH/lessonstream/internal/metrics"
)

// chunks yields successive reads from r until EOF or the first error.
// The sequence is single use. The yielded slice is reused by the next read,
// so consumers must be done with a chunk before asking for the next one.
func chunks(r io.Reader, size int) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		buf := make([]byte, size)
		for {
			n, err := r.Read(buf)
			if n > 0 {
				if !yield(buf[:n], nil) {
					return
				}
			}
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
		}
	}
}

// A read that fails after the request context ended was torn down by the
// client leaving, not by the upstream.
func endReasonForReadError(ctx context.Context, err error) string {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return metrics.EndReasonClientGone
	}
	return metrics.EndReasonUpstreamError
}
