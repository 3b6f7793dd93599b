// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import "net/http"

// responseGuard records whether the response has started. It is created per
// request and handed explicitly to everything that may write, so error
// rendering can tell whether a status line is still possible.
type responseGuard struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func newResponseGuard(w http.ResponseWriter) *responseGuard {
	return &responseGuard{ResponseWriter: w}
}

func (g *responseGuard) WriteHeader(code int) {
	if g.status == 0 {
		g.status = code
	}
	g.ResponseWriter.WriteHeader(code)
}

func (g *responseGuard) Write(b []byte) (int, error) {
	if g.status == 0 {
		g.status = http.StatusOK
	}
	n, err := g.ResponseWriter.Write(b)
	g.bytes += int64(n)
	return n, err
}

// Unwrap lets http.ResponseController reach Flush on the underlying writer.
func (g *responseGuard) Unwrap() http.ResponseWriter {
	return g.ResponseWriter
}

// HeadersSent reports whether a status line has been written.
func (g *responseGuard) HeadersSent() bool {
	return g.status != 0
}
