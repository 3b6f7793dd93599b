// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package auth authenticates callers of the protected video endpoints.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// Principal sources.
const (
	SourceStaticToken = "static_token"
	SourceJWT         = "jwt"
)

// Principal represents the authenticated identity of a caller. The video
// core only needs it to be present; the fields are carried for logging.
type Principal struct {
	// ID is stable per caller: the username, or a hash of a static token.
	ID       string
	Username string
	LabID    string
	Role     string
	Source   string
}

// NewStaticPrincipal derives a principal for the configured API token.
func NewStaticPrincipal(token string) *Principal {
	// "t_" prefix keeps hashed ids apart from usernames.
	hash := sha256.Sum256([]byte(token))
	return &Principal{
		ID:     "t_" + hex.EncodeToString(hash[:])[:16],
		Role:   "service",
		Source: SourceStaticToken,
	}
}

type principalKey struct{}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the authenticated caller, or nil.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey{}).(*Principal)
	return p
}
