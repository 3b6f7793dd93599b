// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DevTokenTTL is the lifetime of development tokens.
const DevTokenTTL = 24 * time.Hour

var ErrInvalidToken = errors.New("auth: invalid token")

// Claims is the token payload issued by the surrounding application.
type Claims struct {
	Username string `json:"username"`
	LabID    string `json:"labid"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Verifier checks HS256 tokens signed with a shared secret.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

// NewVerifier returns nil when secret is empty, disabling JWT auth.
func NewVerifier(secret string) *Verifier {
	if secret == "" {
		return nil
	}
	return &Verifier{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(30*time.Second),
		),
	}
}

// Verify parses token and returns the principal it carries.
func (v *Verifier) Verify(token string) (*Principal, error) {
	var claims Claims
	_, err := v.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Username == "" {
		return nil, fmt.Errorf("%w: missing username", ErrInvalidToken)
	}
	return &Principal{
		ID:       claims.Username,
		Username: claims.Username,
		LabID:    claims.LabID,
		Role:     claims.Role,
		Source:   SourceJWT,
	}, nil
}

// DevTokenRequest describes a development token. Empty fields get the
// defaults the dev tooling has always used.
type DevTokenRequest struct {
	Role     string
	Username string
	LabID    string
	TTL      time.Duration
}

// IssueDevToken signs an HS256 token for local testing.
func IssueDevToken(secret string, req DevTokenRequest, now time.Time) (string, error) {
	if secret == "" {
		return "", errors.New("auth: jwt secret is required")
	}
	if req.Role == "" {
		req.Role = "student"
	}
	if req.Username == "" {
		req.Username = "test_" + req.Role
	}
	if req.LabID == "" {
		req.LabID = "lab_123"
	}
	if req.TTL <= 0 {
		req.TTL = DevTokenTTL
	}

	claims := Claims{
		Username: req.Username,
		LabID:    req.LabID,
		Role:     req.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(req.TTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
