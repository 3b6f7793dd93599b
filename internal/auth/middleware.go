// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package auth

import (
	"encoding/json"
	"net/http"

	"github.com/ManuGH/lessonstream/internal/log"
)

// Authenticator resolves request tokens into principals.
type Authenticator struct {
	staticToken string
	verifier    *Verifier
	allowQuery  bool
}

// NewAuthenticator accepts the static API token and/or JWTs signed with
// jwtSecret. With neither configured every protected request is rejected.
func NewAuthenticator(staticToken, jwtSecret string, allowQuery bool) *Authenticator {
	return &Authenticator{
		staticToken: staticToken,
		verifier:    NewVerifier(jwtSecret),
		allowQuery:  allowQuery,
	}
}

// Authenticate returns the principal for r, or nil.
func (a *Authenticator) Authenticate(r *http.Request) *Principal {
	token := ExtractToken(r, a.allowQuery)
	if token == "" {
		return nil
	}
	if AuthorizeToken(token, a.staticToken) {
		return NewStaticPrincipal(token)
	}
	if a.verifier == nil {
		return nil
	}
	p, err := a.verifier.Verify(token)
	if err != nil {
		logger := log.WithComponentFromContext(r.Context(), "auth")
		logger.Debug().Err(err).Msg("token rejected")
		return nil
	}
	return p
}

// Require rejects requests without a valid principal with 401 and stores
// the principal in the request context otherwise.
func (a *Authenticator) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := a.Authenticate(r)
		if p == nil {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("WWW-Authenticate", `Bearer realm="lessonstream"`)
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "Unauthorized"})
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}
