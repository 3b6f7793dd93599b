// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package signing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ManuGH/lessonstream/internal/locator"
)

const maxErrorBody = 4 << 10

// SupabaseSigner signs objects through the storage REST API:
// POST {base}/storage/v1/object/sign/{bucket}/{path}.
type SupabaseSigner struct {
	baseURL    string
	serviceKey string
	client     *http.Client
}

// NewSupabaseSigner creates a signer for the project at baseURL.
func NewSupabaseSigner(baseURL, serviceKey string, client *http.Client) (*SupabaseSigner, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("supabase: invalid base url %q", baseURL)
	}
	if serviceKey == "" {
		return nil, errors.New("supabase: service key is required")
	}
	if client == nil {
		return nil, errors.New("supabase: http client is required")
	}
	return &SupabaseSigner{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		client:     client,
	}, nil
}

func (s *SupabaseSigner) Name() string { return "supabase" }

type signRequest struct {
	ExpiresIn int `json:"expiresIn"`
}

type signResponse struct {
	SignedURL string `json:"signedURL"`
	// Older storage versions used this spelling.
	SignedURLLegacy string `json:"signedUrl"`
}

type storageError struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Sign returns an absolute signed URL for bucket/path valid for ttl.
func (s *SupabaseSigner) Sign(ctx context.Context, bucket, path string, ttl time.Duration) (string, error) {
	body, err := json.Marshal(signRequest{ExpiresIn: ttlSeconds(ttl)})
	if err != nil {
		return "", err
	}

	endpoint := locator.ObjectURL(s.baseURL, locator.AccessSign, bucket, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("supabase: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	req.Header.Set("apikey", s.serviceKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("supabase: sign request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var se storageError
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		_ = json.Unmarshal(raw, &se)
		msg := se.Message
		if msg == "" {
			msg = se.Error
		}
		return "", &StatusError{Backend: s.Name(), Status: resp.StatusCode, Message: msg}
	}

	var out signResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxErrorBody)).Decode(&out); err != nil {
		return "", fmt.Errorf("supabase: decode sign response: %w", err)
	}
	signed := out.SignedURL
	if signed == "" {
		signed = out.SignedURLLegacy
	}
	if signed == "" {
		return "", errors.New("supabase: sign response carries no url")
	}
	return s.absolute(signed), nil
}

// absolute resolves the relative "/object/sign/..." path the API returns.
func (s *SupabaseSigner) absolute(signed string) string {
	if strings.HasPrefix(signed, "http://") || strings.HasPrefix(signed, "https://") {
		return signed
	}
	if !strings.HasPrefix(signed, "/") {
		signed = "/" + signed
	}
	if strings.HasPrefix(signed, "/storage/v1/") {
		return s.baseURL + signed
	}
	return s.baseURL + "/storage/v1" + signed
}
