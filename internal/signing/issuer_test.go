// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package signing

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/ManuGH/lessonstream/internal/locator"
	"github.com/ManuGH/lessonstream/internal/resilience"
	"github.com/ManuGH/lessonstream/internal/video"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSigner struct {
	mock.Mock
}

func (m *mockSigner) Name() string { return "mock" }

func (m *mockSigner) Sign(ctx context.Context, bucket, path string, ttl time.Duration) (string, error) {
	args := m.Called(bucket, path, ttl)
	return args.String(0), args.Error(1)
}

func TestIssue_StoragePath(t *testing.T) {
	signer := &mockSigner{}
	signer.On("Sign", "videos", "a.mp4", 60*time.Second).Return("https://signed/a.mp4?token=1", nil).Once()

	got, err := NewIssuer(signer, IssuerOptions{}).Issue(context.Background(), locator.StoragePath("videos", "a.mp4"), DefaultStreamTTL)
	require.NoError(t, err)

	assert.Equal(t, "https://signed/a.mp4?token=1", got.URL)
	require.NotNil(t, got.ExpiresIn)
	assert.Equal(t, 60, *got.ExpiresIn)
	signer.AssertExpectations(t)
}

func TestIssue_PublicStorageURLIsResigned(t *testing.T) {
	loc, err := locator.Classify("https://proj.supabase.co/storage/v1/object/public/course/x/y.mp4", "videos")
	require.NoError(t, err)

	signer := &mockSigner{}
	signer.On("Sign", "course", "x/y.mp4", time.Hour).Return("https://signed/y", nil)

	got, err := NewIssuer(signer, IssuerOptions{}).Issue(context.Background(), loc, 0)
	require.NoError(t, err)
	assert.Equal(t, 3600, *got.ExpiresIn, "zero ttl falls back to the issue default")
}

func TestIssue_ExternalURLPassesThrough(t *testing.T) {
	signer := &mockSigner{}
	loc, err := locator.Classify("https://cdn.example.com/intro.mp4", "videos")
	require.NoError(t, err)

	got, err := NewIssuer(signer, IssuerOptions{}).Issue(context.Background(), loc, time.Hour)
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example.com/intro.mp4", got.URL)
	assert.Nil(t, got.ExpiresIn)
	signer.AssertNotCalled(t, "Sign", mock.Anything, mock.Anything, mock.Anything)
}

func TestIssue_FailureIsSigningFailure(t *testing.T) {
	signer := &mockSigner{}
	signer.On("Sign", "videos", "gone.mp4", time.Hour).
		Return("", &StatusError{Backend: "mock", Status: http.StatusNotFound, Message: "Object not found"}).Once()

	_, err := NewIssuer(signer, IssuerOptions{Attempts: 2}).Issue(context.Background(), locator.StoragePath("videos", "gone.mp4"), time.Hour)
	require.Error(t, err)
	assert.Equal(t, video.KindSigningFailure, video.KindOf(err))
	// Not transient, so the second attempt is not used.
	signer.AssertExpectations(t)
}

func TestIssue_SingleRetryOnTransientError(t *testing.T) {
	signer := &mockSigner{}
	signer.On("Sign", "videos", "a.mp4", time.Hour).
		Return("", &StatusError{Backend: "mock", Status: http.StatusServiceUnavailable}).Once()
	signer.On("Sign", "videos", "a.mp4", time.Hour).Return("https://signed/a", nil).Once()

	issuer := NewIssuer(signer, IssuerOptions{Attempts: 2, RetryDelay: time.Millisecond})
	got, err := issuer.Issue(context.Background(), locator.StoragePath("videos", "a.mp4"), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "https://signed/a", got.URL)
	signer.AssertNumberOfCalls(t, "Sign", 2)
}

func TestIssue_NoRetryByDefault(t *testing.T) {
	signer := &mockSigner{}
	signer.On("Sign", "videos", "a.mp4", time.Hour).
		Return("", &StatusError{Backend: "mock", Status: http.StatusBadGateway})

	_, err := NewIssuer(signer, IssuerOptions{}).Issue(context.Background(), locator.StoragePath("videos", "a.mp4"), time.Hour)
	require.Error(t, err)
	signer.AssertNumberOfCalls(t, "Sign", 1)
}

func TestIssue_BreakerOpens(t *testing.T) {
	signer := &mockSigner{}
	signer.On("Sign", "videos", "a.mp4", time.Hour).
		Return("", &StatusError{Backend: "mock", Status: http.StatusInternalServerError})

	issuer := NewIssuer(signer, IssuerOptions{BreakerThreshold: 2, BreakerReset: time.Minute})
	loc := locator.StoragePath("videos", "a.mp4")
	for i := 0; i < 2; i++ {
		_, err := issuer.Issue(context.Background(), loc, time.Hour)
		require.Error(t, err)
	}

	_, err := issuer.Issue(context.Background(), loc, time.Hour)
	require.Error(t, err)
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, video.KindSigningFailure, video.KindOf(err))
	signer.AssertNumberOfCalls(t, "Sign", 2)
}

// Repeated issuance never reuses a grant and keeps succeeding.
func TestIssue_FreshGrantPerCall(t *testing.T) {
	signer := &mockSigner{}
	signer.On("Sign", "videos", "a.mp4", time.Hour).Return("https://signed/a?token=1", nil).Once()
	signer.On("Sign", "videos", "a.mp4", time.Hour).Return("https://signed/a?token=2", nil).Once()

	issuer := NewIssuer(signer, IssuerOptions{})
	loc := locator.StoragePath("videos", "a.mp4")
	first, err := issuer.Issue(context.Background(), loc, time.Hour)
	require.NoError(t, err)
	second, err := issuer.Issue(context.Background(), loc, time.Hour)
	require.NoError(t, err)
	assert.NotEqual(t, first.URL, second.URL)
}

func TestIssue_ZeroLocator(t *testing.T) {
	_, err := NewIssuer(&mockSigner{}, IssuerOptions{}).Issue(context.Background(), locator.Locator{}, time.Hour)
	assert.Equal(t, video.KindInternal, video.KindOf(err))
}

func TestTransient(t *testing.T) {
	assert.True(t, Transient(&StatusError{Status: http.StatusTooManyRequests}))
	assert.True(t, Transient(&StatusError{Status: http.StatusBadGateway}))
	assert.False(t, Transient(&StatusError{Status: http.StatusNotFound}))
	assert.False(t, Transient(context.Canceled))
	assert.True(t, Transient(context.DeadlineExceeded))
	assert.False(t, Transient(errors.New("plain")))
	assert.False(t, Transient(nil))
}

func TestTTLSeconds(t *testing.T) {
	assert.Equal(t, 1, ttlSeconds(10*time.Millisecond))
	assert.Equal(t, 60, ttlSeconds(time.Minute))
	assert.Equal(t, 2, ttlSeconds(1500*time.Millisecond))
}
