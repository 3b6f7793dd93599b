// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package signing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ManuGH/lessonstream/internal/locator"
	"github.com/ManuGH/lessonstream/internal/log"
	"github.com/ManuGH/lessonstream/internal/metrics"
	"github.com/ManuGH/lessonstream/internal/resilience"
	"github.com/ManuGH/lessonstream/internal/video"
	"github.com/avast/retry-go/v4"
)

// Default lifetimes of issued URLs.
const (
	// DefaultIssueTTL applies to URLs handed to clients.
	DefaultIssueTTL = 3600 * time.Second
	// DefaultStreamTTL applies to URLs the proxy fetches right away.
	DefaultStreamTTL = 60 * time.Second
)

// SignedAccessURL is a freshly issued grant. ExpiresIn is nil when the URL
// is not time-bounded, e.g. an external URL returned unchanged.
type SignedAccessURL struct {
	URL       string `json:"url"`
	ExpiresIn *int   `json:"expiresIn"`
}

// IssuerOptions configure retry and breaker behaviour around the signer.
type IssuerOptions struct {
	// Attempts is the number of signing calls per Issue; 1 disables retry.
	Attempts int
	// Timeout bounds each signing call.
	Timeout          time.Duration
	RetryDelay       time.Duration
	BreakerThreshold int
	BreakerReset     time.Duration
}

// Issuer turns locators into playable URLs.
type Issuer struct {
	signer   Signer
	breaker  *resilience.CircuitBreaker
	attempts uint
	timeout  time.Duration
	delay    time.Duration
}

// NewIssuer wraps signer with a circuit breaker and an optional single retry.
func NewIssuer(signer Signer, opts IssuerOptions) *Issuer {
	attempts := opts.Attempts
	if attempts < 1 {
		attempts = 1
	}
	delay := opts.RetryDelay
	if delay <= 0 {
		delay = 200 * time.Millisecond
	}
	return &Issuer{
		signer: signer,
		breaker: resilience.NewCircuitBreaker("signing_"+signer.Name(), opts.BreakerThreshold, opts.BreakerReset,
			resilience.WithFailurePredicate(Transient)),
		attempts: uint(attempts),
		timeout:  opts.Timeout,
		delay:    delay,
	}
}

// Backend names the underlying signer.
func (i *Issuer) Backend() string {
	return i.signer.Name()
}

// BreakerState reports the state of the signing circuit breaker.
func (i *Issuer) BreakerState() resilience.State {
	return i.breaker.State()
}

// Issue returns a playable URL for loc. Storage objects, including public
// storage URLs, are signed for ttl; any other absolute URL passes through
// without expiry. Every call produces a new grant.
func (i *Issuer) Issue(ctx context.Context, loc locator.Locator, ttl time.Duration) (SignedAccessURL, error) {
	const op = "sign"

	if loc.IsZero() {
		return SignedAccessURL{}, video.E(op, video.KindInternal, errors.New("empty locator"))
	}

	bucket, path, ok := loc.StorageObject()
	if !ok {
		metrics.ObserveSigning(i.Backend(), "passthrough", 0)
		return SignedAccessURL{URL: loc.URL()}, nil
	}

	if ttl <= 0 {
		ttl = DefaultIssueTTL
	}
	seconds := ttlSeconds(ttl)

	logger := log.WithComponentFromContext(ctx, "signing")
	start := time.Now()

	signed, err := retry.DoWithData(
		func() (string, error) {
			return i.signOnce(ctx, bucket, path, time.Duration(seconds)*time.Second)
		},
		retry.Context(ctx),
		retry.Attempts(i.attempts),
		retry.Delay(i.delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(Transient),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn().Err(err).Uint("attempt", n+1).Str(log.FieldBucket, bucket).Msg("retrying signing call")
		}),
	)
	if err != nil {
		result := "failure"
		if errors.Is(err, resilience.ErrCircuitOpen) {
			result = "rejected"
		}
		metrics.ObserveSigning(i.Backend(), result, time.Since(start))
		return SignedAccessURL{}, video.E(op, video.KindSigningFailure,
			fmt.Errorf("%s %s: %w", i.Backend(), locator.StoragePath(bucket, path), err))
	}

	metrics.ObserveSigning(i.Backend(), "success", time.Since(start))
	logger.Debug().
		Str(log.FieldBucket, bucket).
		Str(log.FieldObjectPath, path).
		Int("ttl_seconds", seconds).
		Msg("signed url issued")
	return SignedAccessURL{URL: signed, ExpiresIn: &seconds}, nil
}

func (i *Issuer) signOnce(ctx context.Context, bucket, path string, ttl time.Duration) (string, error) {
	var signed string
	err := i.breaker.Do(ctx, func(ctx context.Context) error {
		if i.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, i.timeout)
			defer cancel()
		}
		var err error
		signed, err = i.signer.Sign(ctx, bucket, path, ttl)
		return err
	})
	return signed, err
}

func ttlSeconds(ttl time.Duration) int {
	s := int(math.Ceil(ttl.Seconds()))
	if s < 1 {
		s = 1
	}
	return s
}
