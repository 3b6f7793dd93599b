// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package signing

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// S3Options select the S3 compatible endpoint.
type S3Options struct {
	Region string
	// Endpoint overrides the AWS endpoint, e.g. for MinIO.
	Endpoint  string
	PathStyle bool
	// Timeout bounds SDK calls such as credential lookups. Zero keeps the
	// SDK default.
	Timeout time.Duration
}

// S3Signer presigns GetObject requests. Presigning is local and needs no
// round trip; the URL fails at fetch time if the object is missing.
type S3Signer struct {
	presign *s3.PresignClient
}

// NewS3Signer loads credentials from the default AWS chain. The HTTP client
// must stay an SDK BuildableClient for AWS_CA_BUNDLE to apply.
func NewS3Signer(ctx context.Context, opts S3Options) (*S3Signer, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
		awsconfig.WithHTTPClient(sdkHTTPClient(opts.Timeout)),
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("s3: load sdk config: %w", err)
	}
	return NewS3SignerFromConfig(cfg, opts), nil
}

func sdkHTTPClient(timeout time.Duration) *awshttp.BuildableClient {
	client := awshttp.NewBuildableClient()
	if timeout <= 0 {
		return client
	}
	return client.
		WithTimeout(timeout).
		WithDialerOptions(func(d *net.Dialer) { d.Timeout = min(timeout, d.Timeout) }).
		WithTransportOptions(func(tr *http.Transport) { tr.ResponseHeaderTimeout = timeout })
}

// NewS3SignerFromConfig builds a signer from an explicit SDK config.
func NewS3SignerFromConfig(cfg aws.Config, opts S3Options) *S3Signer {
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.PathStyle
	})
	return &S3Signer{presign: s3.NewPresignClient(client)}
}

func (s *S3Signer) Name() string { return "s3" }

// Sign presigns a GET for bucket/path valid for ttl.
func (s *S3Signer) Sign(ctx context.Context, bucket, path string, ttl time.Duration) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(path),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			return "", &StatusError{Backend: s.Name(), Status: http.StatusBadGateway, Message: apiErr.ErrorMessage()}
		}
		return "", fmt.Errorf("s3: presign: %w", err)
	}
	return req.URL, nil
}
