// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package locator classifies stored or client supplied video references into
// either a directly fetchable URL or a bucket-relative object path.
//
// Classify is the only place that knows the shape of object storage URLs. The
// resolver, the signing issuer, the proxy handler and the authoring path all go
// through it so a reference yields the same (bucket, path) wherever it came from.
package locator

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// DefaultBucket is used for bare paths when no bucket is configured.
const DefaultBucket = "videos"

// storageObjectPrefix is the path prefix of object URLs served by the storage service.
const storageObjectPrefix = "/storage/v1/object/"

var (
	// ErrEmpty is returned when there is nothing to classify.
	ErrEmpty = errors.New("locator: empty reference")
	// ErrInvalid is returned for references that look like URLs but cannot be parsed.
	ErrInvalid = errors.New("locator: invalid reference")
)

// Kind tags the active representation of a Locator.
type Kind uint8

const (
	KindAbsoluteURL Kind = iota + 1
	KindStoragePath
)

func (k Kind) String() string {
	switch k {
	case KindAbsoluteURL:
		return "absolute_url"
	case KindStoragePath:
		return "storage_path"
	default:
		return "unknown"
	}
}

// Access is the access segment of a storage object URL.
type Access string

const (
	AccessPublic Access = "public"
	AccessSign   Access = "sign"
)

// Locator is where a video lives. Exactly one of the URL or the (bucket, path)
// representation is active, selected by Kind. The zero value is invalid.
//
// An AbsoluteURL that was recognized as a public storage object URL keeps its
// decomposition so it can be re-signed; see StorageObject.
type Locator struct {
	kind   Kind
	url    string
	bucket string
	path   string
	access Access
}

// AbsoluteURL returns a locator for a directly fetchable address.
func AbsoluteURL(u string) Locator {
	return Locator{kind: KindAbsoluteURL, url: u}
}

// StoragePath returns a locator for an object that must be signed before fetching.
func StoragePath(bucket, path string) Locator {
	return Locator{kind: KindStoragePath, bucket: bucket, path: path}
}

func (l Locator) Kind() Kind   { return l.kind }
func (l Locator) IsZero() bool { return l.kind == 0 }

// URL returns the address of an AbsoluteURL locator and "" otherwise.
func (l Locator) URL() string {
	if l.kind != KindAbsoluteURL {
		return ""
	}
	return l.url
}

// Bucket returns the bucket of a StoragePath locator and "" otherwise.
func (l Locator) Bucket() string {
	if l.kind != KindStoragePath {
		return ""
	}
	return l.bucket
}

// Path returns the object path of a StoragePath locator and "" otherwise.
func (l Locator) Path() string {
	if l.kind != KindStoragePath {
		return ""
	}
	return l.path
}

// StorageObject reports the (bucket, path) pair behind the locator: always for a
// StoragePath, and for an AbsoluteURL only when it is a storage object URL.
func (l Locator) StorageObject() (bucket, path string, ok bool) {
	if l.kind == KindStoragePath || l.access != "" {
		return l.bucket, l.path, true
	}
	return "", "", false
}

// Access returns the storage access segment the locator was parsed from, if any.
func (l Locator) Access() Access { return l.access }

// String renders the locator for logs. Query strings are dropped so signed
// tokens never end up in log output.
func (l Locator) String() string {
	switch l.kind {
	case KindStoragePath:
		return fmt.Sprintf("storage://%s/%s", l.bucket, l.path)
	case KindAbsoluteURL:
		return Redact(l.url)
	default:
		return "<none>"
	}
}

// Classify turns a raw reference into a Locator:
//   - ".../storage/v1/object/sign/{bucket}/{path}" becomes StoragePath(bucket, path),
//     since a previously signed URL may have expired and must be re-signed;
//   - ".../storage/v1/object/public/{bucket}/{path}" stays a directly fetchable
//     AbsoluteURL that still carries its (bucket, path);
//   - any other http(s) URL is an opaque AbsoluteURL;
//   - anything else is a path inside defaultBucket (DefaultBucket when empty).
func Classify(raw, defaultBucket string) (Locator, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return Locator{}, ErrEmpty
	}

	if !hasURLScheme(value) {
		path := strings.TrimLeft(value, "/")
		if path == "" {
			return Locator{}, fmt.Errorf("%w: %q", ErrInvalid, raw)
		}
		if defaultBucket == "" {
			defaultBucket = DefaultBucket
		}
		return StoragePath(defaultBucket, path), nil
	}

	u, err := url.Parse(value)
	if err != nil || u.Host == "" {
		return Locator{}, fmt.Errorf("%w: %q", ErrInvalid, Redact(value))
	}

	access, bucket, path, ok := splitStorageObjectPath(u.Path)
	if !ok {
		return AbsoluteURL(value), nil
	}
	if access == AccessSign {
		return StoragePath(bucket, path), nil
	}
	return Locator{kind: KindAbsoluteURL, url: value, bucket: bucket, path: path, access: access}, nil
}

// ObjectURL builds the storage object URL for bucket/path under baseURL.
// Path segments are escaped individually so "/" keeps separating folders.
func ObjectURL(baseURL string, access Access, bucket, path string) string {
	return strings.TrimRight(baseURL, "/") + storageObjectPrefix + string(access) + "/" +
		url.PathEscape(bucket) + "/" + EscapePath(path)
}

// EscapePath escapes every segment of an object path.
func EscapePath(path string) string {
	segments := strings.Split(path, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

// Redact strips user info, query and fragment from a URL for safe logging.
func Redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "invalid-url-redacted"
	}
	u.User = nil
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

func hasURLScheme(v string) bool {
	lower := strings.ToLower(v)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func splitStorageObjectPath(p string) (Access, string, string, bool) {
	idx := strings.Index(p, storageObjectPrefix)
	if idx < 0 {
		return "", "", "", false
	}
	rest := p[idx+len(storageObjectPrefix):]
	parts := strings.SplitN(rest, "/", 3)
	if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
		return "", "", "", false
	}
	access := Access(parts[0])
	if access != AccessPublic && access != AccessSign {
		return "", "", "", false
	}
	return access, parts[1], parts[2], true
}
