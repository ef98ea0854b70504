// Package gcs moves ledger workbooks to and from Google Cloud Storage.
package gcs

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// Service provides the cloud storage operations used by imports, exports
// and snapshot listings. Client implements it against Cloud Storage.
type Service interface {
	// Fetch downloads the object at a gs:// URI.
	Fetch(ctx context.Context, uri string) ([]byte, error)

	// Upload writes r to the object at a gs:// URI.
	Upload(ctx context.Context, uri string, r io.Reader, contentType string) error

	// List returns the objects under a gs://bucket/prefix URI.
	List(ctx context.Context, uri string) ([]Object, error)
}

// Object describes one stored object.
type Object struct {
	URI     string    `json:"uri" yaml:"uri"`
	Name    string    `json:"name" yaml:"name"`
	Size    int64     `json:"size" yaml:"size"`
	Updated time.Time `json:"updated" yaml:"updated"`
}

// ParseURI splits "gs://bucket/path/to/object" into bucket and object
// path. The object path may be empty when allowPrefix is set, which is the
// form List accepts.
func ParseURI(uri string, allowPrefix bool) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}

	trimmed := strings.TrimPrefix(uri, "gs://")
	bucket, object, _ = strings.Cut(trimmed, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no bucket): %s", uri)
	}
	if object == "" && !allowPrefix {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return bucket, object, nil
}

// IsURI reports whether s names a Cloud Storage object.
func IsURI(s string) bool {
	return strings.HasPrefix(s, "gs://")
}

// Filename extracts the last path element of a gs:// URI.
// e.g., "gs://bucket/folder/ledger.xlsx" → "ledger.xlsx"
func Filename(uri string) string {
	trimmed := strings.TrimPrefix(uri, "gs://")
	_, object, ok := strings.Cut(trimmed, "/")
	if !ok || object == "" {
		return trimmed
	}
	return path.Base(object)
}
