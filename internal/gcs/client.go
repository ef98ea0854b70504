package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// uploadTimeout bounds a single object upload.
const uploadTimeout = 2 * time.Minute

// Client is the Service implementation backed by Google Cloud Storage.
type Client struct {
	client *storage.Client
}

// NewClient creates a storage client. An empty credentialsFile falls back
// to Application Default Credentials.
func NewClient(ctx context.Context, credentialsFile string) (*Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewClient: creating storage client: %w", err)
	}
	return &Client{client: client}, nil
}

// Close releases the underlying client.
func (c *Client) Close() error {
	return c.client.Close()
}

// Fetch implements Service.
func (c *Client) Fetch(ctx context.Context, uri string) ([]byte, error) {
	bucket, object, err := ParseURI(uri, false)
	if err != nil {
		return nil, err
	}

	rc, err := c.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("Fetch: reading object %s/%s: %w", bucket, object, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("Fetch: reading bytes: %w", err)
	}
	return data, nil
}

// Upload implements Service.
func (c *Client) Upload(ctx context.Context, uri string, r io.Reader, contentType string) error {
	bucket, object, err := ParseURI(uri, false)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := c.client.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("Upload: copy to GCS writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("Upload: finalize upload: %w", err)
	}
	return nil
}

// List implements Service.
func (c *Client) List(ctx context.Context, uri string) ([]Object, error) {
	bucket, prefix, err := ParseURI(uri, true)
	if err != nil {
		return nil, err
	}

	var out []Object
	it := c.client.Bucket(bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("List: iterating %s: %w", uri, err)
		}
		out = append(out, Object{
			URI:     fmt.Sprintf("gs://%s/%s", attrs.Bucket, attrs.Name),
			Name:    attrs.Name,
			Size:    attrs.Size,
			Updated: attrs.Updated,
		})
	}
	return out, nil
}

var _ Service = (*Client)(nil)
