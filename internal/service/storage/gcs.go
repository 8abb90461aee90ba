package storage

import (
	"context"
	"fmt"
	"strings"

	gcs "cloud.google.com/go/storage"
)

// GCSBackend uploads objects to a Google Cloud Storage bucket and returns
// their public URL. Read access is expected to be granted by bucket policy.
type GCSBackend struct {
	client  *gcs.Client
	bucket  string
	baseURL string
}

// NewGCSBackend uses application default credentials.
func NewGCSBackend(ctx context.Context, bucket, baseURL string) (*GCSBackend, error) {
	if bucket == "" {
		return nil, fmt.Errorf("gcs backend requires a bucket name")
	}

	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcs client: %w", err)
	}

	return &GCSBackend{
		client:  client,
		bucket:  bucket,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// Store uploads data as bucket/name. The write is conditional on the object
// not existing yet.
func (b *GCSBackend) Store(ctx context.Context, data []byte, name, contentType string) (string, error) {
	obj := b.client.Bucket(b.bucket).Object(name).If(gcs.Conditions{DoesNotExist: true})

	w := obj.NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "public, max-age=86400"

	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", fmt.Errorf("failed to upload %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize %s: %w", name, err)
	}

	return fmt.Sprintf("%s/%s/%s", b.baseURL, b.bucket, name), nil
}

func (b *GCSBackend) Close() error {
	return b.client.Close()
}
