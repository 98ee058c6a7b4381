package objectstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSStore uploads model artifacts to a Google Cloud Storage bucket.
type GCSStore struct {
	client   *storage.Client
	bucketID string
	bucket   *storage.BucketHandle
}

// NewGCSStore creates a new GCS-backed store with the provided credentials
// and bucket ID, validating that the bucket is reachable.
func NewGCSStore(ctx context.Context, credentialsJSON string, bucketID string) (*GCSStore, error) {
	if credentialsJSON == "" {
		return nil, fmt.Errorf("credentials JSON string cannot be empty")
	}
	if bucketID == "" {
		return nil, fmt.Errorf("bucket ID cannot be empty")
	}

	var creds map[string]interface{}
	if err := json.Unmarshal([]byte(credentialsJSON), &creds); err != nil {
		return nil, fmt.Errorf("invalid credentials JSON format: %w", err)
	}

	client, err := storage.NewClient(ctx, option.WithCredentialsJSON([]byte(credentialsJSON)))
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	bucket := client.Bucket(bucketID)
	if _, err := bucket.Attrs(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to access bucket %s: %w", bucketID, err)
	}

	return &GCSStore{
		client:   client,
		bucketID: bucketID,
		bucket:   bucket,
	}, nil
}

func (g *GCSStore) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("key cannot be empty")
	}
	writer := g.bucket.Object(key).NewWriter(ctx)
	writer.ContentType = contentType
	if _, err := io.Copy(writer, body); err != nil {
		writer.Close()
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize upload of %s: %w", key, err)
	}
	return URI("gs", g.bucketID, key), nil
}

func (g *GCSStore) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	if key == "" {
		return nil, fmt.Errorf("key cannot be empty")
	}
	reader, err := g.bucket.Object(key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", key, err)
	}
	return reader, nil
}

func (g *GCSStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("key cannot be empty")
	}
	if err := g.bucket.Object(key).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}

func (g *GCSStore) PresignGet(_ context.Context, key string, expiry time.Duration) (string, error) {
	if key == "" {
		return "", fmt.Errorf("key cannot be empty")
	}
	url, err := g.bucket.SignedURL(key, &storage.SignedURLOptions{
		Method:  "GET",
		Expires: time.Now().Add(expiry),
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate signed URL for %s: %w", key, err)
	}
	return url, nil
}

// Close closes the underlying GCS client.
func (g *GCSStore) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// BucketName returns the bucket name.
func (g *GCSStore) BucketName() string {
	return g.bucketID
}
