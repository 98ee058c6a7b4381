package objectstore

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Store uploads model artifacts to an S3 bucket.
type S3Store struct {
	client   *s3.Client
	presign  *s3.PresignClient
	bucketID string
}

// S3Config represents S3 configuration.
type S3Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Endpoint        string // Optional for custom endpoints like MinIO
}

// NewS3Store creates a new S3-backed store with the provided credentials and
// bucket ID, validating that the bucket is reachable.
func NewS3Store(ctx context.Context, s3Config S3Config, bucketID string) (*S3Store, error) {
	if s3Config.AccessKeyID == "" {
		return nil, fmt.Errorf("access key ID cannot be empty")
	}
	if s3Config.SecretAccessKey == "" {
		return nil, fmt.Errorf("secret access key cannot be empty")
	}
	if s3Config.Region == "" {
		return nil, fmt.Errorf("region cannot be empty")
	}
	if bucketID == "" {
		return nil, fmt.Errorf("bucket ID cannot be empty")
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s3Config.AccessKeyID,
			s3Config.SecretAccessKey,
			"",
		)),
		awsconfig.WithRegion(s3Config.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var client *s3.Client
	if s3Config.Endpoint != "" {
		client = s3.NewFromConfig(cfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(s3Config.Endpoint)
			o.UsePathStyle = true // Required for MinIO and some custom endpoints
		})
	} else {
		client = s3.NewFromConfig(cfg)
	}

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(bucketID),
	}); err != nil {
		return nil, fmt.Errorf("failed to access bucket %s: %w", bucketID, err)
	}

	return &S3Store{
		client:   client,
		presign:  s3.NewPresignClient(client),
		bucketID: bucketID,
	}, nil
}

func (s *S3Store) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("key cannot be empty")
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketID),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return URI("s3", s.bucketID, key), nil
}

func (s *S3Store) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	if key == "" {
		return nil, fmt.Errorf("key cannot be empty")
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketID),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", key, err)
	}
	return out.Body, nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("key cannot be empty")
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucketID),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if key == "" {
		return "", fmt.Errorf("key cannot be empty")
	}
	request, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketID),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = expiry
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL for %s: %w", key, err)
	}
	return request.URL, nil
}

// BucketName returns the bucket name.
func (s *S3Store) BucketName() string {
	return s.bucketID
}
