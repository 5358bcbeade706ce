package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/castellanosdev/taller-ordenes/backend/internal/config"
)

// S3Store keeps objects in an S3-compatible bucket. Keys mirror the
// relative layout of the local store, so the database pointers are the
// same for both backends.
type S3Store struct {
	client        *s3.Client
	presignClient *s3.PresignClient
	bucket        string
	presignExpiry time.Duration
}

// NewS3Store creates an S3Store from uploads configuration
func NewS3Store(cfg *config.UploadsConfig) (*S3Store, error) {
	// Handle the case where the endpoint already includes a protocol
	var endpointURL string
	if strings.HasPrefix(cfg.S3Endpoint, "http://") || strings.HasPrefix(cfg.S3Endpoint, "https://") {
		endpointURL = cfg.S3Endpoint
	} else {
		protocol := "http"
		if cfg.S3UseSSL {
			protocol = "https"
		}
		endpointURL = protocol + "://" + cfg.S3Endpoint
	}

	client := s3.New(s3.Options{
		Region: cfg.S3Region,
		Credentials: credentials.NewStaticCredentialsProvider(
			cfg.S3AccessKeyID,
			cfg.S3SecretAccessKey,
			"",
		),
		BaseEndpoint: aws.String(endpointURL),
		UsePathStyle: true, // Required for MinIO
	})

	return &S3Store{
		client:        client,
		presignClient: s3.NewPresignClient(client),
		bucket:        cfg.S3Bucket,
		presignExpiry: 15 * time.Minute,
	}, nil
}

// key normalizes a relative path into an object key
func (s *S3Store) key(relPath string) string {
	return strings.TrimPrefix(strings.ReplaceAll(relPath, "\\", "/"), "/")
}

// Save uploads an object
func (s *S3Store) Save(ctx context.Context, relPath string, r io.Reader) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(relPath)),
		Body:   r,
	})
	if err != nil {
		return fmt.Errorf("failed to upload object: %w", err)
	}
	return nil
}

// Open downloads an object
func (s *S3Store) Open(ctx context.Context, relPath string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(relPath)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get object: %w", err)
	}

	return out.Body, nil
}

// Delete removes a single object
func (s *S3Store) Delete(ctx context.Context, relPath string) error {
	key := s.key(relPath)

	// DeleteObject is silent about missing keys; check first so callers
	// can tell a no-op from a deletion.
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return ErrNotFound
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}

	return nil
}

// DeleteDir removes every object under a prefix
func (s *S3Store) DeleteDir(ctx context.Context, relPath string) error {
	keys, err := s.List(ctx, relPath)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	identifiers := make([]types.ObjectIdentifier, len(keys))
	for i, key := range keys {
		identifiers[i] = types.ObjectIdentifier{Key: aws.String(key)}
	}

	// S3 accepts up to 1000 objects per delete request
	const batchSize = 1000
	for i := 0; i < len(identifiers); i += batchSize {
		end := i + batchSize
		if end > len(identifiers) {
			end = len(identifiers)
		}

		_, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{
				Objects: identifiers[i:end],
				Quiet:   aws.Bool(true),
			},
		})
		if err != nil {
			return fmt.Errorf("failed to delete objects: %w", err)
		}
	}

	return nil
}

// RemoveDirIfEmpty is a no-op for object storage: prefixes disappear
// with their last object.
func (s *S3Store) RemoveDirIfEmpty(ctx context.Context, relPath string) error {
	return nil
}

// List returns the keys of all objects under a prefix
func (s *S3Store) List(ctx context.Context, prefix string) ([]string, error) {
	p := s.key(prefix)
	if p != "" && !strings.HasSuffix(p, "/") {
		p += "/"
	}

	var keys []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(p),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		for _, obj := range page.Contents {
			if obj.Key != nil {
				keys = append(keys, *obj.Key)
			}
		}
	}

	return keys, nil
}

// PresignURL returns a time-limited direct URL for an object
func (s *S3Store) PresignURL(ctx context.Context, relPath string) (string, error) {
	req, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(relPath)),
	}, s3.WithPresignExpires(s.presignExpiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign URL: %w", err)
	}

	return req.URL, nil
}
