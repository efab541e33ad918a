package store

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStore wraps a MinIO client for image object storage. Uploaded
// objects are publicly readable via the configured base URL; the
// visibility tag on an image row only affects gallery queries, not the
// stored object.
type MinioStore struct {
	client  *minio.Client
	bucket  string
	baseURL string
}

func NewMinioStore(ctx context.Context, endpoint, accessKey, secretKey, bucket, baseURL string, useSSL bool) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	// Ensure bucket exists
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("minio bucket check: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("minio make bucket: %w", err)
		}
	}

	policy := fmt.Sprintf(`{
		"Version": "2012-10-17",
		"Statement": [{
			"Effect": "Allow",
			"Principal": {"AWS": ["*"]},
			"Action": ["s3:GetObject"],
			"Resource": ["arn:aws:s3:::%s/*"]
		}]
	}`, bucket)
	if err := client.SetBucketPolicy(ctx, bucket, policy); err != nil {
		return nil, fmt.Errorf("minio bucket policy: %w", err)
	}

	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &MinioStore{client: client, bucket: bucket, baseURL: baseURL}, nil
}

// Upload streams one file into the bucket under a timestamped key and
// returns its public URL.
func (s *MinioStore) Upload(ctx context.Context, r io.Reader, size int64, originalFilename, contentType string) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := objectKey(originalFilename, time.Now())
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("minio put %q: %w", key, err)
	}
	return s.baseURL + key, nil
}

// Remove deletes the object backing a public URL. URLs outside the
// configured base location are left alone.
func (s *MinioStore) Remove(ctx context.Context, publicURL string) error {
	key := strings.TrimPrefix(publicURL, s.baseURL)
	if key == publicURL || key == "" {
		return nil
	}
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}

// objectKey joins the original filename with a second-resolution
// timestamp suffix, e.g. "cat.png_240508_171442". Two same-named
// uploads within one second collide; the images.image_url uniqueness
// constraint catches the duplicate row.
func objectKey(filename string, now time.Time) string {
	return filename + "_" + now.Format("060102_150405")
}
