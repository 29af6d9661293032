package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"site-deployer/config"
)

// S3Uploader mirrors the site into an S3 bucket; the remote root becomes the key prefix.
type S3Uploader struct {
	clients *S3ClientManager
}

func (u *S3Uploader) Upload(ctx context.Context, tc config.TransferConfig) (*Report, error) {
	if tc.Bucket == "" {
		return nil, fmt.Errorf("no bucket configured for S3 target %s", tc.Host)
	}

	s3Config := tc.GetS3Config()
	client, err := u.clients.GetOrCreateClient(ctx, s3Config)
	if err != nil {
		return nil, fmt.Errorf("error getting S3 client: %w", err)
	}

	bucket := client.SanitizeBucketName(tc.Bucket)
	if err := client.EnsureBucket(ctx, bucket, tc.Region); err != nil {
		return nil, fmt.Errorf("error ensuring bucket %s: %w", bucket, err)
	}
	slog.Info("S3 target ready", "endpoint", s3Config.Endpoint, "bucket", bucket)

	return mirror(ctx, &s3FS{ctx: ctx, store: client, bucket: bucket}, tc)
}

// objectStore is the subset of *MinIO used by s3FS
type objectStore interface {
	ListKeys(ctx context.Context, bucketName, prefix string) ([]string, error)
	PutObject(ctx context.Context, bucketName, objectKey string, r io.Reader, size int64) error
	DeleteObject(ctx context.Context, bucketName, objectKey string) error
}

type s3FS struct {
	ctx    context.Context
	store  objectStore
	bucket string
}

// objectKey converts a remote path into an object key (no leading slash)
func objectKey(remotePath string) string {
	return strings.TrimPrefix(remotePath, "/")
}

func (s *s3FS) List(root string) ([]string, error) {
	prefix := objectKey(root)
	if prefix != "" {
		prefix += "/"
	}

	keys, err := s.store.ListKeys(s.ctx, s.bucket, prefix)
	if err != nil {
		return nil, err
	}

	files := make([]string, 0, len(keys))
	for _, key := range keys {
		rel := strings.TrimPrefix(key, prefix)
		if rel == "" || strings.HasSuffix(rel, "/") {
			continue
		}
		files = append(files, rel)
	}
	return files, nil
}

// MkdirAll is a no-op, buckets have no directories
func (s *s3FS) MkdirAll(string) error {
	return nil
}

func (s *s3FS) Put(remotePath string, r io.Reader, size int64) error {
	return s.store.PutObject(s.ctx, s.bucket, objectKey(remotePath), r, size)
}

func (s *s3FS) Remove(remotePath string) error {
	return s.store.DeleteObject(s.ctx, s.bucket, objectKey(remotePath))
}

func (s *s3FS) Close() error {
	return nil
}
