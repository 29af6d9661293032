package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinIO struct {
	MinIOClient *minio.Client
}

func NewMinIOConnection(endpoint, accessKey, secretKey, region string, useSSL bool) (*MinIO, error) {
	minioClient, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, err
	}

	slog.Info("MinIO client initialized", "endpoint", endpoint)
	return &MinIO{MinIOClient: minioClient}, nil
}

func (m *MinIO) EnsureBucket(ctx context.Context, bucketName, region string) error {
	if m.MinIOClient == nil {
		return errors.New("MinIO client is not initialized")
	}

	exists, err := m.MinIOClient.BucketExists(ctx, bucketName)
	if err != nil {
		return err
	}

	if !exists {
		err = m.MinIOClient.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{Region: region})
		if err != nil {
			return err
		}
		slog.Info("Bucket created", "bucket", bucketName)
	}

	return nil
}

func (m *MinIO) PutObject(ctx context.Context, bucketName, objectKey string, r io.Reader, size int64) error {
	if m.MinIOClient == nil {
		return errors.New("MinIO client is not initialized")
	}

	_, err := m.MinIOClient.PutObject(ctx, bucketName, objectKey, r, size,
		minio.PutObjectOptions{ContentType: contentTypeFor(objectKey)})
	if err != nil {
		slog.Warn("Error uploading object", "key", objectKey, "err", err)
		return err
	}
	return nil
}

// ListKeys returns all object keys below prefix
func (m *MinIO) ListKeys(ctx context.Context, bucketName, prefix string) ([]string, error) {
	if m.MinIOClient == nil {
		return nil, errors.New("MinIO client is not initialized")
	}

	var keys []string
	for obj := range m.MinIOClient.ListObjects(ctx, bucketName, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

func (m *MinIO) DeleteObject(ctx context.Context, bucketName, objectKey string) error {
	if m.MinIOClient == nil {
		return errors.New("MinIO client not initialized")
	}
	err := m.MinIOClient.RemoveObject(ctx, bucketName, objectKey, minio.RemoveObjectOptions{})
	if err != nil {
		slog.Warn("Error deleting object", "bucket", bucketName, "key", objectKey, "err", err)
		return err
	}
	return nil
}

func (m *MinIO) SanitizeBucketName(name string) string {
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "_", "-")
	name = strings.ReplaceAll(name, " ", "-")
	var result strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '.' {
			result.WriteRune(r)
		}
	}
	return result.String()
}

func (m *MinIO) HealthCheck(ctx context.Context) error {
	if m.MinIOClient == nil {
		return errors.New("MinIO client not initialized")
	}
	_, err := m.MinIOClient.ListBuckets(ctx)
	return err
}

// contentTypeFor picks the content type from the file extension so browsers render the site
func contentTypeFor(key string) string {
	if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
