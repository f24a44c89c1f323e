package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/garyjia/erp-approvals/internal/application/port"
)

// MinioConfig holds S3-compatible object storage settings
type MinioConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
}

// objectAPI is the subset of the minio client used by MinioStorage
type objectAPI interface {
	Put(ctx context.Context, bucket, key string, content []byte, contentType string) error
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	Stat(ctx context.Context, bucket, key string) error
	Remove(ctx context.Context, bucket, key string) error
}

// MinioStorage implements port.FileStorage on an S3-compatible bucket
type MinioStorage struct {
	objects objectAPI
	bucket  string
	logger  *zap.Logger
}

// NewMinioStorage connects to the endpoint and creates the bucket when missing
func NewMinioStorage(ctx context.Context, cfg MinioConfig, logger *zap.Logger) (*MinioStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
		logger.Info("Created attachment bucket", zap.String("bucket", cfg.Bucket))
	}

	return newMinioStorage(&minioObjects{client: client}, cfg.Bucket, logger), nil
}

func newMinioStorage(objects objectAPI, bucket string, logger *zap.Logger) *MinioStorage {
	return &MinioStorage{
		objects: objects,
		bucket:  bucket,
		logger:  logger,
	}
}

// Save uploads content under key
func (s *MinioStorage) Save(ctx context.Context, key string, content []byte, contentType string) error {
	if err := s.objects.Put(ctx, s.bucket, key, content, contentType); err != nil {
		s.logger.Error("Failed to upload object",
			zap.String("bucket", s.bucket),
			zap.String("key", key),
			zap.Error(err))
		return fmt.Errorf("failed to upload object: %w", err)
	}

	s.logger.Debug("Object uploaded",
		zap.String("key", key),
		zap.Int("size", len(content)))
	return nil
}

// Read downloads the object stored under key
func (s *MinioStorage) Read(ctx context.Context, key string) ([]byte, error) {
	content, err := s.objects.Get(ctx, s.bucket, key)
	if isNoSuchKey(err) {
		return nil, fmt.Errorf("%w: %s", port.ErrBlobNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to download object: %w", err)
	}
	return content, nil
}

// Exists checks the object metadata
func (s *MinioStorage) Exists(ctx context.Context, key string) bool {
	return s.objects.Stat(ctx, s.bucket, key) == nil
}

// Delete removes the object; S3 deletes of missing keys succeed
func (s *MinioStorage) Delete(ctx context.Context, key string) error {
	if err := s.objects.Remove(ctx, s.bucket, key); err != nil {
		s.logger.Error("Failed to delete object",
			zap.String("bucket", s.bucket),
			zap.String("key", key),
			zap.Error(err))
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

func isNoSuchKey(err error) bool {
	if err == nil {
		return false
	}
	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		return resp.Code == "NoSuchKey"
	}
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}

// minioObjects adapts *minio.Client to objectAPI
type minioObjects struct {
	client *minio.Client
}

func (m *minioObjects) Put(ctx context.Context, bucket, key string, content []byte, contentType string) error {
	_, err := m.client.PutObject(ctx, bucket, key, bytes.NewReader(content), int64(len(content)),
		minio.PutObjectOptions{ContentType: contentType})
	return err
}

func (m *minioObjects) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()
	return io.ReadAll(obj)
}

func (m *minioObjects) Stat(ctx context.Context, bucket, key string) error {
	_, err := m.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	return err
}

func (m *minioObjects) Remove(ctx context.Context, bucket, key string) error {
	return m.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{})
}
