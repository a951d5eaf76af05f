package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/SAP-F-2025/proctor-service/internal/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var ErrEmptyBlob = errors.New("empty blob")

// BlobStore persists opaque binary captures and hands back a path that can
// later be used to fetch them.
type BlobStore interface {
	Store(ctx context.Context, name string, data []byte, contentType string) (string, error)
}

// LocalBlobStore writes blobs below a directory on the local filesystem
type LocalBlobStore struct {
	root string
}

func NewLocalBlobStore(root string) *LocalBlobStore {
	return &LocalBlobStore{root: root}
}

func (s *LocalBlobStore) Store(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyBlob
	}
	name, err := cleanName(name)
	if err != nil {
		return "", err
	}

	dst := filepath.Join(s.root, name)
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", fmt.Errorf("failed to create storage directory: %w", err)
	}
	if err := os.WriteFile(dst, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write blob: %w", err)
	}
	return dst, nil
}

// MinioBlobStore writes blobs to a MinIO (or any S3 compatible) bucket
type MinioBlobStore struct {
	client *minio.Client
	bucket string
}

func NewMinioBlobStore(cfg config.StorageConfig) (*MinioBlobStore, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return &MinioBlobStore{client: client, bucket: cfg.MinioBucket}, nil
}

// EnsureBucket creates the bucket when it does not exist yet
func (s *MinioBlobStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

func (s *MinioBlobStore) Store(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyBlob
	}
	name, err := cleanName(name)
	if err != nil {
		return "", err
	}

	_, err = s.client.PutObject(ctx, s.bucket, name, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload blob: %w", err)
	}
	return "/" + s.bucket + "/" + name, nil
}

// NewBlobStore picks the backend named by the storage configuration
func NewBlobStore(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (BlobStore, error) {
	switch cfg.Type {
	case "minio":
		logger.Info("Using MinIO blob store", "endpoint", cfg.MinioEndpoint, "bucket", cfg.MinioBucket)
		store, err := NewMinioBlobStore(cfg)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return store, nil
	case "local", "":
		logger.Info("Using local blob store", "path", cfg.LocalPath)
		return NewLocalBlobStore(cfg.LocalPath), nil
	default:
		return nil, fmt.Errorf("unsupported storage type %q", cfg.Type)
	}
}

// cleanName keeps blob names inside the store root
func cleanName(name string) (string, error) {
	cleaned := filepath.ToSlash(filepath.Clean("/" + name))
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." {
		return "", fmt.Errorf("invalid blob name %q", name)
	}
	return cleaned, nil
}
