package storage

import (
	"context"
	"fmt"
	"path"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"ingestion-gateway/internal/config"
)

// Archiver copies a finished export somewhere durable and returns its URI
type Archiver interface {
	Archive(ctx context.Context, localPath string) (string, error)
}

// objectPutter is the subset of *minio.Client the archiver uses
type objectPutter interface {
	FPutObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// MinIOArchiver uploads exported CSV files to an S3-compatible bucket
type MinIOArchiver struct {
	client objectPutter
	bucket string
	prefix string
}

// NewMinIOArchiver creates an archiver from storage configuration
func NewMinIOArchiver(cfg config.StorageConfig) (*MinIOArchiver, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}

	opts := &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	}
	client, err := minio.New(cfg.Endpoint, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &MinIOArchiver{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// ObjectKey is the key a local file is archived under.
func (a *MinIOArchiver) ObjectKey(localPath string) string {
	return path.Join(a.prefix, filepath.Base(localPath))
}

// Archive uploads localPath and returns an s3:// URI for it.
func (a *MinIOArchiver) Archive(ctx context.Context, localPath string) (string, error) {
	key := a.ObjectKey(localPath)
	_, err := a.client.FPutObject(ctx, a.bucket, key, localPath, minio.PutObjectOptions{
		ContentType: "text/csv",
	})
	if err != nil {
		return "", fmt.Errorf("failed to archive %s: %w", localPath, err)
	}
	return fmt.Sprintf("s3://%s/%s", a.bucket, key), nil
}
