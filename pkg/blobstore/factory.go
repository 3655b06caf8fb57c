package blobstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// StoreType selects a Store implementation for the run directory
// mirror (SPEC_FULL §11), matching pkg/config's MIRROR_BACKEND setting.
type StoreType string

const (
	StoreTypeFS  StoreType = "fs"
	StoreTypeS3  StoreType = "s3"
	StoreTypeGCS StoreType = "gcs"
)

// NewStoreFromEnv constructs the mirror Store named by backend, reading
// its backend-specific settings from the environment:
//
// fs:
//   - MIRROR_DATA_DIR: base directory (default "data")
//
// s3:
//   - MIRROR_S3_BUCKET (required)
//   - MIRROR_S3_REGION or AWS_REGION
//   - MIRROR_S3_ENDPOINT (optional, for MinIO/LocalStack)
//   - MIRROR_S3_PREFIX (optional)
//
// gcs:
//   - MIRROR_GCS_BUCKET (required)
//   - MIRROR_GCS_PREFIX (optional)
func NewStoreFromEnv(ctx context.Context, backend StoreType) (Store, error) {
	switch backend {
	case "", StoreTypeFS:
		return newFileStoreFromEnv()
	case StoreTypeS3:
		return newS3StoreFromEnv(ctx)
	case StoreTypeGCS:
		return newGCSStoreFromEnv(ctx)
	default:
		return nil, fmt.Errorf("blobstore: unsupported mirror backend: %s", backend)
	}
}

func newFileStoreFromEnv() (Store, error) {
	dataDir := os.Getenv("MIRROR_DATA_DIR")
	if dataDir == "" {
		dataDir = "data"
	}
	return NewFileStore(filepath.Join(dataDir, "mirror"))
}

func newS3StoreFromEnv(ctx context.Context) (Store, error) {
	bucket := os.Getenv("MIRROR_S3_BUCKET")
	if bucket == "" {
		return nil, fmt.Errorf("blobstore: MIRROR_S3_BUCKET is required for the s3 mirror backend")
	}

	region := os.Getenv("MIRROR_S3_REGION")
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}
	if region == "" {
		region = "us-east-1"
	}

	cfg := S3StoreConfig{
		Bucket:   bucket,
		Region:   region,
		Endpoint: os.Getenv("MIRROR_S3_ENDPOINT"),
		Prefix:   os.Getenv("MIRROR_S3_PREFIX"),
	}

	return NewS3Store(ctx, cfg)
}
