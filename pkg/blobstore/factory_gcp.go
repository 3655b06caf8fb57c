//go:build gcp

package blobstore

import (
	"context"
	"fmt"
	"os"
)

func newGCSStoreFromEnv(ctx context.Context) (Store, error) {
	bucket := os.Getenv("MIRROR_GCS_BUCKET")
	if bucket == "" {
		return nil, fmt.Errorf("blobstore: MIRROR_GCS_BUCKET is required for the gcs mirror backend")
	}

	cfg := GCSStoreConfig{
		Bucket: bucket,
		Prefix: os.Getenv("MIRROR_GCS_PREFIX"),
	}

	return NewGCSStore(ctx, cfg)
}
