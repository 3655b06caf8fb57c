//go:build !gcp

package blobstore

import (
	"context"
	"fmt"
)

func newGCSStoreFromEnv(ctx context.Context) (Store, error) {
	return nil, fmt.Errorf("blobstore: gcs mirror backend not enabled in this build (use -tags gcp)")
}
