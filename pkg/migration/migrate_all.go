package migration

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Statistics summarizes the outcome of MigrateAll across every manifest
// discovered under an artifacts root.
type Statistics struct {
	Discovered int
	Migrated   int
	NoOp       int
	Failed     int
	Errors     map[string]string
}

// MigrateAll walks artifactsRoot for every manifest.json, migrating
// each independently to targetVersion (SPEC_FULL §5: concurrent
// migration of distinct manifests is safe). Concurrency is bounded by
// maxParallel; a value <= 0 defaults to 4.
func MigrateAll(ctx context.Context, registry *Registry, artifactsRoot, targetVersion string, dryRun bool, maxParallel int) (Statistics, error) {
	if maxParallel <= 0 {
		maxParallel = 4
	}

	var manifestPaths []string
	err := filepath.WalkDir(artifactsRoot, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == "manifest.json" {
			manifestPaths = append(manifestPaths, path)
		}
		return nil
	})
	if err != nil {
		return Statistics{}, err
	}

	stats := Statistics{Discovered: len(manifestPaths), Errors: map[string]string{}}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)

	for _, path := range manifestPaths {
		path := path
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			result, err := Apply(registry, path, targetVersion, dryRun)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				stats.Failed++
				stats.Errors[path] = err.Error()
				return nil
			}
			if result.NoOp {
				stats.NoOp++
			} else {
				stats.Migrated++
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return stats, err
	}
	return stats, nil
}
