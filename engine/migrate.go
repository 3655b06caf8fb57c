package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/latticerun/detcore/pkg/migration"
	"github.com/latticerun/detcore/pkg/telemetry"
)

// MigrateOne applies the registered migration path for a single manifest
// to targetVersion (SPEC_FULL §4.10), tracing the hop via
// telemetry.MigrationOperation.
func (e *Engine) MigrateOne(ctx context.Context, manifestPath, targetVersion string, dryRun bool) (*migration.ApplyResult, error) {
	start := time.Now()
	logger := e.Logger.With("manifest_path", manifestPath, "target_version", targetVersion)

	result, err := migration.Apply(e.MigrationRegistry, manifestPath, targetVersion, dryRun)
	if err != nil {
		logger.Error("migrate: failed", "error", err)
		return nil, fmt.Errorf("engine: migrate: %w", err)
	}

	if e.Telemetry != nil {
		_, finish := e.Telemetry.TrackOperation(ctx, "migrate", telemetry.MigrationOperation(manifestPath, result.FromVersion, result.ToVersion)...)
		finish(nil)
	}

	logger.Info("migrate: applied", "no_op", result.NoOp, "from", result.FromVersion, "to", result.ToVersion, "duration_ms", time.Since(start).Milliseconds())
	return result, nil
}

// MigrateAll implements migrate_all(target_version) -> statistics
// (SPEC_FULL §6): every manifest under ArtifactsRoot is migrated
// independently and concurrently.
func (e *Engine) MigrateAll(ctx context.Context, targetVersion string, dryRun bool, maxParallel int) (migration.Statistics, error) {
	start := time.Now()
	logger := e.Logger.With("target_version", targetVersion)

	var finish func(error)
	if e.Telemetry != nil {
		ctx, finish = e.Telemetry.TrackOperation(ctx, "migrate_all", telemetry.MigrationOperation(e.ArtifactsRoot, "", targetVersion)...)
	}

	stats, err := migration.MigrateAll(ctx, e.MigrationRegistry, e.ArtifactsRoot, targetVersion, dryRun, maxParallel)
	if finish != nil {
		finish(err)
	}
	if err != nil {
		logger.Error("migrate_all: failed", "error", err)
		return stats, fmt.Errorf("engine: migrate_all: %w", err)
	}

	logger.Info("migrate_all: complete", "discovered", stats.Discovered, "migrated", stats.Migrated, "no_op", stats.NoOp, "failed", stats.Failed, "duration_ms", time.Since(start).Milliseconds())
	return stats, nil
}
