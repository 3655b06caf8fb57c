package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/latticerun/detcore/pkg/reindex"
	"github.com/latticerun/detcore/pkg/telemetry"
)

// Reindex implements reindex() -> count (SPEC_FULL §6, §11): it rebuilds
// the queryable manifest index from the on-disk artifacts tree, using
// whichever sql.DB the Engine was constructed with.
func (e *Engine) Reindex(ctx context.Context) (int, error) {
	start := time.Now()
	logger := e.Logger.With("artifacts_root", e.ArtifactsRoot)

	if e.IndexDB == nil {
		return 0, fmt.Errorf("engine: reindex: no index database configured")
	}

	count, err := reindex.Reindex(ctx, e.IndexDB, e.ArtifactsRoot)
	if err != nil {
		logger.Error("reindex: failed", "error", err)
		if e.Telemetry != nil {
			_, finish := e.Telemetry.TrackOperation(ctx, "reindex", telemetry.ReindexOperation(e.ArtifactsRoot, 0)...)
			finish(err)
		}
		return 0, fmt.Errorf("engine: reindex: %w", err)
	}

	if e.Telemetry != nil {
		_, finish := e.Telemetry.TrackOperation(ctx, "reindex", telemetry.ReindexOperation(e.ArtifactsRoot, count)...)
		finish(nil)
	}

	logger.Info("reindex: complete", "indexed", count, "duration_ms", time.Since(start).Milliseconds())
	return count, nil
}
