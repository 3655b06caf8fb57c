package engine

import (
	"context"
	"path/filepath"
	"time"

	"github.com/latticerun/detcore/pkg/replay"
	"github.com/latticerun/detcore/pkg/telemetry"
)

// Replay implements the replay probe (SPEC_FULL §6, §12): the cheap
// structural check distinct from the full Verifier, suitable for a
// scheduler deciding whether a run directory is reusable without
// re-hashing every byte.
func (e *Engine) Replay(ctx context.Context, runDir string) replay.Result {
	start := time.Now()
	runID := filepath.Base(runDir)
	logger := e.Logger.With("run_id", runID)

	result := replay.Probe(runDir)

	if e.Telemetry != nil {
		_, finish := e.Telemetry.TrackOperation(ctx, "replay", telemetry.ReplayOperation(runID, result.CanReplay)...)
		finish(nil)
	}

	logger.Info("replay: probed", "can_replay", result.CanReplay, "duration_ms", time.Since(start).Milliseconds())
	return result
}
