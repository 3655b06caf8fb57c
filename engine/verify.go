package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/latticerun/detcore/pkg/telemetry"
	"github.com/latticerun/detcore/pkg/verifier"
)

// VerifyRun implements verify_run(run_directory) -> report (SPEC_FULL §6):
// it re-derives every hash and identifier from the bytes under runDir and
// cross-checks them against manifest.json, reporting any mismatch.
func (e *Engine) VerifyRun(ctx context.Context, runDir string) (*verifier.VerifyReport, error) {
	start := time.Now()
	runID := filepath.Base(runDir)
	logger := e.Logger.With("run_id", runID)

	report, err := verifier.VerifyRun(runDir)
	if err != nil {
		logger.Error("verify_run: failed", "error", err)
		if e.Telemetry != nil {
			_, finish := e.Telemetry.TrackOperation(ctx, "verify_run", telemetry.VerifyOperation(runID, false, 0)...)
			finish(err)
		}
		return nil, fmt.Errorf("engine: verify_run: %w", err)
	}

	if e.Telemetry != nil {
		_, finish := e.Telemetry.TrackOperation(ctx, "verify_run", telemetry.VerifyOperation(runID, report.Valid, report.IssueCount)...)
		finish(nil)
	}

	logger.Info("verify_run: complete", "valid", report.Valid, "issue_count", report.IssueCount, "duration_ms", time.Since(start).Milliseconds())
	return report, nil
}
