// Package rundir implements the Run Directory Manager (SPEC_FULL §4.6):
// it allocates a temporary build directory, finalizes it atomically
// into its content-addressed location, and handles idempotent replay,
// deterministic collision suffixing, and the optional legacy alias.
package rundir

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/latticerun/detcore/pkg/blobstore"
	"github.com/latticerun/detcore/pkg/manifest"
)

// LookupAccelerator is an optional cache in front of the filesystem scan
// that the collision/replay check would otherwise perform, mapping
// inputs_hash to an already-known run directory path (SPEC_FULL §11).
// A nil accelerator degrades to the filesystem-only path with no
// behavior change.
type LookupAccelerator interface {
	Get(ctx context.Context, inputsHash string) (runDir string, ok bool)
	Set(ctx context.Context, inputsHash, runDir string)
}

// Manager controls the atomic lifecycle of artifacts/<job_id>/<run_id>/.
type Manager struct {
	ArtifactsRoot string
	Accelerator   LookupAccelerator
	Mirror        blobstore.Store
	Logger        *slog.Logger
}

// New constructs a Manager rooted at artifactsRoot. accelerator and
// mirror may both be nil.
func New(artifactsRoot string, accelerator LookupAccelerator, mirror blobstore.Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{ArtifactsRoot: artifactsRoot, Accelerator: accelerator, Mirror: mirror, Logger: logger}
}

// AllocateBuildDir creates artifacts/<job_id>/.tmp/<uuid>/ and returns its
// path for the caller to perform snapshot writes and payload execution
// under.
func (m *Manager) AllocateBuildDir(jobID string) (string, error) {
	dir := filepath.Join(m.ArtifactsRoot, jobID, ".tmp", uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("rundir: allocate build dir: %w", err)
	}
	return dir, nil
}

// FinalizeResult describes the outcome of Finalize.
type FinalizeResult struct {
	RunDir   string
	RunID    string
	Replayed bool
	Manifest *manifest.Manifest // populated only when Replayed
}

// Finalize implements the collision policy of SPEC_FULL §4.6: if the
// target path does not exist, the build directory is renamed into
// place. If it exists and its inputs_hash matches, this is an
// idempotent replay. If it exists with a different inputs_hash, a
// numeric suffix is appended until a free or matching path is found.
func (m *Manager) Finalize(ctx context.Context, jobID, buildDir, baseRunID, inputsHash string) (FinalizeResult, error) {
	if m.Accelerator != nil {
		if known, ok := m.Accelerator.Get(ctx, inputsHash); ok {
			if man, err := readManifest(known); err == nil && man.InputsHash == inputsHash {
				_ = os.RemoveAll(buildDir)
				return FinalizeResult{RunDir: known, RunID: man.RunID, Replayed: true, Manifest: man}, nil
			}
		}
	}

	runID := baseRunID
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			runID = fmt.Sprintf("%s-%d", baseRunID, attempt+1)
		}
		target := filepath.Join(m.ArtifactsRoot, jobID, runID)

		if _, err := os.Stat(target); os.IsNotExist(err) {
			if err := os.Rename(buildDir, target); err != nil {
				return FinalizeResult{}, fmt.Errorf("rundir: finalize rename: %w", err)
			}
			if m.Accelerator != nil {
				m.Accelerator.Set(ctx, inputsHash, target)
			}
			m.createLegacyAlias(runID, target)
			m.mirror(ctx, target)
			return FinalizeResult{RunDir: target, RunID: runID, Replayed: false}, nil
		}

		existing, err := readManifest(target)
		if err != nil {
			// Directory exists but has no readable manifest: skip this
			// suffix and check the next one.
			continue
		}
		if existing.InputsHash == inputsHash {
			_ = os.RemoveAll(buildDir)
			return FinalizeResult{RunDir: target, RunID: existing.RunID, Replayed: true, Manifest: existing}, nil
		}
		// Hash-equal prefix, distinct inputs: try the next suffix.
	}
}

func readManifest(runDir string) (*manifest.Manifest, error) {
	data, err := os.ReadFile(filepath.Join(runDir, "manifest.json"))
	if err != nil {
		return nil, err
	}
	var m manifest.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// createLegacyAlias best-effort creates artifacts/runs/<run_id> as a
// relative symlink to target. Failure is logged, never fatal
// (SPEC_FULL §4.6, §9 open question).
func (m *Manager) createLegacyAlias(runID, target string) {
	runsDir := filepath.Join(m.ArtifactsRoot, "runs")
	if err := os.MkdirAll(runsDir, 0o755); err != nil {
		m.Logger.Warn("rundir: legacy alias dir create failed", "error", err)
		return
	}
	linkPath := filepath.Join(runsDir, runID)
	rel, err := filepath.Rel(runsDir, target)
	if err != nil {
		rel = target
	}
	_ = os.Remove(linkPath)
	if err := os.Symlink(rel, linkPath); err != nil {
		m.Logger.Warn("rundir: legacy alias symlink failed", "run_id", runID, "error", err)
	}
}

func (m *Manager) mirror(ctx context.Context, target string) {
	if m.Mirror == nil {
		return
	}
	data, err := os.ReadFile(filepath.Join(target, "manifest.json"))
	if err != nil {
		m.Logger.Warn("rundir: mirror read manifest.json failed", "error", err)
		return
	}
	if _, err := m.Mirror.Store(ctx, data); err != nil {
		m.Logger.Warn("rundir: mirror upload failed", "error", err)
	}
}
