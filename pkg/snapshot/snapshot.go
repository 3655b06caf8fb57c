// Package snapshot implements the Snapshot Writer (SPEC_FULL §4.4): it
// canonically encodes a value, writes it atomically under a run's
// build directory, reads the bytes back, and hashes them. The read-back
// hash is the source of truth for every snapshot hash in this module —
// never the in-memory encoded form.
package snapshot

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/latticerun/detcore/pkg/canonicalize"
)

// Meta describes one persisted snapshot file.
type Meta struct {
	Path  string `json:"path"` // run-relative, forward-slash normalized
	SHA256 string `json:"sha256"`
	Bytes int    `json:"bytes"`
}

// Write encodes value canonically (pretty form), writes it atomically
// to runTmpDir/relPath (relPath is run-relative, e.g. the InputPath of a
// named input or outputs/response.json), reads the written bytes back,
// and hashes them.
func Write(runTmpDir, relPath string, value interface{}) (Meta, error) {
	encoded, err := canonicalize.EncodePretty(value)
	if err != nil {
		return Meta{}, fmt.Errorf("snapshot: encode %s: %w", relPath, err)
	}

	absPath := filepath.Join(runTmpDir, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return Meta{}, fmt.Errorf("snapshot: mkdir for %s: %w", relPath, err)
	}

	tmpPath := absPath + ".tmp-" + uuid.NewString()
	if err := os.WriteFile(tmpPath, encoded, 0o644); err != nil {
		return Meta{}, fmt.Errorf("snapshot: write %s: %w", relPath, err)
	}
	if err := os.Rename(tmpPath, absPath); err != nil {
		_ = os.Remove(tmpPath)
		return Meta{}, fmt.Errorf("snapshot: finalize %s: %w", relPath, err)
	}

	readBack, err := os.ReadFile(absPath)
	if err != nil {
		return Meta{}, fmt.Errorf("snapshot: read back %s: %w", relPath, err)
	}

	return Meta{
		Path:   filepath.ToSlash(relPath),
		SHA256: canonicalize.Hash(readBack),
		Bytes:  len(readBack),
	}, nil
}

// InputPath returns the canonical run-relative path of a named resolved
// input snapshot under inputs/, matching the layout in SPEC_FULL §6.
func InputPath(name string) string {
	switch name {
	case "model_config":
		return "inputs/model_config.json"
	default:
		return "inputs/" + name + ".resolved.json"
	}
}
