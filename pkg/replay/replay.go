// Package replay implements the weaker replay probe named in SPEC_FULL
// §6 and §12: a fast structural check of a run directory, cheap enough
// to run without re-hashing every output byte, distinct from the full
// Verifier (pkg/verifier).
package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/latticerun/detcore/pkg/manifest"
)

// Diagnostic is one named structural check performed by Probe.
type Diagnostic struct {
	Name   string `json:"name"`
	Pass   bool   `json:"pass"`
	Detail string `json:"detail,omitempty"`
}

// Result is the outcome of Probe.
type Result struct {
	CanReplay   bool         `json:"can_replay"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// Probe performs the ordered, cheap structural checks SPEC_FULL §12
// restricts to: manifest presence, schema_version recognized, and
// snapshot files present. It never re-hashes snapshot or output bytes
// — that is the Verifier's job.
func Probe(runDir string) Result {
	result := Result{CanReplay: true, Diagnostics: make([]Diagnostic, 0, 3)}

	manifestPath := filepath.Join(runDir, "manifest.json")
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		result.add(Diagnostic{Name: "manifest_present", Pass: false, Detail: err.Error()})
		return result
	}
	result.add(Diagnostic{Name: "manifest_present", Pass: true})

	var m manifest.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		result.add(Diagnostic{Name: "schema_version_recognized", Pass: false, Detail: fmt.Sprintf("manifest not valid JSON: %v", err)})
		return result
	}

	recognized := m.SchemaVersion == manifest.CurrentSchemaVersion
	result.add(Diagnostic{
		Name:   "schema_version_recognized",
		Pass:   recognized,
		Detail: fmt.Sprintf("manifest schema_version %q, current %q", m.SchemaVersion, manifest.CurrentSchemaVersion),
	})
	if !recognized {
		// An unrecognized schema version may still be migratable, but a
		// bare replay probe cannot assume so without running the
		// migration engine first.
		result.add(Diagnostic{Name: "snapshots_present", Pass: false, Detail: "skipped: schema_version not recognized"})
		return result
	}

	for name, meta := range m.InputSnapshots {
		if _, err := os.Stat(filepath.Join(runDir, filepath.FromSlash(meta.Path))); err != nil {
			result.add(Diagnostic{Name: "snapshots_present", Pass: false, Detail: fmt.Sprintf("snapshot %q missing at %s", name, meta.Path)})
			return result
		}
	}
	result.add(Diagnostic{Name: "snapshots_present", Pass: true, Detail: fmt.Sprintf("%d snapshots present", len(m.InputSnapshots))})

	return result
}

func (r *Result) add(d Diagnostic) {
	r.Diagnostics = append(r.Diagnostics, d)
	if !d.Pass {
		r.CanReplay = false
	}
}
