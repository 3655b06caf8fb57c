// Package verifier implements the Verifier (SPEC_FULL §4.9): given a run
// directory, it independently re-derives every hash and identifier from
// on-disk bytes and cross-checks them against manifest.json. It carries
// no knowledge of the stage that produced the run — it iterates the
// manifest's declared snapshot map rather than a hard-coded name list.
package verifier

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/latticerun/detcore/pkg/canonicalize"
	"github.com/latticerun/detcore/pkg/identity"
	"github.com/latticerun/detcore/pkg/manifest"
)

// VerifyReport is the structured output of run verification.
type VerifyReport struct {
	RunDirectory string        `json:"run_directory"`
	Valid        bool          `json:"valid"`
	Timestamp    time.Time     `json:"timestamp"`
	Checks       []CheckResult `json:"checks"`
	Summary      string        `json:"summary"`
	IssueCount   int           `json:"issue_count"`
}

// CheckResult is one named check in a VerifyReport.
type CheckResult struct {
	Name   string `json:"name"`
	Pass   bool   `json:"pass"`
	Detail string `json:"detail,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// VerifyRun performs the six checks SPEC_FULL §4.9 names against the
// manifest and bytes found under runDir.
func VerifyRun(runDir string) (*VerifyReport, error) {
	report := &VerifyReport{
		RunDirectory: runDir,
		Valid:        true,
		Timestamp:    time.Now().UTC(),
		Checks:       make([]CheckResult, 0, 6),
	}

	manifestPath := filepath.Join(runDir, "manifest.json")
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		report.addCheck(CheckResult{Name: "manifest_present", Pass: false, Reason: err.Error()})
		report.finalize()
		return report, nil
	}

	var m manifest.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		report.addCheck(CheckResult{Name: "manifest_present", Pass: false, Reason: fmt.Sprintf("invalid manifest JSON: %v", err)})
		report.finalize()
		return report, nil
	}

	report.addCheck(checkSnapshotsPresent(runDir, &m))
	report.addCheck(checkSnapshotHashes(runDir, &m))
	report.addCheck(checkInputsHashDerivation(&m))
	report.addCheck(checkRunIDDerivation(&m))
	report.addCheck(checkJobIDConsistency(runDir, &m))
	report.addCheck(checkChainableStructure(runDir, &m))

	report.finalize()
	return report, nil
}

func (r *VerifyReport) addCheck(c CheckResult) {
	r.Checks = append(r.Checks, c)
}

func (r *VerifyReport) finalize() {
	failed := 0
	for _, c := range r.Checks {
		if !c.Pass {
			failed++
		}
	}
	r.IssueCount = failed
	if failed > 0 {
		r.Valid = false
		r.Summary = fmt.Sprintf("FAIL: %d/%d checks failed", failed, len(r.Checks))
	} else {
		r.Summary = fmt.Sprintf("PASS: %d/%d checks passed", len(r.Checks), len(r.Checks))
	}
}

func checkSnapshotsPresent(runDir string, m *manifest.Manifest) CheckResult {
	for name, meta := range m.InputSnapshots {
		if _, err := os.Stat(filepath.Join(runDir, filepath.FromSlash(meta.Path))); err != nil {
			return CheckResult{Name: "snapshots_present", Pass: false, Reason: fmt.Sprintf("snapshot %q missing at %s", name, meta.Path)}
		}
	}
	return CheckResult{Name: "snapshots_present", Pass: true, Detail: fmt.Sprintf("%d snapshots present", len(m.InputSnapshots))}
}

func checkSnapshotHashes(runDir string, m *manifest.Manifest) CheckResult {
	for name, meta := range m.InputSnapshots {
		data, err := os.ReadFile(filepath.Join(runDir, filepath.FromSlash(meta.Path)))
		if err != nil {
			return CheckResult{Name: "snapshot_hashes", Pass: false, Reason: fmt.Sprintf("cannot read snapshot %q: %v", name, err)}
		}
		actual := canonicalize.Hash(data)
		if actual != meta.SHA256 {
			return CheckResult{Name: "snapshot_hashes", Pass: false, Reason: fmt.Sprintf("snapshot %q hash mismatch: manifest=%s disk=%s", name, meta.SHA256, actual)}
		}
	}
	return CheckResult{Name: "snapshot_hashes", Pass: true, Detail: "all snapshot hashes match"}
}

func checkInputsHashDerivation(m *manifest.Manifest) CheckResult {
	hashes := make(map[string]string, len(m.InputSnapshots))
	for name, meta := range m.InputSnapshots {
		hashes[name] = meta.SHA256
	}
	derived, err := identity.ComputeInputsHash(hashes)
	if err != nil {
		return CheckResult{Name: "inputs_hash_derivation", Pass: false, Reason: err.Error()}
	}
	if derived != m.InputsHash {
		return CheckResult{Name: "inputs_hash_derivation", Pass: false, Reason: fmt.Sprintf("derived %s, manifest has %s", derived, m.InputsHash)}
	}
	return CheckResult{Name: "inputs_hash_derivation", Pass: true, Detail: "inputs_hash re-derivation matches"}
}

func checkRunIDDerivation(m *manifest.Manifest) CheckResult {
	base := identity.DeriveRunID(m.InputsHash, "")
	if m.RunID == base {
		return CheckResult{Name: "run_id_derivation", Pass: true, Detail: "run_id matches unsuffixed derivation"}
	}
	// Accept a deterministic collision suffix: run_id must equal base
	// plus a "-N" tail (SPEC_FULL §4.6, §9).
	if len(m.RunID) > len(base) && m.RunID[:len(base)] == base && m.RunID[len(base)] == '-' {
		return CheckResult{Name: "run_id_derivation", Pass: true, Detail: "run_id matches suffixed derivation"}
	}
	return CheckResult{Name: "run_id_derivation", Pass: false, Reason: fmt.Sprintf("derived base %s does not prefix manifest run_id %s", base, m.RunID)}
}

func checkJobIDConsistency(runDir string, m *manifest.Manifest) CheckResult {
	briefMeta, ok := m.InputSnapshots["brief"]
	if !ok {
		return CheckResult{Name: "job_id_consistency", Pass: true, Detail: "no brief snapshot declared"}
	}
	data, err := os.ReadFile(filepath.Join(runDir, filepath.FromSlash(briefMeta.Path)))
	if err != nil {
		return CheckResult{Name: "job_id_consistency", Pass: false, Reason: fmt.Sprintf("cannot read brief snapshot: %v", err)}
	}
	var brief struct {
		JobID string `json:"job_id"`
	}
	if err := json.Unmarshal(data, &brief); err != nil {
		return CheckResult{Name: "job_id_consistency", Pass: false, Reason: fmt.Sprintf("brief snapshot not valid JSON: %v", err)}
	}
	if brief.JobID != m.JobID {
		return CheckResult{Name: "job_id_consistency", Pass: false, Reason: fmt.Sprintf("manifest job_id %q != brief snapshot job_id %q", m.JobID, brief.JobID)}
	}
	return CheckResult{Name: "job_id_consistency", Pass: true, Detail: "job_id matches brief snapshot"}
}

func checkChainableStructure(runDir string, m *manifest.Manifest) CheckResult {
	if m.ChainMetadata == nil || !m.ChainMetadata.IsChainableStage {
		return CheckResult{Name: "chainable_structure", Pass: true, Detail: "not a chainable stage"}
	}
	meta, ok := m.InputSnapshots["prior_artifact"]
	if !ok {
		return CheckResult{Name: "chainable_structure", Pass: false, Reason: "chainable stage missing prior_artifact snapshot"}
	}
	data, err := os.ReadFile(filepath.Join(runDir, filepath.FromSlash(meta.Path)))
	if err != nil {
		return CheckResult{Name: "chainable_structure", Pass: false, Reason: fmt.Sprintf("cannot read prior_artifact snapshot: %v", err)}
	}
	var binding struct {
		PriorRunID        string            `json:"prior_run_id"`
		PriorOutputHashes map[string]string `json:"prior_output_hashes"`
		RequiredOutputs   []string          `json:"required_outputs"`
	}
	if err := json.Unmarshal(data, &binding); err != nil {
		return CheckResult{Name: "chainable_structure", Pass: false, Reason: fmt.Sprintf("prior_artifact snapshot not valid JSON: %v", err)}
	}
	if binding.PriorRunID == "" {
		return CheckResult{Name: "chainable_structure", Pass: false, Reason: "prior_artifact snapshot missing prior_run_id"}
	}
	if len(binding.PriorOutputHashes) == 0 {
		return CheckResult{Name: "chainable_structure", Pass: false, Reason: "prior_artifact snapshot missing prior_output_hashes"}
	}
	if len(binding.RequiredOutputs) == 0 {
		return CheckResult{Name: "chainable_structure", Pass: false, Reason: "prior_artifact snapshot missing required_outputs"}
	}
	return CheckResult{Name: "chainable_structure", Pass: true, Detail: "prior_artifact snapshot contains prior_run_id, prior_output_hashes, required_outputs"}
}
