// Package priorartifact implements the Prior-Artifact Binder (SPEC_FULL
// §4.7): for chainable stages it discovers the prior run on disk,
// validates required outputs, and assembles the binding record whose
// hash chains this run to the upstream one.
package priorartifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/latticerun/detcore/pkg/canonicalize"
	"github.com/latticerun/detcore/pkg/manifest"
)

// Binding is the prior_artifact.resolved.json snapshot payload
// (SPEC_FULL §3).
type Binding struct {
	PriorRunID          string            `json:"prior_run_id"`
	PriorJobID          string            `json:"prior_job_id"`
	PriorStage          string            `json:"prior_stage"`
	PriorManifestSubset map[string]string `json:"prior_manifest_subset"`
	RequiredOutputs     []string          `json:"required_outputs"`
	PriorOutputHashes   map[string]string `json:"prior_output_hashes"`
}

type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Code + ": " + e.Message }

const (
	CodePriorRunNotFound       = "PriorRunNotFound"
	CodePriorOutputMissing     = "PriorOutputMissing"
	CodePriorManifestInconsist = "PriorManifestInconsistent"
)

// Bind resolves priorRunID by scanning artifactsRoot/*/ for a
// subdirectory named priorRunID whose manifest is present, taking the
// first match in lexicographic order of parent (job) directory name,
// then hashes the current bytes of each required output.
func Bind(artifactsRoot, priorRunID, priorStage string, requiredOutputs []string) (Binding, error) {
	runDir, man, err := findPriorRun(artifactsRoot, priorRunID)
	if err != nil {
		return Binding{}, err
	}
	if man.RunID != priorRunID {
		return Binding{}, &Error{Code: CodePriorManifestInconsist, Message: fmt.Sprintf("manifest run_id %q does not match requested %q", man.RunID, priorRunID)}
	}

	outputHashes := make(map[string]string, len(requiredOutputs))
	for _, name := range requiredOutputs {
		meta, ok := man.Artifacts[name]
		if !ok {
			return Binding{}, &Error{Code: CodePriorOutputMissing, Message: fmt.Sprintf("required output %q not declared in prior manifest", name)}
		}
		outputPath := filepath.Join(runDir, filepath.FromSlash(meta.Path))
		data, err := os.ReadFile(outputPath)
		if err != nil {
			return Binding{}, &Error{Code: CodePriorOutputMissing, Message: fmt.Sprintf("required output %q missing on disk: %v", name, err)}
		}
		outputHashes[name] = canonicalize.Hash(data)
	}

	subset := map[string]string{
		"schema_version": man.SchemaVersion,
		"inputs_hash":    man.InputsHash,
	}

	return Binding{
		PriorRunID:          priorRunID,
		PriorJobID:          man.JobID,
		PriorStage:          priorStage,
		PriorManifestSubset: subset,
		RequiredOutputs:     requiredOutputs,
		PriorOutputHashes:   outputHashes,
	}, nil
}

func findPriorRun(artifactsRoot, priorRunID string) (string, *manifest.Manifest, error) {
	entries, err := os.ReadDir(artifactsRoot)
	if err != nil {
		return "", nil, &Error{Code: CodePriorRunNotFound, Message: err.Error()}
	}

	jobDirs := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() && e.Name() != "runs" {
			jobDirs = append(jobDirs, e.Name())
		}
	}
	sort.Strings(jobDirs)

	for _, job := range jobDirs {
		candidate := filepath.Join(artifactsRoot, job, priorRunID)
		manifestPath := filepath.Join(candidate, "manifest.json")
		data, err := os.ReadFile(manifestPath)
		if err != nil {
			continue
		}
		var m manifest.Manifest
		if err := json.Unmarshal(data, &m); err != nil {
			continue
		}
		return candidate, &m, nil
	}

	return "", nil, &Error{Code: CodePriorRunNotFound, Message: fmt.Sprintf("no manifest found for prior run %q under %s", priorRunID, artifactsRoot)}
}
