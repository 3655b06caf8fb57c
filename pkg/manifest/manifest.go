// Package manifest implements the Manifest Assembler (SPEC_FULL §4.8):
// the canonical record of one run, with a deterministic projection used
// for byte-stable comparison and a full projection written to disk.
package manifest

import (
	"time"

	"github.com/latticerun/detcore/pkg/canonicalize"
	"github.com/latticerun/detcore/pkg/doctrine"
	"github.com/latticerun/detcore/pkg/snapshot"
)

const CurrentSchemaVersion = "1.2.0"

// Status values a manifest may carry (SPEC_FULL §6).
const (
	StatusSucceeded       = "succeeded"
	StatusFailed          = "failed"
	StatusIdempotentReplay = "idempotent_replay"
)

// ChainMetadata records whether a run is a chainable stage and which
// prior runs it is bound to. SPEC_FULL §9 permits the list structure
// even though no pipeline populates more than one entry today.
type ChainMetadata struct {
	IsChainableStage bool     `json:"is_chainable_stage"`
	PriorStages      []string `json:"prior_stages,omitempty"`
}

// MigrationRecord is one append-only entry in migration_history.
type MigrationRecord struct {
	FromVersion     string    `json:"from_version"`
	ToVersion       string    `json:"to_version"`
	AppliedAt       time.Time `json:"applied_at"`
	Changes         []string  `json:"changes"`
	ChecksumBefore  string    `json:"checksum_before"`
	ChecksumAfter   string    `json:"checksum_after"`
}

// Manifest is the canonical record of a run (SPEC_FULL §3, §6).
type Manifest struct {
	SchemaVersion    string                    `json:"schema_version"`
	JobID            string                    `json:"job_id"`
	RunID            string                    `json:"run_id"`
	QueueJobID       string                    `json:"queue_job_id,omitempty"`
	JobRef           string                    `json:"job_ref"`
	JobType          string                    `json:"job_type"`
	Status           string                    `json:"status"`
	InputsHash       string                    `json:"inputs_hash"`
	InputSnapshots   map[string]snapshot.Meta  `json:"input_snapshots"`
	Doctrine         doctrine.Reference        `json:"doctrine"`
	Artifacts        map[string]snapshot.Meta  `json:"artifacts"`
	ChainMetadata    *ChainMetadata            `json:"chain_metadata,omitempty"`
	MigrationHistory []MigrationRecord         `json:"migration_history,omitempty"`

	// Volatile fields: present in the full projection, excluded from
	// the deterministic projection (SPEC_FULL §4.8).
	StartedAt       time.Time `json:"started_at,omitempty"`
	FinishedAt      time.Time `json:"finished_at,omitempty"`
	LangfuseTraceID string    `json:"langfuse_trace_id,omitempty"`

	// FailureDetail is populated only when Status == StatusFailed; it is
	// a full-projection-only field (SPEC_FULL §7 PayloadFailure).
	FailureDetail string `json:"failure_detail,omitempty"`

	// OutputPreview is a deterministic, truncated human-readable preview
	// of the payload output content. Full-projection-only: it never
	// participates in inputs_hash or the deterministic comparison view.
	OutputPreview string `json:"output_preview,omitempty"`

	// Signature, when non-empty, is a JWS compact token over the
	// deterministic projection's hash (SPEC_FULL §11). Full-projection
	// only; never participates in any hash itself.
	Signature string `json:"signature,omitempty"`
}

// deterministicView is the subset of fields that participate in
// cross-run, cross-platform byte-stable comparison.
type deterministicView struct {
	SchemaVersion    string                   `json:"schema_version"`
	JobID            string                   `json:"job_id"`
	RunID            string                   `json:"run_id"`
	JobType          string                   `json:"job_type"`
	Status           string                   `json:"status"`
	InputsHash       string                   `json:"inputs_hash"`
	InputSnapshots   map[string]snapshot.Meta `json:"input_snapshots"`
	Doctrine         doctrine.Reference       `json:"doctrine"`
	Artifacts        map[string]snapshot.Meta `json:"artifacts"`
	ChainMetadata    *ChainMetadata           `json:"chain_metadata,omitempty"`
	MigrationHistory []MigrationRecord        `json:"migration_history,omitempty"`
}

// DeterministicBytes returns the compact canonical encoding of the
// deterministic projection (SPEC_FULL §4.8, P7).
func (m *Manifest) DeterministicBytes() ([]byte, error) {
	view := deterministicView{
		SchemaVersion:    m.SchemaVersion,
		JobID:            m.JobID,
		RunID:            m.RunID,
		JobType:          m.JobType,
		Status:           m.Status,
		InputsHash:       m.InputsHash,
		InputSnapshots:   m.InputSnapshots,
		Doctrine:         m.Doctrine,
		Artifacts:        m.Artifacts,
		ChainMetadata:    m.ChainMetadata,
		MigrationHistory: m.MigrationHistory,
	}
	return canonicalize.EncodeCompact(view)
}

// FullBytes returns the 2-space-indented full projection written to
// manifest.json, including volatile fields.
func (m *Manifest) FullBytes() ([]byte, error) {
	return canonicalize.EncodePretty(m)
}
