// Package engine composes every collaborator package into the core's
// five exported operations (SPEC_FULL §6): execute_run, verify_run,
// replay, migrate_all, reindex.
package engine

import (
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Brief is the governance request driving one run (SPEC_FULL §3). It is
// immutable within a run; its canonical snapshot is brief.resolved.json.
type Brief struct {
	JobID    string                 `json:"job_id"`
	JobType  string                 `json:"job_type"`
	JobRef   string                 `json:"job_ref"`
	Params   map[string]interface{} `json:"params"`

	// PriorRunID and RequiredOutputs are populated only for chainable
	// stages (SPEC_FULL §3 "Prior-Artifact Binding").
	PriorRunID      string   `json:"prior_run_id,omitempty"`
	PriorStage      string   `json:"prior_stage,omitempty"`
	RequiredOutputs []string `json:"required_outputs,omitempty"`

	// QueueJobID is ephemeral and excluded from every hash.
	QueueJobID string `json:"queue_job_id,omitempty"`
}

// IsChainable reports whether this brief binds to a prior run.
func (b Brief) IsChainable() bool {
	return b.PriorRunID != ""
}

// HashProjection returns the copy of b that is actually snapshotted and
// hashed: QueueJobID is cleared so it never reaches inputs/brief.resolved.json
// and therefore never feeds hashes["brief"], inputs_hash, or run_id
// (SPEC_FULL §3, GLOSSARY "recorded but never hashed"). QueueJobID itself
// is recorded separately on the manifest for audit.
func (b Brief) HashProjection() Brief {
	b.QueueJobID = ""
	return b
}

const briefParamsSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["job_id", "job_type"],
  "properties": {
    "job_id": {"type": "string", "minLength": 1},
    "job_type": {"type": "string", "minLength": 1}
  }
}`

const modelConfigSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["provider", "model"],
  "properties": {
    "provider": {"type": "string", "minLength": 1},
    "model": {"type": "string", "minLength": 1},
    "temperature": {"type": "number", "minimum": 0, "maximum": 2},
    "top_p": {"type": "number", "minimum": 0, "maximum": 1}
  }
}`

func compileSchema(name, schemaJSON string) (*jsonschema.Schema, error) {
	url := "https://detcore.dev/schemas/" + name + ".schema.json"
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(url, strings.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("engine: load %s schema: %w", name, err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("engine: compile %s schema: %w", name, err)
	}
	return compiled, nil
}

// ModelConfig is the model_config.json snapshot payload (SPEC_FULL §3).
type ModelConfig struct {
	Provider       string                 `json:"provider"`
	Model          string                 `json:"model"`
	Temperature    float64                `json:"temperature,omitempty"`
	TopP           float64                `json:"top_p,omitempty"`
	ResponseSchema map[string]interface{} `json:"response_schema,omitempty"`
	CacheFlag      bool                   `json:"cache_flag,omitempty"`
}
