package interfaces

import "context"

// UsageMeta captures volatile, non-hashed bookkeeping about an LLM
// adapter call (token counts, latency, provider request id). It is
// recorded in the manifest's full projection only and never
// participates in inputs_hash.
type UsageMeta struct {
	PromptTokens     int    `json:"prompt_tokens,omitempty"`
	CompletionTokens int    `json:"completion_tokens,omitempty"`
	LatencyMS        int64  `json:"latency_ms,omitempty"`
	ProviderRequest  string `json:"provider_request_id,omitempty"`
}

// LLMAdapter is the collaborator interface the core treats as an opaque
// pure function from (prompt, model_config) to (output bytes): the core
// records the model configuration as a hashed input but is not
// responsible for the determinism of the adapter itself (SPEC_FULL §6).
type LLMAdapter interface {
	Invoke(ctx context.Context, promptBytes []byte, modelConfig map[string]interface{}) (outputBytes []byte, usage UsageMeta, err error)
}

// CorpusReader enumerates and reads files under a repo-relative root for
// the Context Resolver. Implementations must refuse any path that
// escapes root.
type CorpusReader interface {
	// List returns repo-relative paths under root matching any of
	// patterns (glob mode) or every path under root (retrieve mode
	// scans with its own keyword filter). Returned paths are not
	// required to be sorted; callers sort for determinism.
	List(ctx context.Context, root string, patterns []string) ([]string, error)

	// Read returns the bytes of a single repo-relative path under root.
	Read(ctx context.Context, root, path string) ([]byte, error)
}

// ObservabilityEmitter is a no-op-safe sink for run metadata. A failing
// or absent emitter must never fail a run (SPEC_FULL §6).
type ObservabilityEmitter interface {
	EmitRunMetadata(ctx context.Context, jobID, runID, inputsHash string)
}

// NoopObservabilityEmitter discards everything; used when no emitter is
// configured, so engine code never needs a nil check.
type NoopObservabilityEmitter struct{}

func (NoopObservabilityEmitter) EmitRunMetadata(context.Context, string, string, string) {}
