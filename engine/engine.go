package engine

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/latticerun/detcore/pkg/canonicalize"
	"github.com/latticerun/detcore/pkg/ctxpack"
	"github.com/latticerun/detcore/pkg/doctrine"
	"github.com/latticerun/detcore/pkg/identity"
	"github.com/latticerun/detcore/pkg/interfaces"
	"github.com/latticerun/detcore/pkg/manifest"
	"github.com/latticerun/detcore/pkg/migration"
	"github.com/latticerun/detcore/pkg/priorartifact"
	"github.com/latticerun/detcore/pkg/rundir"
	"github.com/latticerun/detcore/pkg/snapshot"
	"github.com/latticerun/detcore/pkg/telemetry"
)

// Engine composes every collaborator package constructed once at
// startup, matching the donor's single composition-root style
// (cmd/helm/subsystems.go builds one *Services for the process).
type Engine struct {
	ArtifactsRoot string
	CorpusRoot    string

	Doctrine          *doctrine.Store
	RunDir            *rundir.Manager
	LLM               interfaces.LLMAdapter
	Corpus            interfaces.CorpusReader
	Emitter           interfaces.ObservabilityEmitter
	Telemetry         *telemetry.Provider
	Logger            *slog.Logger
	MigrationRegistry *migration.Registry
	IndexDB           *sql.DB
}

// New constructs an Engine. Any of llm, emitter, tel, indexDB may be nil;
// nil emitter/telemetry degrade to no-ops per SPEC_FULL §6, a nil llm
// finalizes runs without invoking a payload, and a nil registry falls
// back to BuiltinRegistry. corpus must be non-nil: ExecuteRun reads
// context through it.
func New(artifactsRoot, corpusRoot string, doctrineStore *doctrine.Store, runDir *rundir.Manager, llm interfaces.LLMAdapter, corpus interfaces.CorpusReader, emitter interfaces.ObservabilityEmitter, tel *telemetry.Provider, logger *slog.Logger, registry *migration.Registry, indexDB *sql.DB) *Engine {
	if emitter == nil {
		emitter = interfaces.NoopObservabilityEmitter{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if registry == nil {
		registry = migration.BuiltinRegistry()
	}
	return &Engine{
		ArtifactsRoot:     artifactsRoot,
		CorpusRoot:        corpusRoot,
		Doctrine:          doctrineStore,
		RunDir:            runDir,
		LLM:               llm,
		Corpus:            corpus,
		Emitter:           emitter,
		Telemetry:         tel,
		Logger:            logger,
		MigrationRegistry: registry,
		IndexDB:           indexDB,
	}
}

// ContextRequest carries the brief's context-selection parameters
// through to the Context Resolver.
type ContextRequest struct {
	Strategy  string   `json:"strategy"`
	Patterns  []string `json:"patterns,omitempty"`
	Query     string   `json:"query,omitempty"`
	TopK      int      `json:"top_k,omitempty"`
	Predicate string   `json:"predicate,omitempty"`
}

// Params bundles every input execute_run needs beyond the brief itself:
// the doctrine reference to resolve, the context-selection request, and
// the model configuration.
type Params struct {
	DoctrineID      string
	DoctrineVersion string
	Context         ContextRequest
	Model           ModelConfig
}

// ExecuteRun implements execute_run(brief, params) -> manifest
// (SPEC_FULL §6): resolves context and doctrine, snapshots every input,
// computes inputs_hash/run_id, finalizes the run directory (replaying
// idempotently when a matching run already exists), invokes the
// payload adapter, and assembles the final manifest.
func (e *Engine) ExecuteRun(ctx context.Context, brief Brief, params Params) (*manifest.Manifest, error) {
	start := time.Now()

	if e.Telemetry != nil {
		var finish func(error)
		ctx, finish = e.Telemetry.TrackOperation(ctx, "execute_run", telemetry.RunOperation(brief.JobID, "", brief.JobType)...)
		defer func() { finish(nil) }()
	}

	logger := e.Logger.With("job_id", brief.JobID, "job_type", brief.JobType)

	if err := ValidateBrief(brief); err != nil {
		logger.Error("execute_run: brief invalid", "error", err)
		return nil, fmt.Errorf("engine: execute_run: %w", err)
	}
	if err := ValidateModelConfig(params.Model); err != nil {
		logger.Error("execute_run: model_config invalid", "error", err)
		return nil, fmt.Errorf("engine: execute_run: %w", err)
	}

	buildDir, err := e.RunDir.AllocateBuildDir(brief.JobID)
	if err != nil {
		return nil, fmt.Errorf("engine: execute_run: %w", err)
	}

	hashes := make(map[string]string, 5)

	briefMeta, err := snapshot.Write(buildDir, "inputs/brief.resolved.json", brief.HashProjection())
	if err != nil {
		return nil, fmt.Errorf("engine: execute_run: snapshot brief: %w", err)
	}
	hashes["brief"] = briefMeta.SHA256

	contextPack, err := ctxpack.Resolve(ctx, e.Corpus, e.CorpusRoot, ctxpack.Request{
		Strategy:  params.Context.Strategy,
		Patterns:  params.Context.Patterns,
		Query:     params.Context.Query,
		TopK:      params.Context.TopK,
		Predicate: params.Context.Predicate,
	})
	if err != nil {
		return nil, fmt.Errorf("engine: execute_run: resolve context: %w", err)
	}
	contextMeta, err := snapshot.Write(buildDir, "inputs/context.resolved.json", contextPack)
	if err != nil {
		return nil, fmt.Errorf("engine: execute_run: snapshot context: %w", err)
	}
	hashes["context"] = contextMeta.SHA256

	modelMeta, err := snapshot.Write(buildDir, snapshot.InputPath("model_config"), params.Model)
	if err != nil {
		return nil, fmt.Errorf("engine: execute_run: snapshot model_config: %w", err)
	}
	hashes["model_config"] = modelMeta.SHA256

	_, doctrineRef, err := e.Doctrine.Load(params.DoctrineID, params.DoctrineVersion)
	if err != nil {
		return nil, fmt.Errorf("engine: execute_run: resolve doctrine: %w", err)
	}
	doctrineMeta, err := snapshot.Write(buildDir, "inputs/doctrine.resolved.json", doctrineRef)
	if err != nil {
		return nil, fmt.Errorf("engine: execute_run: snapshot doctrine: %w", err)
	}
	hashes["doctrine"] = doctrineMeta.SHA256

	var chainMeta *manifest.ChainMetadata
	var priorMeta snapshot.Meta
	if brief.IsChainable() {
		binding, err := priorartifact.Bind(e.ArtifactsRoot, brief.PriorRunID, brief.PriorStage, brief.RequiredOutputs)
		if err != nil {
			return nil, fmt.Errorf("engine: execute_run: bind prior artifact: %w", err)
		}
		priorMeta, err = snapshot.Write(buildDir, "inputs/prior_artifact.resolved.json", binding)
		if err != nil {
			return nil, fmt.Errorf("engine: execute_run: snapshot prior_artifact: %w", err)
		}
		hashes["prior_artifact"] = priorMeta.SHA256
		chainMeta = &manifest.ChainMetadata{IsChainableStage: true, PriorStages: []string{brief.PriorStage}}
	}

	inputsHash, err := identity.ComputeInputsHash(hashes)
	if err != nil {
		return nil, fmt.Errorf("engine: execute_run: compute inputs_hash: %w", err)
	}
	baseRunID := identity.DeriveRunID(inputsHash, "")

	result, err := e.RunDir.Finalize(ctx, brief.JobID, buildDir, baseRunID, inputsHash)
	if err != nil {
		return nil, fmt.Errorf("engine: execute_run: finalize: %w", err)
	}

	if result.Replayed {
		logger.Info("execute_run: idempotent replay", "run_id", result.RunID, "inputs_hash", inputsHash, "duration_ms", time.Since(start).Milliseconds())
		e.Emitter.EmitRunMetadata(ctx, brief.JobID, result.RunID, inputsHash)
		replayed := *result.Manifest
		replayed.Status = manifest.StatusIdempotentReplay
		return &replayed, nil
	}

	snapshots := map[string]snapshot.Meta{
		"brief":         briefMeta,
		"context":       contextMeta,
		"model_config":  modelMeta,
		"doctrine":      doctrineMeta,
	}
	if brief.IsChainable() {
		snapshots["prior_artifact"] = priorMeta
	}

	man := &manifest.Manifest{
		SchemaVersion:  manifest.CurrentSchemaVersion,
		JobID:          brief.JobID,
		RunID:          result.RunID,
		QueueJobID:     brief.QueueJobID,
		JobRef:         brief.JobRef,
		JobType:        brief.JobType,
		InputsHash:     inputsHash,
		InputSnapshots: snapshots,
		Doctrine:       doctrineRef,
		Artifacts:      map[string]snapshot.Meta{},
		ChainMetadata:  chainMeta,
		StartedAt:      start,
	}

	if e.LLM != nil {
		promptBytes := []byte(contextPack.ContentBlob)
		outputBytes, usage, invokeErr := e.LLM.Invoke(ctx, promptBytes, map[string]interface{}{
			"provider": params.Model.Provider,
			"model":    params.Model.Model,
		})
		if invokeErr != nil {
			man.Status = manifest.StatusFailed
			man.FailureDetail = invokeErr.Error()
			logger.Error("execute_run: payload failed", "run_id", result.RunID, "error", invokeErr)
		} else {
			outputMeta, writeErr := snapshot.Write(result.RunDir, "outputs/response.json", map[string]interface{}{
				"content":    string(outputBytes),
				"usage_meta": usage,
			})
			if writeErr != nil {
				return nil, fmt.Errorf("engine: execute_run: write output: %w", writeErr)
			}
			man.Artifacts["response"] = outputMeta
			man.Status = manifest.StatusSucceeded

			if artifact, previewErr := canonicalize.Canonicalize("detcore.payload_output", string(outputBytes)); previewErr == nil {
				man.OutputPreview = artifact.Preview
			}
		}
	} else {
		man.Status = manifest.StatusSucceeded
	}

	man.FinishedAt = time.Now()

	fullBytes, err := man.FullBytes()
	if err != nil {
		return nil, fmt.Errorf("engine: execute_run: encode manifest: %w", err)
	}
	if err := writeManifestAtomic(result.RunDir, fullBytes); err != nil {
		return nil, fmt.Errorf("engine: execute_run: write manifest: %w", err)
	}

	logger.Info("execute_run: finalized", "run_id", result.RunID, "inputs_hash", inputsHash, "status", man.Status, "duration_ms", time.Since(start).Milliseconds())
	e.Emitter.EmitRunMetadata(ctx, brief.JobID, result.RunID, inputsHash)

	return man, nil
}

// writeManifestAtomic writes manifest.json via the same write-to-tmp-
// then-rename pattern as the Snapshot Writer, so a crash mid-write never
// leaves a partially-written manifest in the canonical run directory.
func writeManifestAtomic(runDir string, data []byte) error {
	path := filepath.Join(runDir, "manifest.json")
	tmpPath := path + ".tmp-" + uuid.NewString()
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write manifest tmp: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename manifest: %w", err)
	}
	return nil
}
