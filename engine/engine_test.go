package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latticerun/detcore/pkg/corpus"
	"github.com/latticerun/detcore/pkg/doctrine"
	"github.com/latticerun/detcore/pkg/interfaces"
	"github.com/latticerun/detcore/pkg/manifest"
	"github.com/latticerun/detcore/pkg/payload"
	"github.com/latticerun/detcore/pkg/rundir"
)

type failingAdapter struct{}

func (failingAdapter) Invoke(ctx context.Context, promptBytes []byte, modelConfig map[string]interface{}) ([]byte, interfaces.UsageMeta, error) {
	return nil, interfaces.UsageMeta{}, assert.AnError
}

func newTestEngine(t *testing.T, llm interfaces.LLMAdapter) (*Engine, string) {
	t.Helper()
	artifactsRoot := t.TempDir()
	corpusRoot := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(corpusRoot, "doc.md"), []byte("hello world"), 0o644))

	doctrinesRoot := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(doctrinesRoot, "doctrines", "review"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(doctrinesRoot, "doctrines", "review", "1.0.0.json"), []byte(`{"rules":[]}`), 0o644))

	store := doctrine.NewStore(doctrinesRoot, []string{"review"}, []string{"doctrines"})
	runDirMgr := rundir.New(artifactsRoot, nil, nil, nil)

	e := New(artifactsRoot, corpusRoot, store, runDirMgr, llm, corpus.NewFilesystemReader(), nil, nil, nil, nil, nil)
	return e, artifactsRoot
}

func baseBrief() Brief {
	return Brief{
		JobID:   "job-1",
		JobType: "review",
		JobRef:  "ref-1",
		Params:  map[string]interface{}{},
	}
}

func baseParams() Params {
	return Params{
		DoctrineID:      "review",
		DoctrineVersion: "1.0.0",
		Context: ContextRequest{
			Strategy: "glob",
			Patterns: []string{"*.md"},
		},
		Model: ModelConfig{Provider: "test", Model: "test-model"},
	}
}

func TestExecuteRun_FreshRunSucceeds(t *testing.T) {
	e, artifactsRoot := newTestEngine(t, payload.EchoAdapter{})

	man, err := e.ExecuteRun(context.Background(), baseBrief(), baseParams())
	require.NoError(t, err)

	assert.Equal(t, manifest.StatusSucceeded, man.Status)
	assert.NotEmpty(t, man.RunID)
	assert.NotEmpty(t, man.InputsHash)
	assert.Contains(t, man.Artifacts, "response")
	assert.NotEmpty(t, man.OutputPreview)

	runDir := filepath.Join(artifactsRoot, "job-1", man.RunID)
	_, err = os.Stat(filepath.Join(runDir, "manifest.json"))
	assert.NoError(t, err)
}

func TestExecuteRun_IdempotentReplayReturnsSameRunID(t *testing.T) {
	e, _ := newTestEngine(t, payload.EchoAdapter{})

	first, err := e.ExecuteRun(context.Background(), baseBrief(), baseParams())
	require.NoError(t, err)

	second, err := e.ExecuteRun(context.Background(), baseBrief(), baseParams())
	require.NoError(t, err)

	assert.Equal(t, first.RunID, second.RunID)
	assert.Equal(t, first.InputsHash, second.InputsHash)
}

func TestExecuteRun_PayloadFailureProducesFailedStatus(t *testing.T) {
	e, _ := newTestEngine(t, failingAdapter{})

	man, err := e.ExecuteRun(context.Background(), baseBrief(), baseParams())
	require.NoError(t, err)

	assert.Equal(t, manifest.StatusFailed, man.Status)
	assert.NotEmpty(t, man.FailureDetail)
}

func TestExecuteRun_RejectsInvalidBrief(t *testing.T) {
	e, _ := newTestEngine(t, payload.EchoAdapter{})

	brief := baseBrief()
	brief.JobID = ""

	_, err := e.ExecuteRun(context.Background(), brief, baseParams())
	assert.Error(t, err)
}

func TestExecuteRun_RejectsInvalidModelConfig(t *testing.T) {
	e, _ := newTestEngine(t, payload.EchoAdapter{})

	params := baseParams()
	params.Model = ModelConfig{}

	_, err := e.ExecuteRun(context.Background(), baseBrief(), params)
	assert.Error(t, err)
}

func TestExecuteRun_QueueJobIDExcludedFromInputsHash(t *testing.T) {
	e, _ := newTestEngine(t, payload.EchoAdapter{})

	withoutQueueID := baseBrief()
	first, err := e.ExecuteRun(context.Background(), withoutQueueID, baseParams())
	require.NoError(t, err)

	withQueueID := baseBrief()
	withQueueID.QueueJobID = "queue-7f3a"
	second, err := e.ExecuteRun(context.Background(), withQueueID, baseParams())
	require.NoError(t, err)

	// A brief differing only in QueueJobID must hash identically and
	// therefore replay the same run, proving QueueJobID never reaches
	// hashes["brief"] (SPEC_FULL §3, GLOSSARY "recorded but never hashed").
	assert.Equal(t, first.InputsHash, second.InputsHash)
	assert.Equal(t, first.RunID, second.RunID)
	assert.True(t, second.QueueJobID == "" || second.QueueJobID == first.QueueJobID)

	data, err := os.ReadFile(filepath.Join(e.ArtifactsRoot, "job-1", first.RunID, "inputs", "brief.resolved.json"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "queue_job_id")
}

func TestExecuteRun_ChainableStageBindsPriorArtifact(t *testing.T) {
	e, artifactsRoot := newTestEngine(t, payload.EchoAdapter{})

	first, err := e.ExecuteRun(context.Background(), baseBrief(), baseParams())
	require.NoError(t, err)

	nextBrief := Brief{
		JobID:           "job-2",
		JobType:         "review",
		JobRef:          "ref-2",
		Params:          map[string]interface{}{},
		PriorRunID:      first.RunID,
		PriorStage:      "review",
		RequiredOutputs: []string{"response"},
	}

	second, err := e.ExecuteRun(context.Background(), nextBrief, baseParams())
	require.NoError(t, err)

	assert.Equal(t, manifest.StatusSucceeded, second.Status)
	require.NotNil(t, second.ChainMetadata)
	assert.True(t, second.ChainMetadata.IsChainableStage)

	_, err = os.Stat(filepath.Join(artifactsRoot, "job-2", second.RunID, "inputs", "prior_artifact.resolved.json"))
	assert.NoError(t, err)
}
