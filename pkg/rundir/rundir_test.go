package rundir

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latticerun/detcore/pkg/manifest"
)

func writeManifestFile(t *testing.T, runDir string, m manifest.Manifest) {
	t.Helper()
	require.NoError(t, os.MkdirAll(runDir, 0o755))
	data, err := m.FullBytes()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(runDir, "manifest.json"), data, 0o644))
}

func TestAllocateBuildDir_CreatesDirectory(t *testing.T) {
	root := t.TempDir()
	mgr := New(root, nil, nil, nil)

	dir, err := mgr.AllocateBuildDir("job-1")
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestFinalize_FreshRunRenamesIntoPlace(t *testing.T) {
	root := t.TempDir()
	mgr := New(root, nil, nil, nil)

	buildDir, err := mgr.AllocateBuildDir("job-1")
	require.NoError(t, err)
	writeManifestFile(t, buildDir, manifest.Manifest{RunID: "abc123", InputsHash: "sha256:abc123"})

	result, err := mgr.Finalize(context.Background(), "job-1", buildDir, "abc123", "sha256:abc123")
	require.NoError(t, err)

	assert.False(t, result.Replayed)
	assert.Equal(t, "abc123", result.RunID)
	assert.Equal(t, filepath.Join(root, "job-1", "abc123"), result.RunDir)

	_, err = os.Stat(buildDir)
	assert.True(t, os.IsNotExist(err))
}

func TestFinalize_IdempotentReplayWhenInputsHashMatches(t *testing.T) {
	root := t.TempDir()
	mgr := New(root, nil, nil, nil)

	existing := filepath.Join(root, "job-1", "abc123")
	writeManifestFile(t, existing, manifest.Manifest{RunID: "abc123", InputsHash: "sha256:abc123", Status: manifest.StatusSucceeded})

	buildDir, err := mgr.AllocateBuildDir("job-1")
	require.NoError(t, err)

	result, err := mgr.Finalize(context.Background(), "job-1", buildDir, "abc123", "sha256:abc123")
	require.NoError(t, err)

	assert.True(t, result.Replayed)
	assert.Equal(t, "abc123", result.RunID)
	require.NotNil(t, result.Manifest)
	assert.Equal(t, manifest.StatusSucceeded, result.Manifest.Status)
}

func TestFinalize_CollisionSuffixWhenInputsHashDiffers(t *testing.T) {
	root := t.TempDir()
	mgr := New(root, nil, nil, nil)

	existing := filepath.Join(root, "job-1", "abc123")
	writeManifestFile(t, existing, manifest.Manifest{RunID: "abc123", InputsHash: "sha256:different"})

	buildDir, err := mgr.AllocateBuildDir("job-1")
	require.NoError(t, err)
	writeManifestFile(t, buildDir, manifest.Manifest{RunID: "abc123-2", InputsHash: "sha256:abc123"})

	result, err := mgr.Finalize(context.Background(), "job-1", buildDir, "abc123", "sha256:abc123")
	require.NoError(t, err)

	assert.False(t, result.Replayed)
	assert.Equal(t, "abc123-2", result.RunID)
	assert.Equal(t, filepath.Join(root, "job-1", "abc123-2"), result.RunDir)
}

type fakeAccelerator struct {
	entries map[string]string
}

func newFakeAccelerator() *fakeAccelerator {
	return &fakeAccelerator{entries: make(map[string]string)}
}

func (f *fakeAccelerator) Get(ctx context.Context, inputsHash string) (string, bool) {
	v, ok := f.entries[inputsHash]
	return v, ok
}

func (f *fakeAccelerator) Set(ctx context.Context, inputsHash, runDir string) {
	f.entries[inputsHash] = runDir
}

func TestFinalize_AcceleratorShortCircuitsFilesystemScan(t *testing.T) {
	root := t.TempDir()
	acc := newFakeAccelerator()
	mgr := New(root, acc, nil, nil)

	existing := filepath.Join(root, "job-1", "abc123")
	writeManifestFile(t, existing, manifest.Manifest{RunID: "abc123", InputsHash: "sha256:abc123", Status: manifest.StatusSucceeded})
	acc.Set(context.Background(), "sha256:abc123", existing)

	buildDir, err := mgr.AllocateBuildDir("job-1")
	require.NoError(t, err)

	result, err := mgr.Finalize(context.Background(), "job-1", buildDir, "abc123", "sha256:abc123")
	require.NoError(t, err)

	assert.True(t, result.Replayed)
	assert.Equal(t, existing, result.RunDir)
}

func TestFinalize_PopulatesAccelerator(t *testing.T) {
	root := t.TempDir()
	acc := newFakeAccelerator()
	mgr := New(root, acc, nil, nil)

	buildDir, err := mgr.AllocateBuildDir("job-1")
	require.NoError(t, err)
	writeManifestFile(t, buildDir, manifest.Manifest{RunID: "abc123", InputsHash: "sha256:abc123"})

	_, err = mgr.Finalize(context.Background(), "job-1", buildDir, "abc123", "sha256:abc123")
	require.NoError(t, err)

	runDir, ok := acc.Get(context.Background(), "sha256:abc123")
	assert.True(t, ok)
	assert.Equal(t, filepath.Join(root, "job-1", "abc123"), runDir)
}
