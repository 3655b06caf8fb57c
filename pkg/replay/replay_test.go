package replay

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/latticerun/detcore/pkg/manifest"
	"github.com/latticerun/detcore/pkg/snapshot"
	"github.com/stretchr/testify/require"
)

func TestProbe_MissingManifest(t *testing.T) {
	dir := t.TempDir()
	result := Probe(dir)
	require.False(t, result.CanReplay)
	require.Len(t, result.Diagnostics, 1)
	require.Equal(t, "manifest_present", result.Diagnostics[0].Name)
}

func TestProbe_UnrecognizedSchemaVersion(t *testing.T) {
	dir := t.TempDir()
	m := manifest.Manifest{SchemaVersion: "0.0.1", JobID: "j", RunID: "r"}
	data, err := json.Marshal(&m)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "manifest.json"), data, 0o644))

	result := Probe(dir)
	require.False(t, result.CanReplay)
	require.Len(t, result.Diagnostics, 3)
}

func TestProbe_AllPresent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "inputs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "inputs", "brief.resolved.json"), []byte("{}\n"), 0o644))

	m := manifest.Manifest{
		SchemaVersion: manifest.CurrentSchemaVersion,
		JobID:         "j",
		RunID:         "r",
		InputSnapshots: map[string]snapshot.Meta{
			"brief": {Path: "inputs/brief.resolved.json", SHA256: "sha256:deadbeef", Bytes: 3},
		},
	}
	data, err := json.Marshal(&m)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "manifest.json"), data, 0o644))

	result := Probe(dir)
	require.True(t, result.CanReplay)
	require.Len(t, result.Diagnostics, 3)
	for _, d := range result.Diagnostics {
		require.True(t, d.Pass)
	}
}

func TestProbe_MissingSnapshotFile(t *testing.T) {
	dir := t.TempDir()

	m := manifest.Manifest{
		SchemaVersion: manifest.CurrentSchemaVersion,
		JobID:         "j",
		RunID:         "r",
		InputSnapshots: map[string]snapshot.Meta{
			"brief": {Path: "inputs/brief.resolved.json", SHA256: "sha256:deadbeef", Bytes: 3},
		},
	}
	data, err := json.Marshal(&m)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "manifest.json"), data, 0o644))

	result := Probe(dir)
	require.False(t, result.CanReplay)
}
