package migration

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, path string, m map[string]interface{}) {
	t.Helper()
	data, err := json.MarshalIndent(m, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func v1Manifest() map[string]interface{} {
	return map[string]interface{}{
		"schema_version": "1.0.0",
		"job_id":         "job-1",
		"run_id":         "deadbeefdeadbeefdeadbeefdeadbeef",
		"inputs_hash":    "sha256:deadbeef",
		"artifacts":      map[string]interface{}{},
	}
}

func TestApply_MigratesAcrossVersions(t *testing.T) {
	dir := t.TempDir()
	manifestPath := filepath.Join(dir, "manifest.json")
	writeManifest(t, manifestPath, v1Manifest())

	registry := BuiltinRegistry()
	result, err := Apply(registry, manifestPath, "1.2.0", false)
	require.NoError(t, err)
	require.False(t, result.NoOp)
	require.Equal(t, "1.0.0", result.FromVersion)
	require.Equal(t, "1.2.0", result.ToVersion)

	_, err = os.Stat(manifestPath + ".backup")
	require.NoError(t, err)

	data, err := os.ReadFile(manifestPath)
	require.NoError(t, err)
	var after map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &after))
	require.Equal(t, "1.2.0", after["schema_version"])
	require.Equal(t, "job-1", after["job_id"])
	require.Equal(t, "deadbeefdeadbeefdeadbeefdeadbeef", after["run_id"])
	require.Contains(t, after, "input_snapshots")
	history, _ := after["migration_history"].([]interface{})
	require.Len(t, history, 1)
}

func TestApply_SecondApplicationIsNoOp(t *testing.T) {
	dir := t.TempDir()
	manifestPath := filepath.Join(dir, "manifest.json")
	writeManifest(t, manifestPath, v1Manifest())

	registry := BuiltinRegistry()
	_, err := Apply(registry, manifestPath, "1.2.0", false)
	require.NoError(t, err)

	result, err := Apply(registry, manifestPath, "1.2.0", false)
	require.NoError(t, err)
	require.True(t, result.NoOp)
}

func TestApply_DryRunDoesNotWrite(t *testing.T) {
	dir := t.TempDir()
	manifestPath := filepath.Join(dir, "manifest.json")
	writeManifest(t, manifestPath, v1Manifest())

	registry := BuiltinRegistry()
	result, err := Apply(registry, manifestPath, "1.2.0", true)
	require.NoError(t, err)
	require.NotEmpty(t, result.ResultBytes)

	_, err = os.Stat(manifestPath + ".backup")
	require.True(t, os.IsNotExist(err))

	data, err := os.ReadFile(manifestPath)
	require.NoError(t, err)
	var original map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &original))
	require.Equal(t, "1.0.0", original["schema_version"])
}

func TestRegistry_FindPath_NoPath(t *testing.T) {
	registry := NewRegistry(nil)
	_, err := registry.FindPath("1.0.0", "9.9.9")
	require.Error(t, err)
}

func TestMigrateAll_DiscoversAndMigratesIndependently(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, filepath.Join(root, "job-a", "run-a", "manifest.json"), v1Manifest())
	writeManifest(t, filepath.Join(root, "job-b", "run-b", "manifest.json"), v1Manifest())

	registry := BuiltinRegistry()
	stats, err := MigrateAll(context.Background(), registry, root, "1.2.0", false, 2)
	require.NoError(t, err)
	require.Equal(t, 2, stats.Discovered)
	require.Equal(t, 2, stats.Migrated)
	require.Equal(t, 0, stats.Failed)
}
