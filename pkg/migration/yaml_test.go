package migration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRegistryYAML = `
migrations:
  - from_version: "1.0.0"
    to_version: "1.1.0"
    change_list:
      - "add retry_count default"
    set_defaults:
      - field: retry_count
        value: 0
      - field: chain_metadata.is_chainable_stage
        value: false
`

func TestLoadRegistryYAML_BuildsApplicableMigration(t *testing.T) {
	registry, err := LoadRegistryYAML([]byte(sampleRegistryYAML))
	require.NoError(t, err)

	path, err := registry.FindPath("1.0.0", "1.1.0")
	require.NoError(t, err)
	require.Len(t, path, 1)

	before := map[string]interface{}{"schema_version": "1.0.0"}
	require.NoError(t, path[0].ValidateBefore(before))

	after, err := path[0].Transform(before)
	require.NoError(t, err)
	assert.Equal(t, 0, after["retry_count"])

	nested, ok := after["chain_metadata"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, false, nested["is_chainable_stage"])

	require.NoError(t, path[0].ValidateAfter(before, after))
}

func TestLoadRegistryYAML_RejectsMissingVersions(t *testing.T) {
	_, err := LoadRegistryYAML([]byte("migrations:\n  - change_list: [\"x\"]\n"))
	assert.Error(t, err)
}

func TestLoadRegistryFile_FallsBackToBuiltinWhenMissing(t *testing.T) {
	registry, err := LoadRegistryFile(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)

	path, err := registry.FindPath("1.0.0", "1.2.0")
	require.NoError(t, err)
	assert.NotEmpty(t, path)
}

func TestLoadRegistryFile_ParsesExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "migrations.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleRegistryYAML), 0o644))

	registry, err := LoadRegistryFile(path)
	require.NoError(t, err)

	hops, err := registry.FindPath("1.0.0", "1.1.0")
	require.NoError(t, err)
	assert.Len(t, hops, 1)
}

func TestSetDottedDefault_DoesNotOverwriteExisting(t *testing.T) {
	m := map[string]interface{}{"retry_count": 5}
	setDottedDefault(m, "retry_count", 0)
	assert.Equal(t, 5, m["retry_count"])
}

func TestSetDottedDefault_CreatesNestedPath(t *testing.T) {
	m := map[string]interface{}{}
	setDottedDefault(m, "a.b", "v")
	nested, ok := m["a"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "v", nested["b"])
}

func TestHasDottedField(t *testing.T) {
	m := map[string]interface{}{"a": map[string]interface{}{"b": 1}}
	assert.True(t, hasDottedField(m, "a.b"))
	assert.False(t, hasDottedField(m, "a.c"))
	assert.False(t, hasDottedField(m, "z"))
}
