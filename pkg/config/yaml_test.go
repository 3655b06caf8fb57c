package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDoctrineConfig_MissingFileReturnsEmptyConfig(t *testing.T) {
	cfg, err := LoadDoctrineConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Empty(t, cfg.Whitelist)
	assert.Empty(t, cfg.CandidateRoots)
}

func TestLoadDoctrineConfig_ParsesExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doctrine.yaml")
	content := "whitelist:\n  - doctrine-a\n  - doctrine-b\ncandidate_roots:\n  - ./doctrines\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadDoctrineConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"doctrine-a", "doctrine-b"}, cfg.Whitelist)
	assert.Equal(t, []string{"./doctrines"}, cfg.CandidateRoots)
}

func TestLoadDoctrineConfig_RejectsMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doctrine.yaml")
	require.NoError(t, os.WriteFile(path, []byte("whitelist: [unterminated"), 0o644))

	_, err := LoadDoctrineConfig(path)
	assert.Error(t, err)
}
