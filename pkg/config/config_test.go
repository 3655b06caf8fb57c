package config_test

import (
	"testing"

	"github.com/latticerun/detcore/pkg/config"
	"github.com/stretchr/testify/assert"
)

// TestLoad_Defaults verifies that Load() returns sensible defaults
// when no environment variables are set.
func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ARTIFACTS_ROOT", "")
	t.Setenv("DOCTRINE_WHITELIST_ROOTS", "")
	t.Setenv("CORPUS_ROOT", "")
	t.Setenv("INDEX_DB_DRIVER", "")
	t.Setenv("INDEX_DB_DSN", "")
	t.Setenv("TELEMETRY_OTLP_ENDPOINT", "")
	t.Setenv("REPLICA_REDIS_ADDR", "")
	t.Setenv("MIRROR_BACKEND", "")
	t.Setenv("LOG_LEVEL", "")

	cfg := config.Load()

	assert.Equal(t, "./artifacts", cfg.ArtifactsRoot)
	assert.Equal(t, "doctrine", cfg.DoctrineWhitelistRoots)
	assert.Equal(t, "./corpus", cfg.CorpusRoot)
	assert.Equal(t, "sqlite", cfg.IndexDBDriver)
	assert.Equal(t, "none", cfg.MirrorBackend)
	assert.Equal(t, "INFO", cfg.LogLevel)
}

// TestLoad_Overrides verifies that environment variables correctly
// override default values.
func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ARTIFACTS_ROOT", "/data/artifacts")
	t.Setenv("INDEX_DB_DRIVER", "postgres")
	t.Setenv("MIRROR_BACKEND", "s3")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg := config.Load()

	assert.Equal(t, "/data/artifacts", cfg.ArtifactsRoot)
	assert.Equal(t, "postgres", cfg.IndexDBDriver)
	assert.Equal(t, "s3", cfg.MirrorBackend)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
}
