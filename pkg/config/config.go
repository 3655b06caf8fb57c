// Package config loads the engine's process-wide configuration from
// environment variables, following the donor's os.Getenv-with-defaults
// pattern (SPEC_FULL §10).
package config

import "os"

// Config holds the engine's runtime configuration.
type Config struct {
	ArtifactsRoot          string
	DoctrineWhitelistRoots string
	DoctrineConfigPath     string
	MigrationRegistryPath  string
	CorpusRoot             string
	IndexDBDriver          string
	IndexDBDSN             string
	TelemetryOTLPEndpoint  string
	ReplicaRedisAddr       string
	MirrorBackend          string
	LogLevel               string
}

// Load reads configuration from environment variables, falling back to
// safe local defaults when unset.
func Load() *Config {
	return &Config{
		ArtifactsRoot:          getenv("ARTIFACTS_ROOT", "./artifacts"),
		DoctrineWhitelistRoots: getenv("DOCTRINE_WHITELIST_ROOTS", "doctrine"),
		DoctrineConfigPath:     getenv("DOCTRINE_CONFIG_PATH", "./config/doctrine.yaml"),
		MigrationRegistryPath:  getenv("MIGRATION_REGISTRY_PATH", "./config/migrations.yaml"),
		CorpusRoot:             getenv("CORPUS_ROOT", "./corpus"),
		IndexDBDriver:          getenv("INDEX_DB_DRIVER", "sqlite"),
		IndexDBDSN:             getenv("INDEX_DB_DSN", "./artifacts/index.sqlite"),
		TelemetryOTLPEndpoint:  getenv("TELEMETRY_OTLP_ENDPOINT", ""),
		ReplicaRedisAddr:       getenv("REPLICA_REDIS_ADDR", ""),
		MirrorBackend:          getenv("MIRROR_BACKEND", "none"),
		LogLevel:               getenv("LOG_LEVEL", "INFO"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
