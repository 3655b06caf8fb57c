package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/latticerun/detcore/engine"
	"github.com/latticerun/detcore/pkg/blobstore"
	"github.com/latticerun/detcore/pkg/config"
	"github.com/latticerun/detcore/pkg/corpus"
	"github.com/latticerun/detcore/pkg/doctrine"
	"github.com/latticerun/detcore/pkg/migration"
	"github.com/latticerun/detcore/pkg/reindex"
	"github.com/latticerun/detcore/pkg/rundir"
	"github.com/latticerun/detcore/pkg/telemetry"
)

// buildEngine wires every collaborator described by the environment into
// one Engine, matching the donor's single composition-root style
// (cmd/helm/subsystems.go builds one *Services; this builds one
// *engine.Engine). The returned func releases every resource this
// constructed, in reverse order.
func buildEngine(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*engine.Engine, func(), error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	doctrineCfg, err := config.LoadDoctrineConfig(cfg.DoctrineConfigPath)
	if err != nil {
		return nil, closeAll, fmt.Errorf("compose: load doctrine config: %w", err)
	}
	candidateRoots := doctrineCfg.CandidateRoots
	if len(candidateRoots) == 0 {
		candidateRoots = strings.Split(cfg.DoctrineWhitelistRoots, ",")
	}
	doctrineStore := doctrine.NewStore(".", doctrineCfg.Whitelist, candidateRoots)

	registry, err := migration.LoadRegistryFile(cfg.MigrationRegistryPath)
	if err != nil {
		return nil, closeAll, fmt.Errorf("compose: load migration registry: %w", err)
	}

	var mirror blobstore.Store
	if cfg.MirrorBackend != "none" && cfg.MirrorBackend != "" {
		mirror, err = blobstore.NewStoreFromEnv(ctx, blobstore.StoreType(cfg.MirrorBackend))
		if err != nil {
			return nil, closeAll, fmt.Errorf("compose: construct mirror store: %w", err)
		}
	}

	var accelerator rundir.LookupAccelerator
	if cfg.ReplicaRedisAddr != "" {
		redisAcc := rundir.NewRedisAccelerator(newRedisClient(cfg.ReplicaRedisAddr), logger)
		accelerator = redisAcc
	}

	runDirMgr := rundir.New(cfg.ArtifactsRoot, accelerator, mirror, logger)

	corpusReader := corpus.NewFilesystemReader()

	llm := resolveLLMAdapter(ctx, mirror, logger)

	telCfg := telemetry.DefaultConfig()
	telCfg.Enabled = cfg.TelemetryOTLPEndpoint != ""
	if telCfg.Enabled {
		telCfg.OTLPEndpoint = cfg.TelemetryOTLPEndpoint
	}
	tel, err := telemetry.New(ctx, telCfg)
	if err != nil {
		return nil, closeAll, fmt.Errorf("compose: construct telemetry provider: %w", err)
	}
	closers = append(closers, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Warn("compose: telemetry shutdown failed", "error", err)
		}
	})

	var indexDB *sql.DB
	if cfg.IndexDBDriver != "" {
		indexDB, err = reindex.Open(reindex.Driver(cfg.IndexDBDriver), cfg.IndexDBDSN)
		if err != nil {
			return nil, closeAll, fmt.Errorf("compose: open index db: %w", err)
		}
		closers = append(closers, func() {
			if err := indexDB.Close(); err != nil {
				logger.Warn("compose: index db close failed", "error", err)
			}
		})
	}

	e := engine.New(cfg.ArtifactsRoot, cfg.CorpusRoot, doctrineStore, runDirMgr, llm, corpusReader, nil, tel, logger, registry, indexDB)
	return e, closeAll, nil
}
