package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/latticerun/detcore/pkg/blobstore"
	"github.com/latticerun/detcore/pkg/interfaces"
	"github.com/latticerun/detcore/pkg/payload"
)

// resolveLLMAdapter selects the payload adapter this process invokes
// (SPEC_FULL §6): a deterministic EchoAdapter by default, or a
// wazero-based SandboxAdapter when WASM_MODULE_HASH names a module
// already present in the configured blob store.
func resolveLLMAdapter(ctx context.Context, mirror blobstore.Store, logger *slog.Logger) interfaces.LLMAdapter {
	moduleHash := os.Getenv("WASM_MODULE_HASH")
	if moduleHash == "" {
		return payload.EchoAdapter{}
	}
	if mirror == nil {
		logger.Warn("adapter: WASM_MODULE_HASH set but no blob store configured, falling back to echo adapter")
		return payload.EchoAdapter{}
	}

	sandbox, err := payload.NewWasiSandbox(ctx, mirror, payload.SandboxConfig{})
	if err != nil {
		logger.Warn("adapter: sandbox construction failed, falling back to echo adapter", "error", err)
		return payload.EchoAdapter{}
	}
	return payload.NewSandboxAdapter(sandbox, payload.ModuleRef{Hash: moduleHash})
}
