// Package payload implements the deterministic stand-in for "the LLM
// adapter" collaborator named in SPEC_FULL §6: a sandboxed, reproducible
// pure function from prompt bytes to output bytes, used by the engine's
// test harness in place of a live model call.
package payload

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/latticerun/detcore/pkg/blobstore"
	"github.com/latticerun/detcore/pkg/interfaces"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// ModuleRef addresses a content-addressed WASM module in blobstore, in
// place of the donor's capability-pack addressing.
type ModuleRef struct {
	Hash string
}

// Sandbox is the isolation environment a deterministic payload executes
// in. Implementations must be pure: the same input and module must
// always yield the same output bytes.
type Sandbox interface {
	Run(ctx context.Context, module ModuleRef, input []byte) ([]byte, error)
	Close(ctx context.Context) error
}

// SandboxConfig bounds one execution's resource consumption.
type SandboxConfig struct {
	MemoryLimitBytes int64
	CPUTimeLimit     time.Duration
}

// WasiSandbox enforces strict confinement using WebAssembly (wazero):
// no filesystem, no network, deny-by-default WASI imports only.
type WasiSandbox struct {
	runtime wazero.Runtime
	modules blobstore.Store
	config  SandboxConfig
}

// NewWasiSandbox creates a sandbox backed by modules fetched from store.
func NewWasiSandbox(ctx context.Context, store blobstore.Store, config SandboxConfig) (*WasiSandbox, error) {
	rConfig := wazero.NewRuntimeConfig()
	if config.MemoryLimitBytes > 0 {
		pages := uint32(config.MemoryLimitBytes / 65536)
		if pages == 0 {
			pages = 1
		}
		rConfig = rConfig.WithMemoryLimitPages(pages)
	}
	r := wazero.NewRuntimeWithConfig(ctx, rConfig)
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, r); err != nil {
		_ = r.Close(ctx)
		return nil, fmt.Errorf("payload: instantiate WASI: %w", err)
	}
	return &WasiSandbox{runtime: r, modules: store, config: config}, nil
}

// OutputMaxBytes bounds stdout+stderr captured from one execution.
const OutputMaxBytes = 1024 * 1024

func (s *WasiSandbox) Run(ctx context.Context, module ModuleRef, input []byte) ([]byte, error) {
	wasmBytes, err := s.modules.Get(ctx, module.Hash)
	if err != nil {
		return nil, fmt.Errorf("payload: load module %s: %w", module.Hash, err)
	}

	execCtx := ctx
	if s.config.CPUTimeLimit > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, s.config.CPUTimeLimit)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	moduleConfig := wazero.NewModuleConfig().
		WithStdin(bytes.NewReader(input)).
		WithStdout(&stdout).
		WithStderr(&stderr).
		WithName("payload")

	compiled, err := s.runtime.CompileModule(execCtx, wasmBytes)
	if err != nil {
		return nil, fmt.Errorf("payload: compile module: %w", err)
	}
	defer func() { _ = compiled.Close(execCtx) }()

	mod, err := s.runtime.InstantiateModule(execCtx, compiled, moduleConfig)
	if err != nil {
		if execCtx.Err() != nil {
			return nil, &SandboxError{Code: ErrComputeTimeExhausted, Message: fmt.Sprintf("execution exceeded time limit (%s)", s.config.CPUTimeLimit)}
		}
		if isMemoryError(err) {
			return nil, &SandboxError{Code: ErrComputeMemoryExhausted, Message: fmt.Sprintf("execution exceeded memory limit (%d bytes)", s.config.MemoryLimitBytes)}
		}
		return nil, fmt.Errorf("payload: execution failed: %w", err)
	}
	defer func() { _ = mod.Close(execCtx) }()

	totalOutput := stdout.Len() + stderr.Len()
	if totalOutput > OutputMaxBytes {
		return nil, &SandboxError{Code: ErrComputeOutputExhausted, Message: fmt.Sprintf("output size %d exceeds limit %d", totalOutput, OutputMaxBytes)}
	}

	return stdout.Bytes(), nil
}

func (s *WasiSandbox) Close(ctx context.Context) error {
	return s.runtime.Close(ctx)
}

const (
	ErrComputeTimeExhausted   = "ERR_COMPUTE_TIME_EXHAUSTED"
	ErrComputeMemoryExhausted = "ERR_COMPUTE_MEMORY_EXHAUSTED"
	ErrComputeOutputExhausted = "ERR_COMPUTE_OUTPUT_EXHAUSTED"
)

// SandboxError is a deterministic, typed error for sandbox limit violations.
type SandboxError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *SandboxError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func isMemoryError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "memory") && (strings.Contains(msg, "limit") || strings.Contains(msg, "grow") || strings.Contains(msg, "exceeded"))
}

// SandboxAdapter wraps a Sandbox and a fixed module reference to satisfy
// interfaces.LLMAdapter: Invoke treats the prompt bytes as the module's
// stdin and the module's stdout as the model's output.
type SandboxAdapter struct {
	sandbox Sandbox
	module  ModuleRef
}

// NewSandboxAdapter constructs an interfaces.LLMAdapter backed by a
// deterministic WASM module.
func NewSandboxAdapter(sandbox Sandbox, module ModuleRef) *SandboxAdapter {
	return &SandboxAdapter{sandbox: sandbox, module: module}
}

func (a *SandboxAdapter) Invoke(ctx context.Context, promptBytes []byte, modelConfig map[string]interface{}) ([]byte, interfaces.UsageMeta, error) {
	start := time.Now()
	output, err := a.sandbox.Run(ctx, a.module, promptBytes)
	usage := interfaces.UsageMeta{
		LatencyMS: time.Since(start).Milliseconds(),
	}
	if err != nil {
		return nil, usage, err
	}
	return output, usage, nil
}

// EchoAdapter is a deterministic test double satisfying
// interfaces.LLMAdapter without wazero: it returns a fixed
// transformation of the prompt, for use where no WASM module is
// available in tests.
type EchoAdapter struct{}

func (EchoAdapter) Invoke(ctx context.Context, promptBytes []byte, modelConfig map[string]interface{}) ([]byte, interfaces.UsageMeta, error) {
	return []byte("echo: " + string(promptBytes)), interfaces.UsageMeta{}, nil
}
