package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/latticerun/detcore/engine"
	"github.com/latticerun/detcore/pkg/manifest"
)

// briefFile is the on-disk shape `detcore run` reads: the engine.Brief
// fields plus the params that select context and model configuration,
// kept separate from engine.Brief.Params (which carries job-specific
// payload parameters, not engine plumbing).
type briefFile struct {
	engine.Brief
	DoctrineID      string               `json:"doctrine_id"`
	DoctrineVersion string               `json:"doctrine_version"`
	Context         engine.ContextRequest `json:"context"`
	Model           engine.ModelConfig    `json:"model"`
}

// runRunCmd implements `detcore run`: execute_run(brief, params) ->
// manifest (SPEC_FULL §6).
//
// Exit codes:
//
//	0 = run succeeded or idempotently replayed
//	1 = run finalized with status "failed"
//	2 = usage or runtime error
func runRunCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("run", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		briefPath  string
		jsonOutput bool
	)
	cmd.StringVar(&briefPath, "brief", "", "Path to a brief JSON file (REQUIRED)")
	cmd.BoolVar(&jsonOutput, "json", false, "Output the manifest as JSON")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if briefPath == "" {
		_, _ = fmt.Fprintln(stderr, "Error: --brief is required")
		return 2
	}

	data, err := os.ReadFile(briefPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: read brief: %v\n", err)
		return 2
	}
	var bf briefFile
	if err := json.Unmarshal(data, &bf); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: parse brief: %v\n", err)
		return 2
	}

	ctx := context.Background()
	eng, closeAll, err := setup(ctx)
	defer closeAll()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	man, err := eng.ExecuteRun(ctx, bf.Brief, engine.Params{
		DoctrineID:      bf.DoctrineID,
		DoctrineVersion: bf.DoctrineVersion,
		Context:         bf.Context,
		Model:           bf.Model,
	})
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: run failed: %v\n", err)
		return 2
	}

	if jsonOutput {
		out, _ := man.FullBytes()
		_, _ = stdout.Write(out)
		_, _ = fmt.Fprintln(stdout)
	} else {
		_, _ = fmt.Fprintf(stdout, "run_id: %s\n", man.RunID)
		_, _ = fmt.Fprintf(stdout, "status: %s\n", man.Status)
		_, _ = fmt.Fprintf(stdout, "inputs_hash: %s\n", man.InputsHash)
	}

	if man.Status == manifest.StatusFailed {
		return 1
	}
	return 0
}
