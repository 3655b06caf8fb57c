package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
)

// runReplayCmd implements `detcore replay`: the cheap structural replay
// probe (SPEC_FULL §6, §12).
//
// Exit codes:
//
//	0 = can_replay true
//	1 = can_replay false
//	2 = usage error
func runReplayCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("replay", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		runDir     string
		jsonOutput bool
	)
	cmd.StringVar(&runDir, "run-dir", "", "Path to a run directory (REQUIRED)")
	cmd.BoolVar(&jsonOutput, "json", false, "Output diagnostics as JSON")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if runDir == "" {
		_, _ = fmt.Fprintln(stderr, "Error: --run-dir is required")
		return 2
	}

	ctx := context.Background()
	eng, closeAll, err := setup(ctx)
	defer closeAll()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	result := eng.Replay(ctx, runDir)

	if jsonOutput {
		data, _ := json.MarshalIndent(result, "", "  ")
		_, _ = fmt.Fprintln(stdout, string(data))
	} else if result.CanReplay {
		_, _ = fmt.Fprintf(stdout, "run %s: can_replay=true\n", runDir)
	} else {
		_, _ = fmt.Fprintf(stdout, "run %s: can_replay=false\n", runDir)
		for _, d := range result.Diagnostics {
			if !d.Pass {
				_, _ = fmt.Fprintf(stdout, "  - %s: %s\n", d.Name, d.Detail)
			}
		}
	}

	if !result.CanReplay {
		return 1
	}
	return 0
}
