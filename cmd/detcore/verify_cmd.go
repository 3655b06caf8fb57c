package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
)

// runVerifyCmd implements `detcore verify`: verify_run(run_directory) -> report
// (SPEC_FULL §6).
//
// Exit codes:
//
//	0 = verification passed
//	1 = verification failed
//	2 = usage or runtime error
func runVerifyCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("verify", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		runDir     string
		jsonOutput bool
	)
	cmd.StringVar(&runDir, "run-dir", "", "Path to a run directory (REQUIRED)")
	cmd.BoolVar(&jsonOutput, "json", false, "Output the report as JSON")

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

	report, err := eng.VerifyRun(ctx, runDir)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(report, "", "  ")
		_, _ = fmt.Fprintln(stdout, string(data))
	} else if report.Valid {
		_, _ = fmt.Fprintf(stdout, "run %s: valid\n", runDir)
	} else {
		_, _ = fmt.Fprintf(stdout, "run %s: INVALID (%d issues)\n", runDir, report.IssueCount)
		for _, c := range report.Checks {
			if !c.Pass {
				_, _ = fmt.Fprintf(stdout, "  - %s: %s\n", c.Name, c.Reason)
			}
		}
	}

	if !report.Valid {
		return 1
	}
	return 0
}
