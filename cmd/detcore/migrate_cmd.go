package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
)

// runMigrateCmd implements `detcore migrate`: migrate_all(target_version)
// (SPEC_FULL §6), or a single manifest with --manifest.
//
// Exit codes:
//
//	0 = success (all manifests migrated or already current)
//	1 = at least one manifest failed to migrate
//	2 = usage or runtime error
func runMigrateCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("migrate", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		manifestPath  string
		targetVersion string
		dryRun        bool
		maxParallel   int
		jsonOutput    bool
	)
	cmd.StringVar(&manifestPath, "manifest", "", "Migrate a single manifest.json instead of every manifest under artifacts")
	cmd.StringVar(&targetVersion, "target-version", "", "Target schema_version (REQUIRED)")
	cmd.BoolVar(&dryRun, "dry-run", false, "Compute the migration without writing")
	cmd.IntVar(&maxParallel, "max-parallel", 4, "Bounded concurrency for migrate_all")
	cmd.BoolVar(&jsonOutput, "json", false, "Output the result as JSON")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if targetVersion == "" {
		_, _ = fmt.Fprintln(stderr, "Error: --target-version is required")
		return 2
	}

	ctx := context.Background()
	eng, closeAll, err := setup(ctx)
	defer closeAll()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	if manifestPath != "" {
		result, err := eng.MigrateOne(ctx, manifestPath, targetVersion, dryRun)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
		if jsonOutput {
			data, _ := json.MarshalIndent(result, "", "  ")
			_, _ = fmt.Fprintln(stdout, string(data))
		} else {
			_, _ = fmt.Fprintf(stdout, "migrated %s -> %s (no_op=%v)\n", result.FromVersion, result.ToVersion, result.NoOp)
		}
		return 0
	}

	stats, err := eng.MigrateAll(ctx, targetVersion, dryRun, maxParallel)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(stats, "", "  ")
		_, _ = fmt.Fprintln(stdout, string(data))
	} else {
		_, _ = fmt.Fprintf(stdout, "discovered=%d migrated=%d no_op=%d failed=%d\n", stats.Discovered, stats.Migrated, stats.NoOp, stats.Failed)
		for path, msg := range stats.Errors {
			_, _ = fmt.Fprintf(stdout, "  - %s: %s\n", path, msg)
		}
	}

	if stats.Failed > 0 {
		return 1
	}
	return 0
}
