package main

import (
	"context"
	"flag"
	"fmt"
	"io"
)

// runReindexCmd implements `detcore reindex`: reindex() -> count
// (SPEC_FULL §6, §11).
//
// Exit codes:
//
//	0 = success
//	2 = usage or runtime error
func runReindexCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("reindex", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	if err := cmd.Parse(args); err != nil {
		return 2
	}

	ctx := context.Background()
	eng, closeAll, err := setup(ctx)
	defer closeAll()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	count, err := eng.Reindex(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	_, _ = fmt.Fprintf(stdout, "indexed %d manifests\n", count)
	return 0
}
