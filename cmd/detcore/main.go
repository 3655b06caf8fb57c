package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/latticerun/detcore/engine"
	"github.com/latticerun/detcore/pkg/config"
)

// Dispatcher
func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// Run is the entrypoint for testing: it never calls os.Exit itself.
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		printUsage(stdout)
		return 2
	}

	switch args[1] {
	case "run":
		return runRunCmd(args[2:], stdout, stderr)
	case "verify":
		return runVerifyCmd(args[2:], stdout, stderr)
	case "replay":
		return runReplayCmd(args[2:], stdout, stderr)
	case "migrate":
		return runMigrateCmd(args[2:], stdout, stderr)
	case "reindex":
		return runReindexCmd(args[2:], stdout, stderr)
	case "help", "--help", "-h":
		printUsage(stdout)
		return 0
	default:
		_, _ = fmt.Fprintf(stderr, "Unknown command: %s\n", args[1])
		printUsage(stderr)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "detcore — deterministic, content-addressed run execution")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "USAGE:")
	fmt.Fprintln(w, "  detcore <command> [flags]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "COMMANDS:")
	fmt.Fprintln(w, "  run       Execute a brief and produce a manifest (--brief, --json)")
	fmt.Fprintln(w, "  verify    Re-derive and cross-check a run directory (--run-dir, --json)")
	fmt.Fprintln(w, "  replay    Cheap structural replay probe (--run-dir, --json)")
	fmt.Fprintln(w, "  migrate   Migrate one or every manifest to a target schema_version")
	fmt.Fprintln(w, "  reindex   Rebuild the queryable manifest index")
	fmt.Fprintln(w, "  help      Show this help")
	fmt.Fprintln(w, "")
}

// newLogger builds the process-wide structured logger from LOG_LEVEL
// (SPEC_FULL §10), matching the donor's slog.Default() composition-root
// style.
func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// setup is the shared composition every subcommand performs: load
// environment configuration, build a logger, and compose an Engine.
func setup(ctx context.Context) (*engine.Engine, func(), error) {
	cfg := config.Load()
	logger := newLogger(cfg)
	return buildEngine(ctx, cfg, logger)
}
