// Package ctxpack implements the Context Resolver (SPEC_FULL §4.3):
// resolve(brief, corpus_root) -> ContextPack, in either glob mode
// (pattern-based selection over the corpus) or retrieve mode
// (deterministic keyword/BM25 scoring with stable tie-breaks).
package ctxpack

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/latticerun/detcore/pkg/canonicalize"
	"github.com/latticerun/detcore/pkg/interfaces"
)

// Strategy values a Brief may request for context selection.
const (
	StrategyGlob     = "glob"
	StrategyRetrieve = "retrieve"
)

// Candidate is one scored document considered during retrieve mode.
type Candidate struct {
	Path  string  `json:"path"`
	Score float64 `json:"score"`
	Size  int     `json:"size"`
}

// SelectionSpec records exactly how a ContextPack's content was chosen,
// so that any change to either path selection or scoring surfaces as an
// inputs_hash change once embedded in the pack's snapshot.
type SelectionSpec struct {
	Patterns   []string    `json:"patterns,omitempty"`
	Query      string      `json:"query,omitempty"`
	TopK       int         `json:"top_k,omitempty"`
	Predicate  string      `json:"predicate,omitempty"`
	Candidates []Candidate `json:"candidates,omitempty"`
}

// ContextPack is the context.resolved.json snapshot payload.
type ContextPack struct {
	Strategy      string        `json:"strategy"`
	SelectionSpec SelectionSpec `json:"selection_spec"`
	ContentBlob   string        `json:"content_blob"`
	ContentHash   string        `json:"content_hash"`
}

// Request carries the brief's context-selection parameters. It is a
// standalone type rather than the Brief itself, so this package does
// not depend on the engine's job-orchestration types.
type Request struct {
	Strategy  string
	Patterns  []string // glob mode
	Query     string   // retrieve mode
	TopK      int      // retrieve mode; 0 means "all scored candidates"
	Predicate string   // retrieve mode, optional CEL boolean expression
}

// Resolve dispatches to the glob or retrieve strategy.
func Resolve(ctx context.Context, reader interfaces.CorpusReader, corpusRoot string, req Request) (ContextPack, error) {
	switch req.Strategy {
	case StrategyGlob:
		return resolveGlob(ctx, reader, corpusRoot, req)
	case StrategyRetrieve:
		return resolveRetrieve(ctx, reader, corpusRoot, req)
	default:
		return ContextPack{}, fmt.Errorf("ctxpack: unknown strategy %q", req.Strategy)
	}
}

func resolveGlob(ctx context.Context, reader interfaces.CorpusReader, corpusRoot string, req Request) (ContextPack, error) {
	paths, err := reader.List(ctx, corpusRoot, req.Patterns)
	if err != nil {
		return ContextPack{}, fmt.Errorf("ctxpack: list corpus: %w", err)
	}
	paths = sortedUnique(paths)

	var blob strings.Builder
	for _, p := range paths {
		data, err := reader.Read(ctx, corpusRoot, p)
		if err != nil {
			return ContextPack{}, fmt.Errorf("ctxpack: read %q: %w", p, err)
		}
		blob.Write(data)
	}

	blobBytes := []byte(blob.String())
	return ContextPack{
		Strategy: StrategyGlob,
		SelectionSpec: SelectionSpec{
			Patterns: req.Patterns,
		},
		ContentBlob: blob.String(),
		ContentHash: canonicalize.Hash(blobBytes),
	}, nil
}

func sortedUnique(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}
