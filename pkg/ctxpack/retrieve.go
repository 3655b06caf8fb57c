package ctxpack

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/latticerun/detcore/pkg/canonicalize"
	"github.com/latticerun/detcore/pkg/interfaces"
)

func resolveRetrieve(ctx context.Context, reader interfaces.CorpusReader, corpusRoot string, req Request) (ContextPack, error) {
	paths, err := reader.List(ctx, corpusRoot, nil)
	if err != nil {
		return ContextPack{}, fmt.Errorf("ctxpack: list corpus: %w", err)
	}
	paths = sortedUnique(paths)

	contents := make(map[string][]byte, len(paths))
	for _, p := range paths {
		data, err := reader.Read(ctx, corpusRoot, p)
		if err != nil {
			return ContextPack{}, fmt.Errorf("ctxpack: read %q: %w", p, err)
		}
		contents[p] = data
	}

	candidates := scoreCorpus(req.Query, paths, contents)

	if req.Predicate != "" {
		candidates, err = filterByPredicate(candidates, req.Predicate)
		if err != nil {
			return ContextPack{}, fmt.Errorf("ctxpack: selection predicate: %w", err)
		}
	}

	if req.TopK > 0 && len(candidates) > req.TopK {
		candidates = candidates[:req.TopK]
	}

	var blob strings.Builder
	for _, c := range candidates {
		blob.Write(contents[c.Path])
	}
	blobBytes := []byte(blob.String())

	return ContextPack{
		Strategy: StrategyRetrieve,
		SelectionSpec: SelectionSpec{
			Query:      req.Query,
			TopK:       req.TopK,
			Predicate:  req.Predicate,
			Candidates: candidates,
		},
		ContentBlob: blob.String(),
		ContentHash: canonicalize.Hash(blobBytes),
	}, nil
}

// filterByPredicate compiles req.Predicate as a CEL boolean expression
// over {score: double, path: string, size: int} and keeps only the
// candidates for which it evaluates true, preserving input order.
func filterByPredicate(candidates []Candidate, predicate string) ([]Candidate, error) {
	env, err := cel.NewEnv(
		cel.Variable("score", cel.DoubleType),
		cel.Variable("path", cel.StringType),
		cel.Variable("size", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("build CEL environment: %w", err)
	}

	ast, issues := env.Compile(predicate)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile predicate: %w", issues.Err())
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build CEL program: %w", err)
	}

	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		result, _, err := program.Eval(map[string]interface{}{
			"score": c.Score,
			"path":  c.Path,
			"size":  int64(c.Size),
		})
		if err != nil {
			return nil, fmt.Errorf("evaluate predicate against %q: %w", c.Path, err)
		}
		keep, ok := result.Value().(bool)
		if !ok {
			return nil, fmt.Errorf("predicate must evaluate to a boolean, got %T", result.Value())
		}
		if keep {
			out = append(out, c)
		}
	}
	return out, nil
}
