// Package corpus implements the filesystem-backed CorpusReader the
// Context Resolver reads through (SPEC_FULL §4.3, §6): glob-pattern
// listing and path-safe reads rooted at a fixed corpus directory.
package corpus

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FilesystemReader implements interfaces.CorpusReader against a real
// directory tree. Every path it returns or accepts is repo-relative to
// root; it refuses any path that escapes root, following the same
// traversal-safety stance as the Doctrine Store.
type FilesystemReader struct{}

// NewFilesystemReader constructs a FilesystemReader. It carries no
// state: root is supplied per-call, matching the CorpusReader contract.
func NewFilesystemReader() *FilesystemReader {
	return &FilesystemReader{}
}

// List walks root and returns every repo-relative path matching any of
// patterns (glob mode). An empty patterns list matches every regular
// file under root (retrieve mode's full scan).
func (r *FilesystemReader) List(ctx context.Context, root string, patterns []string) ([]string, error) {
	var matches []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if len(patterns) == 0 {
			matches = append(matches, rel)
			return nil
		}
		for _, pattern := range patterns {
			ok, err := filepath.Match(pattern, rel)
			if err != nil {
				return fmt.Errorf("corpus: bad pattern %q: %w", pattern, err)
			}
			if ok {
				matches = append(matches, rel)
				break
			}
		}
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("corpus: list %s: %w", root, err)
	}

	sort.Strings(matches)
	return matches, nil
}

// Read returns the bytes of path under root, refusing any path that
// resolves outside root.
func (r *FilesystemReader) Read(ctx context.Context, root, path string) ([]byte, error) {
	if strings.Contains(path, "..") {
		return nil, fmt.Errorf("corpus: unsafe path %q", path)
	}

	full := filepath.Join(root, filepath.FromSlash(path))
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("corpus: resolve root: %w", err)
	}
	absFull, err := filepath.Abs(full)
	if err != nil {
		return nil, fmt.Errorf("corpus: resolve path: %w", err)
	}
	if !strings.HasPrefix(absFull, absRoot+string(filepath.Separator)) && absFull != absRoot {
		return nil, fmt.Errorf("corpus: path %q escapes root %q", path, root)
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("corpus: read %s: %w", full, err)
	}
	return data, nil
}
