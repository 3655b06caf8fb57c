package corpus

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestList_MatchesGlobPattern(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.md", "a")
	writeFile(t, root, "b.txt", "b")

	r := NewFilesystemReader()
	paths, err := r.List(context.Background(), root, []string{"*.md"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.md"}, paths)
}

func TestList_EmptyPatternsListsEverything(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.md", "a")
	writeFile(t, root, "sub/b.txt", "b")

	r := NewFilesystemReader()
	paths, err := r.List(context.Background(), root, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.md", "sub/b.txt"}, paths)
}

func TestList_MissingRootReturnsEmpty(t *testing.T) {
	r := NewFilesystemReader()
	paths, err := r.List(context.Background(), filepath.Join(t.TempDir(), "nope"), nil)
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestRead_ReturnsFileBytes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "doc.txt", "hello")

	r := NewFilesystemReader()
	data, err := r.Read(context.Background(), root, "doc.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestRead_RejectsPathTraversal(t *testing.T) {
	root := t.TempDir()
	r := NewFilesystemReader()
	_, err := r.Read(context.Background(), root, "../outside.txt")
	assert.Error(t, err)
}
