// Package migration implements the Migration Engine (SPEC_FULL §4.10):
// a registry of named additive transforms between manifest
// schema_version strings, BFS path-finding across that registry, and an
// apply flow that preserves every determinism-critical manifest field.
package migration

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/Masterminds/semver/v3"
)

// Migration is one registered transform between two schema versions. It
// operates on the manifest's generic JSON representation rather than the
// typed manifest.Manifest struct, since each hop may introduce fields a
// fixed struct cannot yet express.
type Migration struct {
	FromVersion string
	ToVersion   string
	ChangeList  []string

	// Transform is a pure function from one manifest map to the next.
	Transform func(in map[string]interface{}) (map[string]interface{}, error)

	// ValidateBefore runs against the pre-image; ValidateAfter checks the
	// determinism-preservation contract between pre- and post-images.
	ValidateBefore func(m map[string]interface{}) error
	ValidateAfter  func(before, after map[string]interface{}) error
}

// Registry is an immutable, process-wide set of registered migrations,
// constructed once and never mutated (SPEC_FULL §9 "Global state").
type Registry struct {
	migrations []Migration
}

// NewRegistry builds a Registry from a fixed list of migrations.
func NewRegistry(migrations []Migration) *Registry {
	return &Registry{migrations: migrations}
}

// FindPath performs a breadth-first search over the registered
// migrations for the shortest hop sequence from fromVersion to
// toVersion. Direct composite migrations registered alongside
// hop-by-hop ones act as BFS-shortening shortcuts automatically.
func (r *Registry) FindPath(fromVersion, toVersion string) ([]Migration, error) {
	if fromVersion == toVersion {
		return nil, nil
	}

	type node struct {
		version string
		path    []Migration
	}

	visited := map[string]bool{fromVersion: true}
	queue := []node{{version: fromVersion, path: nil}}

	// Stable iteration order over outgoing edges, so that among
	// equal-length paths the result is deterministic.
	byFrom := make(map[string][]Migration)
	for _, m := range r.migrations {
		byFrom[m.FromVersion] = append(byFrom[m.FromVersion], m)
	}
	for from := range byFrom {
		sort.Slice(byFrom[from], func(i, j int) bool {
			return byFrom[from][i].ToVersion < byFrom[from][j].ToVersion
		})
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, m := range byFrom[cur.version] {
			if visited[m.ToVersion] {
				continue
			}
			nextPath := append(append([]Migration{}, cur.path...), m)
			if m.ToVersion == toVersion {
				return nextPath, nil
			}
			visited[m.ToVersion] = true
			queue = append(queue, node{version: m.ToVersion, path: nextPath})
		}
	}

	return nil, fmt.Errorf("migration: no path found from %s to %s", fromVersion, toVersion)
}

// ApplyResult describes the outcome of applying a migration path to one
// manifest.
type ApplyResult struct {
	NoOp          bool
	FromVersion   string
	ToVersion     string
	ResultBytes   []byte
	ChecksumAfter string
}

// versionLess reports whether a sorts before b as a semantic version,
// falling back to lexicographic order if either fails to parse.
func versionLess(a, b string) bool {
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	if errA != nil || errB != nil {
		return a < b
	}
	return va.LessThan(vb)
}

// unmarshalManifest loads a manifest.json file into its generic map
// representation, preserving any fields a fixed struct does not model.
func unmarshalManifest(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("migration: manifest %s is not valid JSON: %w", path, err)
	}
	return m, nil
}

func deepCopyMap(in map[string]interface{}) map[string]interface{} {
	data, _ := json.Marshal(in)
	var out map[string]interface{}
	_ = json.Unmarshal(data, &out)
	return out
}

func schemaVersionOf(m map[string]interface{}) string {
	if v, ok := m["schema_version"].(string); ok {
		return v
	}
	return ""
}
