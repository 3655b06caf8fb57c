package migration

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/latticerun/detcore/pkg/canonicalize"
)

// Apply finds the shortest migration path from the manifest's current
// schema_version to targetVersion and applies each hop in order. When
// dryRun is true, every step runs except the backup write and the
// atomic rewrite; ResultBytes holds the would-be post-migration bytes.
func Apply(registry *Registry, manifestPath, targetVersion string, dryRun bool) (*ApplyResult, error) {
	original, err := unmarshalManifest(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("migration: load manifest: %w", err)
	}

	from := schemaVersionOf(original)
	if from == targetVersion {
		return &ApplyResult{NoOp: true, FromVersion: from, ToVersion: targetVersion}, nil
	}

	path, err := registry.FindPath(from, targetVersion)
	if err != nil {
		return nil, fmt.Errorf("migration: validate_before failed to find path: %w", err)
	}

	working := deepCopyMap(original)
	historyEntries := make([]map[string]interface{}, 0, len(path))

	for _, m := range path {
		if m.ValidateBefore != nil {
			if err := m.ValidateBefore(working); err != nil {
				return nil, fmt.Errorf("migration: validate_before %s->%s: %w", m.FromVersion, m.ToVersion, err)
			}
		}

		before := deepCopyMap(working)
		preBytes, err := canonicalize.EncodeCompact(before)
		if err != nil {
			return nil, fmt.Errorf("migration: encode pre-image: %w", err)
		}
		preChecksum := canonicalize.Hash(preBytes)

		after, err := m.Transform(before)
		if err != nil {
			return nil, fmt.Errorf("migration: transform %s->%s: %w", m.FromVersion, m.ToVersion, err)
		}
		after["schema_version"] = m.ToVersion

		if m.ValidateAfter != nil {
			if err := m.ValidateAfter(before, after); err != nil {
				return nil, fmt.Errorf("migration: validate_after %s->%s: %w", m.FromVersion, m.ToVersion, err)
			}
		}

		postBytes, err := canonicalize.EncodeCompact(after)
		if err != nil {
			return nil, fmt.Errorf("migration: encode post-image: %w", err)
		}
		postChecksum := canonicalize.Hash(postBytes)

		historyEntries = append(historyEntries, map[string]interface{}{
			"from_version":    m.FromVersion,
			"to_version":      m.ToVersion,
			"applied_at":      time.Now().UTC().Format(time.RFC3339Nano),
			"changes":         m.ChangeList,
			"checksum_before": preChecksum,
			"checksum_after":  postChecksum,
		})

		working = after
	}

	appendMigrationHistory(working, historyEntries)

	resultBytes, err := canonicalize.EncodePretty(working)
	if err != nil {
		return nil, fmt.Errorf("migration: encode result: %w", err)
	}

	result := &ApplyResult{
		FromVersion:   from,
		ToVersion:     targetVersion,
		ResultBytes:   resultBytes,
		ChecksumAfter: canonicalize.Hash(resultBytes),
	}

	if dryRun {
		return result, nil
	}

	if err := writeBackup(manifestPath); err != nil {
		return nil, fmt.Errorf("migration: write backup: %w", err)
	}
	if err := atomicRewrite(manifestPath, resultBytes); err != nil {
		return nil, fmt.Errorf("migration: atomic rewrite: %w", err)
	}

	return result, nil
}

func appendMigrationHistory(m map[string]interface{}, entries []map[string]interface{}) {
	existing, _ := m["migration_history"].([]interface{})
	for _, e := range entries {
		existing = append(existing, e)
	}
	m["migration_history"] = existing
}

func writeBackup(manifestPath string) error {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return err
	}
	return os.WriteFile(manifestPath+".backup", data, 0o644)
}

func atomicRewrite(manifestPath string, data []byte) error {
	dir := filepath.Dir(manifestPath)
	tmp := filepath.Join(dir, "."+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, manifestPath)
}
