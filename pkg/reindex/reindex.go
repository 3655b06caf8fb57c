// Package reindex rebuilds the external search index from manifests
// alone (SPEC_FULL §6, §11): the core itself never reads from this
// index, so the operation is safe to run at any time against a live
// artifacts tree.
package reindex

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS run_index (
	job_id         TEXT NOT NULL,
	run_id         TEXT NOT NULL,
	schema_version TEXT,
	status         TEXT,
	inputs_hash    TEXT,
	job_type       TEXT,
	indexed_at     TEXT,
	PRIMARY KEY (job_id, run_id)
);`

const upsertSQL = `
INSERT INTO run_index (job_id, run_id, schema_version, status, inputs_hash, job_type, indexed_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (job_id, run_id) DO UPDATE SET
	schema_version = excluded.schema_version,
	status = excluded.status,
	inputs_hash = excluded.inputs_hash,
	job_type = excluded.job_type,
	indexed_at = excluded.indexed_at;
`

type manifestFields struct {
	SchemaVersion string `json:"schema_version"`
	JobID         string `json:"job_id"`
	RunID         string `json:"run_id"`
	JobType       string `json:"job_type"`
	Status        string `json:"status"`
	InputsHash    string `json:"inputs_hash"`
}

// Reindex walks artifactsRoot for every manifest.json and upserts a row
// per run into db's run_index table, creating the table if absent.
// Returns the number of manifests indexed.
func Reindex(ctx context.Context, db *sql.DB, artifactsRoot string) (int, error) {
	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		return 0, fmt.Errorf("reindex: create table: %w", err)
	}

	var paths []string
	err := filepath.WalkDir(artifactsRoot, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == "manifest.json" {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("reindex: walk artifacts root: %w", err)
	}

	count := 0
	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var m manifestFields
		if err := json.Unmarshal(data, &m); err != nil {
			continue
		}
		if _, err := db.ExecContext(ctx, upsertSQL, m.JobID, m.RunID, m.SchemaVersion, m.Status, m.InputsHash, m.JobType, now); err != nil {
			return count, fmt.Errorf("reindex: upsert %s: %w", path, err)
		}
		count++
	}

	return count, nil
}
