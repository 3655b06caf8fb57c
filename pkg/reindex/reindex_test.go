package reindex

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, path string, m manifestFields) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	data, err := json.Marshal(m)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestReindex_CreatesTableAndUpsertsEachManifest(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, filepath.Join(root, "job-a", "run-a", "manifest.json"), manifestFields{
		SchemaVersion: "1.2.0", JobID: "job-a", RunID: "run-a", JobType: "summarize", Status: "succeeded", InputsHash: "sha256:aaa",
	})
	writeManifest(t, filepath.Join(root, "job-b", "run-b", "manifest.json"), manifestFields{
		SchemaVersion: "1.2.0", JobID: "job-b", RunID: "run-b", JobType: "extract", Status: "succeeded", InputsHash: "sha256:bbb",
	})

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS run_index")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO run_index")).
		WithArgs("job-a", "run-a", "1.2.0", "succeeded", "sha256:aaa", "summarize", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO run_index")).
		WithArgs("job-b", "run-b", "1.2.0", "succeeded", "sha256:bbb", "extract", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	count, err := Reindex(context.Background(), db, root)
	require.NoError(t, err)
	require.Equal(t, 2, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReindex_EmptyRootIndexesNothing(t *testing.T) {
	root := t.TempDir()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS run_index")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	count, err := Reindex(context.Background(), db, root)
	require.NoError(t, err)
	require.Equal(t, 0, count)
	require.NoError(t, mock.ExpectationsWereMet())
}
