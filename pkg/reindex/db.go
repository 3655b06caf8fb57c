package reindex

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Driver selects the reindex backend, chosen via the IndexDBDriver
// config value (SPEC_FULL §10, §11).
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Open returns a *sql.DB for the named driver and DSN. The sqlite and
// postgres drivers are both registered via blank import; callers never
// construct a driver-specific connection directly.
func Open(driver Driver, dsn string) (*sql.DB, error) {
	switch driver {
	case DriverSQLite:
		return sql.Open("sqlite", dsn)
	case DriverPostgres:
		return sql.Open("postgres", dsn)
	default:
		return nil, fmt.Errorf("reindex: unknown driver %q", driver)
	}
}
