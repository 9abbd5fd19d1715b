package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // pure Go driver, registered as "sqlite"
)

// SQLite driver names as registered with database/sql.
const (
	DriverPureGo = "sqlite"
	DriverCGo    = "sqlite3"
)

// SQLiteDriverFor maps the configured driver ("purego" or "cgo") to a
// registered driver name. Asking for cgo in a build without it is an error.
func SQLiteDriverFor(name string) (string, error) {
	switch name {
	case "", "purego":
		return DriverPureGo, nil
	case "cgo":
		if !cgoDriverAvailable {
			return "", fmt.Errorf("sqlite driver 'cgo' is not available in non-CGO builds; rebuild with CGO_ENABLED=1 or use 'purego'")
		}
		return DriverCGo, nil
	default:
		return "", fmt.Errorf("unknown sqlite driver: %s (valid options: purego, cgo)", name)
	}
}

// openSQLite opens dsn with one connection and WAL journaling.
func openSQLite(driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: SQLite has a single writer, and ":memory:" databases
	// are per-connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}
	return db, nil
}
