package db

import (
	"database/sql"

	"github.com/pkg/errors"
)

const schemaVersion = 1

const schemaSQL = `
-- Guild metadata cache (id -> display name)
CREATE TABLE IF NOT EXISTS hark_guilds (
  id INTEGER PRIMARY KEY,              -- guild snowflake
  name TEXT NOT NULL,                  -- display name
  icon TEXT,                           -- icon hash, null if none
  fetched_at INTEGER NOT NULL          -- unix ms of last successful fetch
);

-- Local key/value settings (e.g. the authenticated user id)
CREATE TABLE IF NOT EXISTS hark_config (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL
);
`

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// InitSchema creates tables and records the schema version.
func InitSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	if err := initSchemaWith(tx); err != nil {
		_ = tx.Rollback()
		return errors.Wrap(err, "init schema")
	}
	return tx.Commit()
}

func initSchemaWith(db DBTX) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return err
	}
	version, err := SchemaVersion(db)
	if err != nil {
		return err
	}
	if version < schemaVersion {
		if _, err := db.Exec("PRAGMA user_version = 1"); err != nil {
			return err
		}
	}
	return nil
}

// SchemaVersion returns the recorded schema version (0 for a new database).
func SchemaVersion(db DBTX) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, err
	}
	return version, nil
}
