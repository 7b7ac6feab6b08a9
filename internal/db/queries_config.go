package db

import (
	"database/sql"

	"github.com/adamavenir/hark/internal/core"
)

// Config keys stored in hark_config.
const (
	ConfigSelfUserID = "self_user_id"
)

// GetConfig returns a config value, or "" when unset.
func GetConfig(db DBTX, key string) (string, error) {
	row := db.QueryRow("SELECT value FROM hark_config WHERE key = ?", key)
	var value string
	if err := row.Scan(&value); err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", err
	}
	return value, nil
}

// SetConfig sets a config value.
func SetConfig(db DBTX, key, value string) error {
	_, err := db.Exec("INSERT OR REPLACE INTO hark_config (key, value) VALUES (?, ?)", key, value)
	return err
}

// GetAllConfig returns all config entries ordered by key.
func GetAllConfig(db DBTX) ([]core.ConfigEntry, error) {
	rows, err := db.Query("SELECT key, value FROM hark_config ORDER BY key")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []core.ConfigEntry
	for rows.Next() {
		var entry core.ConfigEntry
		if err := rows.Scan(&entry.Key, &entry.Value); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
