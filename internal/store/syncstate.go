package store

import (
	"database/sql"
	"errors"
)

// SyncState returns a stored sync marker, or "" if unset.
func (db *DB) SyncState(key string) (string, error) {
	var v string
	err := db.QueryRow(`SELECT value FROM sync_state WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return v, err
}

// SetSyncState stores a sync marker.
func (db *DB) SetSyncState(key, value string) error {
	_, err := db.Exec(`
		INSERT INTO sync_state (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}
