package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// PeerID returns the stable numeric id of a JID, allocating one on first use.
func (db *DB) PeerID(jid string) (int64, error) {
	if _, err := db.Exec(`INSERT INTO peers (jid) VALUES (?) ON CONFLICT(jid) DO NOTHING`, jid); err != nil {
		return 0, fmt.Errorf("allocate peer %q: %w", jid, err)
	}
	var id int64
	if err := db.QueryRow(`SELECT id FROM peers WHERE jid = ?`, jid).Scan(&id); err != nil {
		return 0, fmt.Errorf("lookup peer %q: %w", jid, err)
	}
	return id, nil
}

// PeerJID returns the JID behind a numeric id, or "" if unknown.
func (db *DB) PeerJID(id int64) (string, error) {
	var jid string
	err := db.QueryRow(`SELECT jid FROM peers WHERE id = ?`, id).Scan(&jid)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return jid, err
}
