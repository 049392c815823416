package store

import (
	"database/sql"
	"errors"
	"time"
)

const chatColumns = `c.jid,
	COALESCE(NULLIF(c.name,''), NULLIF(ct.name,''), NULLIF(ct.push_name,''), c.jid) AS display_name,
	c.kind, c.unread_count, c.marked_unread, c.pinned, c.archived, c.last_message_at`

func scanChat(row interface{ Scan(...any) error }) (Chat, error) {
	var c Chat
	err := row.Scan(&c.JID, &c.Name, &c.Kind, &c.UnreadCount, &c.MarkedUnread, &c.Pinned, &c.Archived, &c.LastMessageAt)
	return c, err
}

// UpsertChat inserts or updates a chat record. An empty name keeps the stored
// one and last_message_at never moves backwards.
func (db *DB) UpsertChat(c *Chat) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO chats (jid, name, kind, unread_count, last_message_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(jid) DO UPDATE SET
			name = CASE WHEN excluded.name != '' THEN excluded.name ELSE chats.name END,
			kind = excluded.kind,
			unread_count = excluded.unread_count,
			last_message_at = MAX(chats.last_message_at, excluded.last_message_at),
			updated_at = excluded.updated_at`,
		c.JID, c.Name, c.Kind, c.UnreadCount, c.LastMessageAt, now)
	return err
}

// TouchChat records a new message time for a chat, creating it if needed,
// and bumps the unread counter for incoming messages.
func (db *DB) TouchChat(jid string, kind ChatKind, at int64, incoming bool) error {
	unread := 0
	if incoming {
		unread = 1
	}
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO chats (jid, kind, unread_count, last_message_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(jid) DO UPDATE SET
			unread_count = chats.unread_count + excluded.unread_count,
			last_message_at = MAX(chats.last_message_at, excluded.last_message_at),
			updated_at = excluded.updated_at`,
		jid, kind, unread, at, now)
	return err
}

// ListChats returns chats, pinned first, then most recent. Names fall back
// to the contact name, then the push name, then the JID.
func (db *DB) ListChats(limit int) ([]Chat, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Query(`
		SELECT `+chatColumns+`
		FROM chats c
		LEFT JOIN contacts ct ON c.jid = ct.jid
		WHERE c.jid NOT LIKE '%@lid'
		ORDER BY c.pinned DESC, c.last_message_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var chats []Chat
	for rows.Next() {
		c, err := scanChat(rows)
		if err != nil {
			return nil, err
		}
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

// GetChat returns a single chat by JID, or nil if unknown.
func (db *DB) GetChat(jid string) (*Chat, error) {
	c, err := scanChat(db.QueryRow(`
		SELECT `+chatColumns+`
		FROM chats c
		LEFT JOIN contacts ct ON c.jid = ct.jid
		WHERE c.jid = ?`, jid))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// SearchChats matches chat display names and JIDs case-insensitively.
func (db *DB) SearchChats(query string, limit int) ([]Chat, error) {
	if limit <= 0 {
		limit = 20
	}
	pattern := "%" + query + "%"
	rows, err := db.Query(`
		SELECT `+chatColumns+`
		FROM chats c
		LEFT JOIN contacts ct ON c.jid = ct.jid
		WHERE c.jid NOT LIKE '%@lid'
		  AND (c.name LIKE ? OR ct.name LIKE ? OR ct.push_name LIKE ? OR c.jid LIKE ?)
		ORDER BY c.last_message_at DESC
		LIMIT ?`, pattern, pattern, pattern, pattern, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var chats []Chat
	for rows.Next() {
		c, err := scanChat(rows)
		if err != nil {
			return nil, err
		}
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

// SetChatPinned sets the pinned flag.
func (db *DB) SetChatPinned(jid string, pinned bool) error {
	_, err := db.Exec(`UPDATE chats SET pinned = ?, updated_at = ? WHERE jid = ?`, pinned, time.Now().UnixMilli(), jid)
	return err
}

// SetChatArchived sets the archived flag.
func (db *DB) SetChatArchived(jid string, archived bool) error {
	_, err := db.Exec(`UPDATE chats SET archived = ?, updated_at = ? WHERE jid = ?`, archived, time.Now().UnixMilli(), jid)
	return err
}

// SetChatMarkedUnread sets the manual unread mark. Marking read also clears
// the unread counter.
func (db *DB) SetChatMarkedUnread(jid string, unread bool) error {
	_, err := db.Exec(`
		UPDATE chats SET
			marked_unread = ?,
			unread_count = CASE WHEN ? THEN unread_count ELSE 0 END,
			updated_at = ?
		WHERE jid = ?`, unread, unread, time.Now().UnixMilli(), jid)
	return err
}

// ClearHistory removes all messages of a chat. When removeChat is set the
// chat itself goes too.
func (db *DB) ClearHistory(jid string, removeChat bool) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, q := range []string{
		`DELETE FROM reactions WHERE chat_jid = ?`,
		`DELETE FROM messages WHERE chat_jid = ?`,
		`UPDATE chats SET unread_count = 0, marked_unread = 0 WHERE jid = ?`,
	} {
		if _, err := tx.Exec(q, jid); err != nil {
			return err
		}
	}
	if removeChat {
		if _, err := tx.Exec(`DELETE FROM chats WHERE jid = ?`, jid); err != nil {
			return err
		}
	}
	return tx.Commit()
}
