package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const messageColumns = `id, chat_jid, msg_id, sender_jid, sender_name, kind, body, from_me, status, timestamp`

func scanMessage(row interface{ Scan(...any) error }) (Message, error) {
	var m Message
	err := row.Scan(&m.ID, &m.ChatJID, &m.MsgID, &m.SenderJID, &m.SenderName, &m.Kind, &m.Body, &m.FromMe, &m.Status, &m.Timestamp)
	return m, err
}

// UpsertMessage inserts or updates a message, idempotent on chat_jid + msg_id.
// It sets m.ID and reports whether the message was new.
func (db *DB) UpsertMessage(m *Message) (bool, error) {
	tx, err := db.Begin()
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var id int64
	err = tx.QueryRow(`SELECT id FROM messages WHERE chat_jid = ? AND msg_id = ?`, m.ChatJID, m.MsgID).Scan(&id)
	created := errors.Is(err, sql.ErrNoRows)
	switch {
	case created:
		res, err := tx.Exec(`
			INSERT INTO messages (chat_jid, msg_id, sender_jid, sender_name, kind, body, from_me, status, timestamp, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			m.ChatJID, m.MsgID, m.SenderJID, m.SenderName, m.Kind, m.Body, m.FromMe, m.Status, m.Timestamp, time.Now().UnixMilli())
		if err != nil {
			return false, fmt.Errorf("insert message: %w", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return false, err
		}
	case err != nil:
		return false, fmt.Errorf("lookup message: %w", err)
	default:
		if _, err := tx.Exec(`
			UPDATE messages SET
				sender_name = CASE WHEN ? != '' THEN ? ELSE sender_name END,
				body = ?, status = ?
			WHERE id = ?`, m.SenderName, m.SenderName, m.Body, m.Status, id); err != nil {
			return false, fmt.Errorf("update message: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	m.ID = id
	return created, nil
}

// GetMessage returns a message by row id, or nil.
func (db *DB) GetMessage(id int64) (*Message, error) {
	m, err := scanMessage(db.QueryRow(`SELECT `+messageColumns+` FROM messages WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// FindMessage returns a message by its WhatsApp id within a chat, or nil.
func (db *DB) FindMessage(chatJID, msgID string) (*Message, error) {
	m, err := scanMessage(db.QueryRow(`SELECT `+messageColumns+` FROM messages WHERE chat_jid = ? AND msg_id = ?`, chatJID, msgID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMessages returns up to limit messages of a chat older than the message
// with row id beforeID (0 for the newest), newest first.
func (db *DB) ListMessages(chatJID string, beforeID int64, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}
	var (
		rows *sql.Rows
		err  error
	)
	if beforeID == 0 {
		rows, err = db.Query(`
			SELECT `+messageColumns+` FROM messages
			WHERE chat_jid = ?
			ORDER BY timestamp DESC, id DESC
			LIMIT ?`, chatJID, limit)
	} else {
		rows, err = db.Query(`
			SELECT `+messageColumns+` FROM messages m
			WHERE m.chat_jid = ? AND EXISTS (
				SELECT 1 FROM messages a WHERE a.id = ?
				AND (m.timestamp < a.timestamp OR (m.timestamp = a.timestamp AND m.id < a.id)))
			ORDER BY m.timestamp DESC, m.id DESC
			LIMIT ?`, chatJID, beforeID, limit)
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// LastMessage returns the newest message of a chat, or nil.
func (db *DB) LastMessage(chatJID string) (*Message, error) {
	msgs, err := db.ListMessages(chatJID, 0, 1)
	if err != nil || len(msgs) == 0 {
		return nil, err
	}
	return &msgs[0], nil
}

// DeleteMessage removes a revoked message and returns its row id, or 0 if
// it was not stored.
func (db *DB) DeleteMessage(chatJID, msgID string) (int64, error) {
	m, err := db.FindMessage(chatJID, msgID)
	if err != nil || m == nil {
		return 0, err
	}
	if _, err := db.Exec(`DELETE FROM messages WHERE id = ?`, m.ID); err != nil {
		return 0, err
	}
	_, err = db.Exec(`DELETE FROM reactions WHERE chat_jid = ? AND msg_id = ?`, chatJID, msgID)
	return m.ID, err
}

// SetMessageServerID replaces the provisional id of an outgoing message with
// the id the server knows it by. The row id stays the same.
func (db *DB) SetMessageServerID(rowID int64, msgID, status string) error {
	_, err := db.Exec(`UPDATE messages SET msg_id = ?, status = ? WHERE id = ?`, msgID, status, rowID)
	return err
}
