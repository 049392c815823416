package store

import (
	"database/sql"
	"errors"
	"time"
)

// Outbox statuses.
const (
	OutboxQueued  = "queued"
	OutboxSending = "sending"
	OutboxSent    = "sent"
	OutboxFailed  = "failed"
)

// QueueOutbox adds a message to the send outbox.
func (db *DB) QueueOutbox(clientMsgID, chatJID, body string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO outbox (client_msg_id, chat_jid, body, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		clientMsgID, chatJID, body, OutboxQueued, now, now)
	return err
}

func (db *DB) setOutboxStatus(clientMsgID, status, errMsg, serverMsgID string) error {
	_, err := db.Exec(`
		UPDATE outbox SET status = ?, error_message = ?, server_msg_id = ?, updated_at = ?
		WHERE client_msg_id = ?`,
		status, errMsg, serverMsgID, time.Now().UnixMilli(), clientMsgID)
	return err
}

func (db *DB) MarkOutboxSending(clientMsgID string) error {
	return db.setOutboxStatus(clientMsgID, OutboxSending, "", "")
}

// MarkOutboxSent records the server-assigned message id.
func (db *DB) MarkOutboxSent(clientMsgID, serverMsgID string) error {
	return db.setOutboxStatus(clientMsgID, OutboxSent, "", serverMsgID)
}

func (db *DB) MarkOutboxFailed(clientMsgID, errMsg string) error {
	return db.setOutboxStatus(clientMsgID, OutboxFailed, errMsg, "")
}

// RequeueInterrupted puts entries left in 'sending' by a crash back in the queue.
func (db *DB) RequeueInterrupted() (int64, error) {
	res, err := db.Exec(`UPDATE outbox SET status = ?, updated_at = ? WHERE status = ?`,
		OutboxQueued, time.Now().UnixMilli(), OutboxSending)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// GetOutbox returns one entry, or nil.
func (db *DB) GetOutbox(clientMsgID string) (*OutboxEntry, error) {
	var e OutboxEntry
	err := db.QueryRow(`
		SELECT id, client_msg_id, chat_jid, body, status, error_message, server_msg_id
		FROM outbox WHERE client_msg_id = ?`, clientMsgID).
		Scan(&e.ID, &e.ClientMsgID, &e.ChatJID, &e.Body, &e.Status, &e.ErrorMessage, &e.ServerMsgID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// PendingOutbox returns queued entries, oldest first.
func (db *DB) PendingOutbox() ([]OutboxEntry, error) {
	rows, err := db.Query(`
		SELECT id, client_msg_id, chat_jid, body, status, error_message, server_msg_id
		FROM outbox WHERE status = ? ORDER BY created_at ASC, id ASC`, OutboxQueued)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []OutboxEntry
	for rows.Next() {
		var e OutboxEntry
		if err := rows.Scan(&e.ID, &e.ClientMsgID, &e.ChatJID, &e.Body, &e.Status, &e.ErrorMessage, &e.ServerMsgID); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
