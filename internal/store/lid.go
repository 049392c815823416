package store

import "fmt"

// LIDMapping maps a hidden-identity (LID) user to a phone number user.
type LIDMapping struct {
	LID string
	PN  string
}

// SyncLIDMap replaces the lid_map table with the given mappings.
func (db *DB) SyncLIDMap(mappings []LIDMapping) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM lid_map`); err != nil {
		return fmt.Errorf("clear lid_map: %w", err)
	}
	for _, m := range mappings {
		if _, err := tx.Exec(`INSERT INTO lid_map (lid, pn) VALUES (?, ?) ON CONFLICT(lid) DO UPDATE SET pn = excluded.pn`, m.LID, m.PN); err != nil {
			return fmt.Errorf("insert lid_map %q: %w", m.LID, err)
		}
	}
	return tx.Commit()
}

// ReconcileLIDs folds every mapped LID chat into its phone number chat:
// messages, media, reactions and contacts move over and the LID chat goes.
// It returns the number of chats merged.
func (db *DB) ReconcileLIDs() (int64, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const pn = `(SELECT lm.pn || '@s.whatsapp.net' FROM lid_map lm WHERE lm.lid || '@lid' = %s)`
	const mapped = `(SELECT lm.lid || '@lid' FROM lid_map lm)`

	steps := []struct {
		name  string
		query string
	}{
		{"ensure PN chats", `
			INSERT INTO chats (jid, name, kind, unread_count, marked_unread, pinned, archived, last_message_at, updated_at)
			SELECT lm.pn || '@s.whatsapp.net', c.name, c.kind, c.unread_count, c.marked_unread, c.pinned, c.archived, c.last_message_at, c.updated_at
			FROM chats c JOIN lid_map lm ON c.jid = lm.lid || '@lid'
			WHERE true
			ON CONFLICT(jid) DO UPDATE SET
				last_message_at = MAX(chats.last_message_at, excluded.last_message_at),
				unread_count = chats.unread_count + excluded.unread_count,
				name = CASE WHEN chats.name = '' THEN excluded.name ELSE chats.name END,
				updated_at = excluded.updated_at`},
		// Duplicates already present under the PN chat win.
		{"drop duplicate messages", `
			DELETE FROM messages WHERE chat_jid IN ` + mapped + ` AND EXISTS (
				SELECT 1 FROM messages p WHERE p.chat_jid = ` + fmt.Sprintf(pn, "messages.chat_jid") + ` AND p.msg_id = messages.msg_id)`},
		{"move messages", `
			UPDATE messages SET
				sender_jid = COALESCE(` + fmt.Sprintf(pn, "messages.sender_jid") + `, sender_jid),
				chat_jid = ` + fmt.Sprintf(pn, "messages.chat_jid") + `
			WHERE chat_jid IN ` + mapped},
		{"move media", `UPDATE media SET chat_jid = ` + fmt.Sprintf(pn, "media.chat_jid") + ` WHERE chat_jid IN ` + mapped},
		{"move reactions", `
			UPDATE OR REPLACE reactions SET chat_jid = ` + fmt.Sprintf(pn, "reactions.chat_jid") + `
			WHERE chat_jid IN ` + mapped},
		{"move contacts", `
			INSERT INTO contacts (jid, name, push_name, updated_at)
			SELECT lm.pn || '@s.whatsapp.net', ct.name, ct.push_name, ct.updated_at
			FROM contacts ct JOIN lid_map lm ON ct.jid = lm.lid || '@lid'
			WHERE true
			ON CONFLICT(jid) DO UPDATE SET
				name = CASE WHEN contacts.name = '' THEN excluded.name ELSE contacts.name END,
				push_name = CASE WHEN contacts.push_name = '' THEN excluded.push_name ELSE contacts.push_name END`},
		{"delete LID contacts", `DELETE FROM contacts WHERE jid IN ` + mapped},
	}
	for _, s := range steps {
		if _, err := tx.Exec(s.query); err != nil {
			return 0, fmt.Errorf("%s: %w", s.name, err)
		}
	}

	res, err := tx.Exec(`DELETE FROM chats WHERE jid IN ` + mapped)
	if err != nil {
		return 0, fmt.Errorf("delete LID chats: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return res.RowsAffected()
}
