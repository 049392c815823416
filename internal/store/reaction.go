package store

// SetReaction records sender's reaction on a message; an empty emoji removes it.
func (db *DB) SetReaction(chatJID, msgID, senderJID, emoji string) error {
	if emoji == "" {
		_, err := db.Exec(`DELETE FROM reactions WHERE chat_jid = ? AND msg_id = ? AND sender_jid = ?`, chatJID, msgID, senderJID)
		return err
	}
	_, err := db.Exec(`
		INSERT INTO reactions (chat_jid, msg_id, sender_jid, emoji) VALUES (?, ?, ?, ?)
		ON CONFLICT(chat_jid, msg_id, sender_jid) DO UPDATE SET emoji = excluded.emoji`,
		chatJID, msgID, senderJID, emoji)
	return err
}

// Reactions aggregates the reactions on a message by emoji. FromMe marks
// the emoji chosen by ownJID.
func (db *DB) Reactions(chatJID, msgID, ownJID string) ([]Reaction, error) {
	rows, err := db.Query(`
		SELECT emoji, COUNT(*), MAX(sender_jid = ?)
		FROM reactions
		WHERE chat_jid = ? AND msg_id = ?
		GROUP BY emoji
		ORDER BY COUNT(*) DESC, emoji`, ownJID, chatJID, msgID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Reaction
	for rows.Next() {
		var r Reaction
		if err := rows.Scan(&r.Emoji, &r.Count, &r.FromMe); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
