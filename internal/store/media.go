package store

import (
	"database/sql"
	"errors"
	"time"
)

const mediaColumns = `file_id, message_row, chat_jid, kind, mime_type, file_name, size, duration, payload, local_path, downloaded_at`

func scanMedia(row interface{ Scan(...any) error }) (Media, error) {
	var md Media
	err := row.Scan(&md.FileID, &md.MessageRow, &md.ChatJID, &md.Kind, &md.MimeType, &md.FileName,
		&md.Size, &md.Duration, &md.Payload, &md.LocalPath, &md.DownloadedAt)
	return md, err
}

// UpsertMedia records the attachment of a message and sets md.FileID. A
// repeated call for the same message keeps the file id and download state.
func (db *DB) UpsertMedia(md *Media) error {
	_, err := db.Exec(`
		INSERT INTO media (message_row, chat_jid, kind, mime_type, file_name, size, duration, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(message_row) DO UPDATE SET
			mime_type = excluded.mime_type,
			file_name = excluded.file_name,
			size = excluded.size,
			payload = excluded.payload`,
		md.MessageRow, md.ChatJID, md.Kind, md.MimeType, md.FileName, md.Size, md.Duration, md.Payload)
	if err != nil {
		return err
	}
	return db.QueryRow(`SELECT file_id FROM media WHERE message_row = ?`, md.MessageRow).Scan(&md.FileID)
}

// MediaForMessage returns the attachment of a message, or nil.
func (db *DB) MediaForMessage(messageRow int64) (*Media, error) {
	return db.oneMedia(`SELECT `+mediaColumns+` FROM media WHERE message_row = ?`, messageRow)
}

// GetMedia returns an attachment by file id, or nil.
func (db *DB) GetMedia(fileID int32) (*Media, error) {
	return db.oneMedia(`SELECT `+mediaColumns+` FROM media WHERE file_id = ?`, fileID)
}

func (db *DB) oneMedia(query string, arg any) (*Media, error) {
	md, err := scanMedia(db.QueryRow(query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &md, nil
}

// MarkDownloaded stores the local path of a finished download. An empty
// path forgets the local copy.
func (db *DB) MarkDownloaded(fileID int32, path string) error {
	at := int64(0)
	if path != "" {
		at = time.Now().UnixMilli()
	}
	_, err := db.Exec(`UPDATE media SET local_path = ?, downloaded_at = ? WHERE file_id = ?`, path, at, fileID)
	return err
}

// DownloadedMedia returns every attachment with a local copy.
func (db *DB) DownloadedMedia() ([]Media, error) {
	rows, err := db.Query(`SELECT ` + mediaColumns + ` FROM media WHERE local_path != '' ORDER BY downloaded_at ASC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Media
	for rows.Next() {
		md, err := scanMedia(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, md)
	}
	return out, rows.Err()
}
