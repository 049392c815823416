package wa

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"time"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"

	"github.com/notioff/telesuper/internal/engine"
	"github.com/notioff/telesuper/internal/store"
)

// defaultTTL applies when an optimize request asks for the default.
const defaultTTL = 7 * 24 * time.Hour

func (e *Engine) downloadFile(ctx context.Context, r engine.DownloadFile) (engine.File, error) {
	md, err := e.db.GetMedia(r.FileID)
	if err != nil {
		return engine.File{}, err
	}
	if md == nil {
		return engine.File{}, engine.Errorf(404, "file %d not found", r.FileID)
	}
	if md.LocalPath != "" {
		if _, err := os.Stat(md.LocalPath); err == nil {
			f := toFile(md)
			e.emit(engine.UpdateFile{File: f})
			return f, nil
		}
	}
	if !e.connected() {
		return engine.File{}, engine.Errorf(503, "not connected")
	}

	e.mu.Lock()
	busy := e.downloading[r.FileID]
	e.downloading[r.FileID] = true
	e.mu.Unlock()
	active := engine.File{ID: md.FileID, Size: md.Size, Local: engine.LocalFile{IsDownloadingActive: true}}
	if busy {
		return active, nil
	}
	defer func() {
		e.mu.Lock()
		delete(e.downloading, r.FileID)
		e.mu.Unlock()
	}()
	e.emit(engine.UpdateFile{File: active})

	path, err := e.fetch(ctx, md)
	if err != nil {
		e.logger.Warn("download failed", zap.Int32("file_id", md.FileID), zap.Error(err))
		e.emit(engine.UpdateFile{File: engine.File{ID: md.FileID, Size: md.Size}})
		return engine.File{}, engine.Errorf(500, "download file %d: %v", md.FileID, err)
	}
	md.LocalPath = path
	f := toFile(md)
	e.emit(engine.UpdateFile{File: f})
	return f, nil
}

// fetch downloads and decrypts an attachment into the files directory.
func (e *Engine) fetch(ctx context.Context, md *store.Media) (string, error) {
	var msg waE2E.Message
	if err := proto.Unmarshal(md.Payload, &msg); err != nil {
		return "", fmt.Errorf("decode payload: %w", err)
	}
	dl := downloadable(&msg)
	if dl == nil {
		return "", errors.New("message has no downloadable media")
	}
	data, err := e.client.Download(ctx, dl)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(e.filesDir, 0o700); err != nil {
		return "", err
	}
	path := filepath.Join(e.filesDir, localName(md))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	if md.Size == 0 {
		md.Size = int64(len(data))
	}
	if err := e.db.MarkDownloaded(md.FileID, path); err != nil {
		return "", err
	}
	return path, nil
}

func downloadable(msg *waE2E.Message) whatsmeow.DownloadableMessage {
	switch {
	case msg.GetImageMessage() != nil:
		return msg.GetImageMessage()
	case msg.GetVideoMessage() != nil:
		return msg.GetVideoMessage()
	case msg.GetAudioMessage() != nil:
		return msg.GetAudioMessage()
	case msg.GetDocumentMessage() != nil:
		return msg.GetDocumentMessage()
	case msg.GetStickerMessage() != nil:
		return msg.GetStickerMessage()
	}
	return nil
}

// localName is the file name of a downloaded attachment, unique per file id.
func localName(md *store.Media) string {
	if md.FileName != "" {
		return fmt.Sprintf("%d_%s", md.FileID, filepath.Base(md.FileName))
	}
	ext := ""
	if exts, err := mime.ExtensionsByType(md.MimeType); err == nil && len(exts) > 0 {
		ext = exts[0]
	}
	return fmt.Sprintf("%d_%s%s", md.FileID, md.Kind, ext)
}

func (e *Engine) sendMedia(ctx context.Context, jid string, in engine.InputMedia) error {
	if !e.connected() {
		return engine.Errorf(503, "not connected")
	}
	to, err := types.ParseJID(jid)
	if err != nil {
		return engine.Errorf(400, "bad chat id: %v", err)
	}
	data, err := os.ReadFile(in.Path)
	if err != nil {
		return engine.Errorf(400, "read %s: %v", in.Path, err)
	}
	mimeType := in.MimeType
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}

	mediaType := whatsmeow.MediaDocument
	switch in.Kind {
	case engine.MediaPhoto:
		mediaType = whatsmeow.MediaImage
	case engine.MediaVideo:
		mediaType = whatsmeow.MediaVideo
	case engine.MediaAudio:
		mediaType = whatsmeow.MediaAudio
	}
	up, err := e.client.Upload(ctx, data, mediaType)
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}

	msg := mediaMessage(in, mimeType, up)
	resp, err := e.client.SendMessage(ctx, to, msg)
	if err != nil {
		return fmt.Errorf("send media: %w", err)
	}
	p := &ParsedMessage{
		ChatJID:   jid,
		MsgID:     resp.ID,
		SenderJID: e.ownJID(),
		FromMe:    true,
		Timestamp: resp.Timestamp.UnixMilli(),
	}
	p.fill(msg)
	e.ingest(p, true)
	return nil
}

func mediaMessage(in engine.InputMedia, mimeType string, up whatsmeow.UploadResponse) *waE2E.Message {
	var caption *string
	if in.Caption != "" {
		caption = proto.String(in.Caption)
	}
	switch in.Kind {
	case engine.MediaPhoto:
		return &waE2E.Message{ImageMessage: &waE2E.ImageMessage{
			Caption: caption, Mimetype: proto.String(mimeType),
			URL: proto.String(up.URL), DirectPath: proto.String(up.DirectPath), MediaKey: up.MediaKey,
			FileEncSHA256: up.FileEncSHA256, FileSHA256: up.FileSHA256, FileLength: proto.Uint64(up.FileLength),
		}}
	case engine.MediaVideo:
		return &waE2E.Message{VideoMessage: &waE2E.VideoMessage{
			Caption: caption, Mimetype: proto.String(mimeType),
			URL: proto.String(up.URL), DirectPath: proto.String(up.DirectPath), MediaKey: up.MediaKey,
			FileEncSHA256: up.FileEncSHA256, FileSHA256: up.FileSHA256, FileLength: proto.Uint64(up.FileLength),
		}}
	case engine.MediaAudio:
		return &waE2E.Message{AudioMessage: &waE2E.AudioMessage{
			Mimetype: proto.String(mimeType),
			URL:      proto.String(up.URL), DirectPath: proto.String(up.DirectPath), MediaKey: up.MediaKey,
			FileEncSHA256: up.FileEncSHA256, FileSHA256: up.FileSHA256, FileLength: proto.Uint64(up.FileLength),
		}}
	default:
		return &waE2E.Message{DocumentMessage: &waE2E.DocumentMessage{
			Caption: caption, Mimetype: proto.String(mimeType), FileName: proto.String(filepath.Base(in.Path)),
			URL: proto.String(up.URL), DirectPath: proto.String(up.DirectPath), MediaKey: up.MediaKey,
			FileEncSHA256: up.FileEncSHA256, FileSHA256: up.FileSHA256, FileLength: proto.Uint64(up.FileLength),
		}}
	}
}

// removeChatFiles deletes the downloaded attachments of one chat.
func (e *Engine) removeChatFiles(jid string) {
	media, err := e.db.DownloadedMedia()
	if err != nil {
		e.logger.Warn("list downloaded media", zap.Error(err))
		return
	}
	for i := range media {
		if media[i].ChatJID == jid {
			e.removeLocal(&media[i])
		}
	}
}

func (e *Engine) removeLocal(md *store.Media) {
	if err := os.Remove(md.LocalPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		e.logger.Warn("remove file", zap.String("path", md.LocalPath), zap.Error(err))
		return
	}
	if err := e.db.MarkDownloaded(md.FileID, ""); err != nil {
		e.logger.Warn("forget download", zap.Int32("file_id", md.FileID), zap.Error(err))
		return
	}
	e.emit(engine.UpdateFile{File: engine.File{ID: md.FileID, Size: md.Size}})
}

// onDiskSize is the size of the local copy, falling back to the recorded size.
func onDiskSize(md *store.Media) int64 {
	if info, err := os.Stat(md.LocalPath); err == nil {
		return info.Size()
	}
	return md.Size
}

func (e *Engine) storageStatistics(chatLimit int) (engine.StorageStatistics, error) {
	media, err := e.db.DownloadedMedia()
	if err != nil {
		return engine.StorageStatistics{}, fmt.Errorf("list downloaded media: %w", err)
	}

	var stats engine.StorageStatistics
	byChat := make(map[string]*engine.ChatStatistics)
	var order []string
	for i := range media {
		md := &media[i]
		size := onDiskSize(md)
		stats.Size += size
		stats.Count++

		cs, ok := byChat[md.ChatJID]
		if !ok {
			id, err := e.db.PeerID(md.ChatJID)
			if err != nil {
				return engine.StorageStatistics{}, err
			}
			cs = &engine.ChatStatistics{ChatID: id}
			byChat[md.ChatJID] = cs
			order = append(order, md.ChatJID)
		}
		cs.Size += size
		cs.Count++
		idx := slices.IndexFunc(cs.ByFileType, func(ft engine.FileTypeStatistics) bool { return ft.FileType == md.Kind })
		if idx < 0 {
			cs.ByFileType = append(cs.ByFileType, engine.FileTypeStatistics{FileType: md.Kind})
			idx = len(cs.ByFileType) - 1
		}
		cs.ByFileType[idx].Size += size
		cs.ByFileType[idx].Count++
	}

	for _, jid := range order {
		stats.ByChat = append(stats.ByChat, *byChat[jid])
	}
	slices.SortStableFunc(stats.ByChat, func(a, b engine.ChatStatistics) int { return cmp.Compare(b.Size, a.Size) })
	if chatLimit > 0 && len(stats.ByChat) > chatLimit {
		stats.ByChat = stats.ByChat[:chatLimit]
	}
	return stats, nil
}

// optimizeStorage removes downloaded files older than the TTL, then the
// oldest remaining ones while the total exceeds the size limit.
func (e *Engine) optimizeStorage(r engine.OptimizeStorage) (engine.StorageStatistics, error) {
	media, err := e.db.DownloadedMedia()
	if err != nil {
		return engine.StorageStatistics{}, fmt.Errorf("list downloaded media: %w", err)
	}

	ttl := time.Duration(r.TTL) * time.Second
	if r.TTL < 0 {
		ttl = defaultTTL
	}
	cutoff := time.Now().Add(-ttl).UnixMilli()

	var kept []*store.Media
	var total int64
	for i := range media {
		md := &media[i]
		if len(r.ChatIDs) > 0 {
			id, err := e.db.PeerID(md.ChatJID)
			if err != nil || !slices.Contains(r.ChatIDs, id) {
				continue
			}
		}
		if md.DownloadedAt <= cutoff {
			e.removeLocal(md)
			continue
		}
		kept = append(kept, md)
		total += onDiskSize(md)
	}
	// DownloadedMedia is ordered oldest first.
	for _, md := range kept {
		if r.SizeLimit <= 0 || total <= r.SizeLimit {
			break
		}
		total -= onDiskSize(md)
		e.removeLocal(md)
	}
	return e.storageStatistics(r.ChatLimit)
}
