package wa

import (
	"strings"

	"go.mau.fi/whatsmeow/types"

	"github.com/notioff/telesuper/internal/engine"
	"github.com/notioff/telesuper/internal/store"
)

// pinnedBoost lifts pinned chats above every unpinned one while keeping
// them ordered by recency among themselves.
const pinnedBoost int64 = 1 << 62

// chatKind classifies a chat by its JID server.
func chatKind(jid string) store.ChatKind {
	switch {
	case strings.HasSuffix(jid, "@"+types.GroupServer):
		return store.KindGroup
	case strings.HasSuffix(jid, "@"+types.NewsletterServer):
		return store.KindChannel
	default:
		return store.KindPrivate
	}
}

func chatType(k store.ChatKind) engine.ChatType {
	switch k {
	case store.KindGroup:
		return engine.ChatBasicGroup
	case store.KindChannel:
		return engine.ChatChannel
	default:
		return engine.ChatPrivate
	}
}

// chatOrder is the list order of a chat; never the not-in-list sentinel.
func chatOrder(c *store.Chat) int64 {
	order := max(c.LastMessageAt, 1)
	if c.Pinned {
		order += pinnedBoost
	}
	return order
}

// chatPositions places a chat in the main list, or in the archive.
func chatPositions(c *store.Chat) []engine.ChatPosition {
	list := engine.MainList
	if c.Archived {
		list = engine.ArchiveList
	}
	return []engine.ChatPosition{{List: list, Order: chatOrder(c), IsPinned: c.Pinned}}
}

// toChat converts a stored chat with its newest message.
func (e *Engine) toChat(c *store.Chat) (*engine.Chat, error) {
	id, err := e.db.PeerID(c.JID)
	if err != nil {
		return nil, err
	}
	out := &engine.Chat{
		ID:               id,
		Title:            c.Name,
		Type:             chatType(c.Kind),
		Positions:        chatPositions(c),
		UnreadCount:      c.UnreadCount,
		IsMarkedAsUnread: c.MarkedUnread,
	}
	if out.Type == engine.ChatPrivate {
		out.UserID = id
	}
	last, err := e.db.LastMessage(c.JID)
	if err != nil {
		return nil, err
	}
	if last != nil {
		m, err := e.toMessage(last)
		if err != nil {
			return nil, err
		}
		out.LastMessage = &m
	}
	return out, nil
}

// toMessage converts a stored message, its attachment and its reactions.
func (e *Engine) toMessage(m *store.Message) (engine.Message, error) {
	chatID, err := e.db.PeerID(m.ChatJID)
	if err != nil {
		return engine.Message{}, err
	}
	senderJID := m.SenderJID
	if m.FromMe || senderJID == "" {
		senderJID = e.ownJID()
	}
	if senderJID == "" {
		senderJID = m.ChatJID
	}
	var sender engine.MessageSender
	senderID, err := e.db.PeerID(senderJID)
	if err != nil {
		return engine.Message{}, err
	}
	if chatKind(senderJID) == store.KindPrivate {
		sender = engine.SenderUser{UserID: senderID}
	} else {
		sender = engine.SenderChat{ChatID: senderID}
	}

	var media *store.Media
	if isMediaKind(m.Kind) {
		if media, err = e.db.MediaForMessage(m.ID); err != nil {
			return engine.Message{}, err
		}
	}
	reactions, err := e.db.Reactions(m.ChatJID, m.MsgID, e.ownJID())
	if err != nil {
		return engine.Message{}, err
	}

	return engine.Message{
		ID:         m.ID,
		ChatID:     chatID,
		Sender:     sender,
		Date:       m.Timestamp / 1000,
		IsOutgoing: m.FromMe,
		Content:    toContent(m, media),
		Reactions:  toReactions(reactions),
	}, nil
}

func isMediaKind(kind string) bool {
	switch kind {
	case KindImage, KindVideo, KindGIF, KindAudio, KindVoice, KindDocument, KindSticker:
		return true
	}
	return false
}

func toReactions(rs []store.Reaction) []engine.Reaction {
	if len(rs) == 0 {
		return nil
	}
	out := make([]engine.Reaction, len(rs))
	for i, r := range rs {
		out[i] = engine.Reaction{Emoji: r.Emoji, TotalCount: r.Count, IsChosen: r.FromMe}
	}
	return out
}

// toFile reports the download state of an attachment.
func toFile(md *store.Media) engine.File {
	f := engine.File{ID: md.FileID, Size: md.Size}
	if md.LocalPath != "" {
		f.Local = engine.LocalFile{
			Path:                   md.LocalPath,
			IsDownloadingCompleted: true,
			DownloadedSize:         md.Size,
		}
	}
	return f
}

func toContent(m *store.Message, md *store.Media) engine.Content {
	if isMediaKind(m.Kind) {
		if md == nil {
			return engine.Unsupported{}
		}
		return mediaContent(m.Kind, m.Body, md)
	}
	switch m.Kind {
	case KindText:
		return engine.Text{Text: m.Body}
	case KindContact:
		return engine.Contact{Name: m.Body}
	case KindPoll:
		return engine.Poll{Question: m.Body}
	case KindLocation:
		if lat, lon, ok := parseLocation(m.Body); ok {
			return engine.Location{Latitude: lat, Longitude: lon}
		}
	}
	return engine.Unsupported{}
}

func mediaContent(kind, caption string, md *store.Media) engine.Content {
	f := toFile(md)
	switch kind {
	case KindImage:
		return engine.Photo{Caption: caption, File: f}
	case KindVideo:
		return engine.Video{Caption: caption, FileName: md.FileName, File: f}
	case KindGIF:
		return engine.Animation{Caption: caption, File: f}
	case KindAudio:
		return engine.Audio{FileName: md.FileName, Duration: md.Duration, File: f}
	case KindVoice:
		return engine.VoiceNote{Duration: md.Duration, File: f}
	case KindDocument:
		return engine.Document{Caption: caption, FileName: md.FileName, File: f}
	case KindSticker:
		return engine.Sticker{File: f}
	default:
		return engine.Unsupported{}
	}
}

// toUser builds a profile from the contact book.
func toUser(id int64, jid string, c *store.Contact) engine.User {
	u := engine.User{ID: id}
	if parsed, err := types.ParseJID(jid); err == nil {
		u.Username = parsed.User
	}
	if c != nil {
		u.FirstName, u.LastName = splitName(c.Name)
		if u.FirstName == "" {
			u.FirstName = c.PushName
		}
	}
	return u
}

func splitName(full string) (first, last string) {
	full = strings.TrimSpace(full)
	first, last, _ = strings.Cut(full, " ")
	return first, strings.TrimSpace(last)
}
