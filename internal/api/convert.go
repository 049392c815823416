package api

import "github.com/notioff/telesuper/internal/engine"

func chatValue(c *engine.Chat) map[string]any {
	v := map[string]any{
		"id":            c.ID,
		"title":         c.Title,
		"type":          c.Type.String(),
		"unread_count":  c.UnreadCount,
		"marked_unread": c.IsMarkedAsUnread,
		"pinned":        c.IsPinned(),
	}
	if c.LastMessage != nil {
		v["last_message"] = engine.Summary(c.LastMessage.Content)
		v["last_message_date"] = c.LastMessage.Date
	}
	return v
}

func messageValue(m *engine.Message) map[string]any {
	v := map[string]any{
		"id":       m.ID,
		"chat_id":  m.ChatID,
		"date":     m.Date,
		"outgoing": m.IsOutgoing,
		"text":     engine.Summary(m.Content),
	}
	switch s := m.Sender.(type) {
	case engine.SenderUser:
		v["sender_user_id"] = s.UserID
	case engine.SenderChat:
		v["sender_chat_id"] = s.ChatID
	}
	if m.ThreadID != 0 {
		v["thread_id"] = m.ThreadID
	}
	return v
}

func statsValue(s *engine.StorageStatistics) map[string]any {
	chats := make([]any, 0, len(s.ByChat))
	for _, c := range s.ByChat {
		types := make([]any, 0, len(c.ByFileType))
		for _, ft := range c.ByFileType {
			types = append(types, map[string]any{"file_type": ft.FileType, "size": ft.Size, "count": ft.Count})
		}
		chats = append(chats, map[string]any{"chat_id": c.ChatID, "size": c.Size, "count": c.Count, "by_file_type": types})
	}
	return map[string]any{"size": s.Size, "count": s.Count, "by_chat": chats}
}
