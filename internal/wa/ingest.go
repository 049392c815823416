package wa

import (
	"go.uber.org/zap"

	"github.com/notioff/telesuper/internal/engine"
	"github.com/notioff/telesuper/internal/store"
)

// ingest stores one parsed message idempotently. When announce is set, a
// message seen for the first time is pushed as an update.
func (e *Engine) ingest(p *ParsedMessage, announce bool) {
	switch {
	case p.Reaction != nil:
		e.applyReaction(p)
		return
	case p.RevokedID != "":
		e.applyRevoke(p)
		return
	case p.Kind == KindUnknown:
		return
	}
	log := e.logger.With(zap.String("chat", p.ChatJID), zap.String("msg_id", p.MsgID))

	msg := p.ToStoreMessage()
	created, err := e.db.UpsertMessage(msg)
	if err != nil {
		log.Error("failed to ingest message", zap.Error(err))
		return
	}
	if p.Media != nil {
		md := &store.Media{
			MessageRow: msg.ID,
			ChatJID:    p.ChatJID,
			Kind:       p.Kind,
			MimeType:   p.Media.MimeType,
			FileName:   p.Media.FileName,
			Size:       p.Media.Size,
			Duration:   p.Media.Duration,
			Payload:    p.Media.Payload,
		}
		if err := e.db.UpsertMedia(md); err != nil {
			log.Error("failed to store media", zap.Error(err))
		}
	}
	if !created {
		return
	}
	// History batches carry their own unread counters.
	if err := e.db.TouchChat(p.ChatJID, chatKind(p.ChatJID), p.Timestamp, announce && !p.FromMe); err != nil {
		log.Error("failed to touch chat", zap.Error(err))
		return
	}
	if !p.FromMe && p.SenderName != "" && p.SenderJID != "" {
		if err := e.db.UpsertContact(&store.Contact{JID: p.SenderJID, PushName: p.SenderName}); err != nil {
			log.Warn("store push name", zap.Error(err))
		}
	}
	if announce {
		e.announceMessage(msg)
	}
}

func (e *Engine) applyReaction(p *ParsedMessage) {
	sender := p.SenderJID
	if p.FromMe {
		sender = e.ownJID()
	}
	if err := e.db.SetReaction(p.ChatJID, p.Reaction.TargetID, sender, p.Reaction.Emoji); err != nil {
		e.logger.Warn("store reaction", zap.Error(err))
		return
	}
	target, err := e.db.FindMessage(p.ChatJID, p.Reaction.TargetID)
	if err != nil || target == nil {
		return
	}
	chatID, err := e.db.PeerID(p.ChatJID)
	if err != nil {
		return
	}
	reactions, err := e.db.Reactions(p.ChatJID, p.Reaction.TargetID, e.ownJID())
	if err != nil {
		e.logger.Warn("load reactions", zap.Error(err))
		return
	}
	e.emit(engine.UpdateMessageReactions{ChatID: chatID, MessageID: target.ID, Reactions: toReactions(reactions)})
}

func (e *Engine) applyRevoke(p *ParsedMessage) {
	rowID, err := e.db.DeleteMessage(p.ChatJID, p.RevokedID)
	if err != nil {
		e.logger.Warn("delete revoked message", zap.Error(err))
		return
	}
	if rowID == 0 {
		return
	}
	chatID, err := e.db.PeerID(p.ChatJID)
	if err != nil {
		return
	}
	e.emit(engine.UpdateDeleteMessages{ChatID: chatID, MessageIDs: []int64{rowID}, IsPermanent: true})
	e.updateChat(p.ChatJID, nil, e.emitLastMessage)
}

// announceMessage pushes a newly stored message together with the new state
// of its chat. A chat seen for the first time is announced whole.
func (e *Engine) announceMessage(m *store.Message) {
	msg, err := e.toMessage(m)
	if err != nil {
		e.logger.Warn("convert message", zap.Error(err))
		return
	}
	chat, sc, err := e.loadChat(m.ChatJID)
	if err != nil || chat == nil {
		return
	}
	if e.markAnnounced(chat.ID) {
		e.emit(engine.UpdateNewChat{Chat: chat})
		e.emit(engine.UpdateNewMessage{Message: msg})
		return
	}
	e.emit(engine.UpdateNewMessage{Message: msg})
	e.emitLastMessage(chat, sc)
	e.emitReadState(chat, sc)
}

// announceChat pushes the current state of a chat.
func (e *Engine) announceChat(jid string) {
	chat, sc, err := e.loadChat(jid)
	if err != nil || chat == nil {
		return
	}
	if e.markAnnounced(chat.ID) {
		e.emit(engine.UpdateNewChat{Chat: chat})
		return
	}
	e.emit(engine.UpdateChatTitle{ChatID: chat.ID, Title: chat.Title})
	e.emitLastMessage(chat, sc)
	e.emitReadState(chat, sc)
}

// withdrawChat removes a chat from every list it could be in.
func (e *Engine) withdrawChat(jid string) {
	id, err := e.db.PeerID(jid)
	if err != nil {
		return
	}
	for _, list := range []engine.ChatList{engine.MainList, engine.ArchiveList} {
		e.emit(engine.UpdateChatPosition{ChatID: id, Position: engine.ChatPosition{List: list, Order: engine.OrderNotInList}})
	}
}

// markAnnounced records that the chat was pushed and reports whether this
// is the first time.
func (e *Engine) markAnnounced(id int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.announced[id] {
		return false
	}
	e.announced[id] = true
	return true
}

func (e *Engine) loadChat(jid string) (*engine.Chat, *store.Chat, error) {
	sc, err := e.db.GetChat(jid)
	if err != nil {
		e.logger.Warn("load chat", zap.String("chat", jid), zap.Error(err))
		return nil, nil, err
	}
	if sc == nil {
		return nil, nil, nil
	}
	chat, err := e.toChat(sc)
	if err != nil {
		e.logger.Warn("convert chat", zap.String("chat", jid), zap.Error(err))
		return nil, nil, err
	}
	return chat, sc, nil
}

// updateChat applies change to a stored chat and pushes the result through
// emit. Chats never announced are announced whole instead.
func (e *Engine) updateChat(jid string, change func() error, emit func(*engine.Chat, *store.Chat)) {
	if change != nil {
		if err := change(); err != nil {
			e.logger.Warn("update chat", zap.String("chat", jid), zap.Error(err))
			return
		}
	}
	chat, sc, err := e.loadChat(jid)
	if err != nil || chat == nil {
		return
	}
	if e.markAnnounced(chat.ID) {
		e.emit(engine.UpdateNewChat{Chat: chat})
		return
	}
	emit(chat, sc)
}

func (e *Engine) emitLastMessage(c *engine.Chat, _ *store.Chat) {
	e.emit(engine.UpdateChatLastMessage{ChatID: c.ID, LastMessage: c.LastMessage, Positions: c.Positions})
}

// emitPositions moves the chat into its current list and out of the other.
func (e *Engine) emitPositions(c *engine.Chat, sc *store.Chat) {
	from := engine.ArchiveList
	if sc.Archived {
		from = engine.MainList
	}
	e.emit(engine.UpdateChatPosition{ChatID: c.ID, Position: engine.ChatPosition{List: from, Order: engine.OrderNotInList}})
	for _, p := range c.Positions {
		e.emit(engine.UpdateChatPosition{ChatID: c.ID, Position: p})
	}
}

func (e *Engine) emitReadState(c *engine.Chat, _ *store.Chat) {
	e.emit(engine.UpdateChatReadInbox{ChatID: c.ID, UnreadCount: c.UnreadCount})
	e.emit(engine.UpdateChatMarkedUnread{ChatID: c.ID, Unread: c.IsMarkedAsUnread})
}
