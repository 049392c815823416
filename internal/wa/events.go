package wa

import (
	"context"

	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"go.uber.org/zap"

	"github.com/notioff/telesuper/internal/engine"
	"github.com/notioff/telesuper/internal/store"
)

// Handle is the whatsmeow event handler. It stores what it learns and
// translates it into engine updates.
func (e *Engine) Handle(rawEvt any) {
	switch evt := rawEvt.(type) {
	case *events.Message:
		e.handleMessage(evt)
	case *events.HistorySync:
		e.handleHistorySync(evt)
	case *events.Connected:
		e.logger.Info("WhatsApp connected")
		e.emitAuth(engine.AuthState{Kind: engine.AuthReady})
		go e.syncContacts(e.ctx)
	case *events.PairSuccess:
		e.logger.Info("paired", zap.String("jid", evt.ID.String()))
	case *events.Disconnected:
		e.logger.Warn("WhatsApp disconnected")
	case *events.LoggedOut:
		e.logger.Warn("WhatsApp logged out", zap.String("reason", evt.Reason.String()))
		e.emitAuth(engine.AuthState{Kind: engine.AuthLoggingOut})
		e.emitAuth(engine.AuthState{Kind: engine.AuthClosed})
	case *events.Pin:
		jid := evt.JID.ToNonAD().String()
		e.updateChat(jid, func() error { return e.db.SetChatPinned(jid, evt.Action.GetPinned()) }, e.emitPositions)
	case *events.Archive:
		jid := evt.JID.ToNonAD().String()
		e.updateChat(jid, func() error { return e.db.SetChatArchived(jid, evt.Action.GetArchived()) }, e.emitPositions)
	case *events.MarkChatAsRead:
		jid := evt.JID.ToNonAD().String()
		unread := !evt.Action.GetRead()
		e.updateChat(jid, func() error { return e.db.SetChatMarkedUnread(jid, unread) }, e.emitReadState)
	case *events.PushName:
		if err := e.db.UpsertContact(&store.Contact{JID: evt.JID.ToNonAD().String(), PushName: evt.NewPushName}); err != nil {
			e.logger.Warn("store push name", zap.Error(err))
		}
	case *events.GroupInfo:
		if evt.Name != nil {
			jid := evt.JID.ToNonAD().String()
			name := evt.Name.Name
			e.updateChat(jid, func() error {
				return e.db.UpsertChat(&store.Chat{JID: jid, Name: name, Kind: store.KindGroup})
			}, func(c *engine.Chat, _ *store.Chat) {
				e.emit(engine.UpdateChatTitle{ChatID: c.ID, Title: name})
			})
		}
	case *events.Presence:
		e.handlePresence(evt)
	}
}

func (e *Engine) handleMessage(evt *events.Message) {
	if evt.Info.Chat.Server == types.BroadcastServer {
		return
	}
	ctx := e.ctx
	evt.Info.Chat = e.resolveLID(ctx, evt.Info.Chat)
	evt.Info.Sender = e.resolveLID(ctx, evt.Info.Sender)
	e.ingest(ParseLiveMessage(evt), true)
}

func (e *Engine) handleHistorySync(evt *events.HistorySync) {
	data := evt.Data
	if data == nil {
		return
	}

	var names []store.Contact
	for _, pn := range data.GetPushnames() {
		if pn.GetID() != "" && pn.GetPushname() != "" {
			names = append(names, store.Contact{JID: NormalizeJID(pn.GetID()), PushName: pn.GetPushname()})
		}
	}
	if len(names) > 0 {
		if err := e.db.BulkUpsertContacts(names); err != nil {
			e.logger.Warn("store history push names", zap.Error(err))
		}
	}

	count := 0
	for _, conv := range data.GetConversations() {
		chatJID := NormalizeJID(conv.GetID())
		if chatJID == "" {
			continue
		}
		if err := e.db.UpsertChat(&store.Chat{
			JID:         chatJID,
			Name:        conv.GetName(),
			Kind:        chatKind(chatJID),
			UnreadCount: int(conv.GetUnreadCount()),
		}); err != nil {
			e.logger.Error("store history chat", zap.String("chat", chatJID), zap.Error(err))
			continue
		}
		if err := e.db.SetChatArchived(chatJID, conv.GetArchived()); err != nil {
			e.logger.Warn("store archived flag", zap.Error(err))
		}
		if conv.GetPinned() > 0 {
			if err := e.db.SetChatPinned(chatJID, true); err != nil {
				e.logger.Warn("store pinned flag", zap.Error(err))
			}
		}
		for _, hm := range conv.GetMessages() {
			if p := ParseHistoryMessage(chatJID, hm.GetMessage()); p != nil {
				e.ingest(p, false)
				count++
			}
		}
		e.announceChat(chatJID)
	}
	e.logger.Info("history batch ingested",
		zap.Int("conversations", len(data.GetConversations())),
		zap.Int("messages", count))
}

func (e *Engine) handlePresence(evt *events.Presence) {
	id, err := e.db.PeerID(evt.From.ToNonAD().String())
	if err != nil {
		return
	}
	status := engine.UserStatus{Kind: engine.StatusOnline}
	if evt.Unavailable {
		status = engine.UserStatus{Kind: engine.StatusOffline}
		if !evt.LastSeen.IsZero() {
			status.WasOnline = evt.LastSeen.Unix()
		} else {
			status.Kind = engine.StatusRecently
		}
	}
	e.emit(engine.UpdateUserStatus{UserID: id, Status: status})
}

// syncContacts copies the contact book and the LID mappings from the device
// store, then folds LID chats into their phone number chats.
func (e *Engine) syncContacts(ctx context.Context) {
	if e.client == nil || e.client.Store == nil {
		return
	}
	all, err := e.client.Store.Contacts.GetAllContacts(ctx)
	if err != nil {
		e.logger.Warn("failed to get contacts from device store", zap.Error(err))
		return
	}
	contacts := make([]store.Contact, 0, len(all))
	var mappings []store.LIDMapping
	for jid, info := range all {
		normalized := jid.ToNonAD()
		contacts = append(contacts, store.Contact{
			JID:      normalized.String(),
			Name:     info.FullName,
			PushName: info.PushName,
		})
		if normalized.Server == types.DefaultUserServer && e.client.Store.LIDs != nil {
			lid, err := e.client.Store.LIDs.GetLIDForPN(ctx, normalized)
			if err == nil && !lid.IsEmpty() {
				mappings = append(mappings, store.LIDMapping{LID: lid.User, PN: normalized.User})
			}
		}
	}
	if err := e.db.BulkUpsertContacts(contacts); err != nil {
		e.logger.Warn("store contacts", zap.Error(err))
	}
	e.mergeLIDs(mappings)
}

// mergeLIDs folds mapped LID chats into their phone number chats and
// withdraws the LID chats that were already announced.
func (e *Engine) mergeLIDs(mappings []store.LIDMapping) {
	if len(mappings) == 0 {
		return
	}
	if err := e.db.SyncLIDMap(mappings); err != nil {
		e.logger.Warn("store LID map", zap.Error(err))
		return
	}
	var gone, merged []string
	for _, m := range mappings {
		lidChat := m.LID + "@" + types.HiddenUserServer
		if c, err := e.db.GetChat(lidChat); err == nil && c != nil {
			gone = append(gone, lidChat)
			merged = append(merged, m.PN+"@"+types.DefaultUserServer)
		}
	}
	n, err := e.db.ReconcileLIDs()
	if err != nil {
		e.logger.Warn("reconcile LIDs", zap.Error(err))
		return
	}
	if n == 0 {
		return
	}
	e.logger.Info("merged LID chats", zap.Int64("count", n))
	for _, jid := range gone {
		e.withdrawChat(jid)
	}
	for _, jid := range merged {
		e.announceChat(jid)
	}
}
