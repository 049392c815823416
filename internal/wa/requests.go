package wa

import (
	"context"
	"fmt"

	"go.mau.fi/whatsmeow/appstate"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"go.uber.org/zap"

	"github.com/notioff/telesuper/internal/engine"
	"github.com/notioff/telesuper/internal/store"
)

// handle serves one request. Requests WhatsApp has no notion of fail with
// code 400.
func (e *Engine) handle(ctx context.Context, req engine.Request) (any, error) {
	switch r := req.(type) {
	case engine.SetCredentials:
		// Pairing needs no application credentials.
		return engine.Ok{}, nil
	case engine.LogOut:
		return engine.Ok{}, e.logOut(ctx)
	case engine.LoadChats:
		return engine.Ok{}, e.loadChats(r.List, r.Limit)
	case engine.OpenChat:
		return engine.Ok{}, e.openChat(r.ChatID)
	case engine.CloseChat:
		return engine.Ok{}, nil
	case engine.GetChat:
		return e.getChat(r.ChatID)
	case engine.GetChatHistory:
		return e.history(r.ChatID, r.FromMessageID, r.Limit)
	case engine.SendMessage:
		return engine.Ok{}, e.sendMessage(ctx, r)
	case engine.DeleteChat:
		return engine.Ok{}, e.deleteHistory(r.ChatID, true)
	case engine.DeleteChatHistory:
		return engine.Ok{}, e.deleteHistory(r.ChatID, r.RemoveFromChatList)
	case engine.ToggleChatPinned:
		return engine.Ok{}, e.togglePinned(ctx, r.ChatID, r.IsPinned)
	case engine.ToggleChatMarkedUnread:
		return engine.Ok{}, e.markUnread(r.ChatID, r.Unread)
	case engine.LeaveChat:
		return engine.Ok{}, e.leaveChat(ctx, r.ChatID)
	case engine.SetUserBlocked:
		return engine.Ok{}, e.setBlocked(ctx, r.UserID, r.Blocked)
	case engine.DownloadFile:
		return e.downloadFile(ctx, r)
	case engine.SearchChats:
		return e.searchChats(r.Query, r.Limit)
	case engine.GetStorageStatistics:
		return e.storageStatistics(r.ChatLimit)
	case engine.OptimizeStorage:
		return e.optimizeStorage(r)
	case engine.GetUser:
		return e.getUser(r.UserID)
	case engine.SetPhoneNumber, engine.CheckCode, engine.CheckPassword:
		return nil, engine.Errorf(400, "%s: log in by scanning the QR code", req.Kind())
	default:
		return nil, engine.Errorf(400, "%s is not supported by WhatsApp", req.Kind())
	}
}

// jidOf returns the JID behind a numeric id.
func (e *Engine) jidOf(id int64) (string, error) {
	jid, err := e.db.PeerJID(id)
	if err != nil {
		return "", err
	}
	if jid == "" {
		return "", engine.Errorf(404, "unknown id %d", id)
	}
	return jid, nil
}

func (e *Engine) loadChats(list engine.ChatList, limit int) error {
	if list.Kind == engine.ListFolder {
		return nil
	}
	chats, err := e.db.ListChats(limit)
	if err != nil {
		return fmt.Errorf("list chats: %w", err)
	}
	for i := range chats {
		if chats[i].Archived != (list == engine.ArchiveList) {
			continue
		}
		chat, err := e.toChat(&chats[i])
		if err != nil {
			return err
		}
		e.markAnnounced(chat.ID)
		e.emit(engine.UpdateNewChat{Chat: chat})
	}
	return nil
}

func (e *Engine) openChat(chatID int64) error {
	jid, err := e.jidOf(chatID)
	if err != nil {
		return err
	}
	c, err := e.db.GetChat(jid)
	if err != nil || c == nil || (c.UnreadCount == 0 && !c.MarkedUnread) {
		return err
	}
	return e.markUnread(chatID, false)
}

func (e *Engine) getChat(chatID int64) (*engine.Chat, error) {
	jid, err := e.jidOf(chatID)
	if err != nil {
		return nil, err
	}
	chat, _, err := e.loadChat(jid)
	if err != nil {
		return nil, err
	}
	if chat == nil {
		return nil, engine.Errorf(404, "chat %d not found", chatID)
	}
	return chat, nil
}

func (e *Engine) history(chatID, fromID int64, limit int) (engine.Messages, error) {
	jid, err := e.jidOf(chatID)
	if err != nil {
		return engine.Messages{}, err
	}
	rows, err := e.db.ListMessages(jid, fromID, limit)
	if err != nil {
		return engine.Messages{}, fmt.Errorf("list messages: %w", err)
	}
	out := engine.Messages{TotalCount: len(rows), Messages: make([]engine.Message, 0, len(rows))}
	for i := range rows {
		m, err := e.toMessage(&rows[i])
		if err != nil {
			return engine.Messages{}, err
		}
		out.Messages = append(out.Messages, m)
	}
	return out, nil
}

func (e *Engine) sendMessage(ctx context.Context, r engine.SendMessage) error {
	if r.ThreadID != 0 {
		return engine.Errorf(400, "threads are not supported by WhatsApp")
	}
	jid, err := e.jidOf(r.ChatID)
	if err != nil {
		return err
	}
	switch in := r.Content.(type) {
	case engine.InputText:
		if e.sender == nil {
			return engine.Errorf(503, "outbox not running")
		}
		_, err := e.sender.Queue(jid, in.Text)
		return err
	case engine.InputMedia:
		return e.sendMedia(ctx, jid, in)
	default:
		return engine.Errorf(400, "unsupported content %T", r.Content)
	}
}

func (e *Engine) deleteHistory(chatID int64, remove bool) error {
	jid, err := e.jidOf(chatID)
	if err != nil {
		return err
	}
	e.removeChatFiles(jid)
	if err := e.db.ClearHistory(jid, remove); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	if remove {
		e.withdrawChat(jid)
		e.mu.Lock()
		delete(e.announced, chatID)
		e.mu.Unlock()
		return nil
	}
	e.updateChat(jid, nil, func(c *engine.Chat, sc *store.Chat) {
		e.emitLastMessage(c, sc)
		e.emitReadState(c, sc)
	})
	return nil
}

func (e *Engine) togglePinned(ctx context.Context, chatID int64, pinned bool) error {
	jid, err := e.jidOf(chatID)
	if err != nil {
		return err
	}
	if err := e.db.SetChatPinned(jid, pinned); err != nil {
		return fmt.Errorf("set pinned: %w", err)
	}
	if e.connected() {
		if target, err := types.ParseJID(jid); err == nil {
			if err := e.client.SendAppState(ctx, appstate.BuildPin(target, pinned)); err != nil {
				e.logger.Warn("sync pin to phone", zap.String("chat", jid), zap.Error(err))
			}
		}
	}
	e.updateChat(jid, nil, e.emitPositions)
	return nil
}

func (e *Engine) markUnread(chatID int64, unread bool) error {
	jid, err := e.jidOf(chatID)
	if err != nil {
		return err
	}
	e.updateChat(jid, func() error { return e.db.SetChatMarkedUnread(jid, unread) }, e.emitReadState)
	return nil
}

func (e *Engine) leaveChat(ctx context.Context, chatID int64) error {
	jid, err := e.jidOf(chatID)
	if err != nil {
		return err
	}
	if chatKind(jid) != store.KindGroup {
		return engine.Errorf(400, "only groups can be left")
	}
	if !e.connected() {
		return engine.Errorf(503, "not connected")
	}
	group, err := types.ParseJID(jid)
	if err != nil {
		return engine.Errorf(400, "bad group id: %v", err)
	}
	if err := e.client.LeaveGroup(ctx, group); err != nil {
		return fmt.Errorf("leave group: %w", err)
	}
	return e.deleteHistory(chatID, true)
}

func (e *Engine) setBlocked(ctx context.Context, userID int64, blocked bool) error {
	jid, err := e.jidOf(userID)
	if err != nil {
		return err
	}
	if !e.connected() {
		return engine.Errorf(503, "not connected")
	}
	user, err := types.ParseJID(jid)
	if err != nil {
		return engine.Errorf(400, "bad user id: %v", err)
	}
	action := events.BlocklistChangeActionUnblock
	if blocked {
		action = events.BlocklistChangeActionBlock
	}
	if _, err := e.client.UpdateBlocklist(ctx, user, action); err != nil {
		return fmt.Errorf("update blocklist: %w", err)
	}
	return nil
}

func (e *Engine) searchChats(query string, limit int) (engine.Chats, error) {
	found, err := e.db.SearchChats(query, limit)
	if err != nil {
		return engine.Chats{}, fmt.Errorf("search chats: %w", err)
	}
	out := engine.Chats{IDs: make([]int64, 0, len(found))}
	for i := range found {
		chat, err := e.toChat(&found[i])
		if err != nil {
			return engine.Chats{}, err
		}
		if e.markAnnounced(chat.ID) {
			e.emit(engine.UpdateNewChat{Chat: chat})
		}
		out.IDs = append(out.IDs, chat.ID)
	}
	return out, nil
}

func (e *Engine) getUser(userID int64) (engine.User, error) {
	jid, err := e.jidOf(userID)
	if err != nil {
		return engine.User{}, err
	}
	contact, err := e.db.GetContact(jid)
	if err != nil {
		return engine.User{}, err
	}
	return toUser(userID, jid, contact), nil
}
