package cache

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/notioff/telesuper/internal/credstore"
	"github.com/notioff/telesuper/internal/engine"
)

// fire sends req without waiting; a failure is logged and otherwise ignored.
func (s *Store) fire(req engine.Request) {
	eng := s.engine()
	if eng == nil {
		s.logger.Warn("request dropped, engine not running", zap.String("request", req.Kind()))
		return
	}
	ch := eng.Send(req)
	go func() {
		resp, ok := <-ch
		if !ok {
			return
		}
		if resp.Err != nil {
			s.logFailure(req, resp.Err)
		}
	}()
}

func (s *Store) logFailure(req engine.Request, err error) {
	fields := []zap.Field{zap.String("request", req.Kind()), zap.Error(err)}
	var engErr *engine.Error
	if errors.As(err, &engErr) {
		fields = append(fields, zap.Int("code", engErr.Code))
	}
	s.logger.Warn("engine request failed", fields...)
}

// errorText is the user-facing text of an engine failure.
func errorText(err error) string {
	var engErr *engine.Error
	if errors.As(err, &engErr) {
		return engErr.Message
	}
	return err.Error()
}

// SetCredentials stores the application credentials and hands them to the
// engine, creating a fresh engine if the previous one was closed.
func (s *Store) SetCredentials(apiID int32, apiHash string) error {
	if s.creds != nil {
		if err := s.creds.Save(credstore.Credentials{APIID: apiID, APIHash: apiHash}); err != nil {
			return err
		}
	}

	created, err := s.ensureEngine()
	if err != nil || created {
		// A new engine asks for credentials itself; the stored ones answer.
		return err
	}

	if s.auth.Current().Kind == engine.AuthWaitCredentials {
		s.fire(engine.SetCredentials{APIID: apiID, APIHash: apiHash, DatabaseDir: s.dataDir})
	}
	return nil
}

// Reconnect builds a fresh engine after a full logout. Engines that need
// no credentials start a new login on their own.
func (s *Store) Reconnect() error {
	_, err := s.ensureEngine()
	return err
}

func (s *Store) ensureEngine() (bool, error) {
	s.engMu.Lock()
	defer s.engMu.Unlock()
	if s.eng != nil {
		return false, nil
	}
	if s.factory == nil {
		return false, ErrNoEngine
	}
	eng, err := s.factory()
	if err != nil {
		return false, err
	}
	s.eng = eng
	s.attachLocked()
	return true, nil
}

// SubmitPhone sends the phone number for login.
func (s *Store) SubmitPhone(phone string) {
	s.fire(engine.SetPhoneNumber{Phone: phone})
}

// SubmitCode checks a login code. A failure is also published as LastError.
func (s *Store) SubmitCode(ctx context.Context, code string) error {
	return s.checkAuth(ctx, engine.CheckCode{Code: code})
}

// SubmitPassword checks the two-step password. A failure is also published
// as LastError.
func (s *Store) SubmitPassword(ctx context.Context, password string) error {
	return s.checkAuth(ctx, engine.CheckPassword{Password: password})
}

func (s *Store) checkAuth(ctx context.Context, req engine.Request) error {
	s.setLastError("")
	_, err := engine.Call[engine.Ok](ctx, s.engine(), req)
	if err != nil {
		s.logFailure(req, err)
		s.setLastError("Error: " + errorText(err))
	}
	return err
}

// LogOut asks the engine to end the session. Local state is cleared once
// the engine reports the session closed.
func (s *Store) LogOut() {
	s.fire(engine.LogOut{})
}

// SelectChatList changes the selector and recomputes the visible list.
func (s *Store) SelectChatList(sel Selector) {
	s.mu.Lock()
	s.selector = sel
	s.publishChatsLocked()
	s.mu.Unlock()
	if sel.Kind == SelectFolder {
		s.fire(engine.LoadChats{List: sel.List(), Limit: initialChatLoad})
	}
}

// OpenChat makes chat (and thread, when non-zero) the active window. The
// previous chat is closed and the window cleared before the engine is told.
func (s *Store) OpenChat(chatID, threadID int64) {
	s.mu.Lock()
	prev, wasOpen := s.active, s.isOpen
	s.active = windowKey{chatID: chatID, threadID: threadID}
	s.isOpen = true
	s.window = nil
	s.publishMessagesLocked()
	s.mu.Unlock()

	if wasOpen && prev.chatID != chatID {
		s.fire(engine.CloseChat{ChatID: prev.chatID})
	}
	s.fire(engine.OpenChat{ChatID: chatID})
}

// CloseChat closes the window if it is still the active one.
func (s *Store) CloseChat(chatID, threadID int64) {
	s.mu.Lock()
	if !s.isOpen || s.active != (windowKey{chatID: chatID, threadID: threadID}) {
		s.mu.Unlock()
		return
	}
	s.isOpen = false
	s.active = windowKey{}
	s.window = nil
	s.publishMessagesLocked()
	s.mu.Unlock()
	s.fire(engine.CloseChat{ChatID: chatID})
}

// LoadMessages fetches a history page older than fromID (0 for the newest)
// and merges it into the window. It returns the number of messages in the
// page; failures and responses for a window that is no longer active count
// as zero.
func (s *Store) LoadMessages(ctx context.Context, chatID, threadID, fromID int64, limit int) int {
	var req engine.Request = engine.GetChatHistory{ChatID: chatID, FromMessageID: fromID, Limit: limit}
	if threadID != 0 {
		req = engine.GetThreadHistory{ChatID: chatID, ThreadID: threadID, FromMessageID: fromID, Limit: limit}
	}
	page, err := engine.Call[engine.Messages](ctx, s.engine(), req)
	if err != nil {
		s.logFailure(req, err)
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key := windowKey{chatID: chatID, threadID: threadID}
	if !s.isOpen || s.active != key {
		s.logger.Debug("discarding stale history page",
			zap.Int64("chat_id", chatID), zap.Int64("thread_id", threadID))
		return 0
	}
	var base []engine.Message
	if fromID != 0 {
		base = s.window
	}
	s.window = mergeMessages(base, page.Messages)
	s.publishMessagesLocked()
	return len(page.Messages)
}

// SendText sends a text message. Blank text is ignored.
func (s *Store) SendText(chatID, threadID int64, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	s.fire(engine.SendMessage{ChatID: chatID, ThreadID: threadID, Content: engine.InputText{Text: text}})
}

// SendMedia sends a local file; the media kind follows the MIME type.
func (s *Store) SendMedia(chatID, threadID int64, path, mimeType, caption string) {
	s.fire(engine.SendMessage{
		ChatID:   chatID,
		ThreadID: threadID,
		Content: engine.InputMedia{
			Path:     path,
			MimeType: mimeType,
			Kind:     MediaKindOf(mimeType),
			Caption:  caption,
		},
	})
}

// MediaKindOf maps a MIME type to the outgoing media kind.
func MediaKindOf(mimeType string) engine.MediaKind {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return engine.MediaPhoto
	case strings.HasPrefix(mimeType, "video/"):
		return engine.MediaVideo
	case strings.HasPrefix(mimeType, "audio/"):
		return engine.MediaAudio
	default:
		return engine.MediaDocument
	}
}

// ChatInfo returns a chat from the cache, fetching and caching it on a miss.
// It returns nil when the engine cannot provide the chat.
func (s *Store) ChatInfo(ctx context.Context, chatID int64) *engine.Chat {
	s.mu.Lock()
	if c, ok := s.chats[chatID]; ok {
		cp := c.Clone()
		s.mu.Unlock()
		return cp
	}
	s.mu.Unlock()

	req := engine.GetChat{ChatID: chatID}
	chat, err := engine.Call[*engine.Chat](ctx, s.engine(), req)
	if err != nil {
		s.logFailure(req, err)
		return nil
	}
	if chat == nil {
		return nil
	}
	s.insertChat(chat)
	return chat.Clone()
}

func (s *Store) insertChat(chat *engine.Chat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chats[chat.ID]; ok {
		return
	}
	s.chats[chat.ID] = chat.Clone()
	s.publishChatsLocked()
}

// DeleteChat removes the chat from the account.
func (s *Store) DeleteChat(chatID int64) {
	s.fire(engine.DeleteChat{ChatID: chatID})
}

// PinChat pins or unpins the chat in the list the selector draws from.
func (s *Store) PinChat(chatID int64, pinned bool) {
	s.fire(engine.ToggleChatPinned{List: s.Selector().List(), ChatID: chatID, IsPinned: pinned})
}

// MarkUnread sets the manual unread mark.
func (s *Store) MarkUnread(chatID int64, unread bool) {
	s.fire(engine.ToggleChatMarkedUnread{ChatID: chatID, Unread: unread})
}

// ClearHistory deletes the chat history for the current user.
func (s *Store) ClearHistory(chatID int64, removeFromList bool) {
	s.fire(engine.DeleteChatHistory{ChatID: chatID, RemoveFromChatList: removeFromList})
}

// BlockChat blocks the peer of a private chat, or leaves any other chat.
func (s *Store) BlockChat(chatID int64) {
	s.mu.Lock()
	c, ok := s.chats[chatID]
	var userID int64
	private := false
	if ok {
		userID = c.UserID
		private = (c.Type == engine.ChatPrivate || c.Type == engine.ChatSecret) && userID != 0
	}
	s.mu.Unlock()

	if private {
		s.fire(engine.SetUserBlocked{UserID: userID, Blocked: true})
		return
	}
	s.fire(engine.LeaveChat{ChatID: chatID})
}

// DownloadFile requests a download; progress arrives as file updates.
func (s *Store) DownloadFile(fileID int32, priority int) {
	s.fire(engine.DownloadFile{FileID: fileID, Priority: priority})
}

// ResolveUsername finds a public chat by username and caches it.
func (s *Store) ResolveUsername(ctx context.Context, username string) (int64, bool) {
	req := engine.SearchPublicChat{Username: strings.TrimPrefix(username, "@")}
	chat, err := engine.Call[*engine.Chat](ctx, s.engine(), req)
	if err != nil || chat == nil {
		if err != nil {
			s.logFailure(req, err)
		}
		return 0, false
	}
	s.insertChat(chat)
	return chat.ID, true
}

// SearchGlobal searches chats known to the engine beyond the loaded list.
func (s *Store) SearchGlobal(ctx context.Context, query string, limit int) []engine.Chat {
	req := engine.SearchChats{Query: query, Limit: limit}
	found, err := engine.Call[engine.Chats](ctx, s.engine(), req)
	if err != nil {
		s.logFailure(req, err)
		return nil
	}
	out := make([]engine.Chat, 0, len(found.IDs))
	for _, id := range found.IDs {
		if c := s.ChatInfo(ctx, id); c != nil {
			out = append(out, *c)
		}
	}
	return out
}

// StorageStatistics returns local storage usage, or nil on failure.
func (s *Store) StorageStatistics(ctx context.Context, chatLimit int) *engine.StorageStatistics {
	req := engine.GetStorageStatistics{ChatLimit: chatLimit}
	stats, err := engine.Call[engine.StorageStatistics](ctx, s.engine(), req)
	if err != nil {
		s.logFailure(req, err)
		return nil
	}
	return &stats
}

// OptimizeStorage frees local storage and returns the remaining usage.
func (s *Store) OptimizeStorage(ctx context.Context, req engine.OptimizeStorage) *engine.StorageStatistics {
	stats, err := engine.Call[engine.StorageStatistics](ctx, s.engine(), req)
	if err != nil {
		s.logFailure(req, err)
		return nil
	}
	return &stats
}

// User fetches a user profile, or nil on failure.
func (s *Store) User(ctx context.Context, userID int64) *engine.User {
	req := engine.GetUser{UserID: userID}
	u, err := engine.Call[engine.User](ctx, s.engine(), req)
	if err != nil {
		s.logFailure(req, err)
		return nil
	}
	return &u
}

// ForumTopic fetches one forum topic, or nil on failure.
func (s *Store) ForumTopic(ctx context.Context, chatID, threadID int64) *engine.ForumTopic {
	req := engine.GetForumTopic{ChatID: chatID, ThreadID: threadID}
	t, err := engine.Call[engine.ForumTopic](ctx, s.engine(), req)
	if err != nil {
		s.logFailure(req, err)
		return nil
	}
	return &t
}

// ForumTopics lists the topics of a forum chat.
func (s *Store) ForumTopics(ctx context.Context, chatID int64, limit int) []engine.ForumTopic {
	req := engine.GetForumTopics{ChatID: chatID, Limit: limit}
	topics, err := engine.Call[engine.ForumTopics](ctx, s.engine(), req)
	if err != nil {
		s.logFailure(req, err)
		return nil
	}
	return topics.Topics
}

// GetOption reads a boolean engine option; failures read as false.
func (s *Store) GetOption(ctx context.Context, name string) bool {
	req := engine.GetOption{Name: name}
	v, err := engine.Call[engine.OptionValue](ctx, s.engine(), req)
	if err != nil {
		s.logFailure(req, err)
		return false
	}
	return v.Value
}

// SetOption writes a boolean engine option.
func (s *Store) SetOption(name string, value bool) {
	s.fire(engine.SetOption{Name: name, Value: value})
}
