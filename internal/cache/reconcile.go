package cache

import (
	"fmt"
	"os"
	"slices"

	"go.uber.org/zap"

	"github.com/notioff/telesuper/internal/bus"
	"github.com/notioff/telesuper/internal/engine"
)

// initialChatLoad is the number of main-list chats requested once ready.
const initialChatLoad = 100

// Apply folds one engine update into the cache. Updates are applied in the
// order they are passed; the update loop calls Apply sequentially.
func (s *Store) Apply(u engine.Update) {
	switch u := u.(type) {
	case engine.UpdateNewChat:
		if u.Chat == nil {
			return
		}
		s.mu.Lock()
		s.chats[u.Chat.ID] = u.Chat.Clone()
		s.publishChatsLocked()
		s.mu.Unlock()

	case engine.UpdateChatPosition:
		s.mutateChat(u.ChatID, func(c *engine.Chat) {
			c.Positions = replacePosition(c.Positions, u.Position)
		})

	case engine.UpdateChatLastMessage:
		s.mutateChat(u.ChatID, func(c *engine.Chat) {
			c.LastMessage = nil
			if u.LastMessage != nil {
				m := u.LastMessage.Clone()
				c.LastMessage = &m
			}
			c.Positions = append([]engine.ChatPosition(nil), u.Positions...)
		})

	case engine.UpdateChatTitle:
		s.mutateChat(u.ChatID, func(c *engine.Chat) { c.Title = u.Title })

	case engine.UpdateChatReadInbox:
		s.mutateChat(u.ChatID, func(c *engine.Chat) { c.UnreadCount = u.UnreadCount })

	case engine.UpdateChatMarkedUnread:
		s.mutateChat(u.ChatID, func(c *engine.Chat) { c.IsMarkedAsUnread = u.Unread })

	case engine.UpdateNewMessage:
		s.mu.Lock()
		if s.isOpen && s.active.accepts(u.Message) {
			s.window = mergeMessages([]engine.Message{u.Message}, s.window)
			s.publishMessagesLocked()
		}
		s.mu.Unlock()

	case engine.UpdateDeleteMessages:
		if !u.IsPermanent {
			return
		}
		s.mu.Lock()
		if s.isOpen && s.active.chatID == u.ChatID {
			before := len(s.window)
			s.window = slices.DeleteFunc(slices.Clone(s.window), func(m engine.Message) bool {
				return slices.Contains(u.MessageIDs, m.ID)
			})
			if len(s.window) != before {
				s.publishMessagesLocked()
			}
		}
		s.mu.Unlock()

	case engine.UpdateMessageReactions:
		s.mu.Lock()
		if s.isOpen && s.active.chatID == u.ChatID {
			window := slices.Clone(s.window)
			for i := range window {
				if window[i].ID == u.MessageID {
					window[i].Reactions = append([]engine.Reaction(nil), u.Reactions...)
					s.window = window
					s.publishMessagesLocked()
					break
				}
			}
		}
		s.mu.Unlock()

	case engine.UpdateFile:
		s.applyFile(u.File)

	case engine.UpdateAuthorizationState:
		s.applyAuth(u.State)

	case engine.UpdateUserStatus:
		s.mu.Lock()
		s.users[u.UserID] = u.Status
		s.mu.Unlock()
		s.bus.Emit(bus.CacheUsers, u.UserID)

	case engine.UpdateChatFolders:
		s.mu.Lock()
		s.folders = append([]engine.ChatFolder(nil), u.Folders...)
		s.publishFoldersLocked()
		if s.selector.Kind == SelectFolder && !slices.ContainsFunc(s.folders, func(f engine.ChatFolder) bool {
			return f.ID == s.selector.FolderID
		}) {
			s.selector = AllChats
			s.publishChatsLocked()
		}
		s.mu.Unlock()
		s.bus.Emit(bus.CacheFolders, len(u.Folders))

	case engine.UpdateAgeVerification:
		bot := u.BotUsername
		s.ageBot.Store(&bot)
		s.bus.Emit(bus.CachePrivacy, bot)

	default:
		s.logger.Debug("unhandled update", zap.String("type", fmt.Sprintf("%T", u)))
	}
}

// mutateChat applies fn to a known chat and recomputes the visible list.
// Updates for unknown chats are dropped.
func (s *Store) mutateChat(chatID int64, fn func(*engine.Chat)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chats[chatID]
	if !ok {
		s.logger.Debug("update for unknown chat", zap.Int64("chat_id", chatID))
		return
	}
	fn(c)
	s.publishChatsLocked()
}

// replacePosition swaps the entry for pos.List, or removes it when pos
// carries the sentinel order. The input slice is not modified.
func replacePosition(positions []engine.ChatPosition, pos engine.ChatPosition) []engine.ChatPosition {
	out := make([]engine.ChatPosition, 0, len(positions)+1)
	for _, p := range positions {
		if p.List != pos.List {
			out = append(out, p)
		}
	}
	if pos.Order != engine.OrderNotInList {
		out = append(out, pos)
	}
	return out
}

func (s *Store) applyFile(f engine.File) {
	s.mu.Lock()
	s.files[f.ID] = f
	s.publishFilesLocked()
	s.mu.Unlock()
	s.bus.Emit(bus.CacheFiles, f.ID)

	if s.notifier == nil {
		return
	}
	title := fmt.Sprintf("File %d", f.ID)
	switch {
	case f.Local.IsDownloadingActive:
		s.notifier.DownloadProgress(f.ID, f.Progress(), title)
	case f.Local.IsDownloadingCompleted && f.Local.DownloadedSize > 0:
		s.notifier.DownloadComplete(f.ID, title)
	}
}

func (s *Store) applyAuth(state engine.AuthState) {
	change := s.auth.Set(state)
	if !change.Expected() {
		s.logger.Warn("unexpected auth transition",
			zap.Stringer("from", change.From.Kind),
			zap.Stringer("to", change.To.Kind))
	} else {
		s.logger.Info("auth state", zap.Stringer("state", state.Kind))
	}

	switch state.Kind {
	case engine.AuthWaitCredentials:
		s.sendStoredCredentials()
	case engine.AuthReady:
		s.fire(engine.LoadChats{List: engine.MainList, Limit: initialChatLoad})
	case engine.AuthClosed:
		s.reset()
	}
}

func (s *Store) sendStoredCredentials() {
	if s.creds == nil {
		return
	}
	creds, err := s.creds.Load()
	if err != nil {
		s.logger.Warn("load credentials", zap.Error(err))
		return
	}
	if !creds.Valid() {
		return
	}
	s.fire(engine.SetCredentials{APIID: creds.APIID, APIHash: creds.APIHash, DatabaseDir: s.dataDir})
}

// reset clears all local state after the engine closed the session, wipes
// the stored credentials and returns the projection to credential entry.
func (s *Store) reset() {
	s.mu.Lock()
	s.chats = make(map[int64]*engine.Chat)
	s.files = make(map[int32]engine.File)
	s.users = make(map[int64]engine.UserStatus)
	s.folders = nil
	s.selector = AllChats
	s.window = nil
	s.active = windowKey{}
	s.isOpen = false
	s.publishChatsLocked()
	s.publishMessagesLocked()
	s.publishFilesLocked()
	s.publishFoldersLocked()
	s.mu.Unlock()
	s.bus.Emit(bus.CacheFiles, int32(0))
	s.bus.Emit(bus.CacheFolders, 0)

	if s.creds != nil {
		if err := s.creds.Clear(); err != nil {
			s.logger.Warn("clear credentials", zap.Error(err))
		}
	}
	s.detachEngine()
	if s.dataDir != "" {
		if err := os.RemoveAll(s.dataDir); err != nil {
			s.logger.Warn("remove engine data", zap.String("dir", s.dataDir), zap.Error(err))
		}
	}
	s.auth.Set(engine.AuthState{Kind: engine.AuthWaitCredentials})
}
