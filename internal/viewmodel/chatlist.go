package viewmodel

import (
	"context"
	"slices"
	"strings"
	"sync"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/notioff/telesuper/internal/cache"
	"github.com/notioff/telesuper/internal/engine"
)

const (
	minGlobalQuery    = 2
	globalSearchLimit = 20
)

// ChatList is the chat list screen: the visible chats narrowed by a local
// title filter, plus global search results for the same query.
type ChatList struct {
	store  *cache.Store
	logger *zap.Logger

	mu      sync.Mutex
	query   string
	results []engine.Chat
}

func NewChatList(store *cache.Store, logger *zap.Logger) *ChatList {
	return &ChatList{store: store, logger: logger}
}

// Chats returns the visible chats whose title contains the query.
func (v *ChatList) Chats() []engine.Chat {
	v.mu.Lock()
	q := v.query
	v.mu.Unlock()
	return filterByTitle(v.store.Chats(), q)
}

func filterByTitle(chats []engine.Chat, query string) []engine.Chat {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return chats
	}
	out := make([]engine.Chat, 0, len(chats))
	for _, c := range chats {
		if strings.Contains(strings.ToLower(c.Title), q) {
			out = append(out, c)
		}
	}
	return out
}

// Query returns the current search text.
func (v *ChatList) Query() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.query
}

// Search sets the query. Queries of two or more characters also search the
// engine; chats already matched locally are left out of those results.
func (v *ChatList) Search(ctx context.Context, query string) {
	v.mu.Lock()
	v.query = query
	v.results = nil
	v.mu.Unlock()

	trimmed := strings.TrimSpace(query)
	if utf8.RuneCountInString(trimmed) < minGlobalQuery {
		return
	}
	found := v.store.SearchGlobal(ctx, trimmed, globalSearchLimit)
	local := filterByTitle(v.store.Chats(), trimmed)
	found = slices.DeleteFunc(found, func(c engine.Chat) bool {
		return slices.ContainsFunc(local, func(l engine.Chat) bool { return l.ID == c.ID })
	})

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.query != query {
		return
	}
	v.results = found
}

// SearchResults returns global matches for the current query.
func (v *ChatList) SearchResults() []engine.Chat {
	v.mu.Lock()
	defer v.mu.Unlock()
	return slices.Clone(v.results)
}

func (v *ChatList) Folders() []engine.ChatFolder { return v.store.Folders() }
func (v *ChatList) Selector() cache.Selector     { return v.store.Selector() }
func (v *ChatList) Select(sel cache.Selector)    { v.store.SelectChatList(sel) }

// NextFolder cycles through the engine folders, then back to all chats.
func (v *ChatList) NextFolder() cache.Selector {
	folders := v.store.Folders()
	cur := v.store.Selector()
	next := cache.AllChats
	if len(folders) > 0 {
		i := -1
		if cur.Kind == cache.SelectFolder {
			i = slices.IndexFunc(folders, func(f engine.ChatFolder) bool { return f.ID == cur.FolderID })
		}
		if i+1 < len(folders) {
			next = cache.Folder(folders[i+1].ID)
		}
	}
	v.store.SelectChatList(next)
	return next
}

// SelectorLabel names the current selection, using folder names.
func (v *ChatList) SelectorLabel() string {
	sel := v.store.Selector()
	if sel.Kind != cache.SelectFolder {
		return sel.Label()
	}
	for _, f := range v.store.Folders() {
		if f.ID == sel.FolderID {
			return f.Name
		}
	}
	return sel.Label()
}

func (v *ChatList) TogglePin(c engine.Chat) {
	pos, _ := c.Position(v.store.Selector().List())
	v.store.PinChat(c.ID, !pos.IsPinned)
}

func (v *ChatList) ToggleUnread(c engine.Chat) {
	v.store.MarkUnread(c.ID, !(c.IsMarkedAsUnread || c.UnreadCount > 0))
}

func (v *ChatList) ClearHistory(chatID int64) { v.store.ClearHistory(chatID, false) }
func (v *ChatList) Delete(chatID int64)       { v.store.DeleteChat(chatID) }
func (v *ChatList) Block(chatID int64)        { v.store.BlockChat(chatID) }
func (v *ChatList) LogOut()                   { v.store.LogOut() }
