package cache

import (
	"cmp"
	"slices"

	"github.com/notioff/telesuper/internal/engine"
)

// SelectorKind enumerates chat list selections.
type SelectorKind int

const (
	SelectAll SelectorKind = iota
	SelectPersonal
	SelectGroups
	SelectChannels
	SelectFolder
)

// Selector picks the visible chat list: the whole main list, a client-side
// partition of it by chat type, or an engine folder.
type Selector struct {
	Kind     SelectorKind
	FolderID int32
}

var (
	AllChats      = Selector{Kind: SelectAll}
	PersonalChats = Selector{Kind: SelectPersonal}
	GroupChats    = Selector{Kind: SelectGroups}
	ChannelChats  = Selector{Kind: SelectChannels}
)

// Folder selects an engine folder.
func Folder(id int32) Selector {
	return Selector{Kind: SelectFolder, FolderID: id}
}

// List returns the engine list the selector draws from.
func (s Selector) List() engine.ChatList {
	if s.Kind == SelectFolder {
		return engine.FolderList(s.FolderID)
	}
	return engine.MainList
}

// Matches reports whether a chat of type t belongs to the selection.
func (s Selector) Matches(t engine.ChatType) bool {
	switch s.Kind {
	case SelectPersonal:
		return t == engine.ChatPrivate || t == engine.ChatSecret
	case SelectGroups:
		return t == engine.ChatBasicGroup || t == engine.ChatSupergroup
	case SelectChannels:
		return t == engine.ChatChannel
	default:
		return true
	}
}

// Label is the display name of a virtual selector.
func (s Selector) Label() string {
	switch s.Kind {
	case SelectAll:
		return "All"
	case SelectPersonal:
		return "Personal"
	case SelectGroups:
		return "Groups"
	case SelectChannels:
		return "Channels"
	default:
		return "Folder"
	}
}

// visibleChats derives the visible chat sequence from the chat map. It is a
// pure function of its inputs and returns clones sorted by descending order.
func visibleChats(chats map[int64]*engine.Chat, sel Selector) []engine.Chat {
	type entry struct {
		chat  *engine.Chat
		order int64
	}
	list := sel.List()
	entries := make([]entry, 0, len(chats))
	for _, c := range chats {
		pos, ok := c.Position(list)
		if !ok || pos.Order == engine.OrderNotInList {
			continue
		}
		if !sel.Matches(c.Type) {
			continue
		}
		entries = append(entries, entry{chat: c, order: pos.Order})
	}
	slices.SortFunc(entries, func(a, b entry) int {
		return cmp.Compare(b.order, a.order)
	})

	out := make([]engine.Chat, len(entries))
	for i, e := range entries {
		out[i] = *e.chat.Clone()
	}
	return out
}
