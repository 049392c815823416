package views

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/notioff/telesuper/internal/engine"
	"github.com/notioff/telesuper/internal/tui/ui"
)

// ConversationList is the main chat list view.
type ConversationList struct {
	*tview.Table
	theme  *ui.Theme
	chats  []engine.Chat
	global []engine.Chat
	list   engine.ChatList
}

// NewConversationList creates a new conversation list table.
func NewConversationList(theme *ui.Theme) *ConversationList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	table.SetTitle(" Chats ")
	table.SetTitleColor(theme.TitleColor)

	return &ConversationList{
		Table: table,
		theme: theme,
		list:  engine.MainList,
	}
}

// Name implements Component.
func (cl *ConversationList) Name() string { return "Chats" }

// Init implements Component.
func (cl *ConversationList) Init() {}

// Start implements Component.
func (cl *ConversationList) Start() {}

// Stop implements Component.
func (cl *ConversationList) Stop() {}

// Hints implements Component.
func (cl *ConversationList) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Open"},
		{Key: "/", Description: "Search"},
		{Key: "1-4", Description: "All/DM/Groups/Channels", Numeric: true},
		{Key: "f", Description: "Next folder"},
	}
}

// Update replaces the rows. label names the selected list; query is the
// active search text. Global search results follow the local matches.
func (cl *ConversationList) Update(chats, global []engine.Chat, list engine.ChatList, label, query string) {
	selected, hadSelection := cl.SelectedChat()

	cl.chats = chats
	cl.global = global
	cl.list = list
	cl.render()

	title := fmt.Sprintf(" Chats: %s (%d) ", label, len(chats))
	if query != "" {
		title = fmt.Sprintf(" Chats: %s (%d) search: %s ", label, len(chats), tview.Escape(query))
	}
	cl.SetTitle(title)

	if hadSelection {
		cl.selectID(selected.ID)
	}
}

func (cl *ConversationList) render() {
	cl.Clear()

	headers := []struct {
		text string
		exp  int
	}{
		{" NAME", 1},
		{" LAST MESSAGE", 2},
		{" TIME", 0},
		{" TYPE", 0},
	}
	for col, h := range headers {
		cl.SetCell(0, col, tview.NewTableCell(h.text).
			SetSelectable(false).
			SetTextColor(cl.theme.TableHeaderFg).
			SetBackgroundColor(cl.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(h.exp))
	}

	row := 1
	for _, chat := range cl.chats {
		cl.setRow(row, chat, false)
		row++
	}
	for _, chat := range cl.global {
		cl.setRow(row, chat, true)
		row++
	}
}

func (cl *ConversationList) setRow(row int, chat engine.Chat, global bool) {
	name := chat.Title
	if name == "" {
		name = fmt.Sprint(chat.ID)
	}
	var badge string
	if pos, ok := chat.Position(cl.list); ok && pos.IsPinned {
		badge = "^ "
	}
	switch {
	case chat.UnreadCount > 0:
		badge += fmt.Sprintf("(%d) ", chat.UnreadCount)
	case chat.IsMarkedAsUnread:
		badge += "(*) "
	}

	var preview string
	var date int64
	if chat.LastMessage != nil {
		preview = engine.Summary(chat.LastMessage.Content)
		date = chat.LastMessage.Date
	}
	kind := chatTypeLabel(chat.Type)
	color := cl.theme.FgColor
	if global {
		kind = "GLOBAL"
		color = cl.theme.CounterColor
	}

	cl.SetCell(row, 0, tview.NewTableCell(" "+tview.Escape(badge+sanitizeForTerminal(name))).SetExpansion(1).SetTextColor(color))
	cl.SetCell(row, 1, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(firstLine(preview)))).SetExpansion(2).SetTextColor(color))
	cl.SetCell(row, 2, tview.NewTableCell(formatTimestamp(date)).SetTextColor(color).SetAlign(tview.AlignRight))
	cl.SetCell(row, 3, tview.NewTableCell(kind).SetTextColor(color).SetAlign(tview.AlignRight))
}

// SelectedChat returns the chat under the cursor.
func (cl *ConversationList) SelectedChat() (engine.Chat, bool) {
	row, _ := cl.GetSelection()
	return cl.ChatByIndex(row)
}

// ChatByIndex returns the Nth row (1-based), counting global results after
// the local ones.
func (cl *ConversationList) ChatByIndex(n int) (engine.Chat, bool) {
	idx := n - 1
	switch {
	case idx < 0:
		return engine.Chat{}, false
	case idx < len(cl.chats):
		return cl.chats[idx], true
	case idx < len(cl.chats)+len(cl.global):
		return cl.global[idx-len(cl.chats)], true
	default:
		return engine.Chat{}, false
	}
}

func (cl *ConversationList) selectID(id int64) {
	for i, c := range cl.chats {
		if c.ID == id {
			cl.Select(i+1, 0)
			return
		}
	}
	for i, c := range cl.global {
		if c.ID == id {
			cl.Select(len(cl.chats)+i+1, 0)
			return
		}
	}
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i] + " ..."
		}
	}
	return s
}
