package views

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"

	"github.com/notioff/telesuper/internal/engine"
	"github.com/notioff/telesuper/internal/tui/ui"
)

// ConversationInfo displays detailed information about a conversation.
type ConversationInfo struct {
	*tview.TextView
	theme *ui.Theme
}

// NewConversationInfo creates a new conversation info view.
func NewConversationInfo(theme *ui.Theme) *ConversationInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Chat Details ")
	tv.SetTitleColor(theme.TitleColor)

	return &ConversationInfo{
		TextView: tv,
		theme:    theme,
	}
}

// Name implements Component.
func (ci *ConversationInfo) Name() string { return "Details" }

// Init implements Component.
func (ci *ConversationInfo) Init() {}

// Start implements Component.
func (ci *ConversationInfo) Start() {}

// Stop implements Component.
func (ci *ConversationInfo) Stop() {}

// Hints implements Component.
func (ci *ConversationInfo) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Esc", Description: "Back"},
	}
}

// Update renders chat details. status is the peer's presence for private
// chats, when known.
func (ci *ConversationInfo) Update(chat *engine.Chat, status *engine.UserStatus) {
	ci.Clear()
	if chat == nil {
		return
	}

	fg := colorHex(ci.theme.FgColor)
	ct := colorHex(ci.theme.CounterColor)
	var b strings.Builder
	row := func(label, value string) {
		fmt.Fprintf(&b, " [%s::b]%-13s[-:-:-] [%s]%s[-]\n", fg, label+":", ct, tview.Escape(sanitizeForTerminal(value)))
	}

	b.WriteString("\n")
	row("Title", chat.Title)
	row("ID", fmt.Sprint(chat.ID))
	row("Type", chat.Type.String())
	if status != nil {
		row("Presence", presence(*status))
	}
	row("Unread", fmt.Sprint(chat.UnreadCount))
	row("Marked unread", yesNo(chat.IsMarkedAsUnread))
	row("Pinned", yesNo(chat.IsPinned()))
	row("Forum", yesNo(chat.IsForum))
	if chat.LastMessage != nil {
		row("Last active", formatTimestamp(chat.LastMessage.Date))
		row("Last message", firstLine(engine.Summary(chat.LastMessage.Content)))
	}

	_, _ = fmt.Fprint(ci, b.String())
	ci.SetTitle(fmt.Sprintf(" %s ", tview.Escape(sanitizeForTerminal(chat.Title))))
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func colorHex(c interface{ Hex() int32 }) string {
	return fmt.Sprintf("#%06x", c.Hex())
}
