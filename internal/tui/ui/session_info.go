package ui

import (
	"fmt"
	"time"

	"github.com/rivo/tview"
)

// SessionData holds session information for display.
type SessionData struct {
	Session string
	State   string
	List    string
	Chats   int
	Unread  int
	Uptime  time.Duration
}

// SessionInfo displays session metadata in the header.
type SessionInfo struct {
	*tview.TextView
	theme *Theme
}

// NewSessionInfo creates a new session info panel.
func NewSessionInfo(theme *Theme) *SessionInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 1, 1)

	return &SessionInfo{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders the session info.
func (si *SessionInfo) Update(data *SessionData) {
	si.Clear()
	if data == nil {
		return
	}

	fg := colorName(si.theme.FgColor)
	ct := colorName(si.theme.CounterColor)
	row := func(label, value string) string {
		return fmt.Sprintf("[%s::b]%-8s[-:-:-] [%s]%s[-]", fg, label+":", ct, tview.Escape(value))
	}

	_, _ = fmt.Fprintf(si, "%s\n%s\n%s\n%s\n%s\n%s",
		row("Session", data.Session),
		row("Status", data.State),
		row("List", data.List),
		row("Chats", fmt.Sprint(data.Chats)),
		row("Unread", fmt.Sprint(data.Unread)),
		row("Uptime", formatDuration(data.Uptime)),
	)
}

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
