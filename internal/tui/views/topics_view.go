package views

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/notioff/telesuper/internal/engine"
	"github.com/notioff/telesuper/internal/tui/ui"
)

// TopicsView lists the threads of a forum chat. The first row opens the
// whole chat.
type TopicsView struct {
	*tview.Table
	theme  *ui.Theme
	topics []engine.ForumTopic
}

// NewTopicsView creates a new forum topic table.
func NewTopicsView(theme *ui.Theme) *TopicsView {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetFixed(1, 0)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	table.SetTitle(" Topics ")
	table.SetTitleColor(theme.TitleColor)

	return &TopicsView{Table: table, theme: theme}
}

// Name implements Component.
func (tv *TopicsView) Name() string { return "Topics" }

// Init implements Component.
func (tv *TopicsView) Init() {}

// Start implements Component.
func (tv *TopicsView) Start() {}

// Stop implements Component.
func (tv *TopicsView) Stop() {}

// Hints implements Component.
func (tv *TopicsView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Open"},
		{Key: "Esc", Description: "Back"},
	}
}

// Update replaces the topic rows.
func (tv *TopicsView) Update(title string, topics []engine.ForumTopic) {
	tv.topics = topics
	tv.Clear()
	for col, h := range []string{" TOPIC", " UNREAD", " STATE"} {
		tv.SetCell(0, col, tview.NewTableCell(h).
			SetSelectable(false).
			SetTextColor(tv.theme.TableHeaderFg).
			SetBackgroundColor(tv.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(boolInt(col == 0)))
	}
	tv.SetCell(1, 0, tview.NewTableCell(" All messages").SetTextColor(tv.theme.CounterColor))
	for i, t := range topics {
		row := i + 2
		var state string
		switch {
		case t.IsPinned && t.IsClosed:
			state = "pinned, closed"
		case t.IsPinned:
			state = "pinned"
		case t.IsClosed:
			state = "closed"
		}
		tv.SetCell(row, 0, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(t.Name))).SetExpansion(1).SetTextColor(tv.theme.FgColor))
		tv.SetCell(row, 1, tview.NewTableCell(fmt.Sprintf(" %d", t.UnreadCount)).SetTextColor(tv.theme.FgColor))
		tv.SetCell(row, 2, tview.NewTableCell(" "+state).SetTextColor(tv.theme.FgColor))
	}
	if title == "" {
		title = "Topics"
	}
	tv.SetTitle(fmt.Sprintf(" %s (%d) ", tview.Escape(sanitizeForTerminal(title)), len(topics)))
}

// SelectedThread returns the thread under the cursor; 0 is the whole chat.
func (tv *TopicsView) SelectedThread() (int64, bool) {
	row, _ := tv.GetSelection()
	switch {
	case row == 1:
		return 0, true
	case row >= 2 && row-2 < len(tv.topics):
		return tv.topics[row-2].ThreadID, true
	default:
		return 0, false
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
