package views

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/notioff/telesuper/internal/engine"
	"github.com/notioff/telesuper/internal/tui/ui"
	"github.com/notioff/telesuper/internal/viewmodel"
)

// StorageView shows local file usage per chat.
type StorageView struct {
	*tview.Table
	theme *ui.Theme
}

// NewStorageView creates a new storage usage table.
func NewStorageView(theme *ui.Theme) *StorageView {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetFixed(1, 0)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	table.SetTitle(" Storage ")
	table.SetTitleColor(theme.TitleColor)

	return &StorageView{Table: table, theme: theme}
}

// Name implements Component.
func (sv *StorageView) Name() string { return "Storage" }

// Init implements Component.
func (sv *StorageView) Init() {}

// Start implements Component.
func (sv *StorageView) Start() {}

// Stop implements Component.
func (sv *StorageView) Stop() {}

// Hints implements Component.
func (sv *StorageView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "r", Description: "Refresh"},
		{Key: "c", Description: "Clear cache"},
		{Key: "Esc", Description: "Back"},
	}
}

// Update renders the statistics. title resolves chat ids to names.
func (sv *StorageView) Update(stats *engine.StorageStatistics, busy bool, title func(chatID int64) string) {
	sv.Clear()
	for col, h := range []string{" CHAT", " FILES", " SIZE"} {
		sv.SetCell(0, col, tview.NewTableCell(h).
			SetSelectable(false).
			SetTextColor(sv.theme.TableHeaderFg).
			SetBackgroundColor(sv.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(boolInt(col == 0)))
	}

	switch {
	case stats == nil && busy:
		sv.SetTitle(" Storage: loading... ")
		return
	case stats == nil:
		sv.SetTitle(" Storage: unavailable ")
		return
	}

	for i, c := range stats.ByChat {
		name := "Other"
		if c.ChatID != 0 {
			name = title(c.ChatID)
		}
		row := i + 1
		sv.SetCell(row, 0, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(name))).SetExpansion(1).SetTextColor(sv.theme.FgColor))
		sv.SetCell(row, 1, tview.NewTableCell(fmt.Sprintf(" %d", c.Count)).SetTextColor(sv.theme.FgColor).SetAlign(tview.AlignRight))
		sv.SetCell(row, 2, tview.NewTableCell(" "+viewmodel.FormatSize(c.Size)).SetTextColor(sv.theme.FgColor).SetAlign(tview.AlignRight))
	}

	state := ""
	if busy {
		state = " working..."
	}
	sv.SetTitle(fmt.Sprintf(" Storage: %s in %d files%s ", viewmodel.FormatSize(stats.Size), stats.Count, state))
}
