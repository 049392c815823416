package views

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"

	"github.com/notioff/telesuper/internal/tui/ui"
)

// HelpView displays key binding reference.
type HelpView struct {
	*tview.TextView
	theme *ui.Theme
}

// NewHelpView creates a new help view.
func NewHelpView(theme *ui.Theme) *HelpView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Help ")
	tv.SetTitleColor(theme.TitleColor)

	hv := &HelpView{
		TextView: tv,
		theme:    theme,
	}
	hv.render()
	return hv
}

// Name implements Component.
func (hv *HelpView) Name() string { return "Help" }

// Init implements Component.
func (hv *HelpView) Init() {}

// Start implements Component.
func (hv *HelpView) Start() {}

// Stop implements Component.
func (hv *HelpView) Stop() {}

// Hints implements Component.
func (hv *HelpView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Esc", Description: "Back"},
	}
}

func (hv *HelpView) render() {
	kc := colorHex(hv.theme.MenuKeyColor)
	key := func(k string) string { return fmt.Sprintf("[%s]%-12s[-:-:-]", kc, k) }

	sections := []struct {
		title string
		rows  [][2]string
	}{
		{"Global", [][2]string{
			{":", "Command mode"},
			{"Esc", "Cancel / go back"},
			{"?", "This help"},
			{"Ctrl-C", "Quit"},
		}},
		{"Chat list", [][2]string{
			{"Enter", "Open chat"},
			{"/", "Search chats"},
			{"1 2 3 4", "All, personal, groups, channels"},
			{"f", "Next folder"},
			{"p", "Pin or unpin"},
			{"u", "Mark read or unread"},
			{"I", "Chat details"},
			{"D", "Delete chat"},
		}},
		{"Chat", [][2]string{
			{"i", "Focus composer"},
			{"j k", "Select older or newer message"},
			{"m", "Load older messages"},
			{"d", "Download selected media"},
			{"e", "Export selected media"},
			{"I", "Chat details"},
		}},
		{"Commands", [][2]string{
			{":chat name", "Open chat by title"},
			{":attach path", "Send a file to the open chat"},
			{":storage", "Storage usage"},
			{":clear", "Clear history of the open chat"},
			{":block", "Block the open chat"},
			{":sensitive on", "Show sensitive content (on|off)"},
			{":verify", "Open the age verification bot"},
			{":link", "Link a device after logout"},
			{":logout", "Log out of this session"},
			{":quit", "Quit"},
		}},
	}

	var b strings.Builder
	for _, sec := range sections {
		fmt.Fprintf(&b, "\n  [::b]%s[-:-:-]\n\n", sec.title)
		for _, r := range sec.rows {
			fmt.Fprintf(&b, "  %s %s\n", key(r[0]), r[1])
		}
	}
	_, _ = fmt.Fprint(hv, b.String())
}
