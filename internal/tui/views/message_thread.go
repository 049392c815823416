package views

import (
	"fmt"
	"strconv"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/notioff/telesuper/internal/engine"
	"github.com/notioff/telesuper/internal/tui/ui"
)

// Names resolves display names for message senders and forum topics.
type Names interface {
	SenderName(m engine.Message) string
	TopicName(threadID int64) string
}

// FileStatus reports the latest state of a message attachment.
type FileStatus interface {
	Status(m engine.Message) (engine.File, bool)
}

// MessageThread displays messages and a composer for a single chat.
type MessageThread struct {
	*tview.Flex
	theme    *ui.Theme
	messages *tview.TextView
	composer *tview.InputField
	chatName string
	onSend   func(text string)

	// newest first, as the window is kept
	window []engine.Message
	cursor int
}

// NewMessageThread creates a new message thread view.
func NewMessageThread(theme *ui.Theme) *MessageThread {
	messages := tview.NewTextView().
		SetDynamicColors(true).
		SetRegions(true).
		SetScrollable(true).
		SetWordWrap(true)
	messages.SetBorder(true)
	messages.SetBorderColor(theme.BorderColor)
	messages.SetBackgroundColor(theme.BgColor)
	messages.SetTextColor(theme.FgColor)
	messages.SetTitle(" Messages ")
	messages.SetTitleColor(theme.TitleColor)

	composer := tview.NewInputField().
		SetLabel(" > ").
		SetFieldWidth(0)
	composer.SetBorder(true)
	composer.SetBorderColor(theme.BorderColor)
	composer.SetBackgroundColor(theme.BgColor)
	composer.SetFieldBackgroundColor(theme.BgColor)
	composer.SetFieldTextColor(theme.FgColor)
	composer.SetLabelColor(theme.MenuKeyColor)
	composer.SetTitle(" Compose (i to focus) ")
	composer.SetTitleColor(theme.TitleColor)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(messages, 0, 1, true).
		AddItem(composer, 3, 0, false)

	mt := &MessageThread{
		Flex:     flex,
		theme:    theme,
		messages: messages,
		composer: composer,
	}

	composer.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter && mt.onSend != nil {
			text := composer.GetText()
			if text != "" {
				mt.onSend(text)
				composer.SetText("")
			}
		}
	})

	return mt
}

// Name implements Component.
func (mt *MessageThread) Name() string {
	if mt.chatName != "" {
		return mt.chatName
	}
	return "Messages"
}

// Init implements Component.
func (mt *MessageThread) Init() {}

// Start implements Component.
func (mt *MessageThread) Start() {}

// Stop implements Component.
func (mt *MessageThread) Stop() {}

// Hints implements Component.
func (mt *MessageThread) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "i", Description: "Compose"},
		{Key: "j/k", Description: "Select"},
		{Key: "Esc", Description: "Back"},
	}
}

// SetChatName updates the chat name and title.
func (mt *MessageThread) SetChatName(name string) {
	mt.chatName = name
	mt.messages.SetTitle(fmt.Sprintf(" %s ", tview.Escape(sanitizeForTerminal(name))))
}

// SetOnSend sets the callback when a message is sent.
func (mt *MessageThread) SetOnSend(fn func(text string)) {
	mt.onSend = fn
}

// Reset drops the window and cursor before another chat is shown.
func (mt *MessageThread) Reset() {
	mt.window = nil
	mt.cursor = 0
	mt.messages.Clear()
	mt.composer.SetText("")
}

// Update redraws the window. A cursor on the newest message follows new
// arrivals; otherwise it stays on the same message while that is loaded.
// showTopics prefixes each message with its forum topic.
func (mt *MessageThread) Update(msgs []engine.Message, names Names, files FileStatus, showTopics bool, endReached bool) {
	selected, hadSelection := mt.Selected()
	following := mt.cursor == 0
	mt.window = msgs
	mt.cursor = 0
	if hadSelection && !following {
		for i, m := range msgs {
			if m.ID == selected.ID {
				mt.cursor = i
				break
			}
		}
	}

	mt.messages.Clear()
	if endReached {
		_, _ = fmt.Fprint(mt.messages, "[::d]-- beginning of history --[-:-:-]\n\n")
	} else if len(msgs) > 0 {
		_, _ = fmt.Fprint(mt.messages, "[::d]-- m to load older messages --[-:-:-]\n\n")
	}

	// The window is newest first; display oldest first.
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		sender := "You"
		if !m.IsOutgoing {
			sender = names.SenderName(m)
		}
		if showTopics && m.ThreadID != 0 {
			sender = fmt.Sprintf("%s in #%s", sender, names.TopicName(m.ThreadID))
		}

		body := engine.Summary(m.Content)
		if files != nil {
			if f, ok := files.Status(m); ok {
				body += fmt.Sprintf(" (%s)", fileBadge(f))
			}
		}
		var reactions string
		for _, r := range m.Reactions {
			reactions += fmt.Sprintf(" %s %d", r.Emoji, r.TotalCount)
		}

		_, _ = fmt.Fprintf(mt.messages, "[\"%s\"][::b]%s[-:-:-] [::d]%s%s[-:-:-]\n%s[\"\"]\n\n",
			regionID(m.ID),
			tview.Escape(sanitizeForTerminal(sender)),
			formatTimestamp(m.Date),
			tview.Escape(sanitizeForTerminal(reactions)),
			tview.Escape(sanitizeForTerminal(body)))
	}

	mt.highlight()
}

// Selected returns the message under the cursor.
func (mt *MessageThread) Selected() (engine.Message, bool) {
	if mt.cursor < 0 || mt.cursor >= len(mt.window) {
		return engine.Message{}, false
	}
	return mt.window[mt.cursor], true
}

// SelectOlder moves the cursor one message back in time. It reports false
// at the oldest loaded message.
func (mt *MessageThread) SelectOlder() bool {
	if mt.cursor+1 >= len(mt.window) {
		return false
	}
	mt.cursor++
	mt.highlight()
	return true
}

// SelectNewer moves the cursor one message forward in time.
func (mt *MessageThread) SelectNewer() bool {
	if mt.cursor == 0 {
		return false
	}
	mt.cursor--
	mt.highlight()
	return true
}

func (mt *MessageThread) highlight() {
	m, ok := mt.Selected()
	if !ok {
		mt.messages.Highlight()
		mt.messages.ScrollToEnd()
		return
	}
	mt.messages.Highlight(regionID(m.ID))
	mt.messages.ScrollToHighlight()
}

func regionID(id int64) string {
	return "m" + strconv.FormatInt(id, 10)
}

// Messages returns the messages text view (for focus management).
func (mt *MessageThread) Messages() *tview.TextView {
	return mt.messages
}

// Composer returns the composer input field (for focus management).
func (mt *MessageThread) Composer() *tview.InputField {
	return mt.composer
}
