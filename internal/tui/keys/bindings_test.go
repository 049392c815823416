package keys

import (
	"testing"

	"github.com/gdamore/tcell/v2"
)

func TestHandleEventPrefersViewBindings(t *testing.T) {
	r := NewRegistry()
	var got string
	r.AddGlobal(&Action{Key: tcell.KeyRune, Rune: 'q', Handler: func() { got = "global-q" }})
	r.AddGlobal(&Action{Key: tcell.KeyRune, Rune: 'p', Handler: func() { got = "global-p" }})
	r.AddView("chats", &Action{Key: tcell.KeyRune, Rune: 'p', Handler: func() { got = "chats-p" }})

	tests := []struct {
		view string
		ev   *tcell.EventKey
		want string
		ok   bool
	}{
		{"chats", tcell.NewEventKey(tcell.KeyRune, 'p', tcell.ModNone), "chats-p", true},
		{"chat", tcell.NewEventKey(tcell.KeyRune, 'p', tcell.ModNone), "global-p", true},
		{"chats", tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone), "global-q", true},
		{"chats", tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModNone), "", false},
		{"chats", tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone), "", false},
	}
	for _, tt := range tests {
		got = ""
		ok := r.HandleEvent(tt.view, tt.ev)
		if ok != tt.ok || got != tt.want {
			t.Errorf("HandleEvent(%s, %v) = %v %q, want %v %q", tt.view, tt.ev.Name(), ok, got, tt.ok, tt.want)
		}
	}
}

func TestHintsOrder(t *testing.T) {
	r := NewRegistry()
	r.AddGlobal(&Action{Key: tcell.KeyRune, Rune: '?', Description: "Help", Visible: true})
	r.AddGlobal(&Action{Key: tcell.KeyCtrlC, Description: "Quit"})
	r.AddView("chats", &Action{Key: tcell.KeyEnter, Label: "Enter", Description: "Open", Visible: true})
	r.AddView("chats", &Action{Key: tcell.KeyRune, Rune: '1', Label: "1-4", Description: "List", Visible: true, Numeric: true})

	hints := r.Hints("chats")
	if len(hints) != 3 {
		t.Fatalf("hints = %+v", hints)
	}
	want := []string{"Enter", "1-4", "?"}
	for i, h := range hints {
		if h.Key != want[i] {
			t.Errorf("hint %d = %q, want %q", i, h.Key, want[i])
		}
	}
	if !hints[1].Numeric {
		t.Error("numeric flag lost")
	}
}
