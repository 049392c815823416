package views

import (
	"fmt"
	"strings"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/rivo/tview"

	"github.com/notioff/telesuper/internal/engine"
	"github.com/notioff/telesuper/internal/tui/ui"
)

// AuthView walks the user through login.
type AuthView struct {
	*tview.TextView
	theme *ui.Theme
	state engine.AuthState
}

// NewAuthView creates a new auth view.
func NewAuthView(theme *ui.Theme) *AuthView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Authentication Required ")
	tv.SetTitleColor(theme.TitleColor)

	return &AuthView{
		TextView: tv,
		theme:    theme,
	}
}

// Name implements Component.
func (av *AuthView) Name() string { return "Auth" }

// Init implements Component.
func (av *AuthView) Init() {}

// Start implements Component.
func (av *AuthView) Start() {}

// Stop implements Component.
func (av *AuthView) Stop() {}

// Hints implements Component.
func (av *AuthView) Hints() []ui.MenuHint {
	switch av.state.Kind {
	case engine.AuthWaitCredentials, engine.AuthClosed:
		return []ui.MenuHint{{Key: "l", Description: "Link device"}}
	case engine.AuthWaitPhone, engine.AuthWaitCode, engine.AuthWaitPassword:
		return []ui.MenuHint{{Key: "Enter", Description: "Answer"}}
	default:
		return nil
	}
}

// Update renders the screen for an auth state. lastErr is the text of the
// last rejected answer.
func (av *AuthView) Update(state engine.AuthState, lastErr string) {
	av.state = state
	av.Clear()

	switch state.Kind {
	case engine.AuthWaitOtherDevice:
		if state.Link == "" {
			av.message("Waiting for a login code...")
			break
		}
		_, _ = fmt.Fprintf(av, "\n  Open WhatsApp > Linked devices and scan:\n\n%s\n  [::d]The code refreshes on its own.[-:-:-]", renderQR(state.Link))
	case engine.AuthWaitCredentials, engine.AuthClosed:
		av.message("No device linked.\n\nPress [::b]l[-:-:-] to link this session.")
	case engine.AuthWaitPhone:
		av.message("Press [::b]Enter[-:-:-] to enter your phone number.")
	case engine.AuthWaitCode:
		av.message("Press [::b]Enter[-:-:-] to enter the login code.")
	case engine.AuthWaitPassword:
		hint := ""
		if state.PasswordHint != "" {
			hint = "\nHint: " + tview.Escape(state.PasswordHint)
		}
		av.message("Press [::b]Enter[-:-:-] to enter your password." + hint)
	case engine.AuthLoggingOut:
		av.message("Logging out...")
	case engine.AuthReady:
		av.message("Linked. Loading chats...")
	}

	if lastErr != "" {
		_, _ = fmt.Fprintf(av, "\n\n[%s]%s[-]", colorHex(av.theme.FlashErrColor), tview.Escape(lastErr))
	}
}

// Question returns the prompt for states that need typed input.
func (av *AuthView) Question() (string, bool) {
	switch av.state.Kind {
	case engine.AuthWaitPhone:
		return "Phone number", true
	case engine.AuthWaitCode:
		return "Login code", true
	case engine.AuthWaitPassword:
		return "Password", true
	default:
		return "", false
	}
}

func (av *AuthView) message(msg string) {
	_, _ = fmt.Fprintf(av, "\n\n%s", msg)
}

// renderQR converts a string to a compact QR code using Unicode
// half-block characters.
func renderQR(content string) string {
	qr, err := qrcode.New(content, qrcode.Low)
	if err != nil {
		return "  (QR generation failed: " + err.Error() + ")"
	}

	bitmap := qr.Bitmap()
	rows := len(bitmap)
	cols := 0
	if rows > 0 {
		cols = len(bitmap[0])
	}

	var sb strings.Builder
	for y := 0; y < rows; y += 2 {
		sb.WriteString("  ")
		for x := 0; x < cols; x++ {
			top := bitmap[y][x]
			bot := false
			if y+1 < rows {
				bot = bitmap[y+1][x]
			}
			switch {
			case top && bot:
				sb.WriteRune('█')
			case top:
				sb.WriteRune('▀')
			case bot:
				sb.WriteRune('▄')
			default:
				sb.WriteRune(' ')
			}
		}
		sb.WriteRune('\n')
	}
	return sb.String()
}
