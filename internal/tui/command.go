package tui

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// Command represents a parsed command.
type Command struct {
	Name string
	Args string
}

// ParseCommand parses a command string (without the leading ':').
func ParseCommand(input string) Command {
	input = strings.TrimSpace(input)
	parts := strings.SplitN(input, " ", 2)
	cmd := Command{Name: strings.ToLower(parts[0])}
	if len(parts) > 1 {
		cmd.Args = strings.TrimSpace(parts[1])
	}
	return cmd
}

var errNoChat = errors.New("no chat selected")

// runCommand executes a prompt command. Failures go to the flash bar.
func (a *App) runCommand(input string) {
	if err := a.execute(ParseCommand(input)); err != nil {
		a.flash.Err(err)
	}
}

func (a *App) execute(cmd Command) error {
	switch cmd.Name {
	case "q", "quit":
		a.Stop()
	case "h", "help":
		a.push(pageHelp)
	case "chat":
		return a.openByTitle(cmd.Args)
	case "attach":
		return a.attach(cmd.Args)
	case "storage":
		a.push(pageStorage)
		a.loadStorage()
	case "clear":
		c, ok := a.selectedChat()
		if !ok {
			return errNoChat
		}
		a.confirm(fmt.Sprintf("Clear history of %s?", c.Title), func() {
			a.chatList.ClearHistory(c.ID)
		})
	case "block":
		c, ok := a.selectedChat()
		if !ok {
			return errNoChat
		}
		a.confirm(fmt.Sprintf("Block %s?", c.Title), func() {
			a.chatList.Block(c.ID)
		})
	case "sensitive":
		return a.sensitive(cmd.Args)
	case "verify":
		bot := a.privacy.VerificationBot()
		go func() {
			id, ok := a.privacy.OpenVerificationBot(a.ctx)
			if !ok {
				a.flash.Warn("Cannot open @" + bot)
				return
			}
			a.app.QueueUpdateDraw(func() { a.openThread(id, 0, bot) })
		}()
	case "credentials":
		fields := strings.Fields(cmd.Args)
		if len(fields) != 2 || !a.auth.SubmitCredentials(fields[0], fields[1]) {
			return errors.New("usage: credentials <app id> <app hash>")
		}
	case "link":
		a.link()
	case "logout":
		a.confirm("Log out of this session?", a.chatList.LogOut)
	default:
		return fmt.Errorf("unknown command %q", cmd.Name)
	}
	return nil
}

// openByTitle opens the first visible chat whose title contains name.
func (a *App) openByTitle(name string) error {
	q := strings.ToLower(strings.TrimSpace(name))
	if q == "" {
		return errors.New("usage: chat <name>")
	}
	for _, c := range a.store.Chats() {
		if strings.Contains(strings.ToLower(c.Title), q) {
			a.openChat(c)
			return nil
		}
	}
	return fmt.Errorf("no chat matching %q", name)
}

// attach sends a local file to the open chat. The media kind follows the
// file extension.
func (a *App) attach(path string) error {
	chat := a.chat.Load()
	if chat == nil || a.pages.Current() != pageChat {
		return errors.New("open a chat first")
	}
	if path == "" {
		return errors.New("usage: attach <path>")
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	chat.SendMedia(path, mime.TypeByExtension(filepath.Ext(path)), "")
	a.flash.Info("Sending " + filepath.Base(path))
	return nil
}

func (a *App) sensitive(arg string) error {
	switch strings.ToLower(arg) {
	case "on":
		a.privacy.SetSensitiveContent(true)
		a.flash.Info("Sensitive content shown")
	case "off":
		a.privacy.SetSensitiveContent(false)
		a.flash.Info("Sensitive content hidden")
	case "":
		go func() {
			state := "off"
			if a.privacy.SensitiveContent(a.ctx) {
				state = "on"
			}
			a.flash.Info("Sensitive content: " + state)
		}()
	default:
		return errors.New("usage: sensitive [on|off]")
	}
	return nil
}
