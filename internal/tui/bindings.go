package tui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"

	"github.com/notioff/telesuper/internal/cache"
	"github.com/notioff/telesuper/internal/tui/keys"
	"github.com/notioff/telesuper/internal/tui/ui"
)

// onRune binds a plain key. View bindings stay out of the menu; each
// view lists its own keys.
func onRune(r rune, desc string, fn func()) *keys.Action {
	return &keys.Action{Key: tcell.KeyRune, Rune: r, Description: desc, Handler: fn}
}

func (a *App) setupBindings() {
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: ':', Description: "Command", Visible: true,
		Handler: func() { a.ask(ui.PromptCommand, "", a.runCommand) },
	})
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: '?', Description: "Help", Visible: true,
		Handler: func() { a.push(pageHelp) },
	})
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: 'q', Description: "Quit", Visible: true,
		Handler: a.Stop,
	})

	a.registry.AddView(pageAuth, onRune('l', "Link device", a.link))
	a.registry.AddView(pageAuth, &keys.Action{Key: tcell.KeyEnter, Description: "Answer", Handler: a.answerAuth})

	selectors := []cache.Selector{cache.AllChats, cache.PersonalChats, cache.GroupChats, cache.ChannelChats}
	for i, sel := range selectors {
		a.registry.AddView(pageChats, onRune(rune('1'+i), sel.Label(), func() {
			a.chatList.Select(sel)
		}))
	}
	a.registry.AddView(pageChats, onRune('f', "Next folder", func() {
		if len(a.chatList.Folders()) == 0 {
			a.flash.Warn("No chat folders")
			return
		}
		a.chatList.NextFolder()
		a.flash.Info("Folder: " + a.chatList.SelectorLabel())
	}))
	a.registry.AddView(pageChats, onRune('/', "Search", func() {
		a.ask(ui.PromptFilter, "", a.search)
	}))
	a.registry.AddView(pageChats, onRune('p', "Pin", func() {
		if c, ok := a.listView.SelectedChat(); ok {
			a.chatList.TogglePin(c)
		}
	}))
	a.registry.AddView(pageChats, onRune('u', "Unread", func() {
		if c, ok := a.listView.SelectedChat(); ok {
			a.chatList.ToggleUnread(c)
		}
	}))
	a.registry.AddView(pageChats, onRune('I', "Details", a.showDetails))
	a.registry.AddView(pageChats, onRune('D', "Delete", func() {
		c, ok := a.listView.SelectedChat()
		if !ok {
			return
		}
		a.confirm(fmt.Sprintf("Delete %s?", c.Title), func() {
			a.chatList.Delete(c.ID)
			a.flash.Info("Deleted " + c.Title)
		})
	}))

	a.registry.AddView(pageChat, onRune('i', "Compose", func() {
		a.app.SetFocus(a.thread.Composer())
	}))
	a.registry.AddView(pageChat, onRune('k', "Older", func() {
		if !a.thread.SelectOlder() {
			a.loadMore()
		}
	}))
	a.registry.AddView(pageChat, onRune('j', "Newer", func() { a.thread.SelectNewer() }))
	a.registry.AddView(pageChat, &keys.Action{Key: tcell.KeyUp, Description: "Older", Handler: func() { a.thread.SelectOlder() }})
	a.registry.AddView(pageChat, &keys.Action{Key: tcell.KeyDown, Description: "Newer", Handler: func() { a.thread.SelectNewer() }})
	a.registry.AddView(pageChat, onRune('m', "Load more", a.loadMore))
	a.registry.AddView(pageChat, onRune('d', "Download", a.download))
	a.registry.AddView(pageChat, onRune('e', "Export", a.export))
	a.registry.AddView(pageChat, onRune('I', "Details", a.showDetails))

	a.registry.AddView(pageStorage, onRune('r', "Refresh", a.loadStorage))
	a.registry.AddView(pageStorage, onRune('c', "Clear", func() {
		if !a.storage.CanClear() {
			a.flash.Warn("Nothing to clear")
			return
		}
		a.confirm("Clear all cached files?", func() {
			go func() {
				a.storage.ClearAll(a.ctx)
				a.flash.Info("Cache cleared")
				a.markDirty()
			}()
			a.markDirty()
		})
	}))
}

func (a *App) link() {
	if err := a.auth.Link(); err != nil {
		a.flash.Err(err)
		return
	}
	a.flash.Info("Starting login...")
}

// answerAuth asks for the phone number, code or password the engine
// waits for.
func (a *App) answerAuth() {
	question, ok := a.authView.Question()
	if !ok {
		return
	}
	kind := a.store.AuthState().Kind
	a.ask(ui.PromptInput, question, func(text string) {
		go func() {
			var err error
			switch question {
			case "Phone number":
				a.auth.SubmitPhone(text)
			case "Login code":
				err = a.auth.SubmitCode(a.ctx, text)
			case "Password":
				err = a.auth.SubmitPassword(a.ctx, text)
			}
			if err != nil {
				a.logger.Debug("auth answer rejected", zap.Stringer("state", kind), zap.Error(err))
			}
			a.markDirty()
		}()
	})
}

func (a *App) loadMore() {
	chat := a.chat.Load()
	if chat == nil {
		return
	}
	if chat.EndReached() {
		a.flash.Info("Beginning of history")
		return
	}
	go func() {
		chat.LoadMore(a.ctx)
		a.markDirty()
	}()
}

func (a *App) download() {
	m, ok := a.thread.Selected()
	if !ok {
		return
	}
	if a.files.Download(m) {
		a.flash.Info("Downloading...")
		return
	}
	if f, ok := a.files.Status(m); ok && f.Downloaded() {
		a.flash.Info("Already downloaded: " + f.Local.Path)
		return
	}
	a.flash.Warn("Nothing to download")
}

func (a *App) export() {
	m, ok := a.thread.Selected()
	if !ok {
		return
	}
	go func() {
		path, err := a.files.Export(m)
		if err != nil {
			a.flash.Err(err)
			return
		}
		a.flash.Info("Saved to " + path)
	}()
}

func (a *App) loadStorage() {
	go func() {
		a.storage.Load(a.ctx)
		a.markDirty()
	}()
	a.markDirty()
}
