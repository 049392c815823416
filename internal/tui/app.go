package tui

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"go.uber.org/zap"

	"github.com/notioff/telesuper/internal/bus"
	"github.com/notioff/telesuper/internal/cache"
	"github.com/notioff/telesuper/internal/engine"
	"github.com/notioff/telesuper/internal/tui/keys"
	"github.com/notioff/telesuper/internal/tui/ui"
	"github.com/notioff/telesuper/internal/tui/views"
	"github.com/notioff/telesuper/internal/viewmodel"
)

// Page names.
const (
	pageAuth    = "auth"
	pageChats   = "chats"
	pageChat    = "chat"
	pageTopics  = "topics"
	pageInfo    = "info"
	pageStorage = "storage"
	pageHelp    = "help"
)

// Deps are the models the TUI presents.
type Deps struct {
	Session  string
	Store    *cache.Store
	Auth     *viewmodel.Auth
	ChatList *viewmodel.ChatList
	Files    *viewmodel.Files
	Storage  *viewmodel.Storage
	Privacy  *viewmodel.Privacy
	PageSize int
	Logger   *zap.Logger
}

// App is the main TUI application shell.
type App struct {
	app      *tview.Application
	theme    *ui.Theme
	registry *keys.Registry
	pages    *ui.Pages
	main     *tview.Flex
	prompt   *ui.Prompt
	info     *ui.SessionInfo
	menu     *ui.Menu
	crumbs   *ui.Crumbs
	flash    *ui.FlashModel
	flashBar *ui.FlashBar

	authView    *views.AuthView
	listView    *views.ConversationList
	thread      *views.MessageThread
	topicsView  *views.TopicsView
	detailsView *views.ConversationInfo
	storageView *views.StorageView
	helpView    *views.HelpView
	components  map[string]ui.Component

	session   string
	store     *cache.Store
	auth      *viewmodel.Auth
	chatList  *viewmodel.ChatList
	files     *viewmodel.Files
	storage   *viewmodel.Storage
	privacy   *viewmodel.Privacy
	pageSize  int
	logger    *zap.Logger
	startedAt time.Time

	chat   atomic.Pointer[viewmodel.Chat]
	topics *viewmodel.ForumTopics // touched on the UI goroutine only
	dirty  atomic.Bool

	promptActive bool
	answer       func(text string)

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp creates the TUI application.
func NewApp(d Deps) *App {
	ctx, cancel := context.WithCancel(context.Background())
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	theme := ui.DefaultTheme()

	a := &App{
		app:      tview.NewApplication(),
		theme:    theme,
		registry: keys.NewRegistry(),
		pages:    ui.NewPages(),
		prompt:   ui.NewPrompt(theme),
		info:     ui.NewSessionInfo(theme),
		menu:     ui.NewMenu(theme),
		crumbs:   ui.NewCrumbs(theme),
		flash:    ui.NewFlashModel(),
		flashBar: ui.NewFlashBar(theme),

		authView:    views.NewAuthView(theme),
		listView:    views.NewConversationList(theme),
		thread:      views.NewMessageThread(theme),
		topicsView:  views.NewTopicsView(theme),
		detailsView: views.NewConversationInfo(theme),
		storageView: views.NewStorageView(theme),
		helpView:    views.NewHelpView(theme),

		session:   d.Session,
		store:     d.Store,
		auth:      d.Auth,
		chatList:  d.ChatList,
		files:     d.Files,
		storage:   d.Storage,
		privacy:   d.Privacy,
		pageSize:  d.PageSize,
		logger:    logger,
		startedAt: time.Now(),
		ctx:       ctx,
		cancel:    cancel,
	}

	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()
	return a
}

func (a *App) setupLayout() {
	a.components = map[string]ui.Component{
		pageAuth:    a.authView,
		pageChats:   a.listView,
		pageChat:    a.thread,
		pageTopics:  a.topicsView,
		pageInfo:    a.detailsView,
		pageStorage: a.storageView,
		pageHelp:    a.helpView,
	}
	pages := []struct {
		name string
		p    tview.Primitive
	}{
		{pageAuth, a.authView},
		{pageChats, a.listView},
		{pageChat, a.thread},
		{pageTopics, a.topicsView},
		{pageInfo, a.detailsView},
		{pageStorage, a.storageView},
		{pageHelp, a.helpView},
	}
	for _, pg := range pages {
		a.components[pg.name].Init()
		a.pages.AddPage(pg.name, pg.p, true, false)
	}
	a.pages.SetOnChange(func(stack []string) {
		names := make([]string, len(stack))
		for i, name := range stack {
			names[i] = a.components[name].Name()
		}
		a.crumbs.Update(names)
		a.updateMenu()
	})

	header := tview.NewFlex().
		AddItem(a.info, 32, 0, false).
		AddItem(a.menu, 0, 1, false).
		AddItem(ui.NewLogo(a.theme), 16, 0, false)

	a.main = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(header, 7, 0, false).
		AddItem(a.prompt, 0, 0, false).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.crumbs, 1, 0, false).
		AddItem(a.flashBar, 1, 0, false)

	a.app.SetRoot(a.main, true)
	a.pages.Reset(pageAuth)

	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if a.promptActive {
			return event
		}

		// The composer keeps its keys; Esc hands focus back to the thread.
		if _, ok := a.app.GetFocus().(*tview.InputField); ok {
			if event.Key() == tcell.KeyEscape {
				a.app.SetFocus(a.thread.Messages())
				return nil
			}
			return event
		}

		if event.Key() == tcell.KeyEscape {
			a.back()
			return nil
		}
		if a.registry.HandleEvent(a.pages.Current(), event) {
			return nil
		}
		return event
	})
}

func (a *App) setupCallbacks() {
	a.listView.SetSelectedFunc(func(row, _ int) {
		if c, ok := a.listView.ChatByIndex(row); ok {
			a.openChat(c)
		}
	})

	a.topicsView.SetSelectedFunc(func(_, _ int) {
		thread, ok := a.topicsView.SelectedThread()
		if !ok || a.topics == nil {
			return
		}
		title := a.topics.Title()
		if thread != 0 {
			for _, t := range a.topics.Topics() {
				if t.ThreadID == thread {
					title = t.Name
				}
			}
		}
		a.openThread(a.topics.ChatID(), thread, title)
	})

	a.thread.SetOnSend(func(text string) {
		if chat := a.chat.Load(); chat != nil {
			chat.SendText(text)
		}
	})

	a.prompt.SetOnSubmit(func(_ ui.PromptMode, text string) {
		answer := a.answer
		a.closePrompt()
		if answer != nil {
			answer(text)
		}
	})
	a.prompt.SetOnCancel(a.closePrompt)
}

// ask opens the prompt and hands the submitted text to answer.
func (a *App) ask(mode ui.PromptMode, question string, answer func(text string)) {
	switch mode {
	case ui.PromptCommand, ui.PromptFilter:
		a.prompt.Activate(mode)
	default:
		a.prompt.Ask(mode, question)
	}
	a.answer = answer
	a.promptActive = true
	a.main.ResizeItem(a.prompt, 3, 0)
	a.app.SetFocus(a.prompt)
}

// confirm asks a yes/no question and runs fn on yes.
func (a *App) confirm(question string, fn func()) {
	a.ask(ui.PromptConfirm, question, func(text string) {
		if text == "y" {
			fn()
		}
	})
}

func (a *App) closePrompt() {
	a.answer = nil
	a.promptActive = false
	a.main.ResizeItem(a.prompt, 0, 0)
	a.focusCurrent()
}

func (a *App) focusCurrent() {
	switch a.pages.Current() {
	case pageAuth:
		a.app.SetFocus(a.authView)
	case pageChats:
		a.app.SetFocus(a.listView)
	case pageChat:
		a.app.SetFocus(a.thread.Messages())
	case pageTopics:
		a.app.SetFocus(a.topicsView)
	case pageInfo:
		a.app.SetFocus(a.detailsView)
	case pageStorage:
		a.app.SetFocus(a.storageView)
	case pageHelp:
		a.app.SetFocus(a.helpView)
	}
}

func (a *App) push(page string) {
	if a.pages.Current() == page {
		return
	}
	a.pages.Push(page)
	a.components[page].Start()
	a.focusCurrent()
}

// back pops the current page. The chat list clears an active search first.
func (a *App) back() {
	current := a.pages.Current()
	if a.pages.Depth() <= 1 {
		if current == pageChats && a.chatList.Query() != "" {
			a.search("")
		}
		return
	}
	a.components[current].Stop()
	a.pages.Pop()
	if current == pageChat {
		a.closeChat()
	}
	if current == pageTopics {
		a.topics = nil
	}
	a.focusCurrent()
}

func (a *App) openChat(c engine.Chat) {
	if c.IsForum {
		a.openTopics(c)
		return
	}
	a.openThread(c.ID, 0, c.Title)
}

func (a *App) openTopics(c engine.Chat) {
	vm := viewmodel.NewForumTopics(a.store, c.ID)
	a.topics = vm
	a.topicsView.Update(c.Title, nil)
	a.push(pageTopics)
	go func() {
		vm.Load(a.ctx)
		a.app.QueueUpdateDraw(func() {
			if a.topics == vm {
				a.topicsView.Update(vm.Title(), vm.Topics())
			}
		})
	}()
}

func (a *App) openThread(chatID, threadID int64, title string) {
	a.closeChat()
	vm := viewmodel.NewChat(a.store, chatID, threadID, a.pageSize, a.logger)
	a.chat.Store(vm)
	a.thread.Reset()
	a.thread.SetChatName(title)
	a.push(pageChat)
	go func() {
		vm.Activate(a.ctx)
		a.resolveNames(vm)
		a.markDirty()
	}()
}

func (a *App) closeChat() {
	if prev := a.chat.Swap(nil); prev != nil {
		prev.Close()
	}
}

func (a *App) resolveNames(vm *viewmodel.Chat) {
	if vm.ResolveNames(a.ctx) {
		a.markDirty()
	}
}

func (a *App) search(query string) {
	go func() {
		a.chatList.Search(a.ctx, query)
		a.markDirty()
	}()
}

// markDirty schedules one redraw for any number of calls before it runs.
func (a *App) markDirty() {
	if a.dirty.CompareAndSwap(false, true) {
		a.app.QueueUpdateDraw(func() {
			a.dirty.Store(false)
			a.refresh()
		})
	}
}

// refresh re-reads every snapshot and redraws. It runs on the UI goroutine.
func (a *App) refresh() {
	state := a.store.AuthState()
	a.syncAuthPage(state)
	a.authView.Update(state, a.auth.LastError())

	a.listView.Update(
		a.chatList.Chats(),
		a.chatList.SearchResults(),
		a.chatList.Selector().List(),
		a.chatList.SelectorLabel(),
		a.chatList.Query(),
	)

	if chat := a.chat.Load(); chat != nil {
		info := chat.Info()
		showTopics := info != nil && info.IsForum && chat.ThreadID() == 0
		if info != nil && chat.ThreadID() == 0 {
			a.thread.SetChatName(info.Title)
		}
		a.thread.Update(chat.Messages(), chat, a.files, showTopics, chat.EndReached())
	}

	a.storageView.Update(a.storage.Stats(), a.storage.Busy(), a.chatTitle)
	a.updateHeader()
}

// syncAuthPage shows the login screen whenever the session is not ready
// and leaves it once it is.
func (a *App) syncAuthPage(state engine.AuthState) {
	current := a.pages.Current()
	switch {
	case state.Kind == engine.AuthReady && current == pageAuth:
		a.pages.Reset(pageChats)
		a.focusCurrent()
	case state.Kind != engine.AuthReady && current != pageAuth && current != pageHelp:
		a.closeChat()
		a.topics = nil
		a.pages.Reset(pageAuth)
		a.focusCurrent()
	}
}

func (a *App) updateHeader() {
	chats := a.store.Chats()
	unread := 0
	for _, c := range chats {
		unread += c.UnreadCount
	}
	a.info.Update(&ui.SessionData{
		Session: a.session,
		State:   a.store.AuthState().Kind.String(),
		List:    a.chatList.SelectorLabel(),
		Chats:   len(chats),
		Unread:  unread,
		Uptime:  time.Since(a.startedAt),
	})
	a.flashBar.Update(a.flash.GetMessage())
}

func (a *App) updateMenu() {
	var hints []ui.MenuHint
	if c, ok := a.components[a.pages.Current()]; ok {
		hints = append(hints, c.Hints()...)
	}
	hints = append(hints, a.registry.Hints("")...)
	a.menu.Update(hints)
}

func (a *App) chatTitle(chatID int64) string {
	for _, c := range a.store.Chats() {
		if c.ID == chatID {
			return c.Title
		}
	}
	return fmt.Sprintf("Chat %d", chatID)
}

// selectedChat is the chat an action applies to: the open chat on the chat
// page, else the row under the cursor.
func (a *App) selectedChat() (engine.Chat, bool) {
	if a.pages.Current() == pageChat {
		if chat := a.chat.Load(); chat != nil {
			if info := chat.Info(); info != nil {
				return *info, true
			}
			return engine.Chat{ID: chat.ChatID(), Title: chat.Title()}, true
		}
	}
	return a.listView.SelectedChat()
}

func (a *App) showDetails() {
	c, ok := a.selectedChat()
	if !ok {
		return
	}
	var status *engine.UserStatus
	if c.UserID != 0 {
		if st, ok := a.store.UserStatus(c.UserID); ok {
			status = &st
		}
	}
	a.detailsView.Update(&c, status)
	a.push(pageInfo)
}

// watch turns cache events into redraws until the app stops.
func (a *App) watch() {
	events, unsubscribe := a.store.Subscribe("cache.", 64)
	defer unsubscribe()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Kind == bus.CacheMessages {
				if chat := a.chat.Load(); chat != nil {
					go a.resolveNames(chat)
				}
			}
			a.markDirty()
		case <-a.flash.Watch():
			a.markDirty()
		case <-ticker.C:
			a.app.QueueUpdateDraw(a.updateHeader)
		case <-a.ctx.Done():
			return
		}
	}
}

// Run starts the TUI application and blocks until it exits.
func (a *App) Run() error {
	go a.watch()
	a.markDirty()
	err := a.app.Run()
	a.cancel()
	a.closeChat()
	return err
}

// Stop gracefully shuts down the TUI.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}
