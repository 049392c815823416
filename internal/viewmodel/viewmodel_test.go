package viewmodel

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/notioff/telesuper/internal/bus"
	"github.com/notioff/telesuper/internal/cache"
	"github.com/notioff/telesuper/internal/credstore"
	"github.com/notioff/telesuper/internal/engine"
	"github.com/notioff/telesuper/internal/export"
)

// fakeEngine answers requests with handle and records them.
type fakeEngine struct {
	mu       sync.Mutex
	requests []engine.Request
	handle   func(engine.Request) (any, error)
}

func (f *fakeEngine) Send(req engine.Request) <-chan engine.Response {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	handle := f.handle
	f.mu.Unlock()
	if handle == nil {
		return engine.Respond(engine.Ok{}, nil)
	}
	return engine.Respond(handle(req))
}

func (f *fakeEngine) Updates() <-chan engine.Update { return nil }
func (f *fakeEngine) Close() error                  { return nil }

func (f *fakeEngine) count(kind string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.requests {
		if r.Kind() == kind {
			n++
		}
	}
	return n
}

func newStore(t *testing.T, eng *fakeEngine) *cache.Store {
	t.Helper()
	return cache.New(cache.Params{
		Engine: eng,
		Bus:    bus.New(),
		Creds:  credstore.New(filepath.Join(t.TempDir(), "credentials.toml")),
		Logger: zap.NewNop(),
	})
}

func addChat(s *cache.Store, id int64, title string, typ engine.ChatType, order int64) {
	s.Apply(engine.UpdateNewChat{Chat: &engine.Chat{
		ID: id, Title: title, Type: typ,
		Positions: []engine.ChatPosition{{List: engine.MainList, Order: order}},
	}})
}

func TestSubmitCredentials(t *testing.T) {
	s := newStore(t, &fakeEngine{})
	vm := NewAuth(s, zap.NewNop())

	if vm.SubmitCredentials("abc", "hash") {
		t.Fatal("non-numeric id accepted")
	}
	if !vm.SubmitCredentials(" 12345 ", "hash") {
		t.Fatal("numeric id rejected")
	}
}

func TestSubmitCodeShowsError(t *testing.T) {
	eng := &fakeEngine{handle: func(engine.Request) (any, error) {
		return nil, engine.Errorf(400, "PASSWORD_HASH_INVALID")
	}}
	vm := NewAuth(newStore(t, eng), zap.NewNop())

	_ = vm.SubmitPassword(context.Background(), "x")
	if got := vm.LastError(); got != "Error: PASSWORD_HASH_INVALID" {
		t.Fatalf("LastError = %q", got)
	}
}

func TestLinkAfterLogout(t *testing.T) {
	built := 0
	s := cache.New(cache.Params{
		Engine: &fakeEngine{},
		Factory: func() (engine.Engine, error) {
			built++
			return &fakeEngine{}, nil
		},
		Bus:    bus.New(),
		Logger: zap.NewNop(),
	})
	vm := NewAuth(s, zap.NewNop())

	s.Apply(engine.UpdateAuthorizationState{State: engine.AuthState{Kind: engine.AuthReady}})
	if err := vm.Link(); err != nil || built != 0 {
		t.Fatalf("Link while ready: err=%v built=%d", err, built)
	}

	s.Apply(engine.UpdateAuthorizationState{State: engine.AuthState{Kind: engine.AuthClosed}})
	if err := vm.Link(); err != nil {
		t.Fatalf("Link: %v", err)
	}
	if built != 1 {
		t.Fatalf("factory called %d times, want 1", built)
	}
	_ = s.Stop()
}

func TestChatListFilterAndGlobalSearch(t *testing.T) {
	eng := &fakeEngine{}
	s := newStore(t, eng)
	addChat(s, 1, "Go Nuts", engine.ChatSupergroup, 30)
	addChat(s, 2, "Family", engine.ChatBasicGroup, 20)
	addChat(s, 3, "golang news", engine.ChatChannel, 10)
	eng.handle = func(req engine.Request) (any, error) {
		switch r := req.(type) {
		case engine.SearchChats:
			return engine.Chats{IDs: []int64{1, 9}}, nil
		case engine.GetChat:
			return &engine.Chat{ID: r.ChatID, Title: "Gopher Club"}, nil
		}
		return engine.Ok{}, nil
	}
	vm := NewChatList(s, zap.NewNop())
	ctx := context.Background()

	vm.Search(ctx, "g")
	if got := vm.Chats(); len(got) != 2 {
		t.Fatalf("local matches for g = %d, want 2", len(got))
	}
	if eng.count("searchChats") != 0 {
		t.Fatal("single character query searched globally")
	}
	if len(vm.SearchResults()) != 0 {
		t.Fatal("unexpected global results")
	}

	vm.Search(ctx, "go")
	results := vm.SearchResults()
	if len(results) != 1 || results[0].ID != 9 {
		t.Fatalf("global results = %+v, want only chat 9", results)
	}

	vm.Search(ctx, "")
	if len(vm.Chats()) != 3 || len(vm.SearchResults()) != 0 {
		t.Fatal("clearing the query did not restore the list")
	}
}

func TestNextFolderCycles(t *testing.T) {
	s := newStore(t, &fakeEngine{})
	s.Apply(engine.UpdateChatFolders{Folders: []engine.ChatFolder{{ID: 4, Name: "Work"}, {ID: 8, Name: "Home"}}})
	vm := NewChatList(s, zap.NewNop())

	want := []cache.Selector{cache.Folder(4), cache.Folder(8), cache.AllChats, cache.Folder(4)}
	for i, w := range want {
		if got := vm.NextFolder(); got != w {
			t.Fatalf("step %d: got %+v, want %+v", i, got, w)
		}
	}
	if vm.SelectorLabel() != "Work" {
		t.Errorf("label = %q", vm.SelectorLabel())
	}
}

func historyEngine(pages map[int64][]engine.Message) *fakeEngine {
	return &fakeEngine{handle: func(req engine.Request) (any, error) {
		switch r := req.(type) {
		case engine.GetChatHistory:
			return engine.Messages{Messages: pages[r.FromMessageID]}, nil
		case engine.GetChat:
			return &engine.Chat{ID: r.ChatID, Title: "Team"}, nil
		}
		return engine.Ok{}, nil
	}}
}

func TestChatPaginationStopsAtEnd(t *testing.T) {
	eng := historyEngine(map[int64][]engine.Message{
		0: {{ID: 3, ChatID: 1, Date: 3}, {ID: 2, ChatID: 1, Date: 2}},
		2: {{ID: 1, ChatID: 1, Date: 1}},
	})
	s := newStore(t, eng)
	vm := NewChat(s, 1, 0, 2, zap.NewNop())
	ctx := context.Background()

	vm.Activate(ctx)
	if vm.Title() != "Team" {
		t.Errorf("title = %q", vm.Title())
	}
	vm.LoadMore(ctx)
	if n := len(vm.Messages()); n != 3 {
		t.Fatalf("messages = %d, want 3", n)
	}
	vm.LoadMore(ctx)
	if !vm.EndReached() {
		t.Fatal("end not reached after empty page")
	}
	before := eng.count("getChatHistory")
	vm.LoadMore(ctx)
	if eng.count("getChatHistory") != before {
		t.Fatal("load issued after end of history")
	}

	vm.Activate(ctx)
	if vm.EndReached() {
		t.Fatal("reactivation did not reset the end flag")
	}
}

func TestChatMessagesOnlyWhenActive(t *testing.T) {
	eng := historyEngine(map[int64][]engine.Message{0: {{ID: 1, ChatID: 1}}})
	s := newStore(t, eng)
	first := NewChat(s, 1, 0, 0, zap.NewNop())
	second := NewChat(s, 2, 0, 0, zap.NewNop())
	ctx := context.Background()

	first.Activate(ctx)
	second.Activate(ctx)
	if first.Messages() != nil {
		t.Fatal("inactive chat sees the window")
	}
	first.Close()
	if _, _, ok := s.ActiveChat(); !ok {
		t.Fatal("closing an inactive chat closed the active one")
	}
}

func TestSendTextIgnoresBlank(t *testing.T) {
	eng := &fakeEngine{}
	vm := NewChat(newStore(t, eng), 1, 0, 0, zap.NewNop())
	vm.SendText("   ")
	vm.SendText("hi")
	if n := eng.count("sendMessage"); n != 1 {
		t.Fatalf("sendMessage count = %d, want 1", n)
	}
}

func TestSenderNames(t *testing.T) {
	eng := &fakeEngine{handle: func(req engine.Request) (any, error) {
		switch r := req.(type) {
		case engine.GetChatHistory:
			return engine.Messages{Messages: []engine.Message{
				{ID: 1, ChatID: 1, Sender: engine.SenderUser{UserID: 10}},
				{ID: 2, ChatID: 1, Sender: engine.SenderUser{UserID: 11}},
				{ID: 3, ChatID: 1, Sender: engine.SenderUser{UserID: 12}},
				{ID: 4, ChatID: 1, Sender: engine.SenderChat{ChatID: 50}},
				{ID: 5, ChatID: 1, Sender: engine.SenderChat{ChatID: 51}},
				{ID: 6, ChatID: 1, Sender: engine.SenderUser{UserID: 99}, IsOutgoing: true},
				{ID: 7, ChatID: 1, Sender: engine.SenderUser{UserID: 10}},
			}}, nil
		case engine.GetUser:
			switch r.UserID {
			case 10:
				return engine.User{ID: 10, FirstName: "Ada", LastName: "Lovelace"}, nil
			case 11:
				return engine.User{ID: 11}, nil
			}
			return nil, engine.Errorf(404, "user not found")
		case engine.GetChat:
			if r.ChatID == 50 {
				return &engine.Chat{ID: 50, Title: "News"}, nil
			}
			if r.ChatID == 1 {
				return &engine.Chat{ID: 1, Title: "Group"}, nil
			}
			return nil, engine.Errorf(404, "chat not found")
		}
		return engine.Ok{}, nil
	}}
	vm := NewChat(newStore(t, eng), 1, 0, 0, zap.NewNop())
	ctx := context.Background()
	vm.Activate(ctx)

	if name := vm.SenderName(engine.Message{Sender: engine.SenderUser{UserID: 10}}); name != "..." {
		t.Fatalf("unresolved name = %q", name)
	}
	if !vm.ResolveNames(ctx) {
		t.Fatal("nothing resolved")
	}

	want := map[string]string{
		"user:10": "Ada Lovelace",
		"user:11": "User",
		"user:12": "Unknown User",
		"chat:50": "News",
		"chat:51": "Unknown Chat",
	}
	got := vm.SenderNames()
	if len(got) != len(want) {
		t.Fatalf("names = %v", got)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %q, want %q", k, got[k], v)
		}
	}
	if eng.count("getUser") != 3 {
		t.Errorf("getUser count = %d, want 3", eng.count("getUser"))
	}
	if vm.ResolveNames(ctx) {
		t.Error("second pass resolved again")
	}
	if vm.SenderName(engine.Message{IsOutgoing: true}) != "" {
		t.Error("outgoing message has a sender name")
	}
}

func TestTopicNames(t *testing.T) {
	eng := &fakeEngine{handle: func(req engine.Request) (any, error) {
		switch r := req.(type) {
		case engine.GetChat:
			return &engine.Chat{ID: r.ChatID, Title: "Forum", IsForum: true}, nil
		case engine.GetChatHistory:
			return engine.Messages{Messages: []engine.Message{
				{ID: 1, ChatID: 1, ThreadID: 5, IsOutgoing: true},
				{ID: 2, ChatID: 1, ThreadID: 6, IsOutgoing: true},
			}}, nil
		case engine.GetForumTopic:
			if r.ThreadID == 5 {
				return engine.ForumTopic{ThreadID: 5, Name: "General"}, nil
			}
			return nil, engine.Errorf(400, "TOPIC_ID_INVALID")
		}
		return engine.Ok{}, nil
	}}
	vm := NewChat(newStore(t, eng), 1, 0, 0, zap.NewNop())
	ctx := context.Background()
	vm.Activate(ctx)
	vm.ResolveNames(ctx)

	if got := vm.TopicName(5); got != "General" {
		t.Errorf("topic 5 = %q", got)
	}
	if got := vm.TopicName(6); got != "Unknown Topic" {
		t.Errorf("topic 6 = %q", got)
	}
}

func TestTopicNamesOnlyInForumOverview(t *testing.T) {
	tests := []struct {
		name     string
		isForum  bool
		threadID int64
	}{
		{"plain chat", false, 0},
		{"forum thread", true, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := &fakeEngine{handle: func(req engine.Request) (any, error) {
				switch r := req.(type) {
				case engine.GetChat:
					return &engine.Chat{ID: r.ChatID, Title: "Chat", IsForum: tt.isForum}, nil
				case engine.GetChatHistory, engine.GetThreadHistory:
					return engine.Messages{Messages: []engine.Message{
						{ID: 1, ChatID: 1, ThreadID: 5, IsOutgoing: true},
					}}, nil
				}
				return engine.Ok{}, nil
			}}
			vm := NewChat(newStore(t, eng), 1, tt.threadID, 0, zap.NewNop())
			ctx := context.Background()
			vm.Activate(ctx)
			vm.ResolveNames(ctx)

			if n := eng.count("getForumTopic"); n != 0 {
				t.Errorf("looked up %d topics, want none", n)
			}
		})
	}
}

func TestForumTopicsLoad(t *testing.T) {
	eng := &fakeEngine{handle: func(req engine.Request) (any, error) {
		switch r := req.(type) {
		case engine.GetChat:
			return &engine.Chat{ID: r.ChatID, Title: "Forum"}, nil
		case engine.GetForumTopics:
			return engine.ForumTopics{TotalCount: 1, Topics: []engine.ForumTopic{{ThreadID: 1, Name: "General"}}}, nil
		}
		return engine.Ok{}, nil
	}}
	vm := NewForumTopics(newStore(t, eng), 7)
	vm.Load(context.Background())
	if vm.Title() != "Forum" || len(vm.Topics()) != 1 {
		t.Fatalf("title=%q topics=%+v", vm.Title(), vm.Topics())
	}
}

func TestStorageLoadAndClear(t *testing.T) {
	size := int64(3 << 20)
	eng := &fakeEngine{handle: func(req engine.Request) (any, error) {
		switch r := req.(type) {
		case engine.GetStorageStatistics:
			return engine.StorageStatistics{Size: size, Count: 4}, nil
		case engine.OptimizeStorage:
			if r.TTL != 0 || r.SizeLimit != 0 {
				return nil, engine.Errorf(400, "bad request")
			}
			return engine.StorageStatistics{}, nil
		}
		return engine.Ok{}, nil
	}}
	vm := NewStorage(newStore(t, eng))
	ctx := context.Background()

	vm.Load(ctx)
	if vm.Stats() == nil || !vm.CanClear() {
		t.Fatal("stats not loaded")
	}
	if got := FormatSize(vm.Stats().Size); got != "3.0 MiB" {
		t.Errorf("FormatSize = %q", got)
	}
	vm.ClearAll(ctx)
	if vm.Stats().Size != 0 || vm.CanClear() {
		t.Fatalf("after clear: %+v", vm.Stats())
	}
}

func TestPrivacyVerificationBot(t *testing.T) {
	eng := &fakeEngine{handle: func(req engine.Request) (any, error) {
		switch r := req.(type) {
		case engine.SearchPublicChat:
			if r.Username == "AgeBot" {
				return &engine.Chat{ID: 77, Title: "Age Bot"}, nil
			}
			return nil, engine.Errorf(400, "USERNAME_NOT_OCCUPIED")
		case engine.GetOption:
			return engine.OptionValue{Name: r.Name, Value: true}, nil
		}
		return engine.Ok{}, nil
	}}
	s := newStore(t, eng)
	vm := NewPrivacy(s)
	ctx := context.Background()

	if vm.VerificationBot() != "VerifyBot" {
		t.Errorf("default bot = %q", vm.VerificationBot())
	}
	if _, ok := vm.OpenVerificationBot(ctx); ok {
		t.Error("default bot unexpectedly resolved")
	}
	s.Apply(engine.UpdateAgeVerification{BotUsername: "AgeBot", MinAge: 18})
	if id, ok := vm.OpenVerificationBot(ctx); !ok || id != 77 {
		t.Errorf("resolved = %d %v", id, ok)
	}
	if !vm.SensitiveContent(ctx) {
		t.Error("option not read")
	}
}

func TestFilesExportUsesLatestStatus(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "cache", "abc.jpg")
	if err := os.MkdirAll(filepath.Dir(src), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(src, []byte("jpeg"), 0o644); err != nil {
		t.Fatal(err)
	}
	eng := &fakeEngine{}
	s := newStore(t, eng)
	vm := NewFiles(s, export.New(filepath.Join(dir, "downloads")))
	msg := engine.Message{ID: 1, ChatID: 1, Content: engine.Photo{Caption: "sunset: day/1", File: engine.File{ID: 7, Size: 4}}}

	if _, err := vm.Export(msg); err != export.ErrNotDownloaded {
		t.Fatalf("export before download: %v", err)
	}
	if !vm.Download(msg) || eng.count("downloadFile") != 1 {
		t.Fatal("download not requested")
	}

	s.Apply(engine.UpdateFile{File: engine.File{ID: 7, Size: 4, Local: engine.LocalFile{
		Path: src, IsDownloadingCompleted: true, DownloadedSize: 4,
	}}})
	dest, err := vm.Export(msg)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(dest) != "sunset_ day_1.jpg" {
		t.Errorf("exported as %q", filepath.Base(dest))
	}
	if vm.Download(msg) {
		t.Error("downloaded file requested again")
	}
}
