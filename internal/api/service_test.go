package api

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/notioff/telesuper/internal/bus"
	"github.com/notioff/telesuper/internal/cache"
	"github.com/notioff/telesuper/internal/engine"
)

type fakeFacade struct {
	bus *bus.Bus

	mu        sync.Mutex
	selector  cache.Selector
	opened    int64
	sent      []string
	loggedOut bool
	relinked  bool
	stats     *engine.StorageStatistics
}

func (f *fakeFacade) AuthState() engine.AuthState {
	return engine.AuthState{Kind: engine.AuthWaitOtherDevice, Link: "qr-code"}
}
func (f *fakeFacade) LastError() string { return "" }

func (f *fakeFacade) Chats() []engine.Chat {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := []engine.Chat{
		{ID: 1, Title: "Alice", Type: engine.ChatPrivate, UnreadCount: 2,
			LastMessage: &engine.Message{ID: 9, Date: 100, Content: engine.Text{Text: "hi"}}},
		{ID: 2, Title: "Team", Type: engine.ChatBasicGroup,
			Positions: []engine.ChatPosition{{List: engine.MainList, Order: 5, IsPinned: true}}},
	}
	var out []engine.Chat
	for _, c := range all {
		if f.selector.Matches(c.Type) {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeFacade) SelectChatList(sel cache.Selector) {
	f.mu.Lock()
	f.selector = sel
	f.mu.Unlock()
}

func (f *fakeFacade) OpenChat(chatID, _ int64) {
	f.mu.Lock()
	f.opened = chatID
	f.mu.Unlock()
}

func (f *fakeFacade) LoadMessages(context.Context, int64, int64, int64, int) int { return 1 }

func (f *fakeFacade) Messages() []engine.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return []engine.Message{{ID: 3, ChatID: f.opened, Date: 50, Sender: engine.SenderUser{UserID: 7}, Content: engine.Photo{Caption: "beach"}}}
}

func (f *fakeFacade) SendText(chatID, _ int64, text string) {
	f.mu.Lock()
	f.sent = append(f.sent, text)
	f.mu.Unlock()
}

func (f *fakeFacade) StorageStatistics(context.Context, int) *engine.StorageStatistics { return f.stats }

func (f *fakeFacade) LogOut() {
	f.mu.Lock()
	f.loggedOut = true
	f.mu.Unlock()
}

func (f *fakeFacade) Reconnect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.relinked {
		return errors.New("already linked")
	}
	f.relinked = true
	return nil
}

func (f *fakeFacade) Subscribe(namespace string, bufSize int) (<-chan bus.Event, func()) {
	return f.bus.Subscribe(namespace, bufSize)
}

func startServer(t *testing.T, facade Facade) *Client {
	t.Helper()
	// Short path to stay under the Unix socket path limit.
	dir, err := os.MkdirTemp("/tmp", "tsapi-*")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	lis, err := net.Listen("unix", filepath.Join(dir, "d.sock"))
	if err != nil {
		t.Fatal(err)
	}
	srv := grpc.NewServer()
	RegisterFacadeServer(srv, NewService("test", facade, zap.NewNop()))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	client, err := Dial(filepath.Join(dir, "d.sock"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestGetStatus(t *testing.T) {
	client := startServer(t, &fakeFacade{bus: bus.New()})

	resp, err := client.GetStatus(testContext(t))
	if err != nil {
		t.Fatal(err)
	}
	f := resp.GetFields()
	if f["session"].GetStringValue() != "test" {
		t.Errorf("session = %v", f["session"])
	}
	if f["auth_state"].GetStringValue() != engine.AuthWaitOtherDevice.String() || f["link"].GetStringValue() != "qr-code" {
		t.Errorf("auth = %v, %v", f["auth_state"], f["link"])
	}
	if f["chat_count"].GetNumberValue() != 2 {
		t.Errorf("chat_count = %v", f["chat_count"])
	}
}

func TestListChats(t *testing.T) {
	facade := &fakeFacade{bus: bus.New()}
	client := startServer(t, facade)
	ctx := testContext(t)

	resp, err := client.ListChats(ctx, "groups", 0)
	if err != nil {
		t.Fatal(err)
	}
	chats := resp.GetFields()["chats"].GetListValue().GetValues()
	if len(chats) != 1 {
		t.Fatalf("chats = %v", chats)
	}
	team := chats[0].GetStructValue().GetFields()
	if team["title"].GetStringValue() != "Team" || !team["pinned"].GetBoolValue() {
		t.Errorf("team = %v", team)
	}
	if resp.GetFields()["selector"].GetStringValue() != "Groups" {
		t.Errorf("selector = %v", resp.GetFields()["selector"])
	}

	resp, err = client.ListChats(ctx, "", 1)
	if err != nil {
		t.Fatal(err)
	}
	chats = resp.GetFields()["chats"].GetListValue().GetValues()
	if len(chats) != 1 || chats[0].GetStructValue().GetFields()["last_message"].GetStringValue() != "hi" {
		t.Errorf("limited = %v", chats)
	}

	_, err = client.ListChats(ctx, "bogus", 0)
	if grpcstatus.Code(err) != codes.InvalidArgument {
		t.Errorf("bogus selector = %v", err)
	}
}

func TestListMessagesAndSend(t *testing.T) {
	facade := &fakeFacade{bus: bus.New()}
	client := startServer(t, facade)
	ctx := testContext(t)

	resp, err := client.ListMessages(ctx, 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	msgs := resp.GetFields()["messages"].GetListValue().GetValues()
	if len(msgs) != 1 {
		t.Fatalf("messages = %v", msgs)
	}
	m := msgs[0].GetStructValue().GetFields()
	if m["text"].GetStringValue() != "[Photo] beach" || m["sender_user_id"].GetNumberValue() != 7 || m["chat_id"].GetNumberValue() != 1 {
		t.Errorf("message = %v", m)
	}

	if _, err := client.ListMessages(ctx, 0, 10); grpcstatus.Code(err) != codes.InvalidArgument {
		t.Errorf("missing chat = %v", err)
	}

	if _, err := client.SendText(ctx, 1, "hello"); err != nil {
		t.Fatal(err)
	}
	if _, err := client.SendText(ctx, 1, "  "); grpcstatus.Code(err) != codes.InvalidArgument {
		t.Errorf("blank text = %v", err)
	}
	facade.mu.Lock()
	defer facade.mu.Unlock()
	if len(facade.sent) != 1 || facade.sent[0] != "hello" {
		t.Errorf("sent = %v", facade.sent)
	}
}

func TestStorageStatistics(t *testing.T) {
	facade := &fakeFacade{bus: bus.New()}
	client := startServer(t, facade)
	ctx := testContext(t)

	if _, err := client.StorageStatistics(ctx, 5); grpcstatus.Code(err) != codes.Unavailable {
		t.Errorf("no stats = %v", err)
	}

	facade.stats = &engine.StorageStatistics{Size: 40, Count: 2, ByChat: []engine.ChatStatistics{
		{ChatID: 1, Size: 40, Count: 2, ByFileType: []engine.FileTypeStatistics{{FileType: "image", Size: 40, Count: 2}}},
	}}
	resp, err := client.StorageStatistics(ctx, 5)
	if err != nil {
		t.Fatal(err)
	}
	if resp.GetFields()["size"].GetNumberValue() != 40 {
		t.Errorf("stats = %v", resp)
	}
	byChat := resp.GetFields()["by_chat"].GetListValue().GetValues()
	if len(byChat) != 1 {
		t.Fatalf("by_chat = %v", byChat)
	}
}

func TestLogOutAndLink(t *testing.T) {
	facade := &fakeFacade{bus: bus.New()}
	client := startServer(t, facade)
	ctx := testContext(t)

	if _, err := client.LogOut(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := client.Link(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := client.Link(ctx); grpcstatus.Code(err) != codes.Internal {
		t.Errorf("second link = %v", err)
	}
	facade.mu.Lock()
	defer facade.mu.Unlock()
	if !facade.loggedOut {
		t.Error("logout not forwarded")
	}
}

func TestWatchEvents(t *testing.T) {
	b := bus.New()
	client := startServer(t, &fakeFacade{bus: b})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got := make(chan *structpb.Struct, 1)
	done := make(chan error, 1)
	go func() {
		done <- client.WatchEvents(ctx, func(env *structpb.Struct) error {
			got <- env
			return errors.New("stop")
		})
	}()

	// Publish until the subscription is in place.
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case env := <-got:
			f := env.GetFields()
			if f["kind"].GetStringValue() != bus.CacheChats || f["event_id"].GetStringValue() == "" || f["session"].GetStringValue() != "test" {
				t.Errorf("envelope = %v", f)
			}
			if err := <-done; err == nil || err.Error() != "stop" {
				t.Errorf("WatchEvents = %v", err)
			}
			return
		case <-ticker.C:
			b.Emit(bus.CacheChats, 3)
		case <-ctx.Done():
			t.Fatal("no event received")
		}
	}
}
