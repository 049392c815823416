package engine

import (
	"context"
	"errors"
	"testing"
)

type stubEngine struct {
	resp <-chan Response
}

func (s stubEngine) Send(Request) <-chan Response { return s.resp }
func (s stubEngine) Updates() <-chan Update        { return nil }
func (s stubEngine) Close() error                  { return nil }

func TestCall(t *testing.T) {
	ctx := context.Background()

	got, err := Call[User](ctx, stubEngine{Respond(User{ID: 3}, nil)}, GetUser{UserID: 3})
	if err != nil || got.ID != 3 {
		t.Fatalf("Call = %+v, %v", got, err)
	}

	_, err = Call[User](ctx, stubEngine{Respond(nil, Errorf(404, "not found"))}, GetUser{})
	var engErr *Error
	if !errors.As(err, &engErr) || engErr.Code != 404 {
		t.Fatalf("expected engine error, got %v", err)
	}

	if _, err := Call[User](ctx, stubEngine{Respond(Ok{}, nil)}, GetUser{}); err == nil {
		t.Fatal("expected type mismatch error")
	}

	if _, err := Call[User](ctx, nil, GetUser{}); err == nil {
		t.Fatal("expected error for nil engine")
	}

	closed := make(chan Response)
	close(closed)
	if _, err := Call[User](ctx, stubEngine{closed}, GetUser{}); err == nil {
		t.Fatal("expected error for closed channel")
	}

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := Call[User](cctx, stubEngine{make(chan Response)}, GetUser{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSummary(t *testing.T) {
	tests := []struct {
		content Content
		want    string
	}{
		{Text{Text: "hello"}, "hello"},
		{Photo{}, "[Photo]"},
		{Photo{Caption: "beach"}, "[Photo] beach"},
		{Document{FileName: "a.pdf"}, "[File] a.pdf"},
		{VoiceNote{Duration: 75}, "[Voice 1:15]"},
		{Audio{Title: "Song"}, "[Audio] Song"},
		{Audio{FileName: "s.mp3"}, "[Audio] s.mp3"},
		{Sticker{Emoji: "👍"}, "[Sticker] 👍"},
		{Poll{Question: "lunch?"}, "[Poll] lunch?"},
		{Unsupported{}, "[Unsupported message]"},
		{nil, "[Unsupported message]"},
	}
	for _, tt := range tests {
		if got := Summary(tt.content); got != tt.want {
			t.Errorf("Summary(%#v) = %q, want %q", tt.content, got, tt.want)
		}
	}
}

func TestContentFile(t *testing.T) {
	f, name, ok := ContentFile(Document{FileName: "r.pdf", File: File{ID: 4}})
	if !ok || f.ID != 4 || name != "r.pdf" {
		t.Fatalf("ContentFile(document) = %+v %q %v", f, name, ok)
	}
	if _, _, ok := ContentFile(Text{Text: "x"}); ok {
		t.Fatal("text has no file")
	}
}

func TestFileProgress(t *testing.T) {
	tests := []struct {
		file File
		want int
	}{
		{File{Size: 200, Local: LocalFile{DownloadedSize: 50}}, 25},
		{File{ExpectedSize: 100, Local: LocalFile{DownloadedSize: 100}}, 100},
		{File{Size: 10, Local: LocalFile{DownloadedSize: 20}}, 100},
		{File{}, 0},
	}
	for _, tt := range tests {
		if got := tt.file.Progress(); got != tt.want {
			t.Errorf("Progress(%+v) = %d, want %d", tt.file, got, tt.want)
		}
	}
}

func TestChatPositionByList(t *testing.T) {
	c := &Chat{Positions: []ChatPosition{
		{List: MainList, Order: 1},
		{List: FolderList(2), Order: 5, IsPinned: true},
	}}
	if p, ok := c.Position(FolderList(2)); !ok || p.Order != 5 {
		t.Fatalf("folder 2 position = %+v %v", p, ok)
	}
	if _, ok := c.Position(FolderList(3)); ok {
		t.Fatal("folder 3 should not match")
	}
	if !c.IsPinned() {
		t.Fatal("expected pinned")
	}

	cp := c.Clone()
	cp.Positions[0].Order = 9
	if c.Positions[0].Order != 1 {
		t.Fatal("clone shares positions")
	}
}
