package export

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/notioff/telesuper/internal/engine"
)

func TestEffectiveFileName(t *testing.T) {
	tests := []struct {
		name     string
		caption  string
		original string
		want     string
	}{
		{"blank caption keeps original", "   ", "video.mp4", "video.mp4"},
		{"caption with extension", "Holiday clip", "video.mp4", "Holiday clip.mp4"},
		{"unsafe chars replaced", `a/b\c:d*e?f"g<h>i|j`, "doc.pdf", "a_b_c_d_e_f_g_h_i_j.pdf"},
		{"newline replaced", "line one\nline two", "x.txt", "line one_line two.txt"},
		{"trimmed", "  padded  ", "x.bin", "padded.bin"},
		{"no extension", "caption", "README", "caption"},
		{"last extension only", "archive", "backup.tar.gz", "archive.gz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EffectiveFileName(tt.caption, tt.original); got != tt.want {
				t.Errorf("EffectiveFileName(%q, %q) = %q, want %q", tt.caption, tt.original, got, tt.want)
			}
		})
	}
}

func TestEffectiveFileNameTruncates(t *testing.T) {
	caption := strings.Repeat("é", 100)
	got := EffectiveFileName(caption, "a.jpg")
	want := strings.Repeat("é", 75) + ".jpg"
	if got != want {
		t.Errorf("got %d runes, want 75 runes plus extension", len([]rune(got)))
	}
}

func downloadedFile(t *testing.T, name, body string) engine.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}
	return engine.File{
		ID:   42,
		Size: int64(len(body)),
		Local: engine.LocalFile{
			Path:                   path,
			IsDownloadingCompleted: true,
			DownloadedSize:         int64(len(body)),
		},
	}
}

func TestExportCopiesFile(t *testing.T) {
	f := downloadedFile(t, "cached.mp4", "payload")
	e := New(filepath.Join(t.TempDir(), "Downloads"))

	dest, err := e.Export(f, "Holiday.mp4")
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if filepath.Base(dest) != "Holiday.mp4" {
		t.Errorf("dest = %q", dest)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "payload" {
		t.Errorf("content = %q, want payload", data)
	}
}

func TestExportDefaultNameAndOverwrite(t *testing.T) {
	f := downloadedFile(t, "cached.jpg", "new")
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "TelegramFile_42.jpg"), []byte("old content"), 0644); err != nil {
		t.Fatal(err)
	}

	dest, err := New(dir).Export(f, "")
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if filepath.Base(dest) != "TelegramFile_42.jpg" {
		t.Errorf("dest = %q, want TelegramFile_42.jpg", dest)
	}
	data, _ := os.ReadFile(dest)
	if string(data) != "new" {
		t.Errorf("content = %q, want overwritten", data)
	}
}

func TestExportRejectsIncompleteFile(t *testing.T) {
	f := engine.File{ID: 1, Local: engine.LocalFile{Path: "/tmp/x", IsDownloadingActive: true}}
	if _, err := New(t.TempDir()).Export(f, ""); !errors.Is(err, ErrNotDownloaded) {
		t.Errorf("err = %v, want ErrNotDownloaded", err)
	}
}

func TestExportMissingSource(t *testing.T) {
	f := engine.File{ID: 1, Local: engine.LocalFile{
		Path:                   filepath.Join(t.TempDir(), "gone.bin"),
		IsDownloadingCompleted: true,
	}}
	if _, err := New(t.TempDir()).Export(f, ""); !errors.Is(err, ErrSourceMissing) {
		t.Errorf("err = %v, want ErrSourceMissing", err)
	}
}
