package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/notioff/telesuper/internal/engine"
)

var (
	ErrNotDownloaded = errors.New("file not downloaded")
	ErrSourceMissing = errors.New("source file not found")
)

const maxCaptionRunes = 75

var unsafeChars = strings.NewReplacer(
	`\`, "_", "/", "_", ":", "_", "*", "_", "?", "_",
	`"`, "_", "<", "_", ">", "_", "|", "_", "\n", "_",
)

// EffectiveFileName derives an export name from a caption, keeping the
// original file's extension. A blank caption keeps the original name.
func EffectiveFileName(caption, original string) string {
	if strings.TrimSpace(caption) == "" {
		return original
	}
	runes := []rune(caption)
	if len(runes) > maxCaptionRunes {
		runes = runes[:maxCaptionRunes]
	}
	base := strings.TrimSpace(unsafeChars.Replace(string(runes)))

	ext := ""
	if i := strings.LastIndexByte(original, '.'); i >= 0 {
		ext = original[i+1:]
	}
	if ext == "" {
		return base
	}
	return base + "." + ext
}

// Exporter copies downloaded files into a user-visible directory.
type Exporter struct {
	Dir string
}

// New returns an exporter writing into dir.
func New(dir string) *Exporter {
	return &Exporter{Dir: dir}
}

// Export copies f into the export directory under name, overwriting any
// existing file. An empty name falls back to a name derived from the file id.
// It returns the destination path.
func (e *Exporter) Export(f engine.File, name string) (string, error) {
	if !f.Downloaded() {
		return "", ErrNotDownloaded
	}
	src, err := os.Open(f.Local.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrSourceMissing
		}
		return "", fmt.Errorf("open source: %w", err)
	}
	defer func() { _ = src.Close() }()

	if name == "" {
		name = fmt.Sprintf("TelegramFile_%d%s", f.ID, filepath.Ext(f.Local.Path))
	}
	name = filepath.Base(name)

	if err := os.MkdirAll(e.Dir, 0755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	destPath := filepath.Join(e.Dir, name)
	dst, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return "", fmt.Errorf("create destination: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return "", fmt.Errorf("copy: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("close destination: %w", err)
	}
	return destPath, nil
}
