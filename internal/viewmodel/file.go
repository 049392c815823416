package viewmodel

import (
	"path/filepath"

	"github.com/notioff/telesuper/internal/cache"
	"github.com/notioff/telesuper/internal/engine"
	"github.com/notioff/telesuper/internal/export"
)

// Files downloads message media and exports finished downloads.
type Files struct {
	store    *cache.Store
	exporter *export.Exporter
}

func NewFiles(store *cache.Store, exporter *export.Exporter) *Files {
	return &Files{store: store, exporter: exporter}
}

// Status returns the latest known status of the message's file. A file
// never seen in an update falls back to the copy inside the message.
func (v *Files) Status(m engine.Message) (engine.File, bool) {
	f, _, ok := engine.ContentFile(m.Content)
	if !ok {
		return engine.File{}, false
	}
	if latest, ok := v.store.File(f.ID); ok {
		return latest, true
	}
	return f, true
}

// Download starts downloading the message's file.
func (v *Files) Download(m engine.Message) bool {
	f, ok := v.Status(m)
	if !ok || f.Downloaded() {
		return false
	}
	v.store.DownloadFile(f.ID, 1)
	return true
}

// Export copies the downloaded file to the downloads directory under a
// caption-derived name and returns the destination.
func (v *Files) Export(m engine.Message) (string, error) {
	f, ok := v.Status(m)
	if !ok {
		return "", export.ErrNotDownloaded
	}
	_, original, _ := engine.ContentFile(m.Content)
	if original == "" {
		original = filepath.Base(f.Local.Path)
	}
	name := ""
	if caption := engine.Caption(m.Content); caption != "" {
		name = export.EffectiveFileName(caption, original)
	}
	return v.exporter.Export(f, name)
}
