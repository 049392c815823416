package viewmodel

import (
	"context"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/notioff/telesuper/internal/cache"
	"github.com/notioff/telesuper/internal/engine"
)

const storageChatLimit = 50

// Storage shows local file usage and clears the cache.
type Storage struct {
	store *cache.Store

	mu       sync.Mutex
	stats    *engine.StorageStatistics
	loading  bool
	clearing bool
}

func NewStorage(store *cache.Store) *Storage {
	return &Storage{store: store}
}

// Load refreshes the statistics. On failure the previous ones are kept.
func (v *Storage) Load(ctx context.Context) {
	v.mu.Lock()
	v.loading = true
	v.mu.Unlock()

	stats := v.store.StorageStatistics(ctx, storageChatLimit)

	v.mu.Lock()
	defer v.mu.Unlock()
	v.loading = false
	if stats != nil {
		v.stats = stats
	}
}

// ClearAll removes every cached file the engine can delete.
func (v *Storage) ClearAll(ctx context.Context) {
	v.mu.Lock()
	if v.clearing {
		v.mu.Unlock()
		return
	}
	v.clearing = true
	v.mu.Unlock()

	stats := v.store.OptimizeStorage(ctx, engine.OptimizeStorage{ChatLimit: storageChatLimit})

	v.mu.Lock()
	defer v.mu.Unlock()
	v.clearing = false
	if stats != nil {
		v.stats = stats
	}
}

func (v *Storage) Stats() *engine.StorageStatistics {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stats
}

func (v *Storage) Busy() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loading || v.clearing
}

// CanClear reports whether there is anything to clear.
func (v *Storage) CanClear() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return !v.clearing && v.stats != nil && v.stats.Size > 0
}

// FormatSize renders a byte count for display.
func FormatSize(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}
