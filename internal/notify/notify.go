package notify

import (
	"fmt"
	"sync"

	"github.com/gen2brain/beeep"
	"go.uber.org/zap"
)

// progressStep is the percentage granularity of progress notifications.
// Desktop notifications cannot be updated in place, so every step is a new one.
const progressStep = 25

// queueSize bounds notifications waiting for delivery; more are dropped.
const queueSize = 32

type note struct {
	title   string
	message string
}

// Downloads shows desktop notifications for file downloads. Delivery runs
// on its own goroutine so a slow notification daemon never blocks the
// caller. Failures to notify (no notification daemon, denied permission)
// are logged and skipped.
type Downloads struct {
	enabled bool
	send    func(title, message string) error
	logger  *zap.Logger

	start sync.Once
	queue chan note

	mu   sync.Mutex
	last map[int32]int  // last notified step per file
	done map[int32]bool // completion already notified
}

// NewDownloads creates a notifier. A disabled notifier is a no-op.
func NewDownloads(enabled bool, logger *zap.Logger) *Downloads {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Downloads{
		enabled: enabled,
		send: func(title, message string) error {
			return beeep.Notify(title, message, "")
		},
		logger: logger,
		queue:  make(chan note, queueSize),
		last:   make(map[int32]int),
		done:   make(map[int32]bool),
	}
}

// DownloadProgress reports progress, notifying once per progress step.
func (d *Downloads) DownloadProgress(fileID int32, percent int, title string) {
	if d == nil || !d.enabled {
		return
	}
	step := percent / progressStep
	d.mu.Lock()
	delete(d.done, fileID)
	prev, seen := d.last[fileID]
	if seen && step <= prev {
		d.mu.Unlock()
		return
	}
	d.last[fileID] = step
	d.mu.Unlock()

	d.enqueue(note{title: "Downloading: " + title, message: fmt.Sprintf("%d%%", percent)})
}

// DownloadComplete reports a finished download once, until the file
// starts downloading again.
func (d *Downloads) DownloadComplete(fileID int32, title string) {
	if d == nil || !d.enabled {
		return
	}
	d.mu.Lock()
	delete(d.last, fileID)
	if d.done[fileID] {
		d.mu.Unlock()
		return
	}
	d.done[fileID] = true
	d.mu.Unlock()

	d.enqueue(note{title: "Download complete: " + title, message: "File ready"})
}

func (d *Downloads) enqueue(n note) {
	d.start.Do(func() { go d.deliver() })
	select {
	case d.queue <- n:
	default:
		d.logger.Debug("notification dropped, queue full", zap.String("title", n.title))
	}
}

func (d *Downloads) deliver() {
	for n := range d.queue {
		if err := d.send(n.title, n.message); err != nil {
			d.logger.Debug("desktop notification failed", zap.String("title", n.title), zap.Error(err))
		}
	}
}
