package notify

import (
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

const flushTitle = "Downloading: flush"

type recorder struct {
	mu     sync.Mutex
	titles []string
	err    error
	block  chan struct{}
}

func (r *recorder) send(title, _ string) error {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.titles = append(r.titles, title)
	return r.err
}

func newTestDownloads(enabled bool) (*Downloads, *recorder) {
	r := &recorder{}
	d := NewDownloads(enabled, zap.NewNop())
	d.send = r.send
	return d, r
}

// flush waits until everything queued so far has been delivered and
// returns the delivered titles. Delivery is in order, so a marker
// notification arriving means all earlier ones did.
func flush(t *testing.T, d *Downloads, r *recorder) []string {
	t.Helper()
	d.DownloadProgress(-1, 0, "flush")
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		r.mu.Lock()
		n := len(r.titles)
		if n > 0 && r.titles[n-1] == flushTitle {
			out := append([]string(nil), r.titles[:n-1]...)
			r.titles = r.titles[:0]
			r.mu.Unlock()
			d.mu.Lock()
			delete(d.last, -1)
			d.mu.Unlock()
			return out
		}
		r.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("timed out waiting for notifications")
	return nil
}

func TestProgressThrottledBySteps(t *testing.T) {
	d, r := newTestDownloads(true)

	for _, p := range []int{0, 3, 10, 24, 25, 30, 49, 50, 99} {
		d.DownloadProgress(7, p, "File 7")
	}
	// Steps 0, 1 (25%), 2 (50%), 3 (99%).
	if got := flush(t, d, r); len(got) != 4 {
		t.Errorf("got %d notifications, want 4: %v", len(got), got)
	}
}

func TestCompleteNotifiesOnce(t *testing.T) {
	tests := []struct {
		name     string
		progress bool
		want     []string
	}{
		{"after progress", true, []string{"Downloading: File 7", "Download complete: File 7"}},
		{"without progress", false, []string{"Download complete: File 7"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, r := newTestDownloads(true)
			if tt.progress {
				d.DownloadProgress(7, 10, "File 7")
			}
			d.DownloadComplete(7, "File 7")
			// A second completion for the same file is not repeated.
			d.DownloadComplete(7, "File 7")

			got := flush(t, d, r)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("notification %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestRedownloadNotifiesAgain(t *testing.T) {
	d, r := newTestDownloads(true)
	d.DownloadComplete(7, "File 7")
	d.DownloadProgress(7, 0, "File 7")
	d.DownloadComplete(7, "File 7")
	if got := flush(t, d, r); len(got) != 3 {
		t.Errorf("got %d notifications, want 3: %v", len(got), got)
	}
}

func TestFilesAreIndependent(t *testing.T) {
	d, r := newTestDownloads(true)

	d.DownloadProgress(1, 0, "File 1")
	d.DownloadProgress(2, 0, "File 2")
	if got := flush(t, d, r); len(got) != 2 {
		t.Errorf("got %d notifications, want 2", len(got))
	}
}

func TestDisabledIsNoop(t *testing.T) {
	d, r := newTestDownloads(false)
	d.DownloadProgress(1, 50, "File 1")
	d.DownloadComplete(1, "File 1")
	time.Sleep(20 * time.Millisecond)
	r.mu.Lock()
	n := len(r.titles)
	r.mu.Unlock()
	if n != 0 {
		t.Errorf("disabled notifier sent %d notifications", n)
	}

	var nilNotifier *Downloads
	nilNotifier.DownloadProgress(1, 1, "x")
	nilNotifier.DownloadComplete(1, "x")
}

func TestSendErrorsSkipped(t *testing.T) {
	d, r := newTestDownloads(true)
	r.err = errors.New("permission denied")
	d.DownloadProgress(3, 0, "File 3")
	d.DownloadComplete(3, "File 3")
	if got := flush(t, d, r); len(got) != 2 {
		t.Errorf("got %d attempts, want 2", len(got))
	}
}

func TestSlowSendDoesNotBlock(t *testing.T) {
	d, r := newTestDownloads(true)
	r.block = make(chan struct{})

	done := make(chan struct{})
	go func() {
		for i := int32(0); i < queueSize*2; i++ {
			d.DownloadComplete(i, "File")
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("notifier blocked its caller")
	}
	close(r.block)
}
