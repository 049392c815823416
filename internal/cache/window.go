package cache

import (
	"cmp"
	"slices"

	"github.com/notioff/telesuper/internal/engine"
)

// windowKey identifies the open chat or forum thread.
type windowKey struct {
	chatID   int64
	threadID int64
}

// accepts reports whether a pushed message belongs to the open window.
func (k windowKey) accepts(m engine.Message) bool {
	if m.ChatID != k.chatID {
		return false
	}
	return k.threadID == 0 || m.ThreadID == k.threadID
}

// mergeMessages concatenates front and back, keeps the first occurrence of
// every id and sorts newest first. Neither input is modified.
func mergeMessages(front, back []engine.Message) []engine.Message {
	seen := make(map[int64]struct{}, len(front)+len(back))
	out := make([]engine.Message, 0, len(front)+len(back))
	for _, src := range [][]engine.Message{front, back} {
		for _, m := range src {
			if _, dup := seen[m.ID]; dup {
				continue
			}
			seen[m.ID] = struct{}{}
			out = append(out, m.Clone())
		}
	}
	slices.SortStableFunc(out, func(a, b engine.Message) int {
		if c := cmp.Compare(b.Date, a.Date); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out
}
