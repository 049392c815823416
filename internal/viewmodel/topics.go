package viewmodel

import (
	"context"
	"slices"
	"sync"

	"github.com/notioff/telesuper/internal/cache"
	"github.com/notioff/telesuper/internal/engine"
)

const topicsLimit = 100

// ForumTopics lists the threads of a forum chat.
type ForumTopics struct {
	store  *cache.Store
	chatID int64

	mu     sync.Mutex
	title  string
	topics []engine.ForumTopic
}

func NewForumTopics(store *cache.Store, chatID int64) *ForumTopics {
	return &ForumTopics{store: store, chatID: chatID}
}

// Load fetches the chat title and the topic list. A failed request keeps
// what was loaded before.
func (v *ForumTopics) Load(ctx context.Context) {
	if chat := v.store.ChatInfo(ctx, v.chatID); chat != nil {
		v.mu.Lock()
		v.title = chat.Title
		v.mu.Unlock()
	}
	if topics := v.store.ForumTopics(ctx, v.chatID, topicsLimit); topics != nil {
		v.mu.Lock()
		v.topics = topics
		v.mu.Unlock()
	}
}

func (v *ForumTopics) ChatID() int64 { return v.chatID }

func (v *ForumTopics) Title() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.title
}

func (v *ForumTopics) Topics() []engine.ForumTopic {
	v.mu.Lock()
	defer v.mu.Unlock()
	return slices.Clone(v.topics)
}
