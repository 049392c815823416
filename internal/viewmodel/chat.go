package viewmodel

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/notioff/telesuper/internal/cache"
	"github.com/notioff/telesuper/internal/engine"
)

// DefaultPageSize is the number of messages requested per history page.
const DefaultPageSize = 50

// Name placeholders shown while a name resolves or after it failed.
const (
	pendingName  = "..."
	blankUser    = "User"
	unknownUser  = "Unknown User"
	unknownChat  = "Unknown Chat"
	unknownTopic = "Unknown Topic"
)

// Chat is one open chat or forum thread.
type Chat struct {
	store    *cache.Store
	logger   *zap.Logger
	chatID   int64
	threadID int64
	pageSize int

	mu         sync.Mutex
	info       *engine.Chat
	loading    bool
	endReached bool
	senders    map[string]string
	topics     map[int64]string
}

func NewChat(store *cache.Store, chatID, threadID int64, pageSize int, logger *zap.Logger) *Chat {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Chat{
		store:    store,
		logger:   logger,
		chatID:   chatID,
		threadID: threadID,
		pageSize: pageSize,
		senders:  make(map[string]string),
		topics:   make(map[int64]string),
	}
}

func (c *Chat) ChatID() int64   { return c.chatID }
func (c *Chat) ThreadID() int64 { return c.threadID }

// Activate opens the chat, loads its info and the newest page.
func (c *Chat) Activate(ctx context.Context) {
	c.mu.Lock()
	c.endReached = false
	c.mu.Unlock()

	c.store.OpenChat(c.chatID, c.threadID)
	info := c.store.ChatInfo(ctx, c.chatID)
	c.mu.Lock()
	c.info = info
	c.mu.Unlock()
	c.load(ctx, 0)
}

// LoadMore fetches the page before the oldest loaded message. Only one load
// runs at a time, and none after the history end was reached.
func (c *Chat) LoadMore(ctx context.Context) {
	msgs := c.Messages()
	var from int64
	if len(msgs) > 0 {
		from = msgs[len(msgs)-1].ID
	}
	c.load(ctx, from)
}

func (c *Chat) load(ctx context.Context, from int64) {
	c.mu.Lock()
	if c.loading || c.endReached {
		c.mu.Unlock()
		return
	}
	c.loading = true
	c.mu.Unlock()

	n := c.store.LoadMessages(ctx, c.chatID, c.threadID, from, c.pageSize)

	c.mu.Lock()
	c.loading = false
	if n == 0 {
		c.endReached = true
	}
	c.mu.Unlock()
}

func (c *Chat) EndReached() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.endReached
}

func (c *Chat) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Info returns the chat as loaded on activation.
func (c *Chat) Info() *engine.Chat {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.info
}

// Title returns the chat title, or a placeholder before it loaded.
func (c *Chat) Title() string {
	if info := c.Info(); info != nil {
		return info.Title
	}
	return fmt.Sprintf("Chat %d", c.chatID)
}

// Messages returns the window if this chat is the active one.
func (c *Chat) Messages() []engine.Message {
	chatID, threadID, ok := c.store.ActiveChat()
	if !ok || chatID != c.chatID || threadID != c.threadID {
		return nil
	}
	return c.store.Messages()
}

func (c *Chat) SendText(text string) {
	c.store.SendText(c.chatID, c.threadID, text)
}

func (c *Chat) SendMedia(path, mimeType, caption string) {
	c.store.SendMedia(c.chatID, c.threadID, path, mimeType, caption)
}

// Close releases the chat if it is still the active window.
func (c *Chat) Close() {
	c.store.CloseChat(c.chatID, c.threadID)
}

func senderKey(s engine.MessageSender) string {
	switch v := s.(type) {
	case engine.SenderUser:
		return fmt.Sprintf("user:%d", v.UserID)
	case engine.SenderChat:
		return fmt.Sprintf("chat:%d", v.ChatID)
	default:
		return ""
	}
}

// SenderName returns the memoised display name of the message's sender.
// Outgoing messages have no sender name.
func (c *Chat) SenderName(m engine.Message) string {
	if m.IsOutgoing {
		return ""
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if name, ok := c.senders[senderKey(m.Sender)]; ok {
		return name
	}
	return pendingName
}

// TopicName returns the memoised name of a forum topic.
func (c *Chat) TopicName(threadID int64) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if name, ok := c.topics[threadID]; ok {
		return name
	}
	return pendingName
}

// SenderNames returns a copy of the resolved sender names.
func (c *Chat) SenderNames() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return maps.Clone(c.senders)
}

// ResolveNames resolves every sender and topic in the window that has not
// been looked up yet. Each one is looked up once; it reports whether any
// new name was stored.
func (c *Chat) ResolveNames(ctx context.Context) bool {
	isForum := false
	if info := c.Info(); info != nil {
		isForum = info.IsForum
	}

	var senders []engine.MessageSender
	var topics []int64
	c.mu.Lock()
	for _, m := range c.Messages() {
		if isForum && c.threadID == 0 && m.ThreadID != 0 {
			if _, ok := c.topics[m.ThreadID]; !ok {
				c.topics[m.ThreadID] = pendingName
				topics = append(topics, m.ThreadID)
			}
		}
		if m.IsOutgoing || m.Sender == nil {
			continue
		}
		key := senderKey(m.Sender)
		if _, ok := c.senders[key]; !ok {
			c.senders[key] = pendingName
			senders = append(senders, m.Sender)
		}
	}
	c.mu.Unlock()

	for _, s := range senders {
		name := c.lookupSender(ctx, s)
		c.mu.Lock()
		c.senders[senderKey(s)] = name
		c.mu.Unlock()
	}
	for _, id := range topics {
		name := unknownTopic
		if t := c.store.ForumTopic(ctx, c.chatID, id); t != nil {
			name = t.Name
		}
		c.mu.Lock()
		c.topics[id] = name
		c.mu.Unlock()
	}
	return len(senders) > 0 || len(topics) > 0
}

func (c *Chat) lookupSender(ctx context.Context, s engine.MessageSender) string {
	switch v := s.(type) {
	case engine.SenderUser:
		u := c.store.User(ctx, v.UserID)
		if u == nil {
			return unknownUser
		}
		if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
			return name
		}
		return blankUser
	case engine.SenderChat:
		chat := c.store.ChatInfo(ctx, v.ChatID)
		if chat == nil {
			return unknownChat
		}
		return chat.Title
	default:
		return unknownUser
	}
}
