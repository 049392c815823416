package bus

import "time"

// Event kinds announced by the cache. Subscribers use "cache." to get all.
const (
	CacheAuth     = "cache.auth"
	CacheChats    = "cache.chats"
	CacheMessages = "cache.messages"
	CacheFiles    = "cache.files"
	CacheFolders  = "cache.folders"
	CacheUsers    = "cache.users"
	CacheError    = "cache.error"
	CachePrivacy  = "cache.privacy"
)

// Event represents a change notification published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// NewEvent stamps an event with the current time.
func NewEvent(kind string, payload any) Event {
	return Event{Kind: kind, Timestamp: time.Now(), Payload: payload}
}
