package store

// ChatKind classifies a chat by its JID server.
type ChatKind string

const (
	KindPrivate ChatKind = "private"
	KindGroup   ChatKind = "group"
	KindChannel ChatKind = "channel"
)

// Chat represents a synced chat.
type Chat struct {
	JID           string
	Name          string
	Kind          ChatKind
	UnreadCount   int
	MarkedUnread  bool
	Pinned        bool
	Archived      bool
	LastMessageAt int64 // unix ms
}

// Contact represents a synced contact.
type Contact struct {
	JID      string
	Name     string
	PushName string
}

// Message represents a synced message. ID is the row id, which doubles as
// the engine message id.
type Message struct {
	ID         int64
	ChatJID    string
	MsgID      string
	SenderJID  string
	SenderName string
	Kind       string
	Body       string
	FromMe     bool
	Status     string
	Timestamp  int64 // unix ms
}

// Media is the downloadable attachment of a message. FileID doubles as the
// engine file id; Payload holds the encoded message needed to download it.
type Media struct {
	FileID       int32
	MessageRow   int64
	ChatJID      string
	Kind         string
	MimeType     string
	FileName     string
	Size         int64
	Duration     int
	Payload      []byte
	LocalPath    string
	DownloadedAt int64
}

// Reaction is one aggregated emoji on a message.
type Reaction struct {
	Emoji  string
	Count  int
	FromMe bool
}

// OutboxEntry represents a pending outgoing message.
type OutboxEntry struct {
	ID           int64
	ClientMsgID  string
	ChatJID      string
	Body         string
	Status       string // queued, sending, sent, failed
	ErrorMessage string
	ServerMsgID  string
}
