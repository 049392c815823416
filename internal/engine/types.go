package engine

// ChatListKind identifies one of the engine-known chat lists.
type ChatListKind int

const (
	ListMain ChatListKind = iota
	ListArchive
	ListFolder
)

// ChatList identifies a list by kind and, for folders, by folder id.
// Values are comparable, so two lists match exactly when they are equal.
type ChatList struct {
	Kind     ChatListKind
	FolderID int32
}

var (
	MainList    = ChatList{Kind: ListMain}
	ArchiveList = ChatList{Kind: ListArchive}
)

// FolderList returns the list of a named folder.
func FolderList(id int32) ChatList {
	return ChatList{Kind: ListFolder, FolderID: id}
}

// OrderNotInList is the sentinel order meaning the chat left the list.
const OrderNotInList int64 = 0

// ChatPosition places a chat within one list. Higher orders sort first.
type ChatPosition struct {
	List     ChatList
	Order    int64
	IsPinned bool
}

// ChatType classifies chats.
type ChatType int

const (
	ChatPrivate ChatType = iota
	ChatSecret
	ChatBasicGroup
	ChatSupergroup
	ChatChannel
)

func (t ChatType) String() string {
	switch t {
	case ChatPrivate:
		return "private"
	case ChatSecret:
		return "secret"
	case ChatBasicGroup:
		return "group"
	case ChatSupergroup:
		return "supergroup"
	case ChatChannel:
		return "channel"
	default:
		return "unknown"
	}
}

// Chat is a conversation known to the engine.
type Chat struct {
	ID               int64
	Title            string
	Type             ChatType
	UserID           int64 // peer user for private and secret chats
	IsForum          bool
	Positions        []ChatPosition
	LastMessage      *Message
	UnreadCount      int
	IsMarkedAsUnread bool
}

// Position returns the chat's position in list, if any.
func (c *Chat) Position(list ChatList) (ChatPosition, bool) {
	for _, p := range c.Positions {
		if p.List == list {
			return p, true
		}
	}
	return ChatPosition{}, false
}

// IsPinned reports whether the chat is pinned in any list.
func (c *Chat) IsPinned() bool {
	for _, p := range c.Positions {
		if p.IsPinned {
			return true
		}
	}
	return false
}

// Clone returns a deep copy that shares no slices with c.
func (c *Chat) Clone() *Chat {
	cp := *c
	cp.Positions = append([]ChatPosition(nil), c.Positions...)
	if c.LastMessage != nil {
		m := c.LastMessage.Clone()
		cp.LastMessage = &m
	}
	return &cp
}

// ChatFolder is a user-defined folder.
type ChatFolder struct {
	ID   int32
	Name string
}

// Chats is a list of chat ids returned by search requests.
type Chats struct {
	IDs []int64
}

// MessageSender is either a user or a chat.
type MessageSender interface {
	isSender()
}

// SenderUser is a message sent by a user.
type SenderUser struct {
	UserID int64
}

// SenderChat is a message sent on behalf of a chat.
type SenderChat struct {
	ChatID int64
}

func (SenderUser) isSender() {}
func (SenderChat) isSender() {}

// Reaction is one aggregated reaction on a message.
type Reaction struct {
	Emoji      string
	TotalCount int
	IsChosen   bool
}

// Message is one message of a chat.
type Message struct {
	ID         int64
	ChatID     int64
	ThreadID   int64
	Sender     MessageSender
	Date       int64 // unix seconds
	IsOutgoing bool
	Content    Content
	Reactions  []Reaction
}

// Clone returns a copy that shares no slices with m.
func (m Message) Clone() Message {
	m.Reactions = append([]Reaction(nil), m.Reactions...)
	return m
}

// Messages is one page of history.
type Messages struct {
	TotalCount int
	Messages   []Message
}

// LocalFile describes the local copy of a file.
type LocalFile struct {
	Path                   string
	IsDownloadingActive    bool
	IsDownloadingCompleted bool
	DownloadedSize         int64
}

// File is a remote file with its local download status.
type File struct {
	ID           int32
	Size         int64
	ExpectedSize int64
	Local        LocalFile
}

// Progress returns the download percentage in [0, 100].
func (f File) Progress() int {
	size := f.Size
	if size <= 0 {
		size = f.ExpectedSize
	}
	if size <= 0 {
		return 0
	}
	p := int(f.Local.DownloadedSize * 100 / size)
	if p > 100 {
		return 100
	}
	return p
}

// Downloaded reports whether a complete local copy exists.
func (f File) Downloaded() bool {
	return f.Local.IsDownloadingCompleted && f.Local.Path != ""
}

// AuthStateKind enumerates the engine's authorization states.
type AuthStateKind int

const (
	AuthWaitCredentials AuthStateKind = iota
	AuthWaitPhone
	AuthWaitCode
	AuthWaitPassword
	AuthWaitOtherDevice
	AuthReady
	AuthLoggingOut
	AuthClosed
)

func (k AuthStateKind) String() string {
	switch k {
	case AuthWaitCredentials:
		return "AWAITING_CREDENTIALS"
	case AuthWaitPhone:
		return "AWAITING_PHONE"
	case AuthWaitCode:
		return "AWAITING_CODE"
	case AuthWaitPassword:
		return "AWAITING_PASSWORD"
	case AuthWaitOtherDevice:
		return "AWAITING_OTHER_DEVICE"
	case AuthReady:
		return "READY"
	case AuthLoggingOut:
		return "LOGGING_OUT"
	case AuthClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// AuthState is the engine's current authorization state.
type AuthState struct {
	Kind         AuthStateKind
	Link         string // login link to confirm from another device
	PasswordHint string
}

// User is a user profile.
type User struct {
	ID        int64
	FirstName string
	LastName  string
	Username  string
}

// UserStatusKind enumerates presence states.
type UserStatusKind int

const (
	StatusEmpty UserStatusKind = iota
	StatusOnline
	StatusOffline
	StatusRecently
)

// UserStatus is a user's presence.
type UserStatus struct {
	Kind      UserStatusKind
	WasOnline int64
	Expires   int64
}

// ForumTopic is a thread of a forum group.
type ForumTopic struct {
	ThreadID    int64
	Name        string
	IsPinned    bool
	IsClosed    bool
	UnreadCount int
}

// ForumTopics is a page of forum topics.
type ForumTopics struct {
	TotalCount int
	Topics     []ForumTopic
}

// FileTypeStatistics aggregates usage for one file type.
type FileTypeStatistics struct {
	FileType string
	Size     int64
	Count    int
}

// ChatStatistics aggregates usage for one chat.
type ChatStatistics struct {
	ChatID     int64
	Size       int64
	Count      int
	ByFileType []FileTypeStatistics
}

// StorageStatistics describes local file storage usage.
type StorageStatistics struct {
	Size   int64
	Count  int
	ByChat []ChatStatistics
}

// OptionValue is the value of a boolean engine option.
type OptionValue struct {
	Name  string
	Value bool
}

// Ok is the empty successful response.
type Ok struct{}
