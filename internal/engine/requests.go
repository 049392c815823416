package engine

// Request is one call to the engine.
type Request interface {
	Kind() string
}

// InputContent is outgoing message content.
type InputContent interface {
	isInput()
}

// InputText is an outgoing text message.
type InputText struct {
	Text string
}

// MediaKind classifies outgoing media.
type MediaKind int

const (
	MediaDocument MediaKind = iota
	MediaPhoto
	MediaVideo
	MediaAudio
)

// InputMedia is an outgoing local file.
type InputMedia struct {
	Path     string
	MimeType string
	Kind     MediaKind
	Caption  string
}

func (InputText) isInput()  {}
func (InputMedia) isInput() {}

type (
	SetCredentials struct {
		APIID       int32
		APIHash     string
		DatabaseDir string
	}
	SetPhoneNumber struct{ Phone string }
	CheckCode      struct{ Code string }
	CheckPassword  struct{ Password string }
	LogOut         struct{}

	LoadChats struct {
		List  ChatList
		Limit int
	}
	OpenChat  struct{ ChatID int64 }
	CloseChat struct{ ChatID int64 }
	GetChat   struct{ ChatID int64 }

	GetChatHistory struct {
		ChatID        int64
		FromMessageID int64
		Offset        int
		Limit         int
	}
	GetThreadHistory struct {
		ChatID        int64
		ThreadID      int64
		FromMessageID int64
		Limit         int
	}
	SendMessage struct {
		ChatID   int64
		ThreadID int64
		Content  InputContent
	}

	DeleteChat       struct{ ChatID int64 }
	ToggleChatPinned struct {
		List     ChatList
		ChatID   int64
		IsPinned bool
	}
	ToggleChatMarkedUnread struct {
		ChatID int64
		Unread bool
	}
	DeleteChatHistory struct {
		ChatID             int64
		RemoveFromChatList bool
	}
	LeaveChat      struct{ ChatID int64 }
	SetUserBlocked struct {
		UserID  int64
		Blocked bool
	}

	DownloadFile struct {
		FileID      int32
		Priority    int
		Synchronous bool
	}

	SearchPublicChat struct{ Username string }
	SearchChats      struct {
		Query string
		Limit int
	}

	GetStorageStatistics struct{ ChatLimit int }
	OptimizeStorage      struct {
		SizeLimit int64
		TTL       int // seconds; 0 removes everything eligible, -1 uses the engine default
		ChatIDs   []int64
		ChatLimit int
	}

	GetUser       struct{ UserID int64 }
	GetForumTopic struct {
		ChatID   int64
		ThreadID int64
	}
	GetForumTopics struct {
		ChatID int64
		Limit  int
	}
	GetOption struct{ Name string }
	SetOption struct {
		Name  string
		Value bool
	}
)

func (SetCredentials) Kind() string         { return "setCredentials" }
func (SetPhoneNumber) Kind() string         { return "setPhoneNumber" }
func (CheckCode) Kind() string              { return "checkCode" }
func (CheckPassword) Kind() string          { return "checkPassword" }
func (LogOut) Kind() string                 { return "logOut" }
func (LoadChats) Kind() string              { return "loadChats" }
func (OpenChat) Kind() string               { return "openChat" }
func (CloseChat) Kind() string              { return "closeChat" }
func (GetChat) Kind() string                { return "getChat" }
func (GetChatHistory) Kind() string         { return "getChatHistory" }
func (GetThreadHistory) Kind() string       { return "getThreadHistory" }
func (SendMessage) Kind() string            { return "sendMessage" }
func (DeleteChat) Kind() string             { return "deleteChat" }
func (ToggleChatPinned) Kind() string       { return "toggleChatPinned" }
func (ToggleChatMarkedUnread) Kind() string { return "toggleChatMarkedUnread" }
func (DeleteChatHistory) Kind() string      { return "deleteChatHistory" }
func (LeaveChat) Kind() string              { return "leaveChat" }
func (SetUserBlocked) Kind() string         { return "setUserBlocked" }
func (DownloadFile) Kind() string           { return "downloadFile" }
func (SearchPublicChat) Kind() string       { return "searchPublicChat" }
func (SearchChats) Kind() string            { return "searchChats" }
func (GetStorageStatistics) Kind() string   { return "getStorageStatistics" }
func (OptimizeStorage) Kind() string        { return "optimizeStorage" }
func (GetUser) Kind() string                { return "getUser" }
func (GetForumTopic) Kind() string          { return "getForumTopic" }
func (GetForumTopics) Kind() string         { return "getForumTopics" }
func (GetOption) Kind() string              { return "getOption" }
func (SetOption) Kind() string              { return "setOption" }
