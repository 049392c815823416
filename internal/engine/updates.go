package engine

// Update is an unsolicited push event from the engine.
type Update interface {
	isUpdate()
}

type (
	UpdateNewChat struct {
		Chat *Chat
	}
	UpdateChatPosition struct {
		ChatID   int64
		Position ChatPosition
	}
	// UpdateChatLastMessage carries the canonical positions alongside the
	// new last message.
	UpdateChatLastMessage struct {
		ChatID      int64
		LastMessage *Message
		Positions   []ChatPosition
	}
	UpdateChatTitle struct {
		ChatID int64
		Title  string
	}
	UpdateChatReadInbox struct {
		ChatID      int64
		UnreadCount int
	}
	UpdateChatMarkedUnread struct {
		ChatID int64
		Unread bool
	}
	UpdateNewMessage struct {
		Message Message
	}
	UpdateDeleteMessages struct {
		ChatID      int64
		MessageIDs  []int64
		IsPermanent bool
	}
	UpdateMessageReactions struct {
		ChatID    int64
		MessageID int64
		Reactions []Reaction
	}
	UpdateFile struct {
		File File
	}
	UpdateAuthorizationState struct {
		State AuthState
	}
	UpdateUserStatus struct {
		UserID int64
		Status UserStatus
	}
	UpdateChatFolders struct {
		Folders []ChatFolder
	}
	// UpdateAgeVerification carries the bot to talk to before restricted
	// content is shown; an empty username clears the requirement.
	UpdateAgeVerification struct {
		BotUsername string
		MinAge      int
	}
)

func (UpdateNewChat) isUpdate()            {}
func (UpdateChatPosition) isUpdate()       {}
func (UpdateChatLastMessage) isUpdate()    {}
func (UpdateChatTitle) isUpdate()          {}
func (UpdateChatReadInbox) isUpdate()      {}
func (UpdateChatMarkedUnread) isUpdate()   {}
func (UpdateNewMessage) isUpdate()         {}
func (UpdateDeleteMessages) isUpdate()     {}
func (UpdateMessageReactions) isUpdate()   {}
func (UpdateFile) isUpdate()               {}
func (UpdateAuthorizationState) isUpdate() {}
func (UpdateUserStatus) isUpdate()         {}
func (UpdateChatFolders) isUpdate()        {}
func (UpdateAgeVerification) isUpdate()    {}
