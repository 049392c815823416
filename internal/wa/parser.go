package wa

import (
	"fmt"
	"strings"

	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/proto/waWeb"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"

	"github.com/notioff/telesuper/internal/store"
)

// Message kinds as stored.
const (
	KindText     = "text"
	KindImage    = "image"
	KindVideo    = "video"
	KindGIF      = "gif"
	KindAudio    = "audio"
	KindVoice    = "voice"
	KindDocument = "document"
	KindSticker  = "sticker"
	KindContact  = "contact"
	KindLocation = "location"
	KindPoll     = "poll"
	KindUnknown  = "unknown"
)

// ParsedMessage is a normalized message ready for ingestion.
type ParsedMessage struct {
	ChatJID    string
	MsgID      string
	SenderJID  string
	SenderName string
	Kind       string
	Body       string
	FromMe     bool
	Timestamp  int64 // unix ms

	// Media is set for downloadable attachments.
	Media *MediaInfo
	// Reaction is set when the message is a reaction to another message.
	Reaction *ReactionInfo
	// RevokedID is the id of the message this one deletes for everyone.
	RevokedID string
}

// MediaInfo describes the attachment of a message.
type MediaInfo struct {
	MimeType string
	FileName string
	Size     int64
	Duration int
	// Payload is the encoded message, kept to download the media later.
	Payload []byte
}

// ReactionInfo is an emoji reaction; an empty emoji removes it.
type ReactionInfo struct {
	TargetID string
	Emoji    string
}

// NormalizeJID strips device and agent suffixes so every device of a user
// maps to the same chat.
func NormalizeJID(jid string) string {
	if jid == "" {
		return ""
	}
	parsed, err := types.ParseJID(jid)
	if err != nil {
		return jid
	}
	return parsed.ToNonAD().String()
}

// ParseLiveMessage normalizes a live whatsmeow message event.
func ParseLiveMessage(evt *events.Message) *ParsedMessage {
	p := &ParsedMessage{
		ChatJID:    evt.Info.Chat.ToNonAD().String(),
		MsgID:      evt.Info.ID,
		SenderJID:  evt.Info.Sender.ToNonAD().String(),
		SenderName: evt.Info.PushName,
		FromMe:     evt.Info.IsFromMe,
		Timestamp:  evt.Info.Timestamp.UnixMilli(),
	}
	p.fill(evt.Message)
	return p
}

// ParseHistoryMessage normalizes a message from a history sync conversation.
// It returns nil for entries without content.
func ParseHistoryMessage(chatJID string, wm *waWeb.WebMessageInfo) *ParsedMessage {
	if wm == nil || wm.GetMessage() == nil {
		return nil
	}
	key := wm.GetKey()
	chat := NormalizeJID(chatJID)
	sender := NormalizeJID(key.GetParticipant())
	if sender == "" {
		sender = NormalizeJID(wm.GetParticipant())
	}
	if sender == "" && !key.GetFromMe() {
		sender = chat
	}
	p := &ParsedMessage{
		ChatJID:    chat,
		MsgID:      key.GetID(),
		SenderJID:  sender,
		SenderName: wm.GetPushName(),
		FromMe:     key.GetFromMe(),
		Timestamp:  int64(wm.GetMessageTimestamp()) * 1000,
	}
	p.fill(wm.GetMessage())
	return p
}

// ToStoreMessage converts a ParsedMessage to a store.Message.
func (p *ParsedMessage) ToStoreMessage() *store.Message {
	status := "received"
	if p.FromMe {
		status = "sent"
	}
	return &store.Message{
		ChatJID:    p.ChatJID,
		MsgID:      p.MsgID,
		SenderJID:  p.SenderJID,
		SenderName: p.SenderName,
		Kind:       p.Kind,
		Body:       p.Body,
		FromMe:     p.FromMe,
		Status:     status,
		Timestamp:  p.Timestamp,
	}
}

func (p *ParsedMessage) fill(msg *waE2E.Message) {
	msg = unwrap(msg)
	if r := msg.GetReactionMessage(); r != nil {
		p.Reaction = &ReactionInfo{TargetID: r.GetKey().GetID(), Emoji: r.GetText()}
		return
	}
	if pm := msg.GetProtocolMessage(); pm != nil && pm.GetType() == waE2E.ProtocolMessage_REVOKE {
		p.RevokedID = pm.GetKey().GetID()
		return
	}
	p.Kind = detectMessageType(msg)
	p.Body = extractTextBody(msg)
	p.Media = extractMedia(msg)
}

// unwrap returns the inner message of ephemeral, view-once and captioned
// document envelopes.
func unwrap(msg *waE2E.Message) *waE2E.Message {
	for range 4 {
		switch {
		case msg.GetEphemeralMessage().GetMessage() != nil:
			msg = msg.GetEphemeralMessage().GetMessage()
		case msg.GetViewOnceMessage().GetMessage() != nil:
			msg = msg.GetViewOnceMessage().GetMessage()
		case msg.GetViewOnceMessageV2().GetMessage() != nil:
			msg = msg.GetViewOnceMessageV2().GetMessage()
		case msg.GetDocumentWithCaptionMessage().GetMessage() != nil:
			msg = msg.GetDocumentWithCaptionMessage().GetMessage()
		default:
			return msg
		}
	}
	return msg
}

func extractTextBody(msg *waE2E.Message) string {
	if msg == nil {
		return ""
	}
	switch {
	case msg.GetConversation() != "":
		return msg.GetConversation()
	case msg.GetExtendedTextMessage() != nil:
		return msg.GetExtendedTextMessage().GetText()
	case msg.GetImageMessage() != nil:
		return msg.GetImageMessage().GetCaption()
	case msg.GetVideoMessage() != nil:
		return msg.GetVideoMessage().GetCaption()
	case msg.GetDocumentMessage() != nil:
		return msg.GetDocumentMessage().GetCaption()
	case msg.GetContactMessage() != nil:
		return msg.GetContactMessage().GetDisplayName()
	case msg.GetLocationMessage() != nil:
		loc := msg.GetLocationMessage()
		return formatLocation(loc.GetDegreesLatitude(), loc.GetDegreesLongitude())
	case msg.GetPollCreationMessage() != nil:
		return msg.GetPollCreationMessage().GetName()
	case msg.GetPollCreationMessageV3() != nil:
		return msg.GetPollCreationMessageV3().GetName()
	}
	return ""
}

func detectMessageType(msg *waE2E.Message) string {
	if msg == nil {
		return KindUnknown
	}
	switch {
	case msg.GetConversation() != "" || msg.GetExtendedTextMessage() != nil:
		return KindText
	case msg.GetImageMessage() != nil:
		return KindImage
	case msg.GetVideoMessage() != nil:
		if msg.GetVideoMessage().GetGifPlayback() {
			return KindGIF
		}
		return KindVideo
	case msg.GetAudioMessage() != nil:
		if msg.GetAudioMessage().GetPTT() {
			return KindVoice
		}
		return KindAudio
	case msg.GetDocumentMessage() != nil:
		return KindDocument
	case msg.GetStickerMessage() != nil:
		return KindSticker
	case msg.GetContactMessage() != nil:
		return KindContact
	case msg.GetLocationMessage() != nil:
		return KindLocation
	case msg.GetPollCreationMessage() != nil || msg.GetPollCreationMessageV3() != nil:
		return KindPoll
	default:
		return KindUnknown
	}
}

func extractMedia(msg *waE2E.Message) *MediaInfo {
	var info MediaInfo
	switch {
	case msg.GetImageMessage() != nil:
		m := msg.GetImageMessage()
		info = MediaInfo{MimeType: m.GetMimetype(), Size: int64(m.GetFileLength())}
	case msg.GetVideoMessage() != nil:
		m := msg.GetVideoMessage()
		info = MediaInfo{MimeType: m.GetMimetype(), Size: int64(m.GetFileLength()), Duration: int(m.GetSeconds())}
	case msg.GetAudioMessage() != nil:
		m := msg.GetAudioMessage()
		info = MediaInfo{MimeType: m.GetMimetype(), Size: int64(m.GetFileLength()), Duration: int(m.GetSeconds())}
	case msg.GetDocumentMessage() != nil:
		m := msg.GetDocumentMessage()
		name := m.GetFileName()
		if name == "" {
			name = m.GetTitle()
		}
		info = MediaInfo{MimeType: m.GetMimetype(), FileName: name, Size: int64(m.GetFileLength())}
	case msg.GetStickerMessage() != nil:
		m := msg.GetStickerMessage()
		info = MediaInfo{MimeType: m.GetMimetype(), Size: int64(m.GetFileLength())}
	default:
		return nil
	}
	payload, err := proto.Marshal(msg)
	if err != nil {
		return nil
	}
	info.Payload = payload
	return &info
}

func formatLocation(lat, lon float64) string {
	return fmt.Sprintf("%.6f,%.6f", lat, lon)
}

func parseLocation(body string) (lat, lon float64, ok bool) {
	latStr, lonStr, found := strings.Cut(body, ",")
	if !found {
		return 0, 0, false
	}
	if _, err := fmt.Sscan(latStr, &lat); err != nil {
		return 0, 0, false
	}
	if _, err := fmt.Sscan(lonStr, &lon); err != nil {
		return 0, 0, false
	}
	return lat, lon, true
}
