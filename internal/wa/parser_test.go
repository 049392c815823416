package wa

import (
	"testing"
	"time"

	"go.mau.fi/whatsmeow/proto/waCommon"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/proto/waWeb"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"
)

func TestExtractTextBody(t *testing.T) {
	tests := []struct {
		name string
		msg  *waE2E.Message
		want string
	}{
		{"nil message", nil, ""},
		{"conversation", &waE2E.Message{Conversation: proto.String("hello")}, "hello"},
		{"extended text", &waE2E.Message{ExtendedTextMessage: &waE2E.ExtendedTextMessage{Text: proto.String("extended")}}, "extended"},
		{"image caption", &waE2E.Message{ImageMessage: &waE2E.ImageMessage{Caption: proto.String("beach")}}, "beach"},
		{"image without caption", &waE2E.Message{ImageMessage: &waE2E.ImageMessage{}}, ""},
		{"contact", &waE2E.Message{ContactMessage: &waE2E.ContactMessage{DisplayName: proto.String("Ann")}}, "Ann"},
		{"poll", &waE2E.Message{PollCreationMessageV3: &waE2E.PollCreationMessage{Name: proto.String("lunch?")}}, "lunch?"},
		{"location", &waE2E.Message{LocationMessage: &waE2E.LocationMessage{
			DegreesLatitude: proto.Float64(1.5), DegreesLongitude: proto.Float64(-2.25),
		}}, "1.500000,-2.250000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractTextBody(tt.msg); got != tt.want {
				t.Errorf("extractTextBody() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetectMessageType(t *testing.T) {
	tests := []struct {
		name string
		msg  *waE2E.Message
		want string
	}{
		{"nil", nil, KindUnknown},
		{"text conversation", &waE2E.Message{Conversation: proto.String("hi")}, KindText},
		{"extended text", &waE2E.Message{ExtendedTextMessage: &waE2E.ExtendedTextMessage{Text: proto.String("hi")}}, KindText},
		{"image", &waE2E.Message{ImageMessage: &waE2E.ImageMessage{}}, KindImage},
		{"video", &waE2E.Message{VideoMessage: &waE2E.VideoMessage{}}, KindVideo},
		{"gif", &waE2E.Message{VideoMessage: &waE2E.VideoMessage{GifPlayback: proto.Bool(true)}}, KindGIF},
		{"audio", &waE2E.Message{AudioMessage: &waE2E.AudioMessage{}}, KindAudio},
		{"voice", &waE2E.Message{AudioMessage: &waE2E.AudioMessage{PTT: proto.Bool(true)}}, KindVoice},
		{"document", &waE2E.Message{DocumentMessage: &waE2E.DocumentMessage{}}, KindDocument},
		{"sticker", &waE2E.Message{StickerMessage: &waE2E.StickerMessage{}}, KindSticker},
		{"contact", &waE2E.Message{ContactMessage: &waE2E.ContactMessage{}}, KindContact},
		{"location", &waE2E.Message{LocationMessage: &waE2E.LocationMessage{}}, KindLocation},
		{"poll", &waE2E.Message{PollCreationMessage: &waE2E.PollCreationMessage{}}, KindPoll},
		{"empty message", &waE2E.Message{}, KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectMessageType(tt.msg); got != tt.want {
				t.Errorf("detectMessageType() = %q, want %q", got, tt.want)
			}
		})
	}
}

func liveEvent(id string, msg *waE2E.Message) *events.Message {
	return &events.Message{
		Info: types.MessageInfo{
			ID:        id,
			Timestamp: time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC),
			MessageSource: types.MessageSource{
				Chat:   types.JID{User: "chat", Server: types.DefaultUserServer},
				Sender: types.JID{User: "sender", Server: types.DefaultUserServer},
			},
		},
		Message: msg,
	}
}

func TestParseLiveMessage(t *testing.T) {
	evt := liveEvent("MSG123", &waE2E.Message{Conversation: proto.String("hello world")})
	evt.Info.PushName = "Alice"
	evt.Info.IsFromMe = true

	parsed := ParseLiveMessage(evt)

	if parsed.ChatJID != "chat@s.whatsapp.net" {
		t.Errorf("ChatJID = %q, want chat@s.whatsapp.net", parsed.ChatJID)
	}
	if parsed.MsgID != "MSG123" {
		t.Errorf("MsgID = %q, want MSG123", parsed.MsgID)
	}
	if parsed.SenderJID != "sender@s.whatsapp.net" {
		t.Errorf("SenderJID = %q, want sender@s.whatsapp.net", parsed.SenderJID)
	}
	if parsed.SenderName != "Alice" {
		t.Errorf("SenderName = %q, want Alice", parsed.SenderName)
	}
	if parsed.Body != "hello world" || parsed.Kind != KindText {
		t.Errorf("Body, Kind = %q, %q", parsed.Body, parsed.Kind)
	}
	if !parsed.FromMe {
		t.Error("FromMe = false, want true")
	}
	if parsed.Timestamp != evt.Info.Timestamp.UnixMilli() {
		t.Errorf("Timestamp = %d, want %d", parsed.Timestamp, evt.Info.Timestamp.UnixMilli())
	}
	if parsed.Media != nil {
		t.Error("text message has media")
	}
}

// TestParseLiveMessageStripsDeviceSuffix verifies that live messages from
// device-specific JIDs are normalized to the canonical user JID.
func TestParseLiveMessageStripsDeviceSuffix(t *testing.T) {
	evt := liveEvent("M1", &waE2E.Message{Conversation: proto.String("hi")})
	evt.Info.Chat.Device = 1
	evt.Info.Sender.Device = 3

	parsed := ParseLiveMessage(evt)
	if parsed.ChatJID != "chat@s.whatsapp.net" || parsed.SenderJID != "sender@s.whatsapp.net" {
		t.Errorf("jids = %q, %q (device suffix not stripped)", parsed.ChatJID, parsed.SenderJID)
	}
}

func TestParseLiveMessageMedia(t *testing.T) {
	evt := liveEvent("DOC1", &waE2E.Message{DocumentWithCaptionMessage: &waE2E.FutureProofMessage{
		Message: &waE2E.Message{DocumentMessage: &waE2E.DocumentMessage{
			FileName:   proto.String("report.pdf"),
			Mimetype:   proto.String("application/pdf"),
			FileLength: proto.Uint64(2048),
			Caption:    proto.String("q3"),
		}},
	}})

	parsed := ParseLiveMessage(evt)
	if parsed.Kind != KindDocument || parsed.Body != "q3" {
		t.Fatalf("Kind, Body = %q, %q", parsed.Kind, parsed.Body)
	}
	if parsed.Media == nil {
		t.Fatal("no media")
	}
	if parsed.Media.FileName != "report.pdf" || parsed.Media.Size != 2048 || parsed.Media.MimeType != "application/pdf" {
		t.Errorf("media = %+v", parsed.Media)
	}

	var decoded waE2E.Message
	if err := proto.Unmarshal(parsed.Media.Payload, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.GetDocumentMessage().GetFileName() != "report.pdf" {
		t.Error("payload does not hold the unwrapped document")
	}
	if downloadable(&decoded) == nil {
		t.Error("payload is not downloadable")
	}
}

func TestParseLiveMessageEphemeral(t *testing.T) {
	evt := liveEvent("E1", &waE2E.Message{EphemeralMessage: &waE2E.FutureProofMessage{
		Message: &waE2E.Message{Conversation: proto.String("vanishing")},
	}})
	if p := ParseLiveMessage(evt); p.Kind != KindText || p.Body != "vanishing" {
		t.Errorf("ephemeral = %q, %q", p.Kind, p.Body)
	}
}

func TestParseReactionAndRevoke(t *testing.T) {
	reaction := ParseLiveMessage(liveEvent("R1", &waE2E.Message{ReactionMessage: &waE2E.ReactionMessage{
		Key:  &waCommon.MessageKey{ID: proto.String("target")},
		Text: proto.String("👍"),
	}}))
	if reaction.Reaction == nil || reaction.Reaction.TargetID != "target" || reaction.Reaction.Emoji != "👍" {
		t.Errorf("reaction = %+v", reaction.Reaction)
	}

	revoke := ParseLiveMessage(liveEvent("X1", &waE2E.Message{ProtocolMessage: &waE2E.ProtocolMessage{
		Type: waE2E.ProtocolMessage_REVOKE.Enum(),
		Key:  &waCommon.MessageKey{ID: proto.String("gone")},
	}}))
	if revoke.RevokedID != "gone" {
		t.Errorf("RevokedID = %q", revoke.RevokedID)
	}
}

func TestParseHistoryMessage(t *testing.T) {
	ts := uint64(1700000000)
	p := ParseHistoryMessage("group@g.us", &waWeb.WebMessageInfo{
		Key: &waCommon.MessageKey{
			ID:          proto.String("hm1"),
			Participant: proto.String("555:2@s.whatsapp.net"),
		},
		MessageTimestamp: &ts,
		PushName:         proto.String("Bo"),
		Message:          &waE2E.Message{Conversation: proto.String("old")},
	})
	if p == nil {
		t.Fatal("nil parse")
	}
	if p.ChatJID != "group@g.us" || p.SenderJID != "555@s.whatsapp.net" || p.Timestamp != int64(ts)*1000 || p.SenderName != "Bo" {
		t.Errorf("parsed = %+v", p)
	}

	private := ParseHistoryMessage("777@s.whatsapp.net", &waWeb.WebMessageInfo{
		Key:     &waCommon.MessageKey{ID: proto.String("hm2")},
		Message: &waE2E.Message{Conversation: proto.String("x")},
	})
	if private.SenderJID != "777@s.whatsapp.net" {
		t.Errorf("private sender = %q, want the chat", private.SenderJID)
	}

	if ParseHistoryMessage("c@s", &waWeb.WebMessageInfo{}) != nil {
		t.Error("entry without content should be skipped")
	}
}

func TestToStoreMessage(t *testing.T) {
	p := &ParsedMessage{ChatJID: "chat@s", MsgID: "m1", Kind: KindText, Body: "test", Timestamp: 42000}
	if sm := p.ToStoreMessage(); sm.Status != "received" || sm.FromMe || sm.Kind != KindText {
		t.Errorf("incoming = %+v", sm)
	}
	p.FromMe = true
	if sm := p.ToStoreMessage(); sm.Status != "sent" {
		t.Errorf("outgoing status = %q", sm.Status)
	}
}

// TestNormalizeJID verifies that device/agent suffixes are stripped.
// Regression: history sync and live messages produced different JIDs for the
// same contact, creating duplicate chat entries in the database.
func TestNormalizeJID(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"558592403672@s.whatsapp.net", "558592403672@s.whatsapp.net"},
		{"558592403672:0@s.whatsapp.net", "558592403672@s.whatsapp.net"},
		{"558592403672:5@s.whatsapp.net", "558592403672@s.whatsapp.net"},
		{"120363123456@g.us", "120363123456@g.us"},
		{"", ""},
		{"3917077286968@lid", "3917077286968@lid"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := NormalizeJID(tt.input); got != tt.want {
				t.Errorf("NormalizeJID(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestLocationRoundTrip(t *testing.T) {
	lat, lon, ok := parseLocation(formatLocation(52.52, 13.405))
	if !ok || lat != 52.52 || lon != 13.405 {
		t.Errorf("parsed = %v, %v, %v", lat, lon, ok)
	}
	if _, _, ok := parseLocation("nowhere"); ok {
		t.Error("garbage parsed")
	}
}
