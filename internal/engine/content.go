package engine

import "fmt"

// Content is the closed set of message content kinds. New kinds are added
// here and handled in Summary and ContentFile.
type Content interface {
	isContent()
}

type (
	// Text is a plain text message.
	Text struct {
		Text string
	}
	// Photo is an image with an optional caption.
	Photo struct {
		Caption string
		File    File
	}
	// Video is a video file with an optional thumbnail.
	Video struct {
		Caption   string
		FileName  string
		File      File
		Thumbnail *File
	}
	// Animation is a looping video (GIF).
	Animation struct {
		Caption string
		File    File
	}
	// Document is a generic file.
	Document struct {
		Caption  string
		FileName string
		File     File
	}
	// Sticker is a sticker image; identical stickers share a file id.
	Sticker struct {
		Emoji string
		File  File
	}
	// VoiceNote is a recorded voice message.
	VoiceNote struct {
		Duration int
		File     File
	}
	// Audio is a music file.
	Audio struct {
		Title    string
		FileName string
		Duration int
		File     File
	}
	// Location is a shared point.
	Location struct {
		Latitude  float64
		Longitude float64
	}
	// Contact is a shared contact card.
	Contact struct {
		Name  string
		Phone string
	}
	// Poll is a poll question.
	Poll struct {
		Question string
	}
	// Service is a chat event such as a title change or a member joining.
	Service struct {
		Text string
	}
	// Unsupported is content this client cannot show.
	Unsupported struct{}
)

func (Text) isContent()        {}
func (Photo) isContent()       {}
func (Video) isContent()       {}
func (Animation) isContent()   {}
func (Document) isContent()    {}
func (Sticker) isContent()     {}
func (VoiceNote) isContent()   {}
func (Audio) isContent()       {}
func (Location) isContent()    {}
func (Contact) isContent()     {}
func (Poll) isContent()        {}
func (Service) isContent()     {}
func (Unsupported) isContent() {}

// Summary renders content as a single preview line.
func Summary(c Content) string {
	switch v := c.(type) {
	case Text:
		return v.Text
	case Photo:
		return withCaption("[Photo]", v.Caption)
	case Video:
		return withCaption("[Video]", v.Caption)
	case Animation:
		return withCaption("[GIF]", v.Caption)
	case Document:
		return withCaption("[File] "+v.FileName, v.Caption)
	case Sticker:
		return "[Sticker] " + v.Emoji
	case VoiceNote:
		return fmt.Sprintf("[Voice %d:%02d]", v.Duration/60, v.Duration%60)
	case Audio:
		if v.Title != "" {
			return "[Audio] " + v.Title
		}
		return "[Audio] " + v.FileName
	case Location:
		return fmt.Sprintf("[Location %.5f, %.5f]", v.Latitude, v.Longitude)
	case Contact:
		return "[Contact] " + v.Name
	case Poll:
		return "[Poll] " + v.Question
	case Service:
		return v.Text
	case Unsupported, nil:
		return "[Unsupported message]"
	default:
		return "[Unsupported message]"
	}
}

// ContentFile returns the primary file of c and its original file name.
func ContentFile(c Content) (File, string, bool) {
	switch v := c.(type) {
	case Photo:
		return v.File, "", true
	case Video:
		return v.File, v.FileName, true
	case Animation:
		return v.File, "", true
	case Document:
		return v.File, v.FileName, true
	case Sticker:
		return v.File, "", true
	case VoiceNote:
		return v.File, "", true
	case Audio:
		return v.File, v.FileName, true
	default:
		return File{}, "", false
	}
}

// Caption returns the caption of media content, or the text of a text message.
func Caption(c Content) string {
	switch v := c.(type) {
	case Text:
		return v.Text
	case Photo:
		return v.Caption
	case Video:
		return v.Caption
	case Animation:
		return v.Caption
	case Document:
		return v.Caption
	default:
		return ""
	}
}

func withCaption(label, caption string) string {
	if caption == "" {
		return label
	}
	return label + " " + caption
}
