package views

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/notioff/telesuper/internal/engine"
)

// formatTimestamp renders unix seconds as a clock time for today and a
// date otherwise.
func formatTimestamp(sec int64) string {
	return formatTimestampAt(sec, time.Now())
}

func formatTimestampAt(sec int64, now time.Time) string {
	if sec == 0 {
		return ""
	}
	t := time.Unix(sec, 0).In(now.Location())
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	if t.Year() == now.Year() {
		return t.Format("Jan 02")
	}
	return t.Format("2006-01-02")
}

func chatTypeLabel(t engine.ChatType) string {
	switch t {
	case engine.ChatPrivate, engine.ChatSecret:
		return "DM"
	case engine.ChatBasicGroup, engine.ChatSupergroup:
		return "GROUP"
	case engine.ChatChannel:
		return "CHANNEL"
	default:
		return "?"
	}
}

// presence renders a user status the way contact lists do.
func presence(st engine.UserStatus) string {
	switch st.Kind {
	case engine.StatusOnline:
		return "online"
	case engine.StatusOffline:
		if st.WasOnline == 0 {
			return "offline"
		}
		return "last seen " + humanize.Time(time.Unix(st.WasOnline, 0))
	case engine.StatusRecently:
		return "last seen recently"
	default:
		return "-"
	}
}

// fileBadge describes the download state of a message attachment.
func fileBadge(f engine.File) string {
	switch {
	case f.Downloaded():
		return "saved"
	case f.Local.IsDownloadingActive:
		return fmt.Sprintf("%d%%", f.Progress())
	default:
		size := f.Size
		if size == 0 {
			size = f.ExpectedSize
		}
		if size > 0 {
			return humanize.IBytes(uint64(size))
		}
		return "not downloaded"
	}
}
