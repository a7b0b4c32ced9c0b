package console

import (
	"fmt"
	"strings"
	"time"

	"github.com/blaubaer/sound-detect/pkg/session"
)

const (
	progressBarWidth = 20
	unidentified     = "Cannot Identify. Try Again!"
)

// FormatElapsed renders d as HH:MM:SS. Hours wrap after one day.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	millis := d.Milliseconds()
	seconds := (millis / 1000) % 60
	minutes := (millis / (1000 * 60)) % 60
	hours := (millis / (1000 * 60 * 60)) % 24
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}

// ProgressBar renders progress (0..1) as a bar of width cells.
func ProgressBar(progress float64, width int) string {
	if progress < 0 {
		progress = 0
	} else if progress > 1 {
		progress = 1
	}
	filled := int(progress * float64(width))
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", width-filled) + "]"
}

// PresentResult is what the user is told about an upload attempt.
func PresentResult(r session.UploadResult) string {
	if r.Succeeded() && r.Label != "" {
		return strings.ToUpper(r.Label)
	}
	return unidentified
}

type Action struct {
	Command     string
	Description string
}

// Actions lists the commands which make sense for s.
func Actions(s session.Snapshot) []Action {
	var result []Action
	if s.Status == session.StatusRecording {
		result = append(result, Action{"record", "Stop Recording"})
		return result
	}
	result = append(result, Action{"record", "Start Recording"})
	if s.CanPlay() {
		result = append(result, Action{"play", "Play Sound"})
	}
	switch s.Status {
	case session.StatusPlaying:
		result = append(result, Action{"pause", "Pause Sound"}, Action{"stop", "Stop Sound"})
	case session.StatusPaused:
		result = append(result, Action{"pause", "Resume Sound"}, Action{"stop", "Stop Sound"})
	}
	if s.CanUpload() {
		result = append(result, Action{"upload", "Upload Audio"})
	}
	return result
}

// Render describes s the way the status command prints it.
func Render(s session.Snapshot) string {
	var buf strings.Builder
	_, _ = fmt.Fprintf(&buf, "Status: %v\n", s.Status)
	_, _ = fmt.Fprintf(&buf, "Recording Time: %s\n", FormatElapsed(s.Elapsed))
	if s.PlaybackHandle != nil {
		_, _ = fmt.Fprintf(&buf, "Progress: %s %3.0f%%\n", ProgressBar(s.PlaybackProgress, progressBarWidth), s.PlaybackProgress*100)
	}
	if s.HasFile() {
		_, _ = fmt.Fprintf(&buf, "File: %s\n", s.FileLocation)
	}
	if s.Uploading {
		buf.WriteString("Upload: in progress\n")
	} else if s.LastResult.Outcome != session.OutcomeNone {
		_, _ = fmt.Fprintf(&buf, "Last result: %s\n", PresentResult(s.LastResult))
	}
	buf.WriteString("Actions:")
	for _, a := range Actions(s) {
		_, _ = fmt.Fprintf(&buf, " %s (%s),", a.Command, a.Description)
	}
	return strings.TrimSuffix(buf.String(), ",") + "\n"
}

// Prompt is the short status line in front of the input.
func Prompt(s session.Snapshot, loading bool) string {
	var buf strings.Builder
	buf.WriteString(s.Status.String())
	switch {
	case s.Status == session.StatusRecording:
		buf.WriteString(" " + FormatElapsed(s.Elapsed))
	case s.PlaybackHandle != nil:
		buf.WriteString(" " + ProgressBar(s.PlaybackProgress, progressBarWidth) + " " + FormatElapsed(s.Elapsed))
	}
	if loading {
		buf.WriteString(" (loading...)")
	}
	return buf.String() + "> "
}
