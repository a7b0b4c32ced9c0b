package session

import (
	"time"

	"github.com/blaubaer/sound-detect/pkg/audio"
)

// Snapshot is a copy of the session state at one point in time.
type Snapshot struct {
	Status           Status
	RecordingHandle  *audio.RecordingHandle
	PlaybackHandle   *audio.PlaybackHandle
	FileLocation     string
	Elapsed          time.Duration
	PlaybackProgress float64
	LastResult       UploadResult
	Uploading        bool
}

func (this Snapshot) ElapsedMillis() int64 {
	return this.Elapsed.Milliseconds()
}

func (this Snapshot) HasFile() bool {
	return this.FileLocation != ""
}

// CanUpload reports whether Session.Upload would be accepted.
func (this Snapshot) CanUpload() bool {
	return this.HasFile() && this.Status != StatusRecording && !this.Uploading
}

// CanPlay reports whether Session.Play would be accepted.
func (this Snapshot) CanPlay() bool {
	return this.HasFile() && (this.Status == StatusIdle || this.Status == StatusRecorded)
}
