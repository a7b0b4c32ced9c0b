package audio

import "github.com/google/uuid"

// RecordingHandle identifies one running capture. It is only valid between
// Capture.Start and Capture.Stop.
type RecordingHandle uuid.UUID

func NewRecordingHandle() RecordingHandle {
	return RecordingHandle(uuid.New())
}

func (this RecordingHandle) String() string {
	return uuid.UUID(this).String()
}

// PlaybackHandle identifies one loaded file. It is only valid between
// Playback.Load and Playback.Unload.
type PlaybackHandle uuid.UUID

func NewPlaybackHandle() PlaybackHandle {
	return PlaybackHandle(uuid.New())
}

func (this PlaybackHandle) String() string {
	return uuid.UUID(this).String()
}
