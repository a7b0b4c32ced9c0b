package audio

import (
	"context"
	"time"
)

type Capture interface {
	// RequestPermission reports whether the microphone can be used.
	RequestPermission(ctx context.Context) (bool, error)
	Start(ctx context.Context, options EncodingOptions) (RecordingHandle, error)
	// Elapsed is polled by the caller; captures never push their duration.
	Elapsed(handle RecordingHandle) (time.Duration, error)
	// Stop finalizes the capture, releases the handle and returns the
	// location of the written file.
	Stop(ctx context.Context, handle RecordingHandle) (string, error)
}

type Mode uint8

const (
	ModePlayback  = Mode(0)
	ModeRecording = Mode(1)
)

func (this Mode) String() string {
	switch this {
	case ModePlayback:
		return "playback"
	case ModeRecording:
		return "recording"
	default:
		return "illegal-mode"
	}
}

// ModeSwitcher configures the device for either recording or playback.
type ModeSwitcher interface {
	SetMode(ctx context.Context, mode Mode) error
}
