package audio

import (
	"context"
	"fmt"
	"time"
)

type Playback interface {
	Load(ctx context.Context, location string) (PlaybackHandle, error)
	Play(handle PlaybackHandle) error
	Pause(handle PlaybackHandle) error
	Stop(handle PlaybackHandle) error
	Status(handle PlaybackHandle) (PlaybackStatus, error)
	Unload(handle PlaybackHandle) error
}

type PlaybackStatus struct {
	Position  time.Duration
	Duration  time.Duration
	IsPlaying bool
	IsLoaded  bool
}

// Finished is true for a loaded file the device is no longer playing.
func (this PlaybackStatus) Finished() bool {
	return this.IsLoaded && !this.IsPlaying
}

// Progress is Position relative to Duration, clamped to [0,1].
func (this PlaybackStatus) Progress() float64 {
	if !this.IsLoaded || this.Duration <= 0 {
		return 0
	}
	v := float64(this.Position) / float64(this.Duration)
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func (this PlaybackStatus) String() string {
	return fmt.Sprintf("%v/%v playing=%v loaded=%v", this.Position, this.Duration, this.IsPlaying, this.IsLoaded)
}
