// Package audiotest provides in-memory implementations of the audio
// adapters for tests.
package audiotest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/blaubaer/sound-detect/pkg/audio"
)

type Capture struct {
	// Denied makes RequestPermission report false.
	Denied   bool
	StartErr error
	StopErr  error
	// Directory is where Stop writes the captured file. If empty no file
	// is written and only the location is returned.
	Directory string
	// Elapsed is reported for every running recording.
	ElapsedValue time.Duration

	mutex      sync.Mutex
	running    map[audio.RecordingHandle]int
	takes      int
	staleCalls int
	lastOpts   audio.EncodingOptions
}

func (this *Capture) RequestPermission(context.Context) (bool, error) {
	return !this.Denied, nil
}

func (this *Capture) Start(_ context.Context, options audio.EncodingOptions) (audio.RecordingHandle, error) {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	if err := this.StartErr; err != nil {
		return audio.RecordingHandle{}, err
	}
	if this.running == nil {
		this.running = make(map[audio.RecordingHandle]int)
	}
	this.takes++
	h := audio.NewRecordingHandle()
	this.running[h] = this.takes
	this.lastOpts = options
	return h, nil
}

func (this *Capture) Elapsed(handle audio.RecordingHandle) (time.Duration, error) {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	if _, ok := this.running[handle]; !ok {
		this.staleCalls++
		return 0, &audio.DeviceError{Op: "sample recording", Err: audio.ErrStaleHandle}
	}
	return this.ElapsedValue, nil
}

func (this *Capture) Stop(_ context.Context, handle audio.RecordingHandle) (string, error) {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	take, ok := this.running[handle]
	if !ok {
		this.staleCalls++
		return "", &audio.DeviceError{Op: "stop recording", Err: audio.ErrStaleHandle}
	}
	delete(this.running, handle)
	if err := this.StopErr; err != nil {
		return "", err
	}

	name := fmt.Sprintf("capture-%d.wav", take)
	if this.Directory == "" {
		return filepath.Join("transient", name), nil
	}
	fn := filepath.Join(this.Directory, name)
	if err := os.MkdirAll(this.Directory, 0700); err != nil {
		return "", err
	}
	if err := os.WriteFile(fn, []byte(fmt.Sprintf("take %d", take)), 0600); err != nil {
		return "", err
	}
	return fn, nil
}

// Running is the number of recordings which were started but not stopped.
func (this *Capture) Running() int {
	this.mutex.Lock()
	defer this.mutex.Unlock()
	return len(this.running)
}

// StaleCalls counts calls which were made with an already released handle.
func (this *Capture) StaleCalls() int {
	this.mutex.Lock()
	defer this.mutex.Unlock()
	return this.staleCalls
}

func (this *Capture) LastOptions() audio.EncodingOptions {
	this.mutex.Lock()
	defer this.mutex.Unlock()
	return this.lastOpts
}

type Playback struct {
	// Duration of every loaded sound. Defaults to 3 seconds.
	Duration time.Duration
	LoadErr  error
	PlayErr  error

	mutex      sync.Mutex
	sounds     map[audio.PlaybackHandle]*sound
	staleCalls int
}

type sound struct {
	location string
	position time.Duration
	playing  bool
}

func (this *Playback) Load(_ context.Context, location string) (audio.PlaybackHandle, error) {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	if err := this.LoadErr; err != nil {
		return audio.PlaybackHandle{}, err
	}
	if this.sounds == nil {
		this.sounds = make(map[audio.PlaybackHandle]*sound)
	}
	h := audio.NewPlaybackHandle()
	this.sounds[h] = &sound{location: location}
	return h, nil
}

func (this *Playback) with(op string, handle audio.PlaybackHandle, fn func(*sound) error) error {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	s, ok := this.sounds[handle]
	if !ok {
		this.staleCalls++
		return &audio.DeviceError{Op: op, Err: audio.ErrStaleHandle}
	}
	return fn(s)
}

func (this *Playback) Play(handle audio.PlaybackHandle) error {
	return this.with("play", handle, func(s *sound) error {
		if err := this.PlayErr; err != nil {
			return err
		}
		if s.position >= this.duration() {
			s.position = 0
		}
		s.playing = true
		return nil
	})
}

func (this *Playback) Pause(handle audio.PlaybackHandle) error {
	return this.with("pause", handle, func(s *sound) error {
		s.playing = false
		return nil
	})
}

func (this *Playback) Stop(handle audio.PlaybackHandle) error {
	return this.with("stop", handle, func(s *sound) error {
		s.playing = false
		s.position = 0
		return nil
	})
}

func (this *Playback) Status(handle audio.PlaybackHandle) (result audio.PlaybackStatus, _ error) {
	err := this.with("query playback status", handle, func(s *sound) error {
		result = audio.PlaybackStatus{
			Position:  s.position,
			Duration:  this.duration(),
			IsPlaying: s.playing,
			IsLoaded:  true,
		}
		return nil
	})
	return result, err
}

func (this *Playback) Unload(handle audio.PlaybackHandle) error {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	if _, ok := this.sounds[handle]; !ok {
		this.staleCalls++
		return &audio.DeviceError{Op: "unload", Err: audio.ErrStaleHandle}
	}
	delete(this.sounds, handle)
	return nil
}

// Advance moves every playing sound forward by d. A sound reaching its
// end stops playing.
func (this *Playback) Advance(d time.Duration) {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	for _, s := range this.sounds {
		if !s.playing {
			continue
		}
		s.position += d
		if s.position >= this.duration() {
			s.position = this.duration()
			s.playing = false
		}
	}
}

// Loaded is the number of sounds which were loaded but not unloaded.
func (this *Playback) Loaded() int {
	this.mutex.Lock()
	defer this.mutex.Unlock()
	return len(this.sounds)
}

// Playing is the number of loaded sounds which are currently playing.
func (this *Playback) Playing() (n int) {
	this.mutex.Lock()
	defer this.mutex.Unlock()
	for _, s := range this.sounds {
		if s.playing {
			n++
		}
	}
	return n
}

func (this *Playback) StaleCalls() int {
	this.mutex.Lock()
	defer this.mutex.Unlock()
	return this.staleCalls
}

func (this *Playback) duration() time.Duration {
	if this.Duration > 0 {
		return this.Duration
	}
	return 3 * time.Second
}

type ModeSwitcher struct {
	Err error

	mutex sync.Mutex
	mode  audio.Mode
	modes []audio.Mode
}

func (this *ModeSwitcher) SetMode(_ context.Context, mode audio.Mode) error {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	if this.Err != nil && mode == audio.ModeRecording {
		return this.Err
	}
	this.mode = mode
	this.modes = append(this.modes, mode)
	return nil
}

func (this *ModeSwitcher) Mode() audio.Mode {
	this.mutex.Lock()
	defer this.mutex.Unlock()
	return this.mode
}

func (this *ModeSwitcher) Modes() []audio.Mode {
	this.mutex.Lock()
	defer this.mutex.Unlock()
	return append([]audio.Mode(nil), this.modes...)
}
