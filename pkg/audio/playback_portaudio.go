package audio

import (
	"context"
	"fmt"
	"sync"

	log "github.com/echocat/slf4g"
	"github.com/gordonklaus/portaudio"
)

type stackPlayback Stack

func (this *stackPlayback) Load(_ context.Context, location string) (PlaybackHandle, error) {
	fail := func(err error, args ...any) (PlaybackHandle, error) {
		return PlaybackHandle{}, deviceErrorf("load "+location, err, args...)
	}

	this.mutex.Lock()
	defer this.mutex.Unlock()

	if !this.initialized {
		return fail(ErrNotInitialized)
	}
	if this.mode != ModePlayback {
		return fail(ErrDeviceBusy, "audio mode is ", this.mode)
	}

	data, err := readWav(location)
	if err != nil {
		return fail(err)
	}
	if data.channels <= 0 || data.sampleRate <= 0 {
		return fail(ErrUnsupportedContainer, "no channels or sample rate")
	}

	frames := this.conf.FramesPerBuffer
	if frames <= 0 {
		frames = 1024
	}
	s := &portaudioSound{
		handle: NewPlaybackHandle(),
		data:   data,
	}
	stream, err := portaudio.OpenDefaultStream(0, data.channels, float64(data.sampleRate), frames, s.fill)
	if err != nil {
		return fail(ErrDeviceUnavailable, err)
	}
	s.stream = stream

	this.sounds[s.handle] = s
	log.With("handle", s.handle).
		With("file", location).
		With("duration", data.duration()).
		Debug("Sound loaded.")
	return s.handle, nil
}

func (this *stackPlayback) sound(op string, handle PlaybackHandle) (*portaudioSound, error) {
	this.mutex.RLock()
	defer this.mutex.RUnlock()

	s, ok := this.sounds[handle]
	if !ok {
		return nil, &DeviceError{op, ErrStaleHandle}
	}
	return s, nil
}

func (this *stackPlayback) Play(handle PlaybackHandle) error {
	s, err := this.sound("play", handle)
	if err != nil {
		return err
	}
	return s.play()
}

func (this *stackPlayback) Pause(handle PlaybackHandle) error {
	s, err := this.sound("pause", handle)
	if err != nil {
		return err
	}
	return s.pause()
}

func (this *stackPlayback) Stop(handle PlaybackHandle) error {
	s, err := this.sound("stop", handle)
	if err != nil {
		return err
	}
	if err := s.pause(); err != nil {
		return err
	}
	s.rewind()
	return nil
}

func (this *stackPlayback) Status(handle PlaybackHandle) (PlaybackStatus, error) {
	s, err := this.sound("query playback status", handle)
	if err != nil {
		return PlaybackStatus{}, err
	}
	return s.status(), nil
}

func (this *stackPlayback) Unload(handle PlaybackHandle) error {
	this.mutex.Lock()
	s, ok := this.sounds[handle]
	delete(this.sounds, handle)
	this.mutex.Unlock()

	if !ok {
		return &DeviceError{"unload", ErrStaleHandle}
	}
	return s.close()
}

type portaudioSound struct {
	handle PlaybackHandle
	data   *pcm
	stream *portaudio.Stream

	// control serializes start/stop of the stream. It must never be
	// acquired from within fill.
	control sync.Mutex
	active  bool

	mutex    sync.Mutex
	position int
	playing  bool
}

// fill is the PortAudio output callback.
func (this *portaudioSound) fill(out []int16) {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	n := 0
	if this.playing {
		offset := this.position * this.data.channels
		if offset < len(this.data.samples) {
			n = copy(out, this.data.samples[offset:])
		}
		this.position += n / this.data.channels
		if this.position >= this.data.frames() {
			this.playing = false
		}
	}
	clear(out[n:])
}

func (this *portaudioSound) play() error {
	this.control.Lock()
	defer this.control.Unlock()

	this.mutex.Lock()
	if this.playing {
		this.mutex.Unlock()
		return nil
	}
	if this.position >= this.data.frames() {
		this.position = 0
	}
	this.playing = true
	this.mutex.Unlock()

	if !this.active {
		if err := this.stream.Start(); err != nil {
			this.mutex.Lock()
			this.playing = false
			this.mutex.Unlock()
			return deviceErrorf("play", ErrDeviceUnavailable, err)
		}
		this.active = true
	}
	return nil
}

func (this *portaudioSound) pause() error {
	this.control.Lock()
	defer this.control.Unlock()

	this.mutex.Lock()
	this.playing = false
	this.mutex.Unlock()

	if this.active {
		if err := this.stream.Stop(); err != nil {
			return deviceErrorf("pause", ErrDeviceUnavailable, err)
		}
		this.active = false
	}
	return nil
}

func (this *portaudioSound) rewind() {
	this.mutex.Lock()
	defer this.mutex.Unlock()
	this.position = 0
}

func (this *portaudioSound) status() PlaybackStatus {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	return PlaybackStatus{
		Position:  framesToDuration(this.position, this.data.sampleRate),
		Duration:  this.data.duration(),
		IsPlaying: this.playing,
		IsLoaded:  true,
	}
}

func (this *portaudioSound) close() error {
	if err := this.pause(); err != nil {
		log.WithError(err).
			With("handle", this.handle).
			Debug("Cannot stop output stream.")
	}
	if err := this.stream.Close(); err != nil {
		return fmt.Errorf("cannot close output stream of %v: %w", this.handle, err)
	}
	return nil
}
