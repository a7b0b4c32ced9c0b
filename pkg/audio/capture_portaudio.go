package audio

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	log "github.com/echocat/slf4g"
	"github.com/google/uuid"
	"github.com/gordonklaus/portaudio"
)

type stackCapture Stack

func (this *stackCapture) RequestPermission(context.Context) (bool, error) {
	devices, err := (*Stack)(this).FindDevices()
	if err != nil {
		return false, err
	}
	return devices.CanCapture(), nil
}

func (this *stackCapture) Start(_ context.Context, options EncodingOptions) (RecordingHandle, error) {
	fail := func(err error, args ...any) (RecordingHandle, error) {
		return RecordingHandle{}, deviceErrorf("start recording", err, args...)
	}

	if err := options.Validate(); err != nil {
		return fail(err)
	}
	if options.ContainerFormat != ContainerFormatWav {
		return fail(ErrUnsupportedContainer, options.ContainerFormat)
	}

	this.mutex.Lock()
	defer this.mutex.Unlock()

	if !this.initialized {
		return fail(ErrNotInitialized)
	}
	if this.mode != ModeRecording {
		return fail(ErrDeviceBusy, "audio mode is ", this.mode)
	}

	frames := this.conf.FramesPerBuffer
	if frames <= 0 {
		frames = 1024
	}
	r := &portaudioRecording{
		handle:  NewRecordingHandle(),
		options: options,
		buf:     make([]int16, frames*options.Channels),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}

	stream, err := portaudio.OpenDefaultStream(options.Channels, 0, float64(options.SampleRate), frames, r.buf)
	if err != nil {
		return fail(ErrDeviceUnavailable, err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return fail(ErrDeviceUnavailable, err)
	}
	r.stream = stream
	go r.run()

	this.recordings[r.handle] = r
	log.With("handle", r.handle).
		With("options", options).
		Debug("Recording started.")
	return r.handle, nil
}

func (this *stackCapture) Elapsed(handle RecordingHandle) (time.Duration, error) {
	this.mutex.RLock()
	r, ok := this.recordings[handle]
	this.mutex.RUnlock()

	if !ok {
		return 0, &DeviceError{"sample recording", ErrStaleHandle}
	}
	return r.elapsed(), nil
}

func (this *stackCapture) Stop(_ context.Context, handle RecordingHandle) (string, error) {
	this.mutex.Lock()
	r, ok := this.recordings[handle]
	delete(this.recordings, handle)
	dir := this.TransientDirectory
	this.mutex.Unlock()

	if !ok {
		return "", &DeviceError{"stop recording", ErrStaleHandle}
	}

	samples, err := r.stop()
	if err != nil {
		return "", &DeviceError{"stop recording", err}
	}

	fn := filepath.Join(dir, fmt.Sprintf("capture-%s%s", uuid.New(), r.options.ContainerFormat.Extension()))
	if err := writeWav(fn, &pcm{samples, r.options.SampleRate, r.options.Channels}); err != nil {
		return "", &DeviceError{"write recording", err}
	}

	log.With("handle", handle).
		With("file", fn).
		Debug("Recording stopped.")
	return fn, nil
}

type portaudioRecording struct {
	handle  RecordingHandle
	options EncodingOptions
	stream  *portaudio.Stream
	buf     []int16

	mutex   sync.Mutex
	samples []int16
	readErr error

	done     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

func (this *portaudioRecording) run() {
	defer close(this.stopped)
	for {
		select {
		case <-this.done:
			return
		default:
		}

		if err := this.stream.Read(); errors.Is(err, portaudio.InputOverflowed) {
			continue
		} else if err != nil {
			this.mutex.Lock()
			this.readErr = err
			this.mutex.Unlock()
			return
		}

		this.mutex.Lock()
		this.samples = append(this.samples, this.buf...)
		this.mutex.Unlock()
	}
}

func (this *portaudioRecording) elapsed() time.Duration {
	this.mutex.Lock()
	defer this.mutex.Unlock()
	return framesToDuration(len(this.samples)/this.options.Channels, this.options.SampleRate)
}

func (this *portaudioRecording) stop() ([]int16, error) {
	this.stopOnce.Do(func() { close(this.done) })
	<-this.stopped

	if err := this.stream.Stop(); err != nil {
		log.WithError(err).
			With("handle", this.handle).
			Debug("Cannot stop input stream.")
	}
	if err := this.stream.Close(); err != nil {
		log.WithError(err).
			With("handle", this.handle).
			Debug("Cannot close input stream.")
	}

	this.mutex.Lock()
	defer this.mutex.Unlock()
	if this.readErr != nil && len(this.samples) == 0 {
		return nil, fmt.Errorf("cannot read from input device: %w", this.readErr)
	}
	return this.samples, nil
}

func (this *portaudioRecording) abort() {
	_, _ = this.stop()
}
