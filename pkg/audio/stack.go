package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	log "github.com/echocat/slf4g"
	"github.com/gordonklaus/portaudio"
)

// Stack owns the PortAudio lifecycle and hands out the Capture and Playback
// adapters which are backed by it.
type Stack struct {
	TransientDirectory string

	conf        Configuration
	initialized bool
	mode        Mode
	mutex       sync.RWMutex

	recordings map[RecordingHandle]*portaudioRecording
	sounds     map[PlaybackHandle]*portaudioSound
}

func (this *Stack) Initialize(conf Configuration) error {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	if this.initialized {
		return nil
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize portaudio: %w", err)
	}
	if this.TransientDirectory == "" {
		this.TransientDirectory = filepath.Join(os.TempDir(), "sound-detect")
	}

	this.conf = conf
	this.mode = ModePlayback
	this.recordings = make(map[RecordingHandle]*portaudioRecording)
	this.sounds = make(map[PlaybackHandle]*portaudioSound)
	this.initialized = true

	log.With("version", portaudio.VersionText()).
		Debug("Audio stack initialized.")
	return nil
}

func (this *Stack) Dispose() error {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	if !this.initialized {
		return nil
	}

	for h, r := range this.recordings {
		r.abort()
		delete(this.recordings, h)
	}
	for h, s := range this.sounds {
		if err := s.close(); err != nil {
			log.WithError(err).
				With("handle", h).
				Warn("Cannot close sound.")
		}
		delete(this.sounds, h)
	}

	this.initialized = false
	if err := portaudio.Terminate(); err != nil {
		return fmt.Errorf("failed to terminate portaudio: %w", err)
	}
	return nil
}

func (this *Stack) FindDevices() (Devices, error) {
	this.mutex.RLock()
	defer this.mutex.RUnlock()

	if !this.initialized {
		return nil, ErrNotInitialized
	}

	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("cannot query audio devices: %w", err)
	}
	defaultIn, _ := portaudio.DefaultInputDevice()
	defaultOut, _ := portaudio.DefaultOutputDevice()

	result := make(Devices, 0, len(infos))
	for _, info := range infos {
		device := Device{
			Name:              info.Name,
			Index:             info.Index,
			MaxInputChannels:  info.MaxInputChannels,
			MaxOutputChannels: info.MaxOutputChannels,
			DefaultSampleRate: info.DefaultSampleRate,
			DefaultInput:      defaultIn != nil && defaultIn.Index == info.Index,
			DefaultOutput:     defaultOut != nil && defaultOut.Index == info.Index,
		}
		if v := info.HostApi; v != nil {
			device.HostApi = v.Name
		}
		result = append(result, device)
	}
	return result, nil
}

func (this *Stack) SetMode(_ context.Context, mode Mode) error {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	if !this.initialized {
		return &DeviceError{"switch audio mode", ErrNotInitialized}
	}
	if this.mode == mode {
		return nil
	}
	switch mode {
	case ModeRecording:
		if len(this.sounds) > 0 {
			return deviceErrorf("switch to recording mode", ErrDeviceBusy, len(this.sounds), " sound(s) still loaded")
		}
	case ModePlayback:
		if len(this.recordings) > 0 {
			return deviceErrorf("switch to playback mode", ErrDeviceBusy, len(this.recordings), " recording(s) still running")
		}
	default:
		return fmt.Errorf("illegal audio mode: %d", mode)
	}

	log.With("from", this.mode).
		With("to", mode).
		Debug("Audio mode switched.")
	this.mode = mode
	return nil
}

func (this *Stack) Mode() Mode {
	this.mutex.RLock()
	defer this.mutex.RUnlock()
	return this.mode
}

func (this *Stack) Capture() Capture {
	return (*stackCapture)(this)
}

func (this *Stack) Playback() Playback {
	return (*stackPlayback)(this)
}
