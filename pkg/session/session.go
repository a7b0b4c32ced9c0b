package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	log "github.com/echocat/slf4g"

	"github.com/blaubaer/sound-detect/pkg/audio"
	"github.com/blaubaer/sound-detect/pkg/signal"
	"github.com/blaubaer/sound-detect/pkg/upload"
)

type Stager interface {
	Stage(ctx context.Context, source string) (string, error)
}

type PermissionRequester interface {
	RequestPermission(ctx context.Context) (bool, error)
}

type Uploader interface {
	Upload(ctx context.Context, location string) (upload.Result, error)
}

type Dependencies struct {
	Capture  audio.Capture
	Playback audio.Playback
	Modes    audio.ModeSwitcher
	Stager   Stager
	// MediaLibrary grants access to the place recordings are staged to.
	MediaLibrary PermissionRequester
	Uploader     Uploader
	// Loading is optional.
	Loading *signal.Loading
	Options audio.EncodingOptions
}

// Session owns the recording and playback handles of one application run
// and guards every transition between its statuses. All methods are safe
// for concurrent use; commands are serialized.
type Session struct {
	conf Configuration
	deps Dependencies

	mutex        sync.Mutex
	status       Status
	recording    *audio.RecordingHandle
	playback     *audio.PlaybackHandle
	fileLocation string
	elapsed      time.Duration
	progress     float64
	lastResult   UploadResult
	uploading    bool
	sampler      *sampler
	disposed     bool

	listeners       []func(Snapshot)
	resultListeners []func(UploadResult)
}

func New(conf Configuration, deps Dependencies) *Session {
	return &Session{
		conf: conf,
		deps: deps,
	}
}

// OnChange registers fn to be called with a fresh snapshot after every
// change. fn is never called while the session is locked.
func (this *Session) OnChange(fn func(Snapshot)) {
	this.mutex.Lock()
	defer this.mutex.Unlock()
	this.listeners = append(this.listeners, fn)
}

// OnResult registers fn to be called after every upload attempt,
// regardless of its outcome.
func (this *Session) OnResult(fn func(UploadResult)) {
	this.mutex.Lock()
	defer this.mutex.Unlock()
	this.resultListeners = append(this.resultListeners, fn)
}

func (this *Session) Snapshot() Snapshot {
	this.mutex.Lock()
	defer this.mutex.Unlock()
	return this.snapshot()
}

func (this *Session) StartRecording(ctx context.Context) error {
	this.mutex.Lock()
	defer this.unlockAndNotify()

	if err := this.require("start recording", StatusIdle, StatusRecorded); err != nil {
		return err
	}
	if this.uploading {
		// The new take would discard the file which is currently uploaded.
		return ErrBusy
	}

	if err := this.requestPermission(ctx, this.deps.Capture, audio.PermissionMicrophone); err != nil {
		return err
	}
	if err := this.requestPermission(ctx, this.deps.MediaLibrary, audio.PermissionMediaLibrary); err != nil {
		return err
	}

	if err := this.deps.Modes.SetMode(ctx, audio.ModeRecording); err != nil {
		return fmt.Errorf("cannot switch to recording mode: %w", err)
	}

	h, err := this.deps.Capture.Start(ctx, this.deps.Options)
	if err != nil {
		this.restorePlaybackMode(ctx)
		log.WithError(err).
			Warn("Cannot start recording.")
		return fmt.Errorf("cannot start recording: %w", err)
	}

	this.recording = &h
	this.fileLocation = ""
	this.elapsed = 0
	this.progress = 0
	this.lastResult = UploadResult{}
	this.status = StatusRecording
	this.startSampler(this.sampleRecording)

	log.With("handle", h).
		With("options", this.deps.Options).
		Info("Recording started.")
	return nil
}

// StopRecording finalizes the running recording and stages it. Without a
// running recording this is a no-op.
func (this *Session) StopRecording(ctx context.Context) error {
	this.mutex.Lock()
	defer this.unlockAndNotify()

	if this.disposed {
		return ErrDisposed
	}
	if this.recording == nil {
		return nil
	}

	h := *this.recording
	this.stopSampler()
	location, err := this.deps.Capture.Stop(ctx, h)
	this.recording = nil
	this.elapsed = 0
	this.restorePlaybackMode(ctx)
	if err != nil {
		this.status = StatusIdle
		log.WithError(err).
			With("handle", h).
			Warn("Cannot stop recording.")
		return fmt.Errorf("cannot stop recording: %w", err)
	}

	exit := this.enterLoading()
	staged, err := this.deps.Stager.Stage(ctx, location)
	exit()
	if err != nil {
		this.status = StatusIdle
		log.WithError(err).
			With("source", location).
			Warn("Cannot stage recording.")
		return err
	}

	this.fileLocation = staged
	this.status = StatusRecorded
	log.With("file", staged).
		Info("Audio file saved.")
	return nil
}

func (this *Session) Play(ctx context.Context) error {
	this.mutex.Lock()
	defer this.unlockAndNotify()

	if err := this.require("play", StatusIdle, StatusRecorded); err != nil {
		return err
	}
	if this.fileLocation == "" {
		return this.illegal("play", "there is no recording")
	}

	h, err := this.deps.Playback.Load(ctx, this.fileLocation)
	if err != nil {
		log.WithError(err).
			With("file", this.fileLocation).
			Warn("Cannot load recording.")
		return fmt.Errorf("cannot load recording: %w", err)
	}
	if err := this.deps.Playback.Play(h); err != nil {
		if uErr := this.deps.Playback.Unload(h); uErr != nil {
			log.WithError(uErr).
				With("handle", h).
				Warn("Cannot unload recording.")
		}
		return fmt.Errorf("cannot play recording: %w", err)
	}

	this.playback = &h
	this.progress = 0
	this.elapsed = 0
	this.status = StatusPlaying
	this.startSampler(this.samplePlayback)

	log.With("handle", h).
		With("file", this.fileLocation).
		Info("Playback started.")
	return nil
}

// PauseOrResume pauses a playing recording or resumes a paused one.
func (this *Session) PauseOrResume(context.Context) error {
	this.mutex.Lock()
	defer this.unlockAndNotify()

	if err := this.require("pause or resume", StatusPlaying, StatusPaused); err != nil {
		return err
	}

	h := *this.playback
	if this.status == StatusPlaying {
		if err := this.deps.Playback.Pause(h); err != nil {
			return fmt.Errorf("cannot pause playback: %w", err)
		}
		this.stopSampler()
		this.status = StatusPaused
		if st, err := this.deps.Playback.Status(h); err == nil {
			this.applyPlaybackStatus(st)
		}
		log.With("handle", h).Info("Playback paused.")
		return nil
	}

	if err := this.deps.Playback.Play(h); err != nil {
		return fmt.Errorf("cannot resume playback: %w", err)
	}
	this.status = StatusPlaying
	this.startSampler(this.samplePlayback)
	log.With("handle", h).Info("Playback resumed.")
	return nil
}

// Stop ends a playing or paused playback and releases it. The handle is
// released even if the device refuses to stop.
func (this *Session) Stop(context.Context) error {
	this.mutex.Lock()
	defer this.unlockAndNotify()

	if err := this.require("stop", StatusPlaying, StatusPaused); err != nil {
		return err
	}

	h := *this.playback
	this.stopSampler()
	err := this.deps.Playback.Stop(h)
	this.releasePlayback()
	if err != nil {
		return fmt.Errorf("cannot stop playback: %w", err)
	}
	log.With("handle", h).Info("Playback stopped.")
	return nil
}

// Upload submits the current recording. Failed uploads are not returned
// as errors but reported through the result. Errors are only returned if
// the upload was not attempted at all.
func (this *Session) Upload(ctx context.Context) (UploadResult, error) {
	this.mutex.Lock()
	if err := this.checkUpload(); err != nil {
		this.mutex.Unlock()
		return UploadResult{}, err
	}
	this.uploading = true
	location := this.fileLocation
	this.unlockAndNotify()

	exit := this.enterLoading()
	rsp, err := this.deps.Uploader.Upload(ctx, location)
	exit()
	result := resultOf(location, rsp, err)

	this.mutex.Lock()
	this.uploading = false
	this.lastResult = result
	listeners := slices.Clone(this.resultListeners)
	this.unlockAndNotify()

	for _, l := range listeners {
		l(result)
	}
	return result, nil
}

func (this *Session) checkUpload() error {
	if this.disposed {
		return ErrDisposed
	}
	if this.status == StatusRecording {
		return this.illegal("upload", "recording is still running")
	}
	if this.fileLocation == "" {
		return this.illegal("upload", "there is no recording")
	}
	if this.uploading {
		return ErrBusy
	}
	return nil
}

// Dispose releases every handle the session still owns. Afterward every
// command fails with ErrDisposed.
func (this *Session) Dispose() (rErr error) {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	if this.disposed {
		return nil
	}
	this.disposed = true
	this.stopSampler()

	ctx := context.Background()
	if h := this.recording; h != nil {
		if _, err := this.deps.Capture.Stop(ctx, *h); err != nil {
			rErr = errors.Join(rErr, fmt.Errorf("cannot stop recording: %w", err))
		}
		this.recording = nil
		this.restorePlaybackMode(ctx)
	}
	if h := this.playback; h != nil {
		if err := this.deps.Playback.Stop(*h); err != nil {
			rErr = errors.Join(rErr, fmt.Errorf("cannot stop playback: %w", err))
		}
		this.releasePlayback()
	}
	this.status = StatusIdle
	this.elapsed = 0
	this.progress = 0
	return rErr
}

func (this *Session) require(command string, allowed ...Status) error {
	if this.disposed {
		return ErrDisposed
	}
	if !Statuses(allowed).Contains(this.status) {
		return this.illegal(command, "")
	}
	return nil
}

func (this *Session) illegal(command, reason string) error {
	return &IllegalStateError{Command: command, Status: this.status, Reason: reason}
}

func (this *Session) requestPermission(ctx context.Context, by PermissionRequester, permission string) error {
	granted, err := by.RequestPermission(ctx)
	if err != nil {
		return fmt.Errorf("cannot request %s permission: %w", permission, err)
	}
	if !granted {
		log.With("permission", permission).
			Warn("Permission not granted.")
		return &audio.PermissionError{Permission: permission}
	}
	return nil
}

func (this *Session) restorePlaybackMode(ctx context.Context) {
	if err := this.deps.Modes.SetMode(ctx, audio.ModePlayback); err != nil {
		log.WithError(err).
			Warn("Cannot restore playback mode.")
	}
}

// releasePlayback has to be called with the sampler already stopped.
func (this *Session) releasePlayback() {
	if h := this.playback; h != nil {
		if err := this.deps.Playback.Unload(*h); err != nil {
			log.WithError(err).
				With("handle", *h).
				Warn("Cannot unload recording.")
		}
	}
	this.playback = nil
	this.progress = 0
	this.elapsed = 0
	this.status = StatusRecorded
}

func (this *Session) applyPlaybackStatus(st audio.PlaybackStatus) {
	this.progress = st.Progress()
	this.elapsed = st.Position
}

func (this *Session) enterLoading() func() {
	if l := this.deps.Loading; l != nil {
		return l.Enter()
	}
	return func() {}
}

func (this *Session) snapshot() Snapshot {
	result := Snapshot{
		Status:           this.status,
		FileLocation:     this.fileLocation,
		Elapsed:          this.elapsed,
		PlaybackProgress: this.progress,
		LastResult:       this.lastResult,
		Uploading:        this.uploading,
	}
	if v := this.recording; v != nil {
		h := *v
		result.RecordingHandle = &h
	}
	if v := this.playback; v != nil {
		h := *v
		result.PlaybackHandle = &h
	}
	return result
}

// unlockAndNotify releases the lock acquired by the caller and informs
// the listeners afterward.
func (this *Session) unlockAndNotify() {
	snapshot := this.snapshot()
	listeners := slices.Clone(this.listeners)
	this.mutex.Unlock()

	for _, l := range listeners {
		l(snapshot)
	}
}
