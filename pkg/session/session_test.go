package session

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blaubaer/sound-detect/pkg/audio"
	"github.com/blaubaer/sound-detect/pkg/audio/audiotest"
	"github.com/blaubaer/sound-detect/pkg/common"
	"github.com/blaubaer/sound-detect/pkg/signal"
	"github.com/blaubaer/sound-detect/pkg/staging"
	"github.com/blaubaer/sound-detect/pkg/upload"
)

var bg = context.Background()

type fixture struct {
	capture      *audiotest.Capture
	playback     *audiotest.Playback
	modes        *audiotest.ModeSwitcher
	stager       Stager
	mediaLibrary *stubPermission
	uploader     *stubUploader
	loading      *signal.Loading
	conf         Configuration
	stagingDir   string

	instance *Session
}

func givenSession(t testing.TB, customizers ...func(*fixture)) *fixture {
	t.Helper()

	dir := t.TempDir()
	f := &fixture{
		capture:      &audiotest.Capture{Directory: filepath.Join(dir, "transient")},
		playback:     &audiotest.Playback{},
		modes:        &audiotest.ModeSwitcher{},
		mediaLibrary: &stubPermission{granted: true},
		uploader: &stubUploader{result: upload.Result{
			StatusCode: http.StatusOK,
			Body:       []byte(`{"prediction":"dog_bark"}`),
		}},
		loading:    &signal.Loading{},
		conf:       Configuration{SampleInterval: time.Hour},
		stagingDir: filepath.Join(dir, "recordings"),
	}
	f.stager = staging.New(staging.Configuration{Directory: f.stagingDir})
	for _, c := range customizers {
		c(f)
	}

	f.instance = New(f.conf, Dependencies{
		Capture:      f.capture,
		Playback:     f.playback,
		Modes:        f.modes,
		Stager:       f.stager,
		MediaLibrary: f.mediaLibrary,
		Uploader:     f.uploader,
		Loading:      f.loading,
		Options:      audio.NewConfiguration().EncodingOptions,
	})
	t.Cleanup(func() {
		_ = f.instance.Dispose()
	})
	return f
}

func fastSampling(f *fixture) {
	f.conf.SampleInterval = 2 * time.Millisecond
}

// givenRecorded brings the session into StatusRecorded.
func (this *fixture) givenRecorded(t testing.TB) {
	t.Helper()
	require.NoError(t, this.instance.StartRecording(bg))
	require.NoError(t, this.instance.StopRecording(bg))
	require.Equal(t, StatusRecorded, this.instance.Snapshot().Status)
}

func (this *fixture) currentSampler() *sampler {
	this.instance.mutex.Lock()
	defer this.instance.mutex.Unlock()
	return this.instance.sampler
}

type stubPermission struct {
	granted bool
	err     error
}

func (this *stubPermission) RequestPermission(context.Context) (bool, error) {
	return this.granted, this.err
}

type failingStager struct{}

func (this failingStager) Stage(_ context.Context, source string) (string, error) {
	return "", &staging.StagingError{Op: "stage", Path: source, Err: errors.New("disk full")}
}

type stubUploader struct {
	mutex  sync.Mutex
	result upload.Result
	err    error
	calls  []string
	// during is called inside Upload, before it returns.
	during func()
}

func (this *stubUploader) Upload(_ context.Context, location string) (upload.Result, error) {
	this.mutex.Lock()
	this.calls = append(this.calls, location)
	during := this.during
	this.mutex.Unlock()

	if during != nil {
		during()
	}
	return this.result, this.err
}

func (this *stubUploader) numberOfCalls() int {
	this.mutex.Lock()
	defer this.mutex.Unlock()
	return len(this.calls)
}

func TestSession_startThenImmediatelyStopRecording(t *testing.T) {
	f := givenSession(t)

	require.NoError(t, f.instance.StartRecording(bg))
	actual := f.instance.Snapshot()
	assert.Equal(t, StatusRecording, actual.Status)
	assert.NotNil(t, actual.RecordingHandle)
	assert.Nil(t, actual.PlaybackHandle)

	require.NoError(t, f.instance.StopRecording(bg))
	actual = f.instance.Snapshot()
	assert.Equal(t, StatusRecorded, actual.Status)
	assert.Equal(t, filepath.Join(f.stagingDir, "capture-1.wav"), actual.FileLocation)
	assert.FileExists(t, actual.FileLocation)
	assert.Equal(t, int64(0), actual.ElapsedMillis())
	assert.Nil(t, actual.RecordingHandle)
	assert.Nil(t, actual.PlaybackHandle)

	assert.Equal(t, 0, f.capture.Running())
	assert.Equal(t, []audio.Mode{audio.ModeRecording, audio.ModePlayback}, f.modes.Modes())
	assert.Equal(t, 44100, f.capture.LastOptions().SampleRate)
}

func TestSession_newTakeDiscardsPreviousFile(t *testing.T) {
	f := givenSession(t)
	f.givenRecorded(t)
	first := f.instance.Snapshot().FileLocation

	require.NoError(t, f.instance.StartRecording(bg))
	assert.Equal(t, "", f.instance.Snapshot().FileLocation)

	require.NoError(t, f.instance.StopRecording(bg))
	second := f.instance.Snapshot().FileLocation
	assert.NotEqual(t, first, second)
	assert.FileExists(t, first)
}

func TestSession_StartRecording_illegalWhileRecording(t *testing.T) {
	f := givenSession(t)
	require.NoError(t, f.instance.StartRecording(bg))

	err := f.instance.StartRecording(bg)

	assert.ErrorIs(t, err, ErrIllegalState)
	ise, ok := common.AsError[*IllegalStateError](err)
	require.True(t, ok)
	assert.Equal(t, StatusRecording, ise.Status)
	assert.Equal(t, 1, f.capture.Running())
}

func TestSession_StartRecording_illegalWhilePlaying(t *testing.T) {
	f := givenSession(t)
	f.givenRecorded(t)
	require.NoError(t, f.instance.Play(bg))

	assert.ErrorIs(t, f.instance.StartRecording(bg), ErrIllegalState)
	assert.Equal(t, StatusPlaying, f.instance.Snapshot().Status)
	assert.Equal(t, 0, f.capture.Running())
}

func TestSession_StartRecording_microphoneDenied(t *testing.T) {
	f := givenSession(t, func(f *fixture) {
		f.capture.Denied = true
	})

	err := f.instance.StartRecording(bg)

	pe, ok := common.AsError[*audio.PermissionError](err)
	require.True(t, ok, "expected PermissionError but got: %v", err)
	assert.Equal(t, audio.PermissionMicrophone, pe.Permission)
	assert.Equal(t, StatusIdle, f.instance.Snapshot().Status)
	assert.Nil(t, f.instance.Snapshot().RecordingHandle)
	assert.Empty(t, f.modes.Modes())
}

func TestSession_StartRecording_mediaLibraryDenied(t *testing.T) {
	f := givenSession(t, func(f *fixture) {
		f.mediaLibrary.granted = false
	})

	err := f.instance.StartRecording(bg)

	pe, ok := common.AsError[*audio.PermissionError](err)
	require.True(t, ok, "expected PermissionError but got: %v", err)
	assert.Equal(t, audio.PermissionMediaLibrary, pe.Permission)
	assert.Equal(t, StatusIdle, f.instance.Snapshot().Status)
	assert.Equal(t, 0, f.capture.Running())
}

func TestSession_StartRecording_keepsPreviousRecordingOnFailure(t *testing.T) {
	f := givenSession(t)
	f.givenRecorded(t)
	before := f.instance.Snapshot()
	f.capture.StartErr = &audio.DeviceError{Op: "start recording", Err: audio.ErrDeviceUnavailable}

	err := f.instance.StartRecording(bg)

	assert.ErrorIs(t, err, audio.ErrDeviceUnavailable)
	assert.Equal(t, before, f.instance.Snapshot())
	assert.Equal(t, audio.ModePlayback, f.modes.Mode())
}

func TestSession_StartRecording_restoresModeIfCaptureFails(t *testing.T) {
	f := givenSession(t, func(f *fixture) {
		f.capture.StartErr = &audio.DeviceError{Op: "start recording", Err: audio.ErrDeviceUnavailable}
	})

	err := f.instance.StartRecording(bg)

	assert.True(t, common.IsError[*audio.DeviceError](err))
	assert.Equal(t, StatusIdle, f.instance.Snapshot().Status)
	assert.Equal(t, []audio.Mode{audio.ModeRecording, audio.ModePlayback}, f.modes.Modes())
	assert.Equal(t, audio.ModePlayback, f.modes.Mode())
}

func TestSession_StartRecording_modeSwitchFails(t *testing.T) {
	f := givenSession(t, func(f *fixture) {
		f.modes.Err = &audio.DeviceError{Op: "switch mode", Err: audio.ErrDeviceBusy}
	})

	err := f.instance.StartRecording(bg)

	assert.ErrorIs(t, err, audio.ErrDeviceBusy)
	assert.Equal(t, StatusIdle, f.instance.Snapshot().Status)
	assert.Equal(t, 0, f.capture.Running())
}

func TestSession_StopRecording_withoutRecordingIsNoop(t *testing.T) {
	f := givenSession(t)
	before := f.instance.Snapshot()

	assert.NoError(t, f.instance.StopRecording(bg))

	assert.Equal(t, before, f.instance.Snapshot())
	assert.Empty(t, f.modes.Modes())
}

func TestSession_StopRecording_stagingFails(t *testing.T) {
	f := givenSession(t, func(f *fixture) {
		f.stager = failingStager{}
	})
	require.NoError(t, f.instance.StartRecording(bg))

	err := f.instance.StopRecording(bg)

	assert.True(t, common.IsError[*staging.StagingError](err))
	actual := f.instance.Snapshot()
	assert.Equal(t, StatusIdle, actual.Status)
	assert.Equal(t, "", actual.FileLocation)
	assert.Nil(t, actual.RecordingHandle)
	assert.Equal(t, 0, f.capture.Running())
	assert.Equal(t, audio.ModePlayback, f.modes.Mode())
	assert.Equal(t, signal.StateHidden, f.loading.State())
}

func TestSession_StopRecording_captureFails(t *testing.T) {
	f := givenSession(t, func(f *fixture) {
		f.capture.StopErr = &audio.DeviceError{Op: "stop recording", Err: audio.ErrDeviceUnavailable}
	})
	require.NoError(t, f.instance.StartRecording(bg))

	err := f.instance.StopRecording(bg)

	assert.ErrorIs(t, err, audio.ErrDeviceUnavailable)
	assert.Equal(t, StatusIdle, f.instance.Snapshot().Status)
	assert.Nil(t, f.instance.Snapshot().RecordingHandle)
}

func TestSession_recordingDurationIsSampled(t *testing.T) {
	f := givenSession(t, fastSampling, func(f *fixture) {
		f.capture.ElapsedValue = 1500 * time.Millisecond
	})

	require.NoError(t, f.instance.StartRecording(bg))

	assert.Eventually(t, func() bool {
		return f.instance.Snapshot().ElapsedMillis() == 1500
	}, time.Second, time.Millisecond)

	require.NoError(t, f.instance.StopRecording(bg))
	assert.Equal(t, int64(0), f.instance.Snapshot().ElapsedMillis())
}

func TestSession_Play_requiresRecording(t *testing.T) {
	f := givenSession(t)

	err := f.instance.Play(bg)

	assert.ErrorIs(t, err, ErrIllegalState)
	assert.Equal(t, 0, f.playback.Loaded())
}

func TestSession_Play(t *testing.T) {
	f := givenSession(t)
	f.givenRecorded(t)

	require.NoError(t, f.instance.Play(bg))

	actual := f.instance.Snapshot()
	assert.Equal(t, StatusPlaying, actual.Status)
	assert.NotNil(t, actual.PlaybackHandle)
	assert.Nil(t, actual.RecordingHandle)
	assert.Equal(t, 1, f.playback.Playing())

	assert.ErrorIs(t, f.instance.Play(bg), ErrIllegalState)
	assert.Equal(t, 1, f.playback.Loaded())
}

func TestSession_Play_unloadsIfPlayFails(t *testing.T) {
	f := givenSession(t)
	f.givenRecorded(t)
	f.playback.PlayErr = &audio.DeviceError{Op: "play", Err: audio.ErrDeviceBusy}

	err := f.instance.Play(bg)

	assert.ErrorIs(t, err, audio.ErrDeviceBusy)
	assert.Equal(t, StatusRecorded, f.instance.Snapshot().Status)
	assert.Nil(t, f.instance.Snapshot().PlaybackHandle)
	assert.Equal(t, 0, f.playback.Loaded())
}

func TestSession_Play_loadFails(t *testing.T) {
	f := givenSession(t)
	f.givenRecorded(t)
	f.playback.LoadErr = &audio.DeviceError{Op: "load", Err: audio.ErrUnsupportedContainer}

	err := f.instance.Play(bg)

	assert.ErrorIs(t, err, audio.ErrUnsupportedContainer)
	assert.Equal(t, StatusRecorded, f.instance.Snapshot().Status)
}

func TestSession_playbackProgressIsSampled(t *testing.T) {
	f := givenSession(t, fastSampling)
	f.givenRecorded(t)
	require.NoError(t, f.instance.Play(bg))

	f.playback.Advance(1500 * time.Millisecond)

	assert.Eventually(t, func() bool {
		actual := f.instance.Snapshot()
		return actual.PlaybackProgress == 0.5 && actual.ElapsedMillis() == 1500
	}, time.Second, time.Millisecond)
}

func TestSession_playbackAutoFinishes(t *testing.T) {
	f := givenSession(t, fastSampling)
	f.givenRecorded(t)
	require.NoError(t, f.instance.Play(bg))
	s := f.currentSampler()

	f.playback.Advance(time.Hour)

	assert.Eventually(t, func() bool {
		return f.instance.Snapshot().Status == StatusRecorded
	}, time.Second, time.Millisecond)

	actual := f.instance.Snapshot()
	assert.Equal(t, float64(0), actual.PlaybackProgress)
	assert.Equal(t, int64(0), actual.ElapsedMillis())
	assert.Nil(t, actual.PlaybackHandle)
	assert.Equal(t, 0, f.playback.Loaded())
	assertSamplerEnds(t, s)
	assert.Equal(t, 0, f.playback.StaleCalls())
}

func TestSession_PauseOrResume_twiceReturnsToPlaying(t *testing.T) {
	f := givenSession(t)
	f.givenRecorded(t)
	require.NoError(t, f.instance.Play(bg))

	require.NoError(t, f.instance.PauseOrResume(bg))
	assert.Equal(t, StatusPaused, f.instance.Snapshot().Status)
	assert.Equal(t, 0, f.playback.Playing())
	assert.Nil(t, f.currentSampler())

	require.NoError(t, f.instance.PauseOrResume(bg))
	assert.Equal(t, StatusPlaying, f.instance.Snapshot().Status)
	assert.Equal(t, 1, f.playback.Playing())
	assert.NotNil(t, f.currentSampler())
}

func TestSession_PauseOrResume_keepsPosition(t *testing.T) {
	f := givenSession(t)
	f.givenRecorded(t)
	require.NoError(t, f.instance.Play(bg))
	f.playback.Advance(750 * time.Millisecond)

	require.NoError(t, f.instance.PauseOrResume(bg))

	actual := f.instance.Snapshot()
	assert.Equal(t, 0.25, actual.PlaybackProgress)
	assert.Equal(t, int64(750), actual.ElapsedMillis())
}

func TestSession_PauseOrResume_illegalWithoutPlayback(t *testing.T) {
	f := givenSession(t)
	f.givenRecorded(t)

	assert.ErrorIs(t, f.instance.PauseOrResume(bg), ErrIllegalState)
	assert.Equal(t, StatusRecorded, f.instance.Snapshot().Status)
}

func TestSession_Stop(t *testing.T) {
	for _, paused := range []bool{false, true} {
		t.Run(map[bool]string{false: "playing", true: "paused"}[paused], func(t *testing.T) {
			f := givenSession(t)
			f.givenRecorded(t)
			require.NoError(t, f.instance.Play(bg))
			f.playback.Advance(time.Second)
			if paused {
				require.NoError(t, f.instance.PauseOrResume(bg))
			}

			require.NoError(t, f.instance.Stop(bg))

			actual := f.instance.Snapshot()
			assert.Equal(t, StatusRecorded, actual.Status)
			assert.Nil(t, actual.PlaybackHandle)
			assert.Equal(t, float64(0), actual.PlaybackProgress)
			assert.Equal(t, int64(0), actual.ElapsedMillis())
			assert.Equal(t, 0, f.playback.Loaded())
			assert.Nil(t, f.currentSampler())
		})
	}
}

func TestSession_Stop_illegalWhileRecorded(t *testing.T) {
	f := givenSession(t)
	f.givenRecorded(t)

	assert.ErrorIs(t, f.instance.Stop(bg), ErrIllegalState)
}

func TestSession_Upload_success(t *testing.T) {
	f := givenSession(t)
	f.givenRecorded(t)
	var notified []UploadResult
	f.instance.OnResult(func(r UploadResult) {
		notified = append(notified, r)
	})

	actual, err := f.instance.Upload(bg)

	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, actual.Outcome)
	assert.Equal(t, "dog_bark", actual.Label)
	assert.Equal(t, actual, f.instance.Snapshot().LastResult)
	assert.Equal(t, []UploadResult{actual}, notified)
	assert.Equal(t, []string{f.instance.Snapshot().FileLocation}, f.uploader.calls)
	assert.Equal(t, StatusRecorded, f.instance.Snapshot().Status)
	assert.False(t, f.instance.Snapshot().Uploading)
}

func TestSession_Upload_serverError(t *testing.T) {
	f := givenSession(t, func(f *fixture) {
		f.uploader.result = upload.Result{StatusCode: http.StatusInternalServerError, Body: []byte("boom")}
	})
	f.givenRecorded(t)
	var notified int
	f.instance.OnResult(func(UploadResult) {
		notified++
	})

	actual, err := f.instance.Upload(bg)

	require.NoError(t, err)
	assert.Equal(t, OutcomeFailure, actual.Outcome)
	assert.Equal(t, "", actual.Label)
	se, ok := common.AsError[*upload.ServerError](actual.Err)
	require.True(t, ok)
	assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
	assert.Equal(t, "boom", se.Body)
	assert.Equal(t, OutcomeFailure, f.instance.Snapshot().LastResult.Outcome)
	assert.Equal(t, 1, notified)
}

func TestSession_Upload_transportError(t *testing.T) {
	f := givenSession(t, func(f *fixture) {
		f.uploader.err = &upload.TransportError{Url: "http://localhost", Err: errors.New("connection refused")}
	})
	f.givenRecorded(t)

	actual, err := f.instance.Upload(bg)

	require.NoError(t, err)
	assert.Equal(t, OutcomeFailure, actual.Outcome)
	assert.True(t, common.IsError[*upload.TransportError](actual.Err))
}

func TestSession_Upload_withoutRecording(t *testing.T) {
	f := givenSession(t)
	var notified int
	f.instance.OnResult(func(UploadResult) {
		notified++
	})
	before := f.instance.Snapshot()

	_, err := f.instance.Upload(bg)

	assert.ErrorIs(t, err, ErrIllegalState)
	assert.Equal(t, 0, f.uploader.numberOfCalls())
	assert.Equal(t, before, f.instance.Snapshot())
	assert.Equal(t, 0, notified)
}

func TestSession_Upload_whileRecording(t *testing.T) {
	f := givenSession(t)
	f.givenRecorded(t)
	require.NoError(t, f.instance.StartRecording(bg))

	_, err := f.instance.Upload(bg)

	assert.ErrorIs(t, err, ErrIllegalState)
	assert.Equal(t, 0, f.uploader.numberOfCalls())
}

func TestSession_Upload_whilePlaying(t *testing.T) {
	f := givenSession(t)
	f.givenRecorded(t)
	require.NoError(t, f.instance.Play(bg))

	actual, err := f.instance.Upload(bg)

	require.NoError(t, err)
	assert.True(t, actual.Succeeded())
	assert.Equal(t, StatusPlaying, f.instance.Snapshot().Status)
}

func TestSession_Upload_onlyOneAtATime(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	f := givenSession(t, func(f *fixture) {
		f.uploader.during = func() {
			close(entered)
			<-release
		}
	})
	f.givenRecorded(t)

	done := make(chan UploadResult)
	go func() {
		r, _ := f.instance.Upload(bg)
		done <- r
	}()
	<-entered

	assert.True(t, f.instance.Snapshot().Uploading)
	assert.Equal(t, signal.StateVisible, f.loading.State())
	_, err := f.instance.Upload(bg)
	assert.ErrorIs(t, err, ErrBusy)

	close(release)
	assert.True(t, (<-done).Succeeded())
	assert.False(t, f.instance.Snapshot().Uploading)
	assert.Equal(t, signal.StateHidden, f.loading.State())
	assert.Equal(t, 1, f.uploader.numberOfCalls())
}

func TestSession_StartRecording_rejectedWhileUploading(t *testing.T) {
	f := givenSession(t)
	f.givenRecorded(t)
	location := f.instance.Snapshot().FileLocation
	var startErr error
	f.uploader.during = func() {
		startErr = f.instance.StartRecording(bg)
	}

	actual, err := f.instance.Upload(bg)

	require.NoError(t, err)
	assert.ErrorIs(t, startErr, ErrBusy)
	assert.Equal(t, 0, f.capture.Running())
	snapshot := f.instance.Snapshot()
	assert.Equal(t, StatusRecorded, snapshot.Status)
	assert.Equal(t, location, snapshot.FileLocation)
	assert.Nil(t, snapshot.RecordingHandle)
	assert.Equal(t, actual, snapshot.LastResult)
	assert.Equal(t, "dog_bark", snapshot.LastResult.Label)

	require.NoError(t, f.instance.StartRecording(bg), "accepted again once the upload is done")
	assert.Equal(t, OutcomeNone, f.instance.Snapshot().LastResult.Outcome)
}

func TestSession_samplerIsCancelledWhenRecordingStops(t *testing.T) {
	f := givenSession(t, fastSampling)
	require.NoError(t, f.instance.StartRecording(bg))
	s := f.currentSampler()
	require.NotNil(t, s)

	require.NoError(t, f.instance.StopRecording(bg))

	assertSamplerEnds(t, s)
	assert.Nil(t, f.currentSampler())
	assert.Equal(t, 0, f.capture.StaleCalls())
}

func TestSession_samplerIsCancelledWhenPlaybackStops(t *testing.T) {
	f := givenSession(t, fastSampling)
	f.givenRecorded(t)
	require.NoError(t, f.instance.Play(bg))
	s := f.currentSampler()
	require.NotNil(t, s)

	require.NoError(t, f.instance.Stop(bg))

	assertSamplerEnds(t, s)
	assert.Equal(t, 0, f.playback.StaleCalls())
}

func TestSession_staleTickIsDropped(t *testing.T) {
	f := givenSession(t)
	require.NoError(t, f.instance.StartRecording(bg))
	s := f.currentSampler()
	require.NoError(t, f.instance.StopRecording(bg))

	f.instance.sampleRecording(s)

	assert.Equal(t, 0, f.capture.StaleCalls())
	assert.Equal(t, StatusRecorded, f.instance.Snapshot().Status)
}

func TestSession_Dispose(t *testing.T) {
	t.Run("recording", func(t *testing.T) {
		f := givenSession(t, fastSampling)
		require.NoError(t, f.instance.StartRecording(bg))
		s := f.currentSampler()

		require.NoError(t, f.instance.Dispose())

		assert.Equal(t, 0, f.capture.Running())
		assert.Equal(t, audio.ModePlayback, f.modes.Mode())
		assertSamplerEnds(t, s)
		assert.ErrorIs(t, f.instance.StartRecording(bg), ErrDisposed)
	})
	t.Run("playing", func(t *testing.T) {
		f := givenSession(t, fastSampling)
		f.givenRecorded(t)
		require.NoError(t, f.instance.Play(bg))
		s := f.currentSampler()

		require.NoError(t, f.instance.Dispose())

		assert.Equal(t, 0, f.playback.Loaded())
		assertSamplerEnds(t, s)
		assert.ErrorIs(t, f.instance.Play(bg), ErrDisposed)
		_, err := f.instance.Upload(bg)
		assert.ErrorIs(t, err, ErrDisposed)
	})
}

func TestSession_loadingIsRaisedWhileStaging(t *testing.T) {
	var states []signal.State
	f := givenSession(t)
	f.loading.Register(signal.SignalFunc(func(s signal.State) error {
		states = append(states, s)
		return nil
	}))

	f.givenRecorded(t)

	assert.Equal(t, []signal.State{signal.StateHidden, signal.StateVisible, signal.StateHidden}, states)
}

func TestSession_listenersSeeEveryChange(t *testing.T) {
	f := givenSession(t)
	var statuses []Status
	f.instance.OnChange(func(s Snapshot) {
		statuses = append(statuses, s.Status)
	})

	f.givenRecorded(t)
	require.NoError(t, f.instance.Play(bg))
	require.NoError(t, f.instance.Stop(bg))

	assert.Equal(t, []Status{StatusRecording, StatusRecorded, StatusPlaying, StatusRecorded}, statuses)
}

func TestSession_handlesAreNeverHeldTogether(t *testing.T) {
	f := givenSession(t, fastSampling, func(f *fixture) {
		f.playback.Duration = 20 * time.Millisecond
	})
	var violations atomic.Int32
	check := func(s Snapshot) {
		if s.RecordingHandle != nil && s.PlaybackHandle != nil {
			violations.Add(1)
		}
	}
	f.instance.OnChange(check)

	commands := []func(){
		func() { _ = f.instance.StartRecording(bg) },
		func() { _ = f.instance.StopRecording(bg) },
		func() { _ = f.instance.Play(bg) },
		func() { _ = f.instance.PauseOrResume(bg) },
		func() { _ = f.instance.Stop(bg) },
		func() { _, _ = f.instance.Upload(bg) },
		func() { f.playback.Advance(5 * time.Millisecond) },
		func() { time.Sleep(time.Millisecond) },
	}

	rnd := rand.New(rand.NewSource(4711))
	for i := 0; i < 500; i++ {
		commands[rnd.Intn(len(commands))]()
		check(f.instance.Snapshot())
	}

	assert.Equal(t, int32(0), violations.Load())
	assert.Equal(t, 0, f.capture.StaleCalls())
	assert.Equal(t, 0, f.playback.StaleCalls())
}

func assertSamplerEnds(t testing.TB, s *sampler) {
	t.Helper()
	require.NotNil(t, s)
	select {
	case <-s.done:
	case <-time.After(time.Second):
		assert.Fail(t, "sampler is still running")
	}
}
