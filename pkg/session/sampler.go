package session

import (
	"context"
	"time"

	log "github.com/echocat/slf4g"
)

// sampler periodically polls the device which belongs to the current
// handle. A sampler is only valid as long as it is the session's current
// one; ticks of a replaced or stopped sampler are dropped.
type sampler struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// startSampler has to be called with the session locked.
func (this *Session) startSampler(tick func(*sampler)) {
	this.stopSampler()

	ctx, cancel := context.WithCancel(context.Background())
	s := &sampler{
		cancel: cancel,
		done:   make(chan struct{}),
	}
	this.sampler = s

	interval := this.conf.sampleInterval()
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				tick(s)
			}
		}
	}()
}

// stopSampler has to be called with the session locked. It does not wait
// for the goroutine to end; a tick already waiting for the lock will find
// that it is no longer current.
func (this *Session) stopSampler() {
	if s := this.sampler; s != nil {
		s.cancel()
		this.sampler = nil
	}
}

func (this *Session) sampleRecording(s *sampler) {
	this.mutex.Lock()
	if this.sampler != s || this.recording == nil {
		this.mutex.Unlock()
		return
	}
	defer this.unlockAndNotify()

	elapsed, err := this.deps.Capture.Elapsed(*this.recording)
	if err != nil {
		log.WithError(err).
			With("handle", *this.recording).
			Debug("Cannot sample recording duration.")
		return
	}
	this.elapsed = elapsed
}

func (this *Session) samplePlayback(s *sampler) {
	this.mutex.Lock()
	if this.sampler != s || this.playback == nil {
		this.mutex.Unlock()
		return
	}
	defer this.unlockAndNotify()

	h := *this.playback
	st, err := this.deps.Playback.Status(h)
	if err != nil {
		log.WithError(err).
			With("handle", h).
			Debug("Cannot sample playback position.")
		return
	}

	if st.Finished() && this.status == StatusPlaying {
		this.stopSampler()
		this.releasePlayback()
		log.With("handle", h).
			Info("Playback finished.")
		return
	}
	this.applyPlaybackStatus(st)
}
