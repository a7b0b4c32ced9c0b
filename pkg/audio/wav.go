package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	wavBitDepth  = 16
	wavFormatPCM = 1
)

// pcm holds interleaved 16 bit samples.
type pcm struct {
	samples    []int16
	sampleRate int
	channels   int
}

func (this *pcm) frames() int {
	if this.channels <= 0 {
		return 0
	}
	return len(this.samples) / this.channels
}

func (this *pcm) duration() time.Duration {
	return framesToDuration(this.frames(), this.sampleRate)
}

func framesToDuration(frames, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(frames) * time.Second / time.Duration(sampleRate)
}

func writeWav(fn string, in *pcm) (rErr error) {
	if err := os.MkdirAll(filepath.Dir(fn), 0700); err != nil {
		return fmt.Errorf("cannot create directory of %q: %w", fn, err)
	}
	f, err := os.OpenFile(fn, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return fmt.Errorf("cannot create %q: %w", fn, err)
	}
	defer func() {
		if err := f.Close(); err != nil && rErr == nil {
			rErr = fmt.Errorf("cannot close %q: %w", fn, err)
		}
	}()

	enc := wav.NewEncoder(f, in.sampleRate, wavBitDepth, in.channels, wavFormatPCM)
	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: in.channels,
			SampleRate:  in.sampleRate,
		},
		Data:           make([]int, len(in.samples)),
		SourceBitDepth: wavBitDepth,
	}
	for i, v := range in.samples {
		buf.Data[i] = int(v)
	}
	if err := enc.Write(buf); err != nil {
		_ = enc.Close()
		return fmt.Errorf("cannot encode %q: %w", fn, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("cannot finalize %q: %w", fn, err)
	}
	return nil
}

func readWav(fn string) (*pcm, error) {
	f, err := os.Open(fn)
	if err != nil {
		return nil, fmt.Errorf("cannot open %q: %w", fn, err)
	}
	defer func() {
		_ = f.Close()
	}()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: %q is not a valid wav file", ErrUnsupportedContainer, fn)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("cannot decode %q: %w", fn, err)
	}

	result := &pcm{
		samples:    make([]int16, len(buf.Data)),
		sampleRate: int(dec.SampleRate),
		channels:   int(dec.NumChans),
	}
	shift := int(dec.BitDepth) - wavBitDepth
	for i, v := range buf.Data {
		switch {
		case shift > 0:
			v >>= shift
		case shift < 0:
			v <<= -shift
		}
		result.samples[i] = int16(v)
	}
	return result, nil
}
