package audio

import (
	"fmt"
	"strings"

	"github.com/blaubaer/sound-detect/pkg/common"
)

// ContainerFormat starts at 1. The zero value means "not configured" so a
// flag which explicitly asks for wav still overrides a file saying amr.
type ContainerFormat uint8

const (
	ContainerFormatWav = ContainerFormat(1)
	ContainerFormatAmr = ContainerFormat(2)

	ContainerFormatDefault = ContainerFormatWav
)

var (
	AllContainerFormats = ContainerFormats{
		ContainerFormatWav,
		ContainerFormatAmr,
	}
)

func (this *ContainerFormat) Set(plain string) error {
	switch strings.TrimSpace(strings.ToLower(strings.TrimPrefix(plain, "."))) {
	case "wav", "wave":
		*this = ContainerFormatWav
		return nil
	case "amr":
		*this = ContainerFormatAmr
		return nil
	default:
		return fmt.Errorf("illegal-container-format: %s", plain)
	}
}

func (this ContainerFormat) String() string {
	v, err := this.MarshalText()
	if err != nil {
		return fmt.Sprintf("illegal-container-format-%d", this)
	}
	return string(v)
}

func (this ContainerFormat) MarshalText() (text []byte, err error) {
	switch this {
	case ContainerFormatWav:
		return []byte("wav"), nil
	case ContainerFormatAmr:
		return []byte("amr"), nil
	default:
		return nil, fmt.Errorf("illegal container format: %d", this)
	}
}

func (this *ContainerFormat) UnmarshalText(text []byte) error {
	return this.Set(string(text))
}

// MimeType is the content type a file of this container is submitted with.
func (this ContainerFormat) MimeType() string {
	switch this {
	case ContainerFormatAmr:
		return "audio/amr"
	default:
		return "audio/wav"
	}
}

func (this ContainerFormat) Extension() string {
	return "." + this.String()
}

type ContainerFormats []ContainerFormat

func (this ContainerFormats) Strings() []string {
	result := make([]string, len(this))
	for i, v := range this {
		result[i] = v.String()
	}
	return result
}

func (this ContainerFormats) String() string {
	return strings.Join(this.Strings(), ",")
}

// EncodingOptions are handed to Capture.Start for every new take.
type EncodingOptions struct {
	SampleRate      int             `yaml:"sampleRate,omitempty"`
	Channels        int             `yaml:"channels,omitempty"`
	BitRate         int             `yaml:"bitRate,omitempty"`
	ContainerFormat ContainerFormat `yaml:"containerFormat,omitempty"`
}

func (this EncodingOptions) Validate() error {
	if this.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", this.SampleRate)
	}
	if this.Channels <= 0 || this.Channels > 2 {
		return fmt.Errorf("channels must be 1 or 2, got %d", this.Channels)
	}
	if this.BitRate <= 0 {
		return fmt.Errorf("bit rate must be positive, got %d", this.BitRate)
	}
	if _, err := this.ContainerFormat.MarshalText(); err != nil {
		return err
	}
	return nil
}

func (this EncodingOptions) String() string {
	return fmt.Sprintf("%s %dHz/%dch/%dbps", this.ContainerFormat, this.SampleRate, this.Channels, this.BitRate)
}

func NewConfiguration() Configuration {
	return Configuration{
		EncodingOptions: EncodingOptions{
			SampleRate:      44100,
			Channels:        2,
			BitRate:         128000,
			ContainerFormat: ContainerFormatDefault,
		},
		FramesPerBuffer: 1024,
	}
}

type Configuration struct {
	EncodingOptions `yaml:",inline"`

	FramesPerBuffer int `yaml:"framesPerBuffer,omitempty"`
}

func (this *Configuration) SetupConfiguration(using common.FlagHolder) {
	using.Flag("audio.sampleRate", "Sample rate in Hz recordings are captured with.").
		Envar("SD_AUDIO_SAMPLE_RATE").
		IntVar(&this.SampleRate)
	using.Flag("audio.channels", "Number of channels recordings are captured with (1 or 2).").
		Envar("SD_AUDIO_CHANNELS").
		IntVar(&this.Channels)
	using.Flag("audio.bitRate", "Bit rate of the captured recording.").
		Envar("SD_AUDIO_BIT_RATE").
		IntVar(&this.BitRate)
	using.Flag("audio.containerFormat", "Container format of the captured recording. Possible values: "+AllContainerFormats.String()).
		Envar("SD_AUDIO_CONTAINER_FORMAT").
		SetValue(&this.ContainerFormat)
	using.Flag("audio.framesPerBuffer", "Frames exchanged with the audio device per read/write.").
		Envar("SD_AUDIO_FRAMES_PER_BUFFER").
		IntVar(&this.FramesPerBuffer)
}
