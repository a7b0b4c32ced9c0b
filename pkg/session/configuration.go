package session

import (
	"time"

	"github.com/blaubaer/sound-detect/pkg/common"
)

func NewConfiguration() Configuration {
	return Configuration{
		SampleInterval: time.Second,
	}
}

type Configuration struct {
	// SampleInterval is the period of the recording duration and playback
	// position sampling.
	SampleInterval time.Duration `yaml:"sampleInterval,omitempty"`
}

func (this *Configuration) SetupConfiguration(using common.FlagHolder) {
	using.Flag("session.sampleInterval", "How often the recording time and playback position are refreshed.").
		Envar("SD_SESSION_SAMPLE_INTERVAL").
		DurationVar(&this.SampleInterval)
}

func (this Configuration) sampleInterval() time.Duration {
	if v := this.SampleInterval; v > 0 {
		return v
	}
	return time.Second
}
