package audio

import (
	"fmt"
	"iter"
	"strings"

	log "github.com/echocat/slf4g"
)

type Device struct {
	Name              string  `json:"name"`
	Index             int     `json:"index"`
	HostApi           string  `json:"hostApi,omitempty"`
	MaxInputChannels  int     `json:"maxInputChannels"`
	MaxOutputChannels int     `json:"maxOutputChannels"`
	DefaultSampleRate float64 `json:"defaultSampleRate"`
	DefaultInput      bool    `json:"defaultInput,omitempty"`
	DefaultOutput     bool    `json:"defaultOutput,omitempty"`
}

func (this Device) String() string {
	var flags []string
	if this.DefaultInput {
		flags = append(flags, "default input")
	}
	if this.DefaultOutput {
		flags = append(flags, "default output")
	}
	result := fmt.Sprintf("[%d] %s (in: %d, out: %d, %.0fHz)", this.Index, this.Name, this.MaxInputChannels, this.MaxOutputChannels, this.DefaultSampleRate)
	if len(flags) > 0 {
		result += " - " + strings.Join(flags, ", ")
	}
	return result
}

func (this Device) CanCapture() bool {
	return this.MaxInputChannels > 0
}

type Devices []Device

func (this Devices) IsZero() bool {
	return len(this) <= 0
}

func (this Devices) Matching(predicate func(*Device) bool) iter.Seq[*Device] {
	return func(yield func(*Device) bool) {
		for i := range this {
			if predicate(&this[i]) && !yield(&this[i]) {
				return
			}
		}
	}
}

// CanCapture is true if there is a default input device which is able to
// record at least one channel.
func (this Devices) CanCapture() bool {
	if this.IsZero() {
		return false
	}
	device, ok := this.DefaultInput()
	if !ok {
		log.With("devices", len(this)).
			Debug("No default input device available.")
		return false
	}
	return device.CanCapture()
}

func (this Devices) DefaultInput() (*Device, bool) {
	for v := range this.Matching(func(candidate *Device) bool { return candidate.DefaultInput }) {
		return v, true
	}
	return nil, false
}
