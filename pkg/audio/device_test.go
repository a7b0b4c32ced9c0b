package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDevices_DefaultInput(t *testing.T) {
	given := Devices{
		{Name: "Speakers", Index: 0, MaxOutputChannels: 2, DefaultOutput: true},
		{Name: "Microphone", Index: 1, MaxInputChannels: 1, DefaultInput: true},
	}

	actual, ok := given.DefaultInput()

	require.True(t, ok)
	assert.Equal(t, "Microphone", actual.Name)

	_, ok = Devices{}.DefaultInput()
	assert.False(t, ok)
}

func TestDevices_CanCapture(t *testing.T) {
	assert.False(t, Devices{}.CanCapture(), "no devices at all")
	assert.False(t, Devices{
		{Name: "Microphone", MaxInputChannels: 1},
	}.CanCapture(), "no default input")
	assert.False(t, Devices{
		{Name: "Speakers", MaxOutputChannels: 2, DefaultInput: true},
	}.CanCapture(), "default input without input channels")
	assert.True(t, Devices{
		{Name: "Speakers", MaxOutputChannels: 2, DefaultOutput: true},
		{Name: "Microphone", MaxInputChannels: 2, DefaultInput: true},
	}.CanCapture())
}

func TestDevice_String(t *testing.T) {
	assert.Equal(t, "[1] Microphone (in: 2, out: 0, 48000Hz) - default input", Device{
		Name:              "Microphone",
		Index:             1,
		MaxInputChannels:  2,
		DefaultSampleRate: 48000,
		DefaultInput:      true,
	}.String())
}
