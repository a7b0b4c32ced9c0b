package session

import (
	"fmt"
	"strings"
)

type Status uint8

const (
	StatusIdle      = Status(0)
	StatusRecording = Status(1)
	StatusRecorded  = Status(2)
	StatusPlaying   = Status(3)
	StatusPaused    = Status(4)
)

var (
	AllStatuses = Statuses{
		StatusIdle,
		StatusRecording,
		StatusRecorded,
		StatusPlaying,
		StatusPaused,
	}
)

func (this *Status) Set(plain string) error {
	switch strings.TrimSpace(strings.ToLower(plain)) {
	case "idle":
		*this = StatusIdle
	case "recording":
		*this = StatusRecording
	case "recorded":
		*this = StatusRecorded
	case "playing":
		*this = StatusPlaying
	case "paused":
		*this = StatusPaused
	default:
		return fmt.Errorf("illegal-session-status: %s", plain)
	}
	return nil
}

func (this Status) String() string {
	v, err := this.MarshalText()
	if err != nil {
		return fmt.Sprintf("illegal-session-status-%d", this)
	}
	return string(v)
}

func (this Status) MarshalText() (text []byte, err error) {
	switch this {
	case StatusIdle:
		return []byte("idle"), nil
	case StatusRecording:
		return []byte("recording"), nil
	case StatusRecorded:
		return []byte("recorded"), nil
	case StatusPlaying:
		return []byte("playing"), nil
	case StatusPaused:
		return []byte("paused"), nil
	default:
		return nil, fmt.Errorf("illegal session status: %d", this)
	}
}

func (this *Status) UnmarshalText(text []byte) error {
	return this.Set(string(text))
}

type Statuses []Status

func (this Statuses) Strings() []string {
	result := make([]string, len(this))
	for i, v := range this {
		result[i] = v.String()
	}
	return result
}

func (this Statuses) String() string {
	return strings.Join(this.Strings(), ",")
}

func (this Statuses) Contains(v Status) bool {
	for _, candidate := range this {
		if candidate == v {
			return true
		}
	}
	return false
}
