package signal

import (
	"fmt"
	"strings"
)

// State of the loading overlay.
type State uint8

const (
	StateHidden  = State(0)
	StateVisible = State(1)
)

func (this *State) Set(plain string) error {
	switch strings.TrimSpace(strings.ToLower(plain)) {
	case "hidden", "off", "0", "false":
		*this = StateHidden
		return nil
	case "visible", "on", "1", "true":
		*this = StateVisible
		return nil
	default:
		return fmt.Errorf("illegal-loading-state: %s", plain)
	}
}

func (this State) String() string {
	v, err := this.MarshalText()
	if err != nil {
		return fmt.Sprintf("illegal-loading-state-%d", this)
	}
	return string(v)
}

func (this State) MarshalText() (text []byte, err error) {
	switch this {
	case StateHidden:
		return []byte("hidden"), nil
	case StateVisible:
		return []byte("visible"), nil
	default:
		return nil, fmt.Errorf("illegal loading state: %d", this)
	}
}

func (this *State) UnmarshalText(text []byte) error {
	return this.Set(string(text))
}
