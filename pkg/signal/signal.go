package signal

// Signal renders the loading overlay somewhere.
type Signal interface {
	Ensure(State) error
}

type SignalFunc func(State) error

func (this SignalFunc) Ensure(s State) error {
	return this(s)
}
