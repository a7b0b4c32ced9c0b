package signal

import (
	"sync"

	log "github.com/echocat/slf4g"
)

// Loading is a process wide, reference counted busy indicator. Every Enter
// has to be paired with a call of the returned exit function. The overlay is
// visible as long as at least one operation is inside.
type Loading struct {
	mutex   sync.Mutex
	count   int
	signals []Signal
}

func (this *Loading) Register(s Signal) {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	this.signals = append(this.signals, s)
	this.ensure(s, this.state())
}

// Enter raises the indicator. Calling the returned function more than once
// has no further effect.
func (this *Loading) Enter() (exit func()) {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	this.count++
	if this.count == 1 {
		this.broadcast(StateVisible)
	}

	var once sync.Once
	return func() {
		once.Do(this.exit)
	}
}

func (this *Loading) exit() {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	if this.count <= 0 {
		return
	}
	this.count--
	if this.count == 0 {
		this.broadcast(StateHidden)
	}
}

func (this *Loading) State() State {
	this.mutex.Lock()
	defer this.mutex.Unlock()
	return this.state()
}

func (this *Loading) Depth() int {
	this.mutex.Lock()
	defer this.mutex.Unlock()
	return this.count
}

func (this *Loading) state() State {
	if this.count > 0 {
		return StateVisible
	}
	return StateHidden
}

func (this *Loading) broadcast(state State) {
	for _, s := range this.signals {
		this.ensure(s, state)
	}
}

func (this *Loading) ensure(s Signal, state State) {
	if err := s.Ensure(state); err != nil {
		log.WithError(err).
			With("state", state).
			Warn("Cannot ensure loading signal state.")
	}
}
