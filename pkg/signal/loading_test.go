package signal

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingSignal struct {
	mutex  sync.Mutex
	states []State
}

func (this *recordingSignal) Ensure(s State) error {
	this.mutex.Lock()
	defer this.mutex.Unlock()
	this.states = append(this.states, s)
	return nil
}

func (this *recordingSignal) recorded() []State {
	this.mutex.Lock()
	defer this.mutex.Unlock()
	return append([]State(nil), this.states...)
}

func TestLoading_concurrentRaisersDoNotHideEachOther(t *testing.T) {
	var instance Loading
	s := &recordingSignal{}
	instance.Register(s)

	exitA := instance.Enter()
	exitB := instance.Enter()
	assert.Equal(t, StateVisible, instance.State())

	exitA()
	assert.Equal(t, StateVisible, instance.State(), "B is still inside")

	exitB()
	assert.Equal(t, StateHidden, instance.State())

	assert.Equal(t, []State{StateHidden, StateVisible, StateHidden}, s.recorded())
}

func TestLoading_exitIsIdempotent(t *testing.T) {
	var instance Loading

	exitA := instance.Enter()
	exitB := instance.Enter()
	exitA()
	exitA()

	assert.Equal(t, 1, instance.Depth())
	assert.Equal(t, StateVisible, instance.State())

	exitB()
	assert.Equal(t, 0, instance.Depth())
}

func TestLoading_parallel(t *testing.T) {
	var instance Loading
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			exit := instance.Enter()
			defer exit()
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, instance.Depth())
	assert.Equal(t, StateHidden, instance.State())
}

func TestState_Set(t *testing.T) {
	var actual State
	assert.NoError(t, actual.Set("visible"))
	assert.Equal(t, StateVisible, actual)
	assert.NoError(t, actual.Set("off"))
	assert.Equal(t, StateHidden, actual)
	assert.Error(t, actual.Set("maybe"))
}
