package player

import (
	"sync"

	"github.com/cockroachdb/errors"
)

// Mock is an in-memory Capability for tests. It never emits events on its own;
// tests drive the Handler explicitly.
type Mock struct {
	mu sync.Mutex

	state       State
	currentTime float64
	duration    float64
	volume      int

	loaded []string
	plays  int
	pauses int
	seeks  []float64

	loadErr     error
	playErrs    []error
	pauseErr    error
	seekErr     error
	volumeErr   error
	stateErr    error
	timeErr     error
	durationErr error
}

// NewMock creates a mock player in the unstarted state.
func NewMock() *Mock {
	return &Mock{state: StateUnstarted, volume: 100}
}

// Load records the id and resets position.
func (m *Mock) Load(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loadErr != nil {
		return m.loadErr
	}
	m.loaded = append(m.loaded, id)
	m.state = StateUnstarted
	m.currentTime = 0
	return nil
}

// Play consumes the next scripted play error, if any.
func (m *Mock) Play() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.plays++
	if len(m.playErrs) > 0 {
		err := m.playErrs[0]
		m.playErrs = m.playErrs[1:]
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *Mock) Pause() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pauses++
	return m.pauseErr
}

func (m *Mock) SeekTo(seconds float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.seekErr != nil {
		return m.seekErr
	}
	m.seeks = append(m.seeks, seconds)
	m.currentTime = seconds
	return nil
}

func (m *Mock) SetVolume(volume int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.volumeErr != nil {
		return m.volumeErr
	}
	m.volume = volume
	return nil
}

func (m *Mock) State() (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stateErr != nil {
		return StateUnknown, m.stateErr
	}
	return m.state, nil
}

func (m *Mock) CurrentTime() (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.timeErr != nil {
		return 0, m.timeErr
	}
	return m.currentTime, nil
}

func (m *Mock) Duration() (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.durationErr != nil {
		return 0, m.durationErr
	}
	return m.duration, nil
}

// SetState sets the state reported by State.
func (m *Mock) SetState(s State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = s
}

// SetPosition sets the reported current time and duration.
func (m *Mock) SetPosition(current, duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentTime = current
	m.duration = duration
}

// FailPlays makes the next n Play calls fail.
func (m *Mock) FailPlays(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i < n; i++ {
		m.playErrs = append(m.playErrs, errors.New("mock: play failed"))
	}
}

// FailLoad makes every Load call fail with err. A nil err clears it.
func (m *Mock) FailLoad(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadErr = err
}

// FailPause makes every Pause call fail with err.
func (m *Mock) FailPause(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pauseErr = err
}

// FailSeek makes every SeekTo call fail with err.
func (m *Mock) FailSeek(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seekErr = err
}

// FailState makes every State call fail with err.
func (m *Mock) FailState(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stateErr = err
}

// FailCurrentTime makes every CurrentTime call fail with err.
func (m *Mock) FailCurrentTime(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeErr = err
}

// Loaded returns the ids passed to Load.
func (m *Mock) Loaded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.loaded...)
}

// Plays returns the number of Play calls.
func (m *Mock) Plays() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.plays
}

// Pauses returns the number of Pause calls.
func (m *Mock) Pauses() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pauses
}

// Seeks returns the positions passed to SeekTo.
func (m *Mock) Seeks() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]float64(nil), m.seeks...)
}

// Volume returns the last volume set.
func (m *Mock) Volume() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.volume
}
