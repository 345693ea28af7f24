package playback

import (
	"strings"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/moodbox/internal/domain/track"
	"github.com/osa030/moodbox/internal/infra/player"
)

// machine is the playback state machine. It owns no lock; the Controller
// serializes every call into it.
type machine struct {
	cfg    Config
	player player.Capability
	timers *timers
	ticker *ticker

	emit    func(Event)
	advance func()

	state  State
	track  *track.Track
	ready  bool
	volume int
}

func newMachine(cfg Config, p player.Capability, t *timers, emit func(Event), advance func()) *machine {
	m := &machine{
		cfg:     cfg,
		player:  p,
		timers:  t,
		emit:    emit,
		advance: advance,
		state:   idleState(),
		volume:  clampVolume(cfg.Volume),
	}
	m.ticker = newTicker(p, t, cfg.ProgressInterval, m.emitProgress, m.progressFailed)
	return m
}

// setState records a transition and stops the ticker outside Playing.
func (m *machine) setState(s State) {
	if s.Phase != PhasePlaying {
		m.ticker.stop()
	}
	if s == m.state {
		return
	}
	zlog.Debug().Msgf("playback: state changed: from=%s, to=%s", m.state, s)
	m.state = s
	m.emit(Event{Type: EventStateChanged, State: s})
}

func (m *machine) reportError(cause error, message string, fatal bool) {
	if fatal {
		zlog.Error().Err(cause).Msgf("playback: %s", message)
	} else {
		zlog.Warn().Err(cause).Msgf("playback: %s", message)
	}
	m.emit(Event{Type: EventError, State: m.state, Message: message, Fatal: fatal, Err: cause})
}

// loadAndStart begins a new generation for t.
func (m *machine) loadAndStart(t track.Track) error {
	if !m.ready {
		return errors.Wrap(ErrInvalidTrack, "player not ready")
	}
	if err := t.Validate(); err != nil {
		return errors.Mark(err, ErrInvalidTrack)
	}

	m.ticker.stop()
	gen := m.timers.renew()
	m.track = &t

	zlog.Info().Msgf("playback: loading track: id=%s, track=%s, generation=%d", t.ID, t.Label(), gen)
	m.emit(Event{Type: EventTrackChanged, State: m.state, Track: m.track})

	if err := m.player.Load(t.ID); err != nil {
		reason := "load failed"
		m.setState(failedState(reason))
		m.reportError(errors.Mark(errors.Wrapf(err, "failed to load track: id=%s", t.ID), ErrPlaybackStartFailure), "Failed to play song", true)
		m.timers.schedule(timerAdvance, m.cfg.FatalAdvanceDelay, m.advance)
		return nil
	}

	m.setState(loadingState())
	m.beginStart()
	return nil
}

func (m *machine) handleReady() {
	m.ready = true
	zlog.Info().Msgf("playback: player ready: volume=%d", m.volume)
	if err := m.player.SetVolume(m.volume); err != nil {
		m.reportError(errors.Mark(errors.Wrap(err, "failed to set volume"), ErrPlaybackControl), "Error controlling playback", false)
	}
}

func (m *machine) handleStateChange(s player.State) {
	if m.state.Is(PhaseIdle) {
		zlog.Debug().Msgf("playback: ignoring player state while idle: state=%s", s)
		return
	}

	switch s {
	case player.StatePlaying:
		if m.state.Is(PhaseLoading, PhaseStarting, PhasePaused, PhaseEnded) {
			m.enterPlaying()
		}

	case player.StatePaused:
		switch {
		case m.state.Is(PhasePlaying):
			m.setState(pausedState())
		case m.state.Is(PhaseLoading, PhaseStarting):
			m.timers.cancelAll(supervisorTimers)
			m.setState(pausedState())
		}

	case player.StateEnded:
		m.handleEnded()

	case player.StateUnstarted:
		if m.state.Is(PhaseStarting) {
			m.timers.schedule(timerUnstarted, m.cfg.UnstartedRetryDelay, m.nudge)
		}

	default:
		zlog.Debug().Msgf("playback: player state has no transition: state=%s, current=%s", s, m.state)
	}
}

func (m *machine) handleError(code player.ErrorCode) {
	if m.state.Is(PhaseIdle) {
		zlog.Debug().Msgf("playback: ignoring player error while idle: code=%d", int(code))
		return
	}

	cause := errors.Newf("%s", code)
	if code.Fatal() {
		// The track already finished and its advance already ran.
		if m.state.Is(PhaseFailed, PhaseEnded) {
			zlog.Debug().Msgf("playback: ignoring fatal player error: code=%d, current=%s", int(code), m.state)
			return
		}
		m.timers.cancelAll(supervisorTimers)
		m.setState(failedState(code.Message()))
		m.reportError(errors.Mark(cause, ErrFatalCapability), code.Message(), true)
		m.timers.schedule(timerAdvance, m.cfg.FatalAdvanceDelay, m.advance)
		return
	}

	if m.state.Is(PhaseStarting) {
		m.attemptFailed(code.Message())
		return
	}
	m.reportError(errors.Mark(cause, ErrPlaybackControl), code.Message(), false)
}

// handleEnded stops the current track and advances once.
func (m *machine) handleEnded() {
	if m.state.Is(PhaseEnded, PhaseFailed) {
		return
	}
	m.timers.cancelAll(supervisorTimers)
	m.setState(endedState())
	m.advance()
}

func (m *machine) enterPlaying() {
	m.timers.cancelAll(supervisorTimers)
	m.setState(playingState())
	m.ticker.start()
}

func (m *machine) togglePlayPause() {
	if !m.ready {
		return
	}
	s, err := m.player.State()
	if err != nil {
		m.controlFailed(errors.Wrap(err, "failed to read player state"))
		return
	}
	if s == player.StatePlaying {
		err = m.player.Pause()
	} else {
		err = m.player.Play()
	}
	if err != nil {
		m.controlFailed(errors.Wrap(err, "failed to toggle playback"))
	}
}

func (m *machine) seekFractional(fraction float64) {
	if !m.ready {
		return
	}
	fraction = clampFraction(fraction)

	duration, err := m.player.Duration()
	if err != nil {
		m.controlFailed(errors.Wrap(err, "failed to read duration"))
		return
	}
	if duration <= 0 {
		m.controlFailed(errors.New("duration unknown"))
		return
	}
	if err := m.player.SeekTo(fraction * duration); err != nil {
		m.controlFailed(errors.Wrapf(err, "failed to seek: fraction=%.3f", fraction))
	}
}

func (m *machine) setVolume(volume int) {
	m.volume = clampVolume(volume)
	if !m.ready {
		return
	}
	if err := m.player.SetVolume(m.volume); err != nil {
		m.controlFailed(errors.Wrapf(err, "failed to set volume: volume=%d", m.volume))
	}
}

func (m *machine) controlFailed(err error) {
	m.reportError(errors.Mark(err, ErrPlaybackControl), "Error controlling playback", false)
}

func (m *machine) emitProgress(p Progress) {
	m.emit(Event{Type: EventProgress, State: m.state, Progress: p})
}

func (m *machine) progressFailed(err error) {
	m.reportError(errors.Mark(errors.Wrap(err, "failed to sample progress"), ErrPlaybackControl), "Error updating progress", false)
}

func clampFraction(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}

func clampVolume(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}

// describe shortens an error to a single-line failure reason.
func describe(err error) string {
	msg := err.Error()
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	return msg
}
