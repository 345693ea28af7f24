package playback

import (
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/moodbox/internal/infra/player"
)

// beginStart runs the first play attempt of the current generation.
func (m *machine) beginStart() {
	m.setState(startingState(1))
	m.tryPlay()
}

// tryPlay issues play and schedules the state check.
func (m *machine) tryPlay() {
	zlog.Debug().Msgf("playback: play attempt: attempt=%d, max=%d", m.state.Attempt, m.cfg.MaxAttempts)

	if err := m.player.Play(); err != nil {
		m.attemptFailed(describe(err))
		return
	}
	m.timers.schedule(timerStateCheck, m.cfg.StateCheckDelay, m.checkStarted)
}

// checkStarted inspects the reported state after an attempt.
func (m *machine) checkStarted() {
	if !m.state.Is(PhaseStarting) {
		return
	}

	s, err := m.player.State()
	if err != nil {
		m.attemptFailed(describe(err))
		return
	}

	switch s {
	case player.StatePlaying:
		m.enterPlaying()
	case player.StateEnded:
		m.handleEnded()
	default:
		m.attemptFailed("not playing after play: state=" + s.String())
	}
}

// attemptFailed retries after the backoff, or gives up once the attempts are spent.
func (m *machine) attemptFailed(reason string) {
	m.timers.cancelAll(supervisorTimers)

	attempt := m.state.Attempt
	if attempt < m.cfg.MaxAttempts {
		m.setState(startingState(attempt + 1))
		m.reportError(errors.Mark(errors.Newf("play attempt %d failed: %s", attempt, reason), ErrPlaybackStartFailure), "Play attempt failed, retrying", false)
		m.timers.schedule(timerRetry, m.cfg.RetryBackoff, m.tryPlay)
		return
	}

	m.setState(failedState(reason))
	m.reportError(errors.Mark(errors.Newf("gave up after %d attempts: %s", attempt, reason), ErrPlaybackStartFailure), "Failed to play song", true)
	m.advance()
}

// nudge re-issues play after the player reported unstarted.
// It is not counted as an attempt unless the play command itself fails.
func (m *machine) nudge() {
	if !m.state.Is(PhaseStarting) {
		return
	}
	zlog.Debug().Msgf("playback: unstarted, re-issuing play: attempt=%d", m.state.Attempt)
	if err := m.player.Play(); err != nil {
		m.attemptFailed(describe(err))
	}
}
