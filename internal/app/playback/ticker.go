package playback

import (
	"time"

	"github.com/osa030/moodbox/internal/infra/player"
)

// ticker samples position while playing.
type ticker struct {
	player   player.Capability
	timers   *timers
	interval time.Duration
	onSample func(Progress)
	onError  func(error)
	running  bool
}

func newTicker(p player.Capability, t *timers, interval time.Duration, onSample func(Progress), onError func(error)) *ticker {
	return &ticker{player: p, timers: t, interval: interval, onSample: onSample, onError: onError}
}

// start is a no-op when already running.
func (t *ticker) start() {
	if t.running {
		return
	}
	t.running = true
	t.timers.schedule(timerProgress, t.interval, t.tick)
}

// stop is a no-op when not running.
func (t *ticker) stop() {
	if !t.running {
		return
	}
	t.running = false
	t.timers.cancel(timerProgress)
}

func (t *ticker) tick() {
	current, err := t.player.CurrentTime()
	if err != nil {
		t.stop()
		t.onError(err)
		return
	}
	duration, err := t.player.Duration()
	if err != nil {
		t.stop()
		t.onError(err)
		return
	}

	t.onSample(Progress{CurrentSeconds: max(current, 0), DurationSeconds: max(duration, 0)})

	// onSample may have stopped the ticker.
	if t.running {
		t.timers.schedule(timerProgress, t.interval, t.tick)
	}
}
