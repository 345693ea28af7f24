package playback

import (
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/moodbox/internal/infra/clock"
)

type timerKind int

const (
	timerStateCheck timerKind = iota // supervisor: verify play took effect
	timerRetry                       // supervisor: next play attempt
	timerUnstarted                   // re-issue play after an unstarted report
	timerAdvance                     // delayed advance after a fatal error
	timerProgress                    // progress ticker
	numTimerKinds
)

func (k timerKind) String() string {
	switch k {
	case timerStateCheck:
		return "state_check"
	case timerRetry:
		return "retry"
	case timerUnstarted:
		return "unstarted"
	case timerAdvance:
		return "advance"
	case timerProgress:
		return "progress"
	default:
		return "unknown"
	}
}

// supervisorTimers are cancelled together once a start attempt resolves.
var supervisorTimers = []timerKind{timerStateCheck, timerRetry, timerUnstarted}

type timerSlot struct {
	timer clock.Timer
	seq   uint64
}

// timers holds at most one pending callback per kind, tagged with the load
// generation that scheduled it. Callbacks run under lock and are dropped when
// their generation or slot sequence is no longer current.
type timers struct {
	clock      clock.Clock
	lock       sync.Locker
	generation uint64
	seq        uint64
	slots      [numTimerKinds]timerSlot
}

func newTimers(c clock.Clock, lock sync.Locker) *timers {
	return &timers{clock: c, lock: lock}
}

// renew starts a new generation, stopping everything pending.
// Must be called with lock held.
func (t *timers) renew() uint64 {
	for k := range t.slots {
		t.cancel(timerKind(k))
	}
	t.generation++
	return t.generation
}

// schedule replaces the pending callback of kind with fn after d.
// Must be called with lock held.
func (t *timers) schedule(kind timerKind, d time.Duration, fn func()) {
	t.cancel(kind)

	t.seq++
	gen, seq := t.generation, t.seq
	t.slots[kind] = timerSlot{
		seq: seq,
		timer: t.clock.AfterFunc(d, func() {
			t.lock.Lock()
			defer t.lock.Unlock()

			if gen != t.generation || t.slots[kind].seq != seq {
				zlog.Debug().Msgf("playback: discarding stale timer: kind=%s, generation=%d, current=%d", kind, gen, t.generation)
				return
			}
			t.slots[kind] = timerSlot{}
			fn()
		}),
	}
}

// cancel stops the pending callback of kind, if any.
// Must be called with lock held.
func (t *timers) cancel(kind timerKind) {
	slot := t.slots[kind]
	if slot.timer != nil {
		slot.timer.Stop()
	}
	t.slots[kind] = timerSlot{}
}

// cancelAll stops the pending callbacks of the given kinds.
func (t *timers) cancelAll(kinds []timerKind) {
	for _, k := range kinds {
		t.cancel(k)
	}
}

// pending reports whether a callback of kind is scheduled.
func (t *timers) pending(kind timerKind) bool {
	return t.slots[kind].timer != nil
}
