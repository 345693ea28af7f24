// Package clock provides the timer source used by time-deferred callbacks.
package clock

import (
	"sort"
	"sync"
	"time"

	bclock "github.com/benbjohnson/clock"
)

// Timer is a scheduled callback that can be cancelled.
type Timer interface {
	// Stop prevents the callback from running. Returns false if it already ran or was stopped.
	Stop() bool
}

// Clock schedules callbacks after a delay.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// System returns a Clock backed by runtime timers.
func System() Clock {
	return Wrap(bclock.New())
}

// Wrap adapts a benbjohnson clock, real or mock.
func Wrap(c bclock.Clock) Clock {
	return adapter{c: c}
}

type adapter struct {
	c bclock.Clock
}

func (a adapter) AfterFunc(d time.Duration, f func()) Timer {
	return a.c.AfterFunc(d, f)
}

// Fake is a manually advanced Clock for tests.
// Callbacks run synchronously on the goroutine calling Advance, so state is
// settled when Advance returns. bclock.Mock runs them on new goroutines.
type Fake struct {
	mu      sync.Mutex
	now     time.Duration
	seq     uint64
	pending []*fakeTimer
}

type fakeTimer struct {
	clock *Fake
	at    time.Duration
	seq   uint64
	fn    func()
	done  bool
}

// NewFake creates a fake clock at time zero.
func NewFake() *Fake {
	return &Fake{}
}

// AfterFunc schedules f to run once the fake time reaches now+d.
func (c *Fake) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	t := &fakeTimer{clock: c, at: c.now + d, seq: c.seq, fn: f}
	c.pending = append(c.pending, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	if t.done {
		return false
	}
	t.done = true
	return true
}

// Advance moves the fake time forward, running every callback that becomes due
// in order of due time. Callbacks scheduled while advancing run too if they fall due.
func (c *Fake) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now + d
	c.mu.Unlock()

	for {
		c.mu.Lock()
		next := c.nextDueLocked(target)
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		next.done = true
		if next.at > c.now {
			c.now = next.at
		}
		c.mu.Unlock()

		next.fn()
	}
}

// Elapsed returns the fake time since creation.
func (c *Fake) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Pending returns the number of scheduled callbacks that have not run or been stopped.
func (c *Fake) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, t := range c.pending {
		if !t.done {
			n++
		}
	}
	return n
}

// nextDueLocked returns the earliest live timer due at or before target.
// Must be called with c.mu held.
func (c *Fake) nextDueLocked(target time.Duration) *fakeTimer {
	live := c.pending[:0]
	for _, t := range c.pending {
		if !t.done {
			live = append(live, t)
		}
	}
	c.pending = live

	sort.SliceStable(c.pending, func(i, j int) bool {
		if c.pending[i].at != c.pending[j].at {
			return c.pending[i].at < c.pending[j].at
		}
		return c.pending[i].seq < c.pending[j].seq
	})

	if len(c.pending) == 0 || c.pending[0].at > target {
		return nil
	}
	return c.pending[0]
}
