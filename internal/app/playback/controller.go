package playback

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/moodbox/internal/domain/queue"
	"github.com/osa030/moodbox/internal/domain/track"
	"github.com/osa030/moodbox/internal/infra/clock"
	"github.com/osa030/moodbox/internal/infra/player"
)

// Config holds controller configuration. Zero values take the defaults.
type Config struct {
	MaxAttempts         int           `default:"3"`     // Supervisor play attempts per track
	StateCheckDelay     time.Duration `default:"500ms"` // Delay before verifying a play attempt
	RetryBackoff        time.Duration `default:"1s"`    // Delay between failed attempts
	UnstartedRetryDelay time.Duration `default:"500ms"` // Delay before re-issuing play after an unstarted report
	FatalAdvanceDelay   time.Duration `default:"1s"`    // Delay before advancing after a fatal error
	ProgressInterval    time.Duration `default:"100ms"` // Progress sampling period
	EventBuffer         int           `default:"64"`    // Events channel capacity
	Volume              int           `default:"100"`   // Volume applied when the player becomes ready
}

type options struct {
	clock clock.Clock
}

// Option configures a Controller.
type Option func(*options)

// WithClock sets the timer source. Defaults to clock.System().
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// Controller manages a queue of tracks played through a player capability.
// Commands, player events and timer callbacks are serialized on one mutex.
type Controller struct {
	mu sync.Mutex

	queue   *queue.Queue
	machine *machine
	timers  *timers

	// pending is set when a selection was made before the player was ready.
	pending bool
	closed  bool

	eventCh chan Event
}

var _ player.Handler = (*Controller)(nil)

// NewController creates a playback controller for p.
func NewController(p player.Capability, cfg Config, opts ...Option) *Controller {
	if err := defaults.Set(&cfg); err != nil {
		zlog.Warn().Err(err).Msg("playback: failed to apply config defaults")
	}
	o := options{clock: clock.System()}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Controller{
		queue:   queue.New(),
		eventCh: make(chan Event, cfg.EventBuffer),
	}
	c.timers = newTimers(o.clock, &c.mu)
	c.machine = newMachine(cfg, p, c.timers, c.sendEventLocked, c.advanceLocked)
	return c
}

// Events returns the event channel. It is closed by Close.
func (c *Controller) Events() <-chan Event {
	return c.eventCh
}

// ReplaceQueue replaces the queue and starts its first track.
// The queue is left untouched when tracks is empty or contains an invalid track.
func (c *Controller) ReplaceQueue(tracks []track.Track) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(tracks) == 0 {
		return errors.Wrap(ErrEmptyQueue, "replace queue")
	}
	for i, t := range tracks {
		if err := t.Validate(); err != nil {
			return errors.Mark(errors.Wrapf(err, "track %d", i), ErrInvalidTrack)
		}
	}
	if err := c.queue.Replace(tracks); err != nil {
		return err
	}

	zlog.Info().Msgf("playback: queue replaced: size=%d", len(tracks))
	zlog.Debug().Msgf("playback: queue ids: %v", c.queue.TrackIDs())
	return c.loadCurrentLocked()
}

// JumpTo moves to index and starts that track.
func (c *Controller) JumpTo(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.queue.JumpTo(index); err != nil {
		return err
	}
	return c.loadCurrentLocked()
}

// Next moves to the next track. Returns false at the end of the queue.
func (c *Controller) Next() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.nextLocked()
}

// Previous moves to the previous track. Returns false at the start of the queue.
func (c *Controller) Previous() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.queue.Previous() {
		return false
	}
	c.loadOrLogLocked()
	return true
}

// TogglePlayPause pauses when playing and plays otherwise.
func (c *Controller) TogglePlayPause() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.machine.togglePlayPause()
}

// SeekFractional seeks to fraction (clamped to [0,1]) of the current track.
func (c *Controller) SeekFractional(fraction float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.machine.seekFractional(fraction)
}

// SetVolume sets the volume, clamped to 0..100.
func (c *Controller) SetVolume(volume int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.machine.setVolume(volume)
}

// HandleReady implements player.Handler.
func (c *Controller) HandleReady() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.machine.handleReady()
	if c.pending {
		c.loadOrLogLocked()
	}
}

// HandleStateChange implements player.Handler.
func (c *Controller) HandleStateChange(s player.State) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.machine.handleStateChange(s)
}

// HandleError implements player.Handler.
func (c *Controller) HandleError(code player.ErrorCode) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.machine.handleError(code)
}

// State returns the current playback state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.machine.state
}

// CurrentIndex returns the queue position, or -1 when nothing is selected.
func (c *Controller) CurrentIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue.CurrentIndex()
}

// CurrentTrack returns the selected track.
func (c *Controller) CurrentTrack() (track.Track, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue.Current()
}

// Tracks returns a copy of the queue.
func (c *Controller) Tracks() []track.Track {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue.Tracks()
}

// Volume returns the requested volume.
func (c *Controller) Volume() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.machine.volume
}

// Close stops all timers and closes the event channel.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.machine.ticker.stop()
	c.timers.renew()
	c.closed = true
	close(c.eventCh)
}

func (c *Controller) nextLocked() bool {
	if !c.queue.Next() {
		return false
	}
	c.loadOrLogLocked()
	return true
}

// advanceLocked is the auto-advance hook of the state machine.
// Must be called with lock held.
func (c *Controller) advanceLocked() {
	if !c.queue.IsLast() {
		c.nextLocked()
		return
	}
	zlog.Info().Msgf("playback: queue finished: size=%d", c.queue.Len())
	c.sendEventLocked(Event{Type: EventQueueFinished, State: c.machine.state})
}

// loadCurrentLocked starts the selected track, or defers it until the player is ready.
// Must be called with lock held.
func (c *Controller) loadCurrentLocked() error {
	t, ok := c.queue.Current()
	if !ok {
		return nil
	}
	if !c.machine.ready {
		zlog.Debug().Msgf("playback: player not ready, deferring load: index=%d", c.queue.CurrentIndex())
		c.pending = true
		return nil
	}
	c.pending = false
	return c.machine.loadAndStart(t)
}

func (c *Controller) loadOrLogLocked() {
	if err := c.loadCurrentLocked(); err != nil {
		zlog.Error().Err(err).Msgf("playback: failed to load track: index=%d", c.queue.CurrentIndex())
	}
}

// sendEventLocked sends an event without blocking.
// Must be called with lock held.
func (c *Controller) sendEventLocked(e Event) {
	if c.closed {
		return
	}
	if e.Type == EventTrackChanged {
		e.Index = c.queue.CurrentIndex()
	}
	select {
	case c.eventCh <- e:
	default:
		zlog.Warn().Msgf("playback: event channel full, dropping event: type=%s", e.Type)
	}
}
