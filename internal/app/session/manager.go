// Package session provides the session manager.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/moodbox/internal/app/filter"
	"github.com/osa030/moodbox/internal/app/notification"
	"github.com/osa030/moodbox/internal/app/playback"
	"github.com/osa030/moodbox/internal/app/session/state"
	"github.com/osa030/moodbox/internal/app/source"
	"github.com/osa030/moodbox/internal/domain/mood"
	"github.com/osa030/moodbox/internal/domain/track"
	"github.com/osa030/moodbox/internal/infra/config"
)

var (
	ErrSessionTerminated = errors.New("session is terminated")
	ErrNoPlayableTracks  = errors.New("no playable tracks for mood")
)

// CandidateSource supplies track candidates for a mood.
type CandidateSource interface {
	GetCandidates(ctx context.Context, m mood.Mood, count int, exclude map[string]bool) ([]track.Track, error)
}

// Status is a snapshot of the session and its playback.
type Status struct {
	state.Info
	Playback     playback.State
	CurrentIndex int
	Tracks       []track.Track
	Volume       int
}

// Manager manages a listening session: it builds queues for moods and
// relays playback events to notification subscribers.
type Manager struct {
	// Serializes queue builds.
	buildMu sync.Mutex

	config *config.Config

	stateMgr     *state.Manager
	playback     *playback.Controller
	sources      CandidateSource
	filterChain  *filter.Chain
	resolver     *source.Resolver
	notification *notification.Manager

	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
}

// ControllerConfig maps configuration onto playback controller settings.
func ControllerConfig(cfg *config.Config) playback.Config {
	return playback.Config{
		MaxAttempts:         cfg.Playback.MaxAttempts,
		StateCheckDelay:     cfg.Playback.StateCheckDelay(),
		RetryBackoff:        cfg.Playback.RetryBackoff(),
		UnstartedRetryDelay: cfg.Playback.UnstartedRetryDelay(),
		FatalAdvanceDelay:   cfg.Playback.FatalAdvanceDelay(),
		ProgressInterval:    cfg.Playback.ProgressInterval(),
		EventBuffer:         cfg.Playback.EventBuffer,
		Volume:              cfg.Player.Volume,
	}
}

// NewManager creates a new session manager around a playback controller.
// filters may be nil.
func NewManager(
	cfg *config.Config,
	controller *playback.Controller,
	sources CandidateSource,
	filters *filter.Chain,
) *Manager {
	if filters == nil {
		filters = filter.NewChain()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		config:       cfg,
		stateMgr:     state.New(uuid.New().String()),
		playback:     controller,
		sources:      sources,
		filterChain:  filters,
		resolver:     source.NewResolver(cfg.Queue.ResolveSuffix),
		notification: notification.NewManager(),
		ctx:          ctx,
		cancel:       cancel,
		done:         make(chan struct{}),
	}
}

// Start starts relaying playback events. It is safe to call more than once.
func (m *Manager) Start() {
	m.startOnce.Do(func() {
		zlog.Info().Msgf("session started: session_id=%s", m.stateMgr.GetSessionID())
		go m.playbackLoop()
	})
}

// Play builds a queue for the mood and hands it to the player.
// Tracks already played in this session are excluded.
func (m *Manager) Play(ctx context.Context, md mood.Mood) error {
	m.buildMu.Lock()
	defer m.buildMu.Unlock()

	if !m.stateMgr.SetPhase(state.PhaseBuilding) {
		return ErrSessionTerminated
	}
	zlog.Info().Msgf("building queue: mood=%s session_id=%s", md, m.stateMgr.GetSessionID())

	tracks, err := m.buildQueue(ctx, md)
	if err != nil {
		m.restorePhase()
		return err
	}

	// Activate first so events of the new queue carry its mood.
	if !m.stateMgr.Activate(md, time.Now()) {
		return ErrSessionTerminated
	}
	if err := m.playback.ReplaceQueue(tracks); err != nil {
		m.restorePhase()
		return errors.Wrap(err, "failed to replace queue")
	}
	zlog.Info().Msgf("queue ready: mood=%s tracks=%d", md, len(tracks))
	return nil
}

// buildQueue collects, filters and resolves tracks for the mood.
func (m *Manager) buildQueue(ctx context.Context, md mood.Mood) ([]track.Track, error) {
	candidates, err := m.sources.GetCandidates(ctx, md, m.config.Queue.CandidateCount, m.stateMgr.PlayedKeys())
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get candidates for %s", md)
	}

	selected := m.filterChain.Select(ctx, candidates, m.config.Queue.Size)
	tracks := m.resolver.ResolveAll(selected)
	zlog.Debug().Msgf("queue built: mood=%s candidates=%d selected=%d playable=%d",
		md, len(candidates), len(selected), len(tracks))

	if len(tracks) == 0 {
		return nil, errors.Wrapf(ErrNoPlayableTracks, "%s", md)
	}
	return tracks, nil
}

// restorePhase returns to the phase matching the controller after a failed build.
func (m *Manager) restorePhase() {
	if m.playback.CurrentIndex() >= 0 {
		m.stateMgr.SetPhase(state.PhaseActive)
		return
	}
	m.stateMgr.SetPhase(state.PhaseWaiting)
}

// Skip moves to the next track.
func (m *Manager) Skip() bool {
	return m.playback.Next()
}

// Back moves to the previous track.
func (m *Manager) Back() bool {
	return m.playback.Previous()
}

// Jump plays the track at index.
func (m *Manager) Jump(index int) error {
	return m.playback.JumpTo(index)
}

// TogglePause toggles between playing and paused.
func (m *Manager) TogglePause() {
	m.playback.TogglePlayPause()
}

// Seek seeks to a fraction of the current track.
func (m *Manager) Seek(fraction float64) {
	m.playback.SeekFractional(fraction)
}

// SetVolume sets the player volume.
func (m *Manager) SetVolume(volume int) {
	m.playback.SetVolume(volume)
}

// Status returns a snapshot of the session.
func (m *Manager) Status() Status {
	return Status{
		Info:         m.stateMgr.Info(),
		Playback:     m.playback.State(),
		CurrentIndex: m.playback.CurrentIndex(),
		Tracks:       m.playback.Tracks(),
		Volume:       m.playback.Volume(),
	}
}

// GetNotificationManager returns the notification manager.
func (m *Manager) GetNotificationManager() *notification.Manager {
	return m.notification
}

// Done returns a channel that is closed when the session is stopped.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// Stop terminates the session. It is safe to call more than once.
func (m *Manager) Stop(reason string) {
	m.stopOnce.Do(func() {
		m.stateMgr.SetPhase(state.PhaseTerminated)
		zlog.Info().Msgf("phase changed: phase=TERMINATED session_id=%s reason=%s", m.stateMgr.GetSessionID(), reason)
		m.cancel()
		close(m.done)
	})
}

// Close stops the session and releases the controller and subscribers.
func (m *Manager) Close() {
	m.Stop("closed")
	m.playback.Close()
	m.notification.Close()
}

// playbackLoop relays playback events until the session stops or the controller closes.
func (m *Manager) playbackLoop() {
	defer func() {
		if r := recover(); r != nil {
			zlog.Error().Msgf("playback loop panicked: %v", r)
			zlog.Info().Msg("restarting playback loop")
			go m.playbackLoop()
		}
	}()

	events := m.playback.Events()
	for {
		select {
		case <-m.ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				m.Stop("playback closed")
				return
			}
			m.handlePlaybackEvent(event)
		}
	}
}

// handlePlaybackEvent logs the event, updates session state and broadcasts it.
func (m *Manager) handlePlaybackEvent(event playback.Event) {
	switch event.Type {
	case playback.EventTrackChanged:
		if event.Track != nil {
			m.stateMgr.MarkPlayed(*event.Track)
			zlog.Info().Msgf("now playing: index=%d track=%q source=%s", event.Index, event.Track.Label(), event.Track.Source)
		}

	case playback.EventStateChanged:
		zlog.Debug().Msgf("playback state: state=%s", event.State)

	case playback.EventError:
		if event.Fatal {
			zlog.Error().Msgf("playback error: message=%q error=%v", event.Message, event.Err)
		} else {
			zlog.Warn().Msgf("playback error: message=%q error=%v", event.Message, event.Err)
		}

	case playback.EventQueueFinished:
		m.onQueueFinished()
	}

	m.notification.Broadcast(&notification.Notification{
		SessionID: m.stateMgr.GetSessionID(),
		Mood:      m.stateMgr.GetMood(),
		Event:     event,
	})
}

// onQueueFinished refills the queue for the same mood in continuous mode.
// Otherwise the session stays active on the last track so it can be replayed or replaced.
func (m *Manager) onQueueFinished() {
	md := m.stateMgr.GetMood()
	zlog.Info().Msgf("queue finished: mood=%s continuous=%v", md, m.config.Queue.Continuous)

	if !m.config.Queue.Continuous || md == "" {
		return
	}

	go func() {
		if err := m.Play(m.ctx, md); err != nil {
			zlog.Error().Msgf("failed to refill queue: mood=%s error=%v", md, err)
			m.Stop("refill failed")
		}
	}()
}
