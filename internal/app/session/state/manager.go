package state

import (
	"sync"
	"time"

	"github.com/osa030/moodbox/internal/domain/mood"
	"github.com/osa030/moodbox/internal/domain/track"
)

// Manager manages session state with thread-safe access.
type Manager struct {
	mu sync.RWMutex

	sessionID string
	phase     Phase
	mood      mood.Mood
	startedAt *time.Time

	// Keys of tracks played in this session, excluded from later queues.
	played map[string]bool
}

// New creates a new state manager.
func New(sessionID string) *Manager {
	return &Manager{
		sessionID: sessionID,
		phase:     PhaseWaiting,
		played:    make(map[string]bool),
	}
}

// GetPhase returns the current session phase.
func (m *Manager) GetPhase() Phase {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.phase
}

// SetPhase sets the session phase. Terminated is final.
func (m *Manager) SetPhase(p Phase) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase == PhaseTerminated {
		return p == PhaseTerminated
	}
	m.phase = p
	return true
}

// GetSessionID returns the session ID.
func (m *Manager) GetSessionID() string {
	return m.sessionID
}

// GetMood returns the mood of the current queue.
func (m *Manager) GetMood() mood.Mood {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mood
}

// Activate records a started queue for the mood.
func (m *Manager) Activate(md mood.Mood, at time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase == PhaseTerminated {
		return false
	}
	m.phase = PhaseActive
	m.mood = md
	if m.startedAt == nil {
		m.startedAt = &at
	}
	return true
}

// MarkPlayed records a track as played.
func (m *Manager) MarkPlayed(t track.Track) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.played[t.Key()] = true
}

// PlayedKeys returns a copy of the played track keys.
func (m *Manager) PlayedKeys() map[string]bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make(map[string]bool, len(m.played))
	for k := range m.played {
		keys[k] = true
	}
	return keys
}

// Info returns a copy of the session state.
func (m *Manager) Info() Info {
	m.mu.RLock()
	defer m.mu.RUnlock()

	info := Info{
		SessionID:   m.sessionID,
		Phase:       m.phase,
		Mood:        m.mood,
		PlayedCount: len(m.played),
	}
	if m.startedAt != nil {
		t := *m.startedAt
		info.StartedAt = &t
	}
	return info
}
