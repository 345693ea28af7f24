// Package state provides session state management.
package state

import (
	"time"

	"github.com/osa030/moodbox/internal/domain/mood"
)

// Phase represents the session lifecycle phase.
type Phase int

const (
	PhaseWaiting    Phase = iota // No queue requested yet
	PhaseBuilding                // Collecting candidates for a mood
	PhaseActive                  // A queue is playing
	PhaseTerminated              // Session has ended
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseWaiting:
		return "waiting"
	case PhaseBuilding:
		return "building"
	case PhaseActive:
		return "active"
	case PhaseTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Info is a point-in-time copy of the session state.
type Info struct {
	SessionID   string
	Phase       Phase
	Mood        mood.Mood
	StartedAt   *time.Time
	PlayedCount int
}
