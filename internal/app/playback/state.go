// Package playback drives a player capability through a queue of tracks,
// reconciling commands, player events and timers into one playback state.
package playback

import "fmt"

// Phase is the coarse playback state.
type Phase int

const (
	PhaseIdle     Phase = iota // Nothing loaded yet
	PhaseLoading               // Load issued, start not attempted
	PhaseStarting              // Play attempts in progress
	PhasePlaying               // Track is playing
	PhasePaused                // Track is paused
	PhaseEnded                 // Track finished
	PhaseFailed                // Track could not be played
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseStarting:
		return "starting"
	case PhasePlaying:
		return "playing"
	case PhasePaused:
		return "paused"
	case PhaseEnded:
		return "ended"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// State is the authoritative playback state.
// Attempt is set only while Starting, Reason only when Failed.
type State struct {
	Phase   Phase
	Attempt int
	Reason  string
}

func idleState() State    { return State{Phase: PhaseIdle} }
func loadingState() State { return State{Phase: PhaseLoading} }
func playingState() State { return State{Phase: PhasePlaying} }
func pausedState() State  { return State{Phase: PhasePaused} }
func endedState() State   { return State{Phase: PhaseEnded} }

func startingState(attempt int) State {
	return State{Phase: PhaseStarting, Attempt: attempt}
}

func failedState(reason string) State {
	return State{Phase: PhaseFailed, Reason: reason}
}

// String returns the string representation of the state.
func (s State) String() string {
	switch s.Phase {
	case PhaseStarting:
		return fmt.Sprintf("starting(%d)", s.Attempt)
	case PhaseFailed:
		return fmt.Sprintf("failed(%s)", s.Reason)
	default:
		return s.Phase.String()
	}
}

// Is reports whether the state is in one of the given phases.
func (s State) Is(phases ...Phase) bool {
	for _, p := range phases {
		if s.Phase == p {
			return true
		}
	}
	return false
}
