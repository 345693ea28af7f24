package playback

import "github.com/osa030/moodbox/internal/domain/track"

// EventType represents a playback event type.
type EventType int

const (
	EventStateChanged  EventType = iota // Playback state changed
	EventProgress                       // Periodic position sample while playing
	EventTrackChanged                   // A new track was loaded
	EventError                          // A playback error was reported
	EventQueueFinished                  // Auto-advance reached the end of the queue
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventStateChanged:
		return "state_changed"
	case EventProgress:
		return "progress"
	case EventTrackChanged:
		return "track_changed"
	case EventError:
		return "error"
	case EventQueueFinished:
		return "queue_finished"
	default:
		return "unknown"
	}
}

// Progress is a position sample. Both values are non-negative; a zero
// duration means unknown.
type Progress struct {
	CurrentSeconds  float64
	DurationSeconds float64
}

// Fraction returns the played fraction in [0,1], or 0 when the duration is unknown.
func (p Progress) Fraction() float64 {
	if p.DurationSeconds <= 0 {
		return 0
	}
	f := p.CurrentSeconds / p.DurationSeconds
	if f > 1 {
		return 1
	}
	return f
}

// Event represents a playback event.
type Event struct {
	Type     EventType
	State    State        // State at emission time
	Progress Progress     // EventProgress only
	Track    *track.Track // EventTrackChanged only
	Index    int          // Queue position for EventTrackChanged
	Message  string       // EventError only
	Fatal    bool         // EventError only; the track was abandoned
	Err      error        // EventError only
}
