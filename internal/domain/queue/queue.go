// Package queue provides the ordered track queue with a current position.
package queue

import (
	"github.com/cockroachdb/errors"

	"github.com/osa030/moodbox/internal/domain/track"
)

var (
	ErrEmpty           = errors.New("queue is empty")
	ErrIndexOutOfRange = errors.New("index out of range")
)

// NoSelection is the current index of a queue with nothing selected.
const NoSelection = -1

// Queue is an ordered sequence of tracks and the position being played.
// Invariant: current is NoSelection or a valid index into tracks.
type Queue struct {
	tracks  []track.Track
	current int
}

// New creates an empty queue with no selection.
func New() *Queue {
	return &Queue{
		tracks:  make([]track.Track, 0),
		current: NoSelection,
	}
}

// Replace swaps the whole queue for the given tracks and selects the first one.
// The queue is left untouched when tracks is empty.
func (q *Queue) Replace(tracks []track.Track) error {
	if len(tracks) == 0 {
		return ErrEmpty
	}

	q.tracks = make([]track.Track, len(tracks))
	copy(q.tracks, tracks)
	q.current = 0
	return nil
}

// Len returns the number of tracks.
func (q *Queue) Len() int {
	return len(q.tracks)
}

// CurrentIndex returns the selected position or NoSelection.
func (q *Queue) CurrentIndex() int {
	return q.current
}

// Current returns the selected track.
func (q *Queue) Current() (track.Track, bool) {
	if q.current == NoSelection {
		return track.Track{}, false
	}
	return q.tracks[q.current], true
}

// Next selects the following track. Returns false at the last position (no wraparound).
func (q *Queue) Next() bool {
	if q.current == NoSelection || q.current >= len(q.tracks)-1 {
		return false
	}
	q.current++
	return true
}

// Previous selects the preceding track. Returns false at the first position.
func (q *Queue) Previous() bool {
	if q.current <= 0 {
		return false
	}
	q.current--
	return true
}

// JumpTo selects the track at index.
func (q *Queue) JumpTo(index int) error {
	if index < 0 || index >= len(q.tracks) {
		return errors.Wrapf(ErrIndexOutOfRange, "index %d, queue length %d", index, len(q.tracks))
	}
	q.current = index
	return nil
}

// IsLast reports whether the selection is the final track.
func (q *Queue) IsLast() bool {
	return q.current != NoSelection && q.current == len(q.tracks)-1
}

// Tracks returns a copy of the queued tracks.
func (q *Queue) Tracks() []track.Track {
	result := make([]track.Track, len(q.tracks))
	copy(result, q.tracks)
	return result
}

// TrackIDs returns the ids of all queued tracks in order.
func (q *Queue) TrackIDs() []string {
	ids := make([]string, len(q.tracks))
	for i, t := range q.tracks {
		ids[i] = t.ID
	}
	return ids
}
