// Package track provides the Track domain entity.
package track

import (
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// ErrMissingID is returned when a track has no capability identifier.
var ErrMissingID = errors.New("track id is required")

// Track represents a playable item in the queue.
// Tracks are treated as immutable once queued.
type Track struct {
	ID       string        // Capability identifier (video id or playable URL)
	Title    string        // Track title
	Artist   string        // Primary artist
	Duration time.Duration // Known duration (0 if unknown until playback)
	Source   string        // Display name of the source that provided the track
}

// Validate checks that the track can be handed to the player.
func (t Track) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return errors.Wrapf(ErrMissingID, "track %q", t.Label())
	}
	return nil
}

// Label returns a human readable "title - artist" label.
func (t Track) Label() string {
	switch {
	case t.Title != "" && t.Artist != "":
		return fmt.Sprintf("%s - %s", t.Title, t.Artist)
	case t.Title != "":
		return t.Title
	case t.Artist != "":
		return t.Artist
	default:
		return t.ID
	}
}

// Key returns a normalized title/artist key used to detect the same song from different sources.
func (t Track) Key() string {
	return strings.ToLower(strings.TrimSpace(t.Title)) + "\x00" + strings.ToLower(strings.TrimSpace(t.Artist))
}
