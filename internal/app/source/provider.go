// Package source provides mood-based track candidate strategies.
package source

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"github.com/osa030/moodbox/internal/domain/mood"
	"github.com/osa030/moodbox/internal/domain/track"
	"github.com/osa030/moodbox/internal/infra/lastfm"
)

// ErrNoSourceForMood is returned when a provider has nothing configured for a mood.
var ErrNoSourceForMood = errors.New("no source configured for mood")

// Provider is the interface for track candidate providers.
type Provider interface {
	// GetCandidates retrieves up to count tracks fitting the mood.
	// exclude holds track.Key values that must not be returned.
	GetCandidates(ctx context.Context, m mood.Mood, count int, exclude map[string]bool) ([]track.Track, error)

	// Name returns the provider type name (used in config).
	Name() string
}

// Checker is implemented by providers that can verify their upstream before playback.
type Checker interface {
	Check(ctx context.Context) error
}

// SpotifyClient defines the Spotify operations needed by the playlist provider.
type SpotifyClient interface {
	GetPlaylistTracksRandom(ctx context.Context, playlistURL string, count int) ([]track.Track, error)
	CheckPlaylistExists(ctx context.Context, playlistURL string) error
}

// LastFmClient defines the Last.fm operations needed by the Last.fm provider.
type LastFmClient interface {
	GetTopTracks(ctx context.Context, tagName string, limit int) ([]lastfm.TopTrack, error)
	GetChartTopTracks(ctx context.Context, limit int) ([]lastfm.TopTrack, error)
}

// decodeSettings decodes provider settings into out, then applies defaults and validation.
func decodeSettings(settings map[string]any, out any) error {
	if err := mapstructure.Decode(settings, out); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(out); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(out); err != nil {
		return errors.Wrap(err, "validation failed")
	}
	return nil
}

// pick appends tracks not yet excluded or seen until limit is reached.
// seen is updated with every key taken.
func pick(dst, tracks []track.Track, seen map[string]bool, limit int) []track.Track {
	for _, t := range tracks {
		if len(dst) >= limit {
			break
		}
		k := t.Key()
		if seen[k] {
			continue
		}
		seen[k] = true
		dst = append(dst, t)
	}
	return dst
}

// excluded returns a lo predicate matching tracks whose key is in exclude.
func excluded(exclude map[string]bool) func(track.Track, int) bool {
	return func(t track.Track, _ int) bool {
		return exclude[t.Key()]
	}
}
