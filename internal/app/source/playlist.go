package source

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/osa030/moodbox/internal/domain/mood"
	"github.com/osa030/moodbox/internal/domain/track"
)

// PlaylistProviderConfig is decoded from the spotify_playlist provider settings.
type PlaylistProviderConfig struct {
	// Playlists maps a mood name to a playlist URL, URI or ID.
	Playlists map[string]string `yaml:"playlists" mapstructure:"playlists" validate:"required,min=1"`
	// Fallback is used for moods without a playlist of their own.
	Fallback string `yaml:"fallback" mapstructure:"fallback"`
	// FetchCount is the number of random tracks requested per refill.
	FetchCount int `yaml:"fetch_count" mapstructure:"fetch_count" default:"30" validate:"gte=1,lte=100"`
}

// PlaylistProvider provides tracks by randomly selecting from per-mood Spotify playlists.
// Unused tracks are cached per mood to save API calls.
type PlaylistProvider struct {
	spotify   SpotifyClient
	playlists map[mood.Mood]string
	config    *PlaylistProviderConfig

	mu    sync.Mutex
	cache map[mood.Mood][]track.Track
}

// NewPlaylistProvider creates a new PlaylistProvider.
func NewPlaylistProvider(spotify SpotifyClient, settings map[string]any) (*PlaylistProvider, error) {
	if spotify == nil {
		return nil, errors.New("spotify client is required")
	}

	var config PlaylistProviderConfig
	if err := decodeSettings(settings, &config); err != nil {
		return nil, err
	}
	zlog.Debug().Msgf("playlist provider config: %+v", config)

	playlists := make(map[mood.Mood]string, len(config.Playlists))
	for name, url := range config.Playlists {
		m, err := mood.Parse(name)
		if err != nil {
			return nil, errors.Wrap(err, "invalid playlists key")
		}
		if url == "" {
			return nil, errors.Newf("playlist for mood %s must not be empty", m)
		}
		playlists[m] = url
	}

	return &PlaylistProvider{
		spotify:   spotify,
		playlists: playlists,
		config:    &config,
		cache:     make(map[mood.Mood][]track.Track),
	}, nil
}

// GetCandidates retrieves random tracks from the mood's playlist.
func (p *PlaylistProvider) GetCandidates(ctx context.Context, m mood.Mood, count int, exclude map[string]bool) ([]track.Track, error) {
	if count <= 0 {
		return []track.Track{}, nil
	}

	url := p.playlistFor(m)
	if url == "" {
		return nil, errors.Wrapf(ErrNoSourceForMood, "spotify playlist for %s", m)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	available := lo.Reject(p.cache[m], excluded(exclude))

	if len(available) < count {
		fetched, err := p.spotify.GetPlaylistTracksRandom(ctx, url, max(p.config.FetchCount, count))
		if err != nil {
			return nil, errors.Wrap(err, "failed to get random tracks from playlist")
		}
		available = lo.UniqBy(append(available, lo.Reject(fetched, excluded(exclude))...), track.Track.Key)
	}

	n := min(count, len(available))
	result := append([]track.Track(nil), available[:n]...)
	p.cache[m] = available[n:]

	return result, nil
}

// Check verifies that every configured playlist is reachable.
func (p *PlaylistProvider) Check(ctx context.Context) error {
	urls := make([]string, 0, len(p.playlists)+1)
	for _, url := range p.playlists {
		urls = append(urls, url)
	}
	if p.config.Fallback != "" {
		urls = append(urls, p.config.Fallback)
	}
	for _, url := range urls {
		if err := p.spotify.CheckPlaylistExists(ctx, url); err != nil {
			return errors.Wrapf(err, "playlist %s", url)
		}
	}
	return nil
}

// Name returns the provider name.
func (p *PlaylistProvider) Name() string {
	return "spotify_playlist"
}

func (p *PlaylistProvider) playlistFor(m mood.Mood) string {
	if url, ok := p.playlists[m]; ok {
		return url
	}
	return p.config.Fallback
}
