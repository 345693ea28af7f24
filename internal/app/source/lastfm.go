package source

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"github.com/samber/lo/mutable"

	"github.com/osa030/moodbox/internal/domain/mood"
	"github.com/osa030/moodbox/internal/domain/track"
	"github.com/osa030/moodbox/internal/infra/lastfm"
)

// defaultMoodTags are the Last.fm tags searched per mood unless configured.
var defaultMoodTags = map[mood.Mood][]string{
	mood.Happy:    {"happy", "feel good"},
	mood.Sad:      {"sad", "melancholy"},
	mood.Neutral:  {"chill", "acoustic"},
	mood.Angry:    {"angry", "aggressive"},
	mood.Excited:  {"party", "energetic"},
	mood.Anxious:  {"dark", "atmospheric"},
	mood.Romantic: {"romantic", "love"},
}

// LastFmProviderConfig is decoded from the lastfm provider settings.
type LastFmProviderConfig struct {
	APIKey        string              `yaml:"api_key" mapstructure:"api_key" validate:"required"`
	FetchLimit    int                 `yaml:"fetch_limit" mapstructure:"fetch_limit" default:"50" validate:"gte=1,lte=100"`
	Tags          map[string][]string `yaml:"tags" mapstructure:"tags"`
	ChartFallback *bool               `yaml:"chart_fallback" mapstructure:"chart_fallback" default:"true"`
}

// LastFmProvider provides tracks from the top tracks of mood tags on Last.fm.
// The global chart is used when the mood tags yield nothing.
type LastFmProvider struct {
	lastfm LastFmClient
	tags   map[mood.Mood][]string
	config *LastFmProviderConfig
}

// NewLastFmProvider creates a new LastFmProvider backed by the Last.fm API.
func NewLastFmProvider(settings map[string]any) (*LastFmProvider, error) {
	if len(settings) == 0 {
		return nil, errors.New("settings are required")
	}

	var config LastFmProviderConfig
	if err := decodeSettings(settings, &config); err != nil {
		return nil, err
	}

	client, err := lastfm.New(lastfm.Config{APIKey: config.APIKey})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create last.fm client")
	}
	return newLastFmProvider(client, &config)
}

func newLastFmProvider(client LastFmClient, config *LastFmProviderConfig) (*LastFmProvider, error) {
	tags := make(map[mood.Mood][]string, len(defaultMoodTags))
	for m, t := range defaultMoodTags {
		tags[m] = t
	}
	for name, t := range config.Tags {
		m, err := mood.Parse(name)
		if err != nil {
			return nil, errors.Wrap(err, "invalid tags key")
		}
		if len(t) == 0 {
			return nil, errors.Newf("tags for mood %s must not be empty", m)
		}
		tags[m] = t
	}

	return &LastFmProvider{lastfm: client, tags: tags, config: config}, nil
}

// GetCandidates retrieves a random selection of top tracks for the mood's tags.
func (p *LastFmProvider) GetCandidates(ctx context.Context, m mood.Mood, count int, exclude map[string]bool) ([]track.Track, error) {
	if count <= 0 {
		return []track.Track{}, nil
	}

	pool, err := p.tagTracks(ctx, p.tags[m])
	if len(pool) == 0 && p.chartFallback() {
		zlog.Debug().Msgf("lastfm: no tag tracks, using chart: mood=%s", m)
		pool, err = p.lastfm.GetChartTopTracks(ctx, p.config.FetchLimit)
	}
	if len(pool) == 0 {
		if err != nil {
			return nil, errors.Wrapf(err, "failed to get last.fm tracks for mood %s", m)
		}
		return []track.Track{}, nil
	}

	mutable.Shuffle(pool)

	candidates := make([]track.Track, 0, len(pool))
	for _, lt := range pool {
		t := track.Track{Title: lt.Name, Artist: lt.Artist, Duration: lt.Duration}
		if t.Title == "" || exclude[t.Key()] {
			continue
		}
		candidates = append(candidates, t)
	}
	return pick(make([]track.Track, 0, count), candidates, map[string]bool{}, count), nil
}

// tagTracks fetches top tracks for each tag concurrently.
// The last error is returned alongside whatever tracks were found.
func (p *LastFmProvider) tagTracks(ctx context.Context, tags []string) ([]lastfm.TopTrack, error) {
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		pool    []lastfm.TopTrack
		lastErr error
	)

	for _, tag := range tags {
		wg.Add(1)
		go func(tag string) {
			defer wg.Done()
			tracks, err := p.lastfm.GetTopTracks(ctx, tag, p.config.FetchLimit)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				zlog.Warn().Msgf("lastfm: tag lookup failed: tag=%s error=%v", tag, err)
				lastErr = err
				return
			}
			pool = append(pool, tracks...)
		}(tag)
	}
	wg.Wait()

	return pool, lastErr
}

func (p *LastFmProvider) chartFallback() bool {
	return p.config.ChartFallback == nil || *p.config.ChartFallback
}

// Name returns the provider name.
func (p *LastFmProvider) Name() string {
	return "lastfm"
}
