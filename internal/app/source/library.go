package source

import (
	"context"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo/mutable"
	"gopkg.in/yaml.v3"

	"github.com/osa030/moodbox/internal/domain/mood"
	"github.com/osa030/moodbox/internal/domain/track"
)

// LibraryProviderConfig is decoded from the library provider settings.
type LibraryProviderConfig struct {
	Path string `yaml:"path" mapstructure:"path" validate:"required"`
}

// LibraryEntry is one song of a local library file.
// Entries listing moods match those moods only; others are matched by valence and energy.
type LibraryEntry struct {
	Title   string   `yaml:"title"`
	Artist  string   `yaml:"artist"`
	ID      string   `yaml:"id"`
	Valence float64  `yaml:"valence"`
	Energy  float64  `yaml:"energy"`
	Seconds int      `yaml:"duration_seconds"`
	Moods   []string `yaml:"moods"`
}

type libraryFile struct {
	Tracks []LibraryEntry `yaml:"tracks"`
}

// LibraryProvider selects tracks from a YAML library annotated with audio features.
type LibraryProvider struct {
	entries []LibraryEntry
	config  *LibraryProviderConfig
}

// NewLibraryProvider creates a LibraryProvider and loads its library file.
func NewLibraryProvider(settings map[string]any) (*LibraryProvider, error) {
	var config LibraryProviderConfig
	if err := decodeSettings(settings, &config); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(config.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read library %s", config.Path)
	}
	entries, err := ParseLibrary(data)
	if err != nil {
		return nil, errors.Wrapf(err, "library %s", config.Path)
	}

	return &LibraryProvider{entries: entries, config: &config}, nil
}

// ParseLibrary parses and validates library YAML.
func ParseLibrary(data []byte) ([]LibraryEntry, error) {
	var f libraryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "failed to parse library")
	}
	for i, e := range f.Tracks {
		if e.Title == "" && e.ID == "" {
			return nil, errors.Newf("entry %d: title or id is required", i)
		}
		for _, name := range e.Moods {
			if _, err := mood.Parse(name); err != nil {
				return nil, errors.Wrapf(err, "entry %d", i)
			}
		}
	}
	return f.Tracks, nil
}

// GetCandidates returns a random selection of library tracks fitting the mood.
func (p *LibraryProvider) GetCandidates(ctx context.Context, m mood.Mood, count int, exclude map[string]bool) ([]track.Track, error) {
	if count <= 0 {
		return []track.Track{}, nil
	}

	var matching []track.Track
	for _, e := range p.entries {
		if !e.matches(m) {
			continue
		}
		t := e.track()
		if exclude[t.Key()] {
			continue
		}
		matching = append(matching, t)
	}

	mutable.Shuffle(matching)

	return pick(make([]track.Track, 0, count), matching, map[string]bool{}, count), nil
}

// Check reports an empty library.
func (p *LibraryProvider) Check(_ context.Context) error {
	if len(p.entries) == 0 {
		return errors.Newf("library %s has no tracks", p.config.Path)
	}
	return nil
}

// Name returns the provider name.
func (p *LibraryProvider) Name() string {
	return "library"
}

func (e LibraryEntry) matches(m mood.Mood) bool {
	if len(e.Moods) == 0 {
		return m.Matches(e.Valence, e.Energy)
	}
	for _, name := range e.Moods {
		if parsed, err := mood.Parse(name); err == nil && parsed == m {
			return true
		}
	}
	return false
}

func (e LibraryEntry) track() track.Track {
	return track.Track{
		ID:       e.ID,
		Title:    e.Title,
		Artist:   e.Artist,
		Duration: time.Duration(e.Seconds) * time.Second,
	}
}
