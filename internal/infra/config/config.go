// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// Provider types understood by the source factory.
const (
	ProviderLibrary         = "library"
	ProviderLastFm          = "lastfm"
	ProviderSpotifyPlaylist = "spotify_playlist"
)

// Config represents the application configuration.
type Config struct {
	Player   PlayerConfig            `yaml:"player"`
	Playback PlaybackConfig          `yaml:"playback"`
	Queue    QueueConfig             `yaml:"queue"`
	Sources  SourcesConfig           `yaml:"sources"`
	Filters  map[string]FilterConfig `yaml:"filters"`
	Spotify  SpotifyConfig           `yaml:"spotify"`
	Hooks    HooksConfig             `yaml:"hooks"`
}

// PlayerConfig represents the mpv process configuration.
type PlayerConfig struct {
	MPVPath    string   `yaml:"mpv_path" default:"mpv"`
	SocketPath string   `yaml:"socket_path"`
	ExtraArgs  []string `yaml:"extra_args"`
	// Volume applied when the player becomes ready. 0 is treated as unset;
	// mute at runtime instead.
	Volume int `yaml:"volume" default:"100" validate:"gte=1,lte=100"`
}

// PlaybackConfig represents playback control timing.
type PlaybackConfig struct {
	MaxAttempts         int `yaml:"max_attempts" default:"3" validate:"gte=1,lte=10"`
	StateCheckMs        int `yaml:"state_check_ms" default:"500" validate:"gte=10,lte=10000"`
	RetryBackoffMs      int `yaml:"retry_backoff_ms" default:"1000" validate:"gte=10,lte=30000"`
	UnstartedRetryMs    int `yaml:"unstarted_retry_ms" default:"500" validate:"gte=10,lte=10000"`
	FatalAdvanceDelayMs int `yaml:"fatal_advance_delay_ms" default:"1000" validate:"gte=0,lte=30000"`
	ProgressIntervalMs  int `yaml:"progress_interval_ms" default:"100" validate:"gte=10,lte=5000"`
	EventBuffer         int `yaml:"event_buffer" default:"64" validate:"gte=1,lte=4096"`
}

// QueueConfig represents queue building configuration.
type QueueConfig struct {
	Size           int `yaml:"size" default:"10" validate:"gte=1,lte=100"`
	CandidateCount int `yaml:"candidate_count" default:"30" validate:"gte=1,lte=500"`
	// ResolveSuffix is appended to "title artist" when searching for a playable match.
	ResolveSuffix string `yaml:"resolve_suffix" default:"official audio"`
	// Continuous builds a fresh queue for the same mood when the current one finishes.
	Continuous bool `yaml:"continuous"`
}

// SourcesConfig represents the ordered track providers.
type SourcesConfig struct {
	Providers []ProviderConfig `yaml:"providers" validate:"required,min=1,dive"`
}

// ProviderConfig represents a single track provider configuration.
type ProviderConfig struct {
	Type        string         `yaml:"type" validate:"required,oneof=library lastfm spotify_playlist"`
	DisplayName string         `yaml:"display_name" validate:"required"`
	Settings    map[string]any `yaml:"settings"`
}

// FilterConfig represents a filter's configuration.
type FilterConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// SpotifyConfig represents Spotify API configuration.
// Credentials are only required when a spotify_playlist provider is configured.
type SpotifyConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RefreshToken string `yaml:"refresh_token"`
	Market       string `yaml:"market" validate:"omitempty,len=2" default:"US"`
}

// HooksConfig represents lifecycle hooks configuration.
type HooksConfig struct {
	OnStarted []string `yaml:"on_started"`
	OnStopped []string `yaml:"on_stopped"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse parses, defaults and validates YAML configuration.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	cfg.overrideFromEnv()

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Spotify.ClientSecret = v
	}
	if v := os.Getenv("SPOTIFY_REFRESH_TOKEN"); v != "" {
		c.Spotify.RefreshToken = v
	}
	if v := os.Getenv("MOODBOX_MPV_PATH"); v != "" {
		c.Player.MPVPath = v
	}
	if v := os.Getenv("LASTFM_API_KEY"); v != "" {
		for i := range c.Sources.Providers {
			p := &c.Sources.Providers[i]
			if p.Type != ProviderLastFm {
				continue
			}
			if p.Settings == nil {
				p.Settings = map[string]any{}
			}
			p.Settings["api_key"] = v
		}
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	if c.Queue.CandidateCount < c.Queue.Size {
		return errors.Newf("queue.candidate_count (%d) must be at least queue.size (%d)", c.Queue.CandidateCount, c.Queue.Size)
	}

	names := lo.Map(c.Sources.Providers, func(p ProviderConfig, _ int) string { return p.DisplayName })
	if dups := lo.FindDuplicates(names); len(dups) > 0 {
		return errors.Newf("duplicate provider display_name %q", dups[0])
	}

	if c.HasProvider(ProviderSpotifyPlaylist) && !c.Spotify.HasCredentials() {
		return errors.New("spotify credentials are required by the spotify_playlist provider")
	}

	return nil
}

// HasProvider reports whether a provider of the given type is configured.
func (c *Config) HasProvider(providerType string) bool {
	return lo.ContainsBy(c.Sources.Providers, func(p ProviderConfig) bool {
		return p.Type == providerType
	})
}

// IsFilterEnabled checks if a filter is enabled.
func (c *Config) IsFilterEnabled(filterName string) bool {
	if f, ok := c.Filters[filterName]; ok {
		return f.Enabled
	}
	return false
}

// HasCredentials reports whether all Spotify credentials are set.
func (s SpotifyConfig) HasCredentials() bool {
	return s.ClientID != "" && s.ClientSecret != "" && s.RefreshToken != ""
}

// Duration helpers convert millisecond settings.

func (p PlaybackConfig) StateCheckDelay() time.Duration {
	return time.Duration(p.StateCheckMs) * time.Millisecond
}

func (p PlaybackConfig) RetryBackoff() time.Duration {
	return time.Duration(p.RetryBackoffMs) * time.Millisecond
}

func (p PlaybackConfig) UnstartedRetryDelay() time.Duration {
	return time.Duration(p.UnstartedRetryMs) * time.Millisecond
}

func (p PlaybackConfig) FatalAdvanceDelay() time.Duration {
	return time.Duration(p.FatalAdvanceDelayMs) * time.Millisecond
}

func (p PlaybackConfig) ProgressInterval() time.Duration {
	return time.Duration(p.ProgressIntervalMs) * time.Millisecond
}
