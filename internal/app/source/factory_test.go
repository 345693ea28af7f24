package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/moodbox/internal/infra/config"
)

func TestNewProviderChainFromConfig(t *testing.T) {
	libPath := writeLibrary(t, testLibrary)

	t.Run("builds providers in order", func(t *testing.T) {
		cfg := &config.Config{Sources: config.SourcesConfig{Providers: []config.ProviderConfig{
			{Type: config.ProviderLibrary, DisplayName: "Local", Settings: map[string]any{"path": libPath}},
			{Type: config.ProviderLastFm, DisplayName: "Last.fm", Settings: map[string]any{"api_key": "k"}},
			{Type: config.ProviderSpotifyPlaylist, DisplayName: "Spotify", Settings: map[string]any{
				"playlists": map[string]any{"happy": "spotify:playlist:abc"},
			}},
		}}}

		chain, err := NewProviderChainFromConfig(cfg, &fakeSpotify{})
		require.NoError(t, err)

		providers := chain.Providers()
		require.Len(t, providers, 3)
		assert.Equal(t, "library", providers[0].Provider.Name())
		assert.Equal(t, "Local", providers[0].DisplayName)
		assert.Equal(t, "lastfm", providers[1].Provider.Name())
		assert.Equal(t, "spotify_playlist", providers[2].Provider.Name())
	})

	t.Run("no providers", func(t *testing.T) {
		_, err := NewProviderChainFromConfig(&config.Config{}, nil)
		assert.Error(t, err)
	})

	t.Run("unsupported type", func(t *testing.T) {
		cfg := &config.Config{Sources: config.SourcesConfig{Providers: []config.ProviderConfig{
			{Type: "soundcloud", DisplayName: "SC"},
		}}}
		_, err := NewProviderChainFromConfig(cfg, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported provider type")
	})

	t.Run("spotify provider without client", func(t *testing.T) {
		cfg := &config.Config{Sources: config.SourcesConfig{Providers: []config.ProviderConfig{
			{Type: config.ProviderSpotifyPlaylist, DisplayName: "Spotify", Settings: map[string]any{
				"playlists": map[string]any{"happy": "x"},
			}},
		}}}
		_, err := NewProviderChainFromConfig(cfg, nil)
		assert.Error(t, err)
	})

	t.Run("invalid settings", func(t *testing.T) {
		cfg := &config.Config{Sources: config.SourcesConfig{Providers: []config.ProviderConfig{
			{Type: config.ProviderLastFm, DisplayName: "Last.fm", Settings: map[string]any{"fetch_limit": 5}},
		}}}
		_, err := NewProviderChainFromConfig(cfg, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "index 0, type lastfm")
	})
}
