package source

import (
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/moodbox/internal/infra/config"
)

// NewProviderChainFromConfig creates a provider chain from configuration.
// spotify may be nil when no spotify_playlist provider is configured.
func NewProviderChainFromConfig(cfg *config.Config, spotify SpotifyClient) (*ProviderChain, error) {
	if len(cfg.Sources.Providers) == 0 {
		return nil, errors.New("no track providers configured")
	}

	var providers []ProviderWithMetadata

	for i, pcfg := range cfg.Sources.Providers {
		var provider Provider
		var err error
		zlog.Debug().Msgf("creating track provider: index=%d type=%s", i+1, pcfg.Type)
		switch pcfg.Type {
		case config.ProviderLibrary:
			provider, err = NewLibraryProvider(pcfg.Settings)

		case config.ProviderLastFm:
			provider, err = NewLastFmProvider(pcfg.Settings)

		case config.ProviderSpotifyPlaylist:
			if spotify == nil {
				err = errors.New("spotify client is required")
				break
			}
			provider, err = NewPlaylistProvider(spotify, pcfg.Settings)

		default:
			return nil, errors.Newf("unsupported provider type: %s (provider index %d)", pcfg.Type, i)
		}

		if err != nil {
			return nil, errors.Wrapf(err, "failed to create provider (index %d, type %s)", i, pcfg.Type)
		}

		providers = append(providers, ProviderWithMetadata{
			Provider:    provider,
			DisplayName: pcfg.DisplayName,
		})

		zlog.Info().Msgf("registered track provider: index=%d type=%s display_name=%s", i+1, pcfg.Type, pcfg.DisplayName)
	}

	return NewProviderChain(providers), nil
}
