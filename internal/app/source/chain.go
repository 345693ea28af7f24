package source

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/osa030/moodbox/internal/domain/mood"
	"github.com/osa030/moodbox/internal/domain/track"
)

// ErrNoCandidates is returned when no provider produced a track.
var ErrNoCandidates = errors.New("all providers failed to return candidates")

// ProviderWithMetadata wraps a provider with its metadata.
type ProviderWithMetadata struct {
	Provider    Provider
	DisplayName string
}

// ProviderChain tries providers in order until enough candidates are found.
type ProviderChain struct {
	providers []ProviderWithMetadata
}

// NewProviderChain creates a new provider chain.
func NewProviderChain(providers []ProviderWithMetadata) *ProviderChain {
	return &ProviderChain{
		providers: providers,
	}
}

// GetCandidates collects up to count candidates for the mood.
// Each returned track carries the display name of its provider in Source.
// A failing provider is skipped.
func (c *ProviderChain) GetCandidates(ctx context.Context, m mood.Mood, count int, exclude map[string]bool) ([]track.Track, error) {
	if count <= 0 {
		return []track.Track{}, nil
	}

	seen := lo.PickByValues(exclude, []bool{true})
	var all []track.Track

	for i, pm := range c.providers {
		if len(all) >= count {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "candidate collection cancelled")
		}

		zlog.Debug().Msgf("trying provider: index=%d total=%d name=%s provider_type=%s mood=%s",
			i+1, len(c.providers), pm.DisplayName, pm.Provider.Name(), m)

		candidates, err := pm.Provider.GetCandidates(ctx, m, count-len(all), seen)
		if err != nil {
			zlog.Warn().Msgf("provider failed, trying next: provider=%s error=%v", pm.DisplayName, err)
			continue
		}
		if len(candidates) == 0 {
			zlog.Debug().Msgf("provider returned no candidates: provider=%s mood=%s", pm.DisplayName, m)
			continue
		}

		for j := range candidates {
			candidates[j].Source = pm.DisplayName
		}
		before := len(all)
		all = pick(all, candidates, seen, count)

		zlog.Info().Msgf("provider returned candidates: provider=%s count=%d total_so_far=%d",
			pm.DisplayName, len(all)-before, len(all))
	}

	if len(all) == 0 {
		return nil, errors.Wrapf(ErrNoCandidates, "mood %s", m)
	}
	return all, nil
}

// Check runs every provider's upstream check and returns the first failure.
func (c *ProviderChain) Check(ctx context.Context) error {
	for _, pm := range c.providers {
		checker, ok := pm.Provider.(Checker)
		if !ok {
			continue
		}
		if err := checker.Check(ctx); err != nil {
			return errors.Wrapf(err, "provider %s check failed", pm.DisplayName)
		}
		zlog.Debug().Msgf("provider check passed: provider=%s", pm.DisplayName)
	}
	return nil
}

// Providers returns the chained providers in order.
func (c *ProviderChain) Providers() []ProviderWithMetadata {
	return append([]ProviderWithMetadata(nil), c.providers...)
}

// Name returns the chain name.
func (c *ProviderChain) Name() string {
	return "provider_chain"
}
