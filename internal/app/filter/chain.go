package filter

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/moodbox/internal/domain/track"
	"github.com/osa030/moodbox/internal/infra/config"
)

// Chain executes filters in sequence.
type Chain struct {
	filters []Filter
}

// NewChain creates a new filter chain.
func NewChain() *Chain {
	return &Chain{
		filters: make([]Filter, 0),
	}
}

// NewChainFromConfig builds a chain of every enabled filter, in name order.
// Enabling an unregistered filter is an error.
func NewChainFromConfig(filters map[string]config.FilterConfig) (*Chain, error) {
	for name, fc := range filters {
		if _, ok := registry[name]; fc.Enabled && !ok {
			return nil, errors.Newf("unknown filter: %s", name)
		}
	}

	chain := NewChain()
	for _, name := range RegisteredNames() {
		fc, ok := filters[name]
		if !ok || !fc.Enabled {
			continue
		}
		f := registry[name]()
		if err := f.ValidateConfig(fc.Settings); err != nil {
			return nil, errors.Wrapf(err, "filter %s", name)
		}
		chain.Add(f)
		zlog.Info().Msgf("filter enabled: name=%s", name)
	}
	return chain, nil
}

// Add adds a filter to the chain.
func (c *Chain) Add(f Filter) {
	c.filters = append(c.filters, f)
}

// Execute runs all filters in sequence.
// Returns immediately if any filter rejects the candidate.
func (c *Chain) Execute(ctx context.Context, candidate track.Track, selected []track.Track) Result {
	for _, f := range c.filters {
		result := f.Check(ctx, candidate, selected)
		if !result.Accepted {
			return result
		}
	}
	return Accept()
}

// Select walks candidates in order and keeps up to limit accepted tracks.
func (c *Chain) Select(ctx context.Context, candidates []track.Track, limit int) []track.Track {
	selected := make([]track.Track, 0, min(limit, len(candidates)))
	for _, t := range candidates {
		if len(selected) >= limit {
			break
		}
		result := c.Execute(ctx, t, selected)
		if !result.Accepted {
			zlog.Debug().Msgf("candidate rejected: track=%q code=%s", t.Label(), result.Code)
			continue
		}
		selected = append(selected, t)
	}
	return selected
}

// Filters returns all filters in the chain.
func (c *Chain) Filters() []Filter {
	return c.filters
}
