package filter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/moodbox/internal/domain/track"
	"github.com/osa030/moodbox/internal/infra/config"
)

type rejectAll struct{ code string }

func (r rejectAll) Name() string { return "reject_all" }
func (r rejectAll) Description() string { return "rejects everything" }
func (r rejectAll) ReturnCodes() []string { return []string{r.code} }
func (r rejectAll) ValidateConfig(map[string]any) error { return nil }
func (r rejectAll) Check(context.Context, track.Track, []track.Track) Result {
	return Reject(r.code)
}

func TestChain_Execute(t *testing.T) {
	chain := NewChain()
	assert.True(t, chain.Execute(t.Context(), track.Track{ID: "a"}, nil).Accepted)

	chain.Add(NewDuplicateTrackFilter())
	chain.Add(rejectAll{code: "nope"})

	result := chain.Execute(t.Context(), track.Track{ID: "a"}, []track.Track{{ID: "a"}})
	assert.Equal(t, "duplicate_track", result.Code, "first rejection wins")

	result = chain.Execute(t.Context(), track.Track{ID: "b"}, []track.Track{{ID: "a"}})
	assert.Equal(t, "nope", result.Code)
	assert.Len(t, chain.Filters(), 2)
}

func TestChain_Select(t *testing.T) {
	chain := NewChain()
	chain.Add(NewDuplicateTrackFilter())
	duration := NewDurationLimitFilter()
	require.NoError(t, duration.ValidateConfig(map[string]any{"max_minutes": 6}))
	chain.Add(duration)

	candidates := []track.Track{
		{Title: "Yesterday", Artist: "The Beatles", Duration: 2 * time.Minute},
		{Title: "Yesterday - Remastered", Artist: "The Beatles"},
		{Title: "Echoes", Artist: "Pink Floyd", Duration: 23 * time.Minute},
		{Title: "Help!", Artist: "The Beatles"},
		{Title: "Something", Artist: "The Beatles"},
	}

	got := chain.Select(t.Context(), candidates, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "Yesterday", got[0].Title)
	assert.Equal(t, "Help!", got[1].Title)

	assert.Empty(t, chain.Select(t.Context(), candidates, 0))
}

func TestNewChainFromConfig(t *testing.T) {
	t.Run("enabled filters in name order", func(t *testing.T) {
		chain, err := NewChainFromConfig(map[string]config.FilterConfig{
			"duplicate_track_filter": {Enabled: true},
			"duration_limit_filter":  {Enabled: true, Settings: map[string]any{"max_minutes": 8}},
		})
		require.NoError(t, err)

		filters := chain.Filters()
		require.Len(t, filters, 2)
		assert.Equal(t, "duration_limit_filter", filters[0].Name())
		assert.Equal(t, "duplicate_track_filter", filters[1].Name())
	})

	t.Run("disabled filters are skipped", func(t *testing.T) {
		chain, err := NewChainFromConfig(map[string]config.FilterConfig{
			"duplicate_track_filter": {Enabled: false},
			"no_such_filter":         {Enabled: false},
		})
		require.NoError(t, err)
		assert.Empty(t, chain.Filters())
	})

	t.Run("unknown enabled filter", func(t *testing.T) {
		_, err := NewChainFromConfig(map[string]config.FilterConfig{"no_such_filter": {Enabled: true}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown filter")
	})

	t.Run("invalid settings", func(t *testing.T) {
		_, err := NewChainFromConfig(map[string]config.FilterConfig{
			"duration_limit_filter": {Enabled: true, Settings: map[string]any{"min_minutes": 9, "max_minutes": 3}},
		})
		assert.Error(t, err)
	})
}

func TestRegisteredNames(t *testing.T) {
	names := RegisteredNames()
	assert.Contains(t, names, "duplicate_track_filter")
	assert.Contains(t, names, "duration_limit_filter")
	assert.IsIncreasing(t, names)
}
