package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/moodbox/internal/domain/track"
)

func TestDuplicateTrackFilter_ExactIDMatch(t *testing.T) {
	f := NewDuplicateTrackFilter()
	selected := []track.Track{{ID: "track123", Title: "Bohemian Rhapsody", Artist: "Queen"}}

	result := f.Check(t.Context(), track.Track{ID: "track123", Title: "Something Else", Artist: "Other"}, selected)

	assert.False(t, result.Accepted)
	assert.Equal(t, "duplicate_track", result.Code)
}

func TestDuplicateTrackFilter_EmptyIDsDoNotMatch(t *testing.T) {
	f := NewDuplicateTrackFilter()
	selected := []track.Track{{Title: "Hurt", Artist: "Johnny Cash"}}

	result := f.Check(t.Context(), track.Track{Title: "Ring of Fire", Artist: "Johnny Cash"}, selected)
	assert.True(t, result.Accepted)
}

func TestDuplicateTrackFilter_SameSong(t *testing.T) {
	tests := []struct {
		name         string
		selected     track.Track
		candidate    track.Track
		shouldReject bool
	}{
		{
			name:         "Standard remaster pattern",
			selected:     track.Track{Title: "Bohemian Rhapsody", Artist: "Queen"},
			candidate:    track.Track{Title: "Bohemian Rhapsody - 2011 Remaster", Artist: "Queen"},
			shouldReject: true,
		},
		{
			name:         "Remastered in parentheses",
			selected:     track.Track{Title: "Yesterday", Artist: "The Beatles"},
			candidate:    track.Track{Title: "Yesterday (Remastered 2023)", Artist: "The Beatles"},
			shouldReject: true,
		},
		{
			name:         "Case differs",
			selected:     track.Track{Title: "Hey Jude", Artist: "The Beatles"},
			candidate:    track.Track{Title: "hey jude", Artist: "the beatles"},
			shouldReject: true,
		},
		{
			name:         "Radio edit",
			selected:     track.Track{Title: "Mr. Brightside", Artist: "The Killers"},
			candidate:    track.Track{Title: "Mr. Brightside (Radio Edit)", Artist: "The Killers"},
			shouldReject: true,
		},
		{
			name:         "Official audio suffix",
			selected:     track.Track{Title: "Happy", Artist: "Pharrell Williams"},
			candidate:    track.Track{Title: "Happy (Official Audio)", Artist: "Pharrell Williams"},
			shouldReject: true,
		},
		{
			name:         "Live version",
			selected:     track.Track{Title: "Hotel California", Artist: "Eagles"},
			candidate:    track.Track{Title: "Hotel California - Live at the Forum", Artist: "Eagles"},
			shouldReject: true,
		},
		{
			name:         "Cover song by different artist",
			selected:     track.Track{Title: "Hurt", Artist: "Nine Inch Nails"},
			candidate:    track.Track{Title: "Hurt", Artist: "Johnny Cash"},
			shouldReject: false,
		},
		{
			name:         "Different songs with similar names",
			selected:     track.Track{Title: "Love", Artist: "John Lennon"},
			candidate:    track.Track{Title: "Love Song", Artist: "John Lennon"},
			shouldReject: false,
		},
		{
			name:         "Word containing live",
			selected:     track.Track{Title: "Alive", Artist: "Pearl Jam"},
			candidate:    track.Track{Title: "Al", Artist: "Pearl Jam"},
			shouldReject: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewDuplicateTrackFilter()
			result := f.Check(t.Context(), tt.candidate, []track.Track{tt.selected})

			if tt.shouldReject {
				assert.False(t, result.Accepted)
				assert.Equal(t, "duplicate_track", result.Code)
			} else {
				assert.True(t, result.Accepted)
			}
		})
	}
}

func TestNormalizeTrackName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Bohemian Rhapsody", "bohemian rhapsody"},
		{"Bohemian Rhapsody - 2011 Remaster", "bohemian rhapsody"},
		{"Yesterday (Remastered 2009)", "yesterday"},
		{"Let It Be [Remastered]", "let it be"},
		{"Hey Jude - Remastered", "hey jude"},
		{"Imagine (Single Version)", "imagine"},
		{"Song   With   Spaces", "song with spaces"},
		{"Alive", "alive"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, normalizeTrackName(tt.input))
		})
	}
}

func TestDuplicateTrackFilter_SpellingVariants(t *testing.T) {
	tests := []struct {
		name         string
		settings     map[string]any
		selected     track.Track
		candidate    track.Track
		shouldReject bool
	}{
		{
			name:         "Missing apostrophe",
			selected:     track.Track{Title: "Don't Stop Me Now", Artist: "Queen"},
			candidate:    track.Track{Title: "Dont Stop Me Now", Artist: "Queen"},
			shouldReject: true,
		},
		{
			name:         "Short titles must match exactly",
			selected:     track.Track{Title: "Hurt", Artist: "Nine Inch Nails"},
			candidate:    track.Track{Title: "Hurts", Artist: "Nine Inch Nails"},
			shouldReject: false,
		},
		{
			name:         "Too far apart",
			selected:     track.Track{Title: "Here Comes the Sun", Artist: "The Beatles"},
			candidate:    track.Track{Title: "Here Comes the Night", Artist: "The Beatles"},
			shouldReject: false,
		},
		{
			name:         "Close title by another artist",
			selected:     track.Track{Title: "Don't Stop Me Now", Artist: "Queen"},
			candidate:    track.Track{Title: "Dont Stop Me Now", Artist: "Cover Band"},
			shouldReject: false,
		},
		{
			name:         "Fuzzy matching disabled",
			settings:     map[string]any{"max_title_distance": 0},
			selected:     track.Track{Title: "Don't Stop Me Now", Artist: "Queen"},
			candidate:    track.Track{Title: "Dont Stop Me Now", Artist: "Queen"},
			shouldReject: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewDuplicateTrackFilter()
			require.NoError(t, f.ValidateConfig(tt.settings))

			result := f.Check(t.Context(), tt.candidate, []track.Track{tt.selected})
			assert.Equal(t, !tt.shouldReject, result.Accepted)
		})
	}
}

func TestDuplicateTrackFilter_ValidateConfig(t *testing.T) {
	f := NewDuplicateTrackFilter()
	assert.Error(t, f.ValidateConfig(map[string]any{"max_title_distance": 9}))
	assert.Error(t, f.ValidateConfig(map[string]any{"max_title_distance": -1}))
	require.NoError(t, f.ValidateConfig(map[string]any{"max_title_distance": "3"}))
	assert.Equal(t, 3, f.maxDistance)
}
