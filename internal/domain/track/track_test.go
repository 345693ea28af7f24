package track

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
)

func TestTrack_Validate(t *testing.T) {
	tests := []struct {
		name    string
		track   Track
		wantErr bool
	}{
		{
			name:    "valid id",
			track:   Track{ID: "dQw4w9WgXcQ", Title: "Song", Artist: "Artist"},
			wantErr: false,
		},
		{
			name:    "url id",
			track:   Track{ID: "ytdl://ytsearch1:song artist"},
			wantErr: false,
		},
		{
			name:    "empty id",
			track:   Track{Title: "Song"},
			wantErr: true,
		},
		{
			name:    "blank id",
			track:   Track{ID: "   ", Title: "Song"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.track.Validate()
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrMissingID))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTrack_Label(t *testing.T) {
	tests := []struct {
		name     string
		track    Track
		expected string
	}{
		{name: "title and artist", track: Track{ID: "id", Title: "Song", Artist: "Artist"}, expected: "Song - Artist"},
		{name: "title only", track: Track{ID: "id", Title: "Song"}, expected: "Song"},
		{name: "artist only", track: Track{ID: "id", Artist: "Artist"}, expected: "Artist"},
		{name: "id fallback", track: Track{ID: "id"}, expected: "id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.track.Label())
		})
	}
}

func TestTrack_Key(t *testing.T) {
	a := Track{ID: "a", Title: " Bohemian Rhapsody", Artist: "Queen"}
	b := Track{ID: "b", Title: "bohemian rhapsody ", Artist: "QUEEN"}
	c := Track{ID: "c", Title: "Bohemian Rhapsody", Artist: "Panic! at the Disco"}

	assert.Equal(t, a.Key(), b.Key())
	assert.NotEqual(t, a.Key(), c.Key())
}
