package source

import (
	"strings"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/moodbox/internal/domain/track"
)

// SearchPrefix makes mpv resolve the first search result through youtube-dl.
const SearchPrefix = "ytdl://ytsearch1:"

// DefaultSearchSuffix narrows searches to the studio recording.
const DefaultSearchSuffix = "official audio"

// Resolver turns title/artist candidates into tracks the player can load.
type Resolver struct {
	suffix string
}

// NewResolver creates a Resolver appending suffix to every search.
func NewResolver(suffix string) *Resolver {
	return &Resolver{suffix: strings.TrimSpace(suffix)}
}

// Resolve fills in the ID of a track that has none.
// Returns false when the track has neither ID nor title.
func (r *Resolver) Resolve(t track.Track) (track.Track, bool) {
	if strings.TrimSpace(t.ID) != "" {
		return t, true
	}
	if strings.TrimSpace(t.Title) == "" {
		return t, false
	}

	terms := make([]string, 0, 3)
	for _, s := range []string{t.Title, t.Artist, r.suffix} {
		if s = strings.TrimSpace(s); s != "" {
			terms = append(terms, s)
		}
	}
	t.ID = SearchPrefix + strings.Join(terms, " ")
	return t, true
}

// ResolveAll resolves every track, dropping the ones that cannot be played.
func (r *Resolver) ResolveAll(tracks []track.Track) []track.Track {
	out := make([]track.Track, 0, len(tracks))
	for _, t := range tracks {
		resolved, ok := r.Resolve(t)
		if !ok {
			zlog.Warn().Msgf("resolver: dropping unresolvable track: source=%s artist=%s", t.Source, t.Artist)
			continue
		}
		out = append(out, resolved)
	}
	return out
}
