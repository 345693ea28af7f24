package filter

import (
	"context"
	"regexp"
	"strings"

	levenshtein "github.com/ka-weihe/fast-levenshtein"

	"github.com/osa030/moodbox/internal/domain/track"
)

// fuzzyMinLength is the shortest normalized title compared by edit distance.
// Shorter titles must match exactly ("Hurt" and "Hurts" are different songs).
const fuzzyMinLength = 8

// DuplicateTrackConfig represents the configuration for DuplicateTrackFilter.
type DuplicateTrackConfig struct {
	// MaxTitleDistance is the edit distance under which two normalized titles
	// by the same artist are the same song. 0 requires an exact match.
	MaxTitleDistance *int `yaml:"max_title_distance" mapstructure:"max_title_distance" default:"2" validate:"omitempty,gte=0,lte=5"`
}

// DuplicateTrackFilter rejects candidates already selected for the queue.
// Detects:
// - Exact ID matches
// - Remasters and alternate versions (normalized title + same artist)
// - Spelling variants ("Dont Stop Me Now" / "Don't Stop Me Now")
// Cover songs (same title, different artist) are kept.
type DuplicateTrackFilter struct {
	maxDistance int
}

// NewDuplicateTrackFilter creates a new duplicate track filter.
func NewDuplicateTrackFilter() *DuplicateTrackFilter {
	return &DuplicateTrackFilter{maxDistance: 2}
}

// Name returns the filter name.
func (f *DuplicateTrackFilter) Name() string {
	return "duplicate_track_filter"
}

// Description returns the filter description.
func (f *DuplicateTrackFilter) Description() string {
	return "Rejects songs already queued, including remasters and alternate versions. Covers by other artists are allowed"
}

// ReturnCodes returns possible return codes.
func (f *DuplicateTrackFilter) ReturnCodes() []string {
	return []string{"duplicate_track"}
}

// ValidateConfig validates the filter configuration.
func (f *DuplicateTrackFilter) ValidateConfig(settings map[string]any) error {
	var config DuplicateTrackConfig
	if err := decodeSettings(settings, &config); err != nil {
		return err
	}
	f.maxDistance = *config.MaxTitleDistance
	return nil
}

// Check checks if the candidate duplicates a selected track.
func (f *DuplicateTrackFilter) Check(_ context.Context, candidate track.Track, selected []track.Track) Result {
	for _, s := range selected {
		if candidate.ID != "" && s.ID == candidate.ID {
			return Reject("duplicate_track")
		}
		if f.isSameSong(s, candidate) {
			return Reject("duplicate_track")
		}
	}
	return Accept()
}

// isSameSong checks if two tracks are the same song in a different version.
func (f *DuplicateTrackFilter) isSameSong(a, b track.Track) bool {
	// Same title by a different artist is a cover.
	if a.Artist == "" || !strings.EqualFold(strings.TrimSpace(a.Artist), strings.TrimSpace(b.Artist)) {
		return false
	}
	return f.sameTitle(normalizeTrackName(a.Title), normalizeTrackName(b.Title))
}

func (f *DuplicateTrackFilter) sameTitle(a, b string) bool {
	if a == b {
		return true
	}
	if f.maxDistance == 0 || min(len(a), len(b)) < fuzzyMinLength {
		return false
	}
	return levenshtein.Distance(a, b) <= f.maxDistance
}

var (
	remasterPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\s*-?\s*\d{4}\s+remaster(ed)?`),      // "- 2011 Remaster"
		regexp.MustCompile(`\s*\(remaster(ed)?\s*\d{0,4}\)`),     // "(Remastered 2023)"
		regexp.MustCompile(`\s*\[remaster(ed)?\s*\d{0,4}\]`),     // "[Remastered]"
		regexp.MustCompile(`\s*-?\s*remaster(ed)?(\s+version)?`), // "- Remastered"
		regexp.MustCompile(`\s*\(.*?remaster.*?\)`),              // "(Any Remaster text)"
		regexp.MustCompile(`\s*\[.*?remaster.*?\]`),              // "[Any Remaster text]"
	}
	versionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\s*\(official (audio|video|music video)\)`), // "(Official Audio)"
		regexp.MustCompile(`\s*\(.*?version\)`),                         // "(Single Version)"
		regexp.MustCompile(`\s*\(.*?edit\)`),                            // "(Radio Edit)"
		regexp.MustCompile(`\s*\(live\)`),                               // "(Live)"
		regexp.MustCompile(`\s+-\s*live\b.*$`),                          // "- Live at Wembley"
		regexp.MustCompile(`\s*-?\s*radio\s+edit`),                      // "- Radio Edit"
		regexp.MustCompile(`\s*-?\s*single\s+version`),                  // "- Single Version"
	}
	spaces = regexp.MustCompile(`\s+`)
)

// normalizeTrackName removes remaster information and version details.
func normalizeTrackName(name string) string {
	normalized := strings.ToLower(name)

	for _, pattern := range remasterPatterns {
		normalized = pattern.ReplaceAllString(normalized, "")
	}
	for _, pattern := range versionPatterns {
		normalized = pattern.ReplaceAllString(normalized, "")
	}

	normalized = strings.TrimSpace(normalized)
	normalized = spaces.ReplaceAllString(normalized, " ")

	return strings.TrimRight(normalized, " -")
}

func init() {
	Register("duplicate_track_filter", func() Filter {
		return NewDuplicateTrackFilter()
	})
}
