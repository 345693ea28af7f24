// Package mood provides the closed set of moods a queue can be built for.
package mood

import (
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	levenshtein "github.com/ka-weihe/fast-levenshtein"
)

// ErrUnknownMood is returned when a mood name cannot be mapped.
var ErrUnknownMood = errors.New("unknown mood")

// Mood is a listening mood.
type Mood string

const (
	Happy    Mood = "happy"
	Sad      Mood = "sad"
	Neutral  Mood = "neutral"
	Angry    Mood = "angry"
	Excited  Mood = "excited"
	Anxious  Mood = "anxious"
	Romantic Mood = "romantic"
)

// aliases maps emotion labels produced by classifiers onto moods.
var aliases = map[string]Mood{
	"joy":      Happy,
	"sadness":  Sad,
	"anger":    Angry,
	"disgust":  Angry,
	"love":     Romantic,
	"fear":     Anxious,
	"surprise": Excited,
}

// Range is an inclusive audio feature interval.
type Range struct {
	Min float64
	Max float64
}

// Contains reports whether v lies within the range.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Features are the valence/energy intervals describing a mood.
type Features struct {
	Valence Range
	Energy  Range
}

var known = map[Mood]bool{
	Happy: true, Sad: true, Neutral: true, Angry: true, Excited: true, Anxious: true, Romantic: true,
}

// features has no entry for Romantic; it shares Happy's ranges.
var features = map[Mood]Features{
	Happy:   {Valence: Range{0.6, 1.0}, Energy: Range{0.6, 1.0}},
	Sad:     {Valence: Range{0.0, 0.4}, Energy: Range{0.0, 0.5}},
	Neutral: {Valence: Range{0.4, 0.8}, Energy: Range{0.3, 0.6}},
	Angry:   {Valence: Range{0.0, 0.4}, Energy: Range{0.7, 1.0}},
	Excited: {Valence: Range{0.7, 1.0}, Energy: Range{0.8, 1.0}},
	Anxious: {Valence: Range{0.0, 0.3}, Energy: Range{0.5, 0.8}},
}

// Parse maps a mood name or emotion label to a Mood.
func Parse(s string) (Mood, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if known[Mood(name)] {
		return Mood(name), nil
	}
	if m, ok := aliases[name]; ok {
		return m, nil
	}
	if hint, ok := closest(name); ok {
		return "", errors.Wrapf(ErrUnknownMood, "%q, did you mean %q", s, hint)
	}
	return "", errors.Wrapf(ErrUnknownMood, "%q", s)
}

// closest returns the mood name or label nearest to name, if it is a likely typo.
func closest(name string) (string, bool) {
	const maxDistance = 2

	best, bestDistance := "", maxDistance+1
	consider := func(candidate string) {
		d := levenshtein.Distance(name, candidate)
		if d < bestDistance || (d == bestDistance && candidate < best) {
			best, bestDistance = candidate, d
		}
	}
	for m := range known {
		consider(string(m))
	}
	for label := range aliases {
		consider(label)
	}
	return best, best != "" && len(name) > maxDistance
}

// All returns every mood sorted by name.
func All() []Mood {
	moods := make([]Mood, 0, len(known))
	for m := range known {
		moods = append(moods, m)
	}
	sort.Slice(moods, func(i, j int) bool { return moods[i] < moods[j] })
	return moods
}

// Features returns the audio feature ranges of the mood.
// Moods without their own ranges fall back to Happy.
func (m Mood) Features() Features {
	if f, ok := features[m]; ok {
		return f
	}
	return features[Happy]
}

// Matches reports whether a track with the given valence and energy fits the mood.
func (m Mood) Matches(valence, energy float64) bool {
	f := m.Features()
	return f.Valence.Contains(valence) && f.Energy.Contains(energy)
}

// String returns the mood name.
func (m Mood) String() string {
	return string(m)
}

// Labels returns the emotion labels that map onto the mood, sorted.
func (m Mood) Labels() []string {
	var labels []string
	for label, target := range aliases {
		if target == m {
			labels = append(labels, label)
		}
	}
	sort.Strings(labels)
	return labels
}
