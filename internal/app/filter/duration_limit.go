package filter

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/moodbox/internal/domain/track"
)

const (
	codeTooShort = "too_short"
	codeTooLong  = "too_long"
)

// DurationLimitConfig represents the configuration for DurationLimitFilter.
// MaxMinutes 0 disables the upper bound.
type DurationLimitConfig struct {
	MinMinutes float64 `yaml:"min_minutes" mapstructure:"min_minutes" default:"1" validate:"gte=1"`
	MaxMinutes float64 `yaml:"max_minutes" mapstructure:"max_minutes" validate:"gte=0"`
}

// DurationLimitFilter keeps jingles and hour-long mixes out of the queue.
// Tracks whose duration is unknown pass.
type DurationLimitFilter struct {
	min time.Duration
	max time.Duration
}

// NewDurationLimitFilter creates an unconfigured filter that accepts everything.
func NewDurationLimitFilter() *DurationLimitFilter {
	return &DurationLimitFilter{}
}

func (f *DurationLimitFilter) Name() string {
	return "duration_limit_filter"
}

func (f *DurationLimitFilter) Description() string {
	return "Rejects tracks shorter than min_minutes or longer than max_minutes"
}

func (f *DurationLimitFilter) ReturnCodes() []string {
	return []string{codeTooShort, codeTooLong}
}

func (f *DurationLimitFilter) ValidateConfig(settings map[string]any) error {
	var config DurationLimitConfig
	if err := decodeSettings(settings, &config); err != nil {
		return err
	}
	if config.MaxMinutes > 0 && config.MinMinutes > config.MaxMinutes {
		return errors.Newf("min_minutes (%v) cannot be greater than max_minutes (%v)", config.MinMinutes, config.MaxMinutes)
	}

	f.min = minutes(config.MinMinutes)
	f.max = minutes(config.MaxMinutes)
	zlog.Info().Msgf("duration limit filter: min=%v max=%v", f.min, f.max)
	return nil
}

func (f *DurationLimitFilter) Check(_ context.Context, t track.Track, _ []track.Track) Result {
	if t.Duration <= 0 {
		return Accept()
	}
	if t.Duration < f.min {
		return Reject(codeTooShort)
	}
	if f.max > 0 && t.Duration > f.max {
		return Reject(codeTooLong)
	}
	return Accept()
}

func minutes(m float64) time.Duration {
	return time.Duration(m * float64(time.Minute))
}

func init() {
	Register("duration_limit_filter", func() Filter {
		return NewDurationLimitFilter()
	})
}
