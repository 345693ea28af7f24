package playback

import (
	"github.com/cockroachdb/errors"

	"github.com/osa030/moodbox/internal/domain/queue"
)

// Errors returned by controller commands.
var (
	ErrInvalidTrack    = errors.New("invalid track")
	ErrEmptyQueue      = queue.ErrEmpty
	ErrIndexOutOfRange = queue.ErrIndexOutOfRange
)

// Causes carried by EventError.
var (
	ErrPlaybackControl      = errors.New("error controlling playback")
	ErrPlaybackStartFailure = errors.New("failed to play song")
	ErrFatalCapability      = errors.New("player reported an unrecoverable error")
)
