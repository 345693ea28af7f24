// Package player defines the narrow control surface of an external media player
// and the adapters that implement it.
package player

import (
	"fmt"

	zlog "github.com/rs/zerolog/log"
)

// Capability is the command surface of a player.
// Implementations must not call back into a Handler from within these methods.
type Capability interface {
	Load(id string) error
	Play() error
	Pause() error
	SeekTo(seconds float64) error
	SetVolume(volume int) error
	State() (State, error)
	CurrentTime() (float64, error)
	Duration() (float64, error)
}

// Handler receives asynchronous player events.
type Handler interface {
	HandleReady()
	HandleStateChange(s State)
	HandleError(code ErrorCode)
}

// State is a reported player state.
type State int

// Raw player state codes.
const (
	StateUnknown   State = -2
	StateUnstarted State = -1
	StateEnded     State = 0
	StatePlaying   State = 1
	StatePaused    State = 2
	StateBuffering State = 3
	StateCued      State = 5
)

// ParseState validates a raw state code.
// Unrecognised codes are logged and mapped to StateUnknown.
func ParseState(code int) State {
	switch s := State(code); s {
	case StateUnstarted, StateEnded, StatePlaying, StatePaused, StateBuffering, StateCued:
		return s
	default:
		zlog.Warn().Msgf("player: unknown state code: code=%d", code)
		return StateUnknown
	}
}

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateUnstarted:
		return "unstarted"
	case StateEnded:
		return "ended"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateBuffering:
		return "buffering"
	case StateCued:
		return "cued"
	default:
		return "unknown"
	}
}

// ErrorCode is a reported player error.
type ErrorCode int

// Raw player error codes.
const (
	ErrorGeneric         ErrorCode = 0
	ErrorInvalidID       ErrorCode = 2
	ErrorNotPlayable     ErrorCode = 5
	ErrorNotFound        ErrorCode = 100
	ErrorEmbedNotAllowed ErrorCode = 101
	ErrorEmbedBlocked    ErrorCode = 150
)

// ParseErrorCode validates a raw error code.
// Unrecognised codes are logged and mapped to ErrorGeneric.
func ParseErrorCode(code int) ErrorCode {
	switch c := ErrorCode(code); c {
	case ErrorInvalidID, ErrorNotPlayable, ErrorNotFound, ErrorEmbedNotAllowed, ErrorEmbedBlocked:
		return c
	default:
		zlog.Warn().Msgf("player: unknown error code: code=%d", code)
		return ErrorGeneric
	}
}

// Fatal reports whether the current track can never play after this error.
func (c ErrorCode) Fatal() bool {
	switch c {
	case ErrorInvalidID, ErrorNotPlayable, ErrorNotFound, ErrorEmbedNotAllowed, ErrorEmbedBlocked:
		return true
	default:
		return false
	}
}

// Message returns a user facing description of the error.
func (c ErrorCode) Message() string {
	switch c {
	case ErrorInvalidID:
		return "Error playing song. (Invalid video ID)"
	case ErrorNotPlayable:
		return "Error playing song. (Video not playable)"
	case ErrorNotFound:
		return "Error playing song. (Video not found)"
	case ErrorEmbedNotAllowed, ErrorEmbedBlocked:
		return "Error playing song. (Embed not allowed)"
	default:
		return "Error playing song."
	}
}

// String returns the string representation of the error code.
func (c ErrorCode) String() string {
	return fmt.Sprintf("player error %d", int(c))
}
