package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/osa030/moodbox/internal/app/session"
	"github.com/osa030/moodbox/internal/domain/mood"
	"github.com/osa030/moodbox/internal/domain/track"
)

var errUnknownCommand = errors.New("unknown command")

type commandKind int

const (
	cmdNone commandKind = iota
	cmdNext
	cmdPrevious
	cmdToggle
	cmdSeek
	cmdVolume
	cmdJump
	cmdFind
	cmdMood
	cmdList
	cmdHelp
	cmdQuit
)

// command is one parsed stdin line.
type command struct {
	kind     commandKind
	fraction float64
	volume   int
	index    int // zero-based
	query    string
	mood     mood.Mood
}

const helpText = `commands:
  n            next track
  p            previous track
  t | <space>  toggle play/pause
  s <0-1>      seek to a fraction of the track
  v <0-100>    set volume
  j <number>   jump to a track of the list
  j <name>     jump to the track best matching a title or artist
  m <mood>     build a new queue for a mood
  l            list the queue
  h            show this help
  q            quit`

// parseCommand parses a stdin line. A line made only of spaces toggles playback.
func parseCommand(line string) (command, error) {
	line = strings.TrimRight(line, "\r\n")
	if line != "" && strings.TrimSpace(line) == "" {
		return command{kind: cmdToggle}, nil
	}

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return command{kind: cmdNone}, nil
	}
	name, args := strings.ToLower(fields[0]), fields[1:]

	switch name {
	case "n", "next":
		return command{kind: cmdNext}, nil
	case "p", "prev", "previous":
		return command{kind: cmdPrevious}, nil
	case "t", "toggle", "pause", "play":
		return command{kind: cmdToggle}, nil
	case "l", "list":
		return command{kind: cmdList}, nil
	case "h", "help", "?":
		return command{kind: cmdHelp}, nil
	case "q", "quit", "exit":
		return command{kind: cmdQuit}, nil

	case "s", "seek":
		arg, err := single(name, args)
		if err != nil {
			return command{}, err
		}
		f, err := strconv.ParseFloat(arg, 64)
		if err != nil || f < 0 || f > 1 {
			return command{}, errors.Newf("seek expects a fraction between 0 and 1, got %q", arg)
		}
		return command{kind: cmdSeek, fraction: f}, nil

	case "v", "vol", "volume":
		arg, err := single(name, args)
		if err != nil {
			return command{}, err
		}
		v, err := strconv.Atoi(arg)
		if err != nil || v < 0 || v > 100 {
			return command{}, errors.Newf("volume expects 0-100, got %q", arg)
		}
		return command{kind: cmdVolume, volume: v}, nil

	case "j", "jump":
		if len(args) == 0 {
			return command{}, errors.Newf("%s expects a track number or name", name)
		}
		if n, err := strconv.Atoi(args[0]); err == nil && len(args) == 1 {
			if n < 1 {
				return command{}, errors.Newf("jump expects a track number from 1, got %q", args[0])
			}
			return command{kind: cmdJump, index: n - 1}, nil
		}
		return command{kind: cmdFind, query: strings.Join(args, " ")}, nil

	case "m", "mood":
		arg, err := single(name, args)
		if err != nil {
			return command{}, err
		}
		m, err := mood.Parse(arg)
		if err != nil {
			return command{}, err
		}
		return command{kind: cmdMood, mood: m}, nil
	}

	return command{}, errors.Wrapf(errUnknownCommand, "%q (h for help)", fields[0])
}

func single(name string, args []string) (string, error) {
	if len(args) != 1 {
		return "", errors.Newf("%s expects one argument", name)
	}
	return args[0], nil
}

// jukebox is the part of the session driven by stdin commands.
type jukebox interface {
	Play(ctx context.Context, m mood.Mood) error
	Skip() bool
	Back() bool
	Jump(index int) error
	TogglePause()
	Seek(fraction float64)
	SetVolume(volume int)
	Status() session.Status
}

// execute runs a command against the session and reports to out.
// Returns true when the user asked to quit.
func execute(ctx context.Context, p jukebox, cmd command, out io.Writer) bool {
	switch cmd.kind {
	case cmdNext:
		if !p.Skip() {
			fmt.Fprintln(out, "already at the last track")
		}
	case cmdPrevious:
		if !p.Back() {
			fmt.Fprintln(out, "already at the first track")
		}
	case cmdToggle:
		p.TogglePause()
	case cmdSeek:
		p.Seek(cmd.fraction)
	case cmdVolume:
		p.SetVolume(cmd.volume)
		fmt.Fprintf(out, "volume %d\n", cmd.volume)
	case cmdJump:
		if err := p.Jump(cmd.index); err != nil {
			fmt.Fprintf(out, "cannot jump to %d: %v\n", cmd.index+1, err)
		}
	case cmdFind:
		index, ok := findTrack(p.Status().Tracks, cmd.query)
		if !ok {
			fmt.Fprintf(out, "no track matches %q\n", cmd.query)
			break
		}
		if err := p.Jump(index); err != nil {
			fmt.Fprintf(out, "cannot jump to %d: %v\n", index+1, err)
		}
	case cmdMood:
		fmt.Fprintf(out, "building a %s queue...\n", cmd.mood)
		if err := p.Play(ctx, cmd.mood); err != nil {
			fmt.Fprintf(out, "could not build queue: %v\n", err)
		}
	case cmdList:
		printQueue(out, p.Status())
	case cmdHelp:
		fmt.Fprintln(out, helpText)
	case cmdQuit:
		return true
	}
	return false
}

// findTrack returns the index of the track whose label best fuzzy-matches query.
func findTrack(tracks []track.Track, query string) (int, bool) {
	labels := make([]string, len(tracks))
	for i, t := range tracks {
		labels[i] = t.Label()
	}
	ranks := fuzzy.RankFindNormalizedFold(query, labels)
	if len(ranks) == 0 {
		return 0, false
	}
	sort.Stable(ranks)
	return ranks[0].OriginalIndex, true
}

func printQueue(out io.Writer, st session.Status) {
	if len(st.Tracks) == 0 {
		fmt.Fprintln(out, "queue is empty")
		return
	}
	fmt.Fprintf(out, "%s queue (%s, volume %d):\n", st.Mood, st.Playback, st.Volume)
	for i, t := range st.Tracks {
		marker := " "
		if i == st.CurrentIndex {
			marker = ">"
		}
		fmt.Fprintf(out, "%s %2d. %s", marker, i+1, t.Label())
		if t.Source != "" {
			fmt.Fprintf(out, " [%s]", t.Source)
		}
		fmt.Fprintln(out)
	}
}
