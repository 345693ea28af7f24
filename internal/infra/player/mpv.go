package player

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"
)

const (
	socketWaitRetries = 20
	socketWaitDelay   = 150 * time.Millisecond
	quitTimeout       = 3 * time.Second

	youtubeWatchURL = "https://www.youtube.com/watch?v="
)

// MPVConfig configures the mpv process.
type MPVConfig struct {
	Path       string   // mpv executable
	SocketPath string   // IPC socket; generated under the temp dir when empty
	ExtraArgs  []string // appended to the default arguments
}

// MPV implements Capability over mpv's JSON IPC protocol.
// Commands use one short-lived connection each; events arrive on a dedicated
// connection read by a single goroutine.
type MPV struct {
	cfg        MPVConfig
	socketPath string

	cmd    *exec.Cmd
	exited chan struct{}

	cmdMu sync.Mutex // serializes commands

	eventConn net.Conn
	done      chan struct{}
	closing   bool

	stateMu sync.Mutex
	loaded  bool
	paused  bool
	ended   bool
}

// NewMPV creates an mpv capability. The process is launched by Start.
func NewMPV(cfg MPVConfig) *MPV {
	socketPath := cfg.SocketPath
	if socketPath == "" {
		socketPath = filepath.Join(os.TempDir(), fmt.Sprintf("moodbox-%s.sock", uuid.NewString()[:8]))
	}
	return &MPV{
		cfg:        cfg,
		socketPath: socketPath,
		done:       make(chan struct{}),
	}
}

// Start launches mpv, subscribes to its events and reports readiness to h.
func (m *MPV) Start(ctx context.Context, h Handler) error {
	path := m.cfg.Path
	if path == "" {
		path = "mpv"
	}
	args := []string{
		"--idle=yes",
		"--no-video",
		"--no-terminal",
		"--really-quiet",
		"--input-ipc-server=" + m.socketPath,
	}
	args = append(args, m.cfg.ExtraArgs...)

	m.cmd = exec.CommandContext(ctx, path, args...)
	if err := m.cmd.Start(); err != nil {
		return errors.Wrapf(err, "failed to start mpv: path=%s", path)
	}

	m.exited = make(chan struct{})
	go func() {
		_ = m.cmd.Wait()
		close(m.exited)
	}()

	if err := m.waitForSocket(ctx); err != nil {
		_ = m.cmd.Process.Kill()
		return errors.Wrap(err, "mpv socket not ready")
	}
	zlog.Info().Msgf("mpv started: pid=%d, socket=%s", m.cmd.Process.Pid, m.socketPath)

	return m.attach(h)
}

// attach opens the event connection and starts dispatching to h.
func (m *MPV) attach(h Handler) error {
	conn, err := net.Dial("unix", m.socketPath)
	if err != nil {
		return errors.Wrap(err, "failed to open event connection")
	}
	if err := writeRequest(conn, []any{"observe_property", 1, "pause"}, requestSeq.Add(1)); err != nil {
		conn.Close()
		return errors.Wrap(err, "failed to observe pause")
	}
	m.eventConn = conn

	go m.readLoop(conn, h)

	h.HandleReady()
	return nil
}

func (m *MPV) waitForSocket(ctx context.Context) error {
	for i := 0; i < socketWaitRetries; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.exited:
			return errors.New("mpv exited before socket was ready")
		case <-time.After(socketWaitDelay):
		}

		conn, err := net.Dial("unix", m.socketPath)
		if err == nil {
			conn.Close()
			return nil
		}
	}
	return errors.Newf("socket %s not ready after %d attempts", m.socketPath, socketWaitRetries)
}

// Done is closed when the event connection ends (mpv exited or Close was called).
func (m *MPV) Done() <-chan struct{} {
	return m.done
}

// Close quits mpv and removes the socket.
func (m *MPV) Close() error {
	m.stateMu.Lock()
	m.closing = true
	m.stateMu.Unlock()

	if m.cmd != nil {
		_, _ = m.sendCommand("quit")
	}
	if m.eventConn != nil {
		m.eventConn.Close()
	}
	if m.cmd != nil {
		select {
		case <-m.exited:
		case <-time.After(quitTimeout):
			zlog.Warn().Msg("mpv did not quit in time, killing")
			_ = m.cmd.Process.Kill()
		}
		_ = os.Remove(m.socketPath)
	}
	return nil
}

func (m *MPV) readLoop(conn net.Conn, h Handler) {
	defer close(m.done)

	reader := bufio.NewReader(conn)
	for {
		msg, err := readMessage(reader)
		if err != nil {
			m.stateMu.Lock()
			closing := m.closing
			m.stateMu.Unlock()
			if !closing {
				zlog.Warn().Err(err).Msg("mpv event connection closed")
			}
			return
		}
		if msg.Event != "" {
			m.dispatch(msg, h)
		}
	}
}

// dispatch translates an mpv event into Handler calls.
func (m *MPV) dispatch(msg ipcMessage, h Handler) {
	zlog.Debug().Msgf("mpv event: event=%s, name=%s, reason=%s", msg.Event, msg.Name, msg.Reason)

	switch msg.Event {
	case "start-file":
		m.stateMu.Lock()
		m.loaded = false
		m.ended = false
		m.stateMu.Unlock()
		h.HandleStateChange(StateUnstarted)

	case "file-loaded":
		m.stateMu.Lock()
		m.loaded = true
		m.stateMu.Unlock()

	case "playback-restart":
		m.stateMu.Lock()
		paused := m.paused
		m.stateMu.Unlock()
		if !paused {
			h.HandleStateChange(StatePlaying)
		}

	case "property-change":
		if msg.Name != "pause" {
			return
		}
		paused, err := decodeBool(msg.Data)
		if err != nil {
			zlog.Warn().Err(err).Msg("mpv: invalid pause payload")
			return
		}
		m.stateMu.Lock()
		m.paused = paused
		loaded := m.loaded
		m.stateMu.Unlock()
		if !loaded {
			return
		}
		if paused {
			h.HandleStateChange(StatePaused)
		} else {
			h.HandleStateChange(StatePlaying)
		}

	case "end-file":
		switch msg.Reason {
		case "eof":
			m.stateMu.Lock()
			m.loaded = false
			m.ended = true
			m.stateMu.Unlock()
			h.HandleStateChange(StateEnded)
		case "error":
			m.stateMu.Lock()
			m.loaded = false
			m.stateMu.Unlock()
			h.HandleError(classifyFileError(msg.FileError))
		}
	}
}

// classifyFileError maps an mpv file_error to an ErrorCode.
func classifyFileError(fileError string) ErrorCode {
	switch strings.ToLower(fileError) {
	case "loading failed", "unrecognized file format", "no audio or video data played":
		return ErrorNotFound
	default:
		return ErrorNotPlayable
	}
}

// mediaTarget turns a track id into something mpv can open.
// Bare ids are treated as YouTube video ids.
func mediaTarget(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", errors.New("empty media id")
	}
	if strings.ContainsAny(id, "\x00\n\r") {
		return "", errors.New("invalid control characters in media id")
	}
	if strings.HasPrefix(id, "-") {
		return "", errors.Newf("media id must not start with '-': id=%s", id)
	}
	if strings.Contains(id, "://") {
		return id, nil
	}
	return youtubeWatchURL + id, nil
}

// Load replaces the current file.
func (m *MPV) Load(id string) error {
	target, err := mediaTarget(id)
	if err != nil {
		return err
	}
	m.stateMu.Lock()
	m.loaded = false
	m.ended = false
	m.stateMu.Unlock()

	_, err = m.sendCommand("loadfile", target, "replace")
	return err
}

func (m *MPV) Play() error {
	_, err := m.sendCommand("set_property", "pause", false)
	return err
}

func (m *MPV) Pause() error {
	_, err := m.sendCommand("set_property", "pause", true)
	return err
}

func (m *MPV) SeekTo(seconds float64) error {
	_, err := m.sendCommand("seek", seconds, "absolute")
	return err
}

func (m *MPV) SetVolume(volume int) error {
	_, err := m.sendCommand("set_property", "volume", volume)
	return err
}

// State derives a reported state from mpv properties.
func (m *MPV) State() (State, error) {
	idle, err := m.boolProperty("idle-active")
	if err != nil {
		return StateUnknown, err
	}
	m.stateMu.Lock()
	loaded, ended := m.loaded, m.ended
	m.stateMu.Unlock()

	if idle {
		if ended {
			return StateEnded, nil
		}
		return StateUnstarted, nil
	}
	if !loaded {
		return StateUnstarted, nil
	}

	paused, err := m.boolProperty("pause")
	if err != nil {
		return StateUnknown, err
	}
	if paused {
		return StatePaused, nil
	}

	buffering, err := m.boolProperty("paused-for-cache")
	if err != nil && !errors.Is(err, errPropertyUnavailable) {
		return StateUnknown, err
	}
	if buffering {
		return StateBuffering, nil
	}
	return StatePlaying, nil
}

func (m *MPV) CurrentTime() (float64, error) {
	return m.floatProperty("time-pos")
}

func (m *MPV) Duration() (float64, error) {
	return m.floatProperty("duration")
}

func (m *MPV) boolProperty(name string) (bool, error) {
	data, err := m.sendCommand("get_property", name)
	if err != nil {
		return false, err
	}
	return decodeBool(data)
}

// floatProperty returns 0 for properties of a file that is not loaded.
func (m *MPV) floatProperty(name string) (float64, error) {
	data, err := m.sendCommand("get_property", name)
	if errors.Is(err, errPropertyUnavailable) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return decodeFloat(data)
}
