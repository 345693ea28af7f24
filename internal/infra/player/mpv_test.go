package player

import (
	"bufio"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMPV answers IPC commands from a property table and pushes events on
// the connection that subscribed to property changes.
type fakeMPV struct {
	t        *testing.T
	listener net.Listener

	mu         sync.Mutex
	props      map[string]any
	commands   [][]any
	eventConn  net.Conn
	subscribed chan struct{}
}

func newFakeMPV(t *testing.T) (*fakeMPV, string) {
	dir, err := os.MkdirTemp("", "mpv")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	socket := filepath.Join(dir, "s.sock")
	l, err := net.Listen("unix", socket)
	require.NoError(t, err)

	f := &fakeMPV{
		t:          t,
		listener:   l,
		props:      map[string]any{},
		subscribed: make(chan struct{}),
	}
	t.Cleanup(func() { l.Close() })
	go f.serve()
	return f, socket
}

func (f *fakeMPV) serve() {
	for {
		conn, err := f.listener.Accept()
		if err != nil {
			return
		}
		go f.handle(conn)
	}
}

func (f *fakeMPV) handle(conn net.Conn) {
	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			return
		}
		var req ipcRequest
		if err := json.Unmarshal(line, &req); err != nil {
			return
		}

		f.mu.Lock()
		f.commands = append(f.commands, req.Command)
		reply := map[string]any{"request_id": req.RequestID, "error": "success"}
		switch req.Command[0] {
		case "get_property":
			v, ok := f.props[req.Command[1].(string)]
			if !ok {
				reply["error"] = "property unavailable"
			} else {
				reply["data"] = v
			}
		case "observe_property":
			f.eventConn = conn
			close(f.subscribed)
		}
		f.mu.Unlock()

		// A broadcast event before the reply must be skipped by the client.
		_, _ = conn.Write([]byte(`{"event":"idle"}` + "\n"))
		payload, _ := json.Marshal(reply)
		_, _ = conn.Write(append(payload, '\n'))
	}
}

func (f *fakeMPV) set(name string, v any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.props[name] = v
}

func (f *fakeMPV) emit(event string) {
	f.mu.Lock()
	conn := f.eventConn
	f.mu.Unlock()
	_, err := conn.Write([]byte(event + "\n"))
	require.NoError(f.t, err)
}

func (f *fakeMPV) lastCommand() []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.commands[len(f.commands)-1]
}

type recordingHandler struct {
	mu     sync.Mutex
	ready  int
	states []State
	errs   []ErrorCode
}

func (h *recordingHandler) HandleReady() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ready++
}

func (h *recordingHandler) HandleStateChange(s State) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.states = append(h.states, s)
}

func (h *recordingHandler) HandleError(code ErrorCode) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errs = append(h.errs, code)
}

func (h *recordingHandler) snapshot() ([]State, []ErrorCode) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]State(nil), h.states...), append([]ErrorCode(nil), h.errs...)
}

func attachedMPV(t *testing.T) (*MPV, *fakeMPV, *recordingHandler) {
	fake, socket := newFakeMPV(t)
	m := NewMPV(MPVConfig{SocketPath: socket})
	h := &recordingHandler{}

	require.NoError(t, m.attach(h))
	t.Cleanup(func() { m.Close() })

	select {
	case <-fake.subscribed:
	case <-time.After(2 * time.Second):
		t.Fatal("event connection never subscribed")
	}
	return m, fake, h
}

func TestMediaTarget(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		expected string
		wantErr  bool
	}{
		{name: "bare youtube id", id: "dQw4w9WgXcQ", expected: "https://www.youtube.com/watch?v=dQw4w9WgXcQ"},
		{name: "url", id: "https://example.com/a.mp3", expected: "https://example.com/a.mp3"},
		{name: "ytdl search", id: "ytdl://ytsearch1:song artist", expected: "ytdl://ytsearch1:song artist"},
		{name: "empty", id: "  ", wantErr: true},
		{name: "flag injection", id: "--script=x", wantErr: true},
		{name: "control characters", id: "abc\ndef", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := mediaTarget(tt.id)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestClassifyFileError(t *testing.T) {
	assert.Equal(t, ErrorNotFound, classifyFileError("loading failed"))
	assert.Equal(t, ErrorNotFound, classifyFileError("Unrecognized file format"))
	assert.Equal(t, ErrorNotPlayable, classifyFileError("audio output initialization failed"))
}

func TestMPV_AttachReportsReady(t *testing.T) {
	_, _, h := attachedMPV(t)

	h.mu.Lock()
	defer h.mu.Unlock()
	assert.Equal(t, 1, h.ready)
}

func TestMPV_Commands(t *testing.T) {
	m, fake, _ := attachedMPV(t)

	require.NoError(t, m.Load("abc"))
	assert.Equal(t, []any{"loadfile", "https://www.youtube.com/watch?v=abc", "replace"}, fake.lastCommand())

	require.NoError(t, m.Play())
	assert.Equal(t, []any{"set_property", "pause", false}, fake.lastCommand())

	require.NoError(t, m.Pause())
	assert.Equal(t, []any{"set_property", "pause", true}, fake.lastCommand())

	require.NoError(t, m.SeekTo(30))
	assert.Equal(t, []any{"seek", float64(30), "absolute"}, fake.lastCommand())

	require.NoError(t, m.SetVolume(70))
	assert.Equal(t, []any{"set_property", "volume", float64(70)}, fake.lastCommand())
}

func TestMPV_TimeProperties(t *testing.T) {
	m, fake, _ := attachedMPV(t)

	cur, err := m.CurrentTime()
	require.NoError(t, err)
	assert.Zero(t, cur, "unavailable property reads as zero")

	fake.set("time-pos", 12.5)
	fake.set("duration", 200.0)

	cur, err = m.CurrentTime()
	require.NoError(t, err)
	assert.Equal(t, 12.5, cur)

	dur, err := m.Duration()
	require.NoError(t, err)
	assert.Equal(t, 200.0, dur)
}

func TestMPV_State(t *testing.T) {
	m, fake, _ := attachedMPV(t)

	fake.set("idle-active", true)
	s, err := m.State()
	require.NoError(t, err)
	assert.Equal(t, StateUnstarted, s)

	fake.set("idle-active", false)
	fake.set("pause", false)
	fake.set("paused-for-cache", false)
	fake.emit(`{"event":"file-loaded"}`)
	require.Eventually(t, func() bool {
		s, err := m.State()
		return err == nil && s == StatePlaying
	}, 2*time.Second, 10*time.Millisecond)

	fake.set("pause", true)
	s, err = m.State()
	require.NoError(t, err)
	assert.Equal(t, StatePaused, s)

	fake.set("pause", false)
	fake.set("paused-for-cache", true)
	s, err = m.State()
	require.NoError(t, err)
	assert.Equal(t, StateBuffering, s)

	fake.set("idle-active", true)
	fake.emit(`{"event":"end-file","reason":"eof"}`)
	require.Eventually(t, func() bool {
		s, err := m.State()
		return err == nil && s == StateEnded
	}, 2*time.Second, 10*time.Millisecond)
}

func TestMPV_EventDispatch(t *testing.T) {
	_, fake, h := attachedMPV(t)

	fake.emit(`{"event":"start-file"}`)
	fake.emit(`{"event":"property-change","name":"pause","data":false}`) // ignored before file-loaded
	fake.emit(`{"event":"file-loaded"}`)
	fake.emit(`{"event":"playback-restart"}`)
	fake.emit(`{"event":"property-change","name":"pause","data":true}`)
	fake.emit(`{"event":"property-change","name":"pause","data":false}`)
	fake.emit(`{"event":"end-file","reason":"eof"}`)
	fake.emit(`{"event":"end-file","reason":"error","file_error":"loading failed"}`)
	fake.emit(`{"event":"end-file","reason":"stop"}`)

	expected := []State{StateUnstarted, StatePlaying, StatePaused, StatePlaying, StateEnded}
	require.Eventually(t, func() bool {
		_, errs := h.snapshot()
		return len(errs) == 1
	}, 2*time.Second, 10*time.Millisecond)

	states, errs := h.snapshot()
	assert.Equal(t, expected, states)
	assert.Equal(t, []ErrorCode{ErrorNotFound}, errs)
}

func TestMPV_PlaybackRestartWhilePausedIsIgnored(t *testing.T) {
	_, fake, h := attachedMPV(t)

	fake.emit(`{"event":"file-loaded"}`)
	fake.emit(`{"event":"property-change","name":"pause","data":true}`)
	fake.emit(`{"event":"playback-restart"}`)
	fake.emit(`{"event":"end-file","reason":"error","file_error":"x"}`)

	require.Eventually(t, func() bool {
		_, errs := h.snapshot()
		return len(errs) == 1
	}, 2*time.Second, 10*time.Millisecond)

	states, errs := h.snapshot()
	assert.Equal(t, []State{StatePaused}, states)
	assert.Equal(t, []ErrorCode{ErrorNotPlayable}, errs)
}

func TestMPV_DoneAfterClose(t *testing.T) {
	m, _, _ := attachedMPV(t)
	require.NoError(t, m.Close())

	select {
	case <-m.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("event loop did not stop")
	}
}
