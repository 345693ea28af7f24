package player

import (
	"bufio"
	"encoding/json"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
)

const (
	ipcReadDeadline = 2 * time.Second
	ipcMaxRetries   = 3
	ipcRetryDelay   = 100 * time.Millisecond
)

// errPropertyUnavailable is reported by mpv for properties of an unloaded file.
var errPropertyUnavailable = errors.New("property unavailable")

type ipcRequest struct {
	Command   []any `json:"command"`
	RequestID int64 `json:"request_id"`
}

// ipcMessage is either a command reply or an asynchronous event.
type ipcMessage struct {
	RequestID *int64          `json:"request_id,omitempty"`
	Error     string          `json:"error,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Event     string          `json:"event,omitempty"`
	Name      string          `json:"name,omitempty"`
	Reason    string          `json:"reason,omitempty"`
	FileError string          `json:"file_error,omitempty"`
}

var requestSeq atomic.Int64

// sendCommand runs one command on a fresh connection, retrying transient failures.
func (m *MPV) sendCommand(command ...any) (json.RawMessage, error) {
	m.cmdMu.Lock()
	defer m.cmdMu.Unlock()

	var lastErr error
	for attempt := 0; attempt < ipcMaxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(ipcRetryDelay)
		}
		data, err := doSendCommand(m.socketPath, command)
		if err == nil {
			return data, nil
		}
		// mpv answered; retrying will not change the answer.
		if errors.Is(err, errPropertyUnavailable) || errors.Is(err, errCommandRejected) {
			return nil, err
		}
		lastErr = err
	}
	return nil, errors.Wrapf(lastErr, "mpv command %v failed after %d attempts", command[0], ipcMaxRetries)
}

var errCommandRejected = errors.New("mpv rejected command")

func doSendCommand(socketPath string, command []any) (json.RawMessage, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, errors.Wrap(err, "connect")
	}
	defer conn.Close()

	id := requestSeq.Add(1)
	if err := writeRequest(conn, command, id); err != nil {
		return nil, err
	}

	if err := conn.SetReadDeadline(time.Now().Add(ipcReadDeadline)); err != nil {
		return nil, errors.Wrap(err, "set deadline")
	}

	reader := bufio.NewReader(conn)
	for {
		msg, err := readMessage(reader)
		if err != nil {
			return nil, err
		}
		// Events are broadcast to every client; skip them here.
		if msg.RequestID == nil || *msg.RequestID != id {
			continue
		}
		switch msg.Error {
		case "", "success":
			return msg.Data, nil
		case "property unavailable":
			return nil, errPropertyUnavailable
		default:
			return nil, errors.Wrapf(errCommandRejected, "%s", msg.Error)
		}
	}
}

func writeRequest(conn net.Conn, command []any, id int64) error {
	payload, err := json.Marshal(ipcRequest{Command: command, RequestID: id})
	if err != nil {
		return errors.Wrap(err, "marshal")
	}
	if _, err := conn.Write(append(payload, '\n')); err != nil {
		return errors.Wrap(err, "write")
	}
	return nil
}

// readMessage reads one newline-delimited JSON message.
func readMessage(r *bufio.Reader) (ipcMessage, error) {
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return ipcMessage{}, errors.Wrap(err, "read")
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var msg ipcMessage
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			return ipcMessage{}, errors.Wrap(err, "unmarshal")
		}
		return msg, nil
	}
}

func decodeBool(data json.RawMessage) (bool, error) {
	var v bool
	if err := json.Unmarshal(data, &v); err != nil {
		return false, errors.Wrap(err, "decode bool")
	}
	return v, nil
}

func decodeFloat(data json.RawMessage) (float64, error) {
	if len(data) == 0 || string(data) == "null" {
		return 0, nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return 0, errors.Wrap(err, "decode number")
	}
	return v, nil
}
