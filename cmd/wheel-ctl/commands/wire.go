package commands

import (
	"encoding/json"
	"fmt"
	"net"
	"time"
)

// Event payloads (duplicated from the daemon for a standalone binary).

type point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type pointerEvent struct {
	Point  point `json:"point"`
	Center point `json:"center"`
}

type setShift struct {
	Shift  int    `json:"shift"`
	Origin string `json:"origin,omitempty"`
}

type stepShift struct {
	Delta int `json:"delta"`
}

type setMode struct {
	Mode string `json:"mode"`
}

type setInput struct {
	Text string `json:"text"`
}

// eventEnvelope wraps an event for the wire.
type eventEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ipcResponse is the daemon's answer to each line.
type ipcResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// snapshot is the subset of GET /state that wheel-ctl prints.
type snapshot struct {
	Phase      string  `json:"phase"`
	Shift      int     `json:"shift"`
	ShiftCount int     `json:"shift_count"`
	Rotation   float64 `json:"rotation"`
	Mode       string  `json:"mode"`
	Input      string  `json:"input"`
	Output     string  `json:"output"`

	NoticeTitle   string `json:"notice_title,omitempty"`
	NoticeMessage string `json:"notice_message,omitempty"`
}

// envelope builds an eventEnvelope; data may be nil for payload-less events.
func envelope(typ string, data any) (eventEnvelope, error) {
	env := eventEnvelope{Type: typ}
	if data == nil {
		return env, nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return eventEnvelope{}, fmt.Errorf("marshal %s: %w", typ, err)
	}
	env.Data = b
	return env, nil
}

// send writes every envelope over one connection, in order, and stops at the
// first error response.
func send(path string, envs ...eventEnvelope) error {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return fmt.Errorf("connect to %s: %w (is caesarwheel running?)", path, err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

	enc := json.NewEncoder(conn)
	dec := json.NewDecoder(conn)
	for _, env := range envs {
		if err := enc.Encode(env); err != nil {
			return fmt.Errorf("send %s: %w", env.Type, err)
		}
		var resp ipcResponse
		if err := dec.Decode(&resp); err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		if resp.Status != "ok" {
			return fmt.Errorf("daemon rejected %s: %s", env.Type, resp.Error)
		}
	}
	return nil
}

// sendOne builds and sends a single event.
func sendOne(typ string, data any) error {
	env, err := envelope(typ, data)
	if err != nil {
		return err
	}
	return send(socketPath, env)
}
