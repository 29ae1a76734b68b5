package commands

import (
	"bufio"
	"bytes"
	"encoding/json"
	"math"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// run executes the root command with args and returns stdout.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestEncryptDecrypt_Offline(t *testing.T) {
	cases := []struct {
		args []string
		want string
	}{
		{[]string{"encrypt", "Hello,", "World!"}, "Khoor, Zruog!\n"},
		{[]string{"decrypt", "Khoor,", "Zruog!"}, "Hello, World!\n"},
		{[]string{"encrypt", "--shift", "13", "abc"}, "nop\n"},
		{[]string{"encrypt", "-s", "29", "xyz"}, "abc\n"},
		{[]string{"decrypt", "-s", "0", "Ünï"}, "Ünï\n"},
	}
	for _, tc := range cases {
		got, err := run(t, "", tc.args...)
		if err != nil {
			t.Fatalf("%v: %v", tc.args, err)
		}
		if got != tc.want {
			t.Fatalf("%v = %q, want %q", tc.args, got, tc.want)
		}
	}
}

func TestEncrypt_ReadsStdin(t *testing.T) {
	got, err := run(t, "attack at dawn\n", "encrypt")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if got != "dwwdfn dw gdzq\n" {
		t.Fatalf("got %q", got)
	}
}

func TestCrack_ListsEveryShift(t *testing.T) {
	got, err := run(t, "", "crack", "Khoor")
	if err != nil {
		t.Fatalf("crack: %v", err)
	}
	lines := strings.Split(strings.TrimRight(got, "\n"), "\n")
	if len(lines) != 26 {
		t.Fatalf("crack printed %d lines, want 26", len(lines))
	}
	if lines[3] != " 3  Hello" {
		t.Fatalf("line 3 = %q, want \" 3  Hello\"", lines[3])
	}
}

func TestSpinEnvelopes(t *testing.T) {
	envs, err := spinEnvelopes(45, 5)
	if err != nil {
		t.Fatalf("spinEnvelopes: %v", err)
	}
	// down + 9 moves + up
	if len(envs) != 11 {
		t.Fatalf("len = %d, want 11", len(envs))
	}
	if envs[0].Type != "pointer_down" || envs[len(envs)-1].Type != "pointer_up" {
		t.Fatalf("bad framing: first=%s last=%s", envs[0].Type, envs[len(envs)-1].Type)
	}

	var last pointerEvent
	if err := json.Unmarshal(envs[9].Data, &last); err != nil {
		t.Fatalf("decode move: %v", err)
	}
	angle := math.Atan2(last.Point.Y, last.Point.X) * 180 / math.Pi
	if math.Abs(angle-45) > 1e-9 {
		t.Fatalf("final angle = %v, want 45", angle)
	}

	if _, err := spinEnvelopes(10, 0); err == nil {
		t.Fatalf("expected error for zero step")
	}
	for _, step := range []float64{180, 270, math.Inf(1), math.NaN()} {
		if _, err := spinEnvelopes(360, step); err == nil {
			t.Fatalf("expected error for step %v", step)
		}
	}
	if envs, err := spinEnvelopes(360, 179); err != nil || len(envs) != 5 {
		t.Fatalf("spinEnvelopes(360, 179) = %d envelopes, %v; want 5", len(envs), err)
	}
	if _, err := spinEnvelopes(math.NaN(), 5); err == nil {
		t.Fatalf("expected error for NaN angle")
	}
}

// fakeDaemon accepts one connection on a unix socket, records every envelope
// and replies with reply(env).
func fakeDaemon(t *testing.T, reply func(eventEnvelope) ipcResponse) (string, <-chan []eventEnvelope) {
	t.Helper()
	dir, err := os.MkdirTemp("", "wc")
	if err != nil {
		t.Fatalf("mkdtemp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	path := filepath.Join(dir, "s.sock")

	ln, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	got := make(chan []eventEnvelope, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		var seen []eventEnvelope
		sc := bufio.NewScanner(conn)
		enc := json.NewEncoder(conn)
		for sc.Scan() {
			var env eventEnvelope
			if err := json.Unmarshal(sc.Bytes(), &env); err != nil {
				break
			}
			seen = append(seen, env)
			resp := reply(env)
			_ = enc.Encode(resp)
			if resp.Status != "ok" {
				break
			}
		}
		got <- seen
	}()
	return path, got
}

func okReply(eventEnvelope) ipcResponse { return ipcResponse{Status: "ok"} }

func TestShift_SendsSetShift(t *testing.T) {
	path, got := fakeDaemon(t, okReply)
	if _, err := run(t, "", "--socket", path, "shift", "11"); err != nil {
		t.Fatalf("shift: %v", err)
	}
	envs := <-got
	if len(envs) != 1 || envs[0].Type != "set_shift" {
		t.Fatalf("envelopes = %+v", envs)
	}
	var s setShift
	if err := json.Unmarshal(envs[0].Data, &s); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.Shift != 11 || s.Origin != "wheel-ctl" {
		t.Fatalf("payload = %+v", s)
	}
}

func TestMode_ToggleAndSet(t *testing.T) {
	path, got := fakeDaemon(t, okReply)
	if _, err := run(t, "", "--socket", path, "mode", "toggle"); err != nil {
		t.Fatalf("mode toggle: %v", err)
	}
	if envs := <-got; len(envs) != 1 || envs[0].Type != "toggle_mode" || len(envs[0].Data) != 0 {
		t.Fatalf("envelopes = %+v", envs)
	}

	path, got = fakeDaemon(t, okReply)
	if _, err := run(t, "", "--socket", path, "mode", "decrypt"); err != nil {
		t.Fatalf("mode decrypt: %v", err)
	}
	envs := <-got
	if len(envs) != 1 || envs[0].Type != "set_mode" || string(envs[0].Data) != `{"mode":"decrypt"}` {
		t.Fatalf("envelopes = %+v data=%s", envs, envs[0].Data)
	}

	if _, err := run(t, "", "--socket", path, "mode", "sideways"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestSpin_SendsWholeGestureOnOneConnection(t *testing.T) {
	path, got := fakeDaemon(t, okReply)
	if _, err := run(t, "", "--socket", path, "spin", "--step", "10", "--", "-30"); err != nil {
		t.Fatalf("spin: %v", err)
	}
	envs := <-got
	if len(envs) != 5 {
		t.Fatalf("got %d envelopes, want 5", len(envs))
	}
	for i, want := range []string{"pointer_down", "pointer_move", "pointer_move", "pointer_move", "pointer_up"} {
		if envs[i].Type != want {
			t.Fatalf("envelope %d = %s, want %s", i, envs[i].Type, want)
		}
	}
}

func TestSend_ReportsDaemonError(t *testing.T) {
	path, _ := fakeDaemon(t, func(eventEnvelope) ipcResponse {
		return ipcResponse{Status: "error", Error: "event queue full"}
	})
	_, err := run(t, "", "--socket", path, "copy")
	if err == nil || !strings.Contains(err.Error(), "event queue full") {
		t.Fatalf("err = %v, want daemon error", err)
	}
}

func TestSend_NoDaemon(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.sock")
	if _, err := run(t, "", "--socket", path, "step", "1"); err == nil {
		t.Fatalf("expected connect error")
	}
}

func TestState_PrintsSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/state" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"phase":"idle","shift":3,"shift_count":26,"rotation":41.5,"mode":"encrypt","input":"abc","output":"def"}`))
	}))
	defer srv.Close()

	out, err := run(t, "", "--server", srv.URL, "state")
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	for _, want := range []string{"Shift:  3 (A -> D)", "Mode:   encrypt", "Output: def"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output %q missing %q", out, want)
		}
	}
}

func TestState_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"wheel not running"}`))
	}))
	defer srv.Close()

	_, err := run(t, "", "--server", srv.URL, "state")
	if err == nil || !strings.Contains(err.Error(), "wheel not running") {
		t.Fatalf("err = %v", err)
	}
}
