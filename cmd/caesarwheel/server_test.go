package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"caesarwheel/internal/cipher"

	"github.com/gorilla/websocket"
)

func TestHandleTransform(t *testing.T) {
	mux := newHTTPMux(nil, "", nil, testLogger())

	cases := []struct {
		name       string
		method     string
		body       string
		wantStatus int
		wantOutput string
	}{
		{"encrypt", http.MethodPost, `{"text":"Hello, World!","shift":3,"mode":"encrypt"}`, http.StatusOK, "Khoor, Zruog!"},
		{"decrypt", http.MethodPost, `{"text":"Khoor, Zruog!","shift":3,"mode":"decrypt"}`, http.StatusOK, "Hello, World!"},
		{"mode defaults to encrypt", http.MethodPost, `{"text":"abc","shift":1}`, http.StatusOK, "bcd"},
		{"bad json", http.MethodPost, `{"text":`, http.StatusBadRequest, ""},
		{"bad mode", http.MethodPost, `{"text":"a","mode":"both"}`, http.StatusBadRequest, ""},
		{"wrong method", http.MethodGet, ``, http.StatusMethodNotAllowed, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, "/transform", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tc.wantStatus, rec.Body.String())
			}
			if tc.wantStatus != http.StatusOK {
				return
			}
			var resp transformResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Output != tc.wantOutput {
				t.Fatalf("output = %q, want %q", resp.Output, tc.wantOutput)
			}
		})
	}
}

func TestHandleState(t *testing.T) {
	h := startWheel(t, NewDaemonState(7, cipher.Decrypt, 26), false)
	mux := newHTTPMux(nil, "", h.events, testLogger())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/state", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var snap StateSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Shift != 7 || snap.Mode != cipher.Decrypt || snap.Phase != PhaseIdle {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestHandleState_NoLoop(t *testing.T) {
	mux := newHTTPMux(nil, "", nil, testLogger())
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/state", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

// TestStateWS_EndToEnd drives the wheel over a real WebSocket: state_init on
// connect, then a set_shift from the client comes back as shift_changed.
func TestStateWS_EndToEnd(t *testing.T) {
	h := startWheel(t, NewDaemonState(3, cipher.Encrypt, 26), true)
	logger := testLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ws := NewStateServer(logger, h.events, HubConfig{})
	go ws.Hub().Run(ctx)
	go RunBroadcaster(ctx, ws.Hub(), h.broadcasts, logger)

	srv := httptest.NewServer(newHTTPMux(ws, "/ws", h.events, logger))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))

	next := func() wireFrame {
		t.Helper()
		_, b, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var f wireFrame
		if err := json.Unmarshal(b, &f); err != nil {
			t.Fatalf("decode %q: %v", b, err)
		}
		return f
	}

	f := next()
	if f.Type != "state_init" {
		t.Fatalf("first frame = %q, want state_init", f.Type)
	}
	var snap StateSnapshot
	if err := json.Unmarshal(f.Data, &snap); err != nil || snap.Shift != 3 {
		t.Fatalf("state_init = %s (err %v), want shift 3", f.Data, err)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"set_shift","data":{"shift":11}}`)); err != nil {
		t.Fatalf("write: %v", err)
	}

	for {
		f = next()
		if f.Type != "shift_changed" {
			continue // rotation and haptic frames may interleave
		}
		var d wsShiftChangedData
		if err := json.Unmarshal(f.Data, &d); err != nil || d.Shift != 11 {
			t.Fatalf("shift_changed = %s (err %v), want 11", f.Data, err)
		}
		return
	}
}
