package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"testing"
	"time"
)

func abs(code uint16, v int32) inputEvent { return inputEvent{Type: EV_ABS, Code: code, Value: v} }
func key(code uint16, v int32) inputEvent { return inputEvent{Type: EV_KEY, Code: code, Value: v} }
func syn() inputEvent                     { return inputEvent{Type: EV_SYN, Code: SYN_REPORT} }

// feedAll feeds evs and returns every pointer event produced.
func feedAll(tr *touchTranslator, evs ...inputEvent) []Event {
	var out []Event
	for _, ev := range evs {
		if pe, ok := tr.Feed(ev); ok {
			out = append(out, pe)
		}
	}
	return out
}

func TestTouchTranslator_SingleTouchSession(t *testing.T) {
	center := Point{X: 500, Y: 500}
	tr := &touchTranslator{Center: center}

	got := feedAll(tr,
		key(BTN_TOUCH, evValuePress), abs(ABS_X, 600), abs(ABS_Y, 500), syn(),
		abs(ABS_Y, 520), syn(),
		syn(), // nothing changed
		key(BTN_TOUCH, evValueRelease), syn(),
	)

	if len(got) != 3 {
		t.Fatalf("events = %#v, want down, move, up", got)
	}
	down, ok := got[0].(PointerDown)
	if !ok || down.Point != (Point{X: 600, Y: 500}) || down.Center != center {
		t.Fatalf("first = %#v, want PointerDown at (600,500)", got[0])
	}
	move, ok := got[1].(PointerMove)
	if !ok || move.Point != (Point{X: 600, Y: 520}) {
		t.Fatalf("second = %#v, want PointerMove to (600,520)", got[1])
	}
	if _, ok := got[2].(PointerUp); !ok {
		t.Fatalf("third = %#v, want PointerUp", got[2])
	}
}

func TestTouchTranslator_MultiTouchTrackingID(t *testing.T) {
	tr := &touchTranslator{}

	got := feedAll(tr,
		abs(ABS_MT_TRACKING_ID, 7), abs(ABS_MT_POSITION_X, 10), abs(ABS_MT_POSITION_Y, 20), syn(),
		abs(ABS_MT_TRACKING_ID, -1), syn(),
	)
	if len(got) != 2 {
		t.Fatalf("events = %#v, want down, up", got)
	}
	if _, ok := got[0].(PointerDown); !ok {
		t.Fatalf("first = %#v, want PointerDown", got[0])
	}
	if _, ok := got[1].(PointerUp); !ok {
		t.Fatalf("second = %#v, want PointerUp", got[1])
	}
}

func TestTouchTranslator_WaitsForBothCoordinates(t *testing.T) {
	tr := &touchTranslator{}

	if got := feedAll(tr, key(BTN_TOUCH, evValuePress), abs(ABS_X, 1), syn()); len(got) != 0 {
		t.Fatalf("down without Y emitted %#v", got)
	}
	got := feedAll(tr, abs(ABS_Y, 2), syn())
	if len(got) != 1 {
		t.Fatalf("events = %#v, want one PointerDown", got)
	}
	if _, ok := got[0].(PointerDown); !ok {
		t.Fatalf("event = %#v, want PointerDown", got[0])
	}
}

func TestTouchTranslator_ReleaseWithoutDownIsSilent(t *testing.T) {
	tr := &touchTranslator{}
	if got := feedAll(tr, key(BTN_TOUCH, evValueRelease), syn()); len(got) != 0 {
		t.Fatalf("release without touch emitted %#v", got)
	}
}

func TestReadInputEvents_DecodesStream(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer r.Close()

	var buf bytes.Buffer
	want := []inputEvent{abs(ABS_X, 42), syn()}
	for _, ev := range want {
		if err := binary.Write(&buf, binary.LittleEndian, ev); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}

	events := make(chan inputEvent, 4)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go readInputEvents(r, events, readErr, done)

	if _, err := w.Write(buf.Bytes()); err != nil {
		t.Fatalf("write: %v", err)
	}
	for i, wantEv := range want {
		select {
		case got := <-events:
			if got != wantEv {
				t.Fatalf("event %d = %+v, want %+v", i, got, wantEv)
			}
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for event %d", i)
		}
	}

	_ = w.Close()
	select {
	case err := <-readErr:
		if err == nil {
			t.Fatalf("expected a read error after the writer closed")
		}
	case <-time.After(time.Second):
		t.Fatalf("reader did not report EOF")
	}
}

func TestReadInputEvents_StopsWhenDone(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer w.Close()

	events := make(chan inputEvent) // never read
	readErr := make(chan error)     // never read
	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		readInputEvents(r, events, readErr, done)
	}()

	// One event the consumer never takes: the reader parks on the send.
	if err := binary.Write(w, binary.LittleEndian, syn()); err != nil {
		t.Fatalf("write: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	close(done)
	_ = r.Close()

	select {
	case <-exited:
	case <-time.After(time.Second):
		t.Fatalf("reader still running after done")
	}
}

func TestForwardTouchEvent_KeepsSessionEdges(t *testing.T) {
	events := make(chan Event, 1)
	events <- PointerDown{} // queue full

	// Moves are dropped without blocking.
	forwardTouchEvent(context.Background(), events, PointerMove{}, testLogger())

	// A release waits for room.
	sent := make(chan struct{})
	go func() {
		defer close(sent)
		forwardTouchEvent(context.Background(), events, PointerUp{}, testLogger())
	}()
	select {
	case <-sent:
		t.Fatalf("PointerUp returned while the queue was full")
	case <-time.After(50 * time.Millisecond):
	}

	if _, ok := (<-events).(PointerDown); !ok {
		t.Fatalf("first queued event is not PointerDown")
	}
	select {
	case <-sent:
	case <-time.After(time.Second):
		t.Fatalf("PointerUp not delivered after room was made")
	}
	if _, ok := (<-events).(PointerUp); !ok {
		t.Fatalf("PointerUp lost")
	}

	// A canceled context unblocks a pending edge.
	events <- PointerDown{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	forwardTouchEvent(ctx, events, PointerUp{}, testLogger())
}
