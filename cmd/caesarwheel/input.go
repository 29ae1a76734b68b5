package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// inputEvent represents a Linux input event structure
// struct input_event { struct timeval time; __u16 type; __u16 code; __s32 value; };
type inputEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

// readInputEvents reads input events from a single device and sends them to a channel.
// This runs in a dedicated goroutine and blocks on read operations; closing f
// together with done ends it.
func readInputEvents(f *os.File, events chan<- inputEvent, readErr chan<- error, done <-chan struct{}) {
	buf := make([]byte, binary.Size(inputEvent{}))
	reader := bytes.NewReader(buf)

	for {
		if _, err := io.ReadFull(f, buf); err != nil {
			reportReadErr(readErr, done, fmt.Errorf("read from %s: %w", f.Name(), err))
			return
		}

		reader.Reset(buf)
		var ev inputEvent
		if err := binary.Read(reader, binary.LittleEndian, &ev); err != nil {
			continue
		}

		select {
		case events <- ev:
		case <-done:
			return
		}
	}
}

// reportReadErr delivers err unless the consumer has already gone.
func reportReadErr(readErr chan<- error, done <-chan struct{}, err error) {
	select {
	case readErr <- err:
	case <-done:
	}
}

// touchTranslator turns the evdev report stream of a single-touch (or the
// first slot of a multi-touch) screen into pointer events around Center.
//
// Coordinates are latched until SYN_REPORT, so one report yields at most one
// pointer event.
type touchTranslator struct {
	Center Point

	x, y         float64
	haveX, haveY bool
	touching     bool // finger on the glass per the latest report
	down         bool // PointerDown already emitted
	moved        bool
}

// Feed consumes one raw event and returns the pointer event it completes, if any.
func (t *touchTranslator) Feed(ev inputEvent) (Event, bool) {
	switch ev.Type {
	case EV_ABS:
		switch ev.Code {
		case ABS_X, ABS_MT_POSITION_X:
			t.x, t.haveX, t.moved = float64(ev.Value), true, true
		case ABS_Y, ABS_MT_POSITION_Y:
			t.y, t.haveY, t.moved = float64(ev.Value), true, true
		case ABS_MT_TRACKING_ID:
			t.touching = ev.Value >= 0
		}

	case EV_KEY:
		if ev.Code == BTN_TOUCH {
			t.touching = ev.Value != evValueRelease
		}

	case EV_SYN:
		if ev.Code == SYN_REPORT {
			return t.report()
		}
	}
	return nil, false
}

func (t *touchTranslator) report() (Event, bool) {
	moved := t.moved
	t.moved = false

	switch {
	case t.down && !t.touching:
		t.down = false
		return PointerUp{}, true

	case !t.down && t.touching && t.haveX && t.haveY:
		t.down = true
		return PointerDown{Point: Point{X: t.x, Y: t.y}, Center: t.Center}, true

	case t.down && moved:
		return PointerMove{Point: Point{X: t.x, Y: t.y}, Center: t.Center}, true
	}
	return nil, false
}

// runTouchInput opens the configured devices and forwards translated pointer
// events to the interaction loop until ctx ends or a device fails.
func runTouchInput(ctx context.Context, cfg TouchConfig, events chan<- Event, logger *slog.Logger) error {
	files := make([]*os.File, 0, len(cfg.Devices))
	defer func() {
		for _, f := range files {
			_ = f.Close()
		}
	}()
	for _, dev := range cfg.Devices {
		f, err := os.Open(dev)
		if err != nil {
			return fmt.Errorf("open touch device %s: %w", dev, err)
		}
		files = append(files, f)
		logger.Info("touch input opened", "device", dev)
	}

	raw := make(chan inputEvent, 64)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go readInputEventsEpoll(files, raw, readErr, done)

	tr := &touchTranslator{Center: Point{X: cfg.CenterX, Y: cfg.CenterY}}
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			return err
		case ev := <-raw:
			pe, ok := tr.Feed(ev)
			if !ok {
				continue
			}
			forwardTouchEvent(ctx, events, pe, logger)
		}
	}
}

// forwardTouchEvent queues a pointer event for the loop. Moves are dropped
// when the queue is full since the next report supersedes them; PointerDown
// and PointerUp wait for room so a session is never left open.
func forwardTouchEvent(ctx context.Context, events chan<- Event, pe Event, logger *slog.Logger) {
	if _, isMove := pe.(PointerMove); isMove {
		select {
		case events <- pe:
		default:
			logger.Warn("events queue full; dropping touch move")
		}
		return
	}
	select {
	case events <- pe:
	case <-ctx.Done():
	}
}
