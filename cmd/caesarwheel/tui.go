package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"caesarwheel/internal/cipher"

	"github.com/gdamore/tcell/v2"
)

// ============================================================================
// Terminal host
// ============================================================================
// The TUI is the primary context in terminal mode: its loop consumes the
// Handoff (haptics, clipboard, hooks) and renders reducer broadcasts. The
// interaction loop runs in its own goroutine exactly as in daemon mode.
//
// Terminal cells are roughly twice as tall as they are wide, so column
// offsets are halved before they become pointer coordinates. That keeps a
// drawn circle round in angle space.
// ============================================================================

const (
	cellAspect = 2.0

	tuiMarginLeft = 2
	tuiMarginTop  = 1
	tuiTextGap    = 4
)

// tuiView is the terminal's copy of what the wheel looks like. It is updated
// only from broadcasts and never read by the interaction loop.
type tuiView struct {
	Shift      int
	ShiftCount int
	Rotation   float64
	Phase      Phase
	Mode       cipher.Mode
	Input      string
	Output     string

	Notice      string
	CopiedUntil time.Time
}

func newTUIView(s StateSnapshot) tuiView {
	v := tuiView{
		Shift:      s.Shift,
		ShiftCount: s.ShiftCount,
		Rotation:   s.Rotation,
		Phase:      s.Phase,
		Mode:       s.Mode,
		Input:      s.Input,
		Output:     s.Output,
	}
	if s.NoticeTitle != "" {
		v.Notice = s.NoticeTitle + ": " + s.NoticeMessage
	}
	return v
}

// apply folds one broadcast into the view.
func (v *tuiView) apply(b StateBroadcast, now time.Time) {
	switch ev := b.(type) {
	case BroadcastShiftChanged:
		v.Shift = ev.Shift
	case BroadcastRotation:
		v.Rotation = ev.Rotation
		v.Phase = ev.Phase
	case BroadcastModeChanged:
		v.Mode = ev.Mode
	case BroadcastOutputChanged:
		v.Input = ev.Input
		v.Output = ev.Output
	case BroadcastCopied:
		v.CopiedUntil = now.Add(time.Duration(defaultCopiedBannerMS) * time.Millisecond)
	case BroadcastNotice:
		v.Notice = ev.Title + ": " + ev.Message
	}
}

// tuiLayout places the wheel on screen.
type tuiLayout struct {
	CenterCol, CenterRow int
	Radius               int // in rows; columns use Radius*cellAspect
}

// layoutFor fits a wheel of the configured size (diameter in rows) into a
// w x h screen.
func layoutFor(w, h int, size float64) tuiLayout {
	r := int(size / 2)
	if maxR := (h - 2*tuiMarginTop - 1) / 2; r > maxR {
		r = maxR
	}
	if r < 2 {
		r = 2
	}
	return tuiLayout{
		CenterCol: tuiMarginLeft + int(float64(r)*cellAspect),
		CenterRow: tuiMarginTop + r,
		Radius:    r,
	}
}

// point converts a cell to pointer coordinates.
func (l tuiLayout) point(col, row int) Point {
	return Point{X: float64(col) / cellAspect, Y: float64(row)}
}

func (l tuiLayout) center() Point {
	return l.point(l.CenterCol, l.CenterRow)
}

// cell returns the cell at screen angle deg (clockwise from the +x axis,
// since rows grow downward) on a circle of radius r rows.
func (l tuiLayout) cell(deg float64, r float64) (col, row int) {
	rad := deg * math.Pi / 180
	col = l.CenterCol + int(math.Round(r*cellAspect*math.Cos(rad)))
	row = l.CenterRow + int(math.Round(r*math.Sin(rad)))
	return col, row
}

// tuiInput translates terminal events into wheel events. It tracks the
// primary button so a press-drag-release becomes one drag session.
//
// draft is the text being typed. The terminal is the only editor in TUI mode,
// so it is kept here instead of being read back from broadcasts, which may
// lag behind fast typing.
type tuiInput struct {
	layout   tuiLayout
	dragging bool
	draft    string
}

// tuiAction is what a terminal event asks the host to do besides sending events.
type tuiAction int

const (
	tuiNone tuiAction = iota
	tuiQuit
	tuiRedraw
)

// handle maps one terminal event.
func (in *tuiInput) handle(ev tcell.Event) ([]Event, tuiAction) {
	switch ev := ev.(type) {
	case *tcell.EventMouse:
		col, row := ev.Position()
		p := in.layout.point(col, row)
		pressed := ev.Buttons()&tcell.Button1 != 0

		switch {
		case pressed && !in.dragging:
			in.dragging = true
			return []Event{PointerDown{Point: p, Center: in.layout.center()}}, tuiNone
		case pressed && in.dragging:
			return []Event{PointerMove{Point: p, Center: in.layout.center()}}, tuiNone
		case !pressed && in.dragging:
			in.dragging = false
			return []Event{PointerUp{}}, tuiNone
		}

	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return nil, tuiQuit
		case tcell.KeyTab:
			return []Event{ToggleMode{}}, tuiNone
		case tcell.KeyCtrlY:
			return []Event{CopyOutput{}}, tuiNone
		case tcell.KeyCtrlU:
			in.draft = ""
			return []Event{SetInput{Text: in.draft}}, tuiNone
		case tcell.KeyLeft:
			return []Event{StepShift{Delta: -1}}, tuiNone
		case tcell.KeyRight:
			return []Event{StepShift{Delta: 1}}, tuiNone
		case tcell.KeyBackspace, tcell.KeyBackspace2:
			if in.draft == "" {
				return nil, tuiNone
			}
			_, size := utf8.DecodeLastRuneInString(in.draft)
			in.draft = in.draft[:len(in.draft)-size]
			return []Event{SetInput{Text: in.draft}}, tuiNone
		case tcell.KeyRune:
			in.draft += string(ev.Rune())
			return []Event{SetInput{Text: in.draft}}, tuiNone
		}

	case *tcell.EventResize:
		return nil, tuiRedraw
	}
	return nil, tuiNone
}

// tuiRenderer draws the view. It holds no state besides the screen.
type tuiRenderer struct {
	screen tcell.Screen
	size   float64
}

var (
	styleDefault = tcell.StyleDefault
	styleDim     = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleMarker  = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleActive  = tcell.StyleDefault.Foreground(tcell.ColorGreen).Bold(true)
	styleNotice  = tcell.StyleDefault.Foreground(tcell.ColorRed)
)

func (r tuiRenderer) layout() tuiLayout {
	w, h := r.screen.Size()
	return layoutFor(w, h, r.size)
}

func (r tuiRenderer) draw(v *tuiView, now time.Time) {
	s := r.screen
	s.Clear()
	l := r.layout()

	count := v.ShiftCount
	if count <= 0 {
		count = defaultShiftCount
	}
	step := 360.0 / float64(count)

	// Letter i sits at (rotation - i*step) from the top marker, so dragging
	// clockwise carries later letters to the top.
	for i := 0; i < count; i++ {
		col, row := l.cell(v.Rotation-float64(i)*step-90, float64(l.Radius))
		style := styleDefault
		if i == v.Shift {
			style = styleActive
		}
		s.SetContent(col, row, rune('A'+i%cipher.AlphabetSize), nil, style)
	}
	markCol, markRow := l.cell(-90, float64(l.Radius)+1)
	if markRow >= 0 {
		s.SetContent(markCol, markRow, 'v', nil, styleMarker)
	}
	s.SetContent(l.CenterCol, l.CenterRow, '+', nil, styleDim)

	x := l.CenterCol + int(float64(l.Radius)*cellAspect) + tuiTextGap
	y := tuiMarginTop
	line := func(text string, style tcell.Style) {
		drawText(s, x, y, text, style)
		y++
	}

	plain := rune('A' + v.Shift%cipher.AlphabetSize)
	line(fmt.Sprintf("Shift: %-2d  A -> %c", v.Shift, plain), styleActive)
	line(fmt.Sprintf("Mode:  %s", v.Mode), styleDefault)
	y++
	line("Input:", styleDim)
	line(v.Input, styleDefault)
	y++
	line("Output:", styleDim)
	line(v.Output, styleDefault)
	y++
	if now.Before(v.CopiedUntil) {
		line("Copied!", styleActive)
	} else {
		y++
	}
	if v.Notice != "" {
		line(v.Notice, styleNotice)
	} else {
		y++
	}
	y++
	line("drag the wheel | <- -> step | Tab mode | Ctrl-Y copy | Esc quit", styleDim)

	s.Show()
}

func drawText(s tcell.Screen, x, y int, text string, style tcell.Style) {
	w, _ := s.Size()
	for _, r := range strings.ReplaceAll(text, "\n", " ") {
		if x >= w {
			return
		}
		s.SetContent(x, y, r, nil, style)
		x++
	}
}

// tuiDeps are the collaborators of the terminal host. Zero members fall back
// to defaults (screen clipboard, no haptics, no hooks).
type tuiDeps struct {
	Screen    tcell.Screen
	Haptics   Haptics
	Clipboard Clipboard
	OnShift   []ShiftHook
}

// runTUI owns the screen until Esc, Ctrl-C or ctx cancellation.
// It returns the final view so callers can persist the selection.
func runTUI(ctx context.Context, cfg *Config, state *DaemonState, deps tuiDeps, logger *slog.Logger) (tuiView, error) {
	screen := deps.Screen
	if err := screen.Init(); err != nil {
		return tuiView{}, fmt.Errorf("init screen: %w", err)
	}
	defer screen.Fini()
	screen.EnableMouse(tcell.MouseDragEvents)
	screen.HideCursor()

	fx := Effects{Haptics: deps.Haptics, Clipboard: deps.Clipboard, OnShift: deps.OnShift}
	if fx.Clipboard == nil {
		fx.Clipboard = screenClipboard{screen: screen}
	}

	wheelCfg := cfg.ToWheelConfig()
	view := newTUIView(state.Snapshot(wheelCfg.ShiftCount))
	renderer := tuiRenderer{screen: screen, size: cfg.Wheel.Size}
	input := &tuiInput{layout: renderer.layout(), draft: view.Input}

	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan Event, defaultEventsBuffer)
	broadcasts := make(chan StateBroadcast, defaultBroadcastBuffer)
	handoff := NewHandoff(defaultHandoffBuffer)

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		runDaemon(loopCtx, events, handoff, broadcasts, wheelCfg, state, cfg.Wheel.UpdateHz, logger)
	}()

	termEvents := make(chan tcell.Event, 64)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return // screen finalized
			}
			select {
			case termEvents <- ev:
			case <-loopDone:
				return
			}
		}
	}()

	onEvent := observer(events, logger)
	send := func(evs []Event) {
		for _, ev := range evs {
			onEvent(ev)
		}
	}

	// Only needed to expire the "Copied!" banner.
	bannerTicker := time.NewTicker(250 * time.Millisecond)
	defer bannerTicker.Stop()

	renderer.draw(&view, time.Now())

	stop := func() tuiView {
		cancel()
		<-loopDone
		return view
	}

	for {
		dirty := false
		select {
		case <-ctx.Done():
			return stop(), nil

		case ev := <-termEvents:
			evs, action := input.handle(ev)
			switch action {
			case tuiQuit:
				return stop(), nil
			case tuiRedraw:
				screen.Sync()
				input.layout = renderer.layout()
				dirty = true
			}
			send(evs)

		case cmd, ok := <-handoff.C():
			if !ok {
				return view, nil
			}
			runEffect(fx, cmd, logger, onEvent)

		case b := <-broadcasts:
			view.apply(b, time.Now())
			dirty = true

		case <-bannerTicker.C:
			dirty = !view.CopiedUntil.IsZero()
			if dirty && time.Now().After(view.CopiedUntil) {
				view.CopiedUntil = time.Time{}
			}
		}

		if dirty {
			renderer.draw(&view, time.Now())
		}
	}
}
