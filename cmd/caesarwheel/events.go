package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"caesarwheel/internal/cipher"
)

// ============================================================================
// Events - reducer inputs
// ============================================================================
// Events come from three places:
//   - hosts (WS clients, IPC, touchscreen, TUI): pointer and control events
//   - the interaction loop itself: Tick, TimedEvent, RequestStateSnapshot
//   - the effects worker: observations of side effects (EffectFailed, ...)
//
// Only host events have a JSON form (see EventEnvelope).
// ============================================================================

// Event is the input to the reducer.
type Event interface {
	eventMarker()
}

// PointerDown starts a drag session. Center is the wheel center in the same
// coordinate space as Point.
type PointerDown struct {
	Point  Point `json:"point"`
	Center Point `json:"center"`
}

func (PointerDown) eventMarker() {}

// PointerMove continues the active drag session.
type PointerMove struct {
	Point  Point `json:"point"`
	Center Point `json:"center"`
}

func (PointerMove) eventMarker() {}

// PointerUp ends the active drag session and starts the settle.
type PointerUp struct{}

func (PointerUp) eventMarker() {}

// SetShift selects a shift directly (CLI, IPC, keyboard). Out-of-range values
// are clamped.
type SetShift struct {
	Shift  int    `json:"shift"`
	Origin string `json:"origin,omitempty"` // e.g. "ipc", "tui", "ws"
}

func (SetShift) eventMarker() {}

// StepShift moves the selection by Delta detents, wrapping around the wheel.
type StepShift struct {
	Delta int `json:"delta"`
}

func (StepShift) eventMarker() {}

// SetMode selects encrypt or decrypt.
type SetMode struct {
	Mode cipher.Mode `json:"mode"`
}

func (SetMode) eventMarker() {}

// ToggleMode flips between encrypt and decrypt.
type ToggleMode struct{}

func (ToggleMode) eventMarker() {}

// SetInput replaces the message text.
type SetInput struct {
	Text string `json:"text"`
}

func (SetInput) eventMarker() {}

// CopyOutput asks for the current output text to be put on the clipboard.
type CopyOutput struct{}

func (CopyOutput) eventMarker() {}

// ============================================================================
// Loop events
// ============================================================================

// Tick is emitted by the interaction loop at a fixed cadence.
// Dt is wall-clock delta in seconds between ticks.
type Tick struct {
	Now time.Time
	Dt  float64
}

func (Tick) eventMarker() {}

// TimedEvent stamps a host event with its arrival time.
type TimedEvent struct {
	Event Event
	At    time.Time
}

func (TimedEvent) eventMarker() {}

// RequestStateSnapshot asks the loop to publish a coherent snapshot on Reply.
type RequestStateSnapshot struct {
	Reply chan<- StateSnapshot
}

func (RequestStateSnapshot) eventMarker() {}

// ============================================================================
// Effect observations
// ============================================================================

// EffectFailed is emitted when executing a Command fails. Failures of
// best-effort collaborators (haptics, clipboard, shift hooks) never alter the
// shift or the message; the reducer turns them into notices.
type EffectFailed struct {
	Command Command
	Err     error
	At      time.Time
}

func (EffectFailed) eventMarker() {}

// ClipboardCopied is emitted after the output text reached the clipboard.
type ClipboardCopied struct {
	Chars int
	At    time.Time
}

func (ClipboardCopied) eventMarker() {}

// ============================================================================
// JSON Encoding/Decoding Support
// ============================================================================

// EventEnvelope wraps an event with a type discriminator for JSON marshaling
type EventEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// wirePoint keeps absent coordinates distinguishable from zero.
type wirePoint struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

type wirePointer struct {
	Point  *wirePoint `json:"point"`
	Center *wirePoint `json:"center"`
}

func (p *wirePoint) toPoint(field string) (Point, error) {
	if p == nil {
		return Point{}, fmt.Errorf("missing %s", field)
	}
	if p.X == nil || p.Y == nil {
		return Point{}, fmt.Errorf("%s needs both x and y", field)
	}
	return Point{X: *p.X, Y: *p.Y}, nil
}

// decodePointer requires point and center with both coordinates. A missing
// field would otherwise decode as the origin and move the wheel.
func decodePointer(data json.RawMessage) (point, center Point, err error) {
	if len(data) == 0 {
		return Point{}, Point{}, errors.New("missing data")
	}
	var w wirePointer
	if err := json.Unmarshal(data, &w); err != nil {
		return Point{}, Point{}, err
	}
	if point, err = w.Point.toPoint("point"); err != nil {
		return Point{}, Point{}, err
	}
	if center, err = w.Center.toPoint("center"); err != nil {
		return Point{}, Point{}, err
	}
	return point, center, nil
}

// UnmarshalEvent deserializes a JSON event envelope into a concrete Event
func UnmarshalEvent(data []byte) (Event, error) {
	var env EventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	switch env.Type {
	case "pointer_down":
		point, center, err := decodePointer(env.Data)
		if err != nil {
			return nil, fmt.Errorf("unmarshal PointerDown: %w", err)
		}
		return PointerDown{Point: point, Center: center}, nil

	case "pointer_move":
		point, center, err := decodePointer(env.Data)
		if err != nil {
			return nil, fmt.Errorf("unmarshal PointerMove: %w", err)
		}
		return PointerMove{Point: point, Center: center}, nil

	case "pointer_up":
		return PointerUp{}, nil

	case "set_shift":
		var e SetShift
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal SetShift: %w", err)
		}
		return e, nil

	case "step_shift":
		var e StepShift
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal StepShift: %w", err)
		}
		return e, nil

	case "set_mode":
		var e SetMode
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal SetMode: %w", err)
		}
		return e, nil

	case "toggle_mode":
		return ToggleMode{}, nil

	case "set_input":
		var e SetInput
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal SetInput: %w", err)
		}
		return e, nil

	case "copy_output":
		return CopyOutput{}, nil

	default:
		return nil, fmt.Errorf("unknown event type: %q", env.Type)
	}
}
