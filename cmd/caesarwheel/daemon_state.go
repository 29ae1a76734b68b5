package main

import (
	"fmt"
	"time"

	"caesarwheel/internal/cipher"
)

// Phase is the interaction state of the wheel.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseDragging
	PhaseSettling
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseDragging:
		return "dragging"
	case PhaseSettling:
		return "settling"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Phase) UnmarshalText(b []byte) error {
	switch string(b) {
	case "idle":
		*p = PhaseIdle
	case "dragging":
		*p = PhaseDragging
	case "settling":
		*p = PhaseSettling
	default:
		return fmt.Errorf("invalid phase %q", b)
	}
	return nil
}

// DaemonState is the top-level, loop-owned state container.
//
// Only the interaction loop (runDaemon) touches it; everything else sees
// StateSnapshot values or reducer broadcasts.
type DaemonState struct {
	Phase Phase

	// Wheel holds the continuous and discrete halves of the selector.
	Wheel WheelState

	// Message is the text being transformed with the committed shift.
	Message MessageState

	// LastNotice is the most recent non-fatal notification.
	LastNotice NoticeState
}

// WheelState keeps the continuous rotation and the committed shift as two
// explicit variables; QuantizeShift is the only mapping between them.
type WheelState struct {
	// Rotation is the continuous angle in degrees. Unbounded while dragging,
	// equal to ShiftAngle(Shift) while idle.
	Rotation float64

	// LastAngle is the pointer angle recorded by the previous gesture update.
	LastAngle float64

	// Shift is the committed discrete value in [0, count).
	Shift int

	// Settle dynamics. Target is the equivalent of ShiftAngle(Shift) nearest
	// the rotation at release.
	Target      float64
	Velocity    float64 // deg/s
	SettleSteps int

	// Session increments on every accepted pointer-down.
	Session uint64

	// hapticNoticeSession is Session+1 of the last session that reported a
	// haptic failure; zero means none has.
	hapticNoticeSession uint64

	// hookNoticeSession does the same for failing shift hooks.
	hookNoticeSession uint64
}

// MessageState is the input text, mode and derived output.
type MessageState struct {
	Input  string
	Mode   cipher.Mode
	Output string
}

// NoticeState is a non-fatal notification surfaced to hosts.
type NoticeState struct {
	Title   string
	Message string
	At      time.Time
}

// NewDaemonState returns a state resting on shift (clamped into range).
func NewDaemonState(shift int, mode cipher.Mode, count int) *DaemonState {
	if count <= 0 {
		count = defaultShiftCount
	}
	shift = clampShift(shift, count)
	return &DaemonState{
		Phase: PhaseIdle,
		Wheel: WheelState{
			Rotation: ShiftAngle(shift, count),
			Target:   ShiftAngle(shift, count),
			Shift:    shift,
		},
		Message: MessageState{Mode: mode},
	}
}

// recomputeOutput refreshes the derived output and reports whether it changed.
func (s *DaemonState) recomputeOutput() bool {
	out := cipher.Transform(s.Message.Input, s.Wheel.Shift, s.Message.Mode)
	if out == s.Message.Output {
		return false
	}
	s.Message.Output = out
	return true
}

// StateSnapshot is a coherent, copyable view of DaemonState for other goroutines.
type StateSnapshot struct {
	Phase      Phase       `json:"phase"`
	Shift      int         `json:"shift"`
	ShiftCount int         `json:"shift_count"`
	Rotation   float64     `json:"rotation"`
	Mode       cipher.Mode `json:"mode"`
	Input      string      `json:"input"`
	Output     string      `json:"output"`

	NoticeTitle   string    `json:"notice_title,omitempty"`
	NoticeMessage string    `json:"notice_message,omitempty"`
	NoticeAt      time.Time `json:"notice_at,omitzero"`
}

// Snapshot copies the externally visible parts of s.
func (s *DaemonState) Snapshot(count int) StateSnapshot {
	return StateSnapshot{
		Phase:         s.Phase,
		Shift:         s.Wheel.Shift,
		ShiftCount:    count,
		Rotation:      s.Wheel.Rotation,
		Mode:          s.Message.Mode,
		Input:         s.Message.Input,
		Output:        s.Message.Output,
		NoticeTitle:   s.LastNotice.Title,
		NoticeMessage: s.LastNotice.Message,
		NoticeAt:      s.LastNotice.At,
	}
}
