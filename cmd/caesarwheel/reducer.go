package main

import (
	"time"

	"caesarwheel/internal/cipher"
)

// This file implements the wheel's state machine as a pure reducer:
//
//   - Events: inputs (pointer gestures, control requests, ticks, effect observations)
//   - Commands: side effects for the primary context (haptics, shift hooks, clipboard)
//   - Broadcasts: externally observable changes for hosts to render
//   - Reduce(): computes next state + commands + broadcasts, without performing I/O
//
// Phases and transitions:
//
//	Idle     --PointerDown-->  Dragging
//	Dragging --PointerMove-->  Dragging   (quantize; edge-triggered haptic + notify)
//	Dragging --PointerUp---->  Settling   (target = committed shift)
//	Settling --Tick--------->  Settling | Idle (at rest or step budget spent)
//	Settling --PointerDown-->  Dragging   (settle cancelled)
//	any      --SetShift----->  Settling   (also StepShift)
//
// Settle steps never pass through the quantizer, so settling cannot commit a
// new shift.

// WheelConfig is the reducer's view of configuration.
type WheelConfig struct {
	// ShiftCount is the number of discrete positions (26 for the alphabet).
	ShiftCount int

	// Settler eases the rotation after release. Nil snaps immediately.
	Settler Settler

	// MaxDt caps the time integrated by one settle step (seconds).
	// Zero disables the cap.
	MaxDt float64
}

func (c WheelConfig) count() int {
	if c.ShiftCount <= 0 {
		return defaultShiftCount
	}
	return c.ShiftCount
}

// ReduceResult is the output of Reduce(): next state plus side effects and broadcasts.
type ReduceResult struct {
	State      *DaemonState
	Commands   []Command
	Broadcasts []StateBroadcast
}

func (r *ReduceResult) command(c Command) { r.Commands = append(r.Commands, c) }

func (r *ReduceResult) broadcast(b StateBroadcast) { r.Broadcasts = append(r.Broadcasts, b) }

// Reduce is the pure reducer:
//
// Rules:
// - Must not perform I/O
// - Must not block
// - Must not mutate anything outside the returned state
func Reduce(s *DaemonState, e Event, cfg WheelConfig) ReduceResult {
	if s == nil {
		s = NewDaemonState(0, cipher.Encrypt, cfg.count())
	}
	rr := ReduceResult{State: s}

	var at time.Time
	if te, ok := e.(TimedEvent); ok {
		e, at = te.Event, te.At
	}

	switch ev := e.(type) {
	case PointerDown:
		angle, ok := beginGesture(ev.Point, ev.Center)
		if !ok {
			break
		}
		// A new session supersedes any drag or settle in flight. Rotation is
		// kept so the wheel continues from where it is on screen.
		s.Phase = PhaseDragging
		s.Wheel.LastAngle = angle
		s.Wheel.Velocity = 0
		s.Wheel.SettleSteps = 0
		s.Wheel.Session++

	case PointerMove:
		if s.Phase != PhaseDragging {
			break
		}
		rot, angle, ok := updateGesture(s.Wheel.Rotation, s.Wheel.LastAngle, ev.Point, ev.Center)
		if !ok {
			break
		}
		s.Wheel.Rotation = rot
		s.Wheel.LastAngle = angle
		rr.broadcast(BroadcastRotation{Rotation: rot, Phase: s.Phase, At: at})

		if next := QuantizeShift(rot, cfg.count()); next != s.Wheel.Shift {
			commitShift(s, &rr, next, at)
		}

	case PointerUp:
		if s.Phase != PhaseDragging {
			break
		}
		startSettle(s, &rr, cfg, at)

	case Tick:
		if s.Phase != PhaseSettling {
			break
		}
		stepSettle(s, &rr, cfg, ev.Dt, ev.Now)

	case SetShift:
		next := clampShift(ev.Shift, cfg.count())
		if next != s.Wheel.Shift {
			commitShift(s, &rr, next, at)
		}
		startSettle(s, &rr, cfg, at)

	case StepShift:
		n := cfg.count()
		next := ((s.Wheel.Shift+ev.Delta)%n + n) % n
		if next != s.Wheel.Shift {
			commitShift(s, &rr, next, at)
		}
		startSettle(s, &rr, cfg, at)

	case SetMode:
		setMode(s, &rr, ev.Mode, at)

	case ToggleMode:
		setMode(s, &rr, s.Message.Mode.Toggle(), at)

	case SetInput:
		s.Message.Input = ev.Text
		s.recomputeOutput()
		rr.broadcast(BroadcastOutputChanged{Input: s.Message.Input, Output: s.Message.Output, At: at})

	case CopyOutput:
		rr.command(CmdCopyToClipboard{Text: s.Message.Output})

	case ClipboardCopied:
		rr.command(CmdHapticPulse{Style: HapticSuccess})
		rr.broadcast(BroadcastCopied{Chars: ev.Chars, At: ev.At})

	case EffectFailed:
		reduceEffectFailed(s, &rr, ev)

	case RequestStateSnapshot:
		rr.command(CmdPublishStateSnapshot{Reply: ev.Reply, Snapshot: s.Snapshot(cfg.count())})

	default:
		// Unknown event type: no-op.
	}

	return rr
}

// commitShift records a discrete transition. It is the only place that emits
// the haptic pulse and the shift notification.
func commitShift(s *DaemonState, rr *ReduceResult, next int, at time.Time) {
	s.Wheel.Shift = next
	rr.command(CmdHapticPulse{Style: HapticSelection})
	rr.command(CmdNotifyShift{Shift: next})
	rr.broadcast(BroadcastShiftChanged{Shift: next, At: at})
	rr.broadcast(BroadcastHaptic{Style: HapticSelection, At: at})

	if s.recomputeOutput() {
		rr.broadcast(BroadcastOutputChanged{Input: s.Message.Input, Output: s.Message.Output, At: at})
	}
}

func setMode(s *DaemonState, rr *ReduceResult, m cipher.Mode, at time.Time) {
	if m == s.Message.Mode {
		return
	}
	s.Message.Mode = m
	rr.broadcast(BroadcastModeChanged{Mode: m, At: at})
	if s.recomputeOutput() {
		rr.broadcast(BroadcastOutputChanged{Input: s.Message.Input, Output: s.Message.Output, At: at})
	}
}

func startSettle(s *DaemonState, rr *ReduceResult, cfg WheelConfig, at time.Time) {
	s.Phase = PhaseSettling
	s.Wheel.Target = nearestShiftAngle(s.Wheel.Rotation, s.Wheel.Shift, cfg.count())
	s.Wheel.Velocity = 0
	s.Wheel.SettleSteps = 0

	if cfg.Settler == nil || cfg.Settler.AtRest(s.Wheel.Rotation, 0, s.Wheel.Target) {
		finishSettle(s, rr, cfg, at)
	}
}

func stepSettle(s *DaemonState, rr *ReduceResult, cfg WheelConfig, dt float64, now time.Time) {
	if cfg.Settler == nil {
		finishSettle(s, rr, cfg, now)
		return
	}
	if cfg.MaxDt > 0 && dt > cfg.MaxDt {
		dt = cfg.MaxDt
	}

	pos, vel := cfg.Settler.Step(s.Wheel.Rotation, s.Wheel.Velocity, s.Wheel.Target, dt)
	s.Wheel.Rotation = pos
	s.Wheel.Velocity = vel
	s.Wheel.SettleSteps++

	if cfg.Settler.AtRest(pos, vel, s.Wheel.Target) || s.Wheel.SettleSteps >= maxSettleSteps {
		finishSettle(s, rr, cfg, now)
		return
	}
	rr.broadcast(BroadcastRotation{Rotation: pos, Phase: s.Phase, At: now})
}

// finishSettle lands the wheel exactly on the committed shift's angle.
func finishSettle(s *DaemonState, rr *ReduceResult, cfg WheelConfig, at time.Time) {
	s.Phase = PhaseIdle
	s.Wheel.Rotation = ShiftAngle(s.Wheel.Shift, cfg.count())
	s.Wheel.Target = s.Wheel.Rotation
	s.Wheel.Velocity = 0
	rr.broadcast(BroadcastRotation{Rotation: s.Wheel.Rotation, Phase: s.Phase, At: at})
}

// reduceEffectFailed turns a collaborator failure into a notice. The shift
// and the message are never touched.
func reduceEffectFailed(s *DaemonState, rr *ReduceResult, ev EffectFailed) {
	var title string
	switch ev.Command.(type) {
	case CmdCopyToClipboard:
		title = "Copy Failed"
	case CmdHapticPulse:
		// One notice per drag session; pulses fire on every detent.
		if s.Wheel.hapticNoticeSession == s.Wheel.Session+1 {
			return
		}
		s.Wheel.hapticNoticeSession = s.Wheel.Session + 1
		title = "Haptics Unavailable"
	case CmdNotifyShift:
		// Hooks also run on every detent.
		if s.Wheel.hookNoticeSession == s.Wheel.Session+1 {
			return
		}
		s.Wheel.hookNoticeSession = s.Wheel.Session + 1
		title = "Shift Hook Failed"
	default:
		title = "Effect Failed"
	}

	msg := "unknown error"
	if ev.Err != nil {
		msg = ev.Err.Error()
	}
	s.LastNotice = NoticeState{Title: title, Message: msg, At: ev.At}
	rr.broadcast(BroadcastNotice{Title: title, Message: msg, At: ev.At})
}
