package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Haptics produces a short physical (or audible) pulse. Implementations are
// best-effort: an error is reported as a notice and never retried.
type Haptics interface {
	Pulse(style HapticStyle) error
}

// Clipboard puts text on the host clipboard.
type Clipboard interface {
	Copy(text string) error
}

// ShiftHook is a change callback invoked with each newly committed shift.
type ShiftHook func(shift int) error

// Effects bundles the collaborators runEffect may touch. Nil members are
// treated as unavailable.
type Effects struct {
	Haptics   Haptics
	Clipboard Clipboard
	OnShift   []ShiftHook

	// Now is the clock used to stamp observations; nil means time.Now.
	Now func() time.Time
}

func (fx Effects) now() time.Time {
	if fx.Now != nil {
		return fx.Now()
	}
	return time.Now()
}

// runEffect executes a single reducer-emitted Command in the primary context
// and emits observation Events via onEvent.
//
// Design rules:
// - This function is allowed to perform I/O.
// - It must never call Reduce() directly; it only emits Events to be reduced by the interaction loop.
func runEffect(fx Effects, cmd Command, logger *slog.Logger, onEvent func(Event)) {
	if onEvent == nil {
		onEvent = func(Event) {}
	}

	now := fx.now()

	switch c := cmd.(type) {
	case CmdHapticPulse:
		if fx.Haptics == nil {
			onEvent(EffectFailed{Command: cmd, Err: errNoHaptics{}, At: now})
			return
		}
		if err := fx.Haptics.Pulse(c.Style); err != nil {
			logger.Debug("haptic pulse failed", "error", err, "style", c.Style)
			onEvent(EffectFailed{Command: cmd, Err: err, At: now})
		}

	case CmdNotifyShift:
		var errs []error
		for i, hook := range fx.OnShift {
			if hook == nil {
				continue
			}
			if err := hook(c.Shift); err != nil {
				logger.Warn("shift hook failed", "error", err, "hook", i, "shift", c.Shift)
				errs = append(errs, err)
			}
		}
		if err := errors.Join(errs...); err != nil {
			onEvent(EffectFailed{Command: cmd, Err: err, At: now})
		}

	case CmdCopyToClipboard:
		if fx.Clipboard == nil {
			onEvent(EffectFailed{Command: cmd, Err: errNoClipboard{}, At: now})
			return
		}
		if err := fx.Clipboard.Copy(c.Text); err != nil {
			logger.Warn("clipboard copy failed", "error", err)
			onEvent(EffectFailed{Command: cmd, Err: err, At: now})
			return
		}
		onEvent(ClipboardCopied{Chars: len([]rune(c.Text)), At: now})

	case CmdPublishStateSnapshot:
		// Deliver reducer-produced snapshot to the requester.
		// This keeps the reducer pure by moving the channel send into the effects layer.
		if c.Reply == nil {
			logger.Warn("state snapshot requested with nil reply channel")
			return
		}

		// Never block the primary context indefinitely.
		select {
		case c.Reply <- c.Snapshot:
		default:
			logger.Warn("state snapshot reply channel not ready; dropping snapshot")
		}

	default:
		logger.Warn("unknown command type", "command", cmd.String())
		onEvent(EffectFailed{Command: cmd, Err: errUnknownCommand{cmd: cmd}, At: now})
	}
}

// runEffects drains the handoff until it is closed or ctx ends. It is the
// daemon's primary context; the TUI runs its own consumer instead.
func runEffects(ctx context.Context, h *Handoff, fx Effects, events chan<- Event, logger *slog.Logger) {
	onEvent := observer(events, logger)
	for {
		select {
		case <-ctx.Done():
			return
		case cmd, ok := <-h.C():
			if !ok {
				return
			}
			runEffect(fx, cmd, logger, onEvent)
		}
	}
}

// observer returns an onEvent callback that feeds observations back to the
// interaction loop without ever blocking the primary context.
func observer(events chan<- Event, logger *slog.Logger) func(Event) {
	return func(ev Event) {
		select {
		case events <- ev:
		default:
			logger.Warn("events queue full; dropping observation", "event", fmt.Sprintf("%T", ev))
		}
	}
}

// errNoHaptics indicates a pulse was requested but no haptics backend is configured.
type errNoHaptics struct{}

func (errNoHaptics) Error() string { return "no haptics backend" }

// errNoClipboard indicates a copy was requested but no clipboard is available.
type errNoClipboard struct{}

func (errNoClipboard) Error() string { return "no clipboard available" }

type errUnknownCommand struct {
	cmd Command
}

func (e errUnknownCommand) Error() string { return "unknown command: " + e.cmd.String() }
