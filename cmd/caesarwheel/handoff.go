package main

import (
	"context"
	"sync/atomic"
)

// Handoff is the single crossing point between the interaction loop and the
// primary context that executes side effects.
//
// Exactly one goroutine sends (the interaction loop) and exactly one receives
// (runEffects in the daemon, the TUI event loop in terminal mode). The
// interaction loop never touches collaborators directly; everything observable
// outside the loop passes through here.
type Handoff struct {
	ch      chan Command
	dropped atomic.Uint64
}

// NewHandoff creates a handoff with the given buffer size.
func NewHandoff(buffer int) *Handoff {
	if buffer <= 0 {
		buffer = defaultHandoffBuffer
	}
	return &Handoff{ch: make(chan Command, buffer)}
}

// Send delivers cmd to the primary context.
//
// Haptic pulses are fire-and-forget: if the buffer is full they are dropped
// and counted so a stalled consumer can never slow the gesture down. Every
// other command waits for room or for ctx to end.
func (h *Handoff) Send(ctx context.Context, cmd Command) bool {
	if _, ok := cmd.(CmdHapticPulse); ok {
		select {
		case h.ch <- cmd:
			return true
		default:
			h.dropped.Add(1)
			return false
		}
	}

	select {
	case h.ch <- cmd:
		return true
	case <-ctx.Done():
		return false
	}
}

// C is the receive side, for consumers that multiplex it with other sources.
func (h *Handoff) C() <-chan Command { return h.ch }

// Dropped returns the number of haptic pulses dropped on a full buffer.
func (h *Handoff) Dropped() uint64 { return h.dropped.Load() }

// Close ends the handoff. Only the producer may call it.
func (h *Handoff) Close() { close(h.ch) }
