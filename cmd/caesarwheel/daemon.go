package main

import (
	"context"
	"log/slog"
	"time"
)

// ============================================================================
// Interaction Loop - Reducer-driven wheel owner
// ============================================================================
//
// Design rules enforced here:
//   - The reducer performs no I/O and computes: next state + commands + broadcasts.
//   - This loop is the only owner of DaemonState. Nothing else reads or writes it.
//   - Commands leave through the Handoff, the single crossing point to the
//     primary context. Observations come back as Events.
//   - Broadcasts are published for hosts to render (WS broadcaster, TUI).
//
// ============================================================================

// runDaemon is the interaction loop that:
//   - Receives Events from hosts and the effects worker
//   - Emits Tick events on a fixed cadence (drives the settle)
//   - Reduces events into (state, commands, broadcasts)
//   - Hands commands to the primary context
//
// Shutdown semantics:
//   - Exits when ctx is canceled
//   - Exits cleanly when the events channel is closed
//   - Closes the handoff on exit (it is the only producer)
func runDaemon(
	ctx context.Context,
	events <-chan Event,
	handoff *Handoff,
	broadcasts chan<- StateBroadcast,
	cfg WheelConfig,
	state *DaemonState,
	updateHz int,
	logger *slog.Logger,
) {
	if state == nil {
		logger.Error("daemon state is nil")
		return
	}
	if handoff != nil {
		defer handoff.Close()
	}

	if updateHz <= 0 {
		updateHz = defaultUpdateHz
	}
	ticker := time.NewTicker(time.Second / time.Duration(updateHz))
	defer ticker.Stop()

	// Allow up to ~2 ticks worth of time to be integrated in one settle step.
	cfg.MaxDt = 2.0 / float64(updateHz)

	lastTick := time.Now()

	var eventQueue []Event

	publish := func(bs []StateBroadcast) {
		if broadcasts == nil {
			return
		}
		for _, b := range bs {
			if _, ok := b.(BroadcastRotation); ok {
				// Frames are superseded by the next one; never wait for them.
				select {
				case broadcasts <- b:
				default:
				}
				continue
			}
			select {
			case broadcasts <- b:
			case <-ctx.Done():
				return
			}
		}
	}

	dispatch := func(cmds []Command) {
		if handoff == nil {
			return
		}
		for _, cmd := range cmds {
			if !handoff.Send(ctx, cmd) {
				logger.Debug("command not handed off", "command", cmd.String(), "dropped_total", handoff.Dropped())
			}
		}
	}

	flushEvents := func() {
		for len(eventQueue) > 0 {
			ev := eventQueue[0]
			eventQueue = eventQueue[1:]

			prevShift := state.Wheel.Shift
			rr := Reduce(state, ev, cfg)
			if rr.State != nil {
				state = rr.State
			}
			if state.Wheel.Shift != prevShift {
				logger.Debug("shift committed", "shift", state.Wheel.Shift, "phase", state.Phase)
			}
			publish(rr.Broadcasts)
			dispatch(rr.Commands)
		}
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("interaction loop stopping (context canceled)")
			return

		case ev, ok := <-events:
			if !ok {
				logger.Info("interaction loop stopping (events channel closed)")
				return
			}
			eventQueue = append(eventQueue, TimedEvent{Event: ev, At: time.Now()})
			flushEvents()

		case now := <-ticker.C:
			dt := now.Sub(lastTick).Seconds()
			lastTick = now
			if state.Phase != PhaseSettling {
				continue
			}
			eventQueue = append(eventQueue, Tick{Now: now, Dt: dt})
			flushEvents()
		}
	}
}
