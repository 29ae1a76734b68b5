package main

import (
	"time"

	"caesarwheel/internal/cipher"
)

// StateBroadcast is an externally observable state change emitted by the
// reducer. Hosts (WS hub, TUI) render from these instead of reading state.
type StateBroadcast interface {
	broadcastMarker()
}

// BroadcastShiftChanged fires once per committed shift transition.
type BroadcastShiftChanged struct {
	Shift int
	At    time.Time
}

func (BroadcastShiftChanged) broadcastMarker() {}

// BroadcastRotation carries the continuous wheel angle for rendering.
// It is emitted on every drag move and settle step; consumers coalesce.
type BroadcastRotation struct {
	Rotation float64
	Phase    Phase
	At       time.Time
}

func (BroadcastRotation) broadcastMarker() {}

// BroadcastModeChanged fires when the cipher mode flips.
type BroadcastModeChanged struct {
	Mode cipher.Mode
	At   time.Time
}

func (BroadcastModeChanged) broadcastMarker() {}

// BroadcastOutputChanged fires when the input or the derived output changes.
type BroadcastOutputChanged struct {
	Input  string
	Output string
	At     time.Time
}

func (BroadcastOutputChanged) broadcastMarker() {}

// BroadcastHaptic mirrors a haptic pulse so remote hosts can render their own.
type BroadcastHaptic struct {
	Style HapticStyle
	At    time.Time
}

func (BroadcastHaptic) broadcastMarker() {}

// BroadcastCopied reports a completed copy (hosts show a short banner).
type BroadcastCopied struct {
	Chars int
	At    time.Time
}

func (BroadcastCopied) broadcastMarker() {}

// BroadcastNotice is a non-fatal notification for the collaborator layer,
// e.g. "Copy Failed".
type BroadcastNotice struct {
	Title   string
	Message string
	At      time.Time
}

func (BroadcastNotice) broadcastMarker() {}
