package main

import "fmt"

// ==============================
// Commands (side effects)
// ==============================

// Command represents a side effect requested by the reducer. Commands cross
// the Handoff into the primary context and are executed there by runEffect.
type Command interface {
	commandMarker()
	String() string
}

// HapticStyle names the kind of pulse requested.
type HapticStyle string

const (
	HapticSelection HapticStyle = "light"   // one detent of the wheel
	HapticSuccess   HapticStyle = "success" // output copied
)

// CmdHapticPulse requests a fire-and-forget haptic pulse.
type CmdHapticPulse struct {
	Style HapticStyle
}

func (CmdHapticPulse) commandMarker() {}
func (c CmdHapticPulse) String() string {
	return fmt.Sprintf("CmdHapticPulse(style=%s)", c.Style)
}

// CmdNotifyShift invokes the registered shift-change hooks with the newly
// committed shift.
type CmdNotifyShift struct {
	Shift int
}

func (CmdNotifyShift) commandMarker()   {}
func (c CmdNotifyShift) String() string { return fmt.Sprintf("CmdNotifyShift(shift=%d)", c.Shift) }

// CmdCopyToClipboard puts Text on the host clipboard.
type CmdCopyToClipboard struct {
	Text string
}

func (CmdCopyToClipboard) commandMarker() {}
func (c CmdCopyToClipboard) String() string {
	return fmt.Sprintf("CmdCopyToClipboard(chars=%d)", len([]rune(c.Text)))
}

// CmdPublishStateSnapshot delivers a reducer-produced snapshot to a requester.
type CmdPublishStateSnapshot struct {
	Reply    chan<- StateSnapshot
	Snapshot StateSnapshot
}

func (CmdPublishStateSnapshot) commandMarker() {}
func (CmdPublishStateSnapshot) String() string { return "CmdPublishStateSnapshot()" }
