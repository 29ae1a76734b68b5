package main

// Linux input event types and codes (from <linux/input.h>)
const (
	EV_SYN = 0x00
	EV_KEY = 0x01
	EV_ABS = 0x03

	SYN_REPORT = 0

	BTN_TOUCH = 0x14a

	ABS_X              = 0x00
	ABS_Y              = 0x01
	ABS_MT_POSITION_X  = 0x35
	ABS_MT_POSITION_Y  = 0x36
	ABS_MT_TRACKING_ID = 0x39
)

// Input event value constants
const (
	evValueRelease = 0
	evValuePress   = 1
)

// Wheel defaults (mirrored by DefaultConfig)
const (
	defaultInitialShift = 3
	defaultShiftCount   = 26   // one bucket per letter
	defaultWheelSize    = 24.0 // rendered diameter in host units (cells for the TUI)
	defaultUpdateHz     = 60   // interaction loop tick rate (Hz)

	// Spring settle. These produce omega ~= 14.1 rad/s, zeta ~= 0.71.
	defaultSpringDamping          = 12.0
	defaultSpringStiffness        = 120.0
	defaultSpringMass             = 0.6
	defaultSpringRestSpeed        = 0.01 // deg/s
	defaultSpringRestDisplacement = 0.01 // deg

	// Upper bound on settle ticks before the rotation is snapped onto the target.
	maxSettleSteps = 600

	// Haptic click
	defaultHapticToneHz     = 1800.0
	defaultHapticDurationMS = 12
	defaultHapticSuccessHz  = 1200.0

	defaultHandoffBuffer   = 64
	defaultEventsBuffer    = 128
	defaultBroadcastBuffer = 256
	defaultCopiedBannerMS  = 2000
	defaultBridgeTimeoutMS = 500
)

// Host defaults
const (
	defaultServerAddr    = "127.0.0.1:3030"
	defaultWSPath        = "/ws"
	defaultIPCSocketPath = "/tmp/caesarwheel.sock"
	defaultStatePath     = "~/.local/state/caesarwheel/state.json"
	defaultHapticBackend = "speaker"
	defaultTouchDevice   = "/dev/input/event0"
	defaultLogLevel      = "info"
)
