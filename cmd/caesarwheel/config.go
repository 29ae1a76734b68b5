package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"caesarwheel/internal/cipher"

	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration for the caesarwheel daemon and TUI.
//
// Keep defaults and validation centralized so the rest of the code can assume
// a well-formed config.
type Config struct {
	Wheel   WheelFileConfig  `yaml:"wheel"`
	Spring  SpringConfig     `yaml:"spring"`
	Haptics HapticsConfig    `yaml:"haptics"`
	Server  ServerFileConfig `yaml:"server"`
	IPC     IPCConfig        `yaml:"ipc"`
	Touch   TouchConfig      `yaml:"touch"`
	State   StateConfig      `yaml:"state"`
	Notify  NotifyConfig     `yaml:"notify"`
	Logging LoggingConfig    `yaml:"logging"`
}

type WheelFileConfig struct {
	InitialShift int     `yaml:"initial_shift"`
	ShiftCount   int     `yaml:"shift_count"`
	Size         float64 `yaml:"size"`
	UpdateHz     int     `yaml:"update_hz"`
	Mode         string  `yaml:"mode"` // "encrypt" or "decrypt"
}

// HapticsConfig selects the pulse backend.
//
//   - speaker: a short sine click on the default audio device
//   - bridge: JSON pulses sent over a WebSocket (e.g. to a phone or a vibration motor controller)
//   - none: haptics disabled; pulses report a notice once per drag
type HapticsConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Backend    string  `yaml:"backend"`
	BridgeURL  string  `yaml:"bridge_url,omitempty"`
	ToneHz     float64 `yaml:"tone_hz"`
	DurationMS int     `yaml:"duration_ms"`
}

type ServerFileConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	WSPath  string `yaml:"ws_path"`
}

type IPCConfig struct {
	SocketPath string `yaml:"socket_path"`
}

// TouchConfig maps an evdev touchscreen onto the wheel. CenterX/CenterY are
// in raw device units.
type TouchConfig struct {
	Enabled bool     `yaml:"enabled"`
	Devices []string `yaml:"devices,omitempty"`
	CenterX float64  `yaml:"center_x"`
	CenterY float64  `yaml:"center_y"`
}

type StateConfig struct {
	// Path of the JSON file that remembers shift and mode. Empty disables persistence.
	Path string `yaml:"path"`
}

// NotifyConfig mirrors notices (haptics or clipboard failures) to desktop
// notifications in daemon mode.
type NotifyConfig struct {
	Desktop bool `yaml:"desktop"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	// File receives logs in TUI mode, where stdout belongs to the screen.
	File string `yaml:"file,omitempty"`
}

// DefaultConfig returns a fully-populated Config with defaults.
// Keep this aligned with constants.go.
func DefaultConfig() Config {
	return Config{
		Wheel: WheelFileConfig{
			InitialShift: defaultInitialShift,
			ShiftCount:   defaultShiftCount,
			Size:         defaultWheelSize,
			UpdateHz:     defaultUpdateHz,
			Mode:         cipher.Encrypt.String(),
		},
		Spring: DefaultSpringConfig(),
		Haptics: HapticsConfig{
			Enabled:    true,
			Backend:    defaultHapticBackend,
			ToneHz:     defaultHapticToneHz,
			DurationMS: defaultHapticDurationMS,
		},
		Server: ServerFileConfig{
			Enabled: true,
			Addr:    defaultServerAddr,
			WSPath:  defaultWSPath,
		},
		IPC: IPCConfig{
			SocketPath: defaultIPCSocketPath,
		},
		Touch: TouchConfig{
			Enabled: false,
			Devices: []string{defaultTouchDevice},
		},
		State: StateConfig{
			Path: defaultStatePath,
		},
		Logging: LoggingConfig{
			Level: defaultLogLevel,
		},
	}
}

// LoadConfigFile reads and parses a YAML config file on top of DefaultConfig.
//
// Unknown fields are rejected (helps catch typos) via KnownFields(true).
func LoadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	// Ensure there's no trailing garbage (only whitespace/comments are allowed after the document).
	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

// FlagOverrides holds optional flag values; each non-nil pointer is applied
// on top of the loaded config (even if it is a zero value).
type FlagOverrides struct {
	InitialShift *int
	ShiftCount   *int
	Size         *float64
	UpdateHz     *int
	Mode         *string

	HapticsEnabled *bool
	HapticsBackend *string
	HapticsBridge  *string

	ServerEnabled *bool
	ServerAddr    *string

	IPCSocketPath *string

	TouchEnabled *bool
	TouchDevices []string

	StatePath *string

	DesktopNotify *bool

	LogLevel *string
	LogFile  *string
}

// Apply merges the overrides into cfg.
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}

	if o.InitialShift != nil {
		cfg.Wheel.InitialShift = *o.InitialShift
	}
	if o.ShiftCount != nil {
		cfg.Wheel.ShiftCount = *o.ShiftCount
	}
	if o.Size != nil {
		cfg.Wheel.Size = *o.Size
	}
	if o.UpdateHz != nil {
		cfg.Wheel.UpdateHz = *o.UpdateHz
	}
	if o.Mode != nil {
		cfg.Wheel.Mode = *o.Mode
	}

	if o.HapticsEnabled != nil {
		cfg.Haptics.Enabled = *o.HapticsEnabled
	}
	if o.HapticsBackend != nil {
		cfg.Haptics.Backend = *o.HapticsBackend
	}
	if o.HapticsBridge != nil {
		cfg.Haptics.BridgeURL = *o.HapticsBridge
	}

	if o.ServerEnabled != nil {
		cfg.Server.Enabled = *o.ServerEnabled
	}
	if o.ServerAddr != nil {
		cfg.Server.Addr = *o.ServerAddr
	}

	if o.IPCSocketPath != nil {
		cfg.IPC.SocketPath = *o.IPCSocketPath
	}

	if o.TouchEnabled != nil {
		cfg.Touch.Enabled = *o.TouchEnabled
	}
	if len(o.TouchDevices) > 0 {
		cfg.Touch.Devices = o.TouchDevices
	}

	if o.StatePath != nil {
		cfg.State.Path = *o.StatePath
	}

	if o.DesktopNotify != nil {
		cfg.Notify.Desktop = *o.DesktopNotify
	}

	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
	if o.LogFile != nil {
		cfg.Logging.File = *o.LogFile
	}
}

// positiveFinite reports whether x is a finite number above zero.
func positiveFinite(x float64) bool {
	return x > 0 && !math.IsInf(x, 1)
}

// Validate checks config invariants and returns a user-friendly error.
// This is intended to be called after defaults + file + overrides are applied.
//
// An out-of-range initial shift is not an error; see ClampInitialShift.
func (c *Config) Validate() error {
	// Wheel
	if !positiveFinite(c.Wheel.Size) {
		return errors.New("wheel.size must be a finite number > 0")
	}
	if c.Wheel.ShiftCount < 2 || c.Wheel.ShiftCount > cipher.AlphabetSize {
		return fmt.Errorf("wheel.shift_count must be between 2 and %d", cipher.AlphabetSize)
	}
	if c.Wheel.UpdateHz <= 0 || c.Wheel.UpdateHz > 1000 {
		return errors.New("wheel.update_hz must be between 1 and 1000")
	}
	if _, err := cipher.ParseMode(c.Wheel.Mode); err != nil {
		return fmt.Errorf("wheel.mode: %w", err)
	}

	// Spring
	if !positiveFinite(c.Spring.Damping) {
		return errors.New("spring.damping must be a finite number > 0")
	}
	if !positiveFinite(c.Spring.Stiffness) {
		return errors.New("spring.stiffness must be a finite number > 0")
	}
	if !positiveFinite(c.Spring.Mass) {
		return errors.New("spring.mass must be a finite number > 0")
	}
	if !positiveFinite(c.Spring.RestSpeed) {
		return errors.New("spring.rest_speed must be a finite number > 0")
	}
	if !positiveFinite(c.Spring.RestDisplacement) {
		return errors.New("spring.rest_displacement must be a finite number > 0")
	}
	if !positiveFinite(c.Spring.AngularFrequency()) || !positiveFinite(c.Spring.DampingRatio()) {
		return errors.New("spring: stiffness, damping and mass give a non-finite spring")
	}

	// Haptics
	if c.Haptics.Enabled {
		switch c.Haptics.Backend {
		case hapticBackendSpeaker:
			if !positiveFinite(c.Haptics.ToneHz) {
				return errors.New("haptics.tone_hz must be a finite number > 0")
			}
			if c.Haptics.DurationMS <= 0 {
				return errors.New("haptics.duration_ms must be > 0")
			}
		case hapticBackendBridge:
			if c.Haptics.BridgeURL == "" {
				return errors.New("haptics.backend is bridge but haptics.bridge_url is empty")
			}
		case hapticBackendNone:
		default:
			return fmt.Errorf("haptics.backend must be %q, %q or %q", hapticBackendSpeaker, hapticBackendBridge, hapticBackendNone)
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Addr == "" {
			return errors.New("server.addr must not be empty")
		}
		if c.Server.WSPath == "" || c.Server.WSPath[0] != '/' {
			return errors.New("server.ws_path must start with /")
		}
	}

	// Touch
	if c.Touch.Enabled {
		if len(c.Touch.Devices) == 0 {
			return errors.New("touch.devices must not be empty when touch.enabled is true")
		}
		for i, dev := range c.Touch.Devices {
			if dev == "" {
				return fmt.Errorf("touch.devices[%d] is empty", i)
			}
		}
	}

	// Logging
	if c.Logging.Level == "" {
		return errors.New("logging.level must not be empty")
	}
	if _, err := parseLogLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}

	return nil
}

// ClampInitialShift forces wheel.initial_shift into [0, shift_count-1].
// It reports the original value when it had to change it, so callers can log it.
func (c *Config) ClampInitialShift() (original int, clamped bool) {
	original = c.Wheel.InitialShift
	c.Wheel.InitialShift = clampShift(original, c.Wheel.ShiftCount)
	return original, c.Wheel.InitialShift != original
}

// InitialMode returns the parsed wheel.mode (encrypt when invalid).
func (c *Config) InitialMode() cipher.Mode {
	m, err := cipher.ParseMode(c.Wheel.Mode)
	if err != nil {
		return cipher.Encrypt
	}
	return m
}

// ToWheelConfig converts file config into the reducer's config.
func (c *Config) ToWheelConfig() WheelConfig {
	return WheelConfig{
		ShiftCount: c.Wheel.ShiftCount,
		Settler:    newSpringSettler(c.Spring),
		MaxDt:      2.0 / float64(c.Wheel.UpdateHz),
	}
}

// HapticDuration is haptics.duration_ms as a time.Duration.
func (c *Config) HapticDuration() time.Duration {
	return time.Duration(c.Haptics.DurationMS) * time.Millisecond
}

// ExpandPath expands a leading "~" in a path using $HOME.
func ExpandPath(p string) string {
	if p == "" {
		return p
	}
	if p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}
