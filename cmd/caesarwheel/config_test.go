package main

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"caesarwheel/internal/cipher"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() = %v", err)
	}
	if cfg.Wheel.InitialShift != 3 {
		t.Fatalf("default initial shift = %d, want 3", cfg.Wheel.InitialShift)
	}
	if cfg.Wheel.ShiftCount != 26 {
		t.Fatalf("default shift count = %d, want 26", cfg.Wheel.ShiftCount)
	}
	if cfg.InitialMode() != cipher.Encrypt {
		t.Fatalf("default mode = %v, want encrypt", cfg.InitialMode())
	}
}

func TestLoadConfigFile_OverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
wheel:
  initial_shift: 13
  mode: decrypt
spring:
  damping: 20
  stiffness: 200
  mass: 1
  rest_speed: 0.05
  rest_displacement: 0.05
haptics:
  enabled: true
  backend: none
logging:
  level: debug
`)

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	if cfg.Wheel.InitialShift != 13 {
		t.Fatalf("initial_shift = %d, want 13", cfg.Wheel.InitialShift)
	}
	if cfg.InitialMode() != cipher.Decrypt {
		t.Fatalf("mode = %v, want decrypt", cfg.InitialMode())
	}
	if cfg.Spring.Stiffness != 200 {
		t.Fatalf("spring.stiffness = %v, want 200", cfg.Spring.Stiffness)
	}
	// Untouched sections keep their defaults.
	if cfg.Wheel.ShiftCount != defaultShiftCount || cfg.Server.Addr != defaultServerAddr {
		t.Fatalf("defaults not preserved: shift_count=%d addr=%q", cfg.Wheel.ShiftCount, cfg.Server.Addr)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLoadConfigFile_RejectsUnknownField(t *testing.T) {
	path := writeConfig(t, "wheel:\n  initial_shfit: 4\n")
	if _, err := LoadConfigFile(path); err == nil {
		t.Fatalf("expected error for unknown field")
	}
}

func TestLoadConfigFile_RejectsTrailingDocument(t *testing.T) {
	path := writeConfig(t, "wheel:\n  initial_shift: 4\n---\nwheel:\n  initial_shift: 5\n")
	_, err := LoadConfigFile(path)
	if err == nil || !strings.Contains(err.Error(), "trailing document") {
		t.Fatalf("err = %v, want trailing document error", err)
	}
}

func TestLoadConfigFile_InfiniteSpringFailsValidation(t *testing.T) {
	path := writeConfig(t, "spring:\n  stiffness: .inf\n")
	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	if !math.IsInf(cfg.Spring.Stiffness, 1) {
		t.Fatalf("stiffness = %v, want +Inf from .inf", cfg.Spring.Stiffness)
	}
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "spring.stiffness") {
		t.Fatalf("Validate() = %v, want spring.stiffness error", err)
	}
}

func TestLoadConfigFile_Errors(t *testing.T) {
	if _, err := LoadConfigFile(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
	if _, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestValidate_Errors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero size", func(c *Config) { c.Wheel.Size = 0 }, "wheel.size"},
		{"negative size", func(c *Config) { c.Wheel.Size = -5 }, "wheel.size"},
		{"one position", func(c *Config) { c.Wheel.ShiftCount = 1 }, "wheel.shift_count"},
		{"too many positions", func(c *Config) { c.Wheel.ShiftCount = 27 }, "wheel.shift_count"},
		{"update hz", func(c *Config) { c.Wheel.UpdateHz = 0 }, "wheel.update_hz"},
		{"mode", func(c *Config) { c.Wheel.Mode = "sideways" }, "wheel.mode"},
		{"damping", func(c *Config) { c.Spring.Damping = 0 }, "spring.damping"},
		{"mass", func(c *Config) { c.Spring.Mass = -1 }, "spring.mass"},
		{"infinite stiffness", func(c *Config) { c.Spring.Stiffness = math.Inf(1) }, "spring.stiffness"},
		{"nan rest speed", func(c *Config) { c.Spring.RestSpeed = math.NaN() }, "spring.rest_speed"},
		{"overflowing spring", func(c *Config) { c.Spring.Stiffness = 1e308; c.Spring.Mass = 1e-308 }, "non-finite spring"},
		{"infinite size", func(c *Config) { c.Wheel.Size = math.Inf(1) }, "wheel.size"},
		{"backend", func(c *Config) { c.Haptics.Backend = "rumble" }, "haptics.backend"},
		{"bridge url", func(c *Config) { c.Haptics.Backend = hapticBackendBridge }, "bridge_url"},
		{"ws path", func(c *Config) { c.Server.WSPath = "ws" }, "server.ws_path"},
		{"touch devices", func(c *Config) { c.Touch.Enabled = true; c.Touch.Devices = nil }, "touch.devices"},
		{"log level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("Validate() = %v, want error mentioning %q", err, tc.want)
			}
		})
	}
}

func TestValidate_DisabledSectionsAreNotChecked(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Haptics.Enabled = false
	cfg.Haptics.Backend = "rumble"
	cfg.Server.Enabled = false
	cfg.Server.WSPath = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil for disabled sections", err)
	}
}

func TestClampInitialShift(t *testing.T) {
	cases := []struct {
		in, want int
		clamped  bool
	}{
		{3, 3, false},
		{0, 0, false},
		{25, 25, false},
		{30, 25, true},
		{-4, 0, true},
	}
	for _, tc := range cases {
		cfg := DefaultConfig()
		cfg.Wheel.InitialShift = tc.in
		orig, clamped := cfg.ClampInitialShift()
		if orig != tc.in || clamped != tc.clamped || cfg.Wheel.InitialShift != tc.want {
			t.Fatalf("ClampInitialShift(%d) = (%d, %v) shift=%d, want (%d, %v) shift=%d",
				tc.in, orig, clamped, cfg.Wheel.InitialShift, tc.in, tc.clamped, tc.want)
		}
	}
}

func TestFlagOverrides_Apply(t *testing.T) {
	shift := 9
	mode := "decrypt"
	server := false
	desktop := true
	cfg := DefaultConfig()

	FlagOverrides{
		InitialShift:  &shift,
		Mode:          &mode,
		ServerEnabled: &server,
		TouchDevices:  []string{"/dev/input/event3"},
		DesktopNotify: &desktop,
	}.Apply(&cfg)

	if cfg.Wheel.InitialShift != 9 || cfg.Wheel.Mode != "decrypt" || cfg.Server.Enabled {
		t.Fatalf("overrides not applied: %+v %+v", cfg.Wheel, cfg.Server)
	}
	if !cfg.Notify.Desktop {
		t.Fatalf("notify.desktop not applied")
	}
	if len(cfg.Touch.Devices) != 1 || cfg.Touch.Devices[0] != "/dev/input/event3" {
		t.Fatalf("touch devices = %v", cfg.Touch.Devices)
	}
	// Nil pointers leave the config alone.
	if cfg.Wheel.UpdateHz != defaultUpdateHz {
		t.Fatalf("update_hz changed to %d", cfg.Wheel.UpdateHz)
	}
}

func TestToWheelConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Wheel.UpdateHz = 100
	wc := cfg.ToWheelConfig()
	if wc.ShiftCount != 26 || wc.Settler == nil {
		t.Fatalf("ToWheelConfig = %+v", wc)
	}
	if wc.MaxDt != 0.02 {
		t.Fatalf("MaxDt = %v, want 0.02", wc.MaxDt)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := ExpandPath("~/x/y"); got != filepath.Join(home, "x/y") {
		t.Fatalf("ExpandPath(~/x/y) = %q", got)
	}
	if got := ExpandPath("/abs"); got != "/abs" {
		t.Fatalf("ExpandPath(/abs) = %q", got)
	}
	if got := ExpandPath(""); got != "" {
		t.Fatalf("ExpandPath(\"\") = %q", got)
	}
}
