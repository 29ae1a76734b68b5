package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"caesarwheel/internal/store"

	"github.com/gdamore/tcell/v2"
)

const version = "1.0.0"

func printVersion() {
	fmt.Printf("caesarwheel v%s\n", version)
	fmt.Println("Rotary Caesar-shift selector")
}

func printUsage() {
	printVersion()
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  caesarwheel [OPTIONS]")
	fmt.Println("  caesarwheel tui [OPTIONS]")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Turns a circular drag gesture into a Caesar shift (0-25) with a detent")
	fmt.Println("  pulse on every change and a spring snap to the nearest letter on release.")
	fmt.Println("  The daemon serves the wheel over WebSocket, HTTP and a unix socket; the")
	fmt.Println("  tui subcommand runs the same wheel in the terminal with the mouse.")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -config string")
	fmt.Println("        Path to YAML config file (defaults are used when omitted)")
	fmt.Println()
	fmt.Println("  -shift int")
	fmt.Printf("        Initial shift, clamped into range (default %d)\n", defaultInitialShift)
	fmt.Println()
	fmt.Println("  -shift-count int")
	fmt.Printf("        Number of wheel positions, 2-26 (default %d)\n", defaultShiftCount)
	fmt.Println()
	fmt.Println("  -size float")
	fmt.Printf("        Wheel diameter in host units (default %.0f)\n", defaultWheelSize)
	fmt.Println()
	fmt.Println("  -update-hz int")
	fmt.Printf("        Interaction loop frequency in Hz (default %d)\n", defaultUpdateHz)
	fmt.Println()
	fmt.Println("  -mode string")
	fmt.Println("        Initial mode: encrypt|decrypt (default \"encrypt\")")
	fmt.Println()
	fmt.Println("  -haptics bool")
	fmt.Println("        Enable haptic pulses (default true)")
	fmt.Println()
	fmt.Println("  -haptics-backend string")
	fmt.Printf("        Haptics backend: speaker|bridge|none (default %q)\n", defaultHapticBackend)
	fmt.Println()
	fmt.Println("  -haptics-bridge-url string")
	fmt.Println("        WebSocket URL of the vibration bridge (backend=bridge)")
	fmt.Println()
	fmt.Println("  -server bool")
	fmt.Println("        Enable the HTTP/WebSocket server (default true)")
	fmt.Println()
	fmt.Println("  -server-addr string")
	fmt.Printf("        HTTP listen address (default %q)\n", defaultServerAddr)
	fmt.Println()
	fmt.Println("  -ipc-socket string")
	fmt.Printf("        Unix domain socket path for IPC (default %q)\n", defaultIPCSocketPath)
	fmt.Println()
	fmt.Println("  -touch bool")
	fmt.Println("        Read pointer gestures from an evdev touchscreen (default false)")
	fmt.Println()
	fmt.Println("  -touch-device string")
	fmt.Println("        Touch input device; repeat to monitor several")
	fmt.Println()
	fmt.Println("  -state string")
	fmt.Printf("        Selection file, empty disables persistence (default %q)\n", defaultStatePath)
	fmt.Println()
	fmt.Println("  -desktop-notify bool")
	fmt.Println("        Mirror notices to desktop notifications in daemon mode (default false)")
	fmt.Println()
	fmt.Println("  -log-level string")
	fmt.Println("        Log level: error, warn, info, debug (default \"info\")")
	fmt.Println()
	fmt.Println("  -log-file string")
	fmt.Println("        Log destination in tui mode (logs are discarded when empty)")
	fmt.Println()
	fmt.Println("  -version")
	fmt.Println("        Print version and exit")
	fmt.Println()
	fmt.Println("  -help")
	fmt.Println("        Print this help message")
	fmt.Println()
	fmt.Println("SUBCOMMANDS:")
	fmt.Println("  tui")
	fmt.Println("        Terminal wheel. Drag with the mouse, Left/Right step the shift,")
	fmt.Println("        type to edit the message, Tab toggles the mode, Ctrl-Y copies,")
	fmt.Println("        Ctrl-U clears, Esc quits. Accepts the same options.")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Start the daemon with a config file")
	fmt.Println("  caesarwheel -config ~/.config/caesarwheel/config.yaml")
	fmt.Println()
	fmt.Println("  # Terminal wheel starting at ROT13, logging to a file")
	fmt.Println("  caesarwheel tui -shift 13 -log-file /tmp/caesarwheel.log")
	fmt.Println()
	fmt.Println("NOTES:")
	fmt.Println("  - A saved selection (shift and mode) takes precedence over -shift/-mode")
	fmt.Println("  - Haptics and clipboard are best-effort; failures show up as notices")
	fmt.Println()
}

// stringList is a repeatable string flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// cliOptions are the parsed command-line options shared by the daemon and tui.
type cliOptions struct {
	ConfigPath  string
	ShowVersion bool
	ShowHelp    bool
	Overrides   FlagOverrides
}

// parseFlags parses args into options. Only flags that were actually given
// end up as overrides, so a config file value is never clobbered by a default.
func parseFlags(fs *flag.FlagSet, args []string) (cliOptions, error) {
	var (
		configPath     = fs.String("config", "", "Path to YAML config file")
		shift          = fs.Int("shift", defaultInitialShift, "Initial shift")
		shiftCount     = fs.Int("shift-count", defaultShiftCount, "Number of wheel positions")
		size           = fs.Float64("size", defaultWheelSize, "Wheel diameter in host units")
		updateHz       = fs.Int("update-hz", defaultUpdateHz, "Interaction loop frequency in Hz")
		mode           = fs.String("mode", "encrypt", "Initial mode: encrypt|decrypt")
		hapticsEnabled = fs.Bool("haptics", true, "Enable haptic pulses")
		hapticsBackend = fs.String("haptics-backend", defaultHapticBackend, "Haptics backend: speaker|bridge|none")
		hapticsBridge  = fs.String("haptics-bridge-url", "", "WebSocket URL of the vibration bridge")
		serverEnabled  = fs.Bool("server", true, "Enable the HTTP/WebSocket server")
		serverAddr     = fs.String("server-addr", defaultServerAddr, "HTTP listen address")
		ipcSocketPath  = fs.String("ipc-socket", defaultIPCSocketPath, "Unix domain socket path for IPC")
		touchEnabled   = fs.Bool("touch", false, "Read pointer gestures from an evdev touchscreen")
		statePath      = fs.String("state", defaultStatePath, "Selection file (empty disables persistence)")
		desktopNotify  = fs.Bool("desktop-notify", false, "Mirror notices to desktop notifications")
		logLevel       = fs.String("log-level", defaultLogLevel, "Log level: error, warn, info, debug")
		logFile        = fs.String("log-file", "", "Log destination in tui mode")
		showVersion    = fs.Bool("version", false, "Print version and exit")
		showHelp       = fs.Bool("help", false, "Print help message")
	)
	var touchDevices stringList
	fs.Var(&touchDevices, "touch-device", "Touch input device (repeatable)")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, err
	}

	opts := cliOptions{ConfigPath: *configPath, ShowVersion: *showVersion, ShowHelp: *showHelp}
	o := &opts.Overrides
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "shift":
			o.InitialShift = shift
		case "shift-count":
			o.ShiftCount = shiftCount
		case "size":
			o.Size = size
		case "update-hz":
			o.UpdateHz = updateHz
		case "mode":
			o.Mode = mode
		case "haptics":
			o.HapticsEnabled = hapticsEnabled
		case "haptics-backend":
			o.HapticsBackend = hapticsBackend
		case "haptics-bridge-url":
			o.HapticsBridge = hapticsBridge
		case "server":
			o.ServerEnabled = serverEnabled
		case "server-addr":
			o.ServerAddr = serverAddr
		case "ipc-socket":
			o.IPCSocketPath = ipcSocketPath
		case "touch":
			o.TouchEnabled = touchEnabled
		case "touch-device":
			o.TouchDevices = touchDevices
		case "state":
			o.StatePath = statePath
		case "desktop-notify":
			o.DesktopNotify = desktopNotify
		case "log-level":
			o.LogLevel = logLevel
		case "log-file":
			o.LogFile = logFile
		}
	})
	return opts, nil
}

// loadConfig resolves defaults, the optional file and the overrides, then validates.
func loadConfig(opts cliOptions) (Config, error) {
	cfg := DefaultConfig()
	if opts.ConfigPath != "" {
		var err error
		if cfg, err = LoadConfigFile(opts.ConfigPath); err != nil {
			return Config{}, err
		}
	}
	opts.Overrides.Apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// openSelection opens the selection store and builds the initial state from
// it, falling back to the configured shift and mode. A nil store means
// persistence is disabled or unavailable.
func openSelection(cfg *Config, logger *slog.Logger) (*DaemonState, *store.FileStore) {
	shift, mode := cfg.Wheel.InitialShift, cfg.InitialMode()

	if cfg.State.Path == "" {
		return NewDaemonState(shift, mode, cfg.Wheel.ShiftCount), nil
	}

	st, ok, err := store.Open(ExpandPath(cfg.State.Path))
	if err != nil {
		logger.Warn("selection store unavailable; not persisting", "path", cfg.State.Path, "error", err)
		return NewDaemonState(shift, mode, cfg.Wheel.ShiftCount), nil
	}
	if ok {
		sel := st.Selection()
		shift, mode = clampShift(sel.Shift, cfg.Wheel.ShiftCount), sel.Mode
		logger.Info("restored selection", "shift", shift, "mode", mode, "saved_at", sel.UpdatedAt)
	}
	return NewDaemonState(shift, mode, cfg.Wheel.ShiftCount), st
}

// saveSelection writes the final shift and mode back to the store.
func saveSelection(st *store.FileStore, snap StateSnapshot, logger *slog.Logger) {
	if st == nil {
		return
	}
	if err := st.Save(store.Selection{Shift: snap.Shift, Mode: snap.Mode}); err != nil {
		logger.Warn("failed to save selection", "path", st.Path(), "error", err)
	}
}

// shiftHooks returns the change callbacks for committed shifts.
func shiftHooks(st *store.FileStore, logger *slog.Logger) []ShiftHook {
	hooks := []ShiftHook{func(shift int) error {
		logger.Info("shift changed", "shift", shift)
		return nil
	}}
	if st != nil {
		hooks = append(hooks, st.SaveShift)
	}
	return hooks
}

func main() {
	args := os.Args[1:]
	tuiMode := len(args) > 0 && args[0] == "tui"
	name := "caesarwheel"
	if tuiMode {
		args = args[1:]
		name = "caesarwheel tui"
	}

	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.Usage = printUsage
	opts, err := parseFlags(fs, args)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	if opts.ShowHelp {
		printUsage()
		return
	}
	if opts.ShowVersion {
		printVersion()
		return
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if tuiMode {
		err = runTUIMain(ctx, &cfg)
	} else {
		err = runDaemonMain(ctx, &cfg)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// runDaemonMain runs the headless wheel until ctx is canceled.
func runDaemonMain(ctx context.Context, cfg *Config) error {
	logLevel, _ := parseLogLevel(cfg.Logging.Level) // validated
	logger := setupLogger(logLevel, nil)

	if original, clamped := cfg.ClampInitialShift(); clamped {
		logger.Warn("initial shift out of range; clamped", "requested", original, "shift", cfg.Wheel.InitialShift)
	}

	state, st := openSelection(cfg, logger)

	haptics, closeHaptics, err := newHaptics(cfg, logger)
	if err != nil {
		logger.Warn("haptics unavailable", "backend", cfg.Haptics.Backend, "error", err)
	}
	defer closeHaptics()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan Event, defaultEventsBuffer)
	broadcasts := make(chan StateBroadcast, defaultBroadcastBuffer)
	handoff := NewHandoff(defaultHandoffBuffer)

	ws := NewStateServer(logger, events, HubConfig{})
	go ws.Hub().Run(ctx)

	fx := Effects{
		Haptics:   haptics,
		Clipboard: hubClipboard{hub: ws.Hub()},
		OnShift:   shiftHooks(st, logger),
	}

	var wsSrc <-chan StateBroadcast = broadcasts
	if cfg.Notify.Desktop {
		wsSrc = teeNotices(ctx, broadcasts, desktopNotifier{}, logger)
	}

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		runDaemon(ctx, events, handoff, broadcasts, cfg.ToWheelConfig(), state, cfg.Wheel.UpdateHz, logger)
	}()
	go func() {
		defer wg.Done()
		runEffects(ctx, handoff, fx, events, logger)
	}()
	go func() {
		defer wg.Done()
		RunBroadcaster(ctx, ws.Hub(), wsSrc, logger)
	}()

	fatal := make(chan error, 2)
	go func() {
		if err := runIPCServer(ctx, cfg.IPC.SocketPath, events, logger); err != nil {
			fatal <- fmt.Errorf("IPC server: %w", err)
		}
	}()
	if cfg.Server.Enabled {
		mux := newHTTPMux(ws, cfg.Server.WSPath, events, logger)
		go func() {
			if err := runHTTPServer(ctx, cfg.Server.Addr, mux, logger); err != nil {
				fatal <- fmt.Errorf("http server: %w", err)
			}
		}()
	}
	if cfg.Touch.Enabled {
		go func() {
			if err := runTouchInput(ctx, cfg.Touch, events, logger); err != nil && !errors.Is(err, context.Canceled) {
				// Touch is one input among several; keep serving the others.
				logger.Error("touch input stopped", "error", err)
			}
		}()
	}

	logger.Debug("configuration",
		"shift", state.Wheel.Shift,
		"shift_count", cfg.Wheel.ShiftCount,
		"mode", state.Message.Mode,
		"update_hz", cfg.Wheel.UpdateHz,
		"spring_omega", cfg.Spring.AngularFrequency(),
		"spring_zeta", cfg.Spring.DampingRatio(),
		"haptics_backend", cfg.Haptics.Backend,
		"state_path", cfg.State.Path)
	listenInfo := []any{"version", version, "ipc", cfg.IPC.SocketPath, "update_rate_hz", cfg.Wheel.UpdateHz}
	if cfg.Server.Enabled {
		listenInfo = append(listenInfo, "http", cfg.Server.Addr, "ws_path", cfg.Server.WSPath)
	}
	if cfg.Touch.Enabled {
		listenInfo = append(listenInfo, "touch", strings.Join(cfg.Touch.Devices, ","))
	}
	logger.Info("listening", listenInfo...)

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case runErr = <-fatal:
		logger.Error("shutting down", "error", runErr)
	}

	// Take the final snapshot before the loop stops.
	if st != nil {
		snapCtx, snapCancel := context.WithTimeout(context.Background(), time.Second)
		if snap, err := requestSnapshot(snapCtx, events, time.Second); err == nil {
			saveSelection(st, snap, logger)
		} else {
			logger.Warn("no final snapshot; selection not saved", "error", err)
		}
		snapCancel()
	}

	cancel()
	wg.Wait()
	return runErr
}

// runTUIMain runs the terminal wheel until the user quits or ctx is canceled.
func runTUIMain(ctx context.Context, cfg *Config) error {
	logLevel, _ := parseLogLevel(cfg.Logging.Level)
	w, closeLog, err := openLogFile(cfg.Logging.File)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()
	logger := setupLogger(logLevel, w)

	if original, clamped := cfg.ClampInitialShift(); clamped {
		logger.Warn("initial shift out of range; clamped", "requested", original, "shift", cfg.Wheel.InitialShift)
	}

	state, st := openSelection(cfg, logger)

	haptics, closeHaptics, err := newHaptics(cfg, logger)
	if err != nil {
		logger.Warn("haptics unavailable", "backend", cfg.Haptics.Backend, "error", err)
	}
	defer closeHaptics()

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("open terminal: %w", err)
	}

	if _, err := runTUI(ctx, cfg, state, tuiDeps{
		Screen:  screen,
		Haptics: haptics,
		OnShift: shiftHooks(st, logger),
	}, logger); err != nil {
		return err
	}

	// The interaction loop has stopped, so state can be read directly.
	saveSelection(st, state.Snapshot(cfg.Wheel.ShiftCount), logger)
	return nil
}
