package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
	"github.com/gorilla/websocket"
)

// Haptic backends (haptics.backend)
const (
	hapticBackendSpeaker = "speaker"
	hapticBackendBridge  = "bridge"
	hapticBackendNone    = "none"
)

// newHaptics builds the configured backend. A nil Haptics (with nil error)
// means pulses are disabled; runEffect reports that as errNoHaptics.
func newHaptics(cfg *Config, logger *slog.Logger) (Haptics, func(), error) {
	noop := func() {}
	if !cfg.Haptics.Enabled {
		return nil, noop, nil
	}

	switch cfg.Haptics.Backend {
	case hapticBackendSpeaker:
		sh := NewSpeakerHaptics(cfg.Haptics.ToneHz, cfg.HapticDuration())
		if err := sh.Initialize(); err != nil {
			return nil, noop, fmt.Errorf("init speaker haptics: %w", err)
		}
		return sh, sh.Cleanup, nil

	case hapticBackendBridge:
		hb, err := NewHapticBridge(cfg.Haptics.BridgeURL, time.Duration(defaultBridgeTimeoutMS)*time.Millisecond, logger)
		if err != nil {
			return nil, noop, err
		}
		hb.durationMS = cfg.Haptics.DurationMS
		return hb, func() { _ = hb.Close() }, nil

	default:
		return nil, noop, nil
	}
}

// ============================================================================
// Speaker haptics
// ============================================================================

const hapticSampleRate = beep.SampleRate(48000)

// SpeakerHaptics renders each pulse as a short enveloped sine click mixed
// into the default audio device.
type SpeakerHaptics struct {
	mu          sync.Mutex
	mixer       *beep.Mixer
	toneHz      float64
	duration    time.Duration
	initialized bool
}

// NewSpeakerHaptics creates the backend; call Initialize before Pulse.
func NewSpeakerHaptics(toneHz float64, duration time.Duration) *SpeakerHaptics {
	return &SpeakerHaptics{
		mixer:    &beep.Mixer{},
		toneHz:   toneHz,
		duration: duration,
	}
}

// Initialize opens the speaker and starts the mixer.
func (s *SpeakerHaptics) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}
	// A small buffer keeps the click close to the detent.
	if err := speaker.Init(hapticSampleRate, hapticSampleRate.N(20*time.Millisecond)); err != nil {
		return err
	}
	speaker.Play(s.mixer)
	s.initialized = true
	return nil
}

// Pulse queues one click. It never waits for playback.
func (s *SpeakerHaptics) Pulse(style HapticStyle) error {
	freq, dur := s.toneHz, s.duration
	if style == HapticSuccess {
		// Success is lower and twice as long so it reads differently from a detent.
		freq, dur = defaultHapticSuccessHz, 2*s.duration
	}

	speaker.Lock()
	defer speaker.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return errors.New("speaker not initialized")
	}
	s.mixer.Add(beep.Take(hapticSampleRate.N(dur), newClickGenerator(hapticSampleRate, freq, dur)))
	return nil
}

// Cleanup silences pending clicks.
func (s *SpeakerHaptics) Cleanup() {
	speaker.Lock()
	defer speaker.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return
	}
	s.mixer.Clear()
	s.initialized = false
}

// clickGenerator is a sine burst with a linear attack and an exponential tail.
type clickGenerator struct {
	sr     beep.SampleRate
	freq   float64
	total  int
	attack int
	pos    int
}

func newClickGenerator(sr beep.SampleRate, freq float64, dur time.Duration) *clickGenerator {
	total := sr.N(dur)
	return &clickGenerator{
		sr:     sr,
		freq:   freq,
		total:  total,
		attack: max(1, total/10),
	}
}

func (g *clickGenerator) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		if g.pos >= g.total {
			return i, i > 0
		}
		t := float64(g.pos) / float64(g.sr)

		var env float64
		if g.pos < g.attack {
			env = float64(g.pos) / float64(g.attack)
		} else {
			env = math.Exp(-5 * float64(g.pos-g.attack) / float64(g.total-g.attack+1))
		}

		v := 0.35 * env * math.Sin(2*math.Pi*g.freq*t)
		samples[i][0] = v
		samples[i][1] = v
		g.pos++
	}
	return len(samples), true
}

func (g *clickGenerator) Err() error { return nil }

// ============================================================================
// WebSocket haptic bridge
// ============================================================================

// hapticBridgeMessage is the JSON frame sent per pulse.
type hapticBridgeMessage struct {
	Type       string      `json:"type"`
	Style      HapticStyle `json:"style"`
	DurationMS int         `json:"duration_ms"`
}

// HapticBridge forwards pulses to a remote vibration endpoint over a
// WebSocket. It connects lazily and backs off after a failure so a missing
// peer costs one dial per backoff window instead of one per detent.
type HapticBridge struct {
	mu      sync.Mutex
	conn    *websocket.Conn
	url     string
	timeout time.Duration
	logger  *slog.Logger

	durationMS int

	retryAt time.Time
	backoff time.Duration
}

// NewHapticBridge validates wsURL; the first connection is made on the first pulse.
func NewHapticBridge(wsURL string, timeout time.Duration, logger *slog.Logger) (*HapticBridge, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid haptics bridge URL: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("invalid haptics bridge URL: scheme must be ws or wss, got %q", u.Scheme)
	}
	return &HapticBridge{
		url:        u.String(),
		timeout:    timeout,
		logger:     logger,
		durationMS: defaultHapticDurationMS,
		backoff:    2 * time.Second,
	}, nil
}

// connectLocked dials the bridge. Caller holds mu.
func (b *HapticBridge) connectLocked() error {
	if b.conn != nil {
		return nil
	}
	if now := time.Now(); now.Before(b.retryAt) {
		return fmt.Errorf("haptics bridge unavailable (retry in %s)", b.retryAt.Sub(now).Round(time.Millisecond))
	}

	d := websocket.Dialer{HandshakeTimeout: b.timeout}
	conn, _, err := d.Dial(b.url, nil)
	if err != nil {
		b.retryAt = time.Now().Add(b.backoff)
		return fmt.Errorf("dial haptics bridge: %w", err)
	}
	b.logger.Info("connected to haptics bridge", "url", b.url)
	b.conn = conn
	return nil
}

// Pulse sends one pulse frame. The connection is dropped on any write error.
func (b *HapticBridge) Pulse(style HapticStyle) error {
	payload, err := json.Marshal(hapticBridgeMessage{Type: "pulse", Style: style, DurationMS: b.durationMS})
	if err != nil {
		return fmt.Errorf("marshal pulse: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.connectLocked(); err != nil {
		return err
	}

	_ = b.conn.SetWriteDeadline(time.Now().Add(b.timeout))
	if err := b.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		_ = b.conn.Close()
		b.conn = nil
		b.retryAt = time.Now().Add(b.backoff)
		return fmt.Errorf("write pulse: %w", err)
	}
	return nil
}

// Close closes the WebSocket connection.
func (b *HapticBridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn != nil {
		err := b.conn.Close()
		b.conn = nil
		return err
	}
	return nil
}
