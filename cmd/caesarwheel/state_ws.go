package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"caesarwheel/internal/cipher"

	"github.com/gorilla/websocket"
)

// ============================================================================
// State WebSocket: hub + per-client pumps + broadcaster
// ============================================================================
//
// This file implements:
//   - A Hub that tracks connected WebSocket clients
//   - Per-client pumps: writes fan out reducer broadcasts, reads accept
//     pointer/control events in the same {type,data} envelope as IPC
//   - A broadcaster loop that reads reducer-emitted broadcasts and fans out
//
// Design constraints:
//   - DaemonState is owned by the interaction loop; never expose *DaemonState to other goroutines.
//   - Initial state snapshot on connect goes through the event loop.
//   - Slow clients are disconnected if they can't keep up.
//
// Outbound messages are JSON text frames: {type, ts, data}. The first message
// on connect is "state_init" with the snapshot in data.
//
// ============================================================================

type wsShiftChangedData struct {
	Shift int `json:"shift"`
}

type wsRotationData struct {
	Rotation float64 `json:"rotation"`
	Phase    Phase   `json:"phase"`
}

type wsModeChangedData struct {
	Mode cipher.Mode `json:"mode"`
}

type wsOutputChangedData struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

type wsHapticData struct {
	Style HapticStyle `json:"style"`
}

type wsNoticeData struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

type wsCopiedData struct {
	Chars int `json:"chars"`
}

// wsClipboardData asks browser hosts to write Text to their clipboard.
type wsClipboardData struct {
	Text string `json:"text"`
}

// wsOutboundEvent is a pre-typed, externally-consumable state event.
type wsOutboundEvent struct {
	Type string
	Data any
	At   time.Time // zero means "use now"
}

// envelope is the wire format envelope for WS messages.
type envelope struct {
	Type string     `json:"type"`
	Ts   *time.Time `json:"ts,omitempty"`
	Data any        `json:"data,omitempty"`
}

func marshalEnvelope(ev wsOutboundEvent) ([]byte, error) {
	ts := ev.At
	if ts.IsZero() {
		ts = time.Now()
	}
	ts = ts.UTC()
	return json.Marshal(envelope{Type: ev.Type, Ts: &ts, Data: ev.Data})
}

// ============================================================================
// Hub
// ============================================================================

type Hub struct {
	logger *slog.Logger

	// Buffered broadcast channel for already-serialized JSON frames.
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu      sync.Mutex
	clients map[*Client]struct{}

	sendBuf int
}

type HubConfig struct {
	// SendBuf is the per-client outbound queue size.
	// If zero, a conservative default is used.
	SendBuf int

	// BroadcastBuf is the hub inbound broadcast queue size.
	// If zero, a conservative default is used.
	BroadcastBuf int
}

// NewHub constructs a hub. Call Run(ctx) to start it.
func NewHub(logger *slog.Logger, cfg HubConfig) *Hub {
	sendBuf := cfg.SendBuf
	if sendBuf <= 0 {
		sendBuf = 32
	}
	bcastBuf := cfg.BroadcastBuf
	if bcastBuf <= 0 {
		bcastBuf = 128
	}

	return &Hub{
		logger:     logger,
		broadcast:  make(chan []byte, bcastBuf),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		clients:    make(map[*Client]struct{}),
		sendBuf:    sendBuf,
	}
}

// Run processes hub events until ctx is canceled.
// It disconnects all clients on shutdown.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("ws hub starting")

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("ws hub stopping (context canceled)")
			h.closeAllClients()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("ws client registered", "remote_addr", c.remoteAddr, "clients", n)

		case c := <-h.unregister:
			h.removeClient(c, "unregister")

		case msg := <-h.broadcast:
			// Collect slow clients first, then remove them after we unlock.
			var slow []*Client

			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					slow = append(slow, c)
				}
			}
			h.mu.Unlock()

			for _, c := range slow {
				h.removeClient(c, "slow_client")
			}
		}
	}
}

// ClientCount reports the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if c.conn != nil {
			_ = c.conn.Close()
		}
		safeCloseChan(c.send)
		delete(h.clients, c)
	}
}

func (h *Hub) removeClient(c *Client, reason string) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		if c.conn != nil {
			_ = c.conn.Close()
		}
		// Closing send signals writePump to exit.
		safeCloseChan(c.send)

		h.logger.Info("ws client disconnected", "remote_addr", c.remoteAddr, "reason", reason, "clients", n)
	}
}

func safeCloseChan(ch chan []byte) {
	defer func() {
		_ = recover() // ignore "close of closed channel"
	}()
	close(ch)
}

// BroadcastBytes enqueues a pre-serialized JSON WS frame for broadcast.
// It never blocks; if the hub queue is full it drops the message.
func (h *Hub) BroadcastBytes(msg []byte) bool {
	select {
	case h.broadcast <- msg:
		return true
	default:
		h.logger.Warn("ws hub broadcast queue full, dropping message", "bytes", len(msg))
		return false
	}
}

// ============================================================================
// Client
// ============================================================================

type Client struct {
	hub *Hub

	conn *websocket.Conn
	send chan []byte

	// events receives inbound pointer/control events; nil makes the client read-only.
	events chan<- Event

	remoteAddr string
	logger     *slog.Logger
}

// NewClient creates a client with a buffered send channel.
func NewClient(hub *Hub, conn *websocket.Conn, events chan<- Event, remoteAddr string, logger *slog.Logger) *Client {
	sendBuf := 32
	if hub != nil && hub.sendBuf > 0 {
		sendBuf = hub.sendBuf
	}
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBuf),
		events:     events,
		remoteAddr: remoteAddr,
		logger:     logger,
	}
}

const (
	writeWait = 5 * time.Second

	pongWait   = 30 * time.Second
	pingPeriod = 20 * time.Second

	// maxInboundMessage bounds a single inbound frame (set_input carries text).
	maxInboundMessage = 1 << 20
)

// wsRotationCoalesceWindow is the maximum time window during which rotation
// frames are coalesced (latest-wins) before broadcasting to clients.
const wsRotationCoalesceWindow = 33 * time.Millisecond

// closeStatus extracts a human-readable websocket close code / text when possible.
func closeStatus(err error) (code int, text string, ok bool) {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code, ce.Text, true
	}
	return 0, "", false
}

// writePump writes messages from the send queue to the websocket.
// It exits on write error or when send is closed.
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Channel closed: hub is disconnecting us.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.logExit("writePump", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logExit("writePump", err)
				return
			}
		}
	}
}

// readPump reads inbound event envelopes and forwards them to the
// interaction loop. It exits on read error, then unregisters the client.
func (c *Client) readPump(ctx context.Context) {
	c.conn.SetReadLimit(maxInboundMessage)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if ctx.Err() != nil {
			return
		}

		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.logExit("readPump", err)
			if c.hub != nil {
				c.hub.unregister <- c
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

		c.handleInbound(data)
	}
}

// handleInbound decodes one inbound frame. Malformed frames are logged and
// ignored; the connection stays open.
func (c *Client) handleInbound(data []byte) {
	if c.events == nil {
		return
	}
	ev, err := UnmarshalEvent(data)
	if err != nil {
		c.logger.Debug("ws inbound event rejected", "remote_addr", c.remoteAddr, "error", err)
		return
	}
	if sh, ok := ev.(SetShift); ok && sh.Origin == "" {
		sh.Origin = "ws"
		ev = sh
	}

	select {
	case c.events <- ev:
	default:
		c.logger.Warn("events queue full; dropping ws event", "remote_addr", c.remoteAddr)
	}
}

func (c *Client) logExit(pump string, err error) {
	if errors.Is(err, websocket.ErrCloseSent) {
		return
	}
	if code, text, ok := closeStatus(err); ok {
		c.logger.Info("ws "+pump+" exiting (close)", "remote_addr", c.remoteAddr, "code", code, "reason", text)
		return
	}
	c.logger.Info("ws "+pump+" exiting", "remote_addr", c.remoteAddr, "error", err)
}

// ============================================================================
// HTTP Handler
// ============================================================================

type StateServer struct {
	logger *slog.Logger

	hub *Hub

	// Required for initial snapshot request on connect (through the event loop)
	// and for inbound client events.
	events chan<- Event
}

// NewStateServer constructs the WS state server components. Call Register on a mux,
// start hub.Run(ctx), and start the broadcaster loop.
func NewStateServer(logger *slog.Logger, events chan<- Event, cfg HubConfig) *StateServer {
	return &StateServer{
		logger: logger,
		hub:    NewHub(logger, cfg),
		events: events,
	}
}

func (s *StateServer) Hub() *Hub { return s.hub }

// Register registers the WS handler on the provided mux.
func (s *StateServer) Register(mux *http.ServeMux, path string) {
	if mux == nil {
		return
	}
	mux.HandleFunc(path, s.handleStateWS)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleStateWS upgrades and registers a client, then sends state_init.
func (s *StateServer) handleStateWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("ws upgrade failed", "error", err)
		return
	}

	client := NewClient(s.hub, conn, s.events, r.RemoteAddr, s.logger)

	// Register client first so broadcasts can reach it.
	s.hub.register <- client

	// Do not tie the pumps to r.Context(): net/http cancels it when the
	// handler returns. The hub and socket errors own the connection lifetime.
	go client.writePump(context.Background())
	go client.readPump(context.Background())

	snap, err := requestSnapshot(r.Context(), s.events, time.Second)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.logger.Warn("ws snapshot request failed", "error", err)
		}
		return
	}

	initMsg, err := marshalEnvelope(wsOutboundEvent{Type: "state_init", Data: snap})
	if err != nil {
		s.logger.Warn("ws state_init marshal failed", "error", err)
		return
	}

	// Enqueue init message; if client is already slow, disconnect.
	select {
	case client.send <- initMsg:
	default:
		s.hub.unregister <- client
	}
}

// ============================================================================
// Broadcaster
// ============================================================================

// RunBroadcaster reads reducer-emitted StateBroadcast events, marshals them, and broadcasts
// them to all hub clients. Intended to run as a single goroutine.
func RunBroadcaster(ctx context.Context, hub *Hub, src <-chan StateBroadcast, logger *slog.Logger) {
	if hub == nil || src == nil {
		return
	}

	// Rate-limit rotation frames: flush the latest pending frame at most once
	// every wsRotationCoalesceWindow, even if frames keep arriving.
	var pendingRot *wsOutboundEvent
	var rotTimer *time.Timer
	var rotTimerCh <-chan time.Time

	emit := func(ev wsOutboundEvent) {
		msg, err := marshalEnvelope(ev)
		if err != nil {
			logger.Warn("ws broadcaster marshal failed", "error", err, "type", ev.Type)
			return
		}
		hub.BroadcastBytes(msg)
	}

	flushPendingRot := func() {
		if pendingRot == nil {
			return
		}
		emit(*pendingRot)
		pendingRot = nil
	}

	stopRotTimer := func() {
		if rotTimer != nil {
			rotTimer.Stop()
		}
		rotTimer = nil
		rotTimerCh = nil
	}

	for {
		select {
		case <-ctx.Done():
			flushPendingRot()
			stopRotTimer()
			return

		case <-rotTimerCh:
			flushPendingRot()
			stopRotTimer()

		case b, ok := <-src:
			if !ok {
				flushPendingRot()
				stopRotTimer()
				logger.Info("ws broadcaster stopping (source ended)")
				return
			}

			ev, ok := convertBroadcast(b)
			if !ok {
				continue
			}

			// Latest-wins for rotation; the timer is not reset on each frame.
			if ev.Type == "rotation" {
				copyEv := ev
				pendingRot = &copyEv
				if rotTimer == nil {
					rotTimer = time.NewTimer(wsRotationCoalesceWindow)
					rotTimerCh = rotTimer.C
				}
				continue
			}

			// Anything else: flush the pending frame first to keep order.
			flushPendingRot()
			stopRotTimer()
			emit(ev)
		}
	}
}

func convertBroadcast(b StateBroadcast) (wsOutboundEvent, bool) {
	switch ev := b.(type) {
	case BroadcastShiftChanged:
		return wsOutboundEvent{Type: "shift_changed", Data: wsShiftChangedData{Shift: ev.Shift}, At: ev.At}, true

	case BroadcastRotation:
		return wsOutboundEvent{Type: "rotation", Data: wsRotationData{Rotation: ev.Rotation, Phase: ev.Phase}, At: ev.At}, true

	case BroadcastModeChanged:
		return wsOutboundEvent{Type: "mode_changed", Data: wsModeChangedData{Mode: ev.Mode}, At: ev.At}, true

	case BroadcastOutputChanged:
		return wsOutboundEvent{Type: "output_changed", Data: wsOutputChangedData{Input: ev.Input, Output: ev.Output}, At: ev.At}, true

	case BroadcastHaptic:
		return wsOutboundEvent{Type: "haptic", Data: wsHapticData{Style: ev.Style}, At: ev.At}, true

	case BroadcastCopied:
		return wsOutboundEvent{Type: "copied", Data: wsCopiedData{Chars: ev.Chars}, At: ev.At}, true

	case BroadcastNotice:
		return wsOutboundEvent{Type: "notice", Data: wsNoticeData{Title: ev.Title, Message: ev.Message}, At: ev.At}, true

	default:
		return wsOutboundEvent{}, false
	}
}
