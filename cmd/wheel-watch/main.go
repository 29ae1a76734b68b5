// Command wheel-watch prints the state stream of a running caesarwheel.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

// frame is the daemon's outbound envelope.
type frame struct {
	Type string          `json:"type"`
	Ts   time.Time       `json:"ts"`
	Data json.RawMessage `json:"data"`
}

func main() {
	var (
		wsURL     = flag.String("ws", "ws://127.0.0.1:3030/ws", "caesarwheel websocket URL")
		rotation  = flag.Bool("rotation", false, "also print rotation frames (up to ~30/s)")
		rawOutput = flag.Bool("raw", false, "print every frame as received")
	)
	flag.Parse()

	u, err := url.Parse(*wsURL)
	if err != nil {
		log.Fatalf("invalid websocket URL: %v", err)
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	d := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	log.Printf("connecting to %s...", u.String())
	conn, _, err := d.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	log.Printf("connected! (press Ctrl+C to exit)")

	var writeMu sync.Mutex

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	pingTicker := time.NewTicker(30 * time.Second)
	defer pingTicker.Stop()

	go func() {
		for range pingTicker.C {
			writeMu.Lock()
			err := conn.WriteMessage(websocket.PingMessage, nil)
			writeMu.Unlock()
			if err != nil {
				log.Printf("ping failed: %v", err)
				return
			}
		}
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			messageType, message, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("websocket error: %v", err)
				}
				return
			}
			// Any traffic proves the connection is alive.
			conn.SetReadDeadline(time.Now().Add(60 * time.Second))

			if messageType != websocket.TextMessage {
				continue
			}
			if *rawOutput {
				fmt.Println(string(message))
				continue
			}
			printFrame(os.Stdout, message, *rotation)
		}
	}()

	select {
	case <-sigc:
		log.Printf("shutting down...")
		writeMu.Lock()
		err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		writeMu.Unlock()
		if err != nil {
			log.Printf("error closing connection: %v", err)
		}
	case <-done:
		log.Printf("connection closed")
	}
}

// printFrame writes one human-readable line per interesting frame.
func printFrame(w io.Writer, message []byte, withRotation bool) {
	var f frame
	if err := json.Unmarshal(message, &f); err != nil {
		fmt.Fprintf(w, "[TEXT] %s\n", string(message))
		return
	}
	if line, ok := formatFrame(f, withRotation); ok {
		fmt.Fprintln(w, line)
	}
}

func formatFrame(f frame, withRotation bool) (string, bool) {
	switch f.Type {
	case "state_init":
		var d struct {
			Shift  int    `json:"shift"`
			Mode   string `json:"mode"`
			Input  string `json:"input"`
			Output string `json:"output"`
		}
		if json.Unmarshal(f.Data, &d) != nil {
			return "", false
		}
		return fmt.Sprintf("[STATE] shift=%d mode=%s input=%q output=%q", d.Shift, d.Mode, d.Input, d.Output), true

	case "shift_changed":
		var d struct {
			Shift int `json:"shift"`
		}
		if json.Unmarshal(f.Data, &d) != nil {
			return "", false
		}
		return fmt.Sprintf("[SHIFT] %d (A -> %c)", d.Shift, rune('A'+((d.Shift%26)+26)%26)), true

	case "mode_changed":
		var d struct {
			Mode string `json:"mode"`
		}
		if json.Unmarshal(f.Data, &d) != nil {
			return "", false
		}
		return fmt.Sprintf("[MODE] %s", d.Mode), true

	case "output_changed":
		var d struct {
			Input  string `json:"input"`
			Output string `json:"output"`
		}
		if json.Unmarshal(f.Data, &d) != nil {
			return "", false
		}
		return fmt.Sprintf("[OUTPUT] %q -> %q", d.Input, d.Output), true

	case "copied":
		var d struct {
			Chars int `json:"chars"`
		}
		if json.Unmarshal(f.Data, &d) != nil {
			return "", false
		}
		return fmt.Sprintf("[COPIED] %d chars", d.Chars), true

	case "clipboard":
		var d struct {
			Text string `json:"text"`
		}
		if json.Unmarshal(f.Data, &d) != nil {
			return "", false
		}
		return fmt.Sprintf("[CLIPBOARD] %q", d.Text), true

	case "notice":
		var d struct {
			Title   string `json:"title"`
			Message string `json:"message"`
		}
		if json.Unmarshal(f.Data, &d) != nil {
			return "", false
		}
		return fmt.Sprintf("[NOTICE] %s: %s", d.Title, d.Message), true

	case "rotation":
		if !withRotation {
			return "", false
		}
		var d struct {
			Rotation float64 `json:"rotation"`
			Phase    string  `json:"phase"`
		}
		if json.Unmarshal(f.Data, &d) != nil {
			return "", false
		}
		return fmt.Sprintf("[ROTATION] %.1f° (%s)", d.Rotation, d.Phase), true

	case "haptic":
		return "", false
	}
	return fmt.Sprintf("[%s] %s", f.Type, string(f.Data)), true
}
