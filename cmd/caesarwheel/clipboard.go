package main

import (
	"errors"

	"github.com/gdamore/tcell/v2"
)

// screenClipboard copies through the terminal (OSC 52) via tcell. Whether the
// text lands on the system clipboard depends on the terminal; tcell gives no
// acknowledgement, so success means "sent".
type screenClipboard struct {
	screen tcell.Screen
}

func (c screenClipboard) Copy(text string) error {
	if c.screen == nil {
		return errNoClipboard{}
	}
	c.screen.SetClipboard([]byte(text))
	return nil
}

// hubClipboard asks connected WebSocket hosts to write the text to their own
// clipboard. It fails when nobody is connected to receive it.
type hubClipboard struct {
	hub *Hub
}

func (c hubClipboard) Copy(text string) error {
	if c.hub == nil || c.hub.ClientCount() == 0 {
		return errors.New("no connected clients to receive the clipboard")
	}
	msg, err := marshalEnvelope(wsOutboundEvent{Type: "clipboard", Data: wsClipboardData{Text: text}})
	if err != nil {
		return err
	}
	if !c.hub.BroadcastBytes(msg) {
		return errors.New("ws broadcast queue full")
	}
	return nil
}
