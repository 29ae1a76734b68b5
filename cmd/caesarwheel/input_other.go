//go:build !linux

package main

import (
	"fmt"
	"os"
)

// readInputEventsEpoll falls back to one blocking reader per device where
// epoll is unavailable.
func readInputEventsEpoll(files []*os.File, events chan<- inputEvent, readErr chan<- error, done <-chan struct{}) {
	if len(files) == 0 {
		reportReadErr(readErr, done, fmt.Errorf("no input devices provided"))
		return
	}
	for _, f := range files {
		go readInputEvents(f, events, readErr, done)
	}
}
