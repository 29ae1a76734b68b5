//go:build linux

package main

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// epollWaitMS bounds each wait so the reader notices done while devices are idle.
const epollWaitMS = 250

// readInputEventsEpoll reads from multiple input devices with a single
// goroutine; the kernel wakes it only when a device has data. It returns once
// done is closed.
func readInputEventsEpoll(files []*os.File, events chan<- inputEvent, readErr chan<- error, done <-chan struct{}) {
	if len(files) == 0 {
		reportReadErr(readErr, done, fmt.Errorf("no input devices provided"))
		return
	}

	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		reportReadErr(readErr, done, fmt.Errorf("epoll_create1: %w", err))
		return
	}
	defer unix.Close(epfd)

	fdToFile := make(map[int]*os.File)

	for _, f := range files {
		fd := int(f.Fd())
		fdToFile[fd] = f

		event := unix.EpollEvent{
			Events: unix.EPOLLIN,
			Fd:     int32(fd),
		}
		if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, fd, &event); err != nil {
			reportReadErr(readErr, done, fmt.Errorf("epoll_ctl_add fd=%d: %w", fd, err))
			return
		}
	}

	const maxEvents = 32
	epollEvents := make([]unix.EpollEvent, maxEvents)
	buf := make([]byte, binary.Size(inputEvent{}))
	reader := bytes.NewReader(buf)

	for {
		select {
		case <-done:
			return
		default:
		}

		n, err := unix.EpollWait(epfd, epollEvents, epollWaitMS)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			reportReadErr(readErr, done, fmt.Errorf("epoll_wait: %w", err))
			return
		}

		for i := 0; i < n; i++ {
			fd := int(epollEvents[i].Fd)
			f := fdToFile[fd]

			// Any device error is fatal; the host restarts touch input.
			if epollEvents[i].Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
				reportReadErr(readErr, done, fmt.Errorf("device error/hangup: %s (fd=%d)", f.Name(), fd))
				return
			}

			if _, err := f.Read(buf); err != nil {
				reportReadErr(readErr, done, fmt.Errorf("read from %s: %w", f.Name(), err))
				return
			}

			reader.Reset(buf)
			var ev inputEvent
			if err := binary.Read(reader, binary.LittleEndian, &ev); err != nil {
				continue
			}

			select {
			case events <- ev:
			case <-done:
				return
			}
		}
	}
}
