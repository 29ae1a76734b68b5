package main

import (
	"context"
	"log/slog"

	"github.com/ncruces/zenity"
)

// Notifier surfaces a notice outside the wheel's own hosts.
type Notifier interface {
	Notify(title, message string) error
}

// desktopNotifier shows notices through the desktop notification service.
type desktopNotifier struct{}

func (desktopNotifier) Notify(title, message string) error {
	return zenity.Notify(message, zenity.Title(title), zenity.WarningIcon)
}

const noticeQueueSize = 4

// teeNotices forwards every broadcast from src to the returned channel and
// hands notices to n from a separate goroutine, so a slow notification
// daemon never holds up the broadcaster. Notices that arrive while the queue
// is full are dropped. The returned channel closes when src closes or ctx
// ends.
func teeNotices(ctx context.Context, src <-chan StateBroadcast, n Notifier, logger *slog.Logger) <-chan StateBroadcast {
	out := make(chan StateBroadcast, cap(src))
	notices := make(chan BroadcastNotice, noticeQueueSize)

	go func() {
		for nb := range notices {
			if err := n.Notify(nb.Title, nb.Message); err != nil {
				logger.Debug("desktop notification failed", "title", nb.Title, "error", err)
			}
		}
	}()

	go func() {
		defer close(out)
		defer close(notices)
		for {
			select {
			case <-ctx.Done():
				return
			case b, ok := <-src:
				if !ok {
					return
				}
				if nb, isNotice := b.(BroadcastNotice); isNotice {
					select {
					case notices <- nb:
					default:
						logger.Debug("notice queue full; dropping desktop notification", "title", nb.Title)
					}
				}
				select {
				case out <- b:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}
