package iobus

import (
	"context"
	"log/slog"
	"net"
	"time"
)

const linkPollInterval = 1 * time.Second

// LinkWatcher polls the named interface's operational state and reports
// transitions, grounded on the operstate polling in
// original_source/lxa_iobus/network.py's interface_is_up/update_interface_state.
type LinkWatcher struct {
	channel string
	logger  *slog.Logger

	up     chan struct{}
	down   chan struct{}
	wasUp  bool
}

// NewLinkWatcher constructs a watcher for channel (e.g. "can0"). Up and Down
// channels receive a signal on each transition; readers should select on them
// rather than block.
func NewLinkWatcher(channel string, logger *slog.Logger) *LinkWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LinkWatcher{
		channel: channel,
		logger:  logger.With("component", "link_watcher", "channel", channel),
		up:      make(chan struct{}, 1),
		down:    make(chan struct{}, 1),
	}
}

// Up signals once per transition from down to up.
func (w *LinkWatcher) Up() <-chan struct{} { return w.up }

// Down signals once per transition from up to down.
func (w *LinkWatcher) Down() <-chan struct{} { return w.down }

// isUp reports whether the interface exists and carries the "up" flag.
func isUp(channel string) bool {
	iface, err := net.InterfaceByName(channel)
	if err != nil {
		return false
	}
	return iface.Flags&net.FlagUp != 0
}

// Run polls link state until ctx is cancelled.
func (w *LinkWatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(linkPollInterval)
	defer ticker.Stop()

	w.wasUp = isUp(w.channel)
	if w.wasUp {
		w.logger.Info("link up")
	} else {
		w.logger.Info("link down")
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			up := isUp(w.channel)
			if up == w.wasUp {
				continue
			}
			w.wasUp = up
			if up {
				w.logger.Info("link up")
				w.notify(w.up)
			} else {
				w.logger.Warn("link down")
				w.notify(w.down)
			}
		}
	}
}

func (w *LinkWatcher) notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// AwaitUp blocks until the interface reports up or ctx is cancelled.
func (w *LinkWatcher) AwaitUp(ctx context.Context) error {
	if isUp(w.channel) {
		return nil
	}
	ticker := time.NewTicker(linkPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if isUp(w.channel) {
				return nil
			}
		}
	}
}
