package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"github.com/angelmondragon/marketcart/internal/orders"
	"github.com/angelmondragon/marketcart/internal/realtime"
	"github.com/angelmondragon/marketcart/pkg/enums"
	"github.com/angelmondragon/marketcart/pkg/logger"
)

// watcher prints the view and re-fetches it by polling while the push
// channel has given up.
type watcher struct {
	out    io.Writer
	role   enums.ActorRole
	view   *realtime.OrderView
	logg   *logger.Logger
	paused atomic.Bool
}

func (w *watcher) print(o orders.Order) {
	line := fmt.Sprintf("%s #%d %s", o.ID, o.OrderNumber, o.Status)
	if next := orders.NextStatuses(o.Status, w.role); len(next) > 0 {
		names := make([]string, len(next))
		for i, s := range next {
			names[i] = string(s)
		}
		line += " -> " + strings.Join(names, "|")
	}
	fmt.Fprintln(w.out, line)
}

// observe tracks the channel state: polling starts once it is unavailable
// and stops when it is open again.
func (w *watcher) observe(s realtime.Status) {
	switch s.State {
	case realtime.StateUnavailable:
		if !w.paused.Swap(true) {
			fmt.Fprintln(w.out, "live updates paused, polling:", s.ChannelError())
		}
	case realtime.StateOpen:
		if w.paused.Swap(false) {
			fmt.Fprintln(w.out, "live updates resumed")
		}
	}
}

// poll refreshes every order while paused and prints the ones that moved.
func (w *watcher) poll(ctx context.Context) {
	if !w.paused.Load() {
		return
	}
	changed, err := w.view.RefreshAll(ctx)
	if err != nil {
		w.logg.Warn(ctx, fmt.Sprintf("order poll incomplete: %v", err))
	}
	for _, o := range changed {
		w.print(o)
	}
}
