package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/angelmondragon/marketcart/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketcart/pkg/errors"
	"github.com/angelmondragon/marketcart/pkg/logger"
	"github.com/angelmondragon/marketcart/pkg/metrics"
)

// State is the notifier's connection state.
type State string

const (
	StateIdle        State = "idle"
	StateConnecting  State = "connecting"
	StateOpen        State = "open"
	StateBackoff     State = "backoff"
	StateUnavailable State = "unavailable"
	StateClosed      State = "closed"
)

// Status is a snapshot of the notifier. Attempt counts reconnect attempts
// since the last successful dial; Delay is set while in backoff.
type Status struct {
	State   State
	Attempt int
	Delay   time.Duration
	Err     error
}

// Conn is one live subscription. Messages is closed when the subscription is lost.
type Conn interface {
	Messages() <-chan []byte
	Close() error
}

// Dialer opens subscriptions.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// Handler receives decoded events on the notifier goroutine. It must not block.
type Handler func(ctx context.Context, evt Event)

type Options struct {
	BaseDelay   time.Duration
	MaxAttempts int
	Logger      *logger.Logger
	Metrics     *metrics.RealtimeMetrics
	// OnStatus is called on the notifier goroutine after every state change.
	OnStatus func(Status)
}

var errConnectionLost = errors.New("push channel closed")

type command int

const (
	cmdReconnect command = iota
	cmdClose
)

// Notifier keeps one push subscription alive. The connection and the reconnect
// timer are owned by a single goroutine; callers talk to it through commands.
type Notifier struct {
	dialer  Dialer
	handler Handler
	opts    Options
	logg    *logger.Logger

	cmds chan command
	done chan struct{}

	mu      sync.RWMutex
	status  Status
	started bool
	cancel  context.CancelFunc
}

func NewNotifier(dialer Dialer, handler Handler, opts Options) *Notifier {
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	logg := opts.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Notifier{
		dialer:  dialer,
		handler: handler,
		opts:    opts,
		logg:    logg,
		cmds:    make(chan command, 1),
		done:    make(chan struct{}),
		status:  Status{State: StateIdle},
	}
}

// Start dials and keeps the subscription alive until Close or ctx ends.
func (n *Notifier) Start(ctx context.Context) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.started {
		return
	}
	n.started = true
	ctx, n.cancel = context.WithCancel(ctx)
	go n.run(ctx)
}

// Status returns the current snapshot.
func (n *Notifier) Status() Status {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.status
}

// Done is closed once the notifier has stopped.
func (n *Notifier) Done() <-chan struct{} {
	return n.done
}

// Reconnect drops the current channel, resets the attempt counter and dials
// again. It is how a user leaves the unavailable state.
func (n *Notifier) Reconnect() {
	select {
	case n.cmds <- cmdReconnect:
	case <-n.done:
	default:
	}
}

// Close stops the notifier, closing the channel and cancelling any pending
// reconnect.
func (n *Notifier) Close() error {
	n.mu.Lock()
	if !n.started {
		n.started = true
		n.status = Status{State: StateClosed}
		close(n.done)
		n.mu.Unlock()
		return nil
	}
	cancel := n.cancel
	n.mu.Unlock()
	if cancel == nil {
		return nil
	}

	select {
	case n.cmds <- cmdClose:
	default:
	}
	cancel()
	<-n.done
	return nil
}

// ChannelError returns the typed error for the unavailable state, or nil.
func (s Status) ChannelError() error {
	if s.State != StateUnavailable {
		return nil
	}
	err := pkgerrors.New(pkgerrors.CodeChannelUnavailable, "live updates unavailable")
	if s.Err != nil {
		err = pkgerrors.Wrap(pkgerrors.CodeChannelUnavailable, s.Err, "live updates unavailable")
	}
	return err.WithDetails(map[string]any{"attempts": s.Attempt})
}

type loop struct {
	n       *Notifier
	ctx     context.Context
	conn    Conn
	msgs    <-chan []byte
	timer   *time.Timer
	timerC  <-chan time.Time
	attempt int
}

func (n *Notifier) run(ctx context.Context) {
	defer close(n.done)
	l := &loop{n: n, ctx: ctx}
	l.dial()
	for {
		select {
		case <-ctx.Done():
			l.stop()
			return
		case cmd := <-n.cmds:
			if cmd == cmdClose {
				l.stop()
				return
			}
			l.teardown()
			l.attempt = 0
			l.dial()
		case <-l.timerC:
			l.timer, l.timerC = nil, nil
			l.dial()
		case raw, ok := <-l.msgs:
			if !ok {
				l.lost(errConnectionLost)
				continue
			}
			l.deliver(raw)
		}
	}
}

func (l *loop) dial() {
	l.n.set(Status{State: StateConnecting, Attempt: l.attempt})
	conn, err := l.n.dialer.Dial(l.ctx)
	if err != nil {
		l.n.opts.Metrics.IncDialFailure()
		l.lost(err)
		return
	}
	l.conn, l.msgs = conn, conn.Messages()
	l.attempt = 0
	l.n.set(Status{State: StateOpen})
	if l.n.handler != nil {
		l.n.handler(l.ctx, Event{Type: enums.PushEventConnected, SentAt: time.Now().UTC()})
	}
}

// lost schedules the next attempt with delay base*2^(attempt-1), or gives up
// once MaxAttempts reconnects have failed.
func (l *loop) lost(cause error) {
	l.closeConn()
	if l.ctx.Err() != nil {
		return
	}
	if l.attempt >= l.n.opts.MaxAttempts {
		l.n.set(Status{State: StateUnavailable, Attempt: l.attempt, Err: cause})
		l.n.logg.Warn(l.n.logg.WithField(l.ctx, "attempts", l.attempt), "live updates unavailable")
		return
	}
	l.attempt++
	delay := l.n.opts.BaseDelay << (l.attempt - 1)
	l.timer = time.NewTimer(delay)
	l.timerC = l.timer.C
	l.n.set(Status{State: StateBackoff, Attempt: l.attempt, Delay: delay, Err: cause})
}

func (l *loop) deliver(raw []byte) {
	evt, err := DecodeEvent(raw)
	if err != nil {
		l.n.logg.Warn(l.ctx, "dropping malformed push event")
		return
	}
	l.n.opts.Metrics.IncEvent(string(evt.Type))
	if l.n.handler != nil {
		l.n.handler(l.ctx, evt)
	}
}

func (l *loop) closeConn() {
	if l.conn == nil {
		return
	}
	if err := l.conn.Close(); err != nil {
		l.n.logg.Error(l.ctx, "closing push channel", err)
	}
	l.conn, l.msgs = nil, nil
}

func (l *loop) teardown() {
	if l.timer != nil {
		l.timer.Stop()
		l.timer, l.timerC = nil, nil
	}
	l.closeConn()
}

func (l *loop) stop() {
	l.teardown()
	l.n.set(Status{State: StateClosed})
}

func (n *Notifier) set(s Status) {
	n.mu.Lock()
	n.status = s
	n.mu.Unlock()
	n.opts.Metrics.IncState(string(s.State))
	if n.opts.OnStatus != nil {
		n.opts.OnStatus(s)
	}
}
