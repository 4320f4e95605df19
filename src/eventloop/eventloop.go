// Package eventloop is the single-threaded coordinator: selection polling,
// input triggers, menu actions, resident requests and enrichment completions
// all run as closures on one goroutine.
package eventloop

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"glass-notify/src/clock"
	"glass-notify/src/llm"
	"glass-notify/src/notification"
	"glass-notify/src/popup"
	"glass-notify/src/selection"
	"glass-notify/src/singleinstance"
)

// DemoText is shown by the Test Notification menu action.
const DemoText = "This is your selected text that will appear beautifully"

const (
	DefaultPollInterval = 2 * time.Second
	DefaultPointerDelay = 200 * time.Millisecond
	DefaultKeyDelay     = 100 * time.Millisecond

	queueSize = 64
)

// ErrStopped is returned by calls that need the loop after it has exited.
var ErrStopped = errors.New("event loop stopped")

// Options are the loop timings and the notification mode.
type Options struct {
	PollInterval time.Duration
	// PointerDelay and KeyDelay let the focused app settle its selection
	// before it is probed.
	PointerDelay time.Duration
	KeyDelay     time.Duration
	Notification notification.Config
}

// Deps are the loop's collaborators.
type Deps struct {
	Probe      selection.Probe
	Surface    popup.Surface
	Fetcher    llm.Fetcher
	Credential func() string
	Runner     notification.Runner
	Clock      clock.Clock
	Log        *zap.SugaredLogger
	// OnState is called on the loop goroutine whenever the notification state changes.
	OnState func(notification.State)
}

// Loop owns the selection tracker and the notification controller.
type Loop struct {
	opts    Options
	probe   selection.Probe
	tracker *selection.Tracker
	ctrl    *notification.Controller
	clock   clock.Clock
	log     *zap.SugaredLogger
	onState func(notification.State)

	posts     chan func()
	done      chan struct{}
	poll      clock.Timer
	lastState notification.State
}

// New creates a loop. Run must be called to start processing.
func New(opts Options, deps Deps) *Loop {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.PointerDelay <= 0 {
		opts.PointerDelay = DefaultPointerDelay
	}
	if opts.KeyDelay <= 0 {
		opts.KeyDelay = DefaultKeyDelay
	}
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop().Sugar()
	}

	l := &Loop{
		opts:    opts,
		probe:   deps.Probe,
		tracker: selection.NewTracker(),
		clock:   deps.Clock,
		log:     deps.Log,
		onState: deps.OnState,
		posts:   make(chan func(), queueSize),
		done:    make(chan struct{}),
	}
	l.ctrl = notification.New(opts.Notification, notification.Deps{
		Surface:    deps.Surface,
		Fetcher:    deps.Fetcher,
		Credential: deps.Credential,
		Clock:      deps.Clock,
		Loop:       l,
		Runner:     deps.Runner,
		Log:        deps.Log,
	})
	return l
}

// Post queues fn to run on the loop goroutine. After the loop has stopped,
// fn is dropped.
func (l *Loop) Post(fn func()) {
	select {
	case l.posts <- fn:
	case <-l.done:
	}
}

// Run processes posted work until ctx is cancelled. The live notification is
// closed before Run returns.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)
	l.log.Infow("Event loop started", "poll_interval", l.opts.PollInterval)
	l.schedulePoll()

	for {
		select {
		case <-ctx.Done():
			l.shutdown()
			return ctx.Err()
		case fn := <-l.posts:
			fn()
			l.publishState()
		}
	}
}

func (l *Loop) shutdown() {
	if l.poll != nil {
		l.poll.Stop()
		l.poll = nil
	}
	l.ctrl.Shutdown()
	l.publishState()
	l.log.Infow("Event loop stopped")
}

func (l *Loop) publishState() {
	st := l.ctrl.State()
	if st == l.lastState {
		return
	}
	l.lastState = st
	if l.onState != nil {
		l.onState(st)
	}
}

func (l *Loop) schedulePoll() {
	l.poll = l.clock.AfterFunc(l.opts.PollInterval, func() {
		l.Post(func() {
			l.check("poll")
			l.schedulePoll()
		})
	})
}

// check probes the selection once and feeds the result through the tracker.
func (l *Loop) check(trigger string) {
	text, ok := l.probe.Probe()
	ev := l.tracker.Update(text, ok)
	if ev.Kind == selection.NoChange {
		return
	}
	l.log.Debugw("Selection changed", "trigger", trigger, "event", ev.Kind.String(), "chars", len(ev.Text))
	l.ctrl.HandleSelection(ev)
}

func (l *Loop) checkAfter(d time.Duration, trigger string) {
	l.clock.AfterFunc(d, func() {
		l.Post(func() { l.check(trigger) })
	})
}

// PointerReleased schedules a selection check once the pointer settles.
func (l *Loop) PointerReleased() { l.checkAfter(l.opts.PointerDelay, "pointer") }

// KeyReleased schedules a selection check after a navigation key release.
func (l *Loop) KeyReleased(name string) { l.checkAfter(l.opts.KeyDelay, "key:"+name) }

// Hotkey dismisses the live notification.
func (l *Loop) Hotkey() {
	l.Post(func() {
		l.log.Debugw("Dismiss hotkey")
		l.ctrl.Dismiss()
	})
}

// TestNotification shows the demo notification.
func (l *Loop) TestNotification() {
	l.Post(func() { l.ctrl.Present(DemoText) })
}

// Notify presents text as if it had just been selected.
func (l *Loop) Notify(text string) {
	l.Post(func() { l.ctrl.Present(text) })
}

// Explanation returns the fetched explanation of the live notification.
func (l *Loop) Explanation(ctx context.Context) (string, bool, error) {
	type result struct {
		text string
		ok   bool
	}
	ch := make(chan result, 1)
	l.Post(func() {
		text, ok := l.ctrl.Detail()
		ch <- result{text, ok}
	})
	select {
	case r := <-ch:
		return r.text, r.ok, nil
	case <-l.done:
		return "", false, ErrStopped
	case <-ctx.Done():
		return "", false, ctx.Err()
	}
}

// ServeResident answers delegated requests from srv until ctx is cancelled.
func (l *Loop) ServeResident(ctx context.Context, srv singleinstance.Server) error {
	for {
		conn, err := srv.Next(ctx)
		if err != nil {
			if errors.Is(err, singleinstance.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		l.handleConn(conn)
	}
}

func (l *Loop) handleConn(conn singleinstance.Conn) {
	defer conn.Close()
	req := conn.Request()
	switch req.Command {
	case singleinstance.Notify:
		text := strings.TrimSpace(req.Text)
		if text == "" {
			_ = conn.RespondError("empty text")
			return
		}
		l.Notify(text)
	case singleinstance.Dismiss:
		l.Hotkey()
	default:
		_ = conn.RespondError("unsupported request")
		return
	}
	if err := conn.RespondSuccess(); err != nil {
		l.log.Warnw("Resident reply failed", "command", req.Command, "error", err)
	}
}
