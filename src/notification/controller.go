// Package notification owns the lifecycle of the single live glass notification:
// showing it, enriching it after a grace delay, revealing the explanation and
// dismissing it.
package notification

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"glass-notify/src/clock"
	"glass-notify/src/llm"
	"glass-notify/src/popup"
	"glass-notify/src/selection"
	"glass-notify/src/session"
	"glass-notify/src/typewriter"
	"glass-notify/src/worker"
)

// ErrBusy is the cause attached to the failure shown when no worker could take the request.
var ErrBusy = errors.New("enrichment workers busy")

var errEmptyExplanation = errors.New("empty explanation")

// State is the controller's lifecycle state.
type State int

const (
	Idle State = iota
	Showing
	Closing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Showing:
		return "showing"
	case Closing:
		return "closing"
	default:
		return "unknown"
	}
}

// Dispatcher serializes closures onto the event loop.
type Dispatcher interface {
	Post(fn func())
}

// Runner executes background jobs. Submit reports false when the job was dropped.
type Runner interface {
	Submit(job worker.Job) bool
}

// Config selects the notification mode and its timings.
type Config struct {
	GraceDelay        time.Duration
	TickInterval      time.Duration
	EnrichmentEnabled bool
	// AutoTimeout dismisses the notification after the given delay. Only used
	// when enrichment is disabled; zero keeps the notification open.
	AutoTimeout    time.Duration
	DismissOnClear bool
}

// DefaultConfig returns the enrichment mode with its usual timings.
func DefaultConfig() Config {
	return Config{
		GraceDelay:        1500 * time.Millisecond,
		TickInterval:      typewriter.DefaultInterval,
		EnrichmentEnabled: true,
		DismissOnClear:    true,
	}
}

// Deps are the collaborators of a Controller.
type Deps struct {
	Surface    popup.Surface
	Fetcher    llm.Fetcher
	Credential func() string
	Clock      clock.Clock
	Loop       Dispatcher
	Runner     Runner
	Log        *zap.SugaredLogger
}

// Controller is the notification state machine. Every method must be called
// from the event loop goroutine; timers and fetch completions re-enter through
// Deps.Loop and are matched against the live session before they act.
type Controller struct {
	cfg        Config
	surface    popup.Surface
	fetcher    llm.Fetcher
	credential func() string
	clock      clock.Clock
	loop       Dispatcher
	runner     Runner
	log        *zap.SugaredLogger

	state   State
	current *session.Session
	grace   clock.Timer
	tick    clock.Timer
	auto    clock.Timer
	cursor  *typewriter.Cursor
}

// New creates a controller in the Idle state.
func New(cfg Config, deps Deps) *Controller {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = typewriter.DefaultInterval
	}
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	if deps.Credential == nil {
		deps.Credential = func() string { return "" }
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop().Sugar()
	}
	if cfg.EnrichmentEnabled && cfg.AutoTimeout > 0 {
		deps.Log.Warnw("Auto-timeout ignored while enrichment is enabled", "auto_timeout", cfg.AutoTimeout)
	}
	return &Controller{
		cfg:        cfg,
		surface:    deps.Surface,
		fetcher:    deps.Fetcher,
		credential: deps.Credential,
		clock:      deps.Clock,
		loop:       deps.Loop,
		runner:     deps.Runner,
		log:        deps.Log,
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State { return c.state }

// Current returns the live session, or nil when Idle.
func (c *Controller) Current() *session.Session { return c.current }

// Detail returns the explanation of the live session once it has been fetched.
func (c *Controller) Detail() (string, bool) {
	if c.current == nil || c.current.Enrichment.Kind != session.EnrichmentSucceeded {
		return "", false
	}
	return c.current.Enrichment.Content, true
}

// HandleSelection applies one tracker event.
func (c *Controller) HandleSelection(ev selection.Event) {
	switch ev.Kind {
	case selection.NewSelection:
		c.Present(ev.Text)
	case selection.Cleared:
		if c.cfg.DismissOnClear {
			c.Dismiss()
		}
	}
}

// Present replaces any live notification with a new one showing text.
func (c *Controller) Present(text string) {
	c.release()

	s := session.New(text, c.clock.Now())
	c.current = s
	c.state = Showing
	c.surface.Show(s.ID, text)
	c.log.Infow("Notification shown", "session", s.ID, "chars", len(text))

	id := s.ID
	switch {
	case c.cfg.EnrichmentEnabled:
		c.grace = c.after(c.cfg.GraceDelay, func() { c.beginEnrichment(id) })
	case c.cfg.AutoTimeout > 0:
		c.auto = c.after(c.cfg.AutoTimeout, func() { c.autoDismiss(id) })
	}
}

// Dismiss starts closing the live notification. It does nothing unless a
// notification is showing.
func (c *Controller) Dismiss() {
	if c.state != Showing {
		return
	}
	c.stopTimers()
	c.current.Dismiss()
	c.state = Closing

	id := c.current.ID
	c.log.Infow("Notification dismissed", "session", id)
	c.surface.Dismiss(id, func() {
		c.loop.Post(func() { c.closed(id) })
	})
}

// Shutdown closes the live notification immediately and stops every timer.
func (c *Controller) Shutdown() {
	c.release()
}

func (c *Controller) release() {
	c.stopTimers()
	if c.current == nil {
		return
	}
	c.current.Dismiss()
	c.surface.Close(c.current.ID)
	c.current = nil
	c.state = Idle
}

func (c *Controller) stopTimers() {
	for _, t := range []*clock.Timer{&c.grace, &c.tick, &c.auto} {
		if *t != nil {
			(*t).Stop()
			*t = nil
		}
	}
	c.cursor = nil
}

func (c *Controller) after(d time.Duration, fn func()) clock.Timer {
	return c.clock.AfterFunc(d, func() { c.loop.Post(fn) })
}

func (c *Controller) live(id string) bool {
	return c.state == Showing && c.current != nil && c.current.ID == id
}

func (c *Controller) beginEnrichment(id string) {
	if !c.live(id) {
		return
	}
	c.grace = nil

	ctx, cancel := context.WithCancel(context.Background())
	if err := c.current.MarkPending(cancel); err != nil {
		cancel()
		c.log.Warnw("Enrichment not started", "session", id, "error", err)
		return
	}

	text, credential, fetcher := c.current.SourceText, c.credential(), c.fetcher
	job := func() {
		content, err := fetcher.Fetch(ctx, text, credential)
		c.loop.Post(func() { c.resolve(id, content, err) })
	}
	c.log.Debugw("Enrichment requested", "session", id)
	if !c.runner.Submit(job) {
		c.resolve(id, "", &llm.Failure{Kind: llm.TransportError, Cause: ErrBusy})
	}
}

func (c *Controller) resolve(id, content string, err error) {
	if c.current == nil || c.current.ID != id || c.state != Showing {
		c.log.Debugw("Stale enrichment discarded", "session", id)
		return
	}
	if err == nil && strings.TrimSpace(content) == "" {
		err = &llm.Failure{Kind: llm.MalformedResponse, Cause: errEmptyExplanation}
	}
	if rerr := c.current.Resolve(content, err); rerr != nil {
		c.log.Debugw("Stale enrichment discarded", "session", id, "error", rerr)
		return
	}

	reveal := content
	if err != nil {
		var f *llm.Failure
		if !errors.As(err, &f) {
			f = &llm.Failure{Kind: llm.TransportError, Cause: err}
		}
		reveal = f.Error()
		c.log.Warnw("Enrichment failed", "session", id, "kind", f.Kind.String(), "error", err)
	} else {
		c.log.Infow("Enrichment received", "session", id, "chars", len(content))
	}

	c.cursor = typewriter.New(reveal)
	c.tick = c.after(c.cfg.TickInterval, func() { c.advance(id) })
}

func (c *Controller) advance(id string) {
	if !c.live(id) || c.cursor == nil {
		return
	}
	c.tick = nil
	frame, ok := c.cursor.Next()
	if !ok {
		c.cursor = nil
		return
	}
	c.surface.SetDetail(id, frame)
	if c.cursor.Done() {
		c.cursor = nil
		return
	}
	c.tick = c.after(c.cfg.TickInterval, func() { c.advance(id) })
}

func (c *Controller) autoDismiss(id string) {
	if !c.live(id) {
		return
	}
	c.auto = nil
	c.Dismiss()
}

func (c *Controller) closed(id string) {
	if c.state != Closing || c.current == nil || c.current.ID != id {
		return
	}
	c.current = nil
	c.state = Idle
	c.log.Debugw("Notification closed", "session", id)
}
