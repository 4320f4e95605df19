package notification

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glass-notify/src/clock"
	"glass-notify/src/llm"
	"glass-notify/src/selection"
	"glass-notify/src/session"
	"glass-notify/src/worker"
)

type queue struct {
	mu  sync.Mutex
	fns []func()
}

func (q *queue) Post(fn func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.fns = append(q.fns, fn)
}

func (q *queue) drain() {
	for {
		q.mu.Lock()
		if len(q.fns) == 0 {
			q.mu.Unlock()
			return
		}
		fn := q.fns[0]
		q.fns = q.fns[1:]
		q.mu.Unlock()
		fn()
	}
}

type fakeRunner struct {
	jobs   []worker.Job
	reject bool
}

func (r *fakeRunner) Submit(job worker.Job) bool {
	if r.reject {
		return false
	}
	r.jobs = append(r.jobs, job)
	return true
}

func (r *fakeRunner) runAll() {
	jobs := r.jobs
	r.jobs = nil
	for _, j := range jobs {
		j()
	}
}

type fakeSurface struct {
	calls []string
	done  map[string]func()
}

func (s *fakeSurface) Show(id, source string) { s.calls = append(s.calls, "show:"+id+":"+source) }
func (s *fakeSurface) SetDetail(id, text string) {
	s.calls = append(s.calls, "detail:"+id+":"+text)
}
func (s *fakeSurface) Dismiss(id string, done func()) {
	s.calls = append(s.calls, "dismiss:"+id)
	if s.done == nil {
		s.done = map[string]func(){}
	}
	s.done[id] = done
}
func (s *fakeSurface) Close(id string) { s.calls = append(s.calls, "close:"+id) }

func (s *fakeSurface) details(id string) []string {
	var out []string
	for _, c := range s.calls {
		if rest, ok := strings.CutPrefix(c, "detail:"+id+":"); ok {
			out = append(out, rest)
		}
	}
	return out
}

type fetchFunc func(ctx context.Context, text, credential string) (string, error)

func (f fetchFunc) Fetch(ctx context.Context, text, credential string) (string, error) {
	return f(ctx, text, credential)
}

type harness struct {
	ctrl    *Controller
	clk     *clock.Fake
	q       *queue
	runner  *fakeRunner
	surface *fakeSurface
}

func newHarness(t *testing.T, cfg Config, fetcher llm.Fetcher) *harness {
	t.Helper()
	h := &harness{
		clk:     clock.NewFake(time.Unix(0, 0)),
		q:       &queue{},
		runner:  &fakeRunner{},
		surface: &fakeSurface{},
	}
	h.ctrl = New(cfg, Deps{
		Surface:    h.surface,
		Fetcher:    fetcher,
		Credential: func() string { return "sk-test" },
		Clock:      h.clk,
		Loop:       h.q,
		Runner:     h.runner,
	})
	return h
}

func (h *harness) advance(d time.Duration) {
	h.clk.Advance(d)
	h.q.drain()
}

func (h *harness) settle(steps int) {
	for i := 0; i < steps; i++ {
		h.advance(tickStep)
	}
}

const tickStep = 20 * time.Millisecond

func replying(content string) fetchFunc {
	return func(ctx context.Context, text, credential string) (string, error) { return content, nil }
}

func TestHelloWorldIsRevealed(t *testing.T) {
	var gotText, gotCred string
	h := newHarness(t, DefaultConfig(), fetchFunc(func(ctx context.Context, text, credential string) (string, error) {
		gotText, gotCred = text, credential
		return "Greeting.", nil
	}))

	h.ctrl.Present("Hello world")
	id := h.ctrl.Current().ID
	require.Equal(t, []string{"show:" + id + ":Hello world"}, h.surface.calls)
	assert.Equal(t, Showing, h.ctrl.State())

	h.advance(1499 * time.Millisecond)
	assert.Empty(t, h.runner.jobs, "no request before the grace delay")

	h.advance(time.Millisecond)
	require.Len(t, h.runner.jobs, 1)
	assert.Equal(t, session.EnrichmentPending, h.ctrl.Current().Enrichment.Kind)

	h.runner.runAll()
	h.q.drain()
	assert.Equal(t, "Hello world", gotText)
	assert.Equal(t, "sk-test", gotCred)

	h.settle(20)
	details := h.surface.details(id)
	require.Len(t, details, len("Greeting."))
	assert.Equal(t, "G", details[0])
	assert.Equal(t, "Greeting.", details[len(details)-1])
	assert.Equal(t, 0, h.clk.Pending(), "reveal stops after the last frame")

	detail, ok := h.ctrl.Detail()
	assert.True(t, ok)
	assert.Equal(t, "Greeting.", detail)
}

func TestFailureIsRenderedAsDetail(t *testing.T) {
	h := newHarness(t, DefaultConfig(), fetchFunc(func(ctx context.Context, text, credential string) (string, error) {
		return "", &llm.Failure{Kind: llm.Timeout}
	}))

	h.ctrl.Present("Hello world")
	id := h.ctrl.Current().ID
	h.advance(1500 * time.Millisecond)
	h.runner.runAll()
	h.q.drain()
	h.settle(40)

	details := h.surface.details(id)
	require.NotEmpty(t, details)
	assert.Equal(t, "Request timed out.", details[len(details)-1])
	assert.Equal(t, session.EnrichmentFailed, h.ctrl.Current().Enrichment.Kind)
	_, ok := h.ctrl.Detail()
	assert.False(t, ok)
}

func TestBlankExplanationRendersParseFailure(t *testing.T) {
	h := newHarness(t, DefaultConfig(), replying(" \n "))

	h.ctrl.Present("Hello world")
	id := h.ctrl.Current().ID
	h.advance(1500 * time.Millisecond)
	h.runner.runAll()
	h.q.drain()
	h.settle(40)

	details := h.surface.details(id)
	require.NotEmpty(t, details)
	assert.Equal(t, "Unable to parse response.", details[len(details)-1])
	assert.Equal(t, session.EnrichmentFailed, h.ctrl.Current().Enrichment.Kind)
	_, ok := h.ctrl.Detail()
	assert.False(t, ok)
}

func TestSupersededCompletionHasNoEffect(t *testing.T) {
	var firstCtx context.Context
	h := newHarness(t, DefaultConfig(), fetchFunc(func(ctx context.Context, text, credential string) (string, error) {
		if text == "first" {
			firstCtx = ctx
			return "stale answer", nil
		}
		return "fresh", nil
	}))

	h.ctrl.Present("first")
	firstID := h.ctrl.Current().ID
	h.advance(1500 * time.Millisecond)
	require.Len(t, h.runner.jobs, 1)
	staleJob := h.runner.jobs[0]
	h.runner.jobs = nil

	h.ctrl.Present("second")
	secondID := h.ctrl.Current().ID
	require.NotEqual(t, firstID, secondID)

	before := len(h.surface.calls)
	staleJob()
	h.q.drain()
	h.settle(20)

	require.NotNil(t, firstCtx)
	assert.ErrorIs(t, firstCtx.Err(), context.Canceled)
	assert.Empty(t, h.surface.details(firstID))
	assert.Len(t, h.surface.calls, before, "stale completion must not touch the surface")
	assert.Equal(t, session.EnrichmentIdle, h.ctrl.Current().Enrichment.Kind)
	assert.Contains(t, h.surface.calls, "close:"+firstID)
}

func TestRevealStopsWhenSuperseded(t *testing.T) {
	h := newHarness(t, DefaultConfig(), replying("a fairly long explanation"))

	h.ctrl.Present("first")
	firstID := h.ctrl.Current().ID
	h.advance(1500 * time.Millisecond)
	h.runner.runAll()
	h.q.drain()
	h.settle(3)
	require.Len(t, h.surface.details(firstID), 3)

	h.ctrl.Present("second")
	h.settle(50)
	assert.Len(t, h.surface.details(firstID), 3)
}

func TestDismissWhileIdleIsNoop(t *testing.T) {
	h := newHarness(t, DefaultConfig(), replying("x"))

	h.ctrl.Dismiss()
	h.ctrl.HandleSelection(selection.Event{Kind: selection.Cleared})

	assert.Empty(t, h.surface.calls)
	assert.Equal(t, Idle, h.ctrl.State())
}

func TestDismissLifecycle(t *testing.T) {
	h := newHarness(t, DefaultConfig(), replying("x"))

	h.ctrl.Present("text")
	id := h.ctrl.Current().ID
	h.ctrl.Dismiss()
	assert.Equal(t, Closing, h.ctrl.State())
	assert.Equal(t, []string{"show:" + id + ":text", "dismiss:" + id}, h.surface.calls)

	h.ctrl.Dismiss()
	assert.Len(t, h.surface.calls, 2, "dismiss while closing is a no-op")

	h.advance(5 * time.Second)
	assert.Empty(t, h.runner.jobs, "grace timer stopped on dismiss")

	h.surface.done[id]()
	h.q.drain()
	assert.Equal(t, Idle, h.ctrl.State())
	assert.Nil(t, h.ctrl.Current())

	h.ctrl.Dismiss()
	assert.Len(t, h.surface.calls, 2)
}

func TestDismissCancelsPendingRequest(t *testing.T) {
	var reqCtx context.Context
	h := newHarness(t, DefaultConfig(), fetchFunc(func(ctx context.Context, text, credential string) (string, error) {
		reqCtx = ctx
		return "late", nil
	}))

	h.ctrl.Present("text")
	id := h.ctrl.Current().ID
	h.advance(1500 * time.Millisecond)
	h.ctrl.Dismiss()

	h.runner.runAll()
	h.q.drain()
	h.settle(10)

	assert.ErrorIs(t, reqCtx.Err(), context.Canceled)
	assert.Empty(t, h.surface.details(id))
}

func TestClearedHonoursDismissOnClear(t *testing.T) {
	for _, dismissOnClear := range []bool{true, false} {
		t.Run(fmt.Sprint(dismissOnClear), func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.DismissOnClear = dismissOnClear
			h := newHarness(t, cfg, replying("x"))

			h.ctrl.HandleSelection(selection.Event{Kind: selection.NewSelection, Text: "text"})
			h.ctrl.HandleSelection(selection.Event{Kind: selection.NoChange})
			h.ctrl.HandleSelection(selection.Event{Kind: selection.Cleared})

			if dismissOnClear {
				assert.Equal(t, Closing, h.ctrl.State())
			} else {
				assert.Equal(t, Showing, h.ctrl.State())
			}
		})
	}
}

func TestNewSelectionWhileClosing(t *testing.T) {
	h := newHarness(t, DefaultConfig(), replying("x"))

	h.ctrl.Present("first")
	firstID := h.ctrl.Current().ID
	h.ctrl.Dismiss()

	h.ctrl.Present("second")
	secondID := h.ctrl.Current().ID
	assert.Equal(t, Showing, h.ctrl.State())
	assert.Equal(t, []string{
		"show:" + firstID + ":first",
		"dismiss:" + firstID,
		"close:" + firstID,
		"show:" + secondID + ":second",
	}, h.surface.calls)

	h.surface.done[firstID]()
	h.q.drain()
	assert.Equal(t, Showing, h.ctrl.State())
	assert.Equal(t, secondID, h.ctrl.Current().ID)
}

func TestAutoTimeoutWithoutEnrichment(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnrichmentEnabled = false
	cfg.AutoTimeout = 3 * time.Second
	h := newHarness(t, cfg, replying("x"))

	h.ctrl.Present("text")
	id := h.ctrl.Current().ID
	h.advance(2999 * time.Millisecond)
	assert.Equal(t, Showing, h.ctrl.State())

	h.advance(time.Millisecond)
	assert.Equal(t, Closing, h.ctrl.State())
	assert.Contains(t, h.surface.calls, "dismiss:"+id)
	assert.Empty(t, h.runner.jobs)
}

func TestAutoTimeoutIgnoredWithEnrichment(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AutoTimeout = time.Second
	h := newHarness(t, cfg, replying("ok"))

	h.ctrl.Present("text")
	h.advance(10 * time.Second)
	h.runner.runAll()
	h.q.drain()
	h.settle(10)
	assert.Equal(t, Showing, h.ctrl.State())
}

func TestNoEnrichmentNoTimeoutStaysOpen(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnrichmentEnabled = false
	h := newHarness(t, cfg, replying("x"))

	h.ctrl.Present("text")
	h.advance(time.Minute)
	assert.Equal(t, Showing, h.ctrl.State())
	assert.Empty(t, h.runner.jobs)
	assert.Equal(t, 0, h.clk.Pending())
}

func TestBusyRunnerRendersFailure(t *testing.T) {
	h := newHarness(t, DefaultConfig(), replying("x"))
	h.runner.reject = true

	h.ctrl.Present("text")
	id := h.ctrl.Current().ID
	h.advance(1500 * time.Millisecond)
	h.settle(60)

	details := h.surface.details(id)
	require.NotEmpty(t, details)
	assert.Equal(t, "Request timed out or failed.", details[len(details)-1])
	assert.ErrorIs(t, h.ctrl.Current().Enrichment.Err, ErrBusy)
}

func TestShutdownReleasesEverything(t *testing.T) {
	h := newHarness(t, DefaultConfig(), replying("x"))

	h.ctrl.Present("text")
	id := h.ctrl.Current().ID
	h.ctrl.Shutdown()

	assert.Equal(t, Idle, h.ctrl.State())
	assert.Equal(t, 0, h.clk.Pending())
	assert.Contains(t, h.surface.calls, "close:"+id)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "showing", Showing.String())
	assert.Equal(t, "closing", Closing.String())
	assert.Equal(t, "unknown", State(9).String())
}
