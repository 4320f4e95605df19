package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionHasUniqueIDs(t *testing.T) {
	now := time.Unix(100, 0)
	a := New("hello", now)
	b := New("hello", now)

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, "hello", a.SourceText)
	assert.Equal(t, now, a.CreatedAt)
	assert.Equal(t, EnrichmentIdle, a.Enrichment.Kind)
}

func TestEnrichmentHappyPath(t *testing.T) {
	s := New("x", time.Now())
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, s.MarkPending(cancel))
	assert.Equal(t, EnrichmentPending, s.Enrichment.Kind)

	require.NoError(t, s.Resolve("explained", nil))
	assert.Equal(t, EnrichmentSucceeded, s.Enrichment.Kind)
	assert.Equal(t, "explained", s.Enrichment.Content)
	assert.Error(t, ctx.Err(), "resolving releases the request context")
}

func TestEnrichmentFailure(t *testing.T) {
	s := New("x", time.Now())
	require.NoError(t, s.MarkPending(func() {}))

	boom := errors.New("boom")
	require.NoError(t, s.Resolve("", boom))
	assert.Equal(t, EnrichmentFailed, s.Enrichment.Kind)
	assert.Equal(t, boom, s.Enrichment.Err)
}

func TestEnrichmentRejectsIllegalTransitions(t *testing.T) {
	s := New("x", time.Now())
	assert.ErrorIs(t, s.Resolve("early", nil), ErrInvalidTransition)

	require.NoError(t, s.MarkPending(func() {}))
	assert.ErrorIs(t, s.MarkPending(func() {}), ErrInvalidTransition)

	require.NoError(t, s.Resolve("done", nil))
	assert.ErrorIs(t, s.Resolve("again", nil), ErrInvalidTransition)
	assert.ErrorIs(t, s.MarkPending(func() {}), ErrInvalidTransition)
	assert.Equal(t, "done", s.Enrichment.Content)
}

func TestCancelPending(t *testing.T) {
	s := New("x", time.Now())
	assert.False(t, s.Cancel())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.MarkPending(cancel))
	assert.True(t, s.Cancel())
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
	assert.Equal(t, EnrichmentIdle, s.Enrichment.Kind)

	assert.ErrorIs(t, s.Resolve("late", nil), ErrInvalidTransition)
}

func TestDismissBlocksFurtherMutation(t *testing.T) {
	s := New("x", time.Now())
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.MarkPending(cancel))

	s.Dismiss()
	assert.True(t, s.Dismissed)
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
	assert.ErrorIs(t, s.Resolve("late", nil), ErrInvalidTransition)
	assert.ErrorIs(t, s.MarkPending(func() {}), ErrInvalidTransition)
}

func TestEnrichmentKindString(t *testing.T) {
	assert.Equal(t, "pending", EnrichmentPending.String())
	assert.Equal(t, "failed", EnrichmentFailed.String())
}
