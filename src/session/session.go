package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidTransition = errors.New("invalid enrichment transition")

// EnrichmentKind tags the variant held by Enrichment.
type EnrichmentKind int

const (
	EnrichmentIdle EnrichmentKind = iota
	EnrichmentPending
	EnrichmentSucceeded
	EnrichmentFailed
)

func (k EnrichmentKind) String() string {
	switch k {
	case EnrichmentIdle:
		return "idle"
	case EnrichmentPending:
		return "pending"
	case EnrichmentSucceeded:
		return "succeeded"
	case EnrichmentFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Enrichment is the tagged enrichment state of a session.
// Pending carries the cancel func of the in-flight request; Succeeded carries
// Content; Failed carries Err.
type Enrichment struct {
	Kind    EnrichmentKind
	Content string
	Err     error

	cancel context.CancelFunc
}

// Session is the lifecycle unit of one displayed notification.
type Session struct {
	ID         string
	SourceText string
	Enrichment Enrichment
	CreatedAt  time.Time
	Dismissed  bool
}

// New creates a session for text with a fresh random ID.
func New(text string, now time.Time) *Session {
	return &Session{
		ID:         uuid.NewString(),
		SourceText: text,
		CreatedAt:  now,
	}
}

// MarkPending moves Idle to Pending and remembers cancel for the request.
func (s *Session) MarkPending(cancel context.CancelFunc) error {
	if s.Dismissed || s.Enrichment.Kind != EnrichmentIdle {
		return ErrInvalidTransition
	}
	s.Enrichment = Enrichment{Kind: EnrichmentPending, cancel: cancel}
	return nil
}

// Resolve moves Pending to Succeeded (err == nil) or Failed.
func (s *Session) Resolve(content string, err error) error {
	if s.Dismissed || s.Enrichment.Kind != EnrichmentPending {
		return ErrInvalidTransition
	}
	if cancel := s.Enrichment.cancel; cancel != nil {
		cancel()
	}
	if err != nil {
		s.Enrichment = Enrichment{Kind: EnrichmentFailed, Err: err}
		return nil
	}
	s.Enrichment = Enrichment{Kind: EnrichmentSucceeded, Content: content}
	return nil
}

// Cancel aborts a pending request and returns the enrichment to Idle.
// It reports whether a request was cancelled.
func (s *Session) Cancel() bool {
	if s.Enrichment.Kind != EnrichmentPending {
		return false
	}
	if cancel := s.Enrichment.cancel; cancel != nil {
		cancel()
	}
	s.Enrichment = Enrichment{Kind: EnrichmentIdle}
	return true
}

// Dismiss cancels any pending request and marks the session as ended.
func (s *Session) Dismiss() {
	s.Cancel()
	s.Dismissed = true
}
