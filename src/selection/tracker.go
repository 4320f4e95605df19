package selection

import "strings"

// EventKind classifies the outcome of feeding one probe result to a Tracker.
type EventKind int

const (
	NoChange EventKind = iota
	Cleared
	NewSelection
)

func (k EventKind) String() string {
	switch k {
	case NoChange:
		return "no-change"
	case Cleared:
		return "cleared"
	case NewSelection:
		return "new-selection"
	default:
		return "unknown"
	}
}

// Event is the result of Tracker.Update. Text is set only for NewSelection.
type Event struct {
	Kind EventKind
	Text string
}

// Tracker remembers the last selected text and turns a stream of probe results
// into selection events. It is not safe for concurrent use; the event loop feeds
// it strictly sequentially.
type Tracker struct {
	lastText string
}

// NewTracker returns a tracker with no active selection.
func NewTracker() *Tracker { return &Tracker{} }

// Update feeds one probe result. ok=false means the probe found no focused
// element or no selected text.
func (t *Tracker) Update(text string, ok bool) Event {
	trimmed := ""
	if ok {
		trimmed = strings.TrimSpace(text)
	}

	if trimmed == "" {
		if t.lastText == "" {
			return Event{Kind: NoChange}
		}
		t.lastText = ""
		return Event{Kind: Cleared}
	}

	if trimmed == t.lastText {
		return Event{Kind: NoChange}
	}
	t.lastText = trimmed
	return Event{Kind: NewSelection, Text: trimmed}
}

// LastText returns the current (trimmed) selection, or "" when none is active.
func (t *Tracker) LastText() string { return t.lastText }

// Reset forgets the current selection.
func (t *Tracker) Reset() { t.lastText = "" }
