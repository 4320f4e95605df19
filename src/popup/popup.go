package popup

import (
	"go.uber.org/zap"
)

// Surface is the notification window collaborator. Every call names the session
// it targets so a surface can ignore calls for windows it already closed.
type Surface interface {
	// Show opens the window for a new session with the selected text.
	Show(id, source string)
	// SetDetail replaces the secondary (explanation) text.
	SetDetail(id, text string)
	// Dismiss plays the exit animation, closes the window, then calls done.
	Dismiss(id string, done func())
	// Close closes the window immediately.
	Close(id string)
}

// Logged decorates a Surface with debug logging of every call.
type Logged struct {
	next Surface
	log  *zap.SugaredLogger
}

func NewLogged(next Surface, log *zap.SugaredLogger) *Logged {
	return &Logged{next: next, log: log}
}

func (l *Logged) Show(id, source string) {
	l.log.Debugw("Popup.Show", "session", id, "chars", len(source), "text", truncateForLog(source, 50))
	l.next.Show(id, source)
}

func (l *Logged) SetDetail(id, text string) {
	l.next.SetDetail(id, text)
}

func (l *Logged) Dismiss(id string, done func()) {
	l.log.Debugw("Popup.Dismiss", "session", id)
	l.next.Dismiss(id, done)
}

func (l *Logged) Close(id string) {
	l.log.Debugw("Popup.Close", "session", id)
	l.next.Close(id)
}

// Truncate shortens text to maxRunes runes, appending "..." when cut.
func Truncate(text string, maxRunes int) string {
	r := []rune(text)
	if len(r) <= maxRunes {
		return text
	}
	return string(r[:maxRunes]) + "..."
}

func truncateForLog(s string, maxLen int) string {
	return Truncate(s, maxLen)
}
