package selection

import "os"

// Probe performs one read of the OS focus/selection state. ok is false when no
// element is focused, the element does not expose selected text, or the read
// failed; failures are never reported as errors.
type Probe interface {
	Probe() (text string, ok bool)
}

// Focus is the platform accessibility collaborator behind SystemProbe.
type Focus interface {
	// FrontmostPID returns the process id owning the focused application.
	FrontmostPID() (int, bool)
	// SelectedText returns the selected-text attribute of the focused element.
	SelectedText() (string, bool)
}

// SystemProbe reads the selection through Focus and never reports a selection
// made inside our own process.
type SystemProbe struct {
	focus   Focus
	selfPID int
}

// NewSystemProbe wraps focus. selfPID <= 0 means os.Getpid().
func NewSystemProbe(focus Focus, selfPID int) *SystemProbe {
	if selfPID <= 0 {
		selfPID = os.Getpid()
	}
	return &SystemProbe{focus: focus, selfPID: selfPID}
}

func (p *SystemProbe) Probe() (string, bool) {
	if p.focus == nil {
		return "", false
	}
	pid, ok := p.focus.FrontmostPID()
	if !ok || pid == p.selfPID {
		return "", false
	}
	return p.focus.SelectedText()
}

// ProbeFunc adapts a function to Probe.
type ProbeFunc func() (string, bool)

func (f ProbeFunc) Probe() (string, bool) { return f() }
