package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeFocus struct {
	pid     int
	pidOK   bool
	text    string
	textOK  bool
	textHit int
}

func (f *fakeFocus) FrontmostPID() (int, bool) { return f.pid, f.pidOK }

func (f *fakeFocus) SelectedText() (string, bool) {
	f.textHit++
	return f.text, f.textOK
}

func TestSystemProbeSkipsOwnProcess(t *testing.T) {
	focus := &fakeFocus{pid: 100, pidOK: true, text: "secret", textOK: true}
	p := NewSystemProbe(focus, 100)

	text, ok := p.Probe()
	assert.False(t, ok)
	assert.Empty(t, text)
	assert.Zero(t, focus.textHit, "selected text must not be read for our own process")
}

func TestSystemProbeReadsForeignSelection(t *testing.T) {
	focus := &fakeFocus{pid: 200, pidOK: true, text: "hello", textOK: true}
	p := NewSystemProbe(focus, 100)

	text, ok := p.Probe()
	assert.True(t, ok)
	assert.Equal(t, "hello", text)
}

func TestSystemProbeNoFocusedApp(t *testing.T) {
	p := NewSystemProbe(&fakeFocus{}, 100)
	_, ok := p.Probe()
	assert.False(t, ok)

	_, ok = NewSystemProbe(nil, 100).Probe()
	assert.False(t, ok)
}

func TestProbeFunc(t *testing.T) {
	var p Probe = ProbeFunc(func() (string, bool) { return "x", true })
	text, ok := p.Probe()
	assert.True(t, ok)
	assert.Equal(t, "x", text)
}
