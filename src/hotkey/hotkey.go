// Package hotkey turns global input events into the triggers that drive
// selection checks and the dismiss shortcut.
package hotkey

import (
	"context"
	"fmt"
	"sync"

	gohook "github.com/robotn/gohook"
	"go.uber.org/zap"
)

// Sink receives input triggers. Implementations must not block.
type Sink interface {
	PointerReleased()
	KeyReleased(name string)
	Hotkey()
}

type keyState struct {
	name     string
	rawcodes []uint16
	pressed  bool
}

// Matcher tracks modifier state and classifies raw hook events.
type Matcher struct {
	mu    sync.Mutex
	combo string
	keys  []keyState
	nav   map[uint16]string
}

// NewMatcher builds a matcher for combo using the rawcodes of keymap.
func NewMatcher(combo string, keymap Keymap) (*Matcher, error) {
	names := parseHotkey(combo)
	if len(names) == 0 {
		return nil, fmt.Errorf("empty hotkey %q", combo)
	}
	m := &Matcher{combo: combo, nav: map[uint16]string{}}
	for _, name := range names {
		codes := keymap.Rawcodes(name)
		if len(codes) == 0 {
			return nil, fmt.Errorf("hotkey %q: unknown key %q", combo, name)
		}
		m.keys = append(m.keys, keyState{name: name, rawcodes: codes})
	}
	for _, name := range navigationKeys {
		for _, code := range keymap.Rawcodes(name) {
			m.nav[code] = name
		}
	}
	return m, nil
}

// Handle classifies one event and forwards the resulting trigger to sink.
func (m *Matcher) Handle(ev gohook.Event, sink Sink) {
	switch ev.Kind {
	case gohook.KeyDown, gohook.KeyHold:
		if m.press(ev.Rawcode) {
			sink.Hotkey()
		}
	case gohook.KeyUp:
		m.release(ev.Rawcode)
		if name, ok := m.nav[ev.Rawcode]; ok {
			sink.KeyReleased(name)
		}
	// gohook numbers libuiohook's released event MouseDown and its clicked event MouseUp.
	case gohook.MouseDown, gohook.MouseUp:
		sink.PointerReleased()
	}
}

// press marks rawcode as held and reports whether the whole combination is down.
func (m *Matcher) press(rawcode uint16) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	matched := false
	for i := range m.keys {
		for _, code := range m.keys[i].rawcodes {
			if code == rawcode {
				m.keys[i].pressed = true
				matched = true
			}
		}
	}
	if !matched {
		return false
	}
	for i := range m.keys {
		if !m.keys[i].pressed {
			return false
		}
	}
	for i := range m.keys {
		m.keys[i].pressed = false
	}
	return true
}

func (m *Matcher) release(rawcode uint16) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.keys {
		for _, code := range m.keys[i].rawcodes {
			if code == rawcode {
				m.keys[i].pressed = false
			}
		}
	}
}

// Listen starts the global hook and feeds sink until ctx is cancelled.
// The combo is validated before the hook starts.
func Listen(ctx context.Context, combo string, sink Sink, log *zap.SugaredLogger) error {
	m, err := NewMatcher(combo, PlatformKeymap())
	if err != nil {
		return err
	}
	log.Infow("Input hook starting", "hotkey", combo)

	evChan := gohook.Start()
	if evChan == nil {
		return fmt.Errorf("gohook: start returned no event channel")
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Errorw("PANIC in input hook", "panic", r)
			}
		}()
		<-ctx.Done()
		gohook.End()
	}()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Errorw("PANIC in input hook", "panic", r)
			}
		}()
		for ev := range evChan {
			m.Handle(ev, sink)
		}
		log.Infow("Input hook stopped")
	}()
	return nil
}
