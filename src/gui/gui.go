// Package gui renders glass notifications and the API key prompt with fyne.
package gui

import (
	"image/color"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
	"go.uber.org/zap"

	"glass-notify/src/popup"
)

const (
	sourceMaxRunes = 80
	glassAlpha     = 0xd8
)

var glassTint = color.NRGBA{R: 0x1c, G: 0x1e, B: 0x24}

// Options control the notification window.
type Options struct {
	ShowSourceText bool
	Width          float32
	Height         float32
	FadeDuration   time.Duration
}

// DefaultOptions returns the usual window geometry.
func DefaultOptions() Options {
	return Options{ShowSourceText: true, Width: 380, Height: 140, FadeDuration: 250 * time.Millisecond}
}

type glass struct {
	win    fyne.Window
	bg     *canvas.Rectangle
	detail *widget.Label
	source *widget.Label
}

// Surface shows one borderless glass window per session. Calls may come from
// any goroutine; all window work runs on the fyne main thread.
type Surface struct {
	app     fyne.App
	opts    Options
	log     *zap.SugaredLogger
	do      func(func())
	windows map[string]*glass
}

var _ popup.Surface = (*Surface)(nil)

func NewSurface(a fyne.App, opts Options, log *zap.SugaredLogger) *Surface {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Surface{app: a, opts: opts, log: log, do: fyne.Do, windows: map[string]*glass{}}
}

func (s *Surface) Show(id, source string) {
	s.do(func() {
		g := s.build(source)
		s.windows[id] = g
		g.win.Show()
		s.fade(g, 0, glassAlpha)
	})
}

func (s *Surface) SetDetail(id, text string) {
	s.do(func() {
		if g := s.windows[id]; g != nil {
			g.detail.SetText(text)
		}
	})
}

func (s *Surface) Dismiss(id string, done func()) {
	s.do(func() {
		g := s.windows[id]
		if g == nil {
			done()
			return
		}
		delete(s.windows, id)
		s.fade(g, glassAlpha, 0)
		time.AfterFunc(s.opts.FadeDuration, func() {
			s.do(func() {
				g.win.Close()
				done()
			})
		})
	})
}

func (s *Surface) Close(id string) {
	s.do(func() {
		if g := s.windows[id]; g != nil {
			delete(s.windows, id)
			g.win.Close()
		}
	})
}

func (s *Surface) build(source string) *glass {
	g := &glass{win: s.newWindow()}

	g.bg = canvas.NewRectangle(glassTint)
	g.bg.CornerRadius = 16

	g.detail = widget.NewLabel("")
	g.detail.Wrapping = fyne.TextWrapWord

	content := container.NewVBox()
	if s.opts.ShowSourceText {
		g.source = widget.NewLabelWithStyle(popup.Truncate(source, sourceMaxRunes), fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
		g.source.Wrapping = fyne.TextWrapWord
		content.Add(g.source)
	}
	content.Add(g.detail)

	g.win.SetContent(container.NewStack(g.bg, container.NewPadded(content)))
	g.win.Resize(fyne.NewSize(s.opts.Width, s.opts.Height))
	g.win.CenterOnScreen()
	return g
}

func (s *Surface) newWindow() fyne.Window {
	if d, ok := s.app.Driver().(desktop.Driver); ok {
		return d.CreateSplashWindow()
	}
	return s.app.NewWindow("Glass Notification")
}

func (s *Surface) fade(g *glass, from, to uint8) {
	if s.opts.FadeDuration <= 0 {
		return
	}
	anim := fyne.NewAnimation(s.opts.FadeDuration, func(p float32) {
		c := glassTint
		c.A = uint8(float32(from) + (float32(to)-float32(from))*p)
		g.bg.FillColor = c
		g.bg.Refresh()
	})
	anim.Curve = fyne.AnimationEaseOut
	anim.Start()
}
