// Package tray installs the menu-bar icon and its menu.
package tray

import (
	_ "embed"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
)

//go:embed icon.svg
var iconSVG []byte

// Icon is the menu-bar icon resource.
var Icon = fyne.NewStaticResource("glass-notify.svg", iconSVG)

const title = "Glass Notify"

// Actions are the menu callbacks. They run on the fyne main thread.
type Actions struct {
	TestNotification func()
	SetAPIKey        func()
	CopyExplanation  func()
	Quit             func()
}

// Menu is the installed tray menu.
type Menu struct {
	menu   *fyne.Menu
	status *fyne.MenuItem
	desk   desktop.App
	do     func(func())
}

// Install sets the tray icon and menu. It returns false when the app has no
// system tray (for example under the test driver).
func Install(a fyne.App, actions Actions) (*Menu, bool) {
	m := newMenu(actions)
	desk, ok := a.(desktop.App)
	if !ok {
		return m, false
	}
	m.desk = desk
	desk.SetSystemTrayIcon(Icon)
	desk.SetSystemTrayMenu(m.menu)
	return m, true
}

func newMenu(actions Actions) *Menu {
	status := fyne.NewMenuItem(statusLabel("idle"), nil)
	status.Disabled = true

	quit := fyne.NewMenuItem("Quit", actions.Quit)
	quit.IsQuit = true

	m := &Menu{
		status: status,
		do:     fyne.Do,
		menu: fyne.NewMenu(title,
			status,
			fyne.NewMenuItemSeparator(),
			fyne.NewMenuItem("Test Notification", actions.TestNotification),
			fyne.NewMenuItem("Copy Explanation", actions.CopyExplanation),
			fyne.NewMenuItem("Set API Key...", actions.SetAPIKey),
			fyne.NewMenuItemSeparator(),
			quit,
		),
	}
	return m
}

// SetStatus updates the status line at the top of the menu. Safe from any goroutine.
func (m *Menu) SetStatus(state string) {
	m.do(func() {
		m.status.Label = statusLabel(state)
		if m.desk != nil {
			m.desk.SetSystemTrayMenu(m.menu)
		}
	})
}

func statusLabel(state string) string { return "Status: " + state }
