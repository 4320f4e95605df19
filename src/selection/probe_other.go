//go:build !darwin || !cgo

package selection

type unsupportedFocus struct{}

// NewPlatformFocus returns a reader that never finds a selection. Selected-text
// reads need the macOS Accessibility API.
func NewPlatformFocus() Focus { return unsupportedFocus{} }

func (unsupportedFocus) FrontmostPID() (int, bool) { return 0, false }

func (unsupportedFocus) SelectedText() (string, bool) { return "", false }
