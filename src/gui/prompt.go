package gui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// PromptAPIKey opens the Set API Key window. save is called with the entered
// key; a returned error is shown and keeps the window open. Must run on the
// fyne main thread.
func PromptAPIKey(a fyne.App, current string, save func(string) error) {
	w := a.NewWindow("Set API Key")
	form, entry, status := newAPIKeyForm(current, save, w.Close)
	w.SetContent(container.NewVBox(
		widget.NewLabel("Enter your OpenAI API key to enable AI explanations."),
		form,
		status,
	))
	w.Resize(fyne.NewSize(440, 160))
	w.CenterOnScreen()
	w.Show()
	w.Canvas().Focus(entry)
}

func newAPIKeyForm(current string, save func(string) error, closeWindow func()) (*widget.Form, *widget.Entry, *widget.Label) {
	entry := widget.NewPasswordEntry()
	entry.SetPlaceHolder("sk-...")
	entry.SetText(current)
	status := widget.NewLabel("")

	form := &widget.Form{
		Items:      []*widget.FormItem{widget.NewFormItem("API key", entry)},
		SubmitText: "Save",
		OnSubmit: func() {
			if err := save(entry.Text); err != nil {
				status.SetText(err.Error())
				return
			}
			closeWindow()
		},
		OnCancel: closeWindow,
	}
	return form, entry, status
}
