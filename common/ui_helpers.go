// common/ui_helpers.go

package common

import (
	"fmt"
	"image/color"
	"os"
	"time"

	"RekordPdbPatcher/locales"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	nativedialog "github.com/sqweek/dialog"
)

// ProgressDialog is a modal dialog with a progress bar, a status line and a
// Stop button that turns into OK once MarkCompleted is called
type ProgressDialog struct {
	dialog        *dialog.CustomDialog
	progressBar   *widget.ProgressBar
	statusLabel   *widget.Label
	stopButton    *widget.Button
	cancelHandler func()
	isCompleted   bool
}

// NewProgressDialog creates a progress dialog. cancelHandler runs when Stop is
// pressed before completion.
func NewProgressDialog(window fyne.Window, title, initialStatus string, cancelHandler func()) *ProgressDialog {
	pd := &ProgressDialog{
		progressBar:   widget.NewProgressBar(),
		statusLabel:   widget.NewLabel(initialStatus),
		cancelHandler: cancelHandler,
	}
	pd.statusLabel.Wrapping = fyne.TextWrapWord

	pd.stopButton = widget.NewButtonWithIcon(locales.Translate("common.button.stop"), theme.MediaStopIcon(), func() {
		if pd.isCompleted {
			pd.Hide()
			return
		}
		if pd.cancelHandler != nil {
			pd.stopButton.Disable()
			pd.cancelHandler()
		}
	})
	pd.stopButton.Importance = widget.HighImportance

	content := container.NewVBox(pd.progressBar, pd.statusLabel)
	content.Add(container.NewHBox(layout.NewSpacer(), pd.stopButton, layout.NewSpacer()))

	rect := canvas.NewRectangle(color.Transparent)
	rect.SetMinSize(fyne.NewSize(550, 1))
	content.Add(rect)

	pd.dialog = dialog.NewCustomWithoutButtons(title, content, window)
	return pd
}

// Show displays the progress dialog
func (pd *ProgressDialog) Show() {
	pd.dialog.Show()
}

// Hide hides the progress dialog
func (pd *ProgressDialog) Hide() {
	pd.dialog.Hide()
}

// UpdateProgress sets the bar, value in [0,1]
func (pd *ProgressDialog) UpdateProgress(value float64) {
	pd.progressBar.SetValue(value)
}

// UpdateStatus updates the status text
func (pd *ProgressDialog) UpdateStatus(text string) {
	pd.statusLabel.SetText(text)
}

// MarkCompleted changes the Stop button to OK
func (pd *ProgressDialog) MarkCompleted() {
	pd.isCompleted = true
	pd.stopButton.Enable()
	pd.stopButton.SetText(locales.Translate("common.button.ok"))
	pd.stopButton.SetIcon(theme.ConfirmIcon())
}

// IsCompleted reports whether MarkCompleted was called
func (pd *ProgressDialog) IsCompleted() bool {
	return pd.isCompleted
}

// CreateNativeFolderBrowseButton opens the OS folder picker; fyne's own picker
// does not browse removable drives well on Windows
func CreateNativeFolderBrowseButton(title string, buttonText string, changeHandler func(string)) *widget.Button {
	return widget.NewButtonWithIcon(buttonText, theme.FolderOpenIcon(), func() {
		dirname, err := nativedialog.Directory().Title(title).Browse()
		if err == nil && dirname != "" && changeHandler != nil {
			changeHandler(dirname)
		}
	})
}

// CreateFolderSelectionField returns entryField with an icon-only browse button on its right
func CreateFolderSelectionField(title string, entryField *widget.Entry, changeHandler func(string)) fyne.CanvasObject {
	if entryField == nil {
		entryField = widget.NewEntry()
	}
	entryField.SetPlaceHolder(locales.Translate("common.entry.placeholderpath"))
	if changeHandler != nil {
		entryField.OnChanged = changeHandler
	}

	browseBtn := CreateNativeFolderBrowseButton(title, "", func(path string) {
		// SetText fires OnChanged
		entryField.SetText(path)
	})

	return container.NewBorder(nil, nil, nil, browseBtn, entryField)
}

// CreateSubmitButton creates a high importance button that starts an operation
func CreateSubmitButton(title string, handler func()) *widget.Button {
	btn := widget.NewButton(title, handler)
	btn.Importance = widget.HighImportance
	return btn
}

// CreateDescriptionLabel creates a wrapped bold label for module descriptions
func CreateDescriptionLabel(text string) *widget.Label {
	label := widget.NewLabel(text)
	label.Wrapping = fyne.TextWrapWord
	label.TextStyle = fyne.TextStyle{Bold: true}
	return label
}

// CreateCheckbox creates a checkbox with a label
func CreateCheckbox(labelText string, onChanged func(bool)) *widget.Check {
	return widget.NewCheck(labelText, onChanged)
}

// DisableModuleControls disables every component while an operation runs
func DisableModuleControls(components ...fyne.Disableable) {
	for _, component := range components {
		component.Disable()
	}
}

// EnableModuleControls re-enables components disabled by DisableModuleControls
func EnableModuleControls(components ...fyne.Disableable) {
	for _, component := range components {
		component.Enable()
	}
}

// ShowLogViewerWindow opens a read-only window with the content of logPath
func ShowLogViewerWindow(logPath string) {
	logText := widget.NewMultiLineEntry()
	logText.TextStyle = fyne.TextStyle{Monospace: true}
	logText.Wrapping = fyne.TextWrapBreak
	logText.Disable()

	scroll := container.NewScroll(logText)
	logWindow := fyne.CurrentApp().NewWindow(locales.Translate("common.logviewer.header"))

	refreshBtn := widget.NewButtonWithIcon(locales.Translate("common.button.refresh"), theme.ViewRefreshIcon(), func() {
		loadLogContent(logPath, logText, scroll)
	})
	refreshBtn.Importance = widget.HighImportance
	closeBtn := widget.NewButtonWithIcon(locales.Translate("common.button.close"), theme.CancelIcon(), func() {
		logWindow.Close()
	})

	buttons := container.NewHBox(layout.NewSpacer(), refreshBtn, closeBtn)
	logWindow.SetContent(container.NewBorder(nil, buttons, nil, nil, scroll))
	logWindow.Resize(fyne.NewSize(800, 600))
	logWindow.CenterOnScreen()

	loadLogContent(logPath, logText, scroll)
	logWindow.Show()
}

func loadLogContent(logPath string, logText *widget.Entry, scroll *container.Scroll) {
	content, err := os.ReadFile(logPath)
	if err != nil {
		logText.SetText(fmt.Sprintf(locales.Translate("common.err.readlog"), err))
		return
	}
	logText.SetText(string(content))

	// the entry has to be laid out before scrolling reaches the real bottom
	go func() {
		time.Sleep(100 * time.Millisecond)
		scroll.ScrollToBottom()
	}()
}
