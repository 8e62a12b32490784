// ui/about_window.go

package ui

import (
	"RekordPdbPatcher/common"
	"RekordPdbPatcher/locales"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
)

// ShowAboutWindow shows what the tool does and where it keeps its files
func ShowAboutWindow(parent fyne.Window, configMgr *common.ConfigManager, logger *common.Logger) {
	text := widget.NewLabel(locales.Translate("about.label.text"))
	text.Wrapping = fyne.TextWrapWord

	paths := widget.NewForm(
		widget.NewFormItem(locales.Translate("about.label.config"), widget.NewLabel(configMgr.GetConfigPath())),
		widget.NewFormItem(locales.Translate("about.label.log"), widget.NewLabel(logger.Path())),
	)

	content := container.NewVBox(
		widget.NewLabelWithStyle(common.AppName, fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		text,
		widget.NewSeparator(),
		paths,
	)

	d := dialog.NewCustom(locales.Translate("about.win.title"), locales.Translate("common.button.close"), content, parent)
	d.Resize(fyne.NewSize(600, 350))
	d.Show()
}
