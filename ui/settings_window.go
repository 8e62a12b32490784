// ui/settings_window.go

// Package ui provides the secondary windows of the application
package ui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"RekordPdbPatcher/common"
	"RekordPdbPatcher/locales"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

var (
	errBadConcurrency = errors.New("concurrency must be a whole number, 0 or more")
	errBadTimeout     = errors.New("timeout must be a whole number of seconds, 1 or more")
)

// settingsForm holds the editable global settings as entered
type settingsForm struct {
	EncoderPath string
	Concurrency string
	Timeout     string
	StagingRoot string
	LibraryKey  string
	Language    string
	Debug       bool
}

func formFromConfig(cfg common.GlobalConfig) settingsForm {
	return settingsForm{
		EncoderPath: cfg.EncoderPath,
		Concurrency: strconv.Itoa(cfg.Concurrency),
		Timeout:     strconv.Itoa(cfg.TaskTimeoutSeconds),
		StagingRoot: cfg.StagingRoot,
		LibraryKey:  cfg.LibraryKey,
		Language:    cfg.Language,
		Debug:       cfg.Debug,
	}
}

// apply validates f and copies it onto cfg
func (f settingsForm) apply(cfg common.GlobalConfig) (common.GlobalConfig, error) {
	concurrency, err := strconv.Atoi(strings.TrimSpace(f.Concurrency))
	if err != nil || concurrency < 0 {
		return cfg, errBadConcurrency
	}
	timeout, err := strconv.Atoi(strings.TrimSpace(f.Timeout))
	if err != nil || timeout < 1 {
		return cfg, errBadTimeout
	}

	cfg.EncoderPath = strings.TrimSpace(f.EncoderPath)
	if cfg.EncoderPath == "" {
		cfg.EncoderPath = common.DefaultEncoderPath
	}
	cfg.Concurrency = concurrency
	cfg.TaskTimeoutSeconds = timeout
	cfg.StagingRoot = strings.TrimSpace(f.StagingRoot)
	cfg.LibraryKey = f.LibraryKey
	cfg.Debug = f.Debug
	if f.Language != "" {
		cfg.Language = f.Language
	}
	return cfg, nil
}

// ShowSettingsWindow shows the global settings as a modal dialog. A language
// change takes effect on the next start.
func ShowSettingsWindow(parent fyne.Window, configMgr *common.ConfigManager, errorHandler *common.ErrorHandler, logger *common.Logger) {
	form := formFromConfig(configMgr.GetGlobalConfig())

	var saveButton *widget.Button
	markDirty := func() {
		if saveButton != nil {
			saveButton.SetIcon(nil)
		}
	}

	encoderEntry := widget.NewEntry()
	encoderEntry.SetText(form.EncoderPath)
	encoderEntry.SetPlaceHolder(common.DefaultEncoderPath)
	encoderEntry.OnChanged = func(string) { markDirty() }

	concurrencyEntry := widget.NewEntry()
	concurrencyEntry.SetText(form.Concurrency)
	concurrencyEntry.OnChanged = func(string) { markDirty() }

	timeoutEntry := widget.NewEntry()
	timeoutEntry.SetText(form.Timeout)
	timeoutEntry.OnChanged = func(string) { markDirty() }

	stagingEntry := widget.NewEntry()
	stagingEntry.SetText(form.StagingRoot)
	stagingField := common.CreateFolderSelectionField(locales.Translate("settings.staging.browse"), stagingEntry, func(string) { markDirty() })

	keyEntry := widget.NewPasswordEntry()
	keyEntry.SetText(form.LibraryKey)
	keyEntry.OnChanged = func(string) { markDirty() }

	debugCheck := common.CreateCheckbox(locales.Translate("settings.chkbox.debug"), func(bool) { markDirty() })
	debugCheck.SetChecked(form.Debug)

	languages := common.GetAvailableLanguages()
	langNames := make([]string, len(languages))
	for i, lang := range languages {
		langNames[i] = lang.Name
	}
	languageSelect := widget.NewSelect(langNames, func(string) { markDirty() })
	for _, lang := range languages {
		if lang.Code == form.Language {
			languageSelect.SetSelected(lang.Name)
		}
	}

	saveButton = common.CreateSubmitButton(locales.Translate("settings.write.settings"), func() {
		edited := settingsForm{
			EncoderPath: encoderEntry.Text,
			Concurrency: concurrencyEntry.Text,
			Timeout:     timeoutEntry.Text,
			StagingRoot: stagingEntry.Text,
			LibraryKey:  keyEntry.Text,
			Debug:       debugCheck.Checked,
		}
		for _, lang := range languages {
			if lang.Name == languageSelect.Selected {
				edited.Language = lang.Code
			}
		}

		cfg, err := edited.apply(configMgr.GetGlobalConfig())
		if err == nil {
			err = configMgr.SaveGlobalConfig(cfg)
		}
		if err != nil {
			ctx := common.NewErrorContext("Settings", "Save Configuration")
			ctx.Error = fmt.Errorf("%s: %w", locales.Translate("settings.err.save"), err)
			errorHandler.ShowErrorWithContext(ctx)
			return
		}

		logger.SetDebug(cfg.Debug)
		logger.Info("Settings saved to %s", configMgr.GetConfigPath())
		saveButton.SetIcon(theme.ConfirmIcon())
	})

	content := container.NewVBox(
		widget.NewForm(
			widget.NewFormItem(locales.Translate("settings.label.encoder"), encoderEntry),
			widget.NewFormItem(locales.Translate("settings.label.concurrency"), concurrencyEntry),
			widget.NewFormItem(locales.Translate("settings.label.timeout"), timeoutEntry),
			widget.NewFormItem(locales.Translate("settings.label.staging"), stagingField),
			widget.NewFormItem(locales.Translate("settings.label.librarykey"), keyEntry),
			widget.NewFormItem(locales.Translate("settings.lang.sel"), languageSelect),
		),
		debugCheck,
		container.NewHBox(layout.NewSpacer(), saveButton),
	)

	settingsDialog := dialog.NewCustom(locales.Translate("settings.win.title"), locales.Translate("common.button.close"), content, parent)
	settingsDialog.Resize(fyne.NewSize(700, 450))
	settingsDialog.Show()
}
