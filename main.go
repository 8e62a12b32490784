// main.go

package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"RekordPdbPatcher/cli"
	"RekordPdbPatcher/common"
	"RekordPdbPatcher/locales"
	"RekordPdbPatcher/modules"
	"RekordPdbPatcher/theme"
	"RekordPdbPatcher/ui"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// RekordPdbPatcher is the desktop application
type RekordPdbPatcher struct {
	app          fyne.App
	mainWindow   fyne.Window
	configMgr    *common.ConfigManager
	logger       *common.Logger
	errorHandler *common.ErrorHandler
	modules      []common.Module
	configErr    error
}

// NewRekordPdbPatcher opens the configuration and log, selects the language and
// creates the main window
func NewRekordPdbPatcher() *RekordPdbPatcher {
	configMgr, configErr := common.OpenAppConfig()
	if configErr != nil {
		common.CaptureEarlyLog(common.SeverityError, "Failed to load configuration: %v", configErr)
	}

	logger, err := common.OpenAppLogger(configMgr.GetGlobalConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: %v\n", err)
		os.Exit(cli.ExitFailure)
	}
	common.FlushEarlyLogs(logger)
	common.DetectAndSetLanguage(configMgr, logger)

	fyneApp := app.NewWithID(common.AppID)
	fyneApp.Settings().SetTheme(theme.NewCustomTheme())

	mainWindow := fyneApp.NewWindow(locales.Translate("main.app.title"))
	mainWindow.Resize(fyne.NewSize(900, 700))

	errorHandler := common.NewErrorHandler(logger)
	errorHandler.SetWindow(mainWindow)

	logger.Info("%s", locales.Translate("main.log.appstart"))

	return &RekordPdbPatcher{
		app:          fyneApp,
		mainWindow:   mainWindow,
		configMgr:    configMgr,
		logger:       logger,
		errorHandler: errorHandler,
		configErr:    configErr,
	}
}

// Run builds the window content and blocks until the window is closed
func (rt *RekordPdbPatcher) Run() {
	defer func() {
		if r := recover(); r != nil {
			rt.logger.Critical("PANIC RECOVERED: %v\n%s", r, debug.Stack())
		}
		rt.logger.Close()
	}()

	rt.modules = []common.Module{
		modules.NewUSBPatcherModule(rt.mainWindow, rt.configMgr, rt.errorHandler),
	}

	tabs := container.NewAppTabs()
	for _, m := range rt.modules {
		tabs.Append(container.NewTabItemWithIcon(m.GetName(), m.GetIcon(), m.GetContent()))
	}
	tabs.SetTabLocation(container.TabLocationTop)

	rt.mainWindow.SetContent(container.NewBorder(rt.createMenuBar(), nil, nil, nil, tabs))
	rt.mainWindow.SetMaster()
	rt.mainWindow.Show()

	if rt.configErr != nil {
		ctx := common.NewErrorContext("", common.FileNameSettings)
		ctx.Error = rt.configErr
		ctx.Severity = common.SeverityWarning
		rt.errorHandler.ShowErrorWithContext(ctx)
	}

	rt.app.Run()
}

func (rt *RekordPdbPatcher) createMenuBar() fyne.CanvasObject {
	settingsButton := widget.NewButton(locales.Translate("settings.win.title"), func() {
		ui.ShowSettingsWindow(rt.mainWindow, rt.configMgr, rt.errorHandler, rt.logger)
	})
	aboutButton := widget.NewButton(locales.Translate("main.menu.about"), func() {
		ui.ShowAboutWindow(rt.mainWindow, rt.configMgr, rt.logger)
	})
	return container.NewHBox(settingsButton, aboutButton)
}

// main runs the command line interface when arguments are given and the
// desktop application otherwise
func main() {
	if len(os.Args) > 1 {
		os.Exit(cli.Run(os.Args[1:]))
	}
	NewRekordPdbPatcher().Run()
}
