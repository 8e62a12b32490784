// modules/usb_patcher.go

// Package modules contains the tabs of the main window.
package modules

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"RekordPdbPatcher/common"
	"RekordPdbPatcher/converter"
	"RekordPdbPatcher/library"
	"RekordPdbPatcher/locales"
	"RekordPdbPatcher/pipeline"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

var errNoDevicePath = errors.New("no device folder selected")

// modeChoices and libraryChoices keep the select order; labels are translated
var (
	modeChoices    = []pipeline.Mode{pipeline.ModeFull, pipeline.ModeConvertOnly, pipeline.ModePatchOnly}
	libraryChoices = []library.Mode{library.ModeOff, library.ModeInspect, library.ModeRewrite}
)

// USBPatcherModule prepares an exported Rekordbox device: it converts unsupported
// audio files and rewrites the catalog references to them.
type USBPatcherModule struct {
	*common.ModuleBase

	// NewPipeline builds the pipeline for a run; tests replace it
	NewPipeline func(pipeline.Options, *common.Logger) *pipeline.Pipeline

	deviceEntry        *widget.Entry
	modeSelect         *widget.Select
	librarySelect      *widget.Select
	stagedCheckbox     *widget.Check
	keepOriginalsCheck *widget.Check
	dryRunCheckbox     *widget.Check
	submitBtn          *widget.Button
	restoreBtn         *widget.Button
	logBtn             *widget.Button
	lastReport         *pipeline.Report
	runDone            chan struct{}
}

// NewUSBPatcherModule creates the module and loads its saved configuration
func NewUSBPatcherModule(window fyne.Window, configMgr *common.ConfigManager, errorHandler *common.ErrorHandler) *USBPatcherModule {
	m := &USBPatcherModule{
		ModuleBase:  common.NewModuleBase(window, configMgr, errorHandler),
		NewPipeline: pipeline.New,
	}

	m.IsLoadingConfig = true
	m.initializeUI()
	m.IsLoadingConfig = false

	if configMgr != nil {
		m.LoadConfig(configMgr.GetModuleConfig(m.GetConfigName()))
	}
	return m
}

// GetName returns the localized tab title
func (m *USBPatcherModule) GetName() string {
	return locales.Translate("usbpatcher.label.info")
}

// GetConfigName returns the module's key in settings.conf
func (m *USBPatcherModule) GetConfigName() string {
	return common.ModuleKeyUSBPatcher
}

// GetIcon returns the tab icon
func (m *USBPatcherModule) GetIcon() fyne.Resource {
	return theme.StorageIcon()
}

// GetContent returns the module controls above the status messages
func (m *USBPatcherModule) GetContent() fyne.CanvasObject {
	return m.CreateModuleLayoutWithStatusMessages(m.moduleContent())
}

func (m *USBPatcherModule) moduleContent() fyne.CanvasObject {
	description := common.CreateDescriptionLabel(locales.Translate("usbpatcher.label.desc"))

	form := widget.NewForm(
		widget.NewFormItem(locales.Translate("usbpatcher.label.device"),
			common.CreateFolderSelectionField(locales.Translate("usbpatcher.label.device"), m.deviceEntry, m.CreateChangeHandler(func() { m.SaveConfig() }))),
		widget.NewFormItem(locales.Translate("usbpatcher.label.mode"), m.modeSelect),
		widget.NewFormItem(locales.Translate("usbpatcher.label.library"), m.librarySelect),
	)

	options := container.NewVBox(m.stagedCheckbox, m.keepOriginalsCheck, m.dryRunCheckbox)
	buttons := container.NewHBox(m.logBtn, layout.NewSpacer(), m.restoreBtn, m.submitBtn)

	return container.NewVBox(description, widget.NewSeparator(), form, options, buttons)
}

func (m *USBPatcherModule) initializeUI() {
	m.deviceEntry = widget.NewEntry()

	modeLabels := make([]string, len(modeChoices))
	for i, mode := range modeChoices {
		modeLabels[i] = locales.Translate("usbpatcher.mode." + mode.String())
	}
	m.modeSelect = widget.NewSelect(modeLabels, m.CreateChangeHandler(func() { m.SaveConfig() }))
	m.modeSelect.SetSelectedIndex(0)

	libraryLabels := make([]string, len(libraryChoices))
	for i, mode := range libraryChoices {
		libraryLabels[i] = locales.Translate("usbpatcher.library." + mode.String())
	}
	m.librarySelect = widget.NewSelect(libraryLabels, m.CreateChangeHandler(func() { m.SaveConfig() }))
	m.librarySelect.SetSelectedIndex(0)

	m.stagedCheckbox = common.CreateCheckbox(locales.Translate("usbpatcher.chkbox.staged"), m.CreateBoolChangeHandler(func() { m.SaveConfig() }))
	m.stagedCheckbox.SetChecked(true)
	m.keepOriginalsCheck = common.CreateCheckbox(locales.Translate("usbpatcher.chkbox.keeporiginals"), m.CreateBoolChangeHandler(func() { m.SaveConfig() }))
	m.dryRunCheckbox = common.CreateCheckbox(locales.Translate("usbpatcher.chkbox.dryrun"), nil)

	m.submitBtn = common.CreateSubmitButton(locales.Translate("usbpatcher.button.start"), func() {
		m.Start(context.Background())
	})
	m.restoreBtn = widget.NewButtonWithIcon(locales.Translate("usbpatcher.button.restore"), theme.HistoryIcon(), func() {
		m.RestoreBackups()
	})
	m.logBtn = widget.NewButtonWithIcon(locales.Translate("common.button.openlogs"), theme.DocumentIcon(), func() {
		common.ShowLogViewerWindow(m.Logger.Path())
	})
}

// LoadConfig fills the widgets from cfg without triggering saves
func (m *USBPatcherModule) LoadConfig(cfg common.ModuleConfig) {
	m.IsLoadingConfig = true
	defer func() { m.IsLoadingConfig = false }()

	m.deviceEntry.SetText(cfg.Get(common.KeyDevicePath, ""))

	if mode, err := pipeline.ParseMode(cfg.Get(common.KeyMode, "")); err == nil {
		m.modeSelect.SetSelectedIndex(indexOf(modeChoices, mode))
	}
	if mode, err := library.ParseMode(cfg.Get(common.KeyLibraryMode, "")); err == nil {
		m.librarySelect.SetSelectedIndex(indexOf(libraryChoices, mode))
	}

	m.stagedCheckbox.SetChecked(cfg.GetBool(common.KeyStaged, true))
	m.keepOriginalsCheck.SetChecked(cfg.GetBool(common.KeyKeepOriginals, false))
}

// SaveConfig stores the widget state in settings.conf and returns it
func (m *USBPatcherModule) SaveConfig() common.ModuleConfig {
	cfg := common.NewModuleConfig()
	if m.IsLoadingConfig {
		return cfg
	}

	cfg.Set(common.KeyDevicePath, strings.TrimSpace(m.deviceEntry.Text))
	cfg.Set(common.KeyMode, m.selectedMode().String())
	cfg.Set(common.KeyLibraryMode, m.selectedLibraryMode().String())
	cfg.SetBool(common.KeyStaged, m.stagedCheckbox.Checked)
	cfg.SetBool(common.KeyKeepOriginals, m.keepOriginalsCheck.Checked)

	if m.ConfigMgr != nil {
		if err := m.ConfigMgr.SaveModuleConfig(m.GetConfigName(), cfg); err != nil {
			m.Logger.Error("Failed to save %s configuration: %v", m.GetConfigName(), err)
		}
	}
	return cfg
}

func (m *USBPatcherModule) selectedMode() pipeline.Mode {
	if i := m.modeSelect.SelectedIndex(); i >= 0 && i < len(modeChoices) {
		return modeChoices[i]
	}
	return pipeline.ModeFull
}

func (m *USBPatcherModule) selectedLibraryMode() library.Mode {
	if i := m.librarySelect.SelectedIndex(); i >= 0 && i < len(libraryChoices) {
		return libraryChoices[i]
	}
	return library.ModeOff
}

// Options builds the run options from the global settings and the widgets
func (m *USBPatcherModule) Options() (pipeline.Options, error) {
	devicePath := strings.TrimSpace(m.deviceEntry.Text)
	if devicePath == "" {
		return pipeline.Options{}, errNoDevicePath
	}

	var global common.GlobalConfig
	if m.ConfigMgr != nil {
		global = m.ConfigMgr.GetGlobalConfig()
	} else {
		global = common.DefaultGlobalConfig()
	}
	global = common.ApplyEnv(global)

	opts := pipeline.OptionsFromConfig(devicePath, global)
	opts.Mode = m.selectedMode()
	opts.Library = m.selectedLibraryMode()
	opts.Staged = m.stagedCheckbox.Checked
	opts.KeepOriginals = m.keepOriginalsCheck.Checked
	opts.DryRun = m.dryRunCheckbox.Checked
	return opts, nil
}

func (m *USBPatcherModule) controls() []fyne.Disableable {
	return []fyne.Disableable{m.deviceEntry, m.modeSelect, m.librarySelect,
		m.stagedCheckbox, m.keepOriginalsCheck, m.dryRunCheckbox, m.submitBtn, m.restoreBtn}
}

// Start runs the pipeline in the background. The progress dialog's Stop
// button cancels the run.
func (m *USBPatcherModule) Start(parent context.Context) {
	if m.IsRunning() {
		return
	}

	opts, err := m.Options()
	if err != nil {
		m.HandleError(m.GetName(), err, common.OperationPrecondition, common.SeverityWarning)
		return
	}

	m.ClearStatusMessages()
	m.submitBtn.SetIcon(nil)
	common.DisableModuleControls(m.controls()...)

	p := m.NewPipeline(opts, m.Logger)
	p.Observer = func(s converter.Snapshot) {
		m.UpdateProgressStatus(s.Fraction(), progressText(s))
	}

	m.AddInfoMessage(fmt.Sprintf(locales.Translate("usbpatcher.status.starting"), opts.DevicePath, opts.Mode))
	ctx := m.StartOperation(parent, locales.Translate("usbpatcher.dialog.header"))

	done := make(chan struct{})
	m.runDone = done
	go func() {
		defer close(done)
		report, err := p.Run(ctx)
		m.finishRun(report, err)
	}()
}

// Done returns a channel closed when the last started run has finished
func (m *USBPatcherModule) Done() <-chan struct{} {
	return m.runDone
}

func (m *USBPatcherModule) finishRun(report *pipeline.Report, err error) {
	defer func() {
		m.FinishOperation()
		common.EnableModuleControls(m.controls()...)
	}()

	if err != nil {
		m.UpdateProgressStatus(1, err.Error())
		m.AddErrorMessage(err.Error())
		m.HandleError(m.GetName(), err, common.OperationPrecondition, common.SeverityCritical)
		return
	}

	m.lastReport = report
	for _, msg := range reportMessages(report) {
		switch {
		case msg.Severity.AtLeast(common.SeverityError):
			m.AddErrorMessage(msg.Content)
		case msg.Severity.AtLeast(common.SeverityWarning):
			m.AddWarningMessage(msg.Content)
		default:
			m.AddInfoMessage(msg.Content)
		}
	}

	status := locales.Translate("usbpatcher.status.completed")
	if report.HasFailures() {
		status = locales.Translate("usbpatcher.status.completedwitherrors")
	}
	m.UpdateProgressStatus(1, status)
	m.submitBtn.SetIcon(theme.ConfirmIcon())
}

// LastReport returns the report of the last finished run
func (m *USBPatcherModule) LastReport() *pipeline.Report {
	return m.lastReport
}

// RestoreBackups copies the catalog backups on the selected device back
func (m *USBPatcherModule) RestoreBackups() {
	devicePath := strings.TrimSpace(m.deviceEntry.Text)
	if devicePath == "" {
		m.HandleError(m.GetName(), errNoDevicePath, common.OperationRestore, common.SeverityWarning)
		return
	}

	m.ClearStatusMessages()
	restored, err := pipeline.Restore(devicePath, m.Logger)
	for _, target := range restored {
		m.AddInfoMessage(fmt.Sprintf(locales.Translate("usbpatcher.status.restored"), filepath.Base(target)))
	}
	if err != nil {
		m.AddErrorMessage(err.Error())
		m.HandleError(m.GetName(), err, common.OperationRestore, common.SeverityError)
	}
}

func progressText(s converter.Snapshot) string {
	name := filepath.Base(s.Last.Task.File.Path)
	if !s.Last.Success {
		return fmt.Sprintf(locales.Translate("usbpatcher.status.failed"), s.Done(), s.Total, name)
	}
	return fmt.Sprintf(locales.Translate("usbpatcher.status.converted"), s.Done(), s.Total, name)
}

// reportMessages turns a run report into status rows
func reportMessages(report *pipeline.Report) []common.StatusMessage {
	var msgs []common.StatusMessage
	add := func(sev common.Severity, key string, args ...interface{}) {
		msgs = append(msgs, common.StatusMessage{Severity: sev, Content: fmt.Sprintf(locales.Translate(key), args...)})
	}

	if report.Mode.Converts() {
		d := report.Discovery
		add(common.SeverityInfo, "usbpatcher.status.discovery", len(d.Convertible), len(d.Compatible), d.HiddenSkipped)
	}
	if report.Mode.Converts() && !report.DryRun {
		c := report.Conversion
		sev := common.SeverityInfo
		if c.Failed > 0 {
			sev = common.SeverityWarning
		}
		add(sev, "usbpatcher.status.conversion", c.Succeeded, c.Failed)
		if c.OriginalsKept > 0 {
			add(common.SeverityWarning, "usbpatcher.status.originalskept", c.OriginalsKept)
		}
	}
	if len(report.Mapping) > 0 {
		add(common.SeverityInfo, "usbpatcher.status.mapping", report.Mapping.String())
	}
	if report.Mode.Patches() {
		if report.DryRun {
			for _, target := range report.Targets {
				counts := report.References[target]
				total := 0
				for _, n := range counts {
					total += n
				}
				add(common.SeverityInfo, "usbpatcher.status.wouldpatch", filepath.Base(target), total)
			}
		} else {
			add(common.SeverityInfo, "usbpatcher.status.patched", report.Patched, len(report.Targets), report.Replaced)
			if report.NoReferences > 0 {
				add(common.SeverityWarning, "usbpatcher.status.noreferences", report.NoReferences)
			}
		}
	}
	if lib := report.Library; lib != nil {
		add(common.SeverityInfo, "usbpatcher.status.library", lib.Mode, lib.TotalHits(), lib.Updated)
	}

	for _, line := range report.FailureLines(pipeline.DefaultFailureLines, pipeline.DefaultDiagnosticLength) {
		msgs = append(msgs, common.StatusMessage{Severity: common.SeverityError, Content: line})
	}
	if more := report.RemainingFailures(pipeline.DefaultFailureLines); more > 0 {
		add(common.SeverityError, "usbpatcher.status.morefailures", more)
	}
	return msgs
}

func indexOf[T comparable](items []T, v T) int {
	for i, item := range items {
		if item == v {
			return i
		}
	}
	return 0
}
