package modules

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"RekordPdbPatcher/common"
	"RekordPdbPatcher/converter"
	"RekordPdbPatcher/formats"
	"RekordPdbPatcher/library"
	"RekordPdbPatcher/locales"
	"RekordPdbPatcher/pipeline"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type copyEncoder struct{}

func (copyEncoder) Encode(ctx context.Context, src, dst string, target formats.TargetFormat) error {
	return os.WriteFile(dst, []byte("converted"), 0644)
}

func newModule(t *testing.T) (*USBPatcherModule, *common.ConfigManager) {
	t.Helper()
	a := test.NewApp()
	t.Cleanup(a.Quit)

	cfgMgr, err := common.NewConfigManager(filepath.Join(t.TempDir(), common.FileNameSettings))
	require.NoError(t, err)
	global := cfgMgr.GetGlobalConfig()
	global.StagingRoot = t.TempDir()
	require.NoError(t, cfgMgr.SaveGlobalConfig(global))

	logger := common.NewConsoleLogger(io.Discard, common.SeverityCritical)
	w := a.NewWindow("test")
	w.Resize(fyne.NewSize(800, 600))

	m := NewUSBPatcherModule(w, cfgMgr, common.NewErrorHandler(logger))
	m.NewPipeline = func(opts pipeline.Options, logger *common.Logger) *pipeline.Pipeline {
		p := pipeline.New(opts, logger)
		p.Encoder = copyEncoder{}
		p.Available = func(context.Context) bool { return true }
		return p
	}
	w.SetContent(m.GetContent())
	return m, cfgMgr
}

func newDevice(t *testing.T) (root, catalogFile string) {
	t.Helper()
	root = t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "Contents", "Artist"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "PIONEER", "rekordbox"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "Contents", "Artist", "a.flac"), []byte("flac"), 0644))
	catalogFile = filepath.Join(root, "PIONEER", "rekordbox", "export.pdb")
	require.NoError(t, os.WriteFile(catalogFile, []byte("\x00/Contents/Artist/a.flac\x00"), 0644))
	return root, catalogFile
}

func waitRun(t *testing.T, m *USBPatcherModule) {
	t.Helper()
	select {
	case <-m.Done():
	case <-time.After(30 * time.Second):
		t.Fatal("run did not finish")
	}
}

func TestUSBPatcherModuleRun(t *testing.T) {
	m, _ := newModule(t)
	root, catalogFile := newDevice(t)

	m.deviceEntry.SetText(root)
	m.Start(context.Background())
	waitRun(t, m)

	report := m.LastReport()
	require.NotNil(t, report)
	assert.Equal(t, 1, report.Conversion.Succeeded)
	assert.Equal(t, 1, report.Replaced)
	assert.False(t, m.IsRunning())
	assert.False(t, m.submitBtn.Disabled())
	require.NotNil(t, m.ProgressDialog)
	assert.True(t, m.ProgressDialog.IsCompleted())

	data, err := os.ReadFile(catalogFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "a.aiff")
	assert.FileExists(t, filepath.Join(root, "Contents", "Artist", "a.aiff"))
	assert.NoFileExists(t, filepath.Join(root, "Contents", "Artist", "a.flac"))

	msgs := m.StatusMessages.GetMessages()
	require.NotEmpty(t, msgs)
	for _, msg := range msgs {
		assert.False(t, msg.Severity.AtLeast(common.SeverityError), msg.Content)
	}

	m.RestoreBackups()
	data, err = os.ReadFile(catalogFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "a.flac")
}

func TestUSBPatcherModulePreconditionFailure(t *testing.T) {
	m, _ := newModule(t)
	m.deviceEntry.SetText(filepath.Join(t.TempDir(), "missing"))

	m.Start(context.Background())
	waitRun(t, m)

	assert.Nil(t, m.LastReport())
	msgs := m.StatusMessages.GetMessages()
	require.NotEmpty(t, msgs)
	assert.Equal(t, common.SeverityError, msgs[len(msgs)-1].Severity)
}

func TestUSBPatcherModuleOptions(t *testing.T) {
	m, _ := newModule(t)

	_, err := m.Options()
	assert.True(t, errors.Is(err, errNoDevicePath))

	m.deviceEntry.SetText(" /media/usb ")
	m.modeSelect.SetSelectedIndex(indexOf(modeChoices, pipeline.ModePatchOnly))
	m.librarySelect.SetSelectedIndex(indexOf(libraryChoices, library.ModeInspect))
	m.stagedCheckbox.SetChecked(false)
	m.dryRunCheckbox.SetChecked(true)

	opts, err := m.Options()
	require.NoError(t, err)
	assert.Equal(t, "/media/usb", opts.DevicePath)
	assert.Equal(t, pipeline.ModePatchOnly, opts.Mode)
	assert.Equal(t, library.ModeInspect, opts.Library)
	assert.False(t, opts.Staged)
	assert.True(t, opts.DryRun)
}

func TestUSBPatcherModuleConfigRoundTrip(t *testing.T) {
	m, cfgMgr := newModule(t)

	m.deviceEntry.SetText("/media/usb")
	m.modeSelect.SetSelectedIndex(indexOf(modeChoices, pipeline.ModeConvertOnly))
	m.keepOriginalsCheck.SetChecked(true)

	saved := cfgMgr.GetModuleConfig(common.ModuleKeyUSBPatcher)
	assert.Equal(t, "/media/usb", saved.Get(common.KeyDevicePath, ""))
	assert.Equal(t, "convert-only", saved.Get(common.KeyMode, ""))
	assert.True(t, saved.GetBool(common.KeyKeepOriginals, false))
	assert.True(t, saved.GetBool(common.KeyStaged, false))

	other := NewUSBPatcherModule(m.Window, cfgMgr, m.ErrorHandler)
	assert.Equal(t, "/media/usb", other.deviceEntry.Text)
	assert.Equal(t, pipeline.ModeConvertOnly, other.selectedMode())
	assert.True(t, other.keepOriginalsCheck.Checked)
}

func TestUSBPatcherModuleWarnsAboutSoftProblems(t *testing.T) {
	m, _ := newModule(t)

	report := &pipeline.Report{
		Mode:         pipeline.ModeFull,
		Conversion:   converter.Summary{Total: 2, Succeeded: 2, OriginalsKept: 1},
		Mapping:      pipeline.Mapping{{Old: ".flac", New: ".aiff"}},
		Targets:      []string{"/media/usb/PIONEER/rekordbox/export.pdb", "/media/usb/PIONEER/rekordbox/exportExt.pdb"},
		Patched:      1,
		Replaced:     2,
		NoReferences: 1,
	}
	m.finishRun(report, nil)

	warnings := make(map[string]bool)
	for _, msg := range m.StatusMessages.GetMessages() {
		assert.False(t, msg.Severity.AtLeast(common.SeverityError), msg.Content)
		if msg.Severity == common.SeverityWarning {
			warnings[msg.Content] = true
		}
	}
	assert.True(t, warnings[fmt.Sprintf(locales.Translate("usbpatcher.status.originalskept"), 1)])
	assert.True(t, warnings[fmt.Sprintf(locales.Translate("usbpatcher.status.noreferences"), 1)])
	assert.Same(t, report, m.LastReport())
}
