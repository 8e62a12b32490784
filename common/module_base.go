// common/module_base.go

package common

import (
	"context"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
)

// Module is one tab of the main window
type Module interface {
	GetName() string
	GetConfigName() string
	GetIcon() fyne.Resource
	GetContent() fyne.CanvasObject
	LoadConfig(config ModuleConfig)
	SaveConfig() ModuleConfig
}

// ModuleBase carries what every module needs: configuration, error reporting,
// the status message list and a cancellable progress dialog.
type ModuleBase struct {
	Window          fyne.Window
	ConfigMgr       *ConfigManager
	ErrorHandler    *ErrorHandler
	Logger          *Logger
	ProgressDialog  *ProgressDialog
	StatusMessages  *StatusMessagesContainer
	IsLoadingConfig bool

	mutex  sync.Mutex
	cancel context.CancelFunc
}

// NewModuleBase initializes a new ModuleBase. errorHandler must not be nil.
func NewModuleBase(window fyne.Window, configMgr *ConfigManager, errorHandler *ErrorHandler) *ModuleBase {
	if errorHandler == nil {
		panic("ErrorHandler cannot be nil")
	}

	return &ModuleBase{
		Window:         window,
		ConfigMgr:      configMgr,
		ErrorHandler:   errorHandler,
		Logger:         errorHandler.GetLogger(),
		StatusMessages: NewStatusMessagesContainer(),
	}
}

// CreateModuleLayoutWithStatusMessages places the module controls on top and
// lets the status messages fill the remaining space
func (m *ModuleBase) CreateModuleLayoutWithStatusMessages(moduleContent fyne.CanvasObject) fyne.CanvasObject {
	top := container.NewVBox(moduleContent)
	return container.New(layout.NewBorderLayout(top, nil, nil, nil), top, m.StatusMessages)
}

// StartOperation shows the progress dialog and returns a context that the Stop
// button cancels. The caller must call FinishOperation when the work returns.
func (m *ModuleBase) StartOperation(parent context.Context, title string) context.Context {
	ctx, cancel := context.WithCancel(parent)

	m.mutex.Lock()
	m.cancel = cancel
	m.ProgressDialog = NewProgressDialog(m.Window, title, "", cancel)
	dlg := m.ProgressDialog
	m.mutex.Unlock()

	dlg.Show()
	return ctx
}

// FinishOperation releases the operation context and turns Stop into OK
func (m *ModuleBase) FinishOperation() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	if m.ProgressDialog != nil {
		m.ProgressDialog.MarkCompleted()
	}
}

// IsRunning reports whether an operation started with StartOperation is active
func (m *ModuleBase) IsRunning() bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.cancel != nil
}

// UpdateProgressStatus updates the progress dialog, if one is shown
func (m *ModuleBase) UpdateProgressStatus(progress float64, statusText string) {
	m.mutex.Lock()
	dlg := m.ProgressDialog
	m.mutex.Unlock()

	if dlg != nil {
		dlg.UpdateProgress(progress)
		dlg.UpdateStatus(statusText)
	}
}

// HandleError reports err for operation through the error handler
func (m *ModuleBase) HandleError(module string, err error, operation string, severity Severity) {
	if m.ErrorHandler == nil || err == nil {
		return
	}
	ctx := NewErrorContext(module, operation)
	ctx.Error = err
	ctx.Severity = severity
	m.ErrorHandler.ShowErrorWithContext(ctx)
}

// AddInfoMessage adds an information row
func (m *ModuleBase) AddInfoMessage(message string) {
	m.StatusMessages.AddMessage(SeverityInfo, message)
}

// AddWarningMessage adds a warning row
func (m *ModuleBase) AddWarningMessage(message string) {
	m.StatusMessages.AddMessage(SeverityWarning, message)
}

// AddErrorMessage adds an error row
func (m *ModuleBase) AddErrorMessage(message string) {
	m.StatusMessages.AddMessage(SeverityError, message)
}

// ClearStatusMessages clears all rows
func (m *ModuleBase) ClearStatusMessages() {
	m.StatusMessages.ClearMessages()
}

// CreateChangeHandler suppresses handler while LoadConfig fills the widgets
func (m *ModuleBase) CreateChangeHandler(handler func()) func(string) {
	return func(string) {
		if !m.IsLoadingConfig {
			handler()
		}
	}
}

// CreateBoolChangeHandler is CreateChangeHandler for checkboxes
func (m *ModuleBase) CreateBoolChangeHandler(handler func()) func(bool) {
	return func(bool) {
		if !m.IsLoadingConfig {
			handler()
		}
	}
}
