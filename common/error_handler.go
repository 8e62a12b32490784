// common/error_handler.go

package common

import (
	"fmt"
	"io"
	"time"

	"RekordPdbPatcher/locales"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
)

// ErrorContext provides additional information about an error
type ErrorContext struct {
	Module      string
	Operation   string
	Error       error
	Severity    Severity
	Recoverable bool
	Timestamp   time.Time
}

// NewErrorContext creates a new error context with defaults
func NewErrorContext(module, operation string) ErrorContext {
	return ErrorContext{
		Module:      module,
		Operation:   operation,
		Severity:    SeverityError,
		Recoverable: true,
		Timestamp:   time.Now(),
	}
}

// ErrorHandler logs errors and shows them to the user, either in a dialog
// when a window is attached or on the console writer in headless mode.
type ErrorHandler struct {
	logger  *Logger
	window  fyne.Window
	console io.Writer
}

// NewErrorHandler creates a new error handler instance
func NewErrorHandler(logger *Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// SetWindow sets the window for displaying error dialogs
func (h *ErrorHandler) SetWindow(window fyne.Window) {
	h.window = window
}

// SetConsole sets the writer used when no window is attached
func (h *ErrorHandler) SetConsole(w io.Writer) {
	h.console = w
}

// GetLogger returns the logger instance
func (h *ErrorHandler) GetLogger() *Logger {
	return h.logger
}

// ShowErrorWithContext logs the error with its context and presents it to the user
func (h *ErrorHandler) ShowErrorWithContext(context ErrorContext) {
	if context.Error == nil {
		return
	}
	if context.Severity == "" {
		context.Severity = SeverityError
	}

	if context.Operation != "" {
		h.logger.Log(context.Severity, "%s: %v", context.Operation, context.Error)
	} else {
		h.logger.Log(context.Severity, "%v", context.Error)
	}

	switch {
	case h.window != nil:
		h.showErrorDialog(context)
	case h.console != nil:
		fmt.Fprintf(h.console, "%s: %v\n", locales.Translate("common.dialog.errorheader"), h.FormatError(context.Operation, context.Error))
	}
}

func (h *ErrorHandler) showErrorDialog(context ErrorContext) {
	message := widget.NewLabel(context.Error.Error())
	message.Wrapping = fyne.TextWrapWord

	content := container.NewVBox(message)
	if context.Module != "" || context.Operation != "" {
		details := widget.NewLabel(fmt.Sprintf("Module: %s\nOperation: %s", context.Module, context.Operation))
		details.Wrapping = fyne.TextWrapWord
		content.Add(widget.NewSeparator())
		content.Add(details)
	}

	customDialog := dialog.NewCustom(
		locales.Translate("common.dialog.errorheader"),
		locales.Translate("common.button.ok"),
		content,
		h.window,
	)
	customDialog.Resize(fyne.NewSize(450, customDialog.MinSize().Height))
	customDialog.Show()
}

// FormatError creates a standardized error message
func (h *ErrorHandler) FormatError(operation string, err error) error {
	if operation == "" {
		return err
	}
	return fmt.Errorf("%s: %w", operation, err)
}
