// common/status_messages.go

package common

import (
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// DefaultMaxStatusMessages bounds the rows kept in a StatusMessagesContainer
const DefaultMaxStatusMessages = 200

// StatusMessage is one row of the run log shown below a module
type StatusMessage struct {
	Severity Severity
	Content  string
}

// StatusMessagesContainer is a scrolling list of status rows with severity icons.
// The oldest rows are dropped once MaxMessages is exceeded.
type StatusMessagesContainer struct {
	widget.BaseWidget
	MaxMessages int

	mu        sync.Mutex
	messages  []StatusMessage
	container *fyne.Container
	scroll    *container.Scroll
}

// NewStatusMessagesContainer creates an empty container
func NewStatusMessagesContainer() *StatusMessagesContainer {
	smc := &StatusMessagesContainer{MaxMessages: DefaultMaxStatusMessages}
	smc.ExtendBaseWidget(smc)
	smc.container = container.NewVBox()
	smc.scroll = container.NewScroll(smc.container)
	smc.scroll.SetMinSize(fyne.NewSize(0, 300))
	return smc
}

// CreateRenderer links this widget to its renderer
func (smc *StatusMessagesContainer) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(smc.scroll)
}

// AddMessage appends a row and scrolls to it
func (smc *StatusMessagesContainer) AddMessage(severity Severity, content string) {
	smc.mu.Lock()
	smc.messages = append(smc.messages, StatusMessage{Severity: severity, Content: content})
	smc.container.Add(newStatusRow(severity, content))

	if smc.MaxMessages > 0 {
		for len(smc.messages) > smc.MaxMessages {
			smc.messages = smc.messages[1:]
			smc.container.Remove(smc.container.Objects[0])
		}
	}
	smc.mu.Unlock()

	smc.Refresh()
	smc.scroll.ScrollToBottom()
}

func newStatusRow(severity Severity, content string) fyne.CanvasObject {
	var icon fyne.Resource
	switch {
	case severity.AtLeast(SeverityError):
		icon = theme.ErrorIcon()
	case severity == SeverityWarning:
		icon = theme.WarningIcon()
	default:
		icon = theme.InfoIcon()
	}

	label := widget.NewLabel(content)
	label.Alignment = fyne.TextAlignLeading
	label.Wrapping = fyne.TextWrapWord
	label.TextStyle.Bold = severity.AtLeast(SeverityWarning)

	return container.NewBorder(nil, nil, widget.NewIcon(icon), nil, label)
}

// ClearMessages removes all rows
func (smc *StatusMessagesContainer) ClearMessages() {
	smc.mu.Lock()
	smc.messages = nil
	smc.container.RemoveAll()
	smc.mu.Unlock()
	smc.Refresh()
}

// GetMessages returns a copy of the current rows
func (smc *StatusMessagesContainer) GetMessages() []StatusMessage {
	smc.mu.Lock()
	defer smc.mu.Unlock()
	return append([]StatusMessage(nil), smc.messages...)
}
