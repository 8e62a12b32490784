// common/severity.go

package common

// Severity represents the severity level of a message or error.
// It is used consistently across logging, error handling, and status messages.
type Severity string

const (
	// SeverityDebug represents diagnostic detail, only written when debug logging is enabled
	SeverityDebug Severity = "DEBUG"

	// SeverityInfo represents informational messages that don't indicate any problem
	SeverityInfo Severity = "INFO"

	// SeverityWarning represents warning messages that indicate potential issues
	// but don't prevent the run from completing
	SeverityWarning Severity = "WARNING"

	// SeverityError represents failures of a single file or operation
	// that the run recovers from
	SeverityError Severity = "ERROR"

	// SeverityCritical represents failures that abort the run
	SeverityCritical Severity = "CRITICAL"
)

// rank orders severities for filtering.
func (s Severity) rank() int {
	switch s {
	case SeverityDebug:
		return 0
	case SeverityInfo:
		return 1
	case SeverityWarning:
		return 2
	case SeverityError:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 1
	}
}

// AtLeast reports whether s is as severe as other or more.
func (s Severity) AtLeast(other Severity) bool {
	return s.rank() >= other.rank()
}
