// common/logger.go

// Package common implements shared functionality used across the RekordPdbPatcher application.
// This file contains logging functionality.

package common

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// earlyLogBuffer stores log messages before logger is initialized
var earlyLogBuffer []string
var earlyLogMutex sync.Mutex

// CaptureEarlyLog captures a log message before the logger is initialized
func CaptureEarlyLog(level Severity, format string, args ...interface{}) {
	earlyLogMutex.Lock()
	defer earlyLogMutex.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	message := fmt.Sprintf("%s [%s] %s", timestamp, level, fmt.Sprintf(format, args...))

	earlyLogBuffer = append(earlyLogBuffer, message)
}

// FlushEarlyLogs writes all captured early logs to the logger
func FlushEarlyLogs(logger *Logger) {
	earlyLogMutex.Lock()
	defer earlyLogMutex.Unlock()

	if logger == nil || len(earlyLogBuffer) == 0 {
		return
	}

	logger.Info("--- Flushing %d early log messages ---", len(earlyLogBuffer))

	// Written directly to preserve the original timestamps
	logger.mutex.Lock()
	for _, message := range earlyLogBuffer {
		logger.writeLocked(message + "\n")
	}
	logger.mutex.Unlock()

	earlyLogBuffer = nil
	logger.Info("--- End of early logs ---")
}

// Logger writes timestamped, leveled lines to a rotating log file and
// optionally mirrors them to a console writer.
// All methods are safe to call on a nil *Logger.
type Logger struct {
	logPath      string
	logFile      *os.File
	mutex        sync.Mutex
	maxSizeMB    int
	maxAgeDays   int
	currentSize  int64
	debug        bool
	console      io.Writer
	consoleLevel Severity
}

// NewLogger creates a new logger instance
func NewLogger(logPath string, maxSizeMB int, maxAgeDays int) (*Logger, error) {
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}
	if maxAgeDays <= 0 {
		maxAgeDays = 7
	}
	logger := &Logger{
		logPath:      logPath,
		maxSizeMB:    maxSizeMB,
		maxAgeDays:   maxAgeDays,
		consoleLevel: SeverityInfo,
	}

	// Create log directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		rootLogPath := filepath.Join(".", filepath.Base(logPath))
		logger.logPath = rootLogPath

		CaptureEarlyLog(SeverityWarning, "Failed to create log directory at '%s': %v", filepath.Dir(logPath), err)
		CaptureEarlyLog(SeverityWarning, "Attempting fallback to root directory: %s", rootLogPath)
	}

	if err := logger.checkRotation(); err != nil {
		CaptureEarlyLog(SeverityWarning, "Failed to check log rotation: %v", err)
	}

	file, err := os.OpenFile(logger.logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		rootLogPath := filepath.Join(".", filepath.Base(logPath))
		if logger.logPath == rootLogPath {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}

		CaptureEarlyLog(SeverityWarning, "Failed to open log file at '%s': %v", logPath, err)
		CaptureEarlyLog(SeverityWarning, "Attempting fallback to root directory: %s", rootLogPath)

		logger.logPath = rootLogPath
		file, err = os.OpenFile(rootLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file at primary and fallback locations: %w", err)
		}
	}

	logger.logFile = file
	if info, err := file.Stat(); err == nil {
		logger.currentSize = info.Size()
	}

	return logger, nil
}

// NewConsoleLogger creates a logger without a backing file. Lines at or above
// level are written to w.
func NewConsoleLogger(w io.Writer, level Severity) *Logger {
	return &Logger{console: w, consoleLevel: level}
}

// SetConsole mirrors every line at or above level to w. A nil writer disables mirroring.
func (l *Logger) SetConsole(w io.Writer, level Severity) {
	if l == nil {
		return
	}
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.console = w
	l.consoleLevel = level
}

// SetDebug enables or disables DEBUG lines
func (l *Logger) SetDebug(enabled bool) {
	if l == nil {
		return
	}
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.debug = enabled
}

// Path returns the path of the active log file, empty for console loggers
func (l *Logger) Path() string {
	if l == nil {
		return ""
	}
	return l.logPath
}

// Log writes a message to the log file
func (l *Logger) Log(level Severity, format string, args ...interface{}) error {
	if l == nil {
		return nil
	}
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if level == SeverityDebug && !l.debug {
		return nil
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	message := fmt.Sprintf("%s [%s] %s\n", timestamp, level, fmt.Sprintf(format, args...))

	if l.console != nil && level.AtLeast(l.consoleLevel) {
		io.WriteString(l.console, message)
	}

	if l.logFile == nil {
		return nil
	}

	if l.currentSize >= int64(l.maxSizeMB*1024*1024) {
		if err := l.rotate(); err != nil {
			return fmt.Errorf("failed to rotate log file: %w", err)
		}
	}

	return l.writeLocked(message)
}

func (l *Logger) writeLocked(message string) error {
	if l.logFile == nil {
		return nil
	}
	n, err := l.logFile.WriteString(message)
	if err != nil {
		return fmt.Errorf("failed to write to log file: %w", err)
	}
	l.currentSize += int64(n)
	return nil
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.Log(SeverityDebug, format, args...)
}

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.Log(SeverityInfo, format, args...)
}

// Warning logs a warning message
func (l *Logger) Warning(format string, args ...interface{}) {
	l.Log(SeverityWarning, format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.Log(SeverityError, format, args...)
}

// Critical logs a message for a failure that aborts the run
func (l *Logger) Critical(format string, args ...interface{}) {
	l.Log(SeverityCritical, format, args...)
}

// Close closes the log file
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.logFile != nil {
		err := l.logFile.Close()
		l.logFile = nil
		return err
	}
	return nil
}

// checkRotation checks if log rotation is needed based on age or size
func (l *Logger) checkRotation() error {
	if !FileExists(l.logPath) {
		return nil
	}

	info, err := os.Stat(l.logPath)
	if err != nil {
		return fmt.Errorf("failed to stat log file: %w", err)
	}

	if time.Since(info.ModTime()).Hours() >= float64(l.maxAgeDays*24) {
		return l.rotate()
	}

	if info.Size() >= int64(l.maxSizeMB*1024*1024) {
		return l.rotate()
	}

	return nil
}

// rotate renames the current file with a timestamp suffix and opens a fresh one
func (l *Logger) rotate() error {
	if l.logFile != nil {
		l.logFile.Close()
	}

	timestamp := time.Now().Format("2006-01-02@15_04_05")
	dir := filepath.Dir(l.logPath)
	base := filepath.Base(l.logPath)
	ext := filepath.Ext(base)
	rotatedPath := filepath.Join(dir, fmt.Sprintf("%s_%s%s", strings.TrimSuffix(base, ext), timestamp, ext))

	if err := os.Rename(l.logPath, rotatedPath); err != nil {
		return fmt.Errorf("failed to rename log file: %w", err)
	}

	file, err := os.OpenFile(l.logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to create new log file: %w", err)
	}

	l.logFile = file
	l.currentSize = 0

	l.cleanOldLogs()

	return nil
}

// cleanOldLogs removes rotated log files older than maxAgeDays
func (l *Logger) cleanOldLogs() {
	dir := filepath.Dir(l.logPath)
	base := filepath.Base(l.logPath)
	ext := filepath.Ext(base)
	name := base[:len(base)-len(ext)]

	files, err := filepath.Glob(filepath.Join(dir, fmt.Sprintf("%s_*%s", name, ext)))
	if err != nil {
		return
	}

	cutoff := time.Now().AddDate(0, 0, -l.maxAgeDays)
	for _, file := range files {
		info, err := os.Stat(file)
		if err != nil {
			continue
		}

		if info.ModTime().Before(cutoff) {
			os.Remove(file)
		}
	}
}
