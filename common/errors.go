// common/errors.go

package common

import (
	"errors"
	"fmt"
)

// IOError reports a storage-medium problem (backup, copy-back, delete, cleanup).
// It is kept apart from encoder failures so reports can tell the two causes apart.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError wraps err, returning nil when err is nil.
func NewIOError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Op: op, Path: path, Err: err}
}

// IsIOError reports whether err carries an IOError anywhere in its chain.
func IsIOError(err error) bool {
	var ioErr *IOError
	return errors.As(err, &ioErr)
}

// Truncate shortens s to at most max bytes, keeping the tail and marking the cut.
// Encoder diagnostics put the useful line last.
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return "..." + s[len(s)-max:]
}
