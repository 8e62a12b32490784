// pipeline/errors.go

package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrNoTargets is returned when the catalog directory holds no .pdb file
	ErrNoTargets = errors.New("no catalog files found")
	// ErrEncoderUnavailable is returned when conversion is needed but the encoder cannot run
	ErrEncoderUnavailable = errors.New("encoder not available")
	// ErrMappingLength is returned for an extension pair of unequal byte length
	ErrMappingLength = errors.New("extension mapping pair differs in byte length")
	// ErrNoBackups is returned by Restore when no catalog file has a backup
	ErrNoBackups = errors.New("no catalog backups found")
)

// PreconditionError reports a check that failed before anything was modified
type PreconditionError struct {
	Check string
	Err   error
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("precondition %s failed: %v", e.Check, e.Err)
}

func (e *PreconditionError) Unwrap() error {
	return e.Err
}

// IsPrecondition reports whether err is or wraps a *PreconditionError
func IsPrecondition(err error) bool {
	var pe *PreconditionError
	return errors.As(err, &pe)
}

func precondition(check string, err error) error {
	return &PreconditionError{Check: check, Err: err}
}
