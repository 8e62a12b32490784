// pdb/patcher.go

// Package pdb rewrites file extension references inside Rekordbox binary catalog
// files. Substitutions are byte-for-byte and length preserving; the record
// structure of the file is never parsed.
package pdb

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"RekordPdbPatcher/common"
)

var (
	// ErrLengthMismatch is returned when old and new extensions differ in byte length.
	// Nothing is touched in that case.
	ErrLengthMismatch = errors.New("extensions differ in byte length")
	// ErrNoSuchReferences is returned when the file holds no occurrence of the old extension.
	// The file is not rewritten.
	ErrNoSuchReferences = errors.New("no references to replace")
	// ErrEmptyExtension is returned for an empty old extension
	ErrEmptyExtension = errors.New("empty extension")
)

// Outcome describes one (target, old extension) patch
type Outcome struct {
	Target        string
	OldExt        string
	NewExt        string
	BackupCreated bool
	BackupPath    string
	Replaced      int
	Rewritten     bool
	Err           error
}

// NoReferences reports whether the outcome was a soft no-op
func (o Outcome) NoReferences() bool {
	return errors.Is(o.Err, ErrNoSuchReferences)
}

// BackupPath returns the backup location for a catalog file: export.pdb -> export.pdb.backup
func BackupPath(file string) string {
	return file + common.ExtensionBackup
}

// RotatedBackupPath returns where an older backup is moved before a new one is
// written: export.pdb -> export.pdb.2006-01-02@15_04_05.backup
func RotatedBackupPath(file string, at time.Time) string {
	return file + "." + at.Format(common.BackupTimeFormat) + common.ExtensionBackup
}

// Patcher applies substitutions for one run. The first Patch call for a file
// copies it to its backup path; later calls for the same file reuse that backup,
// so the backup always holds the file as it was before the run. A backup left by
// an earlier run is moved to a timestamped name first and never overwritten.
type Patcher struct {
	logger   *common.Logger
	backedUp map[string]string
}

// NewPatcher creates a run-scoped patcher
func NewPatcher(logger *common.Logger) *Patcher {
	return &Patcher{logger: logger, backedUp: make(map[string]string)}
}

// Patch replaces every occurrence of oldExt with newExt in file and returns the count.
//
// Steps: length check, backup on first touch, full read, count, replace, atomic write.
// A zero count returns ErrNoSuchReferences without rewriting. I/O failures are
// returned as *common.IOError.
func (p *Patcher) Patch(file, oldExt, newExt string) (Outcome, error) {
	out := Outcome{Target: file, OldExt: oldExt, NewExt: newExt}

	oldBytes, newBytes := []byte(oldExt), []byte(newExt)
	if len(oldBytes) == 0 {
		out.Err = ErrEmptyExtension
		return out, out.Err
	}
	if len(oldBytes) != len(newBytes) {
		out.Err = fmt.Errorf("%w: %q (%d bytes) -> %q (%d bytes)", ErrLengthMismatch, oldExt, len(oldBytes), newExt, len(newBytes))
		return out, out.Err
	}

	backup, created, err := p.ensureBackup(file)
	if err != nil {
		out.Err = err
		return out, err
	}
	out.BackupPath = backup
	out.BackupCreated = created

	content, err := os.ReadFile(file)
	if err != nil {
		out.Err = common.NewIOError("read", file, err)
		return out, out.Err
	}

	count := bytes.Count(content, oldBytes)
	if count == 0 {
		p.logger.Info("No '%s' references found in %s", oldExt, file)
		out.Err = ErrNoSuchReferences
		return out, out.Err
	}

	patched := bytes.ReplaceAll(content, oldBytes, newBytes)
	if len(patched) != len(content) {
		out.Err = fmt.Errorf("%w: patched size %d differs from original %d", ErrLengthMismatch, len(patched), len(content))
		return out, out.Err
	}

	if err := common.WriteFileAtomic(file, patched); err != nil {
		out.Err = common.NewIOError("write", file, err)
		return out, out.Err
	}

	out.Replaced = count
	out.Rewritten = true
	p.logger.Info("Patched %d reference(s) in %s: %s -> %s", count, file, oldExt, newExt)
	return out, nil
}

// PatchAll applies every pair of mapping to file in order and returns one outcome per pair.
// It does not stop at the first failure.
func (p *Patcher) PatchAll(file string, pairs [][2]string) []Outcome {
	outcomes := make([]Outcome, 0, len(pairs))
	for _, pair := range pairs {
		o, _ := p.Patch(file, pair[0], pair[1])
		outcomes = append(outcomes, o)
	}
	return outcomes
}

func (p *Patcher) ensureBackup(file string) (string, bool, error) {
	if backup, ok := p.backedUp[file]; ok {
		return backup, false, nil
	}

	backup := BackupPath(file)
	if info, err := os.Lstat(backup); err == nil && info.Mode().IsRegular() {
		rotated := RotatedBackupPath(file, info.ModTime())
		if err := os.Rename(backup, rotated); err != nil {
			return "", false, common.NewIOError("rotate backup", backup, err)
		}
		p.logger.Info("Kept previous backup as %s", rotated)
	}
	if err := common.CopyFile(file, backup); err != nil {
		return "", false, common.NewIOError("backup", file, err)
	}
	p.backedUp[file] = backup
	p.logger.Info("Created backup: %s", backup)
	return backup, true, nil
}

// Restore copies the backup of file back over it
func Restore(file string) error {
	backup := BackupPath(file)
	if !common.FileExists(backup) {
		return common.NewIOError("restore", file, fmt.Errorf("backup %s not found", backup))
	}
	data, err := os.ReadFile(backup)
	if err != nil {
		return common.NewIOError("restore", backup, err)
	}
	if err := common.WriteFileAtomic(file, data); err != nil {
		return common.NewIOError("restore", file, err)
	}
	return nil
}
