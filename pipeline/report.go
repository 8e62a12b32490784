// pipeline/report.go

package pipeline

import (
	"fmt"
	"path/filepath"
	"time"

	"RekordPdbPatcher/common"
	"RekordPdbPatcher/converter"
	"RekordPdbPatcher/device"
	"RekordPdbPatcher/discovery"
	"RekordPdbPatcher/library"
	"RekordPdbPatcher/pdb"
)

// Limits for the failure details printed at the end of a run
const (
	DefaultFailureLines     = 5
	DefaultDiagnosticLength = 200
)

// Report is the outcome of a run
type Report struct {
	RunID    string
	Mode     Mode
	Strategy string
	DryRun   bool
	Layout   device.Layout

	Discovery  discovery.Result
	Results    []converter.Result
	Conversion converter.Summary

	Mapping      Mapping
	Targets      []string
	Patches      []pdb.Outcome
	Patched      int
	Replaced     int
	NoReferences int
	PatchErrors  int

	// References holds dry-run counts: target -> old extension -> occurrences
	References map[string]map[string]int

	Library    *library.Report
	LibraryErr error

	Duration time.Duration
}

// Compatible returns the number of files that needed no conversion
func (r *Report) Compatible() int {
	return len(r.Discovery.Compatible)
}

// HasFailures reports whether any conversion, patch or library step failed
func (r *Report) HasFailures() bool {
	return r.Conversion.Failed > 0 || r.PatchErrors > 0 || r.LibraryErr != nil
}

// FailureLines returns up to max lines naming failed files with their diagnostic
// truncated to width characters. Conversion failures come first.
func (r *Report) FailureLines(max, width int) []string {
	if max <= 0 {
		max = DefaultFailureLines
	}
	if width <= 0 {
		width = DefaultDiagnosticLength
	}

	var lines []string
	add := func(name string, err error) bool {
		if len(lines) >= max {
			return false
		}
		lines = append(lines, fmt.Sprintf("%s: %s", name, common.Truncate(errorText(err), width)))
		return true
	}

	for _, f := range r.Conversion.Failures {
		name := f.Task.File.Path
		if rel, err := f.Task.File.RelPath(r.Layout.Root); err == nil {
			name = rel
		}
		if !add(name, f.Err) {
			return lines
		}
	}
	for _, o := range r.Patches {
		if o.Err == nil || o.NoReferences() {
			continue
		}
		if !add(filepath.Base(o.Target)+" "+o.OldExt, o.Err) {
			return lines
		}
	}
	if r.LibraryErr != nil {
		add(common.FileNameLibraryDB, r.LibraryErr)
	}
	return lines
}

// RemainingFailures returns how many failures FailureLines(max, ...) leaves out
func (r *Report) RemainingFailures(max int) int {
	if max <= 0 {
		max = DefaultFailureLines
	}
	total := len(r.Conversion.Failures) + r.PatchErrors
	if r.LibraryErr != nil {
		total++
	}
	if total > max {
		return total - max
	}
	return 0
}

func errorText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
