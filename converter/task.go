// converter/task.go

package converter

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"RekordPdbPatcher/common"
	"RekordPdbPatcher/discovery"
	"RekordPdbPatcher/formats"

	"github.com/google/uuid"
)

// TaskIDPrefix prefixes generated task IDs
const TaskIDPrefix = "convert-"

// Stage names the step a result was recorded at
type Stage string

const (
	// StageEncode is the encoder run
	StageEncode Stage = "encode"
	// StageCopyBack is the copy from the staging directory to the device
	StageCopyBack Stage = "copy-back"
)

// ErrOutputExists is returned when the converted file would overwrite an existing file
var ErrOutputExists = errors.New("output file already exists")

// Task is one scheduled conversion.
// Output is where the encoder writes; Final is where the converted file ends up
// on the device. They are equal in direct mode. Extension is the target
// extension in the letter case of the source. A task with Conflict set is
// never run and fails with that error.
type Task struct {
	ID        string
	File      discovery.AudioFile
	Target    formats.TargetFormat
	Extension string
	Output    string
	Final     string
	Conflict  error
}

// NewTasks creates one task per convertible file. Files without a target are skipped.
// Each final path belongs to one task only: when two sources would produce the
// same file (song.m4a and song.ogg both become song.mp3), the first in file order
// keeps it and the others get a Conflict so their originals stay. Paths are
// compared ignoring case, as FAT and exFAT devices do.
func NewTasks(files []discovery.AudioFile) []Task {
	tasks := make([]Task, 0, len(files))
	claimed := make(map[string]string, len(files))
	for _, f := range files {
		if f.Class.Target == nil {
			continue
		}
		ext := formats.MatchCase(f.SourceExt(), f.Class.Target.Extension)
		final := common.ReplaceExtension(f.Path, ext)
		task := Task{
			ID:        generateTaskID(),
			File:      f,
			Target:    *f.Class.Target,
			Extension: ext,
			Output:    final,
			Final:     final,
		}

		key := strings.ToLower(final)
		if owner, ok := claimed[key]; ok {
			task.Conflict = fmt.Errorf("%w: %s is the output of %s", ErrOutputExists, final, owner)
		} else {
			claimed[key] = f.Path
		}
		tasks = append(tasks, task)
	}
	return tasks
}

// TargetExtension returns the extension of the converted file
func (t Task) TargetExtension() string {
	if t.Extension != "" {
		return t.Extension
	}
	return t.Target.Extension
}

// generateTaskID generates a time ordered unique task ID
func generateTaskID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Sprintf(TaskIDPrefix+"%d", time.Now().UnixNano())
	}
	return TaskIDPrefix + id.String()
}

// Result is the outcome of one task. Success means the converted file is in
// place at its final path. OriginalErr records a failure to delete the source
// afterwards; the conversion still counts as successful.
type Result struct {
	Task            Task
	Success         bool
	OutputPath      string
	Err             error
	Stage           Stage
	Duration        time.Duration
	OriginalRemoved bool
	OriginalErr     error
}

// IsIOFailure reports whether the task failed because of the storage medium
// rather than the encoder
func (r Result) IsIOFailure() bool {
	return !r.Success && common.IsIOError(r.Err)
}

// IsTimeout reports whether the encoder hit its deadline
func (r Result) IsTimeout() bool {
	var encErr *EncodeError
	return errors.As(r.Err, &encErr) && encErr.Timeout
}

// Summary aggregates results after the pool has finished
type Summary struct {
	Total         int
	Succeeded     int
	Failed        int
	IOFailures    int
	Timeouts      int
	OriginalsKept int
	Failures      []Result
}

// Summarize drains results into counters
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		if r.Success {
			s.Succeeded++
			if r.OriginalErr != nil {
				s.OriginalsKept++
			}
			continue
		}
		s.Failed++
		if r.IsIOFailure() {
			s.IOFailures++
		}
		if r.IsTimeout() {
			s.Timeouts++
		}
		s.Failures = append(s.Failures, r)
	}
	return s
}

// ConvertedExtensions returns old extension -> new extension for every
// successful conversion, one entry per extension spelling found on disk
func ConvertedExtensions(results []Result) map[string]string {
	pairs := make(map[string]string)
	for _, r := range results {
		if r.Success {
			pairs[r.Task.File.SourceExt()] = r.Task.TargetExtension()
		}
	}
	return pairs
}
