// converter/staged.go

package converter

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"RekordPdbPatcher/common"
)

// ScratchDirPrefix prefixes staging directory names
const ScratchDirPrefix = "rekordpdbpatcher-"

// StagedStrategy encodes into a local scratch directory first and then copies
// the results back to the device one by one. Originals are deleted only after
// their converted file has been copied back.
type StagedStrategy struct {
	pool *Pool
	opts Options

	// scratchDir is set while Execute runs
	scratchDir string
}

// Name returns the strategy name
func (s *StagedStrategy) Name() string {
	return "staged"
}

// Execute runs the four staged phases: encode into scratch, copy back,
// delete originals, remove scratch.
func (s *StagedStrategy) Execute(ctx context.Context, tasks []Task, progress chan<- Result) []Result {
	logger := s.opts.Logger

	scratch, err := os.MkdirTemp(s.opts.StagingRoot, s.scratchPattern())
	if err != nil {
		ioErr := common.NewIOError("create staging directory", s.opts.StagingRoot, err)
		logger.Error("%v", ioErr)
		return failAll(tasks, ioErr, progress)
	}
	s.scratchDir = scratch
	defer s.cleanup()

	prepared := make([]Task, len(tasks))
	for i, t := range tasks {
		t.Output = filepath.Join(scratch, s.stagedRelPath(t))
		prepared[i] = t
	}

	logger.Info("Phase 1: converting %d files into %s with %d workers", len(prepared), scratch, s.pool.Concurrency)
	results := s.pool.Run(ctx, prepared, progress)

	logger.Info("Phase 2: copying converted files back to the device")
	for i := range results {
		r := &results[i]
		if !r.Success {
			continue
		}
		s.copyBack(ctx, r)
		if progress != nil {
			progress <- *r
		}
	}

	if !s.opts.KeepOriginals {
		logger.Info("Phase 3: removing originals")
	}
	removeOriginals(results, s.opts)

	return results
}

// copyBack moves one staged output to its final device path
func (s *StagedStrategy) copyBack(ctx context.Context, r *Result) {
	r.Stage = StageCopyBack

	if err := ctx.Err(); err != nil {
		r.Success = false
		r.Err = err
		return
	}

	if err := common.CopyFile(r.OutputPath, r.Task.Final); err != nil {
		if rmErr := common.DeleteFile(r.Task.Final); rmErr != nil {
			s.opts.Logger.Warning("Failed to remove partial copy %s: %v", r.Task.Final, rmErr)
		}
		r.Success = false
		r.Err = common.NewIOError("copy back", r.Task.Final, err)
		s.opts.Logger.Error("%v", r.Err)
		return
	}

	r.OutputPath = r.Task.Final
}

// cleanup removes the scratch directory. Failures are logged only.
func (s *StagedStrategy) cleanup() {
	if s.scratchDir == "" {
		return
	}
	s.opts.Logger.Info("Phase 4: removing staging directory %s", s.scratchDir)
	if err := os.RemoveAll(s.scratchDir); err != nil {
		s.opts.Logger.Warning("Failed to remove staging directory %s: %v", s.scratchDir, err)
	}
	s.scratchDir = ""
}

func (s *StagedStrategy) scratchPattern() string {
	if s.opts.RunID == "" {
		return ScratchDirPrefix + "*"
	}
	return ScratchDirPrefix + s.opts.RunID + "-*"
}

// stagedRelPath mirrors the device layout below the content root. Sources outside
// the root are placed under their task ID so names cannot collide.
func (s *StagedStrategy) stagedRelPath(t Task) string {
	name := filepath.Base(t.Final)
	if s.opts.ContentRoot != "" {
		if rel, err := filepath.Rel(s.opts.ContentRoot, t.Final); err == nil && !strings.HasPrefix(rel, "..") {
			return rel
		}
	}
	return filepath.Join(t.ID, name)
}

func failAll(tasks []Task, err error, progress chan<- Result) []Result {
	results := make([]Result, len(tasks))
	for i, t := range tasks {
		results[i] = Result{Task: t, Stage: StageEncode, Err: err}
		if progress != nil {
			progress <- results[i]
		}
	}
	return results
}
