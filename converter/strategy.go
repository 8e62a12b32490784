// converter/strategy.go

package converter

import (
	"context"

	"RekordPdbPatcher/common"
)

// Strategy executes a batch of conversion tasks and returns one result per task
type Strategy interface {
	Name() string
	Execute(ctx context.Context, tasks []Task, progress chan<- Result) []Result
}

// Options are shared by both strategies
type Options struct {
	KeepOriginals bool
	// ContentRoot is the device content directory; staged mode mirrors paths relative to it
	ContentRoot string
	// StagingRoot is the parent of the scratch directory; empty uses the system temp dir
	StagingRoot string
	// RunID is embedded in the scratch directory name
	RunID  string
	Logger *common.Logger
}

// NewStrategy selects the staged or the direct strategy
func NewStrategy(staged bool, pool *Pool, opts Options) Strategy {
	if staged {
		return &StagedStrategy{pool: pool, opts: opts}
	}
	return &DirectStrategy{pool: pool, opts: opts}
}

// removeOriginals deletes the source file of every successful result unless
// originals are kept. Failures are recorded on the result and never undo the conversion.
func removeOriginals(results []Result, opts Options) {
	if opts.KeepOriginals {
		return
	}
	for i := range results {
		r := &results[i]
		if !r.Success {
			continue
		}
		if err := common.DeleteFile(r.Task.File.Path); err != nil {
			r.OriginalErr = common.NewIOError("delete", r.Task.File.Path, err)
			opts.Logger.Warning("Converted %s but could not remove the original: %v", r.Task.File.Path, err)
			continue
		}
		r.OriginalRemoved = true
	}
}
