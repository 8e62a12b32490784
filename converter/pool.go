// converter/pool.go

package converter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"RekordPdbPatcher/common"

	"golang.org/x/sync/errgroup"
)

// MaxDefaultConcurrency caps the derived worker count so the shared storage is not saturated
const MaxDefaultConcurrency = 8

// DefaultConcurrency returns the number of CPUs, capped at MaxDefaultConcurrency
func DefaultConcurrency() int {
	n := runtime.NumCPU()
	if n > MaxDefaultConcurrency {
		n = MaxDefaultConcurrency
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Pool runs encoder tasks with a bounded number of workers
type Pool struct {
	Concurrency int
	Encoder     Encoder
	Logger      *common.Logger
}

// NewPool creates a pool. concurrency <= 0 selects DefaultConcurrency.
func NewPool(encoder Encoder, concurrency int, logger *common.Logger) *Pool {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency()
	}
	return &Pool{Concurrency: concurrency, Encoder: encoder, Logger: logger}
}

// Run encodes every task and returns exactly one result per task, in task order.
// A failed task never stops the others. Each completed result is also sent on
// progress when it is non-nil; the caller must keep draining it until Run returns.
func (p *Pool) Run(ctx context.Context, tasks []Task, progress chan<- Result) []Result {
	results := make([]Result, len(tasks))

	limit := p.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency()
	}

	var g errgroup.Group
	g.SetLimit(limit)

	for i, task := range tasks {
		i, task := i, task
		g.Go(func() error {
			r := p.runTask(ctx, task)
			results[i] = r
			if progress != nil {
				progress <- r
			}
			return nil
		})
	}
	g.Wait()

	return results
}

func (p *Pool) runTask(ctx context.Context, task Task) Result {
	start := time.Now()
	result := Result{Task: task, Stage: StageEncode}

	if err := ctx.Err(); err != nil {
		result.Err = err
		return result
	}

	if task.Conflict != nil {
		result.Err = task.Conflict
		p.Logger.Warning("Skipping %s: %v", task.File.Path, result.Err)
		return result
	}

	if _, err := os.Lstat(task.Final); err == nil {
		result.Err = fmt.Errorf("%w: %s", ErrOutputExists, task.Final)
		p.Logger.Warning("Skipping %s: %v", task.File.Path, result.Err)
		return result
	}

	if err := os.MkdirAll(filepath.Dir(task.Output), 0755); err != nil {
		result.Err = common.NewIOError("mkdir", filepath.Dir(task.Output), err)
		return result
	}

	err := p.Encoder.Encode(ctx, task.File.Path, task.Output, task.Target)
	result.Duration = time.Since(start)
	if err != nil {
		if rmErr := common.DeleteFile(task.Output); rmErr != nil {
			p.Logger.Warning("Failed to remove partial output %s: %v", task.Output, rmErr)
		}
		result.Err = err
		p.Logger.Error("Conversion failed for %s: %v", task.File.Path, err)
		return result
	}

	result.Success = true
	result.OutputPath = task.Output
	p.Logger.Debug("Converted %s -> %s in %s", task.File.Path, task.Output, result.Duration.Round(time.Millisecond))
	return result
}
