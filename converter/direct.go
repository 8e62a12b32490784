// converter/direct.go

package converter

import (
	"context"
)

// DirectStrategy encodes next to each source file on the device
type DirectStrategy struct {
	pool *Pool
	opts Options
}

// Name returns the strategy name
func (s *DirectStrategy) Name() string {
	return "direct"
}

// Execute runs the pool with outputs written beside the sources, then removes
// the originals of successful conversions unless they are kept.
func (s *DirectStrategy) Execute(ctx context.Context, tasks []Task, progress chan<- Result) []Result {
	prepared := make([]Task, len(tasks))
	for i, t := range tasks {
		t.Output = t.Final
		prepared[i] = t
	}

	s.opts.Logger.Info("Converting %d files in place with %d workers", len(prepared), s.pool.Concurrency)
	results := s.pool.Run(ctx, prepared, progress)
	removeOriginals(results, s.opts)
	return results
}
