package linking

import (
	"context"

	"github.com/Ramsey-B/parklink/pkg/matching"
	"github.com/Ramsey-B/parklink/pkg/models"
)

// ProgressFunc is called synchronously after each federal park is evaluated.
// Returning an error stops the pass; the links made so far are returned with it.
// It runs on the linking goroutine, so it must not block for long.
type ProgressFunc func(progress models.LinkProgress) error

// Options configure a linking pass
type Options struct {
	matching.Config

	// Workers > 1 scores parks concurrently before the ordered claim step.
	// Output is identical to the sequential pass.
	Workers int

	Progress ProgressFunc
}

// DefaultOptions returns the default linking options
func DefaultOptions() Options {
	return Options{
		Config:  matching.DefaultConfig(),
		Workers: 1,
	}
}

// Validate checks the options before any matching work begins
func (o Options) Validate() error {
	return o.Config.Validate()
}

// CancelOnDone wraps next so the pass unwinds once ctx is done
func CancelOnDone(ctx context.Context, next ProgressFunc) ProgressFunc {
	return func(progress models.LinkProgress) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if next == nil {
			return nil
		}
		return next(progress)
	}
}

// EveryN only forwards every nth progress update, plus the last one
func EveryN(n int, next ProgressFunc) ProgressFunc {
	if n <= 1 || next == nil {
		return next
	}
	return func(progress models.LinkProgress) error {
		if progress.Current%n != 0 && progress.Current != progress.Total {
			return nil
		}
		return next(progress)
	}
}
