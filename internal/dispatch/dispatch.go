// Package dispatch runs independent tasks with bounded concurrency and retries fallible operations.
package dispatch

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultLimit is the number of in-flight tasks used for network-bound stages.
const DefaultLimit = 25

// Task is a unit of work that yields a value or an error.
type Task[T any] func(ctx context.Context) (T, error)

// Outcome pairs a task's value with its error.
type Outcome[T any] struct {
	Value T
	Err   error
}

// Run executes tasks with at most limit in flight and returns one [Outcome] per task in input order.
//
// Tasks start in input order; a slot is handed to the next task as soon as one finishes.
// A failing task never cancels its siblings, and Run itself never retries.
func Run[T any](ctx context.Context, limit int, tasks []Task[T]) []Outcome[T] {
	if limit < 1 {
		limit = 1
	}

	out := make([]Outcome[T], len(tasks))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, task := range tasks {
		g.Go(func() error {
			v, err := task(ctx)
			out[i] = Outcome[T]{Value: v, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return out
}

// Retry calls op, and on failure waits delay and calls it again, up to attempts more times.
//
// The last error is returned unchanged. Cancelling ctx during a wait stops further attempts.
func Retry[T any](ctx context.Context, attempts int, delay time.Duration, op func(ctx context.Context) (T, error)) (T, error) {
	v, err := op(ctx)
	for i := 0; err != nil && i < attempts; i++ {
		if !wait(ctx, delay) {
			return v, err
		}
		v, err = op(ctx)
	}
	return v, err
}

func wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
