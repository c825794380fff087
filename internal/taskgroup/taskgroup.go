// Package taskgroup runs one task per item concurrently and waits for all
// of them, isolating failures so one task can never stop its siblings.
package taskgroup

import (
	"context"
	"fmt"
	"runtime/debug"

	"golang.org/x/sync/errgroup"
)

// PanicError is recorded for a task that panicked
type PanicError struct {
	Value interface{}
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}

// Results holds the error of every task by position; nil means success
type Results []error

// Failed returns how many tasks returned an error or panicked
func (r Results) Failed() int {
	n := 0
	for _, err := range r {
		if err != nil {
			n++
		}
	}
	return n
}

// Run calls fn for every index in [0, n) concurrently, with at most limit
// running at once when limit > 0. It always waits for every task.
func Run(ctx context.Context, n, limit int, fn func(ctx context.Context, i int) error) Results {
	results := make(Results, n)
	if n == 0 {
		return results
	}

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i := 0; i < n; i++ {
		g.Go(func() error {
			results[i] = call(ctx, i, fn)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Each is Run over a slice
func Each[T any](ctx context.Context, items []T, limit int, fn func(ctx context.Context, item T) error) Results {
	return Run(ctx, len(items), limit, func(ctx context.Context, i int) error {
		return fn(ctx, items[i])
	})
}

func call(ctx context.Context, i int, fn func(ctx context.Context, i int) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn(ctx, i)
}
