// Package batch runs independent tasks with bounded parallelism and
// collects every outcome.
package batch

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Outcome is the result of one task: either a value or the error it failed with.
type Outcome[R any] struct {
	Value R
	Err   error
}

// OK reports whether the task succeeded.
func (o Outcome[R]) OK() bool { return o.Err == nil }

// Settle runs fn for every item with at most limit calls in flight and waits
// for all of them. The returned slice is index-aligned with items regardless
// of completion order. A failing task never cancels its siblings; a panic is
// captured as that item's error. limit <= 0 means unbounded.
func Settle[T, R any](ctx context.Context, items []T, limit int, fn func(context.Context, T) (R, error)) []Outcome[R] {
	outcomes := make([]Outcome[R], len(items))
	if len(items) == 0 {
		return outcomes
	}

	// A plain Group, not WithContext: one failure must not cancel the rest.
	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, item := range items {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					outcomes[i] = Outcome[R]{Err: fmt.Errorf("task panicked: %v", r)}
				}
			}()
			if err := ctx.Err(); err != nil {
				outcomes[i] = Outcome[R]{Err: err}
				return nil
			}
			v, err := fn(ctx, item)
			outcomes[i] = Outcome[R]{Value: v, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}
