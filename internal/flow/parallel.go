package flow

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/v0xg/pagepipe/internal/driver"
	"github.com/v0xg/pagepipe/internal/fault"
	"github.com/v0xg/pagepipe/internal/result"
)

// Pair holds the values of two actions run by Both.
type Pair[A, B any] struct {
	First  A
	Second B
}

type branch struct {
	index int
	name  string
	err   error
}

// Both runs a and b concurrently against the same page and waits for both.
// It succeeds only when both do; otherwise the ParallelFailure fault lists
// every failing branch. The page must tolerate concurrent calls.
func Both[A, B any](a Action[A], b Action[B]) Action[Pair[A, B]] {
	name := a.name + " & " + b.name
	return New(name, func(ctx context.Context, page driver.Page) result.Result[Pair[A, B]] {
		var (
			ra result.Result[A]
			rb result.Result[B]
			g  errgroup.Group
		)
		// Branch failures stay in the results so both branches always finish.
		g.Go(func() error {
			ra = a.Run(ctx, page)
			return nil
		})
		g.Go(func() error {
			rb = b.Run(ctx, page)
			return nil
		})
		_ = g.Wait()

		if err := parallelFailure(name, []branch{
			{index: 0, name: a.name, err: ra.Err()},
			{index: 1, name: b.name, err: rb.Err()},
		}); err != nil {
			return result.Err[Pair[A, B]](err)
		}
		return result.Ok(Pair[A, B]{First: ra.Value(), Second: rb.Value()})
	})
}

// All is the n-ary form of Both. Values keep the order of actions. No
// actions yields an empty slice.
func All[T any](actions ...Action[T]) Action[[]T] {
	name := joinNames("all", actions)
	return New(name, func(ctx context.Context, page driver.Page) result.Result[[]T] {
		results := make([]result.Result[T], len(actions))

		var g errgroup.Group
		for i, a := range actions {
			g.Go(func() error {
				results[i] = a.Run(ctx, page)
				return nil
			})
		}
		_ = g.Wait()

		branches := make([]branch, len(actions))
		out := make([]T, len(actions))
		for i, r := range results {
			branches[i] = branch{index: i, name: actions[i].name, err: r.Err()}
			out[i] = r.Value()
		}
		if err := parallelFailure(name, branches); err != nil {
			return result.Err[[]T](err)
		}
		return result.Ok(out)
	})
}

func parallelFailure(name string, branches []branch) error {
	var causes []error
	for _, b := range branches {
		if b.err != nil {
			causes = append(causes, fmt.Errorf("branch %d (%s): %w", b.index, b.name, b.err))
		}
	}
	if len(causes) == 0 {
		return nil
	}
	return &fault.Fault{
		Kind:    fault.KindParallelFailure,
		Action:  name,
		Message: fmt.Sprintf("%d of %d parallel branches failed", len(causes), len(branches)),
		Causes:  causes,
	}
}
