// Package flow is the action algebra: reusable descriptions of browser
// operations that produce a result.Result when run against a driver.Page, and
// the combinators that compose them into pipelines.
//
// Building a pipeline executes nothing. Run executes it, and Run is the only
// place an action body is invoked, so the guarantees it gives (panics become
// faults, expired contexts fail fast) hold for every composed action.
package flow

import (
	"context"
	"fmt"

	"github.com/v0xg/pagepipe/internal/driver"
	"github.com/v0xg/pagepipe/internal/fault"
	"github.com/v0xg/pagepipe/internal/result"
)

// ExecFunc is the body of an action.
type ExecFunc[T any] func(ctx context.Context, page driver.Page) result.Result[T]

// Action is an immutable, reusable description of an operation yielding T.
// The zero Action is valid and fails with an Invalid fault when run.
type Action[T any] struct {
	name        string
	description string
	exec        ExecFunc[T]
}

// New creates an action from its body.
func New[T any](name string, exec ExecFunc[T]) Action[T] {
	return Action[T]{name: name, exec: exec}
}

// Func adapts a function with a Go style return. Plain errors are classified
// as ActionFaults of the action.
func Func[T any](name string, fn func(ctx context.Context, page driver.Page) (T, error)) Action[T] {
	return New(name, func(ctx context.Context, page driver.Page) result.Result[T] {
		v, err := fn(ctx, page)
		if err != nil {
			return result.Err[T](fault.As(name, err))
		}
		return result.Ok(v)
	})
}

// Succeed returns an action that always yields v.
func Succeed[T any](v T) Action[T] {
	return New(fmt.Sprintf("succeed(%v)", v), func(context.Context, driver.Page) result.Result[T] {
		return result.Ok(v)
	})
}

// Fail returns an action that always fails with err.
func Fail[T any](name string, err error) Action[T] {
	return New(name, func(context.Context, driver.Page) result.Result[T] {
		return result.Err[T](err)
	})
}

// Named returns a copy of a with a different display name.
func (a Action[T]) Named(name string) Action[T] {
	a.name = name
	return a
}

// Describe returns a copy of a with a description.
func (a Action[T]) Describe(description string) Action[T] {
	a.description = description
	return a
}

func (a Action[T]) Name() string { return a.name }

func (a Action[T]) Description() string { return a.description }

func (a Action[T]) String() string {
	if a.description == "" {
		return a.name
	}
	return a.name + ": " + a.description
}

// Run executes the action against page. It never panics: a panic anywhere in
// the body, including user functions passed to combinators, is returned as an
// ActionFault carrying the stack. A context that is already done yields a
// Timeout fault without invoking the body.
func (a Action[T]) Run(ctx context.Context, page driver.Page) (r result.Result[T]) {
	if a.exec == nil {
		return result.Err[T](fault.New(fault.KindInvalid, a.name, "action has no body"))
	}
	if err := ctx.Err(); err != nil {
		return result.Err[T](fault.FromContext(a.name, err))
	}

	defer func() {
		if v := recover(); v != nil {
			r = result.Err[T](fault.FromPanic(a.name, v))
		}
	}()
	return a.exec(ctx, page)
}
