package flow

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/v0xg/pagepipe/internal/driver"
	"github.com/v0xg/pagepipe/internal/fault"
	"github.com/v0xg/pagepipe/internal/result"
)

// Map transforms the success value of a. f is not called when a fails.
func Map[T, U any](a Action[T], f func(T) U) Action[U] {
	return New(a.name, func(ctx context.Context, page driver.Page) result.Result[U] {
		return result.Map(a.Run(ctx, page), f)
	}).Describe(a.description)
}

// TryMap is Map for transformations that can fail.
func TryMap[T, U any](a Action[T], f func(T) (U, error)) Action[U] {
	return New(a.name, func(ctx context.Context, page driver.Page) result.Result[U] {
		return result.AndThen(a.Run(ctx, page), func(v T) result.Result[U] {
			u, err := f(v)
			if err != nil {
				return result.Err[U](fault.As(a.name, err))
			}
			return result.Ok(u)
		})
	}).Describe(a.description)
}

// AndThen runs a, then the action f builds from its value, against the same
// page.
func AndThen[T, U any](a Action[T], f func(T) Action[U]) Action[U] {
	return New(a.name, func(ctx context.Context, page driver.Page) result.Result[U] {
		return result.AndThen(a.Run(ctx, page), func(v T) result.Result[U] {
			return f(v).Run(ctx, page)
		})
	})
}

// Then runs a and, if it succeeded, b. The value of a is discarded.
func Then[A, B any](a Action[A], b Action[B]) Action[B] {
	return New(a.name+" >> "+b.name, func(ctx context.Context, page driver.Page) result.Result[B] {
		if r := a.Run(ctx, page); r.IsErr() {
			return result.Err[B](r.Err())
		}
		return b.Run(ctx, page)
	})
}

// Sequence runs actions in order and collects their values. The first
// failure is returned and later actions are not run.
func Sequence[T any](actions ...Action[T]) Action[[]T] {
	return New(joinNames("sequence", actions), func(ctx context.Context, page driver.Page) result.Result[[]T] {
		out := make([]T, 0, len(actions))
		for _, a := range actions {
			r := a.Run(ctx, page)
			if r.IsErr() {
				return result.Err[[]T](r.Err())
			}
			out = append(out, r.Value())
		}
		return result.Ok(out)
	})
}

// Or runs fallback only when a fails and returns its result as-is.
func (a Action[T]) Or(fallback Action[T]) Action[T] {
	return New(a.name+" | "+fallback.name, func(ctx context.Context, page driver.Page) result.Result[T] {
		if r := a.Run(ctx, page); r.IsOk() {
			return r
		}
		return fallback.Run(ctx, page)
	})
}

// OrElse recovers from a failure of a with the action f builds from the cause.
func (a Action[T]) OrElse(f func(error) Action[T]) Action[T] {
	return New(a.name, func(ctx context.Context, page driver.Page) result.Result[T] {
		return a.Run(ctx, page).OrElse(func(err error) result.Result[T] {
			return f(err).Run(ctx, page)
		})
	}).Describe(a.description)
}

// ForEach runs body for every item, strictly in order, and collects the
// values. The first failure is returned. No items yields an empty slice.
func ForEach[I, U any](items []I, body func(I) Action[U]) Action[[]U] {
	return New("for_each", func(ctx context.Context, page driver.Page) result.Result[[]U] {
		out := make([]U, 0, len(items))
		for _, item := range items {
			r := body(item).Run(ctx, page)
			if r.IsErr() {
				return result.Err[[]U](r.Err())
			}
			out = append(out, r.Value())
		}
		return result.Ok(out)
	})
}

// While runs body as long as cond holds and collects the values. There is no
// iteration cap; cancelling ctx ends the loop with a Timeout fault.
func While[U any](cond func() bool, body func() Action[U]) Action[[]U] {
	return New("while", func(ctx context.Context, page driver.Page) result.Result[[]U] {
		out := []U{}
		for cond() {
			if err := ctx.Err(); err != nil {
				return result.Err[[]U](fault.FromContext("while", err))
			}
			r := body().Run(ctx, page)
			if r.IsErr() {
				return result.Err[[]U](r.Err())
			}
			out = append(out, r.Value())
		}
		return result.Ok(out)
	})
}

// Branch evaluates cond once per run and runs exactly one of the branches.
func Branch[U any](cond func() bool, ifTrue, ifFalse func() Action[U]) Action[U] {
	return New("branch", func(ctx context.Context, page driver.Page) result.Result[U] {
		if cond() {
			return ifTrue().Run(ctx, page)
		}
		return ifFalse().Run(ctx, page)
	})
}

// BranchOn is Branch with a condition computed by an action.
func BranchOn[U any](cond Action[bool], ifTrue, ifFalse Action[U]) Action[U] {
	return AndThen(cond, func(ok bool) Action[U] {
		if ok {
			return ifTrue
		}
		return ifFalse
	}).Named(fmt.Sprintf("if %s", cond.name))
}

// Timeout bounds a single run of a. When d elapses first the result is a
// Timeout fault, even if the body does not watch its context. Cancellation of
// the caller's ctx is reported as such, not as this timeout.
//
// A body that ignores ctx keeps running after Timeout returns and may still
// touch the page while later actions run. Driver calls honour ctx, so only
// custom actions built with New or Func need care.
func (a Action[T]) Timeout(d time.Duration) Action[T] {
	return New(a.name, func(parent context.Context, page driver.Page) result.Result[T] {
		ctx, cancel := context.WithTimeout(parent, d)
		defer cancel()

		done := make(chan result.Result[T], 1)
		go func() { done <- a.Run(ctx, page) }()

		var cause error
		select {
		case r := <-done:
			if r.IsOk() || ctx.Err() == nil || fault.Is(r.Err(), fault.KindTimeout) {
				return r
			}
			cause = r.Err()
		case <-ctx.Done():
			cause = ctx.Err()
		}
		if err := parent.Err(); err != nil {
			return result.Err[T](fault.FromContext(a.name, err))
		}
		return result.Err[T](timedOut(a.name, d, cause))
	}).Describe(a.description)
}

func timedOut(action string, d time.Duration, cause error) error {
	return fault.Wrap(cause, fault.KindTimeout, action, fmt.Sprintf("timed out after %s", d))
}

// Throttle waits for a token from limiter before every run of a.
func (a Action[T]) Throttle(limiter *rate.Limiter) Action[T] {
	return New(a.name, func(ctx context.Context, page driver.Page) result.Result[T] {
		if err := limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return result.Err[T](fault.FromContext(a.name, ctx.Err()))
			}
			return result.Err[T](fault.Wrap(err, fault.KindTimeout, a.name, "rate limit"))
		}
		return a.Run(ctx, page)
	}).Describe(a.description)
}

// Instrument reports every run of a to the Observer in ctx and logs it at
// debug level.
func Instrument[T any](a Action[T]) Action[T] {
	return InstrumentAs(a.name, a)
}

// InstrumentAs is Instrument with the Observer seeing label instead of the
// action's name. Names embed selectors and URLs; labels should come from a
// small fixed set.
func InstrumentAs[T any](label string, a Action[T]) Action[T] {
	return New(a.name, func(ctx context.Context, page driver.Page) result.Result[T] {
		start := time.Now()
		r := a.Run(ctx, page)
		elapsed := time.Since(start)

		if o := observerFrom(ctx); o != nil {
			o.Observe(label, elapsed, r.Err())
		}

		log := Logger(ctx).WithField("action", a.name).WithField("duration", elapsed)
		if r.IsErr() {
			msg, fields := fault.Format(r.Err())
			log.WithFields(fields).Debugf("failed: %s", msg)
		} else {
			log.Debug("ok")
		}
		return r
	}).Describe(a.description)
}

func joinNames[T any](op string, actions []Action[T]) string {
	s := op + "("
	for i, a := range actions {
		if i > 0 {
			s += ", "
		}
		s += a.name
	}
	return s + ")"
}
