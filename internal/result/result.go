// Package result provides the two-track outcome type that every action in a
// pipeline produces.
//
// A Result is either Ok, carrying a value, or Err, carrying the cause of the
// failure. Map and AndThen only ever see success values, so a chain of steps
// short-circuits on the first failure without any explicit checks.
package result

import (
	"errors"
	"fmt"
)

// errNilCause replaces a nil cause passed to Err so that an error result
// always has a non-nil cause.
var errNilCause = errors.New("result: error variant created with nil cause")

// Result is the outcome of a computation: exactly one of value or cause.
type Result[T any] struct {
	value T
	err   error
}

// Ok returns a successful result holding v.
func Ok[T any](v T) Result[T] {
	return Result[T]{value: v}
}

// Err returns a failed result. A nil cause is replaced by a placeholder error.
func Err[T any](err error) Result[T] {
	if err == nil {
		err = errNilCause
	}
	return Result[T]{err: err}
}

// From adapts a Go style (value, error) pair.
func From[T any](v T, err error) Result[T] {
	if err != nil {
		return Err[T](err)
	}
	return Ok(v)
}

// IsOk reports whether r holds a value.
func (r Result[T]) IsOk() bool { return r.err == nil }

// IsErr reports whether r holds a cause.
func (r Result[T]) IsErr() bool { return r.err != nil }

// Value returns the success value, or the zero value on failure.
func (r Result[T]) Value() T { return r.value }

// Err returns the failure cause, or nil on success.
func (r Result[T]) Err() error { return r.err }

// Get unpacks r into the usual Go pair.
func (r Result[T]) Get() (T, error) { return r.value, r.err }

// ValueOr returns the success value or fallback.
func (r Result[T]) ValueOr(fallback T) T {
	if r.err != nil {
		return fallback
	}
	return r.value
}

// OrElse calls f with the cause when r failed and returns its result.
// Successful results are returned unchanged.
func (r Result[T]) OrElse(f func(error) Result[T]) Result[T] {
	if r.err == nil {
		return r
	}
	return f(r.err)
}

func (r Result[T]) String() string {
	if r.err != nil {
		return fmt.Sprintf("Err(%v)", r.err)
	}
	return fmt.Sprintf("Ok(%v)", r.value)
}

// Map applies f to the success value. f is never called on a failure.
func Map[T, U any](r Result[T], f func(T) U) Result[U] {
	if r.err != nil {
		return Result[U]{err: r.err}
	}
	return Ok(f(r.value))
}

// AndThen chains a dependent step that may itself fail.
func AndThen[T, U any](r Result[T], f func(T) Result[U]) Result[U] {
	if r.err != nil {
		return Result[U]{err: r.err}
	}
	return f(r.value)
}
