// Package fn provides the generic Result type and Stage composition used by
// the ingestion and matching pipelines, plus retry and bounded-parallel helpers.
package fn

import "fmt"

// Result carries either a value or an error through a pipeline stage.
// A Result is failed exactly when its error is non-nil.
type Result[T any] struct {
	val T
	err error
}

// Ok wraps a successful value.
func Ok[T any](v T) Result[T] {
	return Result[T]{val: v}
}

// Err wraps an error.
func Err[T any](err error) Result[T] {
	return Result[T]{err: err}
}

// Errf wraps a formatted error.
func Errf[T any](format string, args ...any) Result[T] {
	return Err[T](fmt.Errorf(format, args...))
}

// FromPair lifts a conventional (value, error) return into a Result.
func FromPair[T any](v T, err error) Result[T] {
	return Result[T]{val: v, err: err}
}

// IsOk reports whether the result holds a value.
func (r Result[T]) IsOk() bool { return r.err == nil }

// IsErr reports whether the result holds an error.
func (r Result[T]) IsErr() bool { return r.err != nil }

// Unwrap lowers the result back to a (value, error) pair.
func (r Result[T]) Unwrap() (T, error) { return r.val, r.err }
