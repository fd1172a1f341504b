// Package instrument synthesizes metric events from application code: wrappers around functions
// that emit a metric from their return value, and explicit recording functions for call sites
// that cannot be wrapped.
//
// Wrappers come in two shapes chosen when the wrapper is built. A synchronous Func returns its
// result directly; an asynchronous AsyncFunc returns a Future. Wrapping preserves the shape, so
// callers of a wrapped asynchronous function still receive a Future, which resolves only after
// the inner result is available and the metric has been emitted.
//
// Wrapped calls that fail emit nothing and return the failure unchanged. Metrics never alter a
// wrapped function's control flow or return value.
package instrument
