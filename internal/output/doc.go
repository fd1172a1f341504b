// Package output intercepts text written to an output stream so that it is both passed through
// unchanged and captured as displayed_output metrics.
//
// An Interceptor can wrap any io.Writer directly. For code that writes to "the" process output
// rather than to a writer it was handed, Slot models the shared current-output-stream: Stdout is
// an intentionally global slot over os.Stdout, and Slot.Intercept installs an interceptor on it
// for a scope whose Release restores the previously active stream, with nested scopes following
// stack discipline.
package output
