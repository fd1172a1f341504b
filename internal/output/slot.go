package output

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"agentrix/internal/metrics"
)

// Stdout is the process-wide current output stream, initially os.Stdout. Output written through it
// from any package is visible to interceptions installed on it.
var Stdout = NewSlot(os.Stdout)

// Slot holds a replaceable current output stream. Writes to the slot go to whichever stream is
// current at the time of the write: the innermost live interception, or the base stream when none
// is installed.
type Slot struct {
	base   io.Writer
	scopes []*Scope
	mutex  sync.Mutex
}

// Scope is a live interception installed on a Slot. It must be released, typically with defer,
// to restore the stream that was current when it was installed.
type Scope struct {
	slot        *Slot
	interceptor *Interceptor
	previous    io.Writer
	released    bool
}

// NewSlot creates a slot whose current stream is w.
func NewSlot(w io.Writer) *Slot {
	return &Slot{base: w}
}

// Current returns the currently active stream.
func (s *Slot) Current() io.Writer {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.current()
}

// current returns the currently active stream; the caller must hold the mutex.
func (s *Slot) current() io.Writer {
	if len(s.scopes) == 0 {
		return s.base
	}

	return s.scopes[len(s.scopes)-1].interceptor
}

// Write forwards p to the currently active stream.
func (s *Slot) Write(p []byte) (int, error) {
	return s.Current().Write(p)
}

// Flush flushes the currently active stream.
func (s *Slot) Flush() error {
	return flushStream(s.Current())
}

// Intercept installs a new interceptor wrapping the currently active stream and returns its
// scope. Metrics are attributed to the session in effect for ctx.
func (s *Slot) Intercept(ctx context.Context, emitter metrics.Emitter) *Scope {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	previous := s.current()
	scope := &Scope{
		slot:        s,
		interceptor: NewInterceptor(ctx, previous, emitter),
		previous:    previous,
	}
	s.scopes = append(s.scopes, scope)

	return scope
}

// Interceptor returns the scope's interceptor.
func (sc *Scope) Interceptor() *Interceptor {
	return sc.interceptor
}

// Flush flushes the scope's interceptor, emitting any buffered output.
func (sc *Scope) Flush() error {
	return sc.interceptor.Flush()
}

// Release removes the scope's interceptor from the slot, then flushes any output it still
// buffers. Releasing the innermost scope restores the stream that was current when it was
// installed. Releasing an outer scope first, as happens when goroutines sharing a slot finish in
// any order, unlinks it: the scope installed directly above it is rewired onto the stream the
// released scope wrapped, so releasing every scope always leaves the base stream current.
// Releasing an already released scope is a noop.
func (sc *Scope) Release() error {
	s := sc.slot
	s.mutex.Lock()

	if sc.released {
		s.mutex.Unlock()
		return nil
	}

	for idx, scope := range s.scopes {
		if scope != sc {
			continue
		}

		if idx < len(s.scopes)-1 {
			successor := s.scopes[idx+1]
			successor.interceptor.rewrap(sc.previous)
			successor.previous = sc.previous
		}

		s.scopes = append(s.scopes[:idx], s.scopes[idx+1:]...)
		break
	}

	sc.released = true
	s.mutex.Unlock()

	return sc.interceptor.Flush()
}

// Print writes to Stdout in the manner of fmt.Print.
func Print(a ...interface{}) (int, error) {
	return fmt.Fprint(Stdout, a...)
}

// Printf writes to Stdout in the manner of fmt.Printf.
func Printf(format string, a ...interface{}) (int, error) {
	return fmt.Fprintf(Stdout, format, a...)
}

// Println writes to Stdout in the manner of fmt.Println.
func Println(a ...interface{}) (int, error) {
	return fmt.Fprintln(Stdout, a...)
}
