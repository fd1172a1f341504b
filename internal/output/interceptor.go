package output

import (
	"context"
	"io"
	"strings"
	"sync"

	"agentrix/internal/instrument"
	"agentrix/internal/metrics"
)

// Interceptor is an io.Writer that duplicates every write into an internal buffer while passing it
// through to the wrapped stream. Each Flush emits the buffered text as one metric.
type Interceptor struct {
	ctx        context.Context
	underlying io.Writer
	recorder   *instrument.Recorder
	buffer     []string
	mutex      sync.Mutex
}

// NewInterceptor creates an interceptor wrapping underlying. Metrics are attributed to the session
// in effect for ctx.
func NewInterceptor(ctx context.Context, underlying io.Writer, emitter metrics.Emitter) *Interceptor {
	return &Interceptor{
		ctx:        ctx,
		underlying: underlying,
		recorder:   instrument.NewRecorder(emitter),
	}
}

// Write appends p to the buffer and forwards it unchanged to the wrapped stream.
func (i *Interceptor) Write(p []byte) (int, error) {
	i.mutex.Lock()
	i.buffer = append(i.buffer, string(p))
	underlying := i.underlying
	i.mutex.Unlock()

	return underlying.Write(p)
}

// WriteString is the string counterpart of Write.
func (i *Interceptor) WriteString(s string) (int, error) {
	i.mutex.Lock()
	i.buffer = append(i.buffer, s)
	underlying := i.underlying
	i.mutex.Unlock()

	return io.WriteString(underlying, s)
}

// Flush emits the text written since the previous flush as a displayed_output metric, unless it
// is entirely whitespace, then clears the buffer and flushes the wrapped stream.
func (i *Interceptor) Flush() error {
	i.mutex.Lock()
	text := strings.Join(i.buffer, "")
	i.buffer = nil
	underlying := i.underlying
	i.mutex.Unlock()

	if strings.TrimSpace(text) != "" {
		i.recorder.RecordDisplayedOutput(i.ctx, text)
	}

	return flushStream(underlying)
}

// Underlying returns the wrapped stream.
func (i *Interceptor) Underlying() io.Writer {
	i.mutex.Lock()
	defer i.mutex.Unlock()

	return i.underlying
}

// rewrap replaces the wrapped stream, for when the stream below this interceptor is unlinked.
func (i *Interceptor) rewrap(underlying io.Writer) {
	i.mutex.Lock()
	defer i.mutex.Unlock()

	i.underlying = underlying
}

// flushStream flushes a stream through whichever flushing method it exposes, if any.
func flushStream(w io.Writer) error {
	switch stream := w.(type) {
	case interface{ Flush() error }:
		return stream.Flush()
	case interface{ Flush() }:
		stream.Flush()
	}

	return nil
}
