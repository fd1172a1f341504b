package metrics

import (
	"context"
	"encoding/json"
	"fmt"

	"agentrix/internal/log"
)

// Sink is an external backend accepting envelopes. The pipeline treats all implementations as
// interchangeable; a returned error marks a single failed delivery attempt.
type Sink interface {
	// Send delivers one envelope to the backend.
	Send(ctx context.Context, envelope Envelope) error
}

// SinkFunc adapts an ordinary function to the Sink interface.
type SinkFunc func(ctx context.Context, envelope Envelope) error

// LogSink is a Sink that writes the serialized envelope to a logger.
type LogSink struct {
	logger log.Logger
}

// NoopSink is a Sink that accepts and discards every envelope.
type NoopSink struct{}

// Send calls f(ctx, envelope).
func (f SinkFunc) Send(ctx context.Context, envelope Envelope) error {
	return f(ctx, envelope)
}

// NewLogSink creates a sink that logs every envelope at the Info level.
func NewLogSink(logger log.Logger) Sink {
	return &LogSink{logger}
}

// Send logs the wire representation of the envelope.
func (s *LogSink) Send(ctx context.Context, envelope Envelope) error {
	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("sink: error serializing envelope: metric=%s err=%v", envelope.MetricName, err)
	}

	s.logger.Info("sink: metric sent: envelope=%s", data)

	return nil
}

// NewNoopSink creates a sink that discards all envelopes.
func NewNoopSink() Sink {
	return &NoopSink{}
}

// Send noops.
func (s *NoopSink) Send(ctx context.Context, envelope Envelope) error {
	return nil
}
