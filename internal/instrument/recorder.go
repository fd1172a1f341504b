package instrument

import (
	"context"

	"agentrix/internal/metrics"
)

// Recorder exposes explicit recording functions for call sites that cannot use wrappers.
type Recorder struct {
	emitter metrics.Emitter
}

// NewRecorder creates a recorder emitting through the specified emitter.
func NewRecorder(emitter metrics.Emitter) *Recorder {
	return &Recorder{emitter}
}

// Send emits an arbitrary metric, so that a Recorder can stand in wherever an Emitter is needed.
func (r *Recorder) Send(ctx context.Context, metricName string, data interface{}) {
	r.emitter.Send(ctx, metricName, data)
}

// RecordUserInput records text entered by a user.
func (r *Recorder) RecordUserInput(ctx context.Context, text string) {
	r.emitter.Send(ctx, UserInputMetric, map[string]interface{}{"text": text})
}

// RecordAgentOutput records output produced by an agent.
func (r *Recorder) RecordAgentOutput(ctx context.Context, output string) {
	r.emitter.Send(ctx, AgentOutputMetric, map[string]interface{}{"output": output})
}

// RecordDisplayedOutput records output displayed to a user.
func (r *Recorder) RecordDisplayedOutput(ctx context.Context, text string) {
	r.emitter.Send(ctx, DisplayedOutputMetric, map[string]interface{}{"text": text})
}

// LogUserAction records a named action along with arbitrary data describing it.
func (r *Recorder) LogUserAction(ctx context.Context, action string, data interface{}) {
	r.emitter.Send(ctx, UserActionMetric, map[string]interface{}{
		"action": action,
		"data":   data,
	})
}
