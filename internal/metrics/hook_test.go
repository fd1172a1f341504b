package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusPipelineHook(t *testing.T) {
	registry := prometheus.NewRegistry()

	hook, err := NewPrometheusPipelineHook(registry)
	require.NoError(t, err)

	promHook := hook.(*PrometheusPipelineHook)

	hook.EmitEnqueued("user_input")
	hook.EmitEnqueued("user_input")
	hook.EmitDropped("user_input", DropReasonFull)
	hook.EmitDelivered("user_input", 5*time.Millisecond)
	hook.EmitSinkError("agent_output")

	assert.Equal(t, float64(2), testutil.ToFloat64(promHook.enqueued.WithLabelValues("user_input")))
	assert.Equal(t, float64(1), testutil.ToFloat64(promHook.dropped.WithLabelValues("user_input", "full")))
	assert.Equal(t, float64(1), testutil.ToFloat64(promHook.delivered.WithLabelValues("user_input")))
	assert.Equal(t, float64(1), testutil.ToFloat64(promHook.failed.WithLabelValues("agent_output")))

	// Registering the same collectors twice fails.
	_, err = NewPrometheusPipelineHook(registry)
	assert.Error(t, err)
}

func TestPipelineReportsThroughPrometheusHook(t *testing.T) {
	registry := prometheus.NewRegistry()

	hook, err := NewPrometheusPipelineHook(registry)
	require.NoError(t, err)

	p := newTestPipeline(&recordingSink{}, hook, PipelineOpts{})
	require.NoError(t, p.Start())

	p.Send(context.Background(), "displayed_output", map[string]interface{}{"text": "ab"})
	shutdown(t, p)

	promHook := hook.(*PrometheusPipelineHook)
	assert.Equal(t, float64(1), testutil.ToFloat64(promHook.enqueued.WithLabelValues("displayed_output")))
	assert.Equal(t, float64(1), testutil.ToFloat64(promHook.delivered.WithLabelValues("displayed_output")))
}

func TestMultiPipelineHook(t *testing.T) {
	first, second := newCountingHook(), newCountingHook()
	hook := NewMultiPipelineHook(first, second, NewNoopPipelineHook())

	hook.EmitEnqueued("a")
	hook.EmitDropped("a", DropReasonClosed)
	hook.EmitDelivered("a", time.Millisecond)
	hook.EmitSinkError("a")

	for _, h := range []*countingHook{first, second} {
		assert.Equal(t, 1, h.enqueued)
		assert.Equal(t, 1, h.droppedFor(DropReasonClosed))
		assert.Equal(t, 1, h.delivered)
		assert.Equal(t, 1, h.failed)
	}
}

func TestAsyncStatsdPipelineHook(t *testing.T) {
	hook, err := NewAsyncStatsdPipelineHook("127.0.0.1:8125", 1.0)
	require.NoError(t, err)

	// Emissions are fire-and-forget and must never block the caller.
	hook.EmitEnqueued("user_input")
	hook.EmitDropped("user_input", DropReasonFull)
	hook.EmitDelivered("user_input", time.Millisecond)
	hook.EmitSinkError("user_input")
}

