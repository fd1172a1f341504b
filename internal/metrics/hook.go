package metrics

import (
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DropReason describes why an envelope never reached the sink.
type DropReason string

const (
	// DropReasonFull marks an envelope refused because the queue was at capacity.
	DropReasonFull DropReason = "full"
	// DropReasonClosed marks an envelope emitted after the pipeline was shut down.
	DropReasonClosed DropReason = "closed"
	// DropReasonAbandoned marks an envelope discarded because shutdown ran out of time.
	DropReasonAbandoned DropReason = "abandoned"
)

// PipelineHook is a metrics hook interface for reporting events that occur during the lifecycle
// of an envelope inside the delivery pipeline. Implementations must not block; they are invoked
// inline from both producers and the worker.
type PipelineHook interface {
	// EmitEnqueued reports the event that an envelope was accepted into the queue.
	EmitEnqueued(metric string)

	// EmitDropped reports the event that an envelope was discarded before delivery.
	EmitDropped(metric string, reason DropReason)

	// EmitDelivered reports the event that a sink accepted an envelope, along with the latency
	// of the sink call.
	EmitDelivered(metric string, latency time.Duration)

	// EmitSinkError reports the event that a sink failed to accept an envelope.
	EmitSinkError(metric string)
}

// AsyncStatsdPipelineHook is an implementation of PipelineHook that outputs metrics
// asynchronously to statsd.
type AsyncStatsdPipelineHook struct {
	client *StatsdClient
}

// PrometheusPipelineHook is an implementation of PipelineHook that records metrics into
// Prometheus collectors, to be scraped from the application's metrics endpoint.
type PrometheusPipelineHook struct {
	enqueued  *prometheus.CounterVec
	dropped   *prometheus.CounterVec
	delivered *prometheus.CounterVec
	failed    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
}

// MultiPipelineHook fans every emission out to several hooks.
type MultiPipelineHook struct {
	hooks []PipelineHook
}

// NoopPipelineHook implements the PipelineHook interface but noops on all emissions.
type NoopPipelineHook struct{}

// NewAsyncStatsdPipelineHook creates a new hook reporting to the specified statsd address with
// the specified sample rate.
func NewAsyncStatsdPipelineHook(addr string, sampleRate float32) (PipelineHook, error) {
	client, err := statsdClientFactory(addr, "agentrix", sampleRate)
	if err != nil {
		return nil, err
	}

	return &AsyncStatsdPipelineHook{client}, nil
}

// EmitEnqueued statsd implementation
func (h *AsyncStatsdPipelineHook) EmitEnqueued(metric string) {
	go h.client.Count("event.pipeline.enqueued", 1, map[string]string{
		"metric": metric,
	})
}

// EmitDropped statsd implementation
func (h *AsyncStatsdPipelineHook) EmitDropped(metric string, reason DropReason) {
	go h.client.Count("event.pipeline.dropped", 1, map[string]string{
		"metric": metric,
		"reason": string(reason),
	})
}

// EmitDelivered statsd implementation
func (h *AsyncStatsdPipelineHook) EmitDelivered(metric string, latency time.Duration) {
	go func() {
		tags := map[string]string{
			"metric": metric,
		}

		h.client.Count("event.pipeline.delivered", 1, tags)
		h.client.Timing("latency.pipeline.sink", latency, tags)
	}()
}

// EmitSinkError statsd implementation
func (h *AsyncStatsdPipelineHook) EmitSinkError(metric string) {
	go h.client.Count("event.pipeline.sink_error", 1, map[string]string{
		"metric": metric,
	})
}

// NewPrometheusPipelineHook creates a hook whose collectors are registered with the specified
// registerer. It returns an error if any collector fails to register.
func NewPrometheusPipelineHook(registerer prometheus.Registerer) (PipelineHook, error) {
	h := &PrometheusPipelineHook{
		enqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentrix",
			Subsystem: "pipeline",
			Name:      "enqueued_total",
			Help:      "Total number of envelopes accepted into the delivery queue.",
		}, []string{"metric"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentrix",
			Subsystem: "pipeline",
			Name:      "dropped_total",
			Help:      "Total number of envelopes discarded before delivery.",
		}, []string{"metric", "reason"}),
		delivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentrix",
			Subsystem: "pipeline",
			Name:      "delivered_total",
			Help:      "Total number of envelopes accepted by the sink.",
		}, []string{"metric"}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentrix",
			Subsystem: "pipeline",
			Name:      "sink_errors_total",
			Help:      "Total number of failed sink deliveries.",
		}, []string{"metric"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "agentrix",
			Subsystem: "pipeline",
			Name:      "sink_latency_seconds",
			Help:      "Latency of successful sink deliveries.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"metric"}),
	}

	collectors := []prometheus.Collector{h.enqueued, h.dropped, h.delivered, h.failed, h.latency}
	for _, collector := range collectors {
		if err := registerer.Register(collector); err != nil {
			return nil, fmt.Errorf("hook: error registering prometheus collector: err=%v", err)
		}
	}

	return h, nil
}

// EmitEnqueued Prometheus implementation
func (h *PrometheusPipelineHook) EmitEnqueued(metric string) {
	h.enqueued.WithLabelValues(metric).Inc()
}

// EmitDropped Prometheus implementation
func (h *PrometheusPipelineHook) EmitDropped(metric string, reason DropReason) {
	h.dropped.WithLabelValues(metric, string(reason)).Inc()
}

// EmitDelivered Prometheus implementation
func (h *PrometheusPipelineHook) EmitDelivered(metric string, latency time.Duration) {
	h.delivered.WithLabelValues(metric).Inc()
	h.latency.WithLabelValues(metric).Observe(latency.Seconds())
}

// EmitSinkError Prometheus implementation
func (h *PrometheusPipelineHook) EmitSinkError(metric string) {
	h.failed.WithLabelValues(metric).Inc()
}

// NewMultiPipelineHook creates a hook that forwards every emission to each of the specified
// hooks, in order.
func NewMultiPipelineHook(hooks ...PipelineHook) PipelineHook {
	return &MultiPipelineHook{hooks}
}

// EmitEnqueued forwards to all hooks.
func (h *MultiPipelineHook) EmitEnqueued(metric string) {
	for _, hook := range h.hooks {
		hook.EmitEnqueued(metric)
	}
}

// EmitDropped forwards to all hooks.
func (h *MultiPipelineHook) EmitDropped(metric string, reason DropReason) {
	for _, hook := range h.hooks {
		hook.EmitDropped(metric, reason)
	}
}

// EmitDelivered forwards to all hooks.
func (h *MultiPipelineHook) EmitDelivered(metric string, latency time.Duration) {
	for _, hook := range h.hooks {
		hook.EmitDelivered(metric, latency)
	}
}

// EmitSinkError forwards to all hooks.
func (h *MultiPipelineHook) EmitSinkError(metric string) {
	for _, hook := range h.hooks {
		hook.EmitSinkError(metric)
	}
}

// NewNoopPipelineHook creates a noop implementation of PipelineHook.
func NewNoopPipelineHook() PipelineHook {
	return &NoopPipelineHook{}
}

// EmitEnqueued noops.
func (h *NoopPipelineHook) EmitEnqueued(metric string) {}

// EmitDropped noops.
func (h *NoopPipelineHook) EmitDropped(metric string, reason DropReason) {}

// EmitDelivered noops.
func (h *NoopPipelineHook) EmitDelivered(metric string, latency time.Duration) {}

// EmitSinkError noops.
func (h *NoopPipelineHook) EmitSinkError(metric string) {}

// statsdClientFactory creates a configured StatsdClient with reasonable defaults for the given
// statsd server address, metric prefix, and sample rate.
func statsdClientFactory(addr string, prefix string, sampleRate float32) (*StatsdClient, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, err
	}

	defaultTags := map[string]string{
		"host": hostname,
	}

	return NewStatsdClient(addr, prefix, defaultTags, sampleRate)
}
