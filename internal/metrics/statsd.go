package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/cactus/go-statsd-client/statsd"
)

// StatsdClient is an abstraction over a UDP statsd emitter.
type StatsdClient struct {
	backend     statsd.Statter
	defaultTags map[string]string
	sampleRate  float32
}

// StatsdSink is a Sink that reports each envelope as a statsd event count, along with the
// serialized size of its payload.
type StatsdSink struct {
	client *StatsdClient
	opts   StatsdSinkOpts
}

// StatsdSinkOpts formalizes configuration options for the statsd sink.
type StatsdSinkOpts struct {
	// SessionTag tags every metric with the envelope's session identifier ("null" when absent).
	// Session identifiers are unbounded, so every session becomes a new series in the backend;
	// leave this off unless the backend is sized for per-session cardinality.
	SessionTag bool
}

// NewStatsdClient creates a new statsd client pointing the specified listener/server address with
// an optional prefix and set of default tags to include with every metric.
func NewStatsdClient(addr string, prefix string, defaultTags map[string]string, sampleRate float32) (*StatsdClient, error) {
	client, err := statsd.NewClient(addr, prefix)
	if err != nil {
		return nil, fmt.Errorf("statsd: error creating statsd client: err=%v", err)
	}

	return &StatsdClient{
		backend:     client,
		defaultTags: defaultTags,
		sampleRate:  sampleRate,
	}, nil
}

// Count emits a count metric with a configurable delta.
func (c *StatsdClient) Count(metric string, delta int64, tags map[string]string) error {
	return c.backend.Inc(c.formatMetric(metric, tags), delta, c.sampleRate)
}

// Gauge emits a gauge metric.
func (c *StatsdClient) Gauge(metric string, value int64, tags map[string]string) error {
	return c.backend.Gauge(c.formatMetric(metric, tags), value, c.sampleRate)
}

// Timing emits a time duration metric.
func (c *StatsdClient) Timing(metric string, duration time.Duration, tags map[string]string) error {
	return c.backend.TimingDuration(c.formatMetric(metric, tags), duration, c.sampleRate)
}

// Size emits a payload size metric as the number of bytes.
func (c *StatsdClient) Size(metric string, size int64, tags map[string]string) error {
	// Size metrics share the same semantics with timing metrics; they are interpreted and
	// aggregated in the same way.
	return c.backend.Timing(c.formatMetric(metric, tags), size, c.sampleRate)
}

// Close releases the underlying UDP socket.
func (c *StatsdClient) Close() error {
	return c.backend.Close()
}

// formatMetric serializes a metric and a map of tags (in addition to any default tags) into a
// single string to ship to the time-series database backend.
func (c *StatsdClient) formatMetric(metric string, tags map[string]string) string {
	// Some characters, like colons, are incompatible with the statsd protocol.
	// This standardizes on URL escaping to encode such characters that may appear in the metric
	// name or tag keys/values.
	escapedMetric := url.QueryEscape(metric)

	if len(c.defaultTags)+len(tags) == 0 {
		return escapedMetric
	}

	// Merge specified tags with the default tags, if available.
	mergedTags := make(map[string]string)
	for key, value := range c.defaultTags {
		mergedTags[key] = value
	}
	for key, value := range tags {
		mergedTags[key] = value
	}

	keys := make([]string, 0, len(mergedTags))
	for key := range mergedTags {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	// Tags are delimited InfluxDB-style, in a stable order.
	var components []string
	for _, key := range keys {
		components = append(
			components,
			fmt.Sprintf("%s=%s", url.QueryEscape(key), url.QueryEscape(mergedTags[key])),
		)
	}

	return fmt.Sprintf("%s,%s", escapedMetric, strings.Join(components, ","))
}

// NewStatsdSink creates a sink reporting to the specified statsd address with the specified metric
// prefix and sample rate. The sample rate must be positive; at zero nothing is ever sent.
func NewStatsdSink(addr string, prefix string, sampleRate float32, opts StatsdSinkOpts) (*StatsdSink, error) {
	client, err := statsdClientFactory(addr, prefix, sampleRate)
	if err != nil {
		return nil, err
	}

	return NewStatsdSinkFromClient(client, opts), nil
}

// NewStatsdSinkFromClient creates a sink around an existing statsd client.
func NewStatsdSinkFromClient(client *StatsdClient, opts StatsdSinkOpts) *StatsdSink {
	return &StatsdSink{client: client, opts: opts}
}

// Send emits one count for the envelope's metric name and the byte size of its payload.
func (s *StatsdSink) Send(ctx context.Context, envelope Envelope) error {
	var tags map[string]string
	if s.opts.SessionTag {
		tags = map[string]string{"session": "null"}
		if envelope.HasSession() {
			tags["session"] = envelope.SessionID
		}
	}

	if err := s.client.Count(fmt.Sprintf("event.%s", envelope.MetricName), 1, tags); err != nil {
		return fmt.Errorf("statsd: error emitting event count: metric=%s err=%v", envelope.MetricName, err)
	}

	payload, err := json.Marshal(envelope.Data)
	if err != nil {
		return fmt.Errorf("statsd: error serializing payload: metric=%s err=%v", envelope.MetricName, err)
	}

	if err := s.client.Size(fmt.Sprintf("size.%s", envelope.MetricName), int64(len(payload)), tags); err != nil {
		return fmt.Errorf("statsd: error emitting payload size: metric=%s err=%v", envelope.MetricName, err)
	}

	return nil
}

// Close releases the sink's statsd client.
func (s *StatsdSink) Close() error {
	return s.client.Close()
}
