package metrics

import (
	"context"
	"encoding/json"
	"fmt"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
)

// InfluxSink is a Sink that writes each envelope as an InfluxDB point: the measurement is the
// metric name, the session identifier is a tag, and the payload is stored as a JSON string field.
// Every session therefore starts a new series; retention on the bucket bounds the index size.
type InfluxSink struct {
	client influxdb2.Client
	writer api.WriteAPIBlocking
}

// NewInfluxSink creates a sink writing into the specified organization and bucket.
func NewInfluxSink(url string, token string, org string, bucket string) *InfluxSink {
	client := influxdb2.NewClient(url, token)

	return &InfluxSink{
		client: client,
		writer: client.WriteAPIBlocking(org, bucket),
	}
}

// Send writes a single point synchronously.
func (s *InfluxSink) Send(ctx context.Context, envelope Envelope) error {
	data, err := json.Marshal(envelope.Data)
	if err != nil {
		return fmt.Errorf("influx_sink: error serializing payload: metric=%s err=%v", envelope.MetricName, err)
	}

	tags := make(map[string]string)
	if envelope.HasSession() {
		tags["session_id"] = envelope.SessionID
	}

	point := influxdb2.NewPoint(
		envelope.MetricName,
		tags,
		map[string]interface{}{
			"data": string(data),
		},
		envelope.Timestamp,
	)

	if err := s.writer.WritePoint(ctx, point); err != nil {
		return fmt.Errorf("influx_sink: error writing point: metric=%s err=%v", envelope.MetricName, err)
	}

	return nil
}

// Close releases the client's resources.
func (s *InfluxSink) Close() error {
	s.client.Close()

	return nil
}
