package metrics

import (
	"encoding/json"
	"time"
)

// Envelope is a single metric record ready for delivery. Envelopes are passed by value and are
// not modified after construction.
type Envelope struct {
	// SessionID is the session in effect when the metric was emitted; empty when absent.
	SessionID string
	// MetricName names the event, e.g. user_input or agent_output.
	MetricName string
	// Data is a free-form, JSON-compatible payload.
	Data interface{}
	// Timestamp is the wall clock instant at which the metric was emitted.
	Timestamp time.Time
}

// wireEnvelope is the serialized shape of an Envelope at sink boundaries.
type wireEnvelope struct {
	SessionID  *string     `json:"session_id"`
	MetricName string      `json:"metric_name"`
	Data       interface{} `json:"data"`
	Timestamp  float64     `json:"timestamp"`
}

// NewEnvelope creates an envelope from its constituent parts.
func NewEnvelope(sessionID string, metricName string, data interface{}, timestamp time.Time) Envelope {
	return Envelope{
		SessionID:  sessionID,
		MetricName: metricName,
		Data:       data,
		Timestamp:  timestamp,
	}
}

// HasSession indicates whether the envelope is attributed to a session.
func (e Envelope) HasSession() bool {
	return e.SessionID != ""
}

// MarshalJSON serializes the envelope with a nullable session identifier and a timestamp expressed
// as fractional seconds since the Unix epoch.
func (e Envelope) MarshalJSON() ([]byte, error) {
	wire := wireEnvelope{
		MetricName: e.MetricName,
		Data:       e.Data,
		Timestamp:  float64(e.Timestamp.UnixNano()) / float64(time.Second),
	}

	if e.HasSession() {
		sessionID := e.SessionID
		wire.SessionID = &sessionID
	}

	return json.Marshal(wire)
}
