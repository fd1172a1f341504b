package metrics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPSink is a Sink that POSTs the JSON wire representation of each envelope to a collector
// endpoint.
type HTTPSink struct {
	url     string
	client  *http.Client
	headers map[string]string
}

// HTTPSinkOpts formalizes configuration options for the HTTP sink.
type HTTPSinkOpts struct {
	// Timeout bounds each request to the collector, including reading the response. It applies
	// in addition to any deadline carried by the context passed to Send.
	Timeout time.Duration
	// Headers are added to every request, e.g. for collector authentication.
	Headers map[string]string
}

// NewHTTPSink creates a sink posting envelopes to the specified collector URL.
func NewHTTPSink(url string, opts HTTPSinkOpts) *HTTPSink {
	// Sane option defaults
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}

	return &HTTPSink{
		url:     url,
		client:  &http.Client{Timeout: opts.Timeout},
		headers: opts.Headers,
	}
}

// Send posts a single envelope. Any non-2xx response status is considered a failed delivery.
func (s *HTTPSink) Send(ctx context.Context, envelope Envelope) error {
	body, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("http_sink: error serializing envelope: metric=%s err=%v", envelope.MetricName, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("http_sink: error creating request: url=%s err=%v", s.url, err)
	}

	req.Header.Set("Content-Type", "application/json")
	for key, value := range s.headers {
		req.Header.Set(key, value)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("http_sink: error posting envelope: url=%s err=%v", s.url, err)
	}
	defer resp.Body.Close()

	// Drain the body so the underlying connection can be reused.
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("http_sink: collector rejected envelope: url=%s status=%d", s.url, resp.StatusCode)
	}

	return nil
}
