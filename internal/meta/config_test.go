package meta

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullConfig = `
application:
  sentry_dsn: https://key@sentry.example.com/1
pipeline:
  queue_capacity: 1024
  send_timeout: 5s
  shutdown_timeout: 3s
sink:
  routing_policy: failover
  log:
    enabled: true
  statsd:
    addr: 127.0.0.1:8125
    sample_rate: 0.5
    prefix: agentrix
    session_tag: true
  http:
    url: https://collector.example.com/metrics
    timeout: 2s
    headers:
      Authorization: Bearer token
  influx:
    url: http://influx:8086
    token: secret
    org: agentrix
    bucket: metrics
metrics:
  prometheus:
    enabled: true
  statsd:
    addr: 127.0.0.1:8125
    sample_rate: 1.0
server:
  addr: :8080
  read_timeout: 10s
`

func TestParseConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fullConfig), 0o600))

	cfg, err := ParseConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "https://key@sentry.example.com/1", cfg.Application.SentryDSN)
	assert.Equal(t, 1024, cfg.Pipeline.QueueCapacity)
	assert.Equal(t, 5*time.Second, cfg.Pipeline.SendTimeout)
	assert.Equal(t, 3*time.Second, cfg.Pipeline.ShutdownTimeout)

	assert.Equal(t, "failover", cfg.Sink.RoutingPolicy)
	assert.True(t, cfg.Sink.Log.Enabled)
	require.NotNil(t, cfg.Sink.Statsd.SampleRate)
	assert.Equal(t, float32(0.5), *cfg.Sink.Statsd.SampleRate)
	assert.True(t, cfg.Sink.Statsd.SessionTag)
	assert.Equal(t, 2*time.Second, cfg.Sink.HTTP.Timeout)
	assert.Equal(t, "Bearer token", cfg.Sink.HTTP.Headers["Authorization"])
	assert.Equal(t, "metrics", cfg.Sink.Influx.Bucket)

	assert.Equal(t, "/metrics", cfg.Metrics.Prometheus.Path)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
}

func TestParseConfigMissingFile(t *testing.T) {
	_, err := ParseConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := parseConfig([]byte("server:\n  addr: :9090\n"))
	require.NoError(t, err)

	assert.Equal(t, 0, cfg.Pipeline.QueueCapacity)
	assert.Equal(t, 10*time.Second, cfg.Pipeline.ShutdownTimeout)
	assert.NotNil(t, cfg.Sink)
	assert.Nil(t, cfg.Metrics)
}

func TestParseConfigDefaultsStatsdSampleRate(t *testing.T) {
	cfg, err := parseConfig([]byte(`
sink:
  statsd:
    addr: 127.0.0.1:8125
metrics:
  statsd:
    addr: 127.0.0.1:8125
server:
  addr: :9090
`))
	require.NoError(t, err)

	require.NotNil(t, cfg.Sink.Statsd.SampleRate)
	assert.Equal(t, float32(1), *cfg.Sink.Statsd.SampleRate)
	assert.False(t, cfg.Sink.Statsd.SessionTag)

	require.NotNil(t, cfg.Metrics.Statsd.SampleRate)
	assert.Equal(t, float32(1), *cfg.Metrics.Statsd.SampleRate)
}

func TestParseConfigValidation(t *testing.T) {
	cases := map[string]string{
		"empty":              "",
		"malformed":          "server: [",
		"missing server":     "pipeline:\n  queue_capacity: 1\n",
		"missing addr":       "server:\n  read_timeout: 1s\n",
		"negative capacity":  "pipeline:\n  queue_capacity: -1\nserver:\n  addr: :1\n",
		"unknown routing":    "sink:\n  routing_policy: sharded\nserver:\n  addr: :1\n",
		"statsd addr":        "sink:\n  statsd:\n    sample_rate: 1\nserver:\n  addr: :1\n",
		"statsd sample rate": "sink:\n  statsd:\n    addr: x:1\n    sample_rate: 2\nserver:\n  addr: :1\n",
		"statsd zero rate":   "sink:\n  statsd:\n    addr: x:1\n    sample_rate: 0\nserver:\n  addr: :1\n",
		"metrics zero rate":  "metrics:\n  statsd:\n    addr: x:1\n    sample_rate: 0\nserver:\n  addr: :1\n",
		"http url":           "sink:\n  http:\n    timeout: 1s\nserver:\n  addr: :1\n",
		"influx bucket":      "sink:\n  influx:\n    url: http://x\n    org: o\nserver:\n  addr: :1\n",
		"metrics statsd":     "metrics:\n  statsd:\n    sample_rate: 1\nserver:\n  addr: :1\n",
	}

	for name, raw := range cases {
		_, err := parseConfig([]byte(raw))
		assert.Error(t, err, name)
	}
}

func TestVersion(t *testing.T) {
	previous := VersionSHA
	defer func() { VersionSHA = previous }()

	VersionSHA = ""
	assert.Equal(t, "dev", Version())

	VersionSHA = "abc123"
	assert.Equal(t, "abc123", Version())
}
