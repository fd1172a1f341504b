package meta

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"agentrix/internal/metrics"
)

// ApplicationConfig is a top-level block for application-level meta configuration.
type ApplicationConfig struct {
	SentryDSN string `yaml:"sentry_dsn"`
}

// PipelineConfig is a top-level block for delivery pipeline configuration.
type PipelineConfig struct {
	QueueCapacity   int           `yaml:"queue_capacity"`
	SendTimeout     time.Duration `yaml:"send_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// SinkConfig is a top-level block describing the backends receiving envelopes. Each backend is
// enabled by the presence of its block.
type SinkConfig struct {
	RoutingPolicy string `yaml:"routing_policy"`
	Log           *struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"log"`
	Statsd *struct {
		Address    string   `yaml:"addr"`
		SampleRate *float32 `yaml:"sample_rate"`
		Prefix     string   `yaml:"prefix"`
		// SessionTag tags each event count with its session identifier. Session identifiers are
		// unbounded, so this multiplies the number of series the backend stores.
		SessionTag bool `yaml:"session_tag"`
	} `yaml:"statsd"`
	HTTP *struct {
		URL     string            `yaml:"url"`
		Timeout time.Duration     `yaml:"timeout"`
		Headers map[string]string `yaml:"headers"`
	} `yaml:"http"`
	Influx *struct {
		URL    string `yaml:"url"`
		Token  string `yaml:"token"`
		Org    string `yaml:"org"`
		Bucket string `yaml:"bucket"`
	} `yaml:"influx"`
}

// MetricsConfig is a top-level block for reporting the pipeline's own health.
type MetricsConfig struct {
	Prometheus *struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"prometheus"`
	Statsd *struct {
		Address    string   `yaml:"addr"`
		SampleRate *float32 `yaml:"sample_rate"`
	} `yaml:"statsd"`
}

// ServerConfig is a top-level block for the HTTP server configuration.
type ServerConfig struct {
	Address      string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// Config describes all application configuration options.
type Config struct {
	Application *ApplicationConfig `yaml:"application"`
	Pipeline    *PipelineConfig    `yaml:"pipeline"`
	Sink        *SinkConfig        `yaml:"sink"`
	Metrics     *MetricsConfig     `yaml:"metrics"`
	Server      *ServerConfig      `yaml:"server"`
}

// ParseConfig parses a Config struct instance from a file specified as a path on disk.
func ParseConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: error reading config: err=%v", err)
	}

	return parseConfig(data)
}

// parseConfig parses and validates a Config from raw YAML, filling in defaults for omitted
// optional blocks.
func parseConfig(data []byte) (*Config, error) {
	var cfg *Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: error parsing config: err=%v", err)
	}

	if cfg == nil {
		return nil, fmt.Errorf("config: empty config")
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults fills in omitted optional values.
func (c *Config) applyDefaults() {
	if c.Pipeline == nil {
		c.Pipeline = &PipelineConfig{}
	}

	if c.Pipeline.ShutdownTimeout <= 0 {
		c.Pipeline.ShutdownTimeout = 10 * time.Second
	}

	if c.Sink == nil {
		c.Sink = &SinkConfig{}
	}

	// An omitted statsd sample rate means every metric is sent.
	if c.Sink.Statsd != nil && c.Sink.Statsd.SampleRate == nil {
		c.Sink.Statsd.SampleRate = fullSampleRate()
	}

	if c.Metrics != nil && c.Metrics.Statsd != nil && c.Metrics.Statsd.SampleRate == nil {
		c.Metrics.Statsd.SampleRate = fullSampleRate()
	}

	if c.Metrics != nil && c.Metrics.Prometheus != nil && c.Metrics.Prometheus.Path == "" {
		c.Metrics.Prometheus.Path = "/metrics"
	}
}

// validate the contents of the configuration. Returns an error if validation failed; nil otherwise.
func (c *Config) validate() error {
	/* Pipeline */

	if c.Pipeline.QueueCapacity < 0 {
		return fmt.Errorf("config: pipeline queue capacity must be non-negative (0 for unbounded)")
	}

	if c.Pipeline.SendTimeout < 0 {
		return fmt.Errorf("config: pipeline send timeout must be non-negative")
	}

	/* Sink */

	// Validate the routing policy, only if provided (empty signifies default).
	if c.Sink.RoutingPolicy != "" {
		if _, ok := metrics.ParseRoutingPolicy(c.Sink.RoutingPolicy); !ok {
			return fmt.Errorf("config: unknown sink routing policy: policy=%s", c.Sink.RoutingPolicy)
		}
	}

	if c.Sink.Statsd != nil {
		if c.Sink.Statsd.Address == "" {
			return fmt.Errorf("config: missing sink statsd address")
		}

		if rate := *c.Sink.Statsd.SampleRate; rate <= 0 || rate > 1 {
			return fmt.Errorf("config: sink statsd sample rate must be in range (0.0, 1.0]")
		}
	}

	if c.Sink.HTTP != nil && c.Sink.HTTP.URL == "" {
		return fmt.Errorf("config: missing sink http url")
	}

	if c.Sink.Influx != nil {
		if c.Sink.Influx.URL == "" {
			return fmt.Errorf("config: missing sink influx url")
		}

		if c.Sink.Influx.Org == "" || c.Sink.Influx.Bucket == "" {
			return fmt.Errorf("config: sink influx org and bucket are required")
		}
	}

	/* Metrics */

	// Users can omit the metrics block entirely to disable pipeline self-reporting.
	if c.Metrics != nil && c.Metrics.Statsd != nil {
		if c.Metrics.Statsd.Address == "" {
			return fmt.Errorf("config: missing metrics statsd address")
		}

		if rate := *c.Metrics.Statsd.SampleRate; rate <= 0 || rate > 1 {
			return fmt.Errorf("config: statsd sample rate must be in range (0.0, 1.0]")
		}
	}

	/* Server */

	if c.Server == nil {
		return fmt.Errorf("config: missing top-level server config key")
	}

	if c.Server.Address == "" {
		return fmt.Errorf("config: missing server listening address")
	}

	return nil
}

func fullSampleRate() *float32 {
	rate := float32(1)
	return &rate
}
