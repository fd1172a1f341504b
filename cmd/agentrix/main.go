package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/getsentry/raven-go"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"agentrix/internal/log"
	"agentrix/internal/meta"
	"agentrix/internal/metrics"
	"agentrix/internal/server"
	"agentrix/internal/session"
)

func main() {
	configPath := flag.String(
		"config",
		os.Getenv("AGENTRIX_CONFIG"),
		"path to the configuration file on disk",
	)
	version := flag.Bool(
		"version",
		false,
		"print the compiled agentrix version SHA",
	)
	verbosity := flag.String(
		"verbosity",
		"error",
		"desired logging verbosity: one of error, warn, info, debug",
	)
	flag.Parse()

	// Report the compiled version and exit
	if *version {
		fmt.Printf("agentrix/%s\n", meta.Version())
		return
	}

	// Logging configuration; unknown verbosities fall back to log.DefaultLevel
	level, ok := log.ParseLevel(*verbosity)
	logger := log.NewConsoleLogger(level)
	if !ok {
		logger.Error("main: unknown verbosity; use default: supplied=%s default=%s", *verbosity, level)
	}
	logger.Debug("main: initialized logger: level=%v", level)

	// Parse application configuration
	logger.Debug("main: reading and parsing config: path=%s", *configPath)
	config, err := meta.ParseConfig(*configPath)
	if err != nil {
		panic(err)
	}

	// Configure error reporting
	if config.Application != nil && config.Application.SentryDSN != "" {
		raven.SetDSN(config.Application.SentryDSN)
		raven.SetRelease(meta.Version())
	}

	sink, closers, err := buildSink(config.Sink, logger)
	if err != nil {
		panic(err)
	}

	defer func() {
		for _, closer := range closers {
			if err := closer.Close(); err != nil {
				logger.Warn("main: error closing sink: err=%v", err)
			}
		}
	}()

	hook, metricsHandler, err := buildHook(config.Metrics, logger)
	if err != nil {
		panic(err)
	}

	pipeline := metrics.NewPipeline(
		sink,
		session.NewResolver(),
		hook,
		logger,
		metrics.PipelineOpts{
			QueueCapacity: config.Pipeline.QueueCapacity,
			SendTimeout:   config.Pipeline.SendTimeout,
		},
	)

	if err := pipeline.Start(); err != nil {
		panic(err)
	}

	// Configure the HTTP listener
	if level > log.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	routerOpts := server.RouterOpts{MetricsHandler: metricsHandler}
	if config.Metrics != nil && config.Metrics.Prometheus != nil {
		routerOpts.MetricsPath = config.Metrics.Prometheus.Path
	}

	handlers := server.NewHandlers(pipeline, server.NewFlightStatusAgent(pipeline).Respond, logger)
	httpServer := &http.Server{
		Addr:         config.Server.Address,
		Handler:      server.NewRouter(handlers, pipeline, logger, routerOpts),
		ReadTimeout:  config.Server.ReadTimeout,
		WriteTimeout: config.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Info("main: serving HTTP: addr=%s", config.Server.Address)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	group.Go(func() error {
		<-ctx.Done()
		logger.Info("main: shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.Pipeline.ShutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("main: error shutting down HTTP server: err=%v", err)
		}

		// Requests have completed; deliver whatever they emitted before exiting.
		return pipeline.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error("main: exiting with error: err=%v", err)
		raven.CaptureErrorAndWait(err, nil)
	}

	stats := pipeline.Stats()
	logger.Info(
		"main: pipeline stopped: enqueued=%d delivered=%d failed=%d dropped=%d",
		stats.Enqueued,
		stats.Delivered,
		stats.Failed,
		stats.Dropped,
	)
}

// buildSink creates the sink described by cfg, along with any resources to release on exit. The
// log sink is used when no backend is configured.
func buildSink(cfg *meta.SinkConfig, logger log.Logger) (metrics.Sink, []io.Closer, error) {
	var sinks []metrics.Sink
	var closers []io.Closer

	if cfg.Log != nil && cfg.Log.Enabled {
		logger.Info("main: configuring log sink")
		sinks = append(sinks, metrics.NewLogSink(logger))
	}

	if cfg.Statsd != nil {
		logger.Info(
			"main: configuring statsd sink: addr=%s sample_rate=%f",
			cfg.Statsd.Address,
			*cfg.Statsd.SampleRate,
		)

		statsdSink, err := metrics.NewStatsdSink(
			cfg.Statsd.Address,
			cfg.Statsd.Prefix,
			*cfg.Statsd.SampleRate,
			metrics.StatsdSinkOpts{SessionTag: cfg.Statsd.SessionTag},
		)
		if err != nil {
			return nil, nil, err
		}

		sinks = append(sinks, statsdSink)
		closers = append(closers, statsdSink)
	}

	if cfg.HTTP != nil {
		logger.Info("main: configuring HTTP sink: url=%s", cfg.HTTP.URL)
		sinks = append(sinks, metrics.NewHTTPSink(cfg.HTTP.URL, metrics.HTTPSinkOpts{
			Timeout: cfg.HTTP.Timeout,
			Headers: cfg.HTTP.Headers,
		}))
	}

	if cfg.Influx != nil {
		logger.Info(
			"main: configuring influx sink: url=%s org=%s bucket=%s",
			cfg.Influx.URL,
			cfg.Influx.Org,
			cfg.Influx.Bucket,
		)

		influxSink := metrics.NewInfluxSink(cfg.Influx.URL, cfg.Influx.Token, cfg.Influx.Org, cfg.Influx.Bucket)
		sinks = append(sinks, influxSink)
		closers = append(closers, influxSink)
	}

	if len(sinks) == 0 {
		logger.Warn("main: no sink specified; logging envelopes")
		sinks = append(sinks, metrics.NewLogSink(logger))
	}

	policy, ok := metrics.ParseRoutingPolicy(cfg.RoutingPolicy)
	if !ok && cfg.RoutingPolicy != "" {
		logger.Warn(
			"main: unknown routing policy; use default: supplied=%s default=%s",
			cfg.RoutingPolicy,
			policy,
		)
	}

	logger.Debug("main: using routing policy across sinks: policy=%s sinks=%d", policy, len(sinks))

	sink, err := metrics.NewRoutedSink(sinks, policy)
	if err != nil {
		return nil, nil, err
	}

	return sink, closers, nil
}

// buildHook creates the pipeline hook described by cfg, and the handler exposing Prometheus
// metrics if enabled.
func buildHook(cfg *meta.MetricsConfig, logger log.Logger) (metrics.PipelineHook, http.Handler, error) {
	if cfg == nil {
		logger.Warn("main: no metrics output engine specified; disabling metrics")
		return metrics.NewNoopPipelineHook(), nil, nil
	}

	var hooks []metrics.PipelineHook
	var handler http.Handler

	if cfg.Statsd != nil {
		logger.Info(
			"main: configuring statsd metrics reporting: addr=%s sample_rate=%f",
			cfg.Statsd.Address,
			*cfg.Statsd.SampleRate,
		)

		hook, err := metrics.NewAsyncStatsdPipelineHook(cfg.Statsd.Address, *cfg.Statsd.SampleRate)
		if err != nil {
			return nil, nil, err
		}

		hooks = append(hooks, hook)
	}

	if cfg.Prometheus != nil && cfg.Prometheus.Enabled {
		logger.Info("main: configuring prometheus metrics reporting: path=%s", cfg.Prometheus.Path)

		registry := prometheus.NewRegistry()
		hook, err := metrics.NewPrometheusPipelineHook(registry)
		if err != nil {
			return nil, nil, err
		}

		hooks = append(hooks, hook)
		handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	}

	return metrics.NewMultiPipelineHook(hooks...), handler, nil
}
