package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/mash-protocol/mash-subs/pkg/connection"
	"github.com/mash-protocol/mash-subs/pkg/log"
	"github.com/mash-protocol/mash-subs/pkg/metrics"
)

// Runtime is the ambient stack built from a Config.
type Runtime struct {
	Logger      *slog.Logger
	EventLogger log.Logger
	Metrics     metrics.Collector

	// Registry holds the collector's metrics when metrics are enabled.
	// It is nil otherwise.
	Registry *prometheus.Registry

	streamBuffer int
	closers      []io.Closer
}

// Build creates the loggers and metrics collector described by c.
// The caller must Close the returned Runtime.
func (c *Config) Build() (*Runtime, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	rt := &Runtime{streamBuffer: c.Connection.StreamBuffer}

	out, err := rt.openOutput(c.Logging.Output)
	if err != nil {
		return nil, err
	}
	level, _ := parseLevel(c.Logging.Level)
	opts := &slog.HandlerOptions{Level: level}
	if c.Logging.Format == "json" {
		rt.Logger = slog.New(slog.NewJSONHandler(out, opts))
	} else {
		rt.Logger = slog.New(slog.NewTextHandler(out, opts))
	}

	var sinks []log.Logger
	if c.EventLog.Path != "" {
		fl, err := log.NewFileLogger(c.EventLog.Path)
		if err != nil {
			_ = rt.Close()
			return nil, fmt.Errorf("open event log: %w", err)
		}
		rt.closers = append(rt.closers, fl)
		sinks = append(sinks, fl)
	}
	if c.EventLog.Console {
		sinks = append(sinks, log.NewSlogAdapter(rt.Logger))
	}
	switch len(sinks) {
	case 0:
		rt.EventLogger = log.NoopLogger{}
	case 1:
		rt.EventLogger = sinks[0]
	default:
		rt.EventLogger = log.NewMultiLogger(sinks...)
	}

	if !c.Metrics.Enabled {
		rt.Metrics = metrics.NewNop()
		return rt, nil
	}

	rt.Registry = prometheus.NewRegistry()
	rt.Registry.MustRegister(collectors.NewGoCollector())
	collector, err := metrics.NewPrometheus(rt.Registry, c.Metrics.Namespace)
	if err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("register metrics: %w", err)
	}
	rt.Metrics = collector

	return rt, nil
}

// ConnectionConfig returns a connection config wired to the runtime's
// loggers and metrics.
func (rt *Runtime) ConnectionConfig(remoteAddr string) connection.Config {
	return connection.Config{
		Logger:       rt.Logger,
		EventLogger:  rt.EventLogger,
		Metrics:      rt.Metrics,
		RemoteAddr:   remoteAddr,
		StreamBuffer: rt.streamBuffer,
	}
}

// Close flushes and closes the event log and any log file.
func (rt *Runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}

func (rt *Runtime) openOutput(output string) (io.Writer, error) {
	switch output {
	case "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}
	f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log output: %w", err)
	}
	rt.closers = append(rt.closers, f)
	return f, nil
}

func parseLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", s)
	}
}
