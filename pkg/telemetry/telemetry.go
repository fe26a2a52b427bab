// Package telemetry installs OpenTelemetry trace and metric providers for
// programs that embed l0learn. The library itself only uses the global
// otel tracer and meter; without Init they are no-ops.
package telemetry

import (
	"context"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"

	"github.com/YuminosukeSato/l0learn/pkg/errors"
)

// Exporter names accepted by Config.
const (
	ExporterStdout = "stdout"
	ExporterNone   = "none"
)

// ErrUnknownExporter is returned for exporter names other than stdout/none.
var ErrUnknownExporter = errors.New("unknown exporter")

// Config controls telemetry behavior.
type Config struct {
	ServiceName    string `json:"service_name" yaml:"service_name"`
	ServiceVersion string `json:"service_version" yaml:"service_version"`

	// TraceExporter selects the trace exporter: "stdout" or "none".
	TraceExporter string `json:"trace_exporter" yaml:"trace_exporter"`
	// MetricExporter selects the metric exporter: "stdout" or "none".
	MetricExporter string `json:"metric_exporter" yaml:"metric_exporter"`

	// Writer receives stdout exporter output; nil means os.Stderr.
	Writer io.Writer `json:"-" yaml:"-"`
}

// DefaultConfig exports nothing. OTEL_TRACES_EXPORTER and
// OTEL_METRICS_EXPORTER override the exporters.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "l0learn",
		ServiceVersion: "1.0.0",
		TraceExporter:  getEnvOr("OTEL_TRACES_EXPORTER", ExporterNone),
		MetricExporter: getEnvOr("OTEL_METRICS_EXPORTER", ExporterNone),
	}
}

// Init sets the global tracer and meter providers and returns a shutdown
// function that flushes and stops them. The shutdown function must be
// called before exit.
//
// Example:
//
//	shutdown, err := telemetry.Init(ctx, telemetry.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	defer shutdown(context.Background())
func Init(ctx context.Context, cfg Config) (shutdown func(context.Context) error, err error) {
	var shutdownFuncs []func(context.Context) error
	shutdown = func(ctx context.Context) error {
		var errs error
		for _, fn := range shutdownFuncs {
			if err := fn(ctx); err != nil {
				errs = errors.CombineErrors(errs, err)
			}
		}
		return errs
	}

	w := cfg.Writer
	if w == nil {
		w = os.Stderr
	}
	res := resource.NewWithAttributes(
		"",
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
	)

	switch cfg.TraceExporter {
	case ExporterNone, "":
	case ExporterStdout:
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return nil, errors.Wrap(err, "create stdout trace exporter")
		}
		tp := trace.NewTracerProvider(
			trace.WithSyncer(exporter),
			trace.WithResource(res),
		)
		otel.SetTracerProvider(tp)
		shutdownFuncs = append(shutdownFuncs, tp.Shutdown)
	default:
		return nil, errors.Wrapf(ErrUnknownExporter, "trace exporter %q", cfg.TraceExporter)
	}

	switch cfg.MetricExporter {
	case ExporterNone, "":
	case ExporterStdout:
		exporter, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
		if err != nil {
			_ = shutdown(ctx)
			return nil, errors.Wrap(err, "create stdout metric exporter")
		}
		mp := metric.NewMeterProvider(
			metric.WithResource(res),
			metric.WithReader(metric.NewPeriodicReader(exporter)),
		)
		otel.SetMeterProvider(mp)
		shutdownFuncs = append(shutdownFuncs, mp.Shutdown)
	default:
		_ = shutdown(ctx)
		return nil, errors.Wrapf(ErrUnknownExporter, "metric exporter %q", cfg.MetricExporter)
	}

	return shutdown, nil
}

func getEnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
