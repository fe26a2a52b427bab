package telemetry

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/YuminosukeSato/l0learn/pkg/errors"
)

func TestInitStdoutExporters(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.TraceExporter = ExporterStdout
	cfg.MetricExporter = ExporterStdout
	cfg.Writer = &buf

	ctx := context.Background()
	shutdown, err := Init(ctx, cfg)
	require.NoError(t, err)

	_, span := otel.Tracer("telemetry_test").Start(ctx, "l0learn.Fit")
	span.End()
	counter, err := otel.Meter("telemetry_test").Int64Counter("l0learn_grid_points_total")
	require.NoError(t, err)
	counter.Add(ctx, 3)

	require.NoError(t, shutdown(ctx))
	out := buf.String()
	assert.Contains(t, out, "l0learn.Fit")
	assert.Contains(t, out, "l0learn_grid_points_total")
}

func TestInitNone(t *testing.T) {
	cfg := Config{TraceExporter: ExporterNone, MetricExporter: ExporterNone}
	shutdown, err := Init(context.Background(), cfg)
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitUnknownExporter(t *testing.T) {
	_, err := Init(context.Background(), Config{TraceExporter: "jaeger"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownExporter))

	_, err = Init(context.Background(), Config{MetricExporter: "prometheus"})
	assert.True(t, errors.Is(err, ErrUnknownExporter))
}

func TestDefaultConfigFromEnv(t *testing.T) {
	t.Setenv("OTEL_TRACES_EXPORTER", "stdout")
	t.Setenv("OTEL_METRICS_EXPORTER", "")
	cfg := DefaultConfig()
	assert.Equal(t, ExporterStdout, cfg.TraceExporter)
	assert.Equal(t, ExporterNone, cfg.MetricExporter)
	assert.Equal(t, "l0learn", cfg.ServiceName)
}
