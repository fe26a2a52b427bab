package l0learn

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/YuminosukeSato/l0learn/sparse/path"
)

// Package-level tracer and meter for fits.
var (
	tracer = otel.Tracer("github.com/YuminosukeSato/l0learn")
	meter  = otel.Meter("github.com/YuminosukeSato/l0learn")
)

var (
	gridPoints     metric.Int64Counter
	nonConverged   metric.Int64Counter
	swapsTotal     metric.Int64Counter
	fitDuration    metric.Float64Histogram
	metricsOnce    sync.Once
	metricsInitErr error
)

// initMetrics initializes the instruments. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		gridPoints, err = meter.Int64Counter(
			"l0learn_grid_points_total",
			metric.WithDescription("Grid points solved"),
		)
		if err != nil {
			metricsInitErr = err
			return
		}

		nonConverged, err = meter.Int64Counter(
			"l0learn_nonconverged_points_total",
			metric.WithDescription("Grid points that exhausted MaxIters"),
		)
		if err != nil {
			metricsInitErr = err
			return
		}

		swapsTotal, err = meter.Int64Counter(
			"l0learn_swaps_total",
			metric.WithDescription("Accepted swap moves"),
		)
		if err != nil {
			metricsInitErr = err
			return
		}

		fitDuration, err = meter.Float64Histogram(
			"l0learn_fit_duration_seconds",
			metric.WithDescription("Duration of path fits"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsInitErr = err
			return
		}
	})
	return metricsInitErr
}

// recordFitMetrics records the counters of one solved path.
func recordFitMetrics(ctx context.Context, operation string, sol *path.Solution, duration time.Duration, success bool) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.Bool("success", success),
	)
	fitDuration.Record(ctx, duration.Seconds(), attrs)
	if sol == nil {
		return
	}

	var failed, swaps int64
	for i := range sol.Points {
		p := sol.At(i)
		if !p.Converged {
			failed++
		}
		swaps += int64(p.Swaps)
	}
	pathAttrs := metric.WithAttributes(
		attribute.String("loss", sol.Loss.String()),
		attribute.String("penalty", sol.Penalty.String()),
	)
	gridPoints.Add(ctx, int64(sol.Len()), pathAttrs)
	nonConverged.Add(ctx, failed, pathAttrs)
	swapsTotal.Add(ctx, swaps, pathAttrs)
}
